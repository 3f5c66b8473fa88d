package access

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindForMethod(t *testing.T) {
	for _, m := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		assert.Equal(t, Safe, KindForMethod(m), m)
	}
	for _, m := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		assert.Equal(t, Unsafe, KindForMethod(m), m)
	}
}

func TestCheck(t *testing.T) {
	regular := &Identity{UserID: 1}
	staff := &Identity{UserID: 2, IsStaff: true}

	tests := []struct {
		name string
		id   *Identity
		kind Kind
		want error
	}{
		{"anonymous safe", nil, Safe, ErrUnauthorized},
		{"anonymous unsafe", nil, Unsafe, ErrUnauthorized},
		{"anonymous booking", nil, Booking, ErrUnauthorized},
		{"regular safe", regular, Safe, nil},
		{"regular unsafe", regular, Unsafe, ErrForbidden},
		{"regular booking", regular, Booking, nil},
		{"staff safe", staff, Safe, nil},
		{"staff unsafe", staff, Unsafe, nil},
		{"staff booking", staff, Booking, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Check(tt.id, tt.kind))
		})
	}
}
