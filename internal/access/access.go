// Package access decides whether a caller may perform a request.  It
// knows nothing about HTTP beyond method names; the middleware package
// adapts it to echo.
package access

import (
	"errors"
	"net/http"
)

// Kind classifies a request for permission purposes.
type Kind int

const (
	// Safe requests only read: GET, HEAD, OPTIONS.
	Safe Kind = iota
	// Unsafe requests modify the catalog.
	Unsafe
	// Booking creates a reservation for the caller.
	Booking
)

func (k Kind) String() string {
	switch k {
	case Safe:
		return "safe"
	case Unsafe:
		return "unsafe"
	case Booking:
		return "booking"
	}
	return "unknown"
}

// KindForMethod maps an HTTP method to Safe or Unsafe.
func KindForMethod(method string) Kind {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return Safe
	}
	return Unsafe
}

// Identity is the authenticated caller.
type Identity struct {
	UserID  uint64
	Email   string
	IsStaff bool
}

var (
	// ErrUnauthorized means no identity was presented.
	ErrUnauthorized = errors.New("authentication credentials were not provided")
	// ErrForbidden means the identity lacks the required role.
	ErrForbidden = errors.New("you do not have permission to perform this action")
)

// Check returns nil when id may perform a request of kind.  A nil id
// is always ErrUnauthorized; an authenticated non-staff identity is
// ErrForbidden for Unsafe requests.
func Check(id *Identity, kind Kind) error {
	if id == nil {
		return ErrUnauthorized
	}
	switch kind {
	case Safe, Booking:
		return nil
	case Unsafe:
		if id.IsStaff {
			return nil
		}
		return ErrForbidden
	}
	return ErrForbidden
}
