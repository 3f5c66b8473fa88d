package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/theatre-reservation/internal/access"
	"github.com/iliyamo/theatre-reservation/internal/config"
	"github.com/iliyamo/theatre-reservation/internal/model"
	"github.com/iliyamo/theatre-reservation/internal/utils"
)

const secret = "test-secret"

func bearer(t *testing.T, id uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, id, "u@example.com", role, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func newGated(kind KindFunc) *echo.Echo {
	e := echo.New()
	ok := func(c echo.Context) error {
		id := IdentityFrom(c)
		return c.JSON(http.StatusOK, echo.Map{"user": id.UserID, "staff": id.IsStaff})
	}
	g := e.Group("", Authenticate(secret), Permission(kind))
	g.GET("/x", ok)
	g.POST("/x", ok)
	return e
}

func do(e *echo.Echo, method, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/x", nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPermissionByMethod(t *testing.T) {
	e := newGated(ByMethod)
	regular := bearer(t, 7, model.RoleRegular)
	staff := bearer(t, 1, model.RoleStaff)

	tests := []struct {
		name   string
		method string
		auth   string
		want   int
	}{
		{"anonymous read", http.MethodGet, "", http.StatusUnauthorized},
		{"anonymous write", http.MethodPost, "", http.StatusUnauthorized},
		{"regular read", http.MethodGet, regular, http.StatusOK},
		{"regular write", http.MethodPost, regular, http.StatusForbidden},
		{"staff read", http.MethodGet, staff, http.StatusOK},
		{"staff write", http.MethodPost, staff, http.StatusOK},
		{"garbage token", http.MethodGet, "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", http.MethodGet, "Basic Zm9vOmJhcg==", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, tt.method, tt.auth)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			if tt.want == http.StatusUnauthorized {
				assert.NotEmpty(t, rec.Header().Get(echo.HeaderWWWAuthenticate))
			}
		})
	}
}

func TestPermissionBookingAllowsRegularUsers(t *testing.T) {
	e := newGated(Always(access.Booking))
	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, bearer(t, 7, model.RoleRegular)).Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodPost, "").Code)
}

func TestAuthenticateSetsUserID(t *testing.T) {
	e := echo.New()
	var got string
	e.GET("/x", func(c echo.Context) error {
		got = userID(c)
		return c.NoContent(http.StatusNoContent)
	}, Authenticate(secret))

	do(e, http.MethodGet, bearer(t, 42, model.RoleRegular))
	assert.Equal(t, "42", got)
	do(e, http.MethodGet, "")
	assert.Equal(t, "anon", got)
}

func TestCacheKeyUsesConcretePath(t *testing.T) {
	e := echo.New()
	key := func(strategy, method, target string) string {
		c := e.NewContext(httptest.NewRequest(method, target, nil), httptest.NewRecorder())
		return cacheKeyFrom(config.CacheConfig{Prefix: "p", KeyStrategy: strategy}, c)
	}

	assert.NotEqual(t, key("route_query", http.MethodGet, "/plays/1"), key("route_query", http.MethodGet, "/plays/2"))
	assert.NotEqual(t, key("route_query", http.MethodGet, "/plays?page=1"), key("route_query", http.MethodGet, "/plays?page=2"))
	assert.Equal(t, key("route", http.MethodGet, "/plays?page=1"), key("route", http.MethodGet, "/plays?page=2"))
	assert.NotEqual(t, key("method_route", http.MethodGet, "/plays"), key("method_route", http.MethodHead, "/plays"))
	assert.Contains(t, key("", http.MethodGet, "/plays"), "p:")
}

func TestCachePayloadRoundTrip(t *testing.T) {
	h := http.Header{}
	h.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	bs, err := encodePayload(http.StatusOK, h, []byte(`{"count":0}`))
	require.NoError(t, err)

	status, hdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, echo.MIMEApplicationJSON, hdr.Get(echo.HeaderContentType))
	assert.JSONEq(t, `{"count":0}`, string(body))

	_, _, _, ok = decodePayload(bs[:5])
	assert.False(t, ok)
}

func TestDisabledMiddlewaresPassThrough(t *testing.T) {
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
		NewRedisCache(config.CacheConfig{Enabled: true}, nil),
		NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil))

	rec := do(e, http.MethodGet, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestRateKeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/plays/3", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/plays/:id")
	c.Set(userIDKey, "9")

	assert.Equal(t, "rl:ip:10.0.0.1", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}, c))
	assert.Equal(t, "rl:user:9", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}, c))
	assert.Equal(t, "rl:ip:10.0.0.1:user:9:route:GET /plays/:id", buildRateKey(config.RateLimitConfig{Prefix: "rl"}, c))
}
