package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theatre-reservation/internal/access"
	"github.com/iliyamo/theatre-reservation/internal/model"
	"github.com/iliyamo/theatre-reservation/internal/utils"
)

// Context keys set by Authenticate.
const (
	identityKey = "identity"
	userIDKey   = "user_id"
)

// Authenticate returns an Echo middleware that validates an optional
// Bearer access token.  A request without an Authorization header
// passes through anonymously so the permission gate can answer 401; a
// header that is present but invalid is rejected here with 401.  On
// success the caller's *access.Identity is stored in the context.
func Authenticate(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if auth == "" {
				return next(c)
			}
			if !strings.HasPrefix(auth, "Bearer ") {
				return unauthorized(c, "missing bearer token")
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return unauthorized(c, "invalid token")
			}
			uid, _ := claims.UserID()
			c.Set(identityKey, &access.Identity{
				UserID:  uid,
				Email:   claims.Email,
				IsStaff: claims.Role == model.RoleStaff,
			})
			c.Set(userIDKey, strconv.FormatUint(uid, 10))
			return next(c)
		}
	}
}

// IdentityFrom returns the authenticated caller or nil.
func IdentityFrom(c echo.Context) *access.Identity {
	id, _ := c.Get(identityKey).(*access.Identity)
	return id
}

// userID extracts a user identifier for rate limit keys.  It returns
// "anon" when no user is authenticated.
func userID(c echo.Context) string {
	if s, ok := c.Get(userIDKey).(string); ok && s != "" {
		return s
	}
	return "anon"
}

func unauthorized(c echo.Context, msg string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="api"`)
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
}
