package middleware // middleware provides shared request processing for handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theatre-reservation/internal/access"
)

// KindFunc classifies a request for the permission gate.
type KindFunc func(c echo.Context) access.Kind

// ByMethod treats GET/HEAD/OPTIONS as Safe and everything else as Unsafe.
func ByMethod(c echo.Context) access.Kind { return access.KindForMethod(c.Request().Method) }

// Always classifies every request as k.
func Always(k access.Kind) KindFunc { return func(echo.Context) access.Kind { return k } }

// Permission runs access.Check before the handler.  It assumes
// Authenticate ran earlier in the chain.  A missing identity is
// answered with 401 and a non-staff identity on an Unsafe request
// with 403.
func Permission(kind KindFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := access.Check(IdentityFrom(c), kind(c))
			switch {
			case err == nil:
				return next(c)
			case errors.Is(err, access.ErrUnauthorized):
				return unauthorized(c, err.Error())
			default:
				return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
			}
		}
	}
}
