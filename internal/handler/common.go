package handler // handler defines the HTTP handlers of the theatre API

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theatre-reservation/internal/repository"
	"github.com/iliyamo/theatre-reservation/internal/view"
)

// requestTimeout bounds the database work of a single request.
const requestTimeout = 5 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// respondError maps repository and service errors onto status codes:
// *ValidationError is 400, ErrNotFound 404, ErrConflict 409.  Anything
// else is logged and answered with 500 without leaking details.
func respondError(c echo.Context, err error) error {
	var ve *repository.ValidationError
	switch {
	case errors.As(err, &ve):
		body := echo.Map{"error": ve.Msg}
		if ve.Field != "" {
			body["field"] = ve.Field
		}
		return c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}
	c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// bind decodes the body into dst and runs the registered validator.
// Both failures come back as a *repository.ValidationError.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return repository.Invalid("", "invalid request body")
	}
	if err := c.Validate(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return repository.Invalid(fe.Field(), validationMessage(fe))
		}
		return repository.Invalid("", err.Error())
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "max":
		if fe.Kind().String() == "string" {
			return "ensure this field has no more than " + fe.Param() + " characters"
		}
		return "ensure this value is less than or equal to " + fe.Param()
	case "min":
		if fe.Kind().String() == "string" {
			return "ensure this field has at least " + fe.Param() + " characters"
		}
		return "ensure this value is greater than or equal to " + fe.Param()
	case "email":
		return "enter a valid email address"
	}
	return "invalid value"
}

// pathID parses the :id route parameter.  A malformed id cannot name an
// existing row, so it is reported as not found.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, repository.ErrNotFound
	}
	return id, nil
}

// queryPage reads ?page=N.  Missing means the first page; anything that
// is not a positive integer is an invalid page and answered with 404.
func queryPage(c echo.Context) (repository.Page, error) {
	raw := c.QueryParam("page")
	if raw == "" {
		return repository.Page{Number: 1}, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return repository.Page{}, repository.ErrNotFound
	}
	return repository.Page{Number: n}, nil
}

// queryIDs collects ids from a parameter that may be repeated and/or
// comma separated (?actors=1,2&actors=3).
func queryIDs(c echo.Context, name string) ([]uint64, error) {
	var ids []uint64
	for _, v := range c.QueryParams()[name] {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseUint(part, 10, 64)
			if err != nil {
				return nil, repository.Invalid(name, "expected comma separated ids")
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// queryID reads a single optional id filter; zero means absent.
func queryID(c echo.Context, name string) (uint64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, repository.Invalid(name, "expected an id")
	}
	return id, nil
}

// pageBody is the list envelope.  Next and Previous are absolute URLs
// or null.
type pageBody struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []any   `json:"results"`
}

// Paginator renders list pages.  BaseURL (scheme://host) prefixes the
// page links; empty derives it from the request.
type Paginator struct {
	BaseURL string
}

func (p Paginator) render(c echo.Context, page repository.Page, count int, results []any) error {
	n := page.Number
	if n < 1 {
		n = 1
	}
	body := pageBody{Count: count, Results: results}
	if n*repository.PageSize < count {
		next := p.link(c, n+1)
		body.Next = &next
	}
	if n > 1 {
		prev := p.link(c, n-1)
		body.Previous = &prev
	}
	return c.JSON(http.StatusOK, body)
}

// link rebuilds the current URL for page n, keeping every other query
// parameter.  The first page is addressed without ?page.
func (p Paginator) link(c echo.Context, n int) string {
	r := c.Request()
	base := p.BaseURL
	if base == "" {
		base = c.Scheme() + "://" + r.Host
	}
	q := r.URL.Query()
	if n <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(n))
	}
	u := url.URL{Path: r.URL.Path, RawQuery: q.Encode()}
	return strings.TrimSuffix(base, "/") + u.String()
}

// list projects items for the list view and renders the page.
func list[T any](c echo.Context, p Paginator, page repository.Page, count int, items []T) error {
	out, err := view.Many(items, view.List)
	if err != nil {
		return respondError(c, err)
	}
	return p.render(c, page, count, out)
}

// one projects a single entity for kind and writes it with status.
func one(c echo.Context, status int, entity any, kind view.Kind) error {
	out, err := view.Project(entity, kind)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status, out)
}
