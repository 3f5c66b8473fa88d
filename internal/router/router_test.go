package router

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/theatre-reservation/internal/config"
	"github.com/iliyamo/theatre-reservation/internal/database/dbtest"
	"github.com/iliyamo/theatre-reservation/internal/media"
	"github.com/iliyamo/theatre-reservation/internal/model"
	"github.com/iliyamo/theatre-reservation/internal/repository"
	"github.com/iliyamo/theatre-reservation/internal/utils"
)

const testSecret = "router-test-secret"

type api struct {
	t       *testing.T
	e       *echo.Echo
	db      *sql.DB
	staff   string
	regular string
	other   string
}

func newAPI(t *testing.T) *api {
	t.Helper()
	db := dbtest.New(t)
	cfg := config.Config{
		Env:                 "test",
		JWTSecret:           testSecret,
		AccessTTLMin:        5,
		RefreshTTLDays:      1,
		BcryptCost:          4,
		EnforceHallCapacity: true,
	}
	mcfg := config.MediaConfig{Backend: "local", Root: t.TempDir(), URLPrefix: "/media"}

	e := echo.New()
	Setup(e, Deps{
		Cfg:     cfg,
		DB:      db,
		Media:   mcfg,
		Storage: media.NewLocal(mcfg.Root, mcfg.URLPrefix),
	})

	a := &api{t: t, e: e, db: db}
	a.staff = a.user("staff@example.com", true)
	a.regular = a.user("reader@example.com", false)
	a.other = a.user("other@example.com", false)
	return a
}

func (a *api) user(email string, staff bool) string {
	a.t.Helper()
	u := &model.User{Email: email, IsStaff: staff}
	require.NoError(a.t, repository.NewUserRepo(a.db).Create(context.Background(), u, "secret", 4))
	tok, err := utils.NewAccessToken(testSecret, u.ID, u.Email, u.Role(), 5)
	require.NoError(a.t, err)
	return tok.Token
}

func (a *api) do(method, target, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		require.NoError(a.t, err)
		rd = bytes.NewReader(bs)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

// create posts body as staff and returns the new id.
func (a *api) create(path string, body any) uint64 {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/theatre"+path, a.staff, body)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		ID uint64 `json:"id"`
	}
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.ID
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type page struct {
	Count    int               `json:"count"`
	Next     *string           `json:"next"`
	Previous *string           `json:"previous"`
	Results  []json.RawMessage `json:"results"`
}

func (a *api) count(table string) int {
	a.t.Helper()
	var n int
	require.NoError(a.t, a.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestAccessControl(t *testing.T) {
	a := newAPI(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"anonymous list", http.MethodGet, "/api/theatre/plays", "", nil, http.StatusUnauthorized},
		{"anonymous booking", http.MethodPost, "/api/theatre/reservations", "", map[string]any{}, http.StatusUnauthorized},
		{"regular list", http.MethodGet, "/api/theatre/genres", a.regular, nil, http.StatusOK},
		{"regular create", http.MethodPost, "/api/theatre/genres", a.regular, map[string]any{"name": "Drama"}, http.StatusForbidden},
		{"staff create", http.MethodPost, "/api/theatre/genres", a.staff, map[string]any{"name": "Drama"}, http.StatusCreated},
		{"duplicate name", http.MethodPost, "/api/theatre/genres", a.staff, map[string]any{"name": "Drama"}, http.StatusConflict},
		{"regular delete", http.MethodDelete, "/api/theatre/plays/1", a.regular, nil, http.StatusForbidden},
		{"bad token", http.MethodGet, "/api/theatre/plays", "garbage", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		rec := a.do(tt.method, tt.path, tt.token, tt.body)
		assert.Equal(t, tt.want, rec.Code, "%s: %s", tt.name, rec.Body.String())
	}
}

func TestDuplicateHallName(t *testing.T) {
	a := newAPI(t)
	a.create("/theatre-halls", map[string]any{"name": "Blue", "rows": 5, "seats_in_row": 10})
	red := a.create("/theatre-halls", map[string]any{"name": "Red", "rows": 5, "seats_in_row": 10})

	rec := a.do(http.MethodPost, "/api/theatre/theatre-halls", a.staff, map[string]any{"name": "Blue", "rows": 3, "seats_in_row": 3})
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, "duplicate name", decode[map[string]string](t, rec)["error"])

	path := fmt.Sprintf("/api/theatre/theatre-halls/%d", red)
	rec = a.do(http.MethodPut, path, a.staff, map[string]any{"name": "Blue", "rows": 5, "seats_in_row": 10})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	rec = a.do(http.MethodPatch, path, a.staff, map[string]any{"name": "Blue"})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, path, a.regular, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Red", decode[map[string]any](t, rec)["name"])
	assert.Equal(t, 2, a.count("theatre_halls"))
}

func TestValidationErrors(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/api/theatre/theatre-halls", a.staff, map[string]any{"name": "Blue", "rows": 0, "seats_in_row": 10})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "rows", body["field"])

	rec = a.do(http.MethodPost, "/api/theatre/theatre-halls", a.staff, map[string]any{"name": "Blue", "rows": 101, "seats_in_row": 10})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/api/theatre/plays", a.staff, map[string]any{"title": "X", "actors": []int{99}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodGet, "/api/theatre/plays/abc", a.regular, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPaginationEnvelope(t *testing.T) {
	a := newAPI(t)
	for i := 0; i < 12; i++ {
		a.create("/plays", map[string]any{"title": fmt.Sprintf("Play %02d", i)})
	}

	first := decode[page](t, a.do(http.MethodGet, "/api/theatre/plays", a.regular, nil))
	assert.Equal(t, 12, first.Count)
	assert.Len(t, first.Results, 10)
	require.NotNil(t, first.Next)
	assert.Equal(t, "http://example.com/api/theatre/plays?page=2", *first.Next)
	assert.Nil(t, first.Previous)

	second := decode[page](t, a.do(http.MethodGet, "/api/theatre/plays?page=2", a.regular, nil))
	assert.Len(t, second.Results, 2)
	assert.Nil(t, second.Next)
	require.NotNil(t, second.Previous)
	assert.Equal(t, "http://example.com/api/theatre/plays", *second.Previous)

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/theatre/plays?page=3", a.regular, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/theatre/plays?page=zero", a.regular, nil).Code)

	empty := decode[page](t, a.do(http.MethodGet, "/api/theatre/genres", a.regular, nil))
	assert.Zero(t, empty.Count)
	assert.Empty(t, empty.Results)
}

func TestPlayViewsAndFilters(t *testing.T) {
	a := newAPI(t)
	drama := a.create("/genres", map[string]any{"name": "Drama"})
	comedy := a.create("/genres", map[string]any{"name": "Comedy"})
	ann := a.create("/actors", map[string]any{"first_name": "Ann", "last_name": "Lee"})
	bob := a.create("/actors", map[string]any{"first_name": "Bob", "last_name": "Ray"})

	hamlet := a.create("/plays", map[string]any{"title": "Hamlet", "description": "Prince", "actors": []uint64{ann}, "genres": []uint64{drama}})
	a.create("/plays", map[string]any{"title": "Tartuffe", "actors": []uint64{bob}, "genres": []uint64{comedy}})
	a.create("/plays", map[string]any{"title": "Medea"})

	// Union across dimensions: actor Ann OR genre Comedy.
	got := decode[page](t, a.do(http.MethodGet, fmt.Sprintf("/api/theatre/plays?actors=%d&genres=%d", ann, comedy), a.regular, nil))
	assert.Equal(t, 2, got.Count)

	got = decode[page](t, a.do(http.MethodGet, fmt.Sprintf("/api/theatre/plays?actors=%d,%d", ann, bob), a.regular, nil))
	assert.Equal(t, 2, got.Count)

	var item map[string]any
	require.NoError(t, json.Unmarshal(got.Results[0], &item))
	assert.ElementsMatch(t, []string{"id", "title", "actors", "genres"}, keys(item))
	assert.Equal(t, []any{"Ann Lee"}, item["actors"])

	detail := decode[map[string]any](t, a.do(http.MethodGet, fmt.Sprintf("/api/theatre/plays/%d", hamlet), a.regular, nil))
	assert.ElementsMatch(t, []string{"id", "title", "description", "poster", "actors", "genres"}, keys(detail))
	actors := detail["actors"].([]any)
	require.Len(t, actors, 1)
	assert.Equal(t, "Ann Lee", actors[0].(map[string]any)["full_name"])

	// PATCH keeps what it does not mention.
	rec := a.do(http.MethodPatch, fmt.Sprintf("/api/theatre/plays/%d", hamlet), a.staff, map[string]any{"title": "Hamlet II"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	w := decode[map[string]any](t, rec)
	assert.Equal(t, "Hamlet II", w["title"])
	assert.Equal(t, "Prince", w["description"])
	assert.Equal(t, []any{float64(ann)}, w["actors"])
}

func TestBookingFlow(t *testing.T) {
	a := newAPI(t)
	play := a.create("/plays", map[string]any{"title": "Hamlet"})
	hall := a.create("/theatre-halls", map[string]any{"name": "Blue", "rows": 10, "seats_in_row": 12})
	perf := a.create("/performances", map[string]any{"play": play, "theatre_hall": hall, "show_time": "2024-06-02T14:00:00Z"})

	body := map[string]any{"tickets": []map[string]any{
		{"row": 1, "seat": 1, "performance": perf},
		{"row": 1, "seat": 2, "performance": perf},
	}}
	rec := a.do(http.MethodPost, "/api/theatre/reservations", a.regular, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[struct {
		ID      uint64 `json:"id"`
		Tickets []struct {
			ID          uint64 `json:"id"`
			Row         int    `json:"row"`
			Seat        int    `json:"seat"`
			Performance uint64 `json:"performance"`
			Reservation uint64 `json:"reservation"`
		} `json:"tickets"`
	}](t, rec)
	require.Len(t, created.Tickets, 2)
	assert.Equal(t, perf, created.Tickets[0].Performance)
	assert.Equal(t, created.ID, created.Tickets[0].Reservation)

	// Same seat again, even inside a larger request: nothing is written.
	rec = a.do(http.MethodPost, "/api/theatre/reservations", a.other, map[string]any{"tickets": []map[string]any{
		{"row": 2, "seat": 2, "performance": perf},
		{"row": 1, "seat": 2, "performance": perf},
	}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 2, a.count("tickets"))

	rec = a.do(http.MethodPost, "/api/theatre/reservations", a.regular, map[string]any{"tickets": []map[string]any{
		{"row": 11, "seat": 1, "performance": perf},
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/api/theatre/reservations", a.regular, map[string]any{"tickets": []map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Listings are scoped to the caller.
	mine := decode[page](t, a.do(http.MethodGet, "/api/theatre/reservations", a.regular, nil))
	assert.Equal(t, 1, mine.Count)
	var item map[string]any
	require.NoError(t, json.Unmarshal(mine.Results[0], &item))
	assert.Equal(t, "reader@example.com", item["user_email"])

	theirs := decode[page](t, a.do(http.MethodGet, "/api/theatre/reservations", a.other, nil))
	assert.Zero(t, theirs.Count)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, fmt.Sprintf("/api/theatre/reservations/%d", created.ID), a.other, nil).Code)

	detail := decode[map[string]any](t, a.do(http.MethodGet, fmt.Sprintf("/api/theatre/reservations/%d", created.ID), a.regular, nil))
	assert.Equal(t, "reader@example.com", detail["user"].(map[string]any)["email"])
	tk := detail["tickets"].([]any)[0].(map[string]any)
	assert.Equal(t, "Blue", tk["performance"].(map[string]any)["theatre_hall"].(map[string]any)["name"])

	tickets := decode[page](t, a.do(http.MethodGet, "/api/theatre/tickets", a.regular, nil))
	assert.Equal(t, 2, tickets.Count)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, fmt.Sprintf("/api/theatre/tickets/%d", created.Tickets[0].ID), a.other, nil).Code)

	// Deleting the performance takes its tickets with it.
	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, fmt.Sprintf("/api/theatre/performances/%d", perf), a.staff, nil).Code)
	assert.Zero(t, a.count("tickets"))
}

func TestPerformanceShowTimeFilter(t *testing.T) {
	a := newAPI(t)
	play := a.create("/plays", map[string]any{"title": "Hamlet"})
	hall := a.create("/theatre-halls", map[string]any{"name": "Blue", "rows": 5, "seats_in_row": 5})
	a.create("/performances", map[string]any{"play": play, "theatre_hall": hall, "show_time": "2024-06-02T14:00:00Z"})
	a.create("/performances", map[string]any{"play": play, "theatre_hall": hall, "show_time": "2024-06-02T19:30:00Z"})
	a.create("/performances", map[string]any{"play": play, "theatre_hall": hall, "show_time": "2024-06-03T14:00:00Z"})

	day := decode[page](t, a.do(http.MethodGet, "/api/theatre/performances?show_time=2024-06-02", a.regular, nil))
	assert.Equal(t, 2, day.Count)

	instant := decode[page](t, a.do(http.MethodGet, "/api/theatre/performances?show_time=2024-06-02T19:30:00Z", a.regular, nil))
	assert.Equal(t, 1, instant.Count)
	var item map[string]any
	require.NoError(t, json.Unmarshal(instant.Results[0], &item))
	assert.Equal(t, "Hamlet", item["play_title"])
	assert.Equal(t, "Blue", item["theatre_hall_name"])

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/theatre/performances?show_time=yesterday", a.regular, nil).Code)

	// Removing the hall removes its performances.
	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, fmt.Sprintf("/api/theatre/theatre-halls/%d", hall), a.staff, nil).Code)
	assert.Zero(t, a.count("performances"))
}

func TestUploadActorPhoto(t *testing.T) {
	a := newAPI(t)
	actor := a.create("/actors", map[string]any{"first_name": "Ann", "last_name": "Lee"})

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("photo", "ann.png")
	require.NoError(t, err)
	_, _ = fw.Write(img.Bytes())
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/theatre/actors/%d/upload-image", actor), &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+a.staff)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[map[string]any](t, rec)
	assert.True(t, strings.HasPrefix(out["photo"].(string), "/media/uploads/images/actors/"), out["photo"])
	assert.True(t, strings.HasSuffix(out["photo"].(string), ".png"), out["photo"])

	body.Reset()
	mw = multipart.NewWriter(&body)
	fw, err = mw.CreateFormFile("photo", "evil.html")
	require.NoError(t, err)
	_, _ = fw.Write([]byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`))
	require.NoError(t, mw.Close())

	req = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/theatre/actors/%d/upload-image", actor), &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+a.staff)
	rec = httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, "photo", decode[map[string]string](t, rec)["field"])
}

func TestAccountsFlow(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/api/accounts/register", "", map[string]any{"email": "New@Example.com", "password": "1234"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/api/accounts/register", "", map[string]any{"email": "New@Example.com", "password": "12345", "is_staff": true})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := decode[map[string]any](t, rec)
	assert.Equal(t, "new@example.com", user["email"])
	assert.Equal(t, false, user["is_staff"])
	assert.NotContains(t, user, "password")

	rec = a.do(http.MethodPost, "/api/accounts/register", "", map[string]any{"email": "new@example.com", "password": "12345"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusUnauthorized,
		a.do(http.MethodPost, "/api/accounts/token", "", map[string]any{"email": "new@example.com", "password": "wrong"}).Code)

	type pair struct {
		Access  struct{ Token string } `json:"access"`
		Refresh struct{ Token string } `json:"refresh"`
	}
	rec = a.do(http.MethodPost, "/api/accounts/token", "", map[string]any{"email": "new@example.com", "password": "12345"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tokens := decode[pair](t, rec)
	require.NotEmpty(t, tokens.Access.Token)

	assert.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/accounts/token/verify", "", map[string]any{"token": tokens.Access.Token}).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodPost, "/api/accounts/token/verify", "", map[string]any{"token": "nope"}).Code)

	me := decode[map[string]any](t, a.do(http.MethodGet, "/api/accounts/me", tokens.Access.Token, nil))
	assert.Equal(t, "new@example.com", me["email"])
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/accounts/me", "", nil).Code)

	rec = a.do(http.MethodPatch, "/api/accounts/me", tokens.Access.Token, map[string]any{"first_name": "Nia"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Nia", decode[map[string]any](t, rec)["first_name"])

	// The new account can read but not write the catalog.
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/theatre/plays", tokens.Access.Token, nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/api/theatre/genres", tokens.Access.Token, map[string]any{"name": "X"}).Code)

	// Refresh tokens rotate and are single-use.
	rec = a.do(http.MethodPost, "/api/accounts/token/refresh", "", map[string]any{"refresh": tokens.Refresh.Token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rotated := decode[pair](t, rec)
	assert.NotEqual(t, tokens.Refresh.Token, rotated.Refresh.Token)
	assert.Equal(t, http.StatusUnauthorized,
		a.do(http.MethodPost, "/api/accounts/token/refresh", "", map[string]any{"refresh": tokens.Refresh.Token}).Code)

	assert.Equal(t, http.StatusNoContent,
		a.do(http.MethodPost, "/api/accounts/logout", "", map[string]any{"refresh": rotated.Refresh.Token}).Code)
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestExpiredTokenIsRejected(t *testing.T) {
	a := newAPI(t)
	tok, err := utils.NewAccessToken(testSecret, 1, "x@example.com", model.RoleStaff, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/theatre/plays", tok.Token, nil).Code)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
