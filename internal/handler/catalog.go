package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theatre-reservation/internal/model"
	"github.com/iliyamo/theatre-reservation/internal/repository"
	"github.com/iliyamo/theatre-reservation/internal/service"
	"github.com/iliyamo/theatre-reservation/internal/view"
)

// CatalogHandler bundles the repositories behind genres, actors, plays
// and theatre halls.  Permission checks happen in middleware; handlers
// assume the caller is allowed.
type CatalogHandler struct {
	Paginator
	Genres *repository.GenreRepo
	Actors *repository.ActorRepo
	Plays  *repository.PlayRepo
	Halls  *repository.HallRepo
	Images *service.Images
}

// NewCatalogHandler panics on a nil dependency; wiring mistakes should
// surface at startup, not on the first request.
func NewCatalogHandler(p Paginator, g *repository.GenreRepo, a *repository.ActorRepo, pl *repository.PlayRepo, h *repository.HallRepo, img *service.Images) *CatalogHandler {
	if g == nil || a == nil || pl == nil || h == nil || img == nil {
		panic("nil dependency passed to NewCatalogHandler")
	}
	return &CatalogHandler{Paginator: p, Genres: g, Actors: a, Plays: pl, Halls: h, Images: img}
}

// ----- genres -----

type genreReq struct {
	Name string `json:"name" validate:"required,max=63"`
}

// ListGenres handles GET /genres.
func (h *CatalogHandler) ListGenres(c echo.Context) error {
	page, err := queryPage(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	items, n, err := h.Genres.List(ctx, page)
	if err != nil {
		return respondError(c, err)
	}
	return list(c, h.Paginator, page, n, items)
}

// CreateGenre handles POST /genres.
func (h *CatalogHandler) CreateGenre(c echo.Context) error {
	var req genreReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	g := model.Genre{Name: strings.TrimSpace(req.Name)}
	if err := h.Genres.Create(ctx, &g); err != nil {
		return respondError(c, err)
	}
	return one(c, http.StatusCreated, g, view.Write)
}

// ----- actors -----

type actorReq struct {
	FirstName string `json:"first_name" validate:"required,max=63"`
	LastName  string `json:"last_name" validate:"required,max=63"`
}

// ListActors handles GET /actors.
func (h *CatalogHandler) ListActors(c echo.Context) error {
	page, err := queryPage(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	items, n, err := h.Actors.List(ctx, page)
	if err != nil {
		return respondError(c, err)
	}
	return list(c, h.Paginator, page, n, items)
}

// CreateActor handles POST /actors.
func (h *CatalogHandler) CreateActor(c echo.Context) error {
	var req actorReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	a := model.Actor{FirstName: strings.TrimSpace(req.FirstName), LastName: strings.TrimSpace(req.LastName)}
	if err := h.Actors.Create(ctx, &a); err != nil {
		return respondError(c, err)
	}
	return one(c, http.StatusCreated, a, view.Write)
}

// UploadActorPhoto handles POST /actors/:id/upload-image with a
// multipart "photo" file.
func (h *CatalogHandler) UploadActorPhoto(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}
	fh, err := c.FormFile("photo")
	if err != nil {
		return respondError(c, repository.Invalid("photo", "no file was submitted"))
	}
	f, err := fh.Open()
	if err != nil {
		return respondError(c, err)
	}
	defer f.Close()

	a, err := h.Images.SetActorPhoto(c.Request().Context(), id, fh.Filename, f)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, view.ActorImage{ID: a.ID, Photo: a.Photo})
}

// ----- plays -----

type playReq struct {
	Title       string   `json:"title" validate:"required,max=63"`
	Description string   `json:"description"`
	Actors      []uint64 `json:"actors"`
	Genres      []uint64 `json:"genres"`
}

// ListPlays handles GET /plays with optional ?actors= and ?genres=
// filters.  A play matches when it has any listed actor or any listed
// genre.
func (h *CatalogHandler) ListPlays(c echo.Context) error {
	page, err := queryPage(c)
	if err != nil {
		return respondError(c, err)
	}
	var f repository.PlayFilter
	if f.ActorIDs, err = queryIDs(c, "actors"); err != nil {
		return respondError(c, err)
	}
	if f.GenreIDs, err = queryIDs(c, "genres"); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	items, n, err := h.Plays.List(ctx, f, page)
	if err != nil {
		return respondError(c, err)
	}
	return list(c, h.Paginator, page, n, items)
}

// GetPlay handles GET /plays/:id.
func (h *CatalogHandler) GetPlay(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	p, err := h.Plays.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return one(c, http.StatusOK, *p, view.Retrieve)
}

// CreatePlay handles POST /plays.
func (h *CatalogHandler) CreatePlay(c echo.Context) error {
	var req playReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	p := model.Play{Title: strings.TrimSpace(req.Title), Description: req.Description}
	if err := h.Plays.Create(ctx, &p, req.Actors, req.Genres); err != nil {
		return respondError(c, err)
	}
	return one(c, http.StatusCreated, p, view.Write)
}

// UpdatePlay handles PUT and PATCH /plays/:id.  PATCH starts from the
// stored play so absent fields keep their values; PUT starts empty.
func (h *CatalogHandler) UpdatePlay(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	cur, err := h.Plays.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}

	var req playReq
	if c.Request().Method == http.MethodPatch {
		w := view.Play(*cur, view.Write).(view.PlayWrite)
		req = playReq{Title: w.Title, Description: w.Description, Actors: w.Actors, Genres: w.Genres}
	}
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	p := model.Play{ID: id, Title: strings.TrimSpace(req.Title), Description: req.Description, Poster: cur.Poster}
	if err := h.Plays.Update(ctx, &p, req.Actors, req.Genres); err != nil {
		return respondError(c, err)
	}
	return one(c, http.StatusOK, p, view.Write)
}

// DeletePlay handles DELETE /plays/:id.
func (h *CatalogHandler) DeletePlay(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Plays.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UploadPlayPoster handles POST /plays/:id/upload-image with a
// multipart "poster" file.
func (h *CatalogHandler) UploadPlayPoster(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}
	fh, err := c.FormFile("poster")
	if err != nil {
		return respondError(c, repository.Invalid("poster", "no file was submitted"))
	}
	f, err := fh.Open()
	if err != nil {
		return respondError(c, err)
	}
	defer f.Close()

	p, err := h.Images.SetPlayPoster(c.Request().Context(), id, fh.Filename, f)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, view.PlayImage{ID: p.ID, Poster: p.Poster})
}

// ----- theatre halls -----

type hallReq struct {
	Name       string `json:"name" validate:"required,max=63"`
	Rows       int    `json:"rows" validate:"required,min=1,max=100"`
	SeatsInRow int    `json:"seats_in_row" validate:"required,min=1,max=100"`
}

// ListHalls handles GET /theatre-halls.
func (h *CatalogHandler) ListHalls(c echo.Context) error {
	page, err := queryPage(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	items, n, err := h.Halls.List(ctx, page)
	if err != nil {
		return respondError(c, err)
	}
	return list(c, h.Paginator, page, n, items)
}

// GetHall handles GET /theatre-halls/:id.
func (h *CatalogHandler) GetHall(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	hall, err := h.Halls.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return one(c, http.StatusOK, *hall, view.Retrieve)
}

// CreateHall handles POST /theatre-halls.
func (h *CatalogHandler) CreateHall(c echo.Context) error {
	var req hallReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	hall := model.TheatreHall{Name: strings.TrimSpace(req.Name), Rows: req.Rows, SeatsInRow: req.SeatsInRow}
	if err := h.Halls.Create(ctx, &hall); err != nil {
		return respondError(c, err)
	}
	return one(c, http.StatusCreated, hall, view.Write)
}

// UpdateHall handles PUT and PATCH /theatre-halls/:id.
func (h *CatalogHandler) UpdateHall(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	var req hallReq
	if c.Request().Method == http.MethodPatch {
		cur, err := h.Halls.Get(ctx, id)
		if err != nil {
			return respondError(c, err)
		}
		req = hallReq{Name: cur.Name, Rows: cur.Rows, SeatsInRow: cur.SeatsInRow}
	}
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	hall := model.TheatreHall{ID: id, Name: strings.TrimSpace(req.Name), Rows: req.Rows, SeatsInRow: req.SeatsInRow}
	if err := h.Halls.Update(ctx, &hall); err != nil {
		return respondError(c, err)
	}
	return one(c, http.StatusOK, hall, view.Write)
}

// DeleteHall handles DELETE /theatre-halls/:id.
func (h *CatalogHandler) DeleteHall(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Halls.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
