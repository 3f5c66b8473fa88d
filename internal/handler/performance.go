package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theatre-reservation/internal/model"
	"github.com/iliyamo/theatre-reservation/internal/repository"
	"github.com/iliyamo/theatre-reservation/internal/view"
)

// PerformanceHandler serves /performances.
type PerformanceHandler struct {
	Paginator
	Performances *repository.PerformanceRepo
}

func NewPerformanceHandler(p Paginator, perfs *repository.PerformanceRepo) *PerformanceHandler {
	if perfs == nil {
		panic("nil repository passed to NewPerformanceHandler")
	}
	return &PerformanceHandler{Paginator: p, Performances: perfs}
}

// performanceReq accepts show_time as RFC3339.  It is optional on
// create, where it defaults to the current time.
type performanceReq struct {
	Play        uint64     `json:"play" validate:"required"`
	TheatreHall uint64     `json:"theatre_hall" validate:"required"`
	ShowTime    *time.Time `json:"show_time"`
}

// List handles GET /performances with optional ?play=, ?theatre_hall=
// and ?show_time= (a YYYY-MM-DD day or an RFC3339 instant).
func (h *PerformanceHandler) List(c echo.Context) error {
	page, err := queryPage(c)
	if err != nil {
		return respondError(c, err)
	}
	var f repository.PerformanceFilter
	if f.PlayID, err = queryID(c, "play"); err != nil {
		return respondError(c, err)
	}
	if f.HallID, err = queryID(c, "theatre_hall"); err != nil {
		return respondError(c, err)
	}
	if v := c.QueryParam("show_time"); v != "" {
		if f.ShowFrom, f.ShowTo, err = repository.ShowTimeWindow(v); err != nil {
			return respondError(c, err)
		}
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	items, n, err := h.Performances.List(ctx, f, page)
	if err != nil {
		return respondError(c, err)
	}
	return list(c, h.Paginator, page, n, items)
}

// Get handles GET /performances/:id.
func (h *PerformanceHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	pf, err := h.Performances.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return one(c, http.StatusOK, *pf, view.Retrieve)
}

// Create handles POST /performances.
func (h *PerformanceHandler) Create(c echo.Context) error {
	var req performanceReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	pf := model.Performance{PlayID: req.Play, HallID: req.TheatreHall, ShowTime: time.Now().UTC().Truncate(time.Second)}
	if req.ShowTime != nil {
		pf.ShowTime = req.ShowTime.UTC()
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Performances.Create(ctx, &pf); err != nil {
		return respondError(c, err)
	}
	return one(c, http.StatusCreated, pf, view.Write)
}

// Update handles PUT and PATCH /performances/:id.  PUT requires
// show_time; PATCH keeps stored values for absent fields.
func (h *PerformanceHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	var req performanceReq
	if c.Request().Method == http.MethodPatch {
		cur, err := h.Performances.Get(ctx, id)
		if err != nil {
			return respondError(c, err)
		}
		st := cur.ShowTime
		req = performanceReq{Play: cur.PlayID, TheatreHall: cur.HallID, ShowTime: &st}
	}
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	if req.ShowTime == nil {
		return respondError(c, repository.Invalid("show_time", "this field is required"))
	}
	pf := model.Performance{ID: id, PlayID: req.Play, HallID: req.TheatreHall, ShowTime: req.ShowTime.UTC()}
	if err := h.Performances.Update(ctx, &pf); err != nil {
		return respondError(c, err)
	}
	return one(c, http.StatusOK, pf, view.Write)
}

// Delete handles DELETE /performances/:id.  Tickets of the performance
// are removed with it.
func (h *PerformanceHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Performances.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
