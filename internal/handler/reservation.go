package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theatre-reservation/internal/middleware"
	"github.com/iliyamo/theatre-reservation/internal/repository"
	"github.com/iliyamo/theatre-reservation/internal/service"
	"github.com/iliyamo/theatre-reservation/internal/view"
)

// BookingHandler serves reservations and tickets.  Every read is scoped
// to the authenticated caller: another user's reservation is reported
// as not found.
type BookingHandler struct {
	Paginator
	Booking      *service.Booking
	Reservations *repository.ReservationRepo
	Tickets      *repository.TicketRepo
}

// NewBookingHandler constructs a BookingHandler.  All dependencies must
// be non-nil.
func NewBookingHandler(p Paginator, b *service.Booking, res *repository.ReservationRepo, t *repository.TicketRepo) *BookingHandler {
	if b == nil || res == nil || t == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Paginator: p, Booking: b, Reservations: res, Tickets: t}
}

type ticketReq struct {
	Row         int    `json:"row"`
	Seat        int    `json:"seat"`
	Performance uint64 `json:"performance" validate:"required"`
}

type reservationReq struct {
	Tickets []ticketReq `json:"tickets" validate:"dive"`
}

// callerID returns the authenticated user's id.  The permission gate
// guarantees an identity; the check keeps a misrouted handler from
// answering with someone else's data.
func callerID(c echo.Context) (uint64, bool) {
	id := middleware.IdentityFrom(c)
	if id == nil {
		return 0, false
	}
	return id.UserID, true
}

func unauthenticated(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication credentials were not provided"})
}

// CreateReservation handles POST /reservations.  The body is
// {"tickets": [{"row", "seat", "performance"}, ...]}; either every
// ticket is booked or none is.
func (h *BookingHandler) CreateReservation(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return unauthenticated(c)
	}
	var req reservationReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	reqs := make([]service.TicketRequest, len(req.Tickets))
	for i, t := range req.Tickets {
		reqs[i] = service.TicketRequest{Row: t.Row, Seat: t.Seat, PerformanceID: t.Performance}
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := h.Booking.Create(ctx, uid, reqs)
	if err != nil {
		return respondError(c, err)
	}
	return one(c, http.StatusCreated, *res, view.Write)
}

// ListReservations handles GET /reservations, newest first.
func (h *BookingHandler) ListReservations(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return unauthenticated(c)
	}
	page, err := queryPage(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	items, n, err := h.Reservations.ListByUser(ctx, uid, page)
	if err != nil {
		return respondError(c, err)
	}
	return list(c, h.Paginator, page, n, items)
}

// GetReservation handles GET /reservations/:id.
func (h *BookingHandler) GetReservation(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return unauthenticated(c)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := h.Reservations.GetForUser(ctx, id, uid)
	if err != nil {
		return respondError(c, err)
	}
	return one(c, http.StatusOK, *res, view.Retrieve)
}

// ListTickets handles GET /tickets.
func (h *BookingHandler) ListTickets(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return unauthenticated(c)
	}
	page, err := queryPage(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	items, n, err := h.Tickets.ListByUser(ctx, uid, page)
	if err != nil {
		return respondError(c, err)
	}
	return list(c, h.Paginator, page, n, items)
}

// GetTicket handles GET /tickets/:id.
func (h *BookingHandler) GetTicket(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return unauthenticated(c)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	t, err := h.Tickets.GetForUser(ctx, id, uid)
	if err != nil {
		return respondError(c, err)
	}
	return one(c, http.StatusOK, *t, view.Retrieve)
}
