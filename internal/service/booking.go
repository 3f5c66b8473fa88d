// Package service holds the operations that span several repositories:
// booking a reservation, storing uploaded images and announcing
// bookings on the message queue.
package service

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/iliyamo/theatre-reservation/internal/model"
	"github.com/iliyamo/theatre-reservation/internal/queue"
	"github.com/iliyamo/theatre-reservation/internal/repository"
)

// Seat coordinates accepted by any hall.
const (
	MinCoordinate = 1
	MaxCoordinate = 100
)

// TicketRequest is one seat asked for in a booking.
type TicketRequest struct {
	Row           int
	Seat          int
	PerformanceID uint64
}

// Booking creates reservations.  Every ticket of a request is written in
// one transaction: either the reservation and all its tickets exist
// afterwards, or nothing does.
type Booking struct {
	db           *sql.DB
	reservations *repository.ReservationRepo
	performances *repository.PerformanceRepo
	publisher    Publisher

	// EnforceHallCapacity also bounds row and seat by the hall layout.
	EnforceHallCapacity bool
}

// NewBooking wires a Booking.  A nil publisher disables events.
func NewBooking(db *sql.DB, reservations *repository.ReservationRepo, performances *repository.PerformanceRepo, pub Publisher) *Booking {
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Booking{
		db:                  db,
		reservations:        reservations,
		performances:        performances,
		publisher:           pub,
		EnforceHallCapacity: true,
	}
}

type seatKey struct {
	performance uint64
	row, seat   int
}

// Create books tickets for userID.  Failures are a
// *repository.ValidationError (empty request, coordinate out of range,
// unknown performance) or a *repository.ConflictError (seat requested
// twice or already taken).  Concurrent requests for the same seat end
// with exactly one success; the unique key on tickets decides.
func (b *Booking) Create(ctx context.Context, userID uint64, reqs []TicketRequest) (*model.Reservation, error) {
	if len(reqs) == 0 {
		return nil, repository.Invalid("tickets", repository.MsgTicketsRequired)
	}
	seen := make(map[seatKey]bool, len(reqs))
	perfIDs := make([]uint64, 0, len(reqs))
	for _, r := range reqs {
		if r.Row < MinCoordinate || r.Row > MaxCoordinate || r.Seat < MinCoordinate || r.Seat > MaxCoordinate {
			return nil, repository.Invalid("tickets", repository.MsgOutOfRange)
		}
		k := seatKey{r.PerformanceID, r.Row, r.Seat}
		if seen[k] {
			return nil, repository.Conflict(repository.MsgSeatTaken)
		}
		seen[k] = true
		perfIDs = append(perfIDs, r.PerformanceID)
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	halls, err := b.performances.HallsTx(ctx, tx, perfIDs)
	if err != nil {
		return nil, err
	}
	for _, r := range reqs {
		h, ok := halls[r.PerformanceID]
		if !ok {
			return nil, repository.Invalid("performance", repository.MsgNoSuchPerformance)
		}
		if b.EnforceHallCapacity && (r.Row > h.Rows || r.Seat > h.SeatsInRow) {
			return nil, repository.Invalid("tickets", repository.MsgOutOfRange)
		}
	}

	res := &model.Reservation{UserID: userID, CreatedAt: time.Now().UTC()}
	if err := b.reservations.CreateTx(ctx, tx, res); err != nil {
		return nil, err
	}
	tickets := make([]model.Ticket, len(reqs))
	for i, r := range reqs {
		tickets[i] = model.Ticket{Row: r.Row, Seat: r.Seat, PerformanceID: r.PerformanceID}
	}
	res.Tickets, err = b.reservations.CreateTicketsBulkTx(ctx, tx, res.ID, tickets)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	b.announce(ctx, res)
	return res, nil
}

// announce publishes the booking.  The reservation is already committed,
// so a broker failure is logged and otherwise ignored.
func (b *Booking) announce(ctx context.Context, res *model.Reservation) {
	ev := queue.ReservationCreatedEvent{
		ReservationID: res.ID,
		UserID:        res.UserID,
		CreatedAt:     res.CreatedAt.Format(time.RFC3339),
		Tickets:       make([]queue.TicketRef, 0, len(res.Tickets)),
	}
	for _, t := range res.Tickets {
		ev.Tickets = append(ev.Tickets, queue.TicketRef{TicketID: t.ID, PerformanceID: t.PerformanceID, Row: t.Row, Seat: t.Seat})
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := b.publisher.PublishReservationCreated(pubCtx, ev); err != nil {
		log.Printf("booking: publish reservation %d: %v", res.ID, err)
	}
}
