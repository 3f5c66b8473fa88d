package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/theatre-reservation/internal/model"
)

// TicketRepo reads tickets.  Every query is scoped to the reservations
// of one user; tickets are only created through the booking service.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a TicketRepo bound to db.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// ListByUser returns one page of the user's tickets with their
// performance (play title and hall name populated).
func (r *TicketRepo) ListByUser(ctx context.Context, userID uint64, p Page) ([]model.Ticket, int, error) {
	n, err := count(ctx, r.db, p,
		`SELECT COUNT(*) FROM tickets t JOIN reservations r ON r.id = t.reservation_id WHERE r.user_id = ?`, userID)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.seat_row, t.seat_number, t.performance_id, t.reservation_id
		   FROM tickets t JOIN reservations r ON r.id = t.reservation_id
		  WHERE r.user_id = ?
		  ORDER BY t.id LIMIT ? OFFSET ?`, userID, p.Limit(), p.Offset())
	if err != nil {
		return nil, 0, err
	}
	list := make([]model.Ticket, 0, PageSize)
	for rows.Next() {
		var t model.Ticket
		if err := rows.Scan(&t.ID, &t.Row, &t.Seat, &t.PerformanceID, &t.ReservationID); err != nil {
			rows.Close()
			return nil, 0, err
		}
		list = append(list, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := attachPerformances(ctx, r.db, list, false); err != nil {
		return nil, 0, err
	}
	return list, n, nil
}

// GetForUser returns one ticket owned by userID with its full
// performance, or ErrNotFound.
func (r *TicketRepo) GetForUser(ctx context.Context, id, userID uint64) (*model.Ticket, error) {
	var t model.Ticket
	err := r.db.QueryRowContext(ctx,
		`SELECT t.id, t.seat_row, t.seat_number, t.performance_id, t.reservation_id
		   FROM tickets t JOIN reservations r ON r.id = t.reservation_id
		  WHERE t.id = ? AND r.user_id = ?`, id, userID).
		Scan(&t.ID, &t.Row, &t.Seat, &t.PerformanceID, &t.ReservationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	list := []model.Ticket{t}
	if err := attachPerformances(ctx, r.db, list, true); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func attachPerformances(ctx context.Context, q queryer, list []model.Ticket, withCast bool) error {
	ids := make([]uint64, len(list))
	for i := range list {
		ids[i] = list[i].PerformanceID
	}
	perfs, err := loadPerformances(ctx, q, ids, withCast)
	if err != nil {
		return err
	}
	for i := range list {
		if pf, ok := perfs[list[i].PerformanceID]; ok {
			pf := pf
			list[i].Performance = &pf
		}
	}
	return nil
}
