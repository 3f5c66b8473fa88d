package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/theatre-reservation/internal/model"
)

// ReservationRepo provides persistence for reservations and the tickets
// they own.  Writes happen inside a transaction supplied by the booking
// service; reads are always scoped to one user.  All timestamps are
// stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// CreateTx inserts a new reservation within the scope of an existing
// transaction and sets its ID and CreatedAt.  The caller must commit or
// rollback the transaction.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	result, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (user_id, created_at) VALUES (?, ?)`, res.UserID, res.CreatedAt)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// CreateTicketsBulkTx inserts every ticket in a single statement and
// returns the stored rows in insertion order.  A seat that is already
// claimed fails the whole statement with a ConflictError.
func (r *ReservationRepo) CreateTicketsBulkTx(ctx context.Context, tx *sql.Tx, reservationID uint64, tickets []model.Ticket) ([]model.Ticket, error) {
	if len(tickets) == 0 {
		return nil, nil
	}
	var b strings.Builder
	b.WriteString(`INSERT INTO tickets (seat_row, seat_number, performance_id, reservation_id) VALUES `)
	args := make([]any, 0, len(tickets)*4)
	for i, t := range tickets {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, ?, ?)")
		args = append(args, t.Row, t.Seat, t.PerformanceID, reservationID)
	}
	if _, err := tx.ExecContext(ctx, b.String(), args...); err != nil {
		switch {
		case isUniqueViolation(err):
			return nil, Conflict(MsgSeatTaken)
		case isForeignKeyViolation(err):
			return nil, Invalid("performance", MsgNoSuchPerformance)
		case isCheckViolation(err):
			return nil, Invalid("tickets", MsgOutOfRange)
		}
		return nil, err
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, seat_row, seat_number, performance_id, reservation_id
		   FROM tickets WHERE reservation_id = ? ORDER BY id`, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Ticket, 0, len(tickets))
	for rows.Next() {
		var t model.Ticket
		if err := rows.Scan(&t.ID, &t.Row, &t.Seat, &t.PerformanceID, &t.ReservationID); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListByUser returns one page of the user's reservations, newest first.
// Tickets carry ids and coordinates only.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64, p Page) ([]model.Reservation, int, error) {
	n, err := count(ctx, r.db, p, `SELECT COUNT(*) FROM reservations WHERE user_id = ?`, userID)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.user_id, u.email, r.created_at
		   FROM reservations r JOIN users u ON u.id = r.user_id
		  WHERE r.user_id = ?
		  ORDER BY r.created_at DESC, r.id DESC LIMIT ? OFFSET ?`, userID, p.Limit(), p.Offset())
	if err != nil {
		return nil, 0, err
	}
	list := make([]model.Reservation, 0, PageSize)
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(&res.ID, &res.UserID, &res.UserEmail, &res.CreatedAt); err != nil {
			rows.Close()
			return nil, 0, err
		}
		res.CreatedAt = res.CreatedAt.UTC()
		res.Tickets = []model.Ticket{}
		list = append(list, res)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.attachTickets(ctx, list, false); err != nil {
		return nil, 0, err
	}
	return list, n, nil
}

// GetForUser returns the reservation only if it belongs to userID;
// otherwise ErrNotFound.  Tickets carry their full performance.
func (r *ReservationRepo) GetForUser(ctx context.Context, id, userID uint64) (*model.Reservation, error) {
	var (
		res model.Reservation
		u   model.User
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT r.id, r.user_id, r.created_at, u.id, u.email, u.first_name, u.last_name, u.is_staff
		   FROM reservations r JOIN users u ON u.id = r.user_id
		  WHERE r.id = ? AND r.user_id = ?`, id, userID).
		Scan(&res.ID, &res.UserID, &res.CreatedAt, &u.ID, &u.Email, &u.FirstName, &u.LastName, &u.IsStaff)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	res.CreatedAt = res.CreatedAt.UTC()
	res.UserEmail = u.Email
	res.User = &u
	res.Tickets = []model.Ticket{}
	list := []model.Reservation{res}
	if err := r.attachTickets(ctx, list, true); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// attachTickets loads the tickets of every reservation in list.  With
// detail set each ticket also carries its performance, play cast and
// hall.
func (r *ReservationRepo) attachTickets(ctx context.Context, list []model.Reservation, detail bool) error {
	if len(list) == 0 {
		return nil
	}
	index := make(map[uint64]int, len(list))
	ids := make([]uint64, len(list))
	for i := range list {
		index[list[i].ID] = i
		ids[i] = list[i].ID
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, seat_row, seat_number, performance_id, reservation_id
		   FROM tickets WHERE reservation_id IN (`+placeholders(len(ids))+`) ORDER BY id`, idArgs(ids)...)
	if err != nil {
		return err
	}
	var perfIDs []uint64
	for rows.Next() {
		var t model.Ticket
		if err := rows.Scan(&t.ID, &t.Row, &t.Seat, &t.PerformanceID, &t.ReservationID); err != nil {
			rows.Close()
			return err
		}
		i := index[t.ReservationID]
		list[i].Tickets = append(list[i].Tickets, t)
		perfIDs = append(perfIDs, t.PerformanceID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if !detail {
		return nil
	}

	perfs, err := loadPerformances(ctx, r.db, perfIDs, true)
	if err != nil {
		return err
	}
	for i := range list {
		for j := range list[i].Tickets {
			if pf, ok := perfs[list[i].Tickets[j].PerformanceID]; ok {
				pf := pf
				list[i].Tickets[j].Performance = &pf
			}
		}
	}
	return nil
}
