package repository // repository holds data access logic for domain entities

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/theatre-reservation/internal/model"
)

// HallRepo provides CRUD for theatre halls.
type HallRepo struct {
	db *sql.DB // db is the underlying database connection
}

// NewHallRepo constructs a HallRepo with the given DB handle.
func NewHallRepo(db *sql.DB) *HallRepo {
	return &HallRepo{db: db}
}

const hallColumns = `id, name, seat_rows, seats_in_row`

// List returns one page of halls ordered by name.
func (r *HallRepo) List(ctx context.Context, p Page) ([]model.TheatreHall, int, error) {
	n, err := count(ctx, r.db, p, `SELECT COUNT(*) FROM theatre_halls`)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+hallColumns+` FROM theatre_halls ORDER BY name, id LIMIT ? OFFSET ?`, p.Limit(), p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.TheatreHall, 0, PageSize)
	for rows.Next() {
		var h model.TheatreHall
		if err := rows.Scan(&h.ID, &h.Name, &h.Rows, &h.SeatsInRow); err != nil {
			return nil, 0, err
		}
		out = append(out, h)
	}
	return out, n, rows.Err()
}

// Get retrieves a hall by its ID.  It returns ErrNotFound when no row is
// found.
func (r *HallRepo) Get(ctx context.Context, id uint64) (*model.TheatreHall, error) {
	var h model.TheatreHall
	err := r.db.QueryRowContext(ctx, `SELECT `+hallColumns+` FROM theatre_halls WHERE id = ?`, id).
		Scan(&h.ID, &h.Name, &h.Rows, &h.SeatsInRow)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// Create inserts h and sets its ID.
func (r *HallRepo) Create(ctx context.Context, h *model.TheatreHall) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO theatre_halls (name, seat_rows, seats_in_row) VALUES (?, ?, ?)`,
		h.Name, h.Rows, h.SeatsInRow)
	if err != nil {
		return hallWriteError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	return nil
}

// Update overwrites every column of the hall identified by h.ID.
func (r *HallRepo) Update(ctx context.Context, h *model.TheatreHall) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE theatre_halls SET name = ?, seat_rows = ?, seats_in_row = ? WHERE id = ?`,
		h.Name, h.Rows, h.SeatsInRow, h.ID)
	if err != nil {
		return hallWriteError(err)
	}
	return requireAffected(res)
}

// Delete removes the hall; performances in it and their tickets cascade.
func (r *HallRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM theatre_halls WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func hallWriteError(err error) error {
	switch {
	case isUniqueViolation(err):
		return Conflict(MsgDuplicateName)
	case isCheckViolation(err):
		return Invalid("rows", MsgOutOfRange)
	}
	return err
}
