package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/theatre-reservation/internal/model"
)

// ActorRepo provides list, create and photo updates for actors.
type ActorRepo struct {
	db *sql.DB
}

// NewActorRepo returns an ActorRepo bound to db.
func NewActorRepo(db *sql.DB) *ActorRepo { return &ActorRepo{db: db} }

const actorColumns = `id, first_name, last_name, photo`

func scanActor(s interface{ Scan(...any) error }) (model.Actor, error) {
	var (
		a     model.Actor
		photo sql.NullString
	)
	if err := s.Scan(&a.ID, &a.FirstName, &a.LastName, &photo); err != nil {
		return a, err
	}
	if photo.Valid {
		a.Photo = &photo.String
	}
	return a, nil
}

// List returns one page of actors ordered by id.
func (r *ActorRepo) List(ctx context.Context, p Page) ([]model.Actor, int, error) {
	n, err := count(ctx, r.db, p, `SELECT COUNT(*) FROM actors`)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+actorColumns+` FROM actors ORDER BY id LIMIT ? OFFSET ?`, p.Limit(), p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Actor, 0, PageSize)
	for rows.Next() {
		a, err := scanActor(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, n, rows.Err()
}

// Get returns the actor with id or ErrNotFound.
func (r *ActorRepo) Get(ctx context.Context, id uint64) (*model.Actor, error) {
	a, err := scanActor(r.db.QueryRowContext(ctx, `SELECT `+actorColumns+` FROM actors WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a and sets its ID.  Photo is ignored; it is only set
// through SetPhoto.
func (r *ActorRepo) Create(ctx context.Context, a *model.Actor) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO actors (first_name, last_name) VALUES (?, ?)`, a.FirstName, a.LastName)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	a.Photo = nil
	return nil
}

// SetPhoto stores the public URL of the actor's photo.
func (r *ActorRepo) SetPhoto(ctx context.Context, id uint64, url string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE actors SET photo = ? WHERE id = ?`, url, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// requireAffected turns an UPDATE/DELETE that matched nothing into
// ErrNotFound.  The MySQL DSN sets clientFoundRows so an UPDATE writing
// identical values still counts as matched.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
