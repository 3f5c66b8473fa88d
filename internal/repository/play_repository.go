package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/theatre-reservation/internal/model"
)

// PlayRepo stores plays and their actor/genre associations.
type PlayRepo struct {
	db *sql.DB
}

// NewPlayRepo returns a PlayRepo bound to db.
func NewPlayRepo(db *sql.DB) *PlayRepo { return &PlayRepo{db: db} }

// PlayFilter narrows List.  A play matches when it features any of
// ActorIDs or belongs to any of GenreIDs; both empty matches all plays.
type PlayFilter struct {
	ActorIDs []uint64
	GenreIDs []uint64
}

func (f PlayFilter) where() (string, []any) {
	var (
		parts []string
		args  []any
	)
	if len(f.ActorIDs) > 0 {
		parts = append(parts, `p.id IN (SELECT play_id FROM play_actors WHERE actor_id IN (`+placeholders(len(f.ActorIDs))+`))`)
		args = append(args, idArgs(f.ActorIDs)...)
	}
	if len(f.GenreIDs) > 0 {
		parts = append(parts, `p.id IN (SELECT play_id FROM play_genres WHERE genre_id IN (`+placeholders(len(f.GenreIDs))+`))`)
		args = append(args, idArgs(f.GenreIDs)...)
	}
	if len(parts) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(parts, " OR "), args
}

const playColumns = `p.id, p.title, p.description, p.poster`

func scanPlay(s interface{ Scan(...any) error }) (model.Play, error) {
	var (
		p      model.Play
		desc   sql.NullString
		poster sql.NullString
	)
	if err := s.Scan(&p.ID, &p.Title, &desc, &poster); err != nil {
		return p, err
	}
	p.Description = desc.String
	if poster.Valid {
		p.Poster = &poster.String
	}
	return p, nil
}

// List returns one page of plays ordered by title, with actors and
// genres loaded.
func (r *PlayRepo) List(ctx context.Context, f PlayFilter, p Page) ([]model.Play, int, error) {
	where, args := f.where()
	n, err := count(ctx, r.db, p, `SELECT COUNT(*) FROM plays p`+where, args...)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+playColumns+` FROM plays p`+where+` ORDER BY p.title, p.id LIMIT ? OFFSET ?`,
		append(args, p.Limit(), p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	plays := make([]model.Play, 0, PageSize)
	for rows.Next() {
		pl, err := scanPlay(rows)
		if err != nil {
			rows.Close()
			return nil, 0, err
		}
		plays = append(plays, pl)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := loadPlayAssociations(ctx, r.db, plays); err != nil {
		return nil, 0, err
	}
	return plays, n, nil
}

// Get returns a play with its actors and genres, or ErrNotFound.
func (r *PlayRepo) Get(ctx context.Context, id uint64) (*model.Play, error) {
	pl, err := scanPlay(r.db.QueryRowContext(ctx, `SELECT `+playColumns+` FROM plays p WHERE p.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	plays := []model.Play{pl}
	if err := loadPlayAssociations(ctx, r.db, plays); err != nil {
		return nil, err
	}
	return &plays[0], nil
}

// loadPlayAssociations fills Actors and Genres for every play in place.
func loadPlayAssociations(ctx context.Context, q queryer, plays []model.Play) error {
	if len(plays) == 0 {
		return nil
	}
	index := make(map[uint64]int, len(plays))
	ids := make([]uint64, len(plays))
	for i := range plays {
		index[plays[i].ID] = i
		ids[i] = plays[i].ID
		plays[i].Actors = []model.Actor{}
		plays[i].Genres = []model.Genre{}
	}
	in := placeholders(len(ids))

	rows, err := q.QueryContext(ctx,
		`SELECT pa.play_id, a.id, a.first_name, a.last_name, a.photo
		   FROM play_actors pa JOIN actors a ON a.id = pa.actor_id
		  WHERE pa.play_id IN (`+in+`) ORDER BY a.id`, idArgs(ids)...)
	if err != nil {
		return err
	}
	for rows.Next() {
		var (
			playID uint64
			a      model.Actor
			photo  sql.NullString
		)
		if err := rows.Scan(&playID, &a.ID, &a.FirstName, &a.LastName, &photo); err != nil {
			rows.Close()
			return err
		}
		if photo.Valid {
			a.Photo = &photo.String
		}
		i := index[playID]
		plays[i].Actors = append(plays[i].Actors, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q.QueryContext(ctx,
		`SELECT pg.play_id, g.id, g.name
		   FROM play_genres pg JOIN genres g ON g.id = pg.genre_id
		  WHERE pg.play_id IN (`+in+`) ORDER BY g.id`, idArgs(ids)...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			playID uint64
			g      model.Genre
		)
		if err := rows.Scan(&playID, &g.ID, &g.Name); err != nil {
			return err
		}
		i := index[playID]
		plays[i].Genres = append(plays[i].Genres, g)
	}
	return rows.Err()
}

// Create inserts pl with the given associations in one transaction.
// Unknown actor or genre ids yield a ValidationError and nothing is
// written.
func (r *PlayRepo) Create(ctx context.Context, pl *model.Play, actorIDs, genreIDs []uint64) error {
	return r.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO plays (title, description) VALUES (?, ?)`, pl.Title, pl.Description)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		pl.ID = uint64(id)
		return r.replaceAssociations(ctx, tx, pl, actorIDs, genreIDs)
	})
}

// Update overwrites the title, description and both association sets.
func (r *PlayRepo) Update(ctx context.Context, pl *model.Play, actorIDs, genreIDs []uint64) error {
	return r.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE plays SET title = ?, description = ? WHERE id = ?`, pl.Title, pl.Description, pl.ID)
		if err != nil {
			return err
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		return r.replaceAssociations(ctx, tx, pl, actorIDs, genreIDs)
	})
}

func (r *PlayRepo) write(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (r *PlayRepo) replaceAssociations(ctx context.Context, tx *sql.Tx, pl *model.Play, actorIDs, genreIDs []uint64) error {
	actorIDs, genreIDs = dedupe(actorIDs), dedupe(genreIDs)
	if err := requireAll(ctx, tx, "actors", actorIDs); err != nil {
		return err
	}
	if err := requireAll(ctx, tx, "genres", genreIDs); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM play_actors WHERE play_id = ?`, pl.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM play_genres WHERE play_id = ?`, pl.ID); err != nil {
		return err
	}
	if err := insertPairs(ctx, tx, `INSERT INTO play_actors (play_id, actor_id) VALUES `, pl.ID, actorIDs); err != nil {
		return err
	}
	if err := insertPairs(ctx, tx, `INSERT INTO play_genres (play_id, genre_id) VALUES `, pl.ID, genreIDs); err != nil {
		return err
	}

	plays := []model.Play{*pl}
	if err := loadPlayAssociations(ctx, tx, plays); err != nil {
		return err
	}
	pl.Actors, pl.Genres = plays[0].Actors, plays[0].Genres
	return nil
}

// requireAll checks that every id exists in table.  table is one of
// two constants, never user input.
func requireAll(ctx context.Context, tx *sql.Tx, table string, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE id IN (`+placeholders(len(ids))+`)`, idArgs(ids)...).Scan(&n)
	if err != nil {
		return err
	}
	if n != len(ids) {
		return Invalid(table, "unknown id")
	}
	return nil
}

func insertPairs(ctx context.Context, tx *sql.Tx, prefix string, playID uint64, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(prefix)
	args := make([]any, 0, 2*len(ids))
	for i, id := range ids {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?)")
		args = append(args, playID, id)
	}
	_, err := tx.ExecContext(ctx, b.String(), args...)
	return err
}

func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Delete removes a play.  Its performances and their tickets go with
// it through ON DELETE CASCADE.
func (r *PlayRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM plays WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SetPoster stores the public URL of the play's poster.
func (r *PlayRepo) SetPoster(ctx context.Context, id uint64, url string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE plays SET poster = ? WHERE id = ?`, url, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
