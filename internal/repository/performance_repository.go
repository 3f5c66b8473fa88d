package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/theatre-reservation/internal/model"
)

// PerformanceRepo stores performances.  Reads join the play and hall so
// list and detail views can be rendered from one result.
type PerformanceRepo struct {
	db *sql.DB
}

// NewPerformanceRepo returns a PerformanceRepo bound to db.
func NewPerformanceRepo(db *sql.DB) *PerformanceRepo { return &PerformanceRepo{db: db} }

// PerformanceFilter narrows List.  Zero values disable a condition.
// ShowFrom/ShowTo is a half-open window [ShowFrom, ShowTo).
type PerformanceFilter struct {
	PlayID   uint64
	HallID   uint64
	ShowFrom time.Time
	ShowTo   time.Time
}

// ShowTimeWindow parses a show_time query value.  A bare date
// (2006-01-02) selects that whole UTC day; an RFC3339 instant selects
// that second.
func ShowTimeWindow(v string) (from, to time.Time, err error) {
	v = strings.TrimSpace(v)
	if d, err := time.Parse(time.DateOnly, v); err == nil {
		return d, d.Add(24 * time.Hour), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, time.Time{}, Invalid("show_time", "expected YYYY-MM-DD or RFC3339")
	}
	t = t.UTC().Truncate(time.Second)
	return t, t.Add(time.Second), nil
}

func (f PerformanceFilter) where() (string, []any) {
	var (
		parts []string
		args  []any
	)
	if f.PlayID != 0 {
		parts = append(parts, "pf.play_id = ?")
		args = append(args, f.PlayID)
	}
	if f.HallID != 0 {
		parts = append(parts, "pf.theatre_hall_id = ?")
		args = append(args, f.HallID)
	}
	if !f.ShowFrom.IsZero() {
		parts = append(parts, "pf.show_time >= ?", "pf.show_time < ?")
		args = append(args, f.ShowFrom.UTC(), f.ShowTo.UTC())
	}
	if len(parts) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

const performanceSelect = `SELECT pf.id, pf.play_id, pf.theatre_hall_id, pf.show_time,
       p.title, p.description, p.poster,
       h.name, h.seat_rows, h.seats_in_row
  FROM performances pf
  JOIN plays p ON p.id = pf.play_id
  JOIN theatre_halls h ON h.id = pf.theatre_hall_id`

func scanPerformance(s interface{ Scan(...any) error }) (model.Performance, error) {
	var (
		pf     model.Performance
		pl     model.Play
		h      model.TheatreHall
		desc   sql.NullString
		poster sql.NullString
	)
	err := s.Scan(&pf.ID, &pf.PlayID, &pf.HallID, &pf.ShowTime,
		&pl.Title, &desc, &poster,
		&h.Name, &h.Rows, &h.SeatsInRow)
	if err != nil {
		return pf, err
	}
	pl.ID, h.ID = pf.PlayID, pf.HallID
	pl.Description = desc.String
	if poster.Valid {
		pl.Poster = &poster.String
	}
	pf.ShowTime = pf.ShowTime.UTC()
	pf.Play, pf.Hall = &pl, &h
	return pf, nil
}

// List returns one page of performances ordered by show time.
func (r *PerformanceRepo) List(ctx context.Context, f PerformanceFilter, p Page) ([]model.Performance, int, error) {
	where, args := f.where()
	n, err := count(ctx, r.db, p, `SELECT COUNT(*) FROM performances pf`+where, args...)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		performanceSelect+where+` ORDER BY pf.show_time, pf.id LIMIT ? OFFSET ?`,
		append(args, p.Limit(), p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Performance, 0, PageSize)
	for rows.Next() {
		pf, err := scanPerformance(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, pf)
	}
	return out, n, rows.Err()
}

// Get returns a performance with its play (including actor and genre
// associations) and hall, or ErrNotFound.
func (r *PerformanceRepo) Get(ctx context.Context, id uint64) (*model.Performance, error) {
	pf, err := scanPerformance(r.db.QueryRowContext(ctx, performanceSelect+` WHERE pf.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	plays := []model.Play{*pf.Play}
	if err := loadPlayAssociations(ctx, r.db, plays); err != nil {
		return nil, err
	}
	pf.Play = &plays[0]
	return &pf, nil
}

// Create inserts pf.  Unknown play or hall ids yield a ValidationError.
func (r *PerformanceRepo) Create(ctx context.Context, pf *model.Performance) error {
	if err := r.checkRefs(ctx, pf); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO performances (play_id, theatre_hall_id, show_time) VALUES (?, ?, ?)`,
		pf.PlayID, pf.HallID, pf.ShowTime.UTC())
	if err != nil {
		return performanceWriteError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	pf.ID = uint64(id)
	return nil
}

// Update overwrites play, hall and show time of pf.ID.
func (r *PerformanceRepo) Update(ctx context.Context, pf *model.Performance) error {
	if err := r.checkRefs(ctx, pf); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE performances SET play_id = ?, theatre_hall_id = ?, show_time = ? WHERE id = ?`,
		pf.PlayID, pf.HallID, pf.ShowTime.UTC(), pf.ID)
	if err != nil {
		return performanceWriteError(err)
	}
	return requireAffected(res)
}

// Delete removes a performance and, by cascade, its tickets.
func (r *PerformanceRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM performances WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *PerformanceRepo) checkRefs(ctx context.Context, pf *model.Performance) error {
	for _, ref := range []struct {
		field, table string
		id           uint64
	}{
		{"play", "plays", pf.PlayID},
		{"theatre_hall", "theatre_halls", pf.HallID},
	} {
		var one int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM `+ref.table+` WHERE id = ?`, ref.id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return Invalid(ref.field, "unknown id")
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func performanceWriteError(err error) error {
	if isForeignKeyViolation(err) {
		return Invalid("performance", "unknown play or theatre hall")
	}
	return err
}

// HallsTx returns the hall of every listed performance, keyed by
// performance id.  Ids that do not exist are absent from the map.
func (r *PerformanceRepo) HallsTx(ctx context.Context, tx *sql.Tx, ids []uint64) (map[uint64]model.TheatreHall, error) {
	out := make(map[uint64]model.TheatreHall, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	q := fmt.Sprintf(`SELECT pf.id, h.id, h.name, h.seat_rows, h.seats_in_row
  FROM performances pf JOIN theatre_halls h ON h.id = pf.theatre_hall_id
 WHERE pf.id IN (%s)`, placeholders(len(ids)))
	rows, err := tx.QueryContext(ctx, q, idArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			pfID uint64
			h    model.TheatreHall
		)
		if err := rows.Scan(&pfID, &h.ID, &h.Name, &h.Rows, &h.SeatsInRow); err != nil {
			return nil, err
		}
		out[pfID] = h
	}
	return out, rows.Err()
}

// loadPerformances returns the listed performances keyed by id.  When
// withCast is set each play also carries its actors and genres.
func loadPerformances(ctx context.Context, q queryer, ids []uint64, withCast bool) (map[uint64]model.Performance, error) {
	out := make(map[uint64]model.Performance, len(ids))
	ids = dedupe(ids)
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := q.QueryContext(ctx,
		performanceSelect+` WHERE pf.id IN (`+placeholders(len(ids))+`)`, idArgs(ids)...)
	if err != nil {
		return nil, err
	}
	var list []model.Performance
	for rows.Next() {
		pf, err := scanPerformance(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		list = append(list, pf)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if withCast {
		plays := make([]model.Play, 0, len(list))
		seen := make(map[uint64]int)
		for _, pf := range list {
			if _, ok := seen[pf.PlayID]; !ok {
				seen[pf.PlayID] = len(plays)
				plays = append(plays, *pf.Play)
			}
		}
		if err := loadPlayAssociations(ctx, q, plays); err != nil {
			return nil, err
		}
		for i := range list {
			pl := plays[seen[list[i].PlayID]]
			list[i].Play = &pl
		}
	}
	for _, pf := range list {
		out[pf.ID] = pf
	}
	return out, nil
}
