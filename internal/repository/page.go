package repository

import (
	"context"
	"database/sql"
)

// PageSize is the fixed number of results per list page.
const PageSize = 10

// Page selects one page of a list query.  Number is 1-based; zero is
// treated as the first page.
type Page struct {
	Number int
}

func (p Page) number() int {
	if p.Number < 1 {
		return 1
	}
	return p.Number
}

// Limit and Offset feed LIMIT ? OFFSET ?.
func (p Page) Limit() int  { return PageSize }
func (p Page) Offset() int { return (p.number() - 1) * PageSize }

// Check returns ErrNotFound when the page lies beyond count.  The first
// page always exists, even for an empty list.
func (p Page) Check(count int) error {
	if p.number() > 1 && p.Offset() >= count {
		return ErrNotFound
	}
	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// count runs a COUNT(*) query and validates p against it.
func count(ctx context.Context, q queryer, p Page, query string, args ...any) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	if err := p.Check(n); err != nil {
		return 0, err
	}
	return n, nil
}

// placeholders returns "?,?,?" for n values.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, 2*n-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}

func idArgs(ids []uint64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
