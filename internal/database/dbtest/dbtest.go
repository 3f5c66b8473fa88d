// Package dbtest opens throwaway SQLite databases migrated with the
// production schema for use in tests.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/iliyamo/theatre-reservation/internal/database"
)

var seq atomic.Int64

// New returns a fresh in-memory database.  It is closed when the test ends.
func New(t testing.TB) *sql.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	db, err := database.OpenSQLite(dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.NewMigrator(db, "sqlite3").Run(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
