// This file implements the Backend: connection setup, schema creation and
// transaction scoping shared by the story and criteria tables.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/stories/pkg/types"
)

// DatabaseFile is the name of the SQLite file created inside DataDir.
const DatabaseFile = "stories.db"

// timeLayout stores timestamps as fixed-width UTC text so that they round
// trip exactly and sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Compile-time interface check: Backend must implement Store.
var _ types.Store = (*Backend)(nil)

// querier is the subset of *sql.DB and *sql.Tx used by the tables.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Backend implements types.Store over a SQLite database. A Backend returned
// by Open owns the connection pool; the Backend handed to a WithTx closure
// shares the pool and routes every statement through one transaction.
type Backend struct {
	db   *sql.DB
	tx   *sql.Tx
	path string

	closeOnce sync.Once

	stories  *storiesTable
	criteria *criteriaTable
}

// Open creates DataDir if needed, opens DataDir/stories.db, verifies that
// foreign keys are enforced and applies the schema.
func Open(ctx context.Context, config types.Config) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dataDir, DatabaseFile)
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite database: %w", err)
	}
	if err := ensureForeignKeysEnabled(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := applySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return newBackend(db, nil, path), nil
}

func newBackend(db *sql.DB, tx *sql.Tx, path string) *Backend {
	b := &Backend{db: db, tx: tx, path: path}
	b.stories = &storiesTable{backend: b}
	b.criteria = &criteriaTable{backend: b}
	return b
}

// dsn builds the modernc connection string. Writers take the lock at BEGIN
// so concurrent transactions queue on busy_timeout instead of failing on
// upgrade.
func dsn(path string) string {
	pragmas := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_pragma=journal_mode(WAL)",
		"_txlock=immediate",
	}
	return "file:" + path + "?" + strings.Join(pragmas, "&")
}

func ensureForeignKeysEnabled(ctx context.Context, db *sql.DB) error {
	var enabled int
	if err := db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled); err != nil {
		return fmt.Errorf("checking sqlite foreign key pragma: %w", err)
	}
	if enabled != 1 {
		return fmt.Errorf("sqlite foreign keys are disabled")
	}
	return nil
}

func applySchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	for _, stmt := range indexDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}

// Path returns the database file path.
func (b *Backend) Path() string {
	return b.path
}

// Stories returns the story repository bound to this Backend's scope.
func (b *Backend) Stories() types.StoryRepository {
	return b.stories
}

// Criteria returns the criteria repository bound to this Backend's scope.
func (b *Backend) Criteria() types.CriteriaRepository {
	return b.criteria
}

// WithTx runs fn in a transaction. fn receives a Backend whose repositories
// use that transaction; it commits when fn returns nil and rolls back
// otherwise. Nested calls reuse the open transaction.
func (b *Backend) WithTx(ctx context.Context, fn func(tx types.Store) error) error {
	if b.tx != nil {
		return fn(b)
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(newBackend(b.db, tx, b.path)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Close releases the connection pool. Close is idempotent; closing a
// transaction-scoped Backend is a no-op.
func (b *Backend) Close() error {
	if b.tx != nil {
		return nil
	}
	var err error
	b.closeOnce.Do(func() {
		err = b.db.Close()
	})
	return err
}

// q returns the handle statements run against in this scope.
func (b *Backend) q() querier {
	if b.tx != nil {
		return b.tx
	}
	return b.db
}

// atomic runs fn inside a transaction, joining the open one when the
// Backend is already transaction-scoped.
func (b *Backend) atomic(ctx context.Context, fn func(q querier) error) error {
	if b.tx != nil {
		return fn(b.tx)
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// likePattern turns a search query into a substring LIKE pattern in which
// % and _ match literally. Use with ESCAPE '\'.
func likePattern(query string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(query) + "%"
}
