// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// The driver is modernc.org/sqlite, a pure Go translation of SQLite, used
// through database/sql.
//
// CONNECTIONS AND TRANSACTIONS:
// The relation service relies on WithTx to make "check edge, write edge,
// adjust counter" atomic. Two things make that hold here:
//
//   - ":memory:" databases are private to one connection, so the pool is
//     capped at a single connection. Every transaction then runs alone.
//   - file databases open with _txlock=immediate, so BEGIN takes the write
//     lock up front and two concurrent toggles queue instead of both reading
//     "absent". busy_timeout makes the second writer wait rather than fail.
//
// Foreign keys are enabled per connection through the DSN, because PRAGMA
// statements only affect the connection they run on.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/conduit/internal/repository"
)

const memoryPath = ":memory:"

// querier is the subset of *sql.DB and *sql.Tx the repositories use.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// store runs repository queries against either the pool or a transaction.
type store struct {
	q   querier
	now func() time.Time
}

// DB wraps a sql.DB connection pool and provides repository methods.
// It implements repository.Database.
type DB struct {
	*store
	conn *sql.DB
}

var _ repository.Database = (*DB)(nil)

// New opens a SQLite database and creates the schema if needed.
//
// dbPath examples:
//   - "data/conduit.db"  → file-based database (persistent)
//   - ":memory:"         → in-memory database (tests; lost on Close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", buildDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if dbPath == memoryPath {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{
		store: &store{q: conn, now: time.Now},
		conn:  conn,
	}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

func buildDSN(dbPath string) string {
	params := []string{"_pragma=foreign_keys(1)"}
	if dbPath != memoryPath {
		params = append(params,
			"_pragma=journal_mode(WAL)",
			"_pragma=busy_timeout(5000)",
			"_txlock=immediate",
		)
	}
	return dbPath + "?" + strings.Join(params, "&")
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// WithTx runs fn inside a transaction. It commits when fn returns nil and
// rolls back on an error or a panic.
func (db *DB) WithTx(ctx context.Context, fn func(tx repository.Store) error) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&store{q: tx, now: db.now}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("sqlite: rolling back: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// migrate creates the schema. Every statement is idempotent.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			username   TEXT NOT NULL UNIQUE,
			email      TEXT NOT NULL UNIQUE,
			password   TEXT NOT NULL DEFAULT '',
			bio        TEXT NOT NULL DEFAULT '',
			image      TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// tag_list is the comma-joined tag sequence, in author order.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS articles (
			id              TEXT PRIMARY KEY,
			slug            TEXT NOT NULL UNIQUE,
			title           TEXT NOT NULL,
			description     TEXT NOT NULL DEFAULT '',
			body            TEXT NOT NULL DEFAULT '',
			tag_list        TEXT NOT NULL DEFAULT '',
			favorites_count INTEGER NOT NULL DEFAULT 0 CHECK (favorites_count >= 0),
			author_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at      INTEGER NOT NULL,
			updated_at      INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_articles_created_at ON articles(created_at DESC, id DESC);
		CREATE INDEX IF NOT EXISTS idx_articles_author_id ON articles(author_id);
	`)
	if err != nil {
		return fmt.Errorf("creating articles table: %w", err)
	}

	// Deleting an article drops its favorite edges with it.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS favorites (
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			article_id TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (user_id, article_id)
		);
		CREATE INDEX IF NOT EXISTS idx_favorites_article_id ON favorites(article_id);
	`)
	if err != nil {
		return fmt.Errorf("creating favorites table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS follows (
			follower_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			following_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at   INTEGER NOT NULL,
			PRIMARY KEY (follower_id, following_id),
			CHECK (follower_id <> following_id)
		);
		CREATE INDEX IF NOT EXISTS idx_follows_following_id ON follows(following_id);
	`)
	if err != nil {
		return fmt.Errorf("creating follows table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY
// constraint.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlitedriver.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		// Primary result code only: fall back to the message.
		return strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed")
	}
	return false
}

// isForeignKeyViolation reports whether err came from a REFERENCES constraint.
func isForeignKeyViolation(err error) bool {
	var sqliteErr *sqlitedriver.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY ||
		strings.Contains(sqliteErr.Error(), "FOREIGN KEY constraint failed")
}

func isCheckViolation(err error) bool {
	var sqliteErr *sqlitedriver.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_CHECK ||
		strings.Contains(sqliteErr.Error(), "CHECK constraint failed")
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toUnix(t time.Time) int64 {
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
