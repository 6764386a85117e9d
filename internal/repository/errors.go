// Package repository holds the SQL data access for users, halls, resources,
// reservations, feedback and notifications.  Queries use "?" placeholders and
// store instants as unix milliseconds so the same statements run on MySQL and
// SQLite.
//
// Errors leaving this package are translated into apperr kinds: a missing
// row becomes NotFound, a unique-key violation becomes Conflict and a
// foreign-key violation on delete becomes Conflict.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/hall-reservation/internal/apperr"
)

// ErrForbidden and ErrConflict are re-exported for callers that only import
// this package.
var (
	ErrForbidden = apperr.ErrForbidden
	ErrConflict  = apperr.ErrConflict
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside a transaction, committing when fn returns nil.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// notFound maps sql.ErrNoRows to a NotFound error naming what was missing.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(what + " not found")
	}
	return err
}

// isDuplicate reports a unique-key violation (MySQL 1062, SQLite UNIQUE).
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	v := err.Error()
	return strings.Contains(v, "1062") || strings.Contains(v, "UNIQUE constraint failed")
}

// isForeignKeyViolation reports a row still referenced by another table
// (MySQL 1451, SQLite FOREIGN KEY).
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	v := err.Error()
	return strings.Contains(v, "1451") || strings.Contains(v, "FOREIGN KEY constraint failed")
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func pageArgs(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return skip, limit
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
