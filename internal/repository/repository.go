// Package repository holds the Postgres persistence adapters. Repositories
// are constructed with an explicit pgx pool and injected into services.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicate maps unique-constraint violations (sku, slug, email,
	// channel name, one review per user).
	ErrDuplicate = errors.New("duplicate key")
	// ErrVersionConflict signals a lost optimistic-concurrency race: the
	// cart was modified between read and write.
	ErrVersionConflict = errors.New("version conflict")
	// ErrInsufficientStock means a guarded stock decrement matched no row.
	ErrInsufficientStock = errors.New("insufficient stock")
)

const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
