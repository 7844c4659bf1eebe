package persistence

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pos/backend/internal/domain/shared"
	"gorm.io/gorm"
)

const (
	pgUndefinedColumn = "42703"
	pgUniqueViolation = "23505"
	pgUndefinedTable  = "42P01"
)

// isMissingColumn reports whether err says the named column does not exist.
func isMissingColumn(err error, column string) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUndefinedColumn && strings.Contains(pgErr.Message, column)
	}
	msg := err.Error()
	return strings.Contains(msg, column) &&
		(strings.Contains(msg, "no such column") || strings.Contains(msg, "does not exist"))
}

// isMissingTable reports whether err says a table does not exist.
func isMissingTable(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUndefinedTable
	}
	return strings.Contains(err.Error(), "no such table")
}

// isUniqueViolation reports duplicate key errors from either driver.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// translate maps driver errors onto domain errors where one applies.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case isUniqueViolation(err):
		return &shared.DomainError{Code: shared.CodeAlreadyExists, Message: "duplicate key", Err: err}
	}
	return err
}
