// Package repository holds the MySQL access of the gateway server: auth
// users, refresh tokens, roles, profiles and the row-scoped planner tables.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrNotFound is returned when no row matches.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller may not touch a row or
	// column.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is returned when a write violates a unique key.
	ErrConflict = errors.New("duplicate key value violates unique constraint")
	// ErrEmailExists is ErrConflict for the auth users table.
	ErrEmailExists = fmt.Errorf("email already exists: %w", ErrConflict)
)

// QueryError is a malformed read or write: unknown table or column, bad
// operand, missing filter.
type QueryError struct {
	Message string
}

func (e *QueryError) Error() string { return e.Message }

func invalid(format string, args ...any) error {
	return &QueryError{Message: fmt.Sprintf(format, args...)}
}

// MySQL server error numbers.
const (
	erDupEntry      = 1062
	erNoReferenced  = 1452
	erRowReferenced = 1451
)

// translate maps driver errors to the package sentinels.
func translate(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case erDupEntry:
		return fmt.Errorf("%w: %s", ErrConflict, me.Message)
	case erNoReferenced, erRowReferenced:
		return &QueryError{Message: me.Message}
	}
	return err
}
