package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// outcomeError is returned from inside a transaction for a business outcome
// rather than a database failure. DB metrics do not count it as an error.
type outcomeError struct{ msg string }

func (e *outcomeError) Error() string  { return e.msg }
func (e *outcomeError) Rejected() bool { return true }

var (
	ErrDuplicate = errors.New("duplicate record")

	ErrSlotTaken        error = &outcomeError{"time slot already booked"}
	ErrEquipmentInUse   error = &outcomeError{"equipment has bookings"}
	ErrEquipmentMissing error = &outcomeError{"equipment does not exist"}
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgExclusionViolation  = "23P01"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if pgCode(err) == pgUniqueViolation {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if pgCode(err) == pgForeignKeyViolation {
		return true
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func isExclusionViolation(err error) bool {
	return err != nil && pgCode(err) == pgExclusionViolation
}
