package observability

import (
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// rejection is implemented by errors that report a normal query outcome,
// such as a slot already being taken.
type rejection interface {
	Rejected() bool
}

// IsRejection reports whether err is an expected outcome rather than a
// database failure.
func IsRejection(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true
	}
	var r rejection
	return errors.As(err, &r) && r.Rejected()
}

// ObserveDB times fn under the logical operation name op. A nil Prom just
// runs fn.
func (p *Prom) ObserveDB(op string, fn func() error) error {
	if p == nil {
		return fn()
	}
	start := time.Now()
	err := fn()

	status := "ok"
	switch {
	case err == nil:
	case IsRejection(err):
		status = "rejected"
	default:
		status = "error"
		p.DbErrorsTotal.WithLabelValues(op, ClassifyDBErr(err)).Inc()
	}
	p.DbQueryDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	return err
}

func ClassifyDBErr(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return "unique_violation"
		case "23503":
			return "foreign_key_violation"
		case "23P01":
			return "exclusion_violation"
		case "40001":
			return "serialization_failure"
		case "40P01":
			return "deadlock"
		case "57014":
			return "query_canceled"
		default:
			return "pg_" + pgErr.Code
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint"):
		return "unique_violation"
	case strings.Contains(msg, "foreign key"):
		return "foreign_key_violation"
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "busy"):
		return "busy"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "connection"):
		return "connection"
	default:
		return "unknown"
	}
}
