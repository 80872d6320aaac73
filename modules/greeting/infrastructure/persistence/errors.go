package persistence

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iota-uz/greeting-store/modules/greeting/domain/aggregates/greeting"
)

const (
	pgUniqueViolation         = "23505"
	messageIDUniqueConstraint = "message_message_id_key"
)

// DbError is the single error type returned for failures inside a transaction.
// Code and Constraint are set when the cause is a Postgres error.
type DbError struct {
	Op         string
	Message    string
	Code       string
	Constraint string
	Err        error
}

func (e *DbError) Error() string {
	return e.Message
}

func (e *DbError) Unwrap() error {
	return e.Err
}

func (e *DbError) Is(target error) bool {
	return target == greeting.ErrDuplicateMessageID &&
		e.Code == pgUniqueViolation &&
		e.Constraint == messageIDUniqueConstraint
}

func wrapDbError(op string, err error) error {
	if err == nil {
		return nil
	}
	var dbErr *DbError
	if errors.As(err, &dbErr) {
		return err
	}

	out := &DbError{Op: op, Message: fmt.Sprintf("%s: %v", op, err), Err: err}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		out.Code = pgErr.Code
		out.Constraint = pgErr.ConstraintName
		out.Message = fmt.Sprintf("%s: database error (%s): %s", op, pgErr.Code, pgErr.Message)
		if errors.Is(out, greeting.ErrDuplicateMessageID) {
			out.Message = fmt.Sprintf("%s: %v", op, greeting.ErrDuplicateMessageID)
		}
	}
	return out
}
