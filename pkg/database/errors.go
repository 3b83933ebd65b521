package database

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// The backend error surface is reduced to three kinds: integrity
// violations, transient connection failures, and everything else passed
// through untouched.
var (
	// ErrIntegrity is matched by errors.Is for any IntegrityError.
	ErrIntegrity = errors.New("database: integrity violation")

	// ErrTransient is matched by errors.Is for any TransientError. The
	// caller may retry the whole transaction.
	ErrTransient = errors.New("database: transient failure")

	// ErrNoRows reports an empty single-row query result.
	ErrNoRows = errors.New("database: no rows in result set")
)

// IntegrityError reports a violated constraint.
type IntegrityError struct {
	Constraint string
	err        error
}

func (e *IntegrityError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("database: integrity violation on %s: %v", e.Constraint, e.err)
	}
	return fmt.Sprintf("database: integrity violation: %v", e.err)
}

func (e *IntegrityError) Unwrap() error { return e.err }

func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrity }

// NewIntegrityError builds an IntegrityError for constraint; the entity
// runtime uses this to surface restrict-policy failures without a backend
// round trip.
func NewIntegrityError(constraint string, err error) *IntegrityError {
	return &IntegrityError{Constraint: constraint, err: err}
}

// TransientError reports a lost connection or a deadlock.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("database: transient failure: %v", e.err)
}

func (e *TransientError) Unwrap() error { return e.err }

func (e *TransientError) Is(target error) bool { return target == ErrTransient }

// IsIntegrity reports whether err is an integrity violation.
func IsIntegrity(err error) bool { return errors.Is(err, ErrIntegrity) }

// IsTransient reports whether err is worth retrying in a fresh transaction.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

// mapError classifies a backend error. SQLSTATE class 23 is an integrity
// violation; class 08, serialization failures and deadlocks are transient.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoRows
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := pgErr.Code
		switch {
		case len(code) >= 2 && code[:2] == "23":
			return &IntegrityError{Constraint: pgErr.ConstraintName, err: err}
		case len(code) >= 2 && code[:2] == "08",
			code == "40001", // serialization_failure
			code == "40P01": // deadlock_detected
			return &TransientError{err: err}
		}
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{err: err}
	}
	return err
}
