package orm

import (
	"errors"
	"fmt"
)

// NotFoundError is returned when an entity lookup matches no row.
type NotFoundError struct {
	class string
}

func (e *NotFoundError) Error() string {
	return "stoqlib: " + e.class + " not found"
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e)
}

// NotSingularError is returned when a single-row lookup matches more than
// one row.
type NotSingularError struct {
	class string
}

func (e *NotSingularError) Error() string {
	return "stoqlib: " + e.class + " not singular"
}

// IsNotSingular reports whether err is a NotSingularError.
func IsNotSingular(err error) bool {
	if err == nil {
		return false
	}
	var e *NotSingularError
	return errors.As(err, &e)
}

// ObsoleteError is returned when a destroyed entity is read or written.
type ObsoleteError struct {
	class string
	id    int64
}

func (e *ObsoleteError) Error() string {
	return fmt.Sprintf("stoqlib: %s(%d) is obsolete", e.class, e.id)
}

// IsObsolete reports whether err is an ObsoleteError.
func IsObsolete(err error) bool {
	if err == nil {
		return false
	}
	var e *ObsoleteError
	return errors.As(err, &e)
}

// ImmutableError is returned when an immutable column of a live entity is
// written.
type ImmutableError struct {
	class  string
	column string
}

func (e *ImmutableError) Error() string {
	return fmt.Sprintf("stoqlib: column %s.%s is immutable", e.class, e.column)
}

// IsImmutable reports whether err is an ImmutableError.
func IsImmutable(err error) bool {
	if err == nil {
		return false
	}
	var e *ImmutableError
	return errors.As(err, &e)
}

// UnknownColumnError is returned when a write names a column the class does
// not declare.
type UnknownColumnError struct {
	class  string
	column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("stoqlib: %s has no column %q", e.class, e.column)
}

// IsUnknownColumn reports whether err is an UnknownColumnError.
func IsUnknownColumn(err error) bool {
	if err == nil {
		return false
	}
	var e *UnknownColumnError
	return errors.As(err, &e)
}

// ErrTxClosed is returned by operations on a committed or rolled back
// transaction.
var ErrTxClosed = errors.New("stoqlib: transaction is closed")

// RequiredError is returned at flush time for a column with neither a
// pending value nor a default.
type RequiredError struct {
	class  string
	column string
}

func (e *RequiredError) Error() string {
	return fmt.Sprintf("stoqlib: required column %s.%s is missing", e.class, e.column)
}

// IsRequired reports whether err is a RequiredError.
func IsRequired(err error) bool {
	if err == nil {
		return false
	}
	var e *RequiredError
	return errors.As(err, &e)
}
