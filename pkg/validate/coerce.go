package validate

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// intValidator coerces to int64.
type intValidator struct {
	base
}

var intMessages = Messages{
	"integer": "please enter an integer value",
}

// Int coerces strings, floats and integer kinds to int64.
func Int(opts ...Option) Validator {
	return &intValidator{base: newBase(intMessages, opts)}
}

func (v *intValidator) ToGo(value any, st State) (any, error) {
	switch n := value.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) {
			return nil, v.invalid(st, value, "integer")
		}
		return int64(n), nil
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return nil, v.invalid(st, value, "integer")
		}
		return parsed, nil
	}
	return nil, v.invalid(st, value, "integer")
}

func (v *intValidator) FromGo(value any, _ State) (any, error) {
	return fmt.Sprintf("%v", value), nil
}

func (v *intValidator) ValidateGo(value any, st State) error {
	switch value.(type) {
	case int, int32, int64:
		return nil
	}
	return v.invalid(st, value, "integer")
}

// numberValidator coerces to int64 when the parsed value equals its integer
// truncation without loss, and to float64 otherwise. "1.0" and "1.00" both
// normalize to the integer 1 so ToGo/FromGo round-trips stay stable.
type numberValidator struct {
	base
}

var numberMessages = Messages{
	"number": "please enter a number",
}

// Number coerces to int64 or float64, preferring the integer form.
func Number(opts ...Option) Validator {
	return &numberValidator{base: newBase(numberMessages, opts)}
}

func (v *numberValidator) ToGo(value any, st State) (any, error) {
	switch n := value.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) {
			return int64(n), nil
		}
		return n, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return nil, v.invalid(st, value, "number")
		}
		if d.IsInteger() {
			return d.IntPart(), nil
		}
		f, _ := d.Float64()
		return f, nil
	}
	return nil, v.invalid(st, value, "number")
}

func (v *numberValidator) FromGo(value any, _ State) (any, error) {
	return fmt.Sprintf("%v", value), nil
}

func (v *numberValidator) ValidateGo(value any, st State) error {
	switch value.(type) {
	case int, int64, float64:
		return nil
	}
	return v.invalid(st, value, "number")
}

// boolValidator maps truthiness; it never fails.
type boolValidator struct{}

// Bool maps any truthy value to true and falsy values (nil, false, zero
// numbers, the empty string) to false. Note a non-empty string is truthy, so
// ToGo("0") is true while ToGo(0) is false.
func Bool() Validator {
	return &boolValidator{}
}

func (v *boolValidator) ToGo(value any, _ State) (any, error) {
	switch n := value.(type) {
	case nil:
		return false, nil
	case bool:
		return n, nil
	case string:
		return n != "", nil
	case int:
		return n != 0, nil
	case int64:
		return n != 0, nil
	case float64:
		return n != 0, nil
	}
	return true, nil
}

func (v *boolValidator) FromGo(value any, _ State) (any, error) {
	if b, ok := value.(bool); ok && b {
		return "true", nil
	}
	return "false", nil
}

func (v *boolValidator) ValidateGo(any, State) error { return nil }

// stringValidator coerces to string.
type stringValidator struct {
	base
	max int // 0 means unbounded
}

var stringMessages = Messages{
	"tooLong": "enter a value no longer than %(max)s characters",
	"badType": "please enter a string value",
}

// String coerces values to their string form. Null and absent become the
// empty string; zero becomes "0".
func String(opts ...Option) Validator {
	return &stringValidator{base: newBase(stringMessages, opts)}
}

// BoundedString is String with a maximum length enforced during ToGo.
func BoundedString(max int, opts ...Option) Validator {
	return &stringValidator{base: newBase(stringMessages, opts), max: max}
}

func (v *stringValidator) ToGo(value any, st State) (any, error) {
	s, err := v.FromGo(value, st)
	if err != nil {
		return nil, err
	}
	if v.max > 0 && len(s.(string)) > v.max {
		return nil, v.invalid(st, value, "tooLong", "max", v.max)
	}
	return s, nil
}

func (v *stringValidator) FromGo(value any, _ State) (any, error) {
	if value == nil {
		return "", nil
	}
	if s, ok := value.(string); ok {
		return s, nil
	}
	return fmt.Sprintf("%v", value), nil
}

func (v *stringValidator) ValidateGo(value any, st State) error {
	s, ok := value.(string)
	if !ok {
		return v.invalid(st, value, "badType")
	}
	if v.max > 0 && len(s) > v.max {
		return v.invalid(st, value, "tooLong", "max", v.max)
	}
	return nil
}
