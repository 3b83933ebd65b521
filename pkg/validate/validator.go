package validate

import "reflect"

// Validator is the three-operation value transformer contract.
type Validator interface {
	// ToGo parses an external representation into a typed value.
	ToGo(value any, st State) (any, error)
	// FromGo serializes a typed value into its external representation.
	FromGo(value any, st State) (any, error)
	// ValidateGo checks a typed value and returns nil on success.
	ValidateGo(value any, st State) error
}

// IsEmpty reports whether value counts as empty input: nil, the empty
// string, or a zero-length slice, map or array. Numeric zero is not empty.
func IsEmpty(value any) bool {
	if value == nil {
		return true
	}
	switch v := value.(type) {
	case string:
		return v == ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return false
}

// identity is embedded by validators whose FromGo is the value unchanged.
type identity struct{}

func (identity) FromGo(value any, _ State) (any, error) { return value, nil }
