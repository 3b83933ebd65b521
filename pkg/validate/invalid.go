// Package validate provides composable value validators and converters.
//
// Every validator implements the three-operation contract: ToGo parses an
// external (usually textual) representation into a typed value, FromGo
// serializes a typed value back to its external representation, and
// ValidateGo checks a typed value without converting it. Failure is always
// reported through *Invalid; validators never signal errors with return
// codes or booleans.
package validate

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// State is an opaque context bag threaded through every validator call.
// Higher layers (form state, locale hints) may put whatever they need in it;
// the validators in this package never inspect it, they only carry it into
// the errors they produce.
type State map[string]any

// Invalid reports a value that failed validation or conversion. For
// record-level validators (FieldsMatch and friends) Fields carries one
// sub-error per offending field.
type Invalid struct {
	Message string
	Value   any
	State   State
	Fields  map[string]*Invalid
}

// Error returns the message, including per-field details when present.
func (e *Invalid) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name].Message)
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

// IsInvalid reports whether err is (or wraps) an *Invalid.
func IsInvalid(err error) bool {
	var inv *Invalid
	return errors.As(err, &inv)
}

// Messages maps message keys to templates with %(name)s placeholders.
// Substitution is purely by placeholder name; there is no evaluation.
type Messages map[string]string

// expand substitutes %(name)s placeholders in tmpl from vars.
func expand(tmpl string, vars map[string]any) string {
	if len(vars) == 0 {
		return tmpl
	}
	out := tmpl
	for name, value := range vars {
		out = strings.ReplaceAll(out, "%("+name+")s", fmt.Sprintf("%v", value))
	}
	return out
}

// base carries the message table shared by all validators in this package.
type base struct {
	messages Messages
}

func newBase(defaults Messages, opts []Option) base {
	b := base{messages: Messages{}}
	for key, tmpl := range defaults {
		b.messages[key] = tmpl
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// message renders the template registered under key. vars come in
// name/value pairs.
func (b base) message(key string, vars ...any) string {
	tmpl, ok := b.messages[key]
	if !ok {
		return key
	}
	named := make(map[string]any, len(vars)/2)
	for i := 0; i+1 < len(vars); i += 2 {
		named[fmt.Sprintf("%v", vars[i])] = vars[i+1]
	}
	return expand(tmpl, named)
}

// invalid builds the error for the message registered under key.
func (b base) invalid(st State, value any, key string, vars ...any) *Invalid {
	return &Invalid{Message: b.message(key, vars...), Value: value, State: st}
}

// Option configures a validator at construction time.
type Option func(*base)

// WithMessage overrides the template registered under key.
func WithMessage(key, tmpl string) Option {
	return func(b *base) {
		b.messages[key] = tmpl
	}
}
