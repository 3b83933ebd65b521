package validate

import "strings"

// allValidator runs its children left to right against the same value,
// short-circuiting on the first failure.
type allValidator struct {
	children []Validator
}

// All returns a validator that succeeds only when every child accepts the
// value. Children see the original value, not each other's output; use Pipe
// to chain conversions.
func All(children ...Validator) Validator {
	return &allValidator{children: children}
}

func (v *allValidator) ToGo(value any, st State) (any, error) {
	if err := v.ValidateGo(value, st); err != nil {
		return nil, err
	}
	return value, nil
}

func (v *allValidator) FromGo(value any, st State) (any, error) {
	return value, nil
}

func (v *allValidator) ValidateGo(value any, st State) error {
	for _, child := range v.children {
		if err := child.ValidateGo(value, st); err != nil {
			return err
		}
	}
	return nil
}

// anyValidator tries its children left to right and keeps the first success.
type anyValidator struct {
	children []Validator
}

// Any returns a validator that accepts a value when at least one child
// does. When every child fails the errors are aggregated into one Invalid.
func Any(children ...Validator) Validator {
	return &anyValidator{children: children}
}

func (v *anyValidator) ToGo(value any, st State) (any, error) {
	var msgs []string
	for _, child := range v.children {
		out, err := child.ToGo(value, st)
		if err == nil {
			return out, nil
		}
		msgs = append(msgs, err.Error())
	}
	return nil, &Invalid{Message: strings.Join(msgs, "; "), Value: value, State: st}
}

func (v *anyValidator) FromGo(value any, st State) (any, error) {
	// Serialization has no notion of "first that accepts"; the first child
	// defines the external form.
	if len(v.children) == 0 {
		return value, nil
	}
	return v.children[0].FromGo(value, st)
}

func (v *anyValidator) ValidateGo(value any, st State) error {
	var msgs []string
	for _, child := range v.children {
		err := child.ValidateGo(value, st)
		if err == nil {
			return nil
		}
		msgs = append(msgs, err.Error())
	}
	if len(msgs) == 0 {
		return nil
	}
	return &Invalid{Message: strings.Join(msgs, "; "), Value: value, State: st}
}

// pipeValidator chains conversions: ToGo flows left to right, FromGo flows
// right to left, so a stack reads parse → normalize → range-check.
type pipeValidator struct {
	children []Validator
}

// Pipe chains validators so the output of one feeds the next.
func Pipe(children ...Validator) Validator {
	return &pipeValidator{children: children}
}

func (v *pipeValidator) ToGo(value any, st State) (any, error) {
	out := value
	var err error
	for _, child := range v.children {
		out, err = child.ToGo(out, st)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (v *pipeValidator) FromGo(value any, st State) (any, error) {
	out := value
	var err error
	for i := len(v.children) - 1; i >= 0; i-- {
		out, err = v.children[i].FromGo(out, st)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (v *pipeValidator) ValidateGo(value any, st State) error {
	for _, child := range v.children {
		if err := child.ValidateGo(value, st); err != nil {
			return err
		}
	}
	return nil
}

// withDefault substitutes a configured value for empty input during ToGo.
type withDefault struct {
	child Validator
	value any
}

// WithDefault maps empty or absent input to def before delegating to child.
func WithDefault(child Validator, def any) Validator {
	return &withDefault{child: child, value: def}
}

func (v *withDefault) ToGo(value any, st State) (any, error) {
	if IsEmpty(value) {
		return v.value, nil
	}
	return v.child.ToGo(value, st)
}

func (v *withDefault) FromGo(value any, st State) (any, error) {
	return v.child.FromGo(value, st)
}

func (v *withDefault) ValidateGo(value any, st State) error {
	if IsEmpty(value) {
		return nil
	}
	return v.child.ValidateGo(value, st)
}

// policy injection wrappers. Each substitutes a configured value for one
// failure class of the child instead of propagating it.

type ifMissing struct {
	child Validator
	value any
}

// IfMissing substitutes def when the input is absent (nil).
func IfMissing(child Validator, def any) Validator {
	return &ifMissing{child: child, value: def}
}

func (v *ifMissing) ToGo(value any, st State) (any, error) {
	if value == nil {
		return v.value, nil
	}
	return v.child.ToGo(value, st)
}

func (v *ifMissing) FromGo(value any, st State) (any, error) {
	return v.child.FromGo(value, st)
}

func (v *ifMissing) ValidateGo(value any, st State) error {
	if value == nil {
		return nil
	}
	return v.child.ValidateGo(value, st)
}

type ifEmpty struct {
	child Validator
	value any
}

// IfEmpty substitutes def when the input is empty (see IsEmpty).
func IfEmpty(child Validator, def any) Validator {
	return &ifEmpty{child: child, value: def}
}

func (v *ifEmpty) ToGo(value any, st State) (any, error) {
	if IsEmpty(value) {
		return v.value, nil
	}
	return v.child.ToGo(value, st)
}

func (v *ifEmpty) FromGo(value any, st State) (any, error) {
	return v.child.FromGo(value, st)
}

func (v *ifEmpty) ValidateGo(value any, st State) error {
	if IsEmpty(value) {
		return nil
	}
	return v.child.ValidateGo(value, st)
}

type ifInvalid struct {
	child Validator
	value any
}

// IfInvalid substitutes def when the child rejects the input.
func IfInvalid(child Validator, def any) Validator {
	return &ifInvalid{child: child, value: def}
}

func (v *ifInvalid) ToGo(value any, st State) (any, error) {
	out, err := v.child.ToGo(value, st)
	if err != nil {
		if IsInvalid(err) {
			return v.value, nil
		}
		return nil, err
	}
	return out, nil
}

func (v *ifInvalid) FromGo(value any, st State) (any, error) {
	return v.child.FromGo(value, st)
}

func (v *ifInvalid) ValidateGo(value any, st State) error {
	err := v.child.ValidateGo(value, st)
	if err != nil && IsInvalid(err) {
		return nil
	}
	return err
}
