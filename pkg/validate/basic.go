package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// confirmType checks the dynamic type of the value against a fixed set.
type confirmType struct {
	base
	identity
	types      []reflect.Type
	assignable bool
}

var confirmTypeMessages = Messages{
	"badType": "value is not of type %(types)s",
}

// ConfirmType fails unless the value's type is exactly one of the types of
// the given samples.
func ConfirmType(samples ...any) Validator {
	return newConfirmType(samples, false, nil)
}

// ConfirmAssignable fails unless the value is assignable to the type of one
// of the given samples. Interface samples must be passed as pointers, e.g.
// (*io.Reader)(nil).
func ConfirmAssignable(samples ...any) Validator {
	return newConfirmType(samples, true, nil)
}

func newConfirmType(samples []any, assignable bool, opts []Option) *confirmType {
	v := &confirmType{
		base:       newBase(confirmTypeMessages, opts),
		assignable: assignable,
	}
	for _, sample := range samples {
		t := reflect.TypeOf(sample)
		if assignable && t != nil && t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Interface {
			t = t.Elem()
		}
		v.types = append(v.types, t)
	}
	return v
}

func (v *confirmType) ToGo(value any, st State) (any, error) {
	if err := v.ValidateGo(value, st); err != nil {
		return nil, err
	}
	return value, nil
}

func (v *confirmType) ValidateGo(value any, st State) error {
	t := reflect.TypeOf(value)
	for _, want := range v.types {
		if want == nil {
			if t == nil {
				return nil
			}
			continue
		}
		if t == want {
			return nil
		}
		if v.assignable && t != nil && t.AssignableTo(want) {
			return nil
		}
	}
	names := make([]string, len(v.types))
	for i, want := range v.types {
		names[i] = fmt.Sprintf("%v", want)
	}
	return v.invalid(st, value, "badType", "types", strings.Join(names, ", "))
}

// wrapper adapts a plain conversion function into a validator. An error
// returned (or panicked) by the function becomes an *Invalid carrying its
// message; panics that are not errors propagate.
type wrapper struct {
	base
	identity
	convert func(any) (any, error)
}

var wrapperMessages = Messages{
	"invalid": "%(reason)s",
}

// Wrapper lifts fn into the validator contract.
func Wrapper(fn func(any) (any, error), opts ...Option) Validator {
	return &wrapper{base: newBase(wrapperMessages, opts), convert: fn}
}

func (v *wrapper) ToGo(value any, st State) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			rerr, ok := r.(error)
			if !ok {
				panic(r)
			}
			out, err = nil, v.invalid(st, value, "invalid", "reason", rerr.Error())
		}
	}()
	out, err = v.convert(value)
	if err != nil {
		return nil, v.invalid(st, value, "invalid", "reason", err.Error())
	}
	return out, nil
}

func (v *wrapper) ValidateGo(value any, st State) error {
	_, err := v.ToGo(value, st)
	return err
}

// constant ignores its input and always produces the configured value.
type constant struct {
	identity
	value any
}

// Constant returns a validator whose ToGo yields c unconditionally.
func Constant(c any) Validator {
	return &constant{value: c}
}

func (v *constant) ToGo(any, State) (any, error) { return v.value, nil }
func (v *constant) ValidateGo(any, State) error  { return nil }

// lengthOf returns the length of strings, slices, maps and arrays, or an
// ok=false for values that have no length.
func lengthOf(value any) (int, bool) {
	if value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case string:
		return len(v), true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len(), true
	}
	return 0, false
}

type maxLength struct {
	base
	identity
	max int
}

var maxLengthMessages = Messages{
	"tooLong": "enter a value no longer than %(max)s characters",
	"invalid": "invalid value",
}

// MaxLength fails when the value is longer than max, or has no length.
func MaxLength(max int, opts ...Option) Validator {
	return &maxLength{base: newBase(maxLengthMessages, opts), max: max}
}

func (v *maxLength) ToGo(value any, st State) (any, error) {
	if err := v.ValidateGo(value, st); err != nil {
		return nil, err
	}
	return value, nil
}

func (v *maxLength) ValidateGo(value any, st State) error {
	n, ok := lengthOf(value)
	if !ok {
		return v.invalid(st, value, "invalid")
	}
	if n > v.max {
		return v.invalid(st, value, "tooLong", "max", v.max)
	}
	return nil
}

type minLength struct {
	base
	identity
	min int
}

var minLengthMessages = Messages{
	"tooShort": "enter a value at least %(min)s characters long",
	"invalid":  "invalid value",
}

// MinLength fails when the value is shorter than min, or has no length.
func MinLength(min int, opts ...Option) Validator {
	return &minLength{base: newBase(minLengthMessages, opts), min: min}
}

func (v *minLength) ToGo(value any, st State) (any, error) {
	if err := v.ValidateGo(value, st); err != nil {
		return nil, err
	}
	return value, nil
}

func (v *minLength) ValidateGo(value any, st State) error {
	n, ok := lengthOf(value)
	if !ok {
		return v.invalid(st, value, "invalid")
	}
	if n < v.min {
		return v.invalid(st, value, "tooShort", "min", v.min)
	}
	return nil
}

type notEmpty struct {
	base
	identity
}

var notEmptyMessages = Messages{
	"empty": "please enter a value",
}

// NotEmpty fails on empty input. Numeric zero counts as non-empty.
func NotEmpty(opts ...Option) Validator {
	return &notEmpty{base: newBase(notEmptyMessages, opts)}
}

func (v *notEmpty) ToGo(value any, st State) (any, error) {
	if err := v.ValidateGo(value, st); err != nil {
		return nil, err
	}
	return value, nil
}

func (v *notEmpty) ValidateGo(value any, st State) error {
	if IsEmpty(value) {
		return v.invalid(st, value, "empty")
	}
	return nil
}

type empty struct {
	base
	identity
}

var emptyMessages = Messages{
	"notEmpty": "you cannot enter a value here",
}

// Empty fails on non-empty input.
func Empty(opts ...Option) Validator {
	return &empty{base: newBase(emptyMessages, opts)}
}

func (v *empty) ToGo(value any, st State) (any, error) {
	if err := v.ValidateGo(value, st); err != nil {
		return nil, err
	}
	return value, nil
}

func (v *empty) ValidateGo(value any, st State) error {
	if !IsEmpty(value) {
		return v.invalid(st, value, "notEmpty")
	}
	return nil
}

type regexValidator struct {
	base
	identity
	re    *regexp.Regexp
	strip bool
}

var regexMessages = Messages{
	"invalid": "the input is not valid",
}

// Regex fails when the string value does not match pattern.
func Regex(pattern string, opts ...Option) Validator {
	return &regexValidator{base: newBase(regexMessages, opts), re: regexp.MustCompile(pattern)}
}

// RegexStrip is Regex with surrounding whitespace removed during ToGo.
func RegexStrip(pattern string, opts ...Option) Validator {
	return &regexValidator{base: newBase(regexMessages, opts), re: regexp.MustCompile(pattern), strip: true}
}

func (v *regexValidator) ToGo(value any, st State) (any, error) {
	if s, ok := value.(string); ok && v.strip {
		value = strings.TrimSpace(s)
	}
	if err := v.ValidateGo(value, st); err != nil {
		return nil, err
	}
	return value, nil
}

func (v *regexValidator) ValidateGo(value any, st State) error {
	s, ok := value.(string)
	if !ok || !v.re.MatchString(s) {
		return v.invalid(st, value, "invalid")
	}
	return nil
}

type oneOf struct {
	base
	identity
	allowed  []any
	testList bool
}

var oneOfMessages = Messages{
	"notIn": "value must be one of: %(items)s (not %(value)s)",
}

// OneOf fails unless the value is one of allowed.
func OneOf(allowed []any, opts ...Option) Validator {
	return &oneOf{base: newBase(oneOfMessages, opts), allowed: allowed}
}

// OneOfEach behaves like OneOf but treats the input as a list and verifies
// each element.
func OneOfEach(allowed []any, opts ...Option) Validator {
	return &oneOf{base: newBase(oneOfMessages, opts), allowed: allowed, testList: true}
}

func (v *oneOf) ToGo(value any, st State) (any, error) {
	if err := v.ValidateGo(value, st); err != nil {
		return nil, err
	}
	return value, nil
}

func (v *oneOf) ValidateGo(value any, st State) error {
	if v.testList {
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			for i := 0; i < rv.Len(); i++ {
				if err := v.checkOne(rv.Index(i).Interface(), st); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return v.checkOne(value, st)
}

func (v *oneOf) checkOne(value any, st State) error {
	for _, a := range v.allowed {
		if a == value {
			return nil
		}
	}
	items := make([]string, len(v.allowed))
	for i, a := range v.allowed {
		items[i] = fmt.Sprintf("%v", a)
	}
	return v.invalid(st, value, "notIn", "items", strings.Join(items, "; "), "value", value)
}

// dictConverter maps keys to values through a fixed table, both ways.
type dictConverter struct {
	base
	table map[any]any
}

var dictConverterMessages = Messages{
	"keyNotFound":   "enter a value from: %(items)s",
	"valueNotFound": "nothing in my dictionary goes by the value %(value)s",
}

// DictConverter converts keys to values via table; FromGo walks the table
// in reverse.
func DictConverter(table map[any]any, opts ...Option) Validator {
	return &dictConverter{base: newBase(dictConverterMessages, opts), table: table}
}

func (v *dictConverter) ToGo(value any, st State) (any, error) {
	if out, ok := v.table[value]; ok {
		return out, nil
	}
	items := make([]string, 0, len(v.table))
	for key := range v.table {
		items = append(items, fmt.Sprintf("%v", key))
	}
	sort.Strings(items)
	return nil, v.invalid(st, value, "keyNotFound", "items", strings.Join(items, "; "))
}

func (v *dictConverter) FromGo(value any, st State) (any, error) {
	for key, val := range v.table {
		if val == value {
			return key, nil
		}
	}
	return nil, v.invalid(st, value, "valueNotFound", "value", value)
}

func (v *dictConverter) ValidateGo(value any, st State) error {
	for _, val := range v.table {
		if val == value {
			return nil
		}
	}
	return v.invalid(st, value, "valueNotFound", "value", value)
}

// indexListConverter converts an integer (or numeric string) index to the
// element at that position; FromGo recovers the index of a value.
type indexListConverter struct {
	base
	list []any
}

var indexListMessages = Messages{
	"integer":    "must be an integer index",
	"outOfRange": "index out of range",
	"notFound":   "item not in list",
}

// IndexListConverter selects elements of list by position.
func IndexListConverter(list []any, opts ...Option) Validator {
	return &indexListConverter{base: newBase(indexListMessages, opts), list: list}
}

func (v *indexListConverter) ToGo(value any, st State) (any, error) {
	var idx int
	switch n := value.(type) {
	case int:
		idx = n
	case int64:
		idx = int(n)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return nil, v.invalid(st, value, "integer")
		}
		idx = parsed
	default:
		return nil, v.invalid(st, value, "integer")
	}
	if idx < 0 || idx >= len(v.list) {
		return nil, v.invalid(st, value, "outOfRange")
	}
	return v.list[idx], nil
}

func (v *indexListConverter) FromGo(value any, st State) (any, error) {
	for i, item := range v.list {
		if item == value {
			return i, nil
		}
	}
	return nil, v.invalid(st, value, "notFound")
}

func (v *indexListConverter) ValidateGo(value any, st State) error {
	_, err := v.FromGo(value, st)
	return err
}
