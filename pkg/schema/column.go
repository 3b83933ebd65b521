// Package schema holds the declarative metadata an entity class is built
// from: typed column descriptors, table metadata and the validator chains
// that gate every attribute write.
package schema

import (
	"fmt"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"

	"stoqlib/pkg/validate"
)

// Kind is the semantic type of a column.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindDecimal
	KindMoney
	KindDate
	KindDateTime
	KindBool
	KindReference
	KindSerial
)

// String returns the kind name for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindDecimal:
		return "decimal"
	case KindMoney:
		return "money"
	case KindDate:
		return "date"
	case KindDateTime:
		return "datetime"
	case KindBool:
		return "bool"
	case KindReference:
		return "reference"
	case KindSerial:
		return "serial"
	}
	return "unknown"
}

// Cascade is the delete policy attached to a reference column: what happens
// to referring rows when their target is destroyed.
type Cascade int

const (
	// NoAction leaves referring rows alone; the backend constraint decides.
	NoAction Cascade = iota
	// CascadeDelete destroys referring rows recursively.
	CascadeDelete
	// SetNull clears the reference on referring rows.
	SetNull
	// Restrict refuses to destroy a target that still has referring rows.
	Restrict
)

func (c Cascade) String() string {
	switch c {
	case CascadeDelete:
		return "cascade"
	case SetNull:
		return "set-null"
	case Restrict:
		return "restrict"
	}
	return "no-action"
}

// Column is the declarative descriptor for one attribute of an entity
// class. Constructors return a partially built column; the With* methods
// chain until NewTable freezes it.
type Column struct {
	Name      string
	Kind      Kind
	Nullable  bool
	DefaultV  any
	HasDef    bool
	Unique    bool
	Immutable bool
	MaxLen    int
	Precision int32
	Scale     int32
	Target    string  // referenced class name, resolved lazily
	OnDelete  Cascade // only meaningful for KindReference
	Sequence  string  // only meaningful for KindSerial

	currencyUnit currency.Unit
	locale       language.Tag
	dateOrder    validate.DateOrder
}

// defaults for decimal columns; adjustable system-wide.
var (
	DefaultDecimalPrecision int32 = 10
	DefaultDecimalScale     int32 = 2
)

// String declares a bounded-length text column. The zero bound means the
// backend maximum.
func String(name string) *Column {
	return &Column{Name: name, Kind: KindString, Nullable: true}
}

// Int declares a signed 64-bit integer column.
func Int(name string) *Column {
	return &Column{Name: name, Kind: KindInt, Nullable: true}
}

// Decimal declares a fixed precision and scale column.
func Decimal(name string) *Column {
	return &Column{
		Name: name, Kind: KindDecimal, Nullable: true,
		Precision: DefaultDecimalPrecision, Scale: DefaultDecimalScale,
	}
}

// Money declares a decimal column with the currency's conventional scale.
// Storage is identical to Decimal; presentation always carries the symbol.
func Money(name string) *Column {
	return &Column{
		Name: name, Kind: KindMoney, Nullable: true,
		Precision: DefaultDecimalPrecision, Scale: 2,
		currencyUnit: currency.BRL, locale: language.BrazilianPortuguese,
	}
}

// Date declares a calendar-date column.
func Date(name string) *Column {
	return &Column{Name: name, Kind: KindDate, Nullable: true, dateOrder: validate.DayMonthYear}
}

// DateTime declares a timestamp column.
func DateTime(name string) *Column {
	return &Column{Name: name, Kind: KindDateTime, Nullable: true}
}

// Bool declares a boolean column.
func Bool(name string) *Column {
	return &Column{Name: name, Kind: KindBool, Nullable: true}
}

// Reference declares a foreign-key column pointing at another entity class,
// named so it can be resolved lazily (cyclic references are fine). The
// column name conventionally ends in _id.
func Reference(name, target string, onDelete Cascade) *Column {
	return &Column{Name: name, Kind: KindReference, Nullable: true, Target: target, OnDelete: onDelete}
}

// Serial declares an integer column whose insert default is the next value
// of the named monotonic sequence.
func Serial(name, sequence string) *Column {
	return &Column{Name: name, Kind: KindSerial, Nullable: false, Sequence: sequence}
}

// NotNull marks the column as required.
func (c *Column) NotNull() *Column {
	c.Nullable = false
	return c
}

// Default declares the value used when an insert leaves the column unset.
func (c *Column) Default(v any) *Column {
	c.DefaultV = v
	c.HasDef = true
	return c
}

// AsUnique marks the column as an alternate ID: unique, and fetchable
// through FindByUnique.
func (c *Column) AsUnique() *Column {
	c.Unique = true
	return c
}

// AsImmutable rejects writes once the owning instance is live.
func (c *Column) AsImmutable() *Column {
	c.Immutable = true
	return c
}

// WithMaxLen bounds the string length.
func (c *Column) WithMaxLen(n int) *Column {
	c.MaxLen = n
	return c
}

// WithPrecision sets precision and scale for decimal and money columns.
func (c *Column) WithPrecision(precision, scale int32) *Column {
	c.Precision = precision
	c.Scale = scale
	return c
}

// WithCurrency sets the currency and locale a money column presents with.
func (c *Column) WithCurrency(unit currency.Unit, tag language.Tag) *Column {
	c.currencyUnit = unit
	c.locale = tag
	return c
}

// WithDateOrder sets the field order a date column parses with.
func (c *Column) WithDateOrder(order validate.DateOrder) *Column {
	c.dateOrder = order
	return c
}

// Validator builds the conversion chain for the column: type coercion, then
// bound enforcement. The null policy is enforced by Convert, outside the
// chain, so nullable columns can hold nil without consulting it.
func (c *Column) Validator() validate.Validator {
	switch c.Kind {
	case KindString:
		if c.MaxLen > 0 {
			return validate.BoundedString(c.MaxLen)
		}
		return validate.String()
	case KindInt, KindSerial, KindReference:
		return validate.Int()
	case KindDecimal:
		return validate.Decimal(c.Scale)
	case KindMoney:
		return validate.Money(c.currencyUnit, c.locale)
	case KindDate:
		return validate.Date(c.dateOrder)
	case KindDateTime:
		return validate.ConfirmType(time.Time{})
	case KindBool:
		return validate.Bool()
	}
	return validate.String()
}

// Convert applies the null policy and the validator chain to an incoming
// value, returning the normalized in-memory form. Programmatic writes and
// form input both pass through here.
func (c *Column) Convert(value any, st validate.State) (any, error) {
	if value == nil {
		if !c.Nullable {
			return nil, &validate.Invalid{
				Message: fmt.Sprintf("column %s may not be null", c.Name),
				State:   st,
			}
		}
		return nil, nil
	}
	return c.Validator().ToGo(value, st)
}

// SQLType renders the backend type for DDL generation.
func (c *Column) SQLType() string {
	switch c.Kind {
	case KindString:
		if c.MaxLen > 0 {
			return fmt.Sprintf("varchar(%d)", c.MaxLen)
		}
		return "text"
	case KindInt, KindReference:
		return "bigint"
	case KindDecimal, KindMoney:
		return fmt.Sprintf("numeric(%d,%d)", c.Precision, c.Scale)
	case KindDate:
		return "date"
	case KindDateTime:
		return "timestamp with time zone"
	case KindBool:
		return "boolean"
	case KindSerial:
		return "bigint"
	}
	return "text"
}

// DefaultValue resolves the declared default, reporting ok=false when the
// column has none (the required-field case for inserts).
func (c *Column) DefaultValue() (any, bool) {
	if c.HasDef {
		return c.DefaultV, true
	}
	if c.Nullable {
		return nil, true
	}
	return nil, false
}

// clone returns a copy so inherited columns can be shadowed without
// mutating the parent declaration.
func (c *Column) clone() *Column {
	dup := *c
	return &dup
}
