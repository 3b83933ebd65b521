package validate

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type decimalValidator struct {
	base
	scale int32 // -1 means keep the input scale
}

var decimalMessages = Messages{
	"number": "please enter a number",
}

// Decimal parses strings into fixed-point decimal values. A non-negative
// scale rounds the parsed value to that many fractional digits.
func Decimal(scale int32, opts ...Option) Validator {
	return &decimalValidator{base: newBase(decimalMessages, opts), scale: scale}
}

func (v *decimalValidator) ToGo(value any, st State) (any, error) {
	var d decimal.Decimal
	switch n := value.(type) {
	case decimal.Decimal:
		d = n
	case int:
		d = decimal.NewFromInt(int64(n))
	case int64:
		d = decimal.NewFromInt(n)
	case float64:
		d = decimal.NewFromFloat(n)
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return nil, v.invalid(st, value, "number")
		}
		d = parsed
	default:
		return nil, v.invalid(st, value, "number")
	}
	if v.scale >= 0 {
		d = d.Round(v.scale)
	}
	return d, nil
}

func (v *decimalValidator) FromGo(value any, st State) (any, error) {
	d, ok := value.(decimal.Decimal)
	if !ok {
		out, err := v.ToGo(value, st)
		if err != nil {
			return nil, err
		}
		d = out.(decimal.Decimal)
	}
	if v.scale >= 0 {
		return d.StringFixed(v.scale), nil
	}
	return d.String(), nil
}

func (v *decimalValidator) ValidateGo(value any, st State) error {
	if _, ok := value.(decimal.Decimal); !ok {
		return v.invalid(st, value, "number")
	}
	return nil
}

// moneyValidator is Decimal with currency-aware presentation: FromGo always
// carries an explicit symbol, rendered for the configured locale.
type moneyValidator struct {
	*decimalValidator
	unit    currency.Unit
	printer *message.Printer
}

// Money parses monetary amounts at the currency's conventional scale and
// serializes them with the currency symbol for the given locale.
func Money(unit currency.Unit, tag language.Tag, opts ...Option) Validator {
	scale, _ := currency.Cash.Rounding(unit)
	return &moneyValidator{
		decimalValidator: &decimalValidator{base: newBase(decimalMessages, opts), scale: int32(scale)},
		unit:             unit,
		printer:          message.NewPrinter(tag),
	}
}

func (v *moneyValidator) ToGo(value any, st State) (any, error) {
	if s, ok := value.(string); ok {
		// strip a leading symbol so "R$ 1.50" and "1.50" parse alike
		s = strings.TrimSpace(s)
		s = strings.TrimPrefix(s, v.printer.Sprint(currency.Symbol(v.unit)))
		value = strings.TrimSpace(s)
	}
	return v.decimalValidator.ToGo(value, st)
}

func (v *moneyValidator) FromGo(value any, st State) (any, error) {
	out, err := v.decimalValidator.FromGo(value, st)
	if err != nil {
		return nil, err
	}
	amount, _ := decimal.NewFromString(out.(string))
	f, _ := amount.Float64()
	return v.printer.Sprint(currency.Symbol(v.unit.Amount(f))), nil
}
