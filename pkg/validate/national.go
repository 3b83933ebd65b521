package validate

import (
	"regexp"
	"strings"
)

// phoneDigitsRe accepts an optional leading + followed by digits only, after
// separators have been stripped.
var phoneDigitsRe = regexp.MustCompile(`^\+?\d{7,15}$`)

type phoneNumber struct {
	base
}

var phoneMessages = Messages{
	"badShape": "please enter a number, with area code, in the form +##?#######",
}

// PhoneNumber normalizes a phone number to its canonical form: an optional
// leading + and digits, with spaces, dots, dashes and parentheses removed.
func PhoneNumber(opts ...Option) Validator {
	return &phoneNumber{base: newBase(phoneMessages, opts)}
}

func (v *phoneNumber) ToGo(value any, st State) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, v.invalid(st, value, "badShape")
	}
	canonical := strings.NewReplacer(" ", "", ".", "", "-", "", "(", "", ")", "", "/", "").Replace(strings.TrimSpace(s))
	if !phoneDigitsRe.MatchString(canonical) {
		return nil, v.invalid(st, value, "badShape")
	}
	return canonical, nil
}

func (v *phoneNumber) FromGo(value any, _ State) (any, error) {
	return value, nil
}

func (v *phoneNumber) ValidateGo(value any, st State) error {
	s, ok := value.(string)
	if !ok || !phoneDigitsRe.MatchString(s) {
		return v.invalid(st, value, "badShape")
	}
	return nil
}

type postalCode struct {
	base
	re *regexp.Regexp
}

var postalMessages = Messages{
	"badShape": "please enter a zip code (%(format)s)",
}

// DefaultPostalPattern matches five digits with an optional four-digit
// extension.
const DefaultPostalPattern = `^\d{5}(-\d{4})?$`

// PostalCode normalizes a postal code (uppercase, inner spaces collapsed)
// and checks it against pattern. An empty pattern selects
// DefaultPostalPattern.
func PostalCode(pattern string, opts ...Option) Validator {
	if pattern == "" {
		pattern = DefaultPostalPattern
	}
	return &postalCode{base: newBase(postalMessages, opts), re: regexp.MustCompile(pattern)}
}

func (v *postalCode) ToGo(value any, st State) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, v.invalid(st, value, "badShape", "format", v.re.String())
	}
	canonical := strings.ToUpper(strings.Join(strings.Fields(s), " "))
	if err := v.ValidateGo(canonical, st); err != nil {
		return nil, err
	}
	return canonical, nil
}

func (v *postalCode) FromGo(value any, _ State) (any, error) {
	return value, nil
}

func (v *postalCode) ValidateGo(value any, st State) error {
	s, ok := value.(string)
	if !ok || !v.re.MatchString(s) {
		return v.invalid(st, value, "badShape", "format", v.re.String())
	}
	return nil
}

type stateProvince struct {
	base
	codes map[string]bool
}

var stateMessages = Messages{
	"wrongLength": "please enter a state code with two letters",
	"invalid":     "that is not a valid state code",
}

// StateProvince normalizes a two-letter state or province code to uppercase
// and checks membership in codes.
func StateProvince(codes []string, opts ...Option) Validator {
	v := &stateProvince{base: newBase(stateMessages, opts), codes: make(map[string]bool, len(codes))}
	for _, code := range codes {
		v.codes[strings.ToUpper(code)] = true
	}
	return v
}

func (v *stateProvince) ToGo(value any, st State) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, v.invalid(st, value, "wrongLength")
	}
	canonical := strings.ToUpper(strings.TrimSpace(s))
	if err := v.ValidateGo(canonical, st); err != nil {
		return nil, err
	}
	return canonical, nil
}

func (v *stateProvince) FromGo(value any, _ State) (any, error) {
	return value, nil
}

func (v *stateProvince) ValidateGo(value any, st State) error {
	s, ok := value.(string)
	if !ok || len(s) != 2 {
		return v.invalid(st, value, "wrongLength")
	}
	if !v.codes[s] {
		return v.invalid(st, value, "invalid")
	}
	return nil
}
