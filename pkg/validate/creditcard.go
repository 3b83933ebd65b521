package validate

import (
	"strings"
)

// cardBrand holds the accepted prefixes and total lengths for one brand.
type cardBrand struct {
	name     string
	prefixes []string
	lengths  []int
}

var cardBrands = []cardBrand{
	{"visa", []string{"4"}, []int{13, 16}},
	{"mastercard", []string{"51", "52", "53", "54", "55"}, []int{16}},
	{"amex", []string{"34", "37"}, []int{15}},
	{"discover", []string{"6011"}, []int{16}},
	{"dinersclub", []string{"300", "301", "302", "303", "304", "305", "36", "38"}, []int{14}},
	{"jcb", []string{"3528", "3529", "353", "354", "355", "356", "357", "358"}, []int{16}},
}

type creditCard struct {
	base
}

var creditCardMessages = Messages{
	"notANumber":    "please enter only the number, no other characters",
	"badLength":     "you did not enter a valid number of digits",
	"invalidNumber": "that number is not valid",
}

// CreditCard normalizes a card number (spaces and dashes stripped) and
// checks brand prefix, per-brand length and the mod-10 checksum.
func CreditCard(opts ...Option) Validator {
	return &creditCard{base: newBase(creditCardMessages, opts)}
}

func (v *creditCard) ToGo(value any, st State) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, v.invalid(st, value, "notANumber")
	}
	number := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(s))
	if err := v.ValidateGo(number, st); err != nil {
		return nil, err
	}
	return number, nil
}

func (v *creditCard) FromGo(value any, _ State) (any, error) {
	return value, nil
}

func (v *creditCard) ValidateGo(value any, st State) error {
	number, ok := value.(string)
	if !ok || number == "" {
		return v.invalid(st, value, "notANumber")
	}
	for _, r := range number {
		if r < '0' || r > '9' {
			return v.invalid(st, value, "notANumber")
		}
	}
	if Brand(number) == "" {
		return v.invalid(st, value, "badLength")
	}
	if !luhnValid(number) {
		return v.invalid(st, value, "invalidNumber")
	}
	return nil
}

// Brand returns the brand name matching the number's prefix and length, or
// the empty string when no brand accepts it.
func Brand(number string) string {
	for _, brand := range cardBrands {
		for _, prefix := range brand.prefixes {
			if !strings.HasPrefix(number, prefix) {
				continue
			}
			for _, n := range brand.lengths {
				if len(number) == n {
					return brand.name
				}
			}
		}
	}
	return ""
}

// luhnValid implements the mod-10 checksum.
func luhnValid(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
