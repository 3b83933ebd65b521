package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateOrder selects which position holds the day and which the month.
type DateOrder int

const (
	DayMonthYear DateOrder = iota
	MonthDayYear
	YearMonthDay
)

type dateValidator struct {
	base
	order DateOrder
}

var dateMessages = Messages{
	"badFormat":     "please enter the date in the form %(format)s",
	"monthRange":    "please enter a month from 1 to 12",
	"invalidDay":    "that month only has %(days)s days",
	"dayRange":      "please enter a day from 1 to 31",
	"fourDigitYear": "please enter a four-digit year after 1899",
	"wrongYear":     "the year %(year)s is ambiguous; please enter four digits",
	"invalidDate":   "that is not a valid day",
}

var dateSplitRe = regexp.MustCompile(`[\s/\-.]+`)

// Date parses dates written with /, -, . or space separators in the given
// field order and returns a time.Time at midnight UTC. Two-digit years from
// 00 to 20 resolve to the 2000s and from 50 to 99 to the 1900s; 21 to 49
// fall in the ambiguous window and are rejected.
func Date(order DateOrder, opts ...Option) Validator {
	return &dateValidator{base: newBase(dateMessages, opts), order: order}
}

func (v *dateValidator) format() string {
	switch v.order {
	case MonthDayYear:
		return "mm/dd/yyyy"
	case YearMonthDay:
		return "yyyy/mm/dd"
	}
	return "dd/mm/yyyy"
}

func (v *dateValidator) ToGo(value any, st State) (any, error) {
	if t, ok := value.(time.Time); ok {
		return t, nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, v.invalid(st, value, "badFormat", "format", v.format())
	}
	parts := dateSplitRe.Split(strings.TrimSpace(s), -1)
	if len(parts) != 3 {
		return nil, v.invalid(st, value, "badFormat", "format", v.format())
	}
	nums := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, v.invalid(st, value, "badFormat", "format", v.format())
		}
		nums[i] = n
	}
	var day, month, year int
	switch v.order {
	case MonthDayYear:
		month, day, year = nums[0], nums[1], nums[2]
	case YearMonthDay:
		year, month, day = nums[0], nums[1], nums[2]
	default:
		day, month, year = nums[0], nums[1], nums[2]
	}
	year, err := v.resolveYear(year, st, value)
	if err != nil {
		return nil, err
	}
	if month < 1 || month > 12 {
		return nil, v.invalid(st, value, "monthRange")
	}
	if day < 1 || day > 31 {
		return nil, v.invalid(st, value, "dayRange")
	}
	if max := daysInMonth(year, month); day > max {
		return nil, v.invalid(st, value, "invalidDay", "days", max)
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// resolveYear applies the documented two-digit-year window.
func (v *dateValidator) resolveYear(year int, st State, value any) (int, error) {
	switch {
	case year >= 100:
		return year, nil
	case year <= 20:
		return 2000 + year, nil
	case year >= 50:
		return 1900 + year, nil
	default:
		return 0, v.invalid(st, value, "wrongYear", "year", fmt.Sprintf("%02d", year))
	}
}

func daysInMonth(year, month int) int {
	// day 0 of the next month normalizes to the last day of this one
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (v *dateValidator) FromGo(value any, _ State) (any, error) {
	t, ok := value.(time.Time)
	if !ok {
		return value, nil
	}
	switch v.order {
	case MonthDayYear:
		return t.Format("01/02/2006"), nil
	case YearMonthDay:
		return t.Format("2006/01/02"), nil
	}
	return t.Format("02/01/2006"), nil
}

func (v *dateValidator) ValidateGo(value any, st State) error {
	if _, ok := value.(time.Time); !ok {
		return v.invalid(st, value, "invalidDate")
	}
	return nil
}

type timeValidator struct {
	base
	withSeconds bool
}

var timeMessages = Messages{
	"badFormat":   "please enter the time in the form hh:mm",
	"hourRange":   "please enter an hour from 0 to 23",
	"minuteRange": "please enter a minute from 0 to 59",
	"secondRange": "please enter a second from 0 to 59",
}

// TimeOfDay parses "hh:mm" or "hh:mm:ss", with an optional am/pm suffix,
// into a time.Duration since midnight.
func TimeOfDay(opts ...Option) Validator {
	return &timeValidator{base: newBase(timeMessages, opts)}
}

func (v *timeValidator) ToGo(value any, st State) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, v.invalid(st, value, "badFormat")
	}
	s = strings.ToLower(strings.TrimSpace(s))
	offset := 0
	switch {
	case strings.HasSuffix(s, "pm"):
		offset = 12
		s = strings.TrimSpace(strings.TrimSuffix(s, "pm"))
	case strings.HasSuffix(s, "am"):
		s = strings.TrimSpace(strings.TrimSuffix(s, "am"))
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return nil, v.invalid(st, value, "badFormat")
	}
	nums := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, v.invalid(st, value, "badFormat")
		}
		nums[i] = n
	}
	hour := nums[0]
	if offset == 12 && hour < 12 {
		hour += 12
	}
	if hour < 0 || hour > 23 {
		return nil, v.invalid(st, value, "hourRange")
	}
	minute := nums[1]
	if minute < 0 || minute > 59 {
		return nil, v.invalid(st, value, "minuteRange")
	}
	second := 0
	if len(nums) == 3 {
		second = nums[2]
		if second < 0 || second > 59 {
			return nil, v.invalid(st, value, "secondRange")
		}
	}
	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second, nil
}

func (v *timeValidator) FromGo(value any, _ State) (any, error) {
	d, ok := value.(time.Duration)
	if !ok {
		return value, nil
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if v.withSeconds || s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s), nil
	}
	return fmt.Sprintf("%02d:%02d", h, m), nil
}

func (v *timeValidator) ValidateGo(value any, st State) error {
	d, ok := value.(time.Duration)
	if !ok || d < 0 || d >= 24*time.Hour {
		return v.invalid(st, value, "badFormat")
	}
	return nil
}
