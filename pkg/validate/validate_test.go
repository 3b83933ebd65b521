package validate

import (
	"errors"
	"strings"
	"testing"
)

func TestMaxLength(t *testing.T) {
	v := MaxLength(5)

	if _, err := v.ToGo("abcde", nil); err != nil {
		t.Errorf("ToGo(\"abcde\") failed: %v", err)
	}
	if _, err := v.ToGo("abcdef", nil); !IsInvalid(err) {
		t.Errorf("expected Invalid for \"abcdef\", got %v", err)
	}
	// values without a length are rejected outright
	if _, err := v.ToGo(5, nil); !IsInvalid(err) {
		t.Errorf("expected Invalid for 5, got %v", err)
	}
}

func TestMinLength(t *testing.T) {
	v := MinLength(3)

	if _, err := v.ToGo("abc", nil); err != nil {
		t.Errorf("ToGo(\"abc\") failed: %v", err)
	}
	if _, err := v.ToGo("ab", nil); !IsInvalid(err) {
		t.Errorf("expected Invalid for \"ab\", got %v", err)
	}
}

func TestNotEmpty(t *testing.T) {
	v := NotEmpty()

	if _, err := v.ToGo("", nil); !IsInvalid(err) {
		t.Errorf("expected Invalid for empty string, got %v", err)
	}
	if _, err := v.ToGo(nil, nil); !IsInvalid(err) {
		t.Errorf("expected Invalid for nil, got %v", err)
	}
	// zero is a value, not emptiness
	if _, err := v.ToGo(0, nil); err != nil {
		t.Errorf("ToGo(0) failed: %v", err)
	}
}

func TestOneOf(t *testing.T) {
	v := OneOf([]any{"A", "BB", "CCC"})

	if _, err := v.ToGo("A", nil); err != nil {
		t.Errorf("ToGo(\"A\") failed: %v", err)
	}
	_, err := v.ToGo("D", nil)
	if !IsInvalid(err) {
		t.Fatalf("expected Invalid for \"D\", got %v", err)
	}
	if !strings.Contains(err.Error(), "one of") {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestPipe_StackedStages(t *testing.T) {
	// parse -> bound -> membership, as a form field would compose it
	chain := Pipe(BoundedString(3), OneOf([]any{"A", "BB", "CCC"}))

	got, err := chain.ToGo("A", nil)
	if err != nil {
		t.Fatalf("ToGo(\"A\") failed: %v", err)
	}
	if got != "A" {
		t.Errorf("ToGo(\"A\") = %v", got)
	}

	// rejected by the membership stage
	if _, err := chain.ToGo("D", nil); !IsInvalid(err) {
		t.Errorf("expected Invalid for \"D\", got %v", err)
	}

	// rejected by the length stage before membership runs
	_, err = chain.ToGo("ABCD", nil)
	if !IsInvalid(err) {
		t.Fatalf("expected Invalid for \"ABCD\", got %v", err)
	}
	if !strings.Contains(err.Error(), "no longer than") {
		t.Errorf("expected the max-length message, got %q", err.Error())
	}
}

func TestAny_AggregatesErrors(t *testing.T) {
	v := Any(Int(), OneOf([]any{"yes", "no"}))

	if got, err := v.ToGo("12", nil); err != nil || got != int64(12) {
		t.Errorf("ToGo(\"12\") = %v, %v", got, err)
	}
	if got, err := v.ToGo("yes", nil); err != nil || got != "yes" {
		t.Errorf("ToGo(\"yes\") = %v, %v", got, err)
	}
	_, err := v.ToGo("maybe", nil)
	if !IsInvalid(err) {
		t.Fatalf("expected Invalid, got %v", err)
	}
	if !strings.Contains(err.Error(), ";") {
		t.Errorf("expected aggregated messages, got %q", err.Error())
	}
}

func TestWithDefault(t *testing.T) {
	v := WithDefault(Int(), int64(10))

	if got, _ := v.ToGo("", nil); got != int64(10) {
		t.Errorf("ToGo(\"\") = %v, want 10", got)
	}
	if got, _ := v.ToGo(nil, nil); got != int64(10) {
		t.Errorf("ToGo(nil) = %v, want 10", got)
	}
	if got, _ := v.ToGo("3", nil); got != int64(3) {
		t.Errorf("ToGo(\"3\") = %v, want 3", got)
	}
}

func TestIfInvalid(t *testing.T) {
	v := IfInvalid(Int(), int64(-1))

	if got, _ := v.ToGo("garbage", nil); got != int64(-1) {
		t.Errorf("ToGo(\"garbage\") = %v, want -1", got)
	}
	if got, _ := v.ToGo("5", nil); got != int64(5) {
		t.Errorf("ToGo(\"5\") = %v, want 5", got)
	}
}

func TestWrapper(t *testing.T) {
	v := Wrapper(func(value any) (any, error) {
		s, ok := value.(string)
		if !ok {
			return nil, errors.New("not a string")
		}
		return strings.ToUpper(s), nil
	})

	if got, err := v.ToGo("abc", nil); err != nil || got != "ABC" {
		t.Errorf("ToGo(\"abc\") = %v, %v", got, err)
	}
	_, err := v.ToGo(3, nil)
	if !IsInvalid(err) {
		t.Fatalf("expected Invalid, got %v", err)
	}
	if !strings.Contains(err.Error(), "not a string") {
		t.Errorf("expected wrapped reason, got %q", err.Error())
	}
}

func TestConstant(t *testing.T) {
	v := Constant("X")
	if got, _ := v.ToGo("anything", nil); got != "X" {
		t.Errorf("ToGo = %v, want X", got)
	}
}

func TestConfirmType(t *testing.T) {
	v := ConfirmType("", 0)

	if err := v.ValidateGo("s", nil); err != nil {
		t.Errorf("ValidateGo(\"s\") failed: %v", err)
	}
	if err := v.ValidateGo(3, nil); err != nil {
		t.Errorf("ValidateGo(3) failed: %v", err)
	}
	if err := v.ValidateGo(3.0, nil); !IsInvalid(err) {
		t.Errorf("expected Invalid for float, got %v", err)
	}
}

func TestDictConverter(t *testing.T) {
	v := DictConverter(map[any]any{"one": 1, "two": 2})

	if got, err := v.ToGo("one", nil); err != nil || got != 1 {
		t.Errorf("ToGo(\"one\") = %v, %v", got, err)
	}
	if _, err := v.ToGo("three", nil); !IsInvalid(err) {
		t.Errorf("expected Invalid, got %v", err)
	}
	if got, err := v.FromGo(2, nil); err != nil || got != "two" {
		t.Errorf("FromGo(2) = %v, %v", got, err)
	}
}

func TestIndexListConverter(t *testing.T) {
	v := IndexListConverter([]any{"zero", "one", "two"})

	if got, err := v.ToGo(1, nil); err != nil || got != "one" {
		t.Errorf("ToGo(1) = %v, %v", got, err)
	}
	if got, err := v.ToGo("2", nil); err != nil || got != "two" {
		t.Errorf("ToGo(\"2\") = %v, %v", got, err)
	}
	if _, err := v.ToGo(9, nil); !IsInvalid(err) {
		t.Errorf("expected Invalid for out-of-range index, got %v", err)
	}
	if got, err := v.FromGo("one", nil); err != nil || got != 1 {
		t.Errorf("FromGo(\"one\") = %v, %v", got, err)
	}
}

func TestRegexStrip(t *testing.T) {
	v := RegexStrip(`^[a-z]+$`)

	if got, err := v.ToGo("  abc  ", nil); err != nil || got != "abc" {
		t.Errorf("ToGo = %v, %v", got, err)
	}
	if _, err := v.ToGo("ABC", nil); !IsInvalid(err) {
		t.Errorf("expected Invalid, got %v", err)
	}
}

func TestFieldsMatch(t *testing.T) {
	v := FieldsMatch([]string{"password", "confirm"})

	ok := Record{"password": "a", "confirm": "a"}
	if err := v.ValidateGo(ok, nil); err != nil {
		t.Errorf("ValidateGo failed: %v", err)
	}

	bad := Record{"password": "a", "confirm": "b"}
	err := v.ValidateGo(bad, nil)
	if !IsInvalid(err) {
		t.Fatalf("expected Invalid, got %v", err)
	}
	var inv *Invalid
	errors.As(err, &inv)
	if _, ok := inv.Fields["confirm"]; !ok {
		t.Errorf("expected a per-field error for confirm, got %v", inv.Fields)
	}
}

func TestStripField(t *testing.T) {
	v := StripField("token")

	out, err := v.ToGo(Record{"token": "t", "name": "n"}, nil)
	if err != nil {
		t.Fatalf("ToGo failed: %v", err)
	}
	s := out.(Stripped)
	if s.Value != "t" {
		t.Errorf("stripped value = %v", s.Value)
	}
	if _, ok := s.Record["token"]; ok {
		t.Error("token still present in record")
	}

	back, err := v.FromGo(s, nil)
	if err != nil {
		t.Fatalf("FromGo failed: %v", err)
	}
	if back.(Record)["token"] != "t" {
		t.Errorf("round-trip lost the field: %v", back)
	}
}

func TestWithMessage_Override(t *testing.T) {
	v := NotEmpty(WithMessage("empty", "required field"))
	_, err := v.ToGo("", nil)
	if err == nil || err.Error() != "required field" {
		t.Errorf("expected overridden message, got %v", err)
	}
}

func TestMessageTemplating(t *testing.T) {
	v := MaxLength(5)
	_, err := v.ToGo("abcdef", nil)
	if err == nil || !strings.Contains(err.Error(), "5") {
		t.Errorf("expected the bound in the message, got %v", err)
	}
}
