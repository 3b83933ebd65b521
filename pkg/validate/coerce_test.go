package validate

import (
	"testing"
)

func TestBool_ToGo(t *testing.T) {
	v := Bool()

	tests := []struct {
		name  string
		input any
		want  bool
	}{
		{"empty string", "", false},
		{"zero string", "0", true},
		{"zero int", 0, false},
		{"nil", nil, false},
		{"false", false, false},
		{"true", true, true},
		{"nonzero int", 3, true},
		{"zero float", 0.0, false},
		{"arbitrary value", struct{}{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.ToGo(tt.input, nil)
			if err != nil {
				t.Fatalf("ToGo(%v) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ToGo(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNumber_ToGo(t *testing.T) {
	v := Number()

	t.Run("integral float string becomes integer", func(t *testing.T) {
		got, err := v.ToGo("1.0", nil)
		if err != nil {
			t.Fatalf("ToGo failed: %v", err)
		}
		if got != int64(1) {
			t.Errorf("ToGo(\"1.0\") = %#v, want int64(1)", got)
		}
	})

	t.Run("longer integral form also normalizes", func(t *testing.T) {
		got, err := v.ToGo("1.00", nil)
		if err != nil {
			t.Fatalf("ToGo failed: %v", err)
		}
		if got != int64(1) {
			t.Errorf("ToGo(\"1.00\") = %#v, want int64(1)", got)
		}
	})

	t.Run("fractional stays float", func(t *testing.T) {
		got, err := v.ToGo("1.5", nil)
		if err != nil {
			t.Fatalf("ToGo failed: %v", err)
		}
		if got != 1.5 {
			t.Errorf("ToGo(\"1.5\") = %#v, want 1.5", got)
		}
	})

	t.Run("garbage fails", func(t *testing.T) {
		_, err := v.ToGo("abc", nil)
		if !IsInvalid(err) {
			t.Errorf("expected Invalid, got %v", err)
		}
	})
}

func TestString_FromGo(t *testing.T) {
	v := String()

	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"nil becomes empty", nil, ""},
		{"zero becomes 0", 0, "0"},
		{"number", 42, "42"},
		{"passthrough", "abc", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.FromGo(tt.input, nil)
			if err != nil {
				t.Fatalf("FromGo(%v) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("FromGo(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestInt_ToGo(t *testing.T) {
	v := Int()

	if got, err := v.ToGo(" 12 ", nil); err != nil || got != int64(12) {
		t.Errorf("ToGo(\" 12 \") = %v, %v", got, err)
	}
	if got, err := v.ToGo(7.0, nil); err != nil || got != int64(7) {
		t.Errorf("ToGo(7.0) = %v, %v", got, err)
	}
	if _, err := v.ToGo(7.5, nil); !IsInvalid(err) {
		t.Errorf("expected Invalid for 7.5, got %v", err)
	}
	if _, err := v.ToGo("x", nil); !IsInvalid(err) {
		t.Errorf("expected Invalid for \"x\", got %v", err)
	}
}
