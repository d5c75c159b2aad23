package rules

import (
	"math"
	"testing"
	"time"
)

func TestToNumber(t *testing.T) {
	dateMs := float64(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC).UnixMilli())

	tests := []struct {
		name    string
		value   any
		want    float64
		wantNaN bool
	}{
		{name: "float64 passthrough", value: 42.5, want: 42.5},
		{name: "int to float64", value: 100, want: 100},
		{name: "int64 to float64", value: int64(999), want: 999},
		{name: "numeric string", value: "25", want: 25},
		{name: "numeric string with whitespace", value: "  42  ", want: 42},
		{name: "negative numeric string", value: "-3.5", want: -3.5},
		{name: "date string to epoch ms", value: "2024-03-01T10:00:00.000Z", want: dateMs},
		{name: "date-only string", value: "2024-03-01", want: float64(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).UnixMilli())},
		{name: "nil is NaN", value: nil, wantNaN: true},
		{name: "bool is NaN", value: true, wantNaN: true},
		{name: "empty string is NaN", value: "", wantNaN: true},
		{name: "text is NaN", value: "enterprise", wantNaN: true},
		{name: "composite is NaN", value: map[string]any{"a": 1.0}, wantNaN: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toNumber(tt.value)
			if tt.wantNaN {
				if !math.IsNaN(got) {
					t.Errorf("toNumber(%v) = %v, want NaN", tt.value, got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("toNumber(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		a, b  any
		equal bool
	}{
		{name: "case-insensitive text", a: "Enterprise", b: "enterprise", equal: true},
		{name: "int equals float", a: 5, b: 5.0, equal: true},
		{name: "numeric string is not a number", a: "5", b: 5.0, equal: false},
		{name: "null equals null", a: nil, b: nil, equal: true},
		{name: "null is not empty string", a: nil, b: "", equal: false},
		{name: "bools", a: true, b: true, equal: true},
		{name: "bool is not its text", a: true, b: "true", equal: false},
		{name: "dates in different zones", a: "2024-03-01T10:00:00Z", b: "2024-03-01T12:00:00+02:00", equal: true},
		{name: "composites by JSON", a: []any{"A", "b"}, b: []any{"a", "B"}, equal: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalize(tt.a) == normalize(tt.b)
			if got != tt.equal {
				t.Errorf("normalize(%v) == normalize(%v) is %v, want %v", tt.a, tt.b, got, tt.equal)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	got, ok := ParseDate("2024-03-01T10:00:00.123Z")
	if !ok {
		t.Fatalf("ParseDate() ok = false, want true")
	}
	if got.UnixMilli() != time.Date(2024, 3, 1, 10, 0, 0, 123e6, time.UTC).UnixMilli() {
		t.Errorf("ParseDate() = %v", got)
	}

	for _, bad := range []string{"", "   ", "not a date", "12345"} {
		if _, ok := ParseDate(bad); ok {
			t.Errorf("ParseDate(%q) ok = true, want false", bad)
		}
	}
}

func TestTargetText(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{value: nil, want: ""},
		{value: "abc", want: "abc"},
		{value: true, want: "true"},
		{value: 3.0, want: "3"},
		{value: 2.5, want: "2.5"},
		{value: []any{"a"}, want: `["a"]`},
	}

	for _, tt := range tests {
		if got := targetText(tt.value); got != tt.want {
			t.Errorf("targetText(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}
