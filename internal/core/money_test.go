package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"12.34", 1234, true},
		{"12,34", 1234, true},
		{"12", 1200, true},
		{"0.5", 50, true},
		{"0", 0, true},
		{"12.345", 1234, true}, // rounds down
		{"12.346", 1235, true}, // rounds up
		{".99", 99, true},
		{"-5", 0, false},
		{"+5", 0, false},
		{"1.2.3", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"12.3a", 0, false},
		{"92233720368547757.99", 9223372036854775799, true}, // largest representable amount
		{"92233720368547758.08", 0, false},                  // whole part would overflow with cents added
		{"99999999999999999999", 0, false},
	}
	for i, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("case %d: ParseDecimalToCents(%q) error: %v", i, tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("case %d: ParseDecimalToCents(%q) = %d, want %d", i, tc.in, got, tc.want)
			}
			continue
		}
		if err == nil {
			t.Fatalf("case %d: expected error for %q", i, tc.in)
		}
	}
}

func TestCentsFromFloat(t *testing.T) {
	cases := []struct {
		in   float64
		want int64
		ok   bool
	}{
		{12.34, 1234, true},
		{0, 0, true},
		{12.344, 1234, true}, // rounds down
		{12.346, 1235, true}, // rounds up
		{-0.01, 0, false},
	}
	for i, tc := range cases {
		got, err := CentsFromFloat(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("case %d: CentsFromFloat(%v) = %d, %v; want %d", i, tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d: expected error for %v", i, tc.in)
		}
	}
}

func TestDollars(t *testing.T) {
	if got := (Money{Cents: 1234}).Dollars(); got != 12.34 {
		t.Fatalf("Dollars() = %v, want 12.34", got)
	}
	if got := (Money{Cents: -50}).Dollars(); got != -0.5 {
		t.Fatalf("Dollars() = %v, want -0.5", got)
	}
}
