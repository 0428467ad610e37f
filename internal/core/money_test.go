package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0", "0", true},
		{".5", "0.5", true},
		{" 2.50 ", "2.5", true},
		{"$50,000.50", "50000.5", true},
		{"$50,000", "50000", true},
		{"50,000", "50000", true},
		{"1,000", "1000", true},
		{"1,234,567", "1234567", true},
		{"$1,234,567.89", "1234567.89", true},
		{"12,34", "12.34", true},
		{"12,3", "12.3", true},
		{",5", "0.5", true},
		{"€ 1,000.00", "1000", true},
		{"1_000", "1000", true},
		{"-5", "-5", true},
		{"+7", "7", true},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1,2,3", "", false},
		{"1,2345", "", false},
		{"12,34.5", "", false},
		{"1,23,456", "", false},
		{"1,000,00", "", false},
		{"", "", false},
		{"-", "", false},
		{".", "", false},
		{"1e5", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error, got %s", tc.in, got)
		}
	}
}

func TestParseFloatFeedsLedger(t *testing.T) {
	v, err := ParseFloat("150")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l := NewLedger(1000)
	if e := l.UpsertEntry("a", v); e.Percentage != 100 {
		t.Fatalf("expected clamp to 100, got %v", e.Percentage)
	}
}

func TestRoundCents(t *testing.T) {
	if got := RoundCents(4111.10811).String(); got != "4111.11" {
		t.Fatalf("expected 4111.11, got %s", got)
	}
	if got := RoundCents(0.005).String(); got != "0.01" {
		t.Fatalf("expected 0.01, got %s", got)
	}
}
