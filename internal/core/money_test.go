package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

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
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.5", true},
		{"0", "0", true},
		{".5", "0.5", true},
		{"3.", "3", true},
		{"-1", "", false},
		{"+1", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{".", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParseQuantity(t *testing.T) {
	if n, err := ParseQuantity(" 3 "); err != nil || n != 3 {
		t.Fatalf("expected 3, got %d (err=%v)", n, err)
	}
	for _, in := range []string{"", "0", "-2", "1.5", "x"} {
		if _, err := ParseQuantity(in); err == nil {
			t.Fatalf("%q expected error", in)
		}
	}
}

func TestFormatMoney(t *testing.T) {
	cases := map[string]string{
		"31":     "R$ 31,00",
		"4.5":    "R$ 4,50",
		"-50":    "-R$ 50,00",
		"0":      "R$ 0,00",
		"1234.5": "R$ 1234,50",
	}
	for in, want := range cases {
		if got := FormatMoney(decimal.RequireFromString(in)); got != want {
			t.Errorf("FormatMoney(%s) = %q, want %q", in, got, want)
		}
	}
}
