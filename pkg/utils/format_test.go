package utils

import "testing"

func TestFormatCompact(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "₹0.00"},
		{1234.5, "₹1,234.50"},
		{-99999, "-₹99,999.00"},
		{250000, "2.50 L"},
		{12500000, "1.25 Cr"},
	}
	for _, tt := range tests {
		if got := FormatCompact(tt.in); got != tt.want {
			t.Errorf("FormatCompact(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	tests := map[float64]string{
		6:     "+6.00%",
		-4.25: "-4.25%",
		0:     "0.00%",
	}
	for in, want := range tests {
		if got := FormatPercent(in); got != want {
			t.Errorf("FormatPercent(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatStrike(t *testing.T) {
	tests := map[float64]string{
		5750:   "5750",
		252.5:  "252.5",
		247.5:  "247.5",
		0.25:   "0.25",
		100000: "100000",
	}
	for in, want := range tests {
		if got := FormatStrike(in); got != want {
			t.Errorf("FormatStrike(%v) = %q, want %q", in, got, want)
		}
	}
}
