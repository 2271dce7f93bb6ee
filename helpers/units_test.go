package helpers

import (
	"errors"
	"math/big"
	"strings"
	"testing"
)

func TestParseEther(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0.5", "500000000000000000"},
		{"1", "1000000000000000000"},
		{"12.25", "12250000000000000000"},
		{".25", "250000000000000000"},
		{"5.", "5000000000000000000"},
		{" 0.000000000000000001 ", "1"},
		{"0", "0"},
		{"000.000", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEther(tt.in)
			if err != nil {
				t.Fatalf("ParseEther(%q) returned error: %v", tt.in, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseEther(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseEther_FailsClosed(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"-1",
		"-0.5",
		"abc",
		"1e18",
		"0x10",
		"1.2.3",
		".",
		"+1",
		"1,5",
		"0.0000000000000000001", // 19 decimals would truncate
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			got, err := ParseEther(in)
			if err == nil {
				t.Fatalf("ParseEther(%q) = %s, expected an error", in, got)
			}
			if !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("error %v does not wrap ErrInvalidAmount", err)
			}
		})
	}
}

func TestFormatEther(t *testing.T) {
	tests := []struct {
		wei  string
		want string
	}{
		{"0", "0.0"},
		{"500000000000000000", "0.5"},
		{"1000000000000000000", "1.0"},
		{"12250000000000000000", "12.25"},
		{"1", "0.000000000000000001"},
		{"-500000000000000000", "-0.5"},
	}

	for _, tt := range tests {
		wei, _ := new(big.Int).SetString(tt.wei, 10)
		if got := FormatEther(wei); got != tt.want {
			t.Errorf("FormatEther(%s) = %q, want %q", tt.wei, got, tt.want)
		}
	}

	if got := FormatEther(nil); got != "0.0" {
		t.Errorf("FormatEther(nil) = %q, want 0.0", got)
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, in := range []string{"0.5", "3.14159", "100.0", "0.000001"} {
		wei, err := ParseEther(in)
		if err != nil {
			t.Fatalf("ParseEther(%q): %v", in, err)
		}
		back, err := ParseEther(FormatEther(wei))
		if err != nil {
			t.Fatalf("ParseEther(FormatEther(%s)): %v", wei, err)
		}
		if back.Cmp(wei) != 0 {
			t.Errorf("round trip of %q changed value: %s -> %s", in, wei, back)
		}
	}
}

func TestFormatEtherFixed(t *testing.T) {
	wei, _ := new(big.Int).SetString("1234500000000000000", 10)
	if got := FormatEtherFixed(wei, 4); got != "1.2345" {
		t.Errorf("FormatEtherFixed = %q, want 1.2345", got)
	}
	if got := FormatEtherFixed(nil, 4); got != "0.0000" {
		t.Errorf("FormatEtherFixed(nil) = %q, want 0.0000", got)
	}
	if got := FormatETH(wei); !strings.HasSuffix(got, " ETH") {
		t.Errorf("FormatETH = %q, want ETH suffix", got)
	}
}
