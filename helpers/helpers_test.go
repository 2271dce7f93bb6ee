package helpers

import (
	"strings"
	"testing"
)

func TestShortenAddr(t *testing.T) {
	addr := "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"
	if got := ShortenAddr(addr); got != "0xd8dA…6045" {
		t.Errorf("ShortenAddr = %q", got)
	}
	if got := ShortenAddr("0x12"); got != "0x12" {
		t.Errorf("short input should be returned unchanged, got %q", got)
	}
}

func TestPrefixAddr(t *testing.T) {
	addr := "0xBB00000000000000000000000000000000000001"
	if got := PrefixAddr(addr, 6); got != "0xBB00…" {
		t.Errorf("PrefixAddr(6) = %q", got)
	}
	if got := PrefixAddr(addr, 8); got != "0xBB0000…" {
		t.Errorf("PrefixAddr(8) = %q", got)
	}
	if got := PrefixAddr("0x1", 6); got != "0x1" {
		t.Errorf("PrefixAddr on short input = %q", got)
	}
}

func TestIsValidEthAddress(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0x89C65b5d710F00B022C6b10524649127F1C763b3", true},
		{"0x89c65b5d710f00b022c6b10524649127f1c763b3", true},
		{"89C65b5d710F00B022C6b10524649127F1C763b3", false},
		{"0x89C65b5d710F00B022C6b10524649127F1C763b3a", false}, // 41 hex chars
		{"0x89C65b5d710F00B022C6b10524649127F1C763b", false},
		{"0xZZC65b5d710F00B022C6b10524649127F1C763b3", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidEthAddress(tt.in); got != tt.want {
			t.Errorf("IsValidEthAddress(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestHyperlink(t *testing.T) {
	got := Hyperlink("https://sepolia.etherscan.io/tx/0xabc", "View")
	if !strings.Contains(got, "https://sepolia.etherscan.io/tx/0xabc") || !strings.Contains(got, "View") {
		t.Errorf("Hyperlink missing url or text: %q", got)
	}
}

func TestQRCode(t *testing.T) {
	if QRCode("") != "" {
		t.Error("QRCode of empty text should be empty")
	}
	if QRCode("https://sepolia.etherscan.io/tx/0xabc") == "" {
		t.Error("QRCode returned no output")
	}
}
