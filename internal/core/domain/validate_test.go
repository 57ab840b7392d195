package domain

import "testing"

func TestIsValidSolanaAddress(t *testing.T) {
	valid := []string{
		"7Np41oeYqPefeNQEHSv1UDhYrehxin3NStELsSKCT4K2",
		"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
	}
	for _, addr := range valid {
		if !IsValidSolanaAddress(addr) {
			t.Errorf("IsValidSolanaAddress(%q) = false, want true", addr)
		}
	}

	invalid := []string{
		"",
		"too-short",
		"7Np41oeYqPefeNQEHSv1UDhYrehxin3NStELsSKC",        // 40 chars
		"0Np41oeYqPefeNQEHSv1UDhYrehxin3NStELsSKCT4K2",    // leading 0 is not base58
		"7Np41oeYqPefeNQEHSv1UDhYrehxin3NStELsSKCT4K2XXX", // too long
		"7Np41oeYqPefeNQEHSv1UDhYrehxin3NStELsSKCT4KO",    // O is not base58
	}
	for _, addr := range invalid {
		if IsValidSolanaAddress(addr) {
			t.Errorf("IsValidSolanaAddress(%q) = true, want false", addr)
		}
	}
}

func TestIsValidSymbol(t *testing.T) {
	for _, sym := range []string{"A", "SOL", "BONK", "ABCDE"} {
		if !IsValidSymbol(sym) {
			t.Errorf("IsValidSymbol(%q) = false, want true", sym)
		}
	}
	for _, sym := range []string{"", "sol", "TOOLONG", "SO1", "SO L"} {
		if IsValidSymbol(sym) {
			t.Errorf("IsValidSymbol(%q) = true, want false", sym)
		}
	}
}
