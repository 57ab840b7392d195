package domain

import "regexp"

// Solana addresses are base58 (no 0, O, I, l) and 43-44 characters long.
// Not a full checksum validation, but it filters out obvious junk.
var solanaAddressPattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{43,44}$`)

// IsValidSolanaAddress reports whether s is a plausible Solana address.
func IsValidSolanaAddress(s string) bool {
	return solanaAddressPattern.MatchString(s)
}

var symbolPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)

// IsValidSymbol reports whether s is a well-formed uppercase ticker.
func IsValidSymbol(s string) bool {
	return symbolPattern.MatchString(s)
}
