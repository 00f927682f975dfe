package referral

import (
	"crypto/rand"
	"fmt"
)

// Crockford base32: no I, L, O or U, so codes survive being read aloud.
const alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const CodeLength = 8

// MaxLength bounds codes accepted for lookup. Older accounts carry codes
// of other lengths and letter cases.
const MaxLength = 32

// NewCode returns a random referral code of CodeLength characters (40 bits).
func NewCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("referral: read random: %w", err)
	}

	// len(alphabet) divides 256, so the modulo is unbiased
	out := make([]byte, CodeLength)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out), nil
}

// IsWellFormed reports whether code has the shape of a stored referral
// code: 1 to MaxLength ASCII letters or digits. Anything else cannot match
// an account and is not worth a lookup.
func IsWellFormed(code string) bool {
	if len(code) == 0 || len(code) > MaxLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z') {
			return false
		}
	}
	return true
}
