// Package password holds the two pure building blocks of registration:
// the digit-run policy check and the deduplication digest.
package password

import (
	"crypto/sha256"
	"encoding/hex"
)

// maxDigitRun is the longest run of consecutive decimal digits a
// password may contain. One more and it is rejected.
const maxDigitRun = 10

// HasLongDigitRun reports whether s contains a run of more than
// maxDigitRun consecutive decimal digits. Runs are independent: any
// non-digit character resets the count.
func HasLongDigitRun(s string) bool {
	run := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			run = 0
			continue
		}
		run++
		if run > maxDigitRun {
			return true
		}
	}
	return false
}

// Hash returns the lowercase hex SHA-256 digest of the raw bytes of s.
// Deliberately unsalted: two users choosing the same password must
// produce the same digest, since digest equality is the duplicate
// signal. The audit log keeps the plaintext anyway, so this is an
// equality check, not a storage scheme.
func Hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
