package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// ShortHash returns the first n hex characters of the SHA-256 of s. n outside
// 1..64 returns the full digest.
func ShortHash(s string, n int) string {
	sum := sha256.Sum256([]byte(s))
	out := hex.EncodeToString(sum[:])
	if n <= 0 || n >= len(out) {
		return out
	}
	return out[:n]
}
