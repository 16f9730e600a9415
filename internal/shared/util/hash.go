package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashUserKey returns a stable, filesystem-safe identifier for an owner key
// such as an email. Keys are compared case-insensitively, so the input is
// trimmed and lowercased before hashing. Raw addresses never appear in
// storage keys.
func HashUserKey(s string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(s))))
	return hex.EncodeToString(sum[:])
}
