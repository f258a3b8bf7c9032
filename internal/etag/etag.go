// Package etag computes content fingerprints for optimistic concurrency.
package etag

import (
	"crypto/sha256"
	"encoding/hex"
)

// Compute returns the fingerprint of a document's raw text: the first
// 16 hex characters of its SHA-256 digest. The value is an opaque
// version token, not an integrity check.
func Compute(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])[:16]
}

// Matches reports whether an expected fingerprint matches the current
// one. An empty expected value always matches, so callers can make the
// check opt-in.
func Matches(expected, current string) bool {
	return expected == "" || expected == current
}
