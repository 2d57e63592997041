// Package fingerprint derives the cache key for a single (question, course)
// evaluation unit.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

const separator = "|"

// Compute returns the lowercase hex SHA-256 of queryLogID|question|subjectCode.
func Compute(queryLogID, question, subjectCode string) string {
	sum := sha256.Sum256([]byte(queryLogID + separator + question + separator + subjectCode))
	return hex.EncodeToString(sum[:])
}
