package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var hexKey = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestComputeDeterministic(t *testing.T) {
	a := Compute("q-1", "How do I learn data science?", "CS101")
	b := Compute("q-1", "How do I learn data science?", "CS101")

	assert.Equal(t, a, b)
	assert.Regexp(t, hexKey, a)
}

func TestComputeMatchesDelimitedDigest(t *testing.T) {
	sum := sha256.Sum256([]byte("q1|question|CS101"))
	assert.Equal(t, hex.EncodeToString(sum[:]), Compute("q1", "question", "CS101"))
}

func TestComputeFieldBoundaries(t *testing.T) {
	assert.NotEqual(t, Compute("q1", "a", "bc"), Compute("q1", "ab", "c"))
	assert.NotEqual(t, Compute("q1", "a", "bc"), Compute("q2", "ab", "c"))
	assert.NotEqual(t, Compute("a", "b", ""), Compute("", "a", "b"))
}

func TestComputeCaseSensitive(t *testing.T) {
	assert.NotEqual(t, Compute("q1", "Python", "CS101"), Compute("q1", "python", "CS101"))
	assert.NotEqual(t, Compute("q1", "question", "cs101"), Compute("q1", "question", "CS101"))
}

func TestComputeEdgeInputs(t *testing.T) {
	tests := []struct {
		name                       string
		queryLogID, question, code string
	}{
		{"empty", "", "", ""},
		{"thai", "q-9", "อยากเรียนการเขียนโปรแกรม", "01204111"},
		{"emoji", "q-10", "learn 🐍 python", "CS-🐍"},
		{"newlines", "q-11", "line one\nline two", "X\t1"},
	}

	seen := make(map[string]string)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := Compute(tt.queryLogID, tt.question, tt.code)
			assert.Regexp(t, hexKey, key)
			_, dup := seen[key]
			assert.False(t, dup, "collision with %s", seen[key])
			seen[key] = tt.name
		})
	}
}
