// Package state records what a generation run wrote so the next run can
// prune units of headers that disappeared, and so generated output can be
// checked against a fresh render.
package state

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/efebarandurmaz/framebind/internal/assembler"
)

// HashContent returns the hex SHA-256 of data.
func HashContent(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Fingerprints maps each unit path to the hash of its content.
func Fingerprints(units []assembler.Unit) map[string]string {
	out := make(map[string]string, len(units))
	for _, u := range units {
		out[u.Path] = HashContent(u.Content)
	}
	return out
}
