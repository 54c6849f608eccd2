package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

func newTaskID() string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// documentID derives a stable document id from the file path, so a
// re-indexed file overwrites its own entry instead of duplicating it.
func documentID(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])
}
