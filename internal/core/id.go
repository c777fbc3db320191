package core

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewID generates a UUID v7 (time-ordered).
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails (should not happen).
		return uuid.New().String()
	}
	return id.String()
}

// NewSessionToken returns an opaque 256-bit token. Clients use this in
// place of the session id.
func NewSessionToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return NewID()
	}
	return hex.EncodeToString(b)
}
