// Package idutil generates the 128-bit identifiers used throughout the
// data model (spec §3: "all primary keys are 128-bit unique identifiers").
package idutil

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
)

// NewUID returns a fresh 128-bit unique identifier.
func NewUID() string {
	return uuid.New().String()
}

// OpaqueID returns 128 random bits, base64url-encoded without padding, for
// use as the opaque path segment of a storage key (spec §4.2).
func OpaqueID() string {
	var b [16]byte
	// crypto/rand.Read never returns an error as of Go 1.24.
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
