package tokens

import (
	"strings"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
)

// patSecretBytes is the size of the random secret backing a personal
// access token, before base64url encoding.
const patSecretBytes = 32

// PATPrefixLen is how many characters of the generated secret are stored
// unhashed as TokenPrefix, shown back to the user to help identify a token
// in listings without ever revealing the full secret (spec §4.4).
const PATPrefixLen = 8

// NewPersonalAccessToken generates a new opaque PAT value and its
// user-visible prefix.
func NewPersonalAccessToken() (token, prefix string, err error) {
	raw, err := opaqueSecret(patSecretBytes)
	if err != nil {
		return "", "", apperrors.Wrap(err, "tokens: new personal access token")
	}
	full := "pat_" + raw
	return full, PrefixOf(full), nil
}

// PrefixOf extracts the visible prefix of an already-generated PAT value:
// the first PATPrefixLen characters after the "pat_" marker.
func PrefixOf(token string) string {
	secret := strings.TrimPrefix(token, "pat_")
	if len(secret) <= PATPrefixLen {
		return secret
	}
	return secret[:PATPrefixLen]
}
