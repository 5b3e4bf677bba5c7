package tokens

import (
	"github.com/amd-aig-aima/bimserver/internal/apperrors"
)

// refreshTokenBytes is the size of the random secret backing a refresh
// token, before base64url encoding.
const refreshTokenBytes = 32

// NewRefreshSecret generates a new opaque refresh token value.
func NewRefreshSecret() (string, error) {
	raw, err := opaqueSecret(refreshTokenBytes)
	if err != nil {
		return "", apperrors.Wrap(err, "tokens: new refresh secret")
	}
	return "rft_" + raw, nil
}

// authCodeBytes is the size of the random secret backing an authorization
// code, before base64url encoding.
const authCodeBytes = 32

// NewAuthorizationCodeSecret generates a new opaque authorization code
// value (spec §4.5).
func NewAuthorizationCodeSecret() (string, error) {
	raw, err := opaqueSecret(authCodeBytes)
	if err != nil {
		return "", apperrors.Wrap(err, "tokens: new authorization code secret")
	}
	return "ac_" + raw, nil
}
