package tokens

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
)

// HashClientSecret bcrypt-hashes a confidential OAuth app's client secret
// before it is persisted (spec §4.4), the way the teacher's local auth
// provider hashes user passwords.
func HashClientSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", apperrors.NewInternal(err, "tokens: hash client secret")
	}
	return string(hash), nil
}

// VerifyClientSecret compares a candidate secret against its bcrypt hash.
func VerifyClientSecret(hash, candidate string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)); err != nil {
		return apperrors.NewUnauthenticated("tokens: invalid client secret")
	}
	return nil
}
