package tokens

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/domain"
)

// VerifyPKCE checks verifier against the stored challenge/method pair
// recorded at authorization time (spec §4.4, RFC 7636).
func VerifyPKCE(method domain.CodeChallengeMethod, challenge, verifier string) error {
	if verifier == "" {
		return apperrors.NewValidation("tokens: pkce verifier is required")
	}
	var computed string
	switch method {
	case domain.ChallengeS256:
		sum := sha256.Sum256([]byte(verifier))
		computed = base64.RawURLEncoding.EncodeToString(sum[:])
	case domain.ChallengePlain:
		computed = verifier
	default:
		return apperrors.NewValidation("tokens: unsupported code challenge method %q", method)
	}
	if subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) != 1 {
		return apperrors.NewUnauthenticated("tokens: pkce verification failed")
	}
	return nil
}
