// Package tokens issues and verifies the platform's bearer credentials:
// short-lived access token JWTs, opaque refresh tokens, and opaque personal
// access tokens (spec §4.4, component C4).
package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
)

// AccessClaims are the JWT claims minted for an OAuth access token. "tid"
// scopes the token to a single workspace (spec §4.6, cross-workspace
// isolation).
type AccessClaims struct {
	jwt.RegisteredClaims
	WorkspaceID string   `json:"tid"`
	Scopes      []string `json:"scope"`
	ClientID    string   `json:"client_id"`
}

// Issuer mints and verifies access token JWTs with a single HMAC key.
type Issuer struct {
	signingKey []byte
	ttl        time.Duration
}

func NewIssuer(signingKey string, ttl time.Duration) *Issuer {
	return &Issuer{signingKey: []byte(signingKey), ttl: ttl}
}

// IssueAccessToken mints a signed JWT for userID acting through clientID,
// scoped to workspaceID with the given scopes.
func (i *Issuer) IssueAccessToken(userID, workspaceID, clientID string, scopes []string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(i.ttl)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		WorkspaceID: workspaceID,
		Scopes:      scopes,
		ClientID:    clientID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.signingKey)
	if err != nil {
		return "", time.Time{}, apperrors.NewInternal(err, "tokens: sign access token")
	}
	return signed, expiresAt, nil
}

// VerifyAccessToken validates signature and expiry and returns the claims.
func (i *Issuer) VerifyAccessToken(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.signingKey, nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.NewUnauthenticated("tokens: invalid or expired access token")
	}
	return claims, nil
}

// opaqueSecret generates a random, URL-safe opaque token value of n raw
// bytes, used for refresh tokens and PATs (never JWTs — those are never
// revocable without a blocklist, spec §4.4).
func opaqueSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", apperrors.NewInternal(err, "tokens: generate random secret")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashSecret returns the SHA-256 hex digest of an opaque token, the value
// actually persisted (spec §4.4: raw tokens are never stored).
func HashSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
