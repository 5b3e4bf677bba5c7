package httpapi

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/authz"
	"github.com/amd-aig-aima/bimserver/internal/entitystore"
	"github.com/amd-aig-aima/bimserver/internal/tokens"
)

// patTokenPrefix identifies an opaque personal access token, as opposed
// to a signed JWT access token, in the Authorization header (spec §4.4).
const patTokenPrefix = "pat_"

// AuthMiddleware resolves the bearer credential on every request into an
// authz.Principal. A credential starting with "pat_" is looked up as a
// personal access token; any other credential is verified as a signed
// access token JWT. There is no fallback from one kind to the other.
func AuthMiddleware(store entitystore.Store, issuer *tokens.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			RespondError(c, apperrors.NewUnauthenticated("httpapi: missing bearer token"))
			c.Abort()
			return
		}

		var principal *authz.Principal
		var err error
		if strings.HasPrefix(raw, patTokenPrefix) {
			principal, err = authenticatePAT(c, store, raw)
		} else {
			principal, err = authenticateAccessToken(issuer, raw)
		}
		if err != nil {
			RespondError(c, err)
			c.Abort()
			return
		}

		ctx := authz.WithPrincipal(c.Request.Context(), principal)
		c.Request = c.Request.WithContext(ctx)
		c.Set("principal", principal)
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

func authenticateAccessToken(issuer *tokens.Issuer, raw string) (*authz.Principal, error) {
	claims, err := issuer.VerifyAccessToken(raw)
	if err != nil {
		return nil, err
	}
	return authz.NewPrincipal(claims.Subject, claims.WorkspaceID, claims.ClientID, claims.Scopes), nil
}

func authenticatePAT(c *gin.Context, store entitystore.Store, raw string) (*authz.Principal, error) {
	pat, err := store.GetPersonalAccessTokenByHash(c.Request.Context(), tokens.HashSecret(raw))
	if err != nil {
		return nil, apperrors.NewUnauthenticated("httpapi: unknown personal access token")
	}
	if pat.IsRevoked {
		return nil, apperrors.NewUnauthenticated("httpapi: personal access token has been revoked")
	}
	if time.Now().After(pat.ExpiresAt) {
		return nil, apperrors.NewUnauthenticated("httpapi: personal access token has expired")
	}
	_ = store.TouchPersonalAccessTokenUsage(c.Request.Context(), pat.ID, c.ClientIP())
	return authz.NewPrincipal(pat.UserID, pat.WorkspaceID, "", pat.Scopes), nil
}

// PrincipalFrom reads the Principal attached by AuthMiddleware.
func PrincipalFrom(c *gin.Context) *authz.Principal {
	v, ok := c.Get("principal")
	if !ok {
		return nil
	}
	p, _ := v.(*authz.Principal)
	return p
}
