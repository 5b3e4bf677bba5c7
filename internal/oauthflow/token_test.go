package oauthflow

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"

	"github.com/amd-aig-aima/bimserver/internal/domain"
	"github.com/amd-aig-aima/bimserver/internal/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issueCodeFor(t *testing.T, flow *Flow, store *fakeStore, app *domain.OAuthApp, verifier string) string {
	t.Helper()
	store.apps[app.ID] = app
	req := AuthorizeRequest{
		ResponseType: "code",
		Scope:        []string{domain.ScopeProjectsRead},
		RedirectURI:  app.RedirectURIs[0],
	}
	if verifier != "" {
		req.CodeChallenge = pkceS256(verifier)
		req.CodeChallengeMethod = domain.ChallengeS256
	}
	raw, err := flow.IssueAuthorizationCode(context.Background(), app, "user1", "ws1", req)
	require.NoError(t, err)
	return raw
}

func pkceS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func TestExchange_AuthorizationCodeConfidentialHappyPath(t *testing.T) {
	flow, store := newFlow()
	app := confidentialApp()
	code := issueCodeFor(t, flow, store, app, "")

	result, oerr := flow.Exchange(context.Background(), TokenRequest{
		GrantType: "authorization_code", Code: code, RedirectURI: app.RedirectURIs[0],
		ClientID: app.ClientID, ClientSecret: "s3cret",
	})
	require.Nil(t, oerr)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, "Bearer", result.TokenType)
}

func TestExchange_AuthorizationCodeRejectsReuse(t *testing.T) {
	flow, store := newFlow()
	app := confidentialApp()
	code := issueCodeFor(t, flow, store, app, "")

	tokenReq := TokenRequest{GrantType: "authorization_code", Code: code, RedirectURI: app.RedirectURIs[0], ClientID: app.ClientID, ClientSecret: "s3cret"}
	_, first := flow.Exchange(context.Background(), tokenReq)
	require.Nil(t, first)

	_, second := flow.Exchange(context.Background(), tokenReq)
	require.NotNil(t, second)
	assert.Equal(t, ErrInvalidGrant, second.Code)
}

func TestExchange_AuthorizationCodeRejectsRedirectURIMismatch(t *testing.T) {
	flow, store := newFlow()
	app := confidentialApp()
	code := issueCodeFor(t, flow, store, app, "")

	_, oerr := flow.Exchange(context.Background(), TokenRequest{
		GrantType: "authorization_code", Code: code, RedirectURI: "https://evil.example.com/cb",
		ClientID: app.ClientID, ClientSecret: "s3cret",
	})
	require.NotNil(t, oerr)
	assert.Equal(t, ErrInvalidGrant, oerr.Code)
}

func TestExchange_AuthorizationCodeRejectsWrongClientSecret(t *testing.T) {
	flow, store := newFlow()
	app := confidentialApp()
	code := issueCodeFor(t, flow, store, app, "")

	_, oerr := flow.Exchange(context.Background(), TokenRequest{
		GrantType: "authorization_code", Code: code, RedirectURI: app.RedirectURIs[0],
		ClientID: app.ClientID, ClientSecret: "wrong",
	})
	require.NotNil(t, oerr)
	assert.Equal(t, ErrInvalidClient, oerr.Code)
}

func TestExchange_AuthorizationCodePublicClientRejectsWrongVerifier(t *testing.T) {
	flow, store := newFlow()
	app := publicApp()
	code := issueCodeFor(t, flow, store, app, "verifier-value-xyz")

	_, badVerifier := flow.Exchange(context.Background(), TokenRequest{
		GrantType: "authorization_code", Code: code, RedirectURI: app.RedirectURIs[0],
		ClientID: app.ClientID, CodeVerifier: "wrong-verifier",
	})
	require.NotNil(t, badVerifier)
	assert.Equal(t, ErrInvalidGrant, badVerifier.Code)
}

func TestExchange_UnsupportedGrantType(t *testing.T) {
	flow, _ := newFlow()
	_, oerr := flow.Exchange(context.Background(), TokenRequest{GrantType: "password"})
	require.NotNil(t, oerr)
	assert.Equal(t, ErrUnsupportedGrant, oerr.Code)
}

func TestExchange_RefreshTokenRotatesAndReturnsNewPair(t *testing.T) {
	flow, store := newFlow()
	app := confidentialApp()
	code := issueCodeFor(t, flow, store, app, "")
	first, oerr := flow.Exchange(context.Background(), TokenRequest{
		GrantType: "authorization_code", Code: code, RedirectURI: app.RedirectURIs[0],
		ClientID: app.ClientID, ClientSecret: "s3cret",
	})
	require.Nil(t, oerr)

	second, oerr := flow.Exchange(context.Background(), TokenRequest{
		GrantType: "refresh_token", RefreshToken: first.RefreshToken,
		ClientID: app.ClientID, ClientSecret: "s3cret",
	})
	require.Nil(t, oerr)
	assert.NotEmpty(t, second.AccessToken)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
}

func TestExchange_RefreshTokenReuseRevokesWholeFamily(t *testing.T) {
	flow, store := newFlow()
	app := confidentialApp()
	code := issueCodeFor(t, flow, store, app, "")
	first, oerr := flow.Exchange(context.Background(), TokenRequest{
		GrantType: "authorization_code", Code: code, RedirectURI: app.RedirectURIs[0],
		ClientID: app.ClientID, ClientSecret: "s3cret",
	})
	require.Nil(t, oerr)

	refreshReq := TokenRequest{GrantType: "refresh_token", RefreshToken: first.RefreshToken, ClientID: app.ClientID, ClientSecret: "s3cret"}
	second, oerr := flow.Exchange(context.Background(), refreshReq)
	require.Nil(t, oerr)

	// Replaying the already-rotated (now revoked) refresh token must nuke
	// the whole family, including the token that replaced it.
	_, reuseErr := flow.Exchange(context.Background(), refreshReq)
	require.NotNil(t, reuseErr)
	assert.Equal(t, ErrInvalidGrant, reuseErr.Code)

	_, thirdErr := flow.Exchange(context.Background(), TokenRequest{
		GrantType: "refresh_token", RefreshToken: second.RefreshToken, ClientID: app.ClientID, ClientSecret: "s3cret",
	})
	require.NotNil(t, thirdErr)
	assert.Equal(t, ErrInvalidGrant, thirdErr.Code)
	// Both the replay and the later use of the revoked replacement are
	// presentations of a revoked token, so each one is audited.
	assert.Len(t, store.auditLogs, 2)
}

func TestExchange_RefreshTokenExpired(t *testing.T) {
	flow, store := newFlow()
	app := confidentialApp()
	store.apps[app.ID] = app
	raw, err := tokens.NewRefreshSecret()
	require.NoError(t, err)
	store.refreshTokens[tokens.HashSecret(raw)] = &domain.RefreshToken{
		ID: "rt1", TokenHash: tokens.HashSecret(raw), OAuthAppID: app.ID, UserID: "user1",
		WorkspaceID: "ws1", TokenFamilyID: "fam1", ExpiresAt: time.Now().Add(-time.Hour),
	}

	_, oerr := flow.Exchange(context.Background(), TokenRequest{
		GrantType: "refresh_token", RefreshToken: raw, ClientID: app.ClientID, ClientSecret: "s3cret",
	})
	require.NotNil(t, oerr)
	assert.Equal(t, ErrInvalidGrant, oerr.Code)
}
