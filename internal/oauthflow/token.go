package oauthflow

import (
	"context"
	"time"

	"github.com/amd-aig-aima/bimserver/internal/domain"
	"github.com/amd-aig-aima/bimserver/internal/idutil"
	"github.com/amd-aig-aima/bimserver/internal/tokens"
)

// refreshTokenTTL is the spec-fixed refresh token lifetime (spec §4.4).
const refreshTokenTTL = 30 * 24 * time.Hour

// TokenRequest is the parsed token endpoint POST body, covering both
// grant types this flow supports.
type TokenRequest struct {
	GrantType    string
	Code         string
	RedirectURI  string
	ClientID     string
	ClientSecret string
	CodeVerifier string
	RefreshToken string
}

// TokenResult is the RFC 6749 §5.1 successful token response.
type TokenResult struct {
	AccessToken  string
	TokenType    string
	ExpiresIn    int
	RefreshToken string
	Scope        []string
}

// Exchange dispatches to the requested grant type (spec §4.5 step 8).
func (f *Flow) Exchange(ctx context.Context, req TokenRequest) (*TokenResult, *Error) {
	switch req.GrantType {
	case "authorization_code":
		return f.exchangeAuthorizationCode(ctx, req)
	case "refresh_token":
		return f.exchangeRefreshToken(ctx, req)
	default:
		return nil, newErr(ErrUnsupportedGrant, "unsupported grant_type %q", req.GrantType)
	}
}

func (f *Flow) authenticateClient(ctx context.Context, clientID, clientSecret string) (*domain.OAuthApp, *Error) {
	app, err := f.store.GetOAuthAppByClientID(ctx, clientID)
	if err != nil {
		return nil, newErr(ErrInvalidClient, "unknown client_id %q", clientID)
	}
	if !app.IsEnabled {
		return nil, newErr(ErrInvalidClient, "client %q is disabled", clientID)
	}
	if app.ClientType == domain.ClientConfidential {
		if err := tokens.VerifyClientSecret(app.ClientSecretHash, clientSecret); err != nil {
			return nil, newErr(ErrInvalidClient, "client secret verification failed")
		}
	}
	return app, nil
}

func (f *Flow) exchangeAuthorizationCode(ctx context.Context, req TokenRequest) (*TokenResult, *Error) {
	app, aerr := f.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if aerr != nil {
		return nil, aerr
	}

	code, err := f.store.GetAuthorizationCodeByHash(ctx, tokens.HashSecret(req.Code))
	if err != nil {
		return nil, newErr(ErrInvalidGrant, "authorization code is unknown")
	}
	if code.IsUsed {
		return nil, newErr(ErrInvalidGrant, "authorization code has already been used")
	}
	if time.Now().After(code.ExpiresAt) {
		return nil, newErr(ErrInvalidGrant, "authorization code has expired")
	}
	if code.OAuthAppID != app.ID {
		return nil, newErr(ErrInvalidGrant, "authorization code was not issued to this client")
	}
	if code.RedirectURI != req.RedirectURI {
		return nil, newErr(ErrInvalidGrant, "redirect_uri does not match the authorization request")
	}
	if app.ClientType == domain.ClientPublic {
		if err := tokens.VerifyPKCE(code.CodeChallengeMethod, code.CodeChallenge, req.CodeVerifier); err != nil {
			return nil, newErr(ErrInvalidGrant, "pkce verification failed")
		}
	}

	if err := f.store.MarkAuthorizationCodeUsed(ctx, code.ID); err != nil {
		return nil, newErr(ErrInvalidGrant, "failed to finalize authorization code")
	}

	return f.issueTokenPair(ctx, app, code.UserID, code.WorkspaceID, code.Scopes, "")
}

func (f *Flow) exchangeRefreshToken(ctx context.Context, req TokenRequest) (*TokenResult, *Error) {
	app, aerr := f.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if aerr != nil {
		return nil, aerr
	}

	current, err := f.store.GetRefreshTokenByHash(ctx, tokens.HashSecret(req.RefreshToken))
	if err != nil {
		return nil, newErr(ErrInvalidGrant, "refresh token is unknown")
	}
	if current.OAuthAppID != app.ID {
		return nil, newErr(ErrInvalidGrant, "refresh token was not issued to this client")
	}
	if current.IsRevoked {
		// Reuse of a revoked token signals theft of the whole family
		// (spec §4.4): revoke everything descended from it and refuse.
		_ = f.store.RevokeRefreshTokenFamily(ctx, current.TokenFamilyID, domain.ReasonTokenReuse)
		_ = f.store.CreateAuditLog(ctx, &domain.AuditLog{
			ID:        idutil.NewUID(),
			SubjectID: current.UserID,
			EventType: "refresh_token_reuse_detected",
			Timestamp: time.Now(),
			Details:   "token family " + current.TokenFamilyID + " revoked",
		})
		return nil, newErr(ErrInvalidGrant, "refresh token has been revoked")
	}
	if time.Now().After(current.ExpiresAt) {
		return nil, newErr(ErrInvalidGrant, "refresh token has expired")
	}

	raw, err := tokens.NewRefreshSecret()
	if err != nil {
		return nil, newErr(ErrInvalidGrant, "failed to issue replacement refresh token")
	}
	replacement := &domain.RefreshToken{
		ID:            idutil.NewUID(),
		TokenHash:     tokens.HashSecret(raw),
		OAuthAppID:    app.ID,
		UserID:        current.UserID,
		WorkspaceID:   current.WorkspaceID,
		Scopes:        current.Scopes,
		CreatedAt:     time.Now(),
		ExpiresAt:     time.Now().Add(refreshTokenTTL),
		ParentTokenID: current.ID,
		TokenFamilyID: current.TokenFamilyID,
	}
	if err := f.store.ReplaceRefreshToken(ctx, current.ID, replacement); err != nil {
		return nil, newErr(ErrInvalidGrant, "failed to rotate refresh token")
	}

	access, expiresAt, err := f.issuer.IssueAccessToken(current.UserID, current.WorkspaceID, app.ClientID, current.Scopes)
	if err != nil {
		return nil, newErr(ErrInvalidGrant, "failed to issue access token")
	}
	return &TokenResult{
		AccessToken:  access,
		TokenType:    "Bearer",
		ExpiresIn:    int(time.Until(expiresAt).Seconds()),
		RefreshToken: raw,
		Scope:        current.Scopes,
	}, nil
}

// issueTokenPair mints an access token and a brand-new refresh token
// family for a freshly-redeemed authorization code (spec §4.5 step 9).
func (f *Flow) issueTokenPair(ctx context.Context, app *domain.OAuthApp, userID, workspaceID string, scopes []string, _ string) (*TokenResult, *Error) {
	access, expiresAt, err := f.issuer.IssueAccessToken(userID, workspaceID, app.ClientID, scopes)
	if err != nil {
		return nil, newErr(ErrInvalidGrant, "failed to issue access token")
	}

	raw, err := tokens.NewRefreshSecret()
	if err != nil {
		return nil, newErr(ErrInvalidGrant, "failed to issue refresh token")
	}
	familyID := idutil.NewUID()
	refresh := &domain.RefreshToken{
		ID:            idutil.NewUID(),
		TokenHash:     tokens.HashSecret(raw),
		OAuthAppID:    app.ID,
		UserID:        userID,
		WorkspaceID:   workspaceID,
		Scopes:        scopes,
		CreatedAt:     time.Now(),
		ExpiresAt:     time.Now().Add(refreshTokenTTL),
		TokenFamilyID: familyID,
	}
	if err := f.store.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, newErr(ErrInvalidGrant, "failed to persist refresh token")
	}

	return &TokenResult{
		AccessToken:  access,
		TokenType:    "Bearer",
		ExpiresIn:    int(time.Until(expiresAt).Seconds()),
		RefreshToken: raw,
		Scope:        scopes,
	}, nil
}
