package oauthflow

import (
	"context"
	"time"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/domain"
	"github.com/amd-aig-aima/bimserver/internal/entitystore"
	"github.com/amd-aig-aima/bimserver/internal/idutil"
	"github.com/amd-aig-aima/bimserver/internal/tokens"
)

// authCodeTTL is the spec-fixed 10-minute authorization code lifetime.
const authCodeTTL = 10 * time.Minute

// AuthorizeRequest is the parsed authorization endpoint query string.
type AuthorizeRequest struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	Scope               []string
	State               string
	CodeChallenge       string
	CodeChallengeMethod domain.CodeChallengeMethod
}

// Flow wires the Entity Store and Token Service into the OAuth
// authorization-code grant.
type Flow struct {
	store  entitystore.Store
	issuer *tokens.Issuer
}

// New wires a Flow.
func New(store entitystore.Store, issuer *tokens.Issuer) *Flow {
	return &Flow{store: store, issuer: issuer}
}

// ResolveClient implements authorize-endpoint validation step 1: an
// unknown or disabled client must render an error page, never redirect
// (spec §4.5).
func (f *Flow) ResolveClient(ctx context.Context, clientID string) (*domain.OAuthApp, error) {
	app, err := f.store.GetOAuthAppByClientID(ctx, clientID)
	if err != nil {
		return nil, apperrors.NewNotFound("oauthflow: unknown client_id %q", clientID)
	}
	if !app.IsEnabled {
		return nil, apperrors.NewForbidden("oauthflow: client %q is disabled", clientID)
	}
	return app, nil
}

// ValidateRedirectURI implements step 2: exact match required, also
// rendered as an error page rather than a redirect on mismatch.
func (f *Flow) ValidateRedirectURI(app *domain.OAuthApp, redirectURI string) error {
	for _, u := range app.RedirectURIs {
		if u == redirectURI {
			return nil
		}
	}
	return apperrors.NewValidation("oauthflow: redirect_uri %q is not registered for client %q", redirectURI, app.ClientID)
}

// ValidateAuthorizeRequest implements step 4: everything from here on
// fails by redirecting with error+state, never by rendering a page.
func (f *Flow) ValidateAuthorizeRequest(app *domain.OAuthApp, req AuthorizeRequest) *Error {
	if req.ResponseType != "code" {
		return newErr(ErrInvalidRequest, "unsupported response_type %q", req.ResponseType)
	}
	allowed := make(map[string]bool, len(app.AllowedScopes))
	for _, s := range app.AllowedScopes {
		allowed[s] = true
	}
	for _, s := range req.Scope {
		if !allowed[s] {
			return newErr(ErrInvalidScope, "scope %q is not permitted for this client", s)
		}
	}
	if app.ClientType == domain.ClientPublic && req.CodeChallenge == "" {
		return newErr(ErrInvalidRequest, "code_challenge is required for public clients")
	}
	return nil
}

// IssueAuthorizationCode persists a single-use, hashed authorization
// code bound to userID/workspaceID and returns the raw code to embed in
// the redirect (spec §4.5 step 6).
func (f *Flow) IssueAuthorizationCode(ctx context.Context, app *domain.OAuthApp, userID, workspaceID string, req AuthorizeRequest) (string, error) {
	raw, err := tokens.NewAuthorizationCodeSecret()
	if err != nil {
		return "", err
	}
	method := req.CodeChallengeMethod
	if method == "" {
		method = domain.ChallengeS256
	}
	code := &domain.AuthorizationCode{
		ID:                  idutil.NewUID(),
		CodeHash:            tokens.HashSecret(raw),
		OAuthAppID:          app.ID,
		UserID:              userID,
		WorkspaceID:         workspaceID,
		Scopes:              req.Scope,
		RedirectURI:         req.RedirectURI,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: method,
		CreatedAt:           time.Now(),
		ExpiresAt:           time.Now().Add(authCodeTTL),
	}
	if err := f.store.CreateAuthorizationCode(ctx, code); err != nil {
		return "", err
	}
	return raw, nil
}
