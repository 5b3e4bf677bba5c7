package oauthflow

import (
	"context"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/domain"
	"github.com/amd-aig-aima/bimserver/internal/entitystore"
)

type fakeStore struct {
	entitystore.Store

	apps          map[string]*domain.OAuthApp
	codes         map[string]*domain.AuthorizationCode
	refreshTokens map[string]*domain.RefreshToken
	auditLogs     []*domain.AuditLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		apps:          make(map[string]*domain.OAuthApp),
		codes:         make(map[string]*domain.AuthorizationCode),
		refreshTokens: make(map[string]*domain.RefreshToken),
	}
}

func (f *fakeStore) GetOAuthAppByClientID(ctx context.Context, clientID string) (*domain.OAuthApp, error) {
	for _, a := range f.apps {
		if a.ClientID == clientID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFound("oauth app with client_id %s not found", clientID)
}

func (f *fakeStore) CreateAuthorizationCode(ctx context.Context, c *domain.AuthorizationCode) error {
	cp := *c
	f.codes[c.CodeHash] = &cp
	return nil
}

func (f *fakeStore) GetAuthorizationCodeByHash(ctx context.Context, codeHash string) (*domain.AuthorizationCode, error) {
	c, ok := f.codes[codeHash]
	if !ok {
		return nil, apperrors.NewNotFound("authorization code not found")
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) MarkAuthorizationCodeUsed(ctx context.Context, id string) error {
	for _, c := range f.codes {
		if c.ID == id {
			c.IsUsed = true
			return nil
		}
	}
	return apperrors.NewNotFound("authorization code %s not found", id)
}

func (f *fakeStore) CreateRefreshToken(ctx context.Context, t *domain.RefreshToken) error {
	cp := *t
	f.refreshTokens[t.TokenHash] = &cp
	return nil
}

func (f *fakeStore) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	t, ok := f.refreshTokens[tokenHash]
	if !ok {
		return nil, apperrors.NewNotFound("refresh token not found")
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) RevokeRefreshToken(ctx context.Context, id, reason string) error {
	for _, t := range f.refreshTokens {
		if t.ID == id {
			t.IsRevoked = true
			t.RevokedReason = reason
			return nil
		}
	}
	return apperrors.NewNotFound("refresh token %s not found", id)
}

func (f *fakeStore) RevokeRefreshTokenFamily(ctx context.Context, tokenFamilyID, reason string) error {
	for _, t := range f.refreshTokens {
		if t.TokenFamilyID == tokenFamilyID {
			t.IsRevoked = true
			t.RevokedReason = reason
		}
	}
	return nil
}

func (f *fakeStore) ReplaceRefreshToken(ctx context.Context, oldID string, replacement *domain.RefreshToken) error {
	if err := f.RevokeRefreshToken(ctx, oldID, domain.ReasonTokenRotation); err != nil {
		return err
	}
	return f.CreateRefreshToken(ctx, replacement)
}

func (f *fakeStore) CreateAuditLog(ctx context.Context, a *domain.AuditLog) error {
	f.auditLogs = append(f.auditLogs, a)
	return nil
}

func (f *fakeStore) WithinTransaction(ctx context.Context, fn func(entitystore.Store) error) error {
	return fn(f)
}
