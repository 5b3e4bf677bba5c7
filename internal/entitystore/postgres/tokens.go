package postgres

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/domain"
)

const (
	tAuthorizationCodes   = "authorization_codes"
	tRefreshTokens        = "refresh_tokens"
	tPersonalAccessTokens = "personal_access_tokens"
)

// --- Authorization codes ---

func (c *Client) CreateAuthorizationCode(ctx context.Context, code *domain.AuthorizationCode) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Insert(tAuthorizationCodes).
		Columns("id", "code_hash", "oauth_app_id", "user_id", "workspace_id", "scopes", "redirect_uri",
			"code_challenge", "code_challenge_method", "created_at", "expires_at", "is_used").
		Values(code.ID, code.CodeHash, code.OAuthAppID, code.UserID, code.WorkspaceID, pq.Array(code.Scopes),
			code.RedirectURI, code.CodeChallenge, string(code.CodeChallengeMethod), code.CreatedAt, code.ExpiresAt, code.IsUsed).
		ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build insert authorization code")
	}
	if _, err := c.exec(ctx, query, args...); err != nil {
		return apperrors.NewTransient(err, "postgres: insert authorization code")
	}
	return nil
}

type authCodeRow struct {
	ID                  string         `db:"id"`
	CodeHash            string         `db:"code_hash"`
	OAuthAppID          string         `db:"oauth_app_id"`
	UserID              string         `db:"user_id"`
	WorkspaceID         string         `db:"workspace_id"`
	Scopes              pq.StringArray `db:"scopes"`
	RedirectURI         string         `db:"redirect_uri"`
	CodeChallenge       string         `db:"code_challenge"`
	CodeChallengeMethod string         `db:"code_challenge_method"`
	CreatedAt           time.Time      `db:"created_at"`
	ExpiresAt           time.Time      `db:"expires_at"`
	IsUsed              bool           `db:"is_used"`
	UsedAt              *time.Time     `db:"used_at"`
}

func (r authCodeRow) toDomain() *domain.AuthorizationCode {
	return &domain.AuthorizationCode{
		ID:                  r.ID,
		CodeHash:            r.CodeHash,
		OAuthAppID:          r.OAuthAppID,
		UserID:              r.UserID,
		WorkspaceID:         r.WorkspaceID,
		Scopes:              []string(r.Scopes),
		RedirectURI:         r.RedirectURI,
		CodeChallenge:       r.CodeChallenge,
		CodeChallengeMethod: domain.CodeChallengeMethod(r.CodeChallengeMethod),
		CreatedAt:           r.CreatedAt,
		ExpiresAt:           r.ExpiresAt,
		IsUsed:              r.IsUsed,
		UsedAt:              r.UsedAt,
	}
}

func (c *Client) GetAuthorizationCodeByHash(ctx context.Context, codeHash string) (*domain.AuthorizationCode, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("id", "code_hash", "oauth_app_id", "user_id", "workspace_id", "scopes",
		"redirect_uri", "code_challenge", "code_challenge_method", "created_at", "expires_at", "is_used", "used_at").
		From(tAuthorizationCodes).Where(sq.Eq{"code_hash": codeHash}).ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build select authorization code")
	}
	var row authCodeRow
	if err := c.get(ctx, &row, query, args...); err != nil {
		return nil, mapNotFound(err, "postgres: authorization code not found")
	}
	return row.toDomain(), nil
}

func (c *Client) MarkAuthorizationCodeUsed(ctx context.Context, id string) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Update(tAuthorizationCodes).
		Set("is_used", true).
		Set("used_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id, "is_used": false}).ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build mark authorization code used")
	}
	res, err := c.exec(ctx, query, args...)
	if err != nil {
		return apperrors.NewTransient(err, "postgres: mark authorization code used")
	}
	return requireRowsAffected(res, "postgres: authorization code %s not found or already used", id)
}

// --- Refresh tokens ---

func refreshTokenColumns() []string {
	return []string{"id", "token_hash", "oauth_app_id", "user_id", "workspace_id", "scopes", "created_at",
		"expires_at", "is_revoked", "revoked_at", "revoked_reason", "parent_token_id", "replaced_by_token_id",
		"token_family_id", "ip_address", "user_agent"}
}

type refreshTokenRow struct {
	ID                string         `db:"id"`
	TokenHash         string         `db:"token_hash"`
	OAuthAppID        string         `db:"oauth_app_id"`
	UserID            string         `db:"user_id"`
	WorkspaceID       string         `db:"workspace_id"`
	Scopes            pq.StringArray `db:"scopes"`
	CreatedAt         time.Time      `db:"created_at"`
	ExpiresAt         time.Time      `db:"expires_at"`
	IsRevoked         bool           `db:"is_revoked"`
	RevokedAt         *time.Time     `db:"revoked_at"`
	RevokedReason     string         `db:"revoked_reason"`
	ParentTokenID     string         `db:"parent_token_id"`
	ReplacedByTokenID string         `db:"replaced_by_token_id"`
	TokenFamilyID     string         `db:"token_family_id"`
	IPAddress         string         `db:"ip_address"`
	UserAgent         string         `db:"user_agent"`
}

func (r refreshTokenRow) toDomain() *domain.RefreshToken {
	return &domain.RefreshToken{
		ID:                r.ID,
		TokenHash:         r.TokenHash,
		OAuthAppID:        r.OAuthAppID,
		UserID:            r.UserID,
		WorkspaceID:       r.WorkspaceID,
		Scopes:            []string(r.Scopes),
		CreatedAt:         r.CreatedAt,
		ExpiresAt:         r.ExpiresAt,
		IsRevoked:         r.IsRevoked,
		RevokedAt:         r.RevokedAt,
		RevokedReason:     r.RevokedReason,
		ParentTokenID:     r.ParentTokenID,
		ReplacedByTokenID: r.ReplacedByTokenID,
		TokenFamilyID:     r.TokenFamilyID,
		IPAddress:         r.IPAddress,
		UserAgent:         r.UserAgent,
	}
}

func (c *Client) CreateRefreshToken(ctx context.Context, t *domain.RefreshToken) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Insert(tRefreshTokens).
		Columns(refreshTokenColumns()...).
		Values(t.ID, t.TokenHash, t.OAuthAppID, t.UserID, t.WorkspaceID, pq.Array(t.Scopes), t.CreatedAt,
			t.ExpiresAt, t.IsRevoked, t.RevokedAt, t.RevokedReason, t.ParentTokenID, t.ReplacedByTokenID,
			t.TokenFamilyID, t.IPAddress, t.UserAgent).
		ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build insert refresh token")
	}
	if _, err := c.exec(ctx, query, args...); err != nil {
		return apperrors.NewTransient(err, "postgres: insert refresh token")
	}
	return nil
}

func (c *Client) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select(refreshTokenColumns()...).
		From(tRefreshTokens).Where(sq.Eq{"token_hash": tokenHash}).ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build select refresh token")
	}
	var row refreshTokenRow
	if err := c.get(ctx, &row, query, args...); err != nil {
		return nil, mapNotFound(err, "postgres: refresh token not found")
	}
	return row.toDomain(), nil
}

func (c *Client) RevokeRefreshToken(ctx context.Context, id, reason string) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Update(tRefreshTokens).
		Set("is_revoked", true).
		Set("revoked_at", sq.Expr("now()")).
		Set("revoked_reason", reason).
		Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build revoke refresh token")
	}
	if _, err := c.exec(ctx, query, args...); err != nil {
		return apperrors.NewTransient(err, "postgres: revoke refresh token")
	}
	return nil
}

func (c *Client) RevokeRefreshTokenFamily(ctx context.Context, tokenFamilyID, reason string) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Update(tRefreshTokens).
		Set("is_revoked", true).
		Set("revoked_at", sq.Expr("now()")).
		Set("revoked_reason", reason).
		Where(sq.Eq{"token_family_id": tokenFamilyID, "is_revoked": false}).ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build revoke refresh token family")
	}
	if _, err := c.exec(ctx, query, args...); err != nil {
		return apperrors.NewTransient(err, "postgres: revoke refresh token family")
	}
	return nil
}

// ReplaceRefreshToken revokes oldID with ReasonTokenRotation and inserts
// replacement in the same transaction (spec §4.4 rotation).
func (c *Client) ReplaceRefreshToken(ctx context.Context, oldID string, replacement *domain.RefreshToken) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	return c.withTx(ctx, func(tx *sqlx.Tx) error {
		updQuery, updArgs, err := psql.Update(tRefreshTokens).
			Set("is_revoked", true).
			Set("revoked_at", sq.Expr("now()")).
			Set("revoked_reason", domain.ReasonTokenRotation).
			Set("replaced_by_token_id", replacement.ID).
			Where(sq.Eq{"id": oldID}).ToSql()
		if err != nil {
			return apperrors.NewInternal(err, "postgres: build revoke old refresh token")
		}
		if _, err := tx.ExecContext(ctx, updQuery, updArgs...); err != nil {
			return apperrors.NewTransient(err, "postgres: revoke old refresh token")
		}

		insQuery, insArgs, err := psql.Insert(tRefreshTokens).
			Columns(refreshTokenColumns()...).
			Values(replacement.ID, replacement.TokenHash, replacement.OAuthAppID, replacement.UserID,
				replacement.WorkspaceID, pq.Array(replacement.Scopes), replacement.CreatedAt, replacement.ExpiresAt,
				replacement.IsRevoked, replacement.RevokedAt, replacement.RevokedReason, replacement.ParentTokenID,
				replacement.ReplacedByTokenID, replacement.TokenFamilyID, replacement.IPAddress, replacement.UserAgent).
			ToSql()
		if err != nil {
			return apperrors.NewInternal(err, "postgres: build insert replacement refresh token")
		}
		if _, err := tx.ExecContext(ctx, insQuery, insArgs...); err != nil {
			return apperrors.NewTransient(err, "postgres: insert replacement refresh token")
		}
		return nil
	})
}

// --- Personal access tokens ---

func patColumns() []string {
	return []string{"id", "token_hash", "token_prefix", "user_id", "workspace_id", "name", "description",
		"scopes", "created_at", "expires_at", "last_used_at", "last_used_ip_address", "is_revoked",
		"revoked_at", "revoked_reason", "created_from_ip"}
}

type patRow struct {
	ID                string         `db:"id"`
	TokenHash         string         `db:"token_hash"`
	TokenPrefix       string         `db:"token_prefix"`
	UserID            string         `db:"user_id"`
	WorkspaceID       string         `db:"workspace_id"`
	Name              string         `db:"name"`
	Description       string         `db:"description"`
	Scopes            pq.StringArray `db:"scopes"`
	CreatedAt         time.Time      `db:"created_at"`
	ExpiresAt         time.Time      `db:"expires_at"`
	LastUsedAt        *time.Time     `db:"last_used_at"`
	LastUsedIPAddress string         `db:"last_used_ip_address"`
	IsRevoked         bool           `db:"is_revoked"`
	RevokedAt         *time.Time     `db:"revoked_at"`
	RevokedReason     string         `db:"revoked_reason"`
	CreatedFromIP     string         `db:"created_from_ip"`
}

func (r patRow) toDomain() *domain.PersonalAccessToken {
	return &domain.PersonalAccessToken{
		ID:                r.ID,
		TokenHash:         r.TokenHash,
		TokenPrefix:       r.TokenPrefix,
		UserID:            r.UserID,
		WorkspaceID:       r.WorkspaceID,
		Name:              r.Name,
		Description:       r.Description,
		Scopes:            []string(r.Scopes),
		CreatedAt:         r.CreatedAt,
		ExpiresAt:         r.ExpiresAt,
		LastUsedAt:        r.LastUsedAt,
		LastUsedIPAddress: r.LastUsedIPAddress,
		IsRevoked:         r.IsRevoked,
		RevokedAt:         r.RevokedAt,
		RevokedReason:     r.RevokedReason,
		CreatedFromIP:     r.CreatedFromIP,
	}
}

func (c *Client) CreatePersonalAccessToken(ctx context.Context, p *domain.PersonalAccessToken) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Insert(tPersonalAccessTokens).
		Columns(patColumns()...).
		Values(p.ID, p.TokenHash, p.TokenPrefix, p.UserID, p.WorkspaceID, p.Name, p.Description,
			pq.Array(p.Scopes), p.CreatedAt, p.ExpiresAt, p.LastUsedAt, p.LastUsedIPAddress, p.IsRevoked,
			p.RevokedAt, p.RevokedReason, p.CreatedFromIP).
		ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build insert pat")
	}
	if _, err := c.exec(ctx, query, args...); err != nil {
		return apperrors.NewTransient(err, "postgres: insert pat")
	}
	return nil
}

func (c *Client) GetPersonalAccessTokenByHash(ctx context.Context, tokenHash string) (*domain.PersonalAccessToken, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select(patColumns()...).
		From(tPersonalAccessTokens).Where(sq.Eq{"token_hash": tokenHash}).ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build select pat")
	}
	var row patRow
	if err := c.get(ctx, &row, query, args...); err != nil {
		return nil, mapNotFound(err, "postgres: personal access token not found")
	}
	return row.toDomain(), nil
}

func (c *Client) ListPersonalAccessTokensForUser(ctx context.Context, userID string) ([]*domain.PersonalAccessToken, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select(patColumns()...).
		From(tPersonalAccessTokens).Where(sq.Eq{"user_id": userID}).OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build list pats")
	}
	var rows []patRow
	if err := c.sel(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewTransient(err, "postgres: list pats for user")
	}
	out := make([]*domain.PersonalAccessToken, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (c *Client) RevokePersonalAccessToken(ctx context.Context, id, reason string) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Update(tPersonalAccessTokens).
		Set("is_revoked", true).
		Set("revoked_at", sq.Expr("now()")).
		Set("revoked_reason", reason).
		Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build revoke pat")
	}
	res, err := c.exec(ctx, query, args...)
	if err != nil {
		return apperrors.NewTransient(err, "postgres: revoke pat")
	}
	return requireRowsAffected(res, "postgres: personal access token %s not found", id)
}

func (c *Client) TouchPersonalAccessTokenUsage(ctx context.Context, id, ipAddress string) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Update(tPersonalAccessTokens).
		Set("last_used_at", sq.Expr("now()")).
		Set("last_used_ip_address", ipAddress).
		Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build touch pat usage")
	}
	if _, err := c.exec(ctx, query, args...); err != nil {
		return apperrors.NewTransient(err, "postgres: touch pat usage")
	}
	return nil
}
