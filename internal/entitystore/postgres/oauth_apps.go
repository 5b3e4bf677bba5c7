package postgres

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/domain"
)

const tOAuthApps = "oauth_apps"

// oauthAppFull scans the text[] columns via pq.StringArray before converting
// to the persistence-agnostic domain.OAuthApp.
type oauthAppFull struct {
	ID               string         `db:"id"`
	WorkspaceID      string         `db:"workspace_id"`
	Name             string         `db:"name"`
	Description      string         `db:"description"`
	ClientType       string         `db:"client_type"`
	ClientID         string         `db:"client_id"`
	ClientSecretHash string         `db:"client_secret_hash"`
	RedirectURIs     pq.StringArray `db:"redirect_uris"`
	AllowedScopes    pq.StringArray `db:"allowed_scopes"`
	IsEnabled        bool           `db:"is_enabled"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        *time.Time     `db:"updated_at"`
	CreatedByUserID  string         `db:"created_by_user_id"`
}

func (r oauthAppFull) toDomain() *domain.OAuthApp {
	return &domain.OAuthApp{
		ID:               r.ID,
		WorkspaceID:      r.WorkspaceID,
		Name:             r.Name,
		Description:      r.Description,
		ClientType:       domain.ClientType(r.ClientType),
		ClientID:         r.ClientID,
		ClientSecretHash: r.ClientSecretHash,
		RedirectURIs:     []string(r.RedirectURIs),
		AllowedScopes:    []string(r.AllowedScopes),
		IsEnabled:        r.IsEnabled,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		CreatedByUserID:  r.CreatedByUserID,
	}
}

func (c *Client) CreateOAuthApp(ctx context.Context, a *domain.OAuthApp) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Insert(tOAuthApps).
		Columns("id", "workspace_id", "name", "description", "client_type", "client_id", "client_secret_hash",
			"redirect_uris", "allowed_scopes", "is_enabled", "created_at", "created_by_user_id").
		Values(a.ID, a.WorkspaceID, a.Name, a.Description, string(a.ClientType), a.ClientID, a.ClientSecretHash,
			pq.Array(a.RedirectURIs), pq.Array(a.AllowedScopes), a.IsEnabled, a.CreatedAt, a.CreatedByUserID).
		ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build insert oauth app")
	}
	if _, err := c.exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewAlreadyExists("postgres: oauth app with client id %s already exists", a.ClientID)
		}
		return apperrors.NewTransient(err, "postgres: insert oauth app")
	}
	return nil
}

func oauthAppColumns() []string {
	return []string{"id", "workspace_id", "name", "description", "client_type", "client_id", "client_secret_hash",
		"redirect_uris", "allowed_scopes", "is_enabled", "created_at", "updated_at", "created_by_user_id"}
}

func (c *Client) GetOAuthAppByClientID(ctx context.Context, clientID string) (*domain.OAuthApp, error) {
	return c.getOAuthApp(ctx, sq.Eq{"client_id": clientID})
}

func (c *Client) GetOAuthApp(ctx context.Context, id string) (*domain.OAuthApp, error) {
	return c.getOAuthApp(ctx, sq.Eq{"id": id})
}

func (c *Client) getOAuthApp(ctx context.Context, pred sq.Eq) (*domain.OAuthApp, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select(oauthAppColumns()...).From(tOAuthApps).Where(pred).ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build select oauth app")
	}
	var row oauthAppFull
	if err := c.get(ctx, &row, query, args...); err != nil {
		return nil, mapNotFound(err, "postgres: oauth app not found")
	}
	return row.toDomain(), nil
}

func (c *Client) ListOAuthAppsForWorkspace(ctx context.Context, workspaceID string) ([]*domain.OAuthApp, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select(oauthAppColumns()...).
		From(tOAuthApps).Where(sq.Eq{"workspace_id": workspaceID}).OrderBy("name").ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build list oauth apps")
	}
	var rows []oauthAppFull
	if err := c.sel(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewTransient(err, "postgres: list oauth apps for workspace")
	}
	out := make([]*domain.OAuthApp, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (c *Client) UpdateOAuthApp(ctx context.Context, a *domain.OAuthApp) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Update(tOAuthApps).
		Set("name", a.Name).
		Set("description", a.Description).
		Set("redirect_uris", pq.Array(a.RedirectURIs)).
		Set("allowed_scopes", pq.Array(a.AllowedScopes)).
		Set("is_enabled", a.IsEnabled).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": a.ID}).ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build update oauth app")
	}
	res, err := c.exec(ctx, query, args...)
	if err != nil {
		return apperrors.NewTransient(err, "postgres: update oauth app")
	}
	return requireRowsAffected(res, "postgres: oauth app %s not found", a.ID)
}
