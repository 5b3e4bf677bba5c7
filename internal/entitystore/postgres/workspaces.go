package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/domain"
)

const (
	tWorkspaces           = "workspaces"
	tWorkspaceMemberships = "workspace_memberships"
)

func (c *Client) CreateWorkspace(ctx context.Context, w *domain.Workspace) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Insert(tWorkspaces).
		Columns("id", "name", "description", "created_at").
		Values(w.ID, w.Name, w.Description, w.CreatedAt).ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build insert workspace")
	}
	if _, err := c.exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewAlreadyExists("postgres: workspace %s already exists", w.Name)
		}
		return apperrors.NewTransient(err, "postgres: insert workspace")
	}
	return nil
}

func (c *Client) GetWorkspace(ctx context.Context, id string) (*domain.Workspace, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("id", "name", "description", "created_at", "updated_at").
		From(tWorkspaces).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build select workspace")
	}
	var w domain.Workspace
	if err := c.get(ctx, &w, query, args...); err != nil {
		return nil, mapNotFound(err, "postgres: workspace %s not found", id)
	}
	return &w, nil
}

func (c *Client) ListWorkspacesForUser(ctx context.Context, userID string) ([]*domain.Workspace, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("w.id", "w.name", "w.description", "w.created_at", "w.updated_at").
		From(tWorkspaces+" w").
		Join(tWorkspaceMemberships+" m ON m.workspace_id = w.id").
		Where(sq.Eq{"m.user_id": userID}).
		OrderBy("w.name").ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build list workspaces")
	}
	var out []*domain.Workspace
	if err := c.sel(ctx, &out, query, args...); err != nil {
		return nil, apperrors.NewTransient(err, "postgres: list workspaces for user")
	}
	return out, nil
}

func (c *Client) UpdateWorkspace(ctx context.Context, w *domain.Workspace) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Update(tWorkspaces).
		Set("name", w.Name).
		Set("description", w.Description).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": w.ID}).ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build update workspace")
	}
	res, err := c.exec(ctx, query, args...)
	if err != nil {
		return apperrors.NewTransient(err, "postgres: update workspace")
	}
	return requireRowsAffected(res, "postgres: workspace %s not found", w.ID)
}

func (c *Client) UpsertWorkspaceMembership(ctx context.Context, m *domain.WorkspaceMembership) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Insert(tWorkspaceMemberships).
		Columns("workspace_id", "user_id", "role").
		Values(m.WorkspaceID, m.UserID, int(m.Role)).
		Suffix("ON CONFLICT (workspace_id, user_id) DO UPDATE SET role = EXCLUDED.role").
		ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build upsert workspace membership")
	}
	if _, err := c.exec(ctx, query, args...); err != nil {
		return apperrors.NewTransient(err, "postgres: upsert workspace membership")
	}
	return nil
}

func (c *Client) GetWorkspaceMembership(ctx context.Context, workspaceID, userID string) (*domain.WorkspaceMembership, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("workspace_id", "user_id", "role").
		From(tWorkspaceMemberships).
		Where(sq.Eq{"workspace_id": workspaceID, "user_id": userID}).ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build select workspace membership")
	}
	var row struct {
		WorkspaceID string `db:"workspace_id"`
		UserID      string `db:"user_id"`
		Role        int    `db:"role"`
	}
	if err := c.get(ctx, &row, query, args...); err != nil {
		return nil, mapNotFound(err, "postgres: membership for user %s in workspace %s not found", userID, workspaceID)
	}
	return &domain.WorkspaceMembership{WorkspaceID: row.WorkspaceID, UserID: row.UserID, Role: domain.WorkspaceRole(row.Role)}, nil
}

func (c *Client) ListWorkspaceMembers(ctx context.Context, workspaceID string) ([]*domain.WorkspaceMembership, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("workspace_id", "user_id", "role").
		From(tWorkspaceMemberships).Where(sq.Eq{"workspace_id": workspaceID}).ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build list workspace members")
	}
	var rows []struct {
		WorkspaceID string `db:"workspace_id"`
		UserID      string `db:"user_id"`
		Role        int    `db:"role"`
	}
	if err := c.sel(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewTransient(err, "postgres: list workspace members")
	}
	out := make([]*domain.WorkspaceMembership, 0, len(rows))
	for _, r := range rows {
		out = append(out, &domain.WorkspaceMembership{WorkspaceID: r.WorkspaceID, UserID: r.UserID, Role: domain.WorkspaceRole(r.Role)})
	}
	return out, nil
}

func (c *Client) RemoveWorkspaceMembership(ctx context.Context, workspaceID, userID string) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Delete(tWorkspaceMemberships).
		Where(sq.Eq{"workspace_id": workspaceID, "user_id": userID}).ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build remove workspace membership")
	}
	if _, err := c.exec(ctx, query, args...); err != nil {
		return apperrors.NewTransient(err, "postgres: remove workspace membership")
	}
	return nil
}
