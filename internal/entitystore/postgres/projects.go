package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/domain"
)

const (
	tProjects           = "projects"
	tProjectMemberships = "project_memberships"
)

func (c *Client) CreateProject(ctx context.Context, p *domain.Project) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Insert(tProjects).
		Columns("id", "workspace_id", "name", "description", "created_at").
		Values(p.ID, p.WorkspaceID, p.Name, p.Description, p.CreatedAt).ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build insert project")
	}
	if _, err := c.exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewAlreadyExists("postgres: project %s already exists in workspace %s", p.Name, p.WorkspaceID)
		}
		return apperrors.NewTransient(err, "postgres: insert project")
	}
	return nil
}

func (c *Client) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("id", "workspace_id", "name", "description", "created_at", "updated_at").
		From(tProjects).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build select project")
	}
	var p domain.Project
	if err := c.get(ctx, &p, query, args...); err != nil {
		return nil, mapNotFound(err, "postgres: project %s not found", id)
	}
	return &p, nil
}

func (c *Client) ListProjectsForWorkspace(ctx context.Context, workspaceID string) ([]*domain.Project, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("id", "workspace_id", "name", "description", "created_at", "updated_at").
		From(tProjects).Where(sq.Eq{"workspace_id": workspaceID}).OrderBy("name").ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build list projects")
	}
	var out []*domain.Project
	if err := c.sel(ctx, &out, query, args...); err != nil {
		return nil, apperrors.NewTransient(err, "postgres: list projects for workspace")
	}
	return out, nil
}

func (c *Client) UpdateProject(ctx context.Context, p *domain.Project) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Update(tProjects).
		Set("name", p.Name).
		Set("description", p.Description).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": p.ID}).ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build update project")
	}
	res, err := c.exec(ctx, query, args...)
	if err != nil {
		return apperrors.NewTransient(err, "postgres: update project")
	}
	return requireRowsAffected(res, "postgres: project %s not found", p.ID)
}

func (c *Client) UpsertProjectMembership(ctx context.Context, m *domain.ProjectMembership) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Insert(tProjectMemberships).
		Columns("project_id", "user_id", "role").
		Values(m.ProjectID, m.UserID, int(m.Role)).
		Suffix("ON CONFLICT (project_id, user_id) DO UPDATE SET role = EXCLUDED.role").
		ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build upsert project membership")
	}
	if _, err := c.exec(ctx, query, args...); err != nil {
		return apperrors.NewTransient(err, "postgres: upsert project membership")
	}
	return nil
}

func (c *Client) GetProjectMembership(ctx context.Context, projectID, userID string) (*domain.ProjectMembership, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("project_id", "user_id", "role").
		From(tProjectMemberships).
		Where(sq.Eq{"project_id": projectID, "user_id": userID}).ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build select project membership")
	}
	var row struct {
		ProjectID string `db:"project_id"`
		UserID    string `db:"user_id"`
		Role      int    `db:"role"`
	}
	if err := c.get(ctx, &row, query, args...); err != nil {
		return nil, mapNotFound(err, "postgres: membership for user %s in project %s not found", userID, projectID)
	}
	return &domain.ProjectMembership{ProjectID: row.ProjectID, UserID: row.UserID, Role: domain.ProjectRole(row.Role)}, nil
}

func (c *Client) ListProjectMembers(ctx context.Context, projectID string) ([]*domain.ProjectMembership, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("project_id", "user_id", "role").
		From(tProjectMemberships).Where(sq.Eq{"project_id": projectID}).ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build list project members")
	}
	var rows []struct {
		ProjectID string `db:"project_id"`
		UserID    string `db:"user_id"`
		Role      int    `db:"role"`
	}
	if err := c.sel(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewTransient(err, "postgres: list project members")
	}
	out := make([]*domain.ProjectMembership, 0, len(rows))
	for _, r := range rows {
		out = append(out, &domain.ProjectMembership{ProjectID: r.ProjectID, UserID: r.UserID, Role: domain.ProjectRole(r.Role)})
	}
	return out, nil
}

func (c *Client) RemoveProjectMembership(ctx context.Context, projectID, userID string) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Delete(tProjectMemberships).
		Where(sq.Eq{"project_id": projectID, "user_id": userID}).ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build remove project membership")
	}
	if _, err := c.exec(ctx, query, args...); err != nil {
		return apperrors.NewTransient(err, "postgres: remove project membership")
	}
	return nil
}
