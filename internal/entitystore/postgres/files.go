package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/domain"
)

const (
	tFiles     = "files"
	tFileLinks = "file_links"
)

func (c *Client) CreateFile(ctx context.Context, f *domain.File) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Insert(tFiles).
		Columns("id", "project_id", "name", "content_type", "size_bytes", "checksum", "kind",
			"category", "storage_provider", "storage_key", "is_deleted", "created_at").
		Values(f.ID, f.ProjectID, f.Name, f.ContentType, f.SizeBytes, f.Checksum, f.Kind,
			string(f.Category), f.StorageProvider, f.StorageKey, f.IsDeleted, f.CreatedAt).
		ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build insert file")
	}
	if _, err := c.exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewAlreadyExists("postgres: file with key %s already exists", f.StorageKey)
		}
		return apperrors.NewTransient(err, "postgres: insert file")
	}
	return nil
}

func (c *Client) GetFile(ctx context.Context, id string) (*domain.File, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("id", "project_id", "name", "content_type", "size_bytes", "checksum",
		"kind", "category", "storage_provider", "storage_key", "is_deleted", "created_at", "deleted_at").
		From(tFiles).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build select file")
	}
	var f domain.File
	if err := c.get(ctx, &f, query, args...); err != nil {
		return nil, mapNotFound(err, "postgres: file %s not found", id)
	}
	return &f, nil
}

func (c *Client) ListFilesForProject(ctx context.Context, projectID string, category domain.FileCategory) ([]*domain.File, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	b := psql.Select("id", "project_id", "name", "content_type", "size_bytes", "checksum",
		"kind", "category", "storage_provider", "storage_key", "is_deleted", "created_at", "deleted_at").
		From(tFiles).
		Where(sq.Eq{"project_id": projectID, "is_deleted": false})
	if category != "" {
		b = b.Where(sq.Eq{"category": string(category)})
	}
	query, args, err := b.OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build list files")
	}
	var rows []domain.File
	if err := c.sel(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewTransient(err, "postgres: list files for project")
	}
	out := make([]*domain.File, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}

func (c *Client) SoftDeleteFile(ctx context.Context, id string) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Update(tFiles).
		Set("is_deleted", true).
		Set("deleted_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id, "is_deleted": false}).ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build soft delete file")
	}
	res, err := c.exec(ctx, query, args...)
	if err != nil {
		return apperrors.NewTransient(err, "postgres: soft delete file")
	}
	return requireRowsAffected(res, "postgres: file %s not found", id)
}

func (c *Client) CreateFileLink(ctx context.Context, l *domain.FileLink) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Insert(tFileLinks).
		Columns("id", "source_file_id", "target_file_id", "link_type", "created_at").
		Values(l.ID, l.SourceFileID, l.TargetFileID, string(l.LinkType), l.CreatedAt).ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build insert file link")
	}
	if _, err := c.exec(ctx, query, args...); err != nil {
		return apperrors.NewTransient(err, "postgres: insert file link")
	}
	return nil
}

func (c *Client) ListFileLinks(ctx context.Context, sourceFileID string) ([]*domain.FileLink, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("id", "source_file_id", "target_file_id", "link_type", "created_at").
		From(tFileLinks).Where(sq.Eq{"source_file_id": sourceFileID}).ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build list file links")
	}
	var rows []domain.FileLink
	if err := c.sel(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewTransient(err, "postgres: list file links")
	}
	out := make([]*domain.FileLink, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}
