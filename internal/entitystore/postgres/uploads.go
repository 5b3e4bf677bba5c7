package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/domain"
)

const tUploadSessions = "upload_sessions"

func (c *Client) CreateUploadSession(ctx context.Context, s *domain.UploadSession) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Insert(tUploadSessions).
		Columns("id", "project_id", "file_name", "content_type", "expected_size_bytes", "status",
			"upload_mode", "temp_storage_key", "direct_upload_url", "created_at", "expires_at").
		Values(s.ID, s.ProjectID, s.FileName, s.ContentType, s.ExpectedSizeBytes, int(s.Status),
			int(s.UploadMode), s.TempStorageKey, s.DirectUploadURL, s.CreatedAt, s.ExpiresAt).
		ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build insert upload session")
	}
	if _, err := c.exec(ctx, query, args...); err != nil {
		return apperrors.NewTransient(err, "postgres: insert upload session")
	}
	return nil
}

func (c *Client) GetUploadSession(ctx context.Context, id string) (*domain.UploadSession, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("id", "project_id", "file_name", "content_type", "expected_size_bytes",
		"status", "upload_mode", "temp_storage_key", "direct_upload_url", "committed_file_id",
		"failure_reason", "created_at", "expires_at").
		From(tUploadSessions).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build select upload session")
	}
	var s domain.UploadSession
	if err := c.get(ctx, &s, query, args...); err != nil {
		return nil, mapNotFound(err, "postgres: upload session %s not found", id)
	}
	return &s, nil
}

func (c *Client) UpdateUploadSession(ctx context.Context, s *domain.UploadSession) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Update(tUploadSessions).
		Set("status", int(s.Status)).
		Set("temp_storage_key", s.TempStorageKey).
		Set("committed_file_id", s.CommittedFileID).
		Set("failure_reason", s.FailureReason).
		Where(sq.Eq{"id": s.ID}).ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build update upload session")
	}
	res, err := c.exec(ctx, query, args...)
	if err != nil {
		return apperrors.NewTransient(err, "postgres: update upload session")
	}
	return requireRowsAffected(res, "postgres: upload session %s not found", s.ID)
}

func (c *Client) ListExpiredUploadSessions(ctx context.Context, statuses []domain.UploadStatus) ([]*domain.UploadSession, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	statusInts := make([]int, 0, len(statuses))
	for _, st := range statuses {
		statusInts = append(statusInts, int(st))
	}
	query, args, err := psql.Select("id", "project_id", "file_name", "content_type", "expected_size_bytes",
		"status", "upload_mode", "temp_storage_key", "direct_upload_url", "committed_file_id",
		"failure_reason", "created_at", "expires_at").
		From(tUploadSessions).
		Where(sq.Eq{"status": statusInts}).
		Where(sq.Expr("expires_at < now()")).ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build list expired upload sessions")
	}
	var rows []domain.UploadSession
	if err := c.sel(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewTransient(err, "postgres: list expired upload sessions")
	}
	out := make([]*domain.UploadSession, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}
