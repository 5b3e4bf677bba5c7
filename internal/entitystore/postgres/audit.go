package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/domain"
)

const tAuditLogs = "audit_logs"

func (c *Client) CreateAuditLog(ctx context.Context, a *domain.AuditLog) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Insert(tAuditLogs).
		Columns("id", "subject_id", "event_type", "actor_user_id", "timestamp", "details", "ip_address", "user_agent").
		Values(a.ID, a.SubjectID, a.EventType, a.ActorUserID, a.Timestamp, a.Details, a.IPAddress, a.UserAgent).
		ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build insert audit log")
	}
	if _, err := c.exec(ctx, query, args...); err != nil {
		return apperrors.NewTransient(err, "postgres: insert audit log")
	}
	return nil
}

func (c *Client) ListAuditLogsForSubject(ctx context.Context, subjectID string, limit int) ([]*domain.AuditLog, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("id", "subject_id", "event_type", "actor_user_id", "timestamp", "details",
		"ip_address", "user_agent").
		From(tAuditLogs).
		Where(sq.Eq{"subject_id": subjectID}).
		OrderBy("timestamp DESC").
		Limit(uint64(limit)).ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build list audit logs")
	}
	var rows []domain.AuditLog
	if err := c.sel(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewTransient(err, "postgres: list audit logs for subject")
	}
	out := make([]*domain.AuditLog, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}
