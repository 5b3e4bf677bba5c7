package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/domain"
)

const (
	tModels         = "models"
	tModelVersions  = "model_versions"
	tProcessingJobs = "processing_jobs"
)

func (c *Client) CreateModel(ctx context.Context, m *domain.Model) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Insert(tModels).
		Columns("id", "project_id", "name", "description", "created_at").
		Values(m.ID, m.ProjectID, m.Name, m.Description, m.CreatedAt).ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build insert model")
	}
	if _, err := c.exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewAlreadyExists("postgres: model %s already exists in project %s", m.Name, m.ProjectID)
		}
		return apperrors.NewTransient(err, "postgres: insert model")
	}
	return nil
}

func (c *Client) GetModel(ctx context.Context, id string) (*domain.Model, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("id", "project_id", "name", "description", "created_at").
		From(tModels).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build select model")
	}
	var m domain.Model
	if err := c.get(ctx, &m, query, args...); err != nil {
		return nil, mapNotFound(err, "postgres: model %s not found", id)
	}
	return &m, nil
}

func (c *Client) ListModelsForProject(ctx context.Context, projectID string) ([]*domain.Model, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("id", "project_id", "name", "description", "created_at").
		From(tModels).Where(sq.Eq{"project_id": projectID}).OrderBy("name").ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build list models")
	}
	var rows []domain.Model
	if err := c.sel(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewTransient(err, "postgres: list models for project")
	}
	out := make([]*domain.Model, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}

func (c *Client) CreateModelVersion(ctx context.Context, v *domain.ModelVersion) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Insert(tModelVersions).
		Columns("id", "model_id", "version_number", "ifc_file_id", "status", "created_at").
		Values(v.ID, v.ModelID, v.VersionNumber, v.IfcFileID, int(v.Status), v.CreatedAt).ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build insert model version")
	}
	if _, err := c.exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflict("postgres: version %d already exists for model %s", v.VersionNumber, v.ModelID)
		}
		return apperrors.NewTransient(err, "postgres: insert model version")
	}
	return nil
}

func (c *Client) GetModelVersion(ctx context.Context, id string) (*domain.ModelVersion, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("id", "model_id", "version_number", "ifc_file_id", "wexbim_file_id",
		"properties_file_id", "status", "error_message", "created_at", "processed_at").
		From(tModelVersions).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build select model version")
	}
	var v domain.ModelVersion
	if err := c.get(ctx, &v, query, args...); err != nil {
		return nil, mapNotFound(err, "postgres: model version %s not found", id)
	}
	return &v, nil
}

func (c *Client) ListModelVersions(ctx context.Context, modelID string) ([]*domain.ModelVersion, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("id", "model_id", "version_number", "ifc_file_id", "wexbim_file_id",
		"properties_file_id", "status", "error_message", "created_at", "processed_at").
		From(tModelVersions).Where(sq.Eq{"model_id": modelID}).OrderBy("version_number DESC").ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build list model versions")
	}
	var rows []domain.ModelVersion
	if err := c.sel(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewTransient(err, "postgres: list model versions")
	}
	out := make([]*domain.ModelVersion, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}

func (c *Client) NextVersionNumber(ctx context.Context, modelID string) (int, error) {
	if err := c.requireDB(); err != nil {
		return 0, err
	}
	query, args, err := psql.Select("COALESCE(MAX(version_number), 0)").
		From(tModelVersions).Where(sq.Eq{"model_id": modelID}).ToSql()
	if err != nil {
		return 0, apperrors.NewInternal(err, "postgres: build next version number")
	}
	var max int
	if err := c.get(ctx, &max, query, args...); err != nil {
		return 0, apperrors.NewTransient(err, "postgres: next version number")
	}
	return max + 1, nil
}

func (c *Client) UpdateModelVersion(ctx context.Context, v *domain.ModelVersion) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Update(tModelVersions).
		Set("wexbim_file_id", v.WexBimFileID).
		Set("properties_file_id", v.PropertiesFileID).
		Set("status", int(v.Status)).
		Set("error_message", domain.TruncateErrorMessage(v.ErrorMessage)).
		Set("processed_at", v.ProcessedAt).
		Where(sq.Eq{"id": v.ID}).ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build update model version")
	}
	res, err := c.exec(ctx, query, args...)
	if err != nil {
		return apperrors.NewTransient(err, "postgres: update model version")
	}
	return requireRowsAffected(res, "postgres: model version %s not found", v.ID)
}

func (c *Client) CreateProcessingJob(ctx context.Context, j *domain.ProcessingJob) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Insert(tProcessingJobs).
		Columns("id", "model_version_id", "job_type", "status", "created_at").
		Values(j.ID, j.ModelVersionID, j.JobType, string(j.Status), j.CreatedAt).ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build insert processing job")
	}
	if _, err := c.exec(ctx, query, args...); err != nil {
		return apperrors.NewTransient(err, "postgres: insert processing job")
	}
	return nil
}

func (c *Client) GetProcessingJob(ctx context.Context, id string) (*domain.ProcessingJob, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("id", "model_version_id", "job_type", "status", "error_message",
		"created_at", "started_at", "completed_at").
		From(tProcessingJobs).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build select processing job")
	}
	var j domain.ProcessingJob
	if err := c.get(ctx, &j, query, args...); err != nil {
		return nil, mapNotFound(err, "postgres: processing job %s not found", id)
	}
	return &j, nil
}

func (c *Client) UpdateProcessingJob(ctx context.Context, j *domain.ProcessingJob) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Update(tProcessingJobs).
		Set("status", string(j.Status)).
		Set("error_message", domain.TruncateErrorMessage(j.ErrorMessage)).
		Set("started_at", j.StartedAt).
		Set("completed_at", j.CompletedAt).
		Where(sq.Eq{"id": j.ID}).ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build update processing job")
	}
	res, err := c.exec(ctx, query, args...)
	if err != nil {
		return apperrors.NewTransient(err, "postgres: update processing job")
	}
	return requireRowsAffected(res, "postgres: processing job %s not found", j.ID)
}

func (c *Client) ListProcessingJobsForVersion(ctx context.Context, modelVersionID string) ([]*domain.ProcessingJob, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("id", "model_version_id", "job_type", "status", "error_message",
		"created_at", "started_at", "completed_at").
		From(tProcessingJobs).Where(sq.Eq{"model_version_id": modelVersionID}).OrderBy("created_at").ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build list processing jobs")
	}
	var rows []domain.ProcessingJob
	if err := c.sel(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewTransient(err, "postgres: list processing jobs for version")
	}
	out := make([]*domain.ProcessingJob, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}
