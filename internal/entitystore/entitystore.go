// Package entitystore defines the relational persistence boundary for the
// BIM platform's entity graph (spec §3, component C3).
// internal/entitystore/postgres provides the only production implementation.
package entitystore

import (
	"context"

	"github.com/amd-aig-aima/bimserver/internal/domain"
)

// Store is the full set of entity operations the rest of the platform
// needs. Every method propagates context cancellation and returns
// internal/apperrors.Error values (NotFound, Conflict, AlreadyExists, ...).
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserBySubject(ctx context.Context, subject string) (*domain.User, error)
	TouchLastLogin(ctx context.Context, userID string) error

	// Workspaces
	CreateWorkspace(ctx context.Context, w *domain.Workspace) error
	GetWorkspace(ctx context.Context, id string) (*domain.Workspace, error)
	ListWorkspacesForUser(ctx context.Context, userID string) ([]*domain.Workspace, error)
	UpdateWorkspace(ctx context.Context, w *domain.Workspace) error

	// Workspace membership
	UpsertWorkspaceMembership(ctx context.Context, m *domain.WorkspaceMembership) error
	GetWorkspaceMembership(ctx context.Context, workspaceID, userID string) (*domain.WorkspaceMembership, error)
	ListWorkspaceMembers(ctx context.Context, workspaceID string) ([]*domain.WorkspaceMembership, error)
	RemoveWorkspaceMembership(ctx context.Context, workspaceID, userID string) error

	// Projects
	CreateProject(ctx context.Context, p *domain.Project) error
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	ListProjectsForWorkspace(ctx context.Context, workspaceID string) ([]*domain.Project, error)
	UpdateProject(ctx context.Context, p *domain.Project) error

	// Project membership
	UpsertProjectMembership(ctx context.Context, m *domain.ProjectMembership) error
	GetProjectMembership(ctx context.Context, projectID, userID string) (*domain.ProjectMembership, error)
	ListProjectMembers(ctx context.Context, projectID string) ([]*domain.ProjectMembership, error)
	RemoveProjectMembership(ctx context.Context, projectID, userID string) error

	// Files
	CreateFile(ctx context.Context, f *domain.File) error
	GetFile(ctx context.Context, id string) (*domain.File, error)
	ListFilesForProject(ctx context.Context, projectID string, category domain.FileCategory) ([]*domain.File, error)
	SoftDeleteFile(ctx context.Context, id string) error
	CreateFileLink(ctx context.Context, l *domain.FileLink) error
	ListFileLinks(ctx context.Context, sourceFileID string) ([]*domain.FileLink, error)

	// Upload sessions
	CreateUploadSession(ctx context.Context, s *domain.UploadSession) error
	GetUploadSession(ctx context.Context, id string) (*domain.UploadSession, error)
	UpdateUploadSession(ctx context.Context, s *domain.UploadSession) error
	ListExpiredUploadSessions(ctx context.Context, statuses []domain.UploadStatus) ([]*domain.UploadSession, error)

	// Models and versions
	CreateModel(ctx context.Context, m *domain.Model) error
	GetModel(ctx context.Context, id string) (*domain.Model, error)
	ListModelsForProject(ctx context.Context, projectID string) ([]*domain.Model, error)
	CreateModelVersion(ctx context.Context, v *domain.ModelVersion) error
	GetModelVersion(ctx context.Context, id string) (*domain.ModelVersion, error)
	ListModelVersions(ctx context.Context, modelID string) ([]*domain.ModelVersion, error)
	NextVersionNumber(ctx context.Context, modelID string) (int, error)
	UpdateModelVersion(ctx context.Context, v *domain.ModelVersion) error

	// Processing jobs
	CreateProcessingJob(ctx context.Context, j *domain.ProcessingJob) error
	GetProcessingJob(ctx context.Context, id string) (*domain.ProcessingJob, error)
	UpdateProcessingJob(ctx context.Context, j *domain.ProcessingJob) error
	ListProcessingJobsForVersion(ctx context.Context, modelVersionID string) ([]*domain.ProcessingJob, error)

	// IFC entity graph (bulk insert after conversion, spec §4.6)
	BulkInsertIfcElements(ctx context.Context, elements []*domain.IfcElement) error
	BulkInsertPropertySets(ctx context.Context, sets []*domain.IfcPropertySet) error
	BulkInsertProperties(ctx context.Context, props []*domain.IfcProperty) error
	BulkInsertQuantitySets(ctx context.Context, sets []*domain.IfcQuantitySet) error
	BulkInsertQuantities(ctx context.Context, qtys []*domain.IfcQuantity) error
	ListElementsForVersion(ctx context.Context, modelVersionID string, limit, offset int) ([]*domain.IfcElement, error)
	GetElementByGlobalID(ctx context.Context, modelVersionID, globalID string) (*domain.IfcElement, error)
	ListPropertySets(ctx context.Context, elementID string) ([]*domain.IfcPropertySet, error)
	ListProperties(ctx context.Context, propertySetID string) ([]*domain.IfcProperty, error)

	// OAuth apps
	CreateOAuthApp(ctx context.Context, a *domain.OAuthApp) error
	GetOAuthAppByClientID(ctx context.Context, clientID string) (*domain.OAuthApp, error)
	GetOAuthApp(ctx context.Context, id string) (*domain.OAuthApp, error)
	ListOAuthAppsForWorkspace(ctx context.Context, workspaceID string) ([]*domain.OAuthApp, error)
	UpdateOAuthApp(ctx context.Context, a *domain.OAuthApp) error

	// Authorization codes
	CreateAuthorizationCode(ctx context.Context, c *domain.AuthorizationCode) error
	GetAuthorizationCodeByHash(ctx context.Context, codeHash string) (*domain.AuthorizationCode, error)
	MarkAuthorizationCodeUsed(ctx context.Context, id string) error

	// Refresh tokens
	CreateRefreshToken(ctx context.Context, t *domain.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id, reason string) error
	RevokeRefreshTokenFamily(ctx context.Context, tokenFamilyID, reason string) error
	ReplaceRefreshToken(ctx context.Context, oldID string, replacement *domain.RefreshToken) error

	// Personal access tokens
	CreatePersonalAccessToken(ctx context.Context, p *domain.PersonalAccessToken) error
	GetPersonalAccessTokenByHash(ctx context.Context, tokenHash string) (*domain.PersonalAccessToken, error)
	ListPersonalAccessTokensForUser(ctx context.Context, userID string) ([]*domain.PersonalAccessToken, error)
	RevokePersonalAccessToken(ctx context.Context, id, reason string) error
	TouchPersonalAccessTokenUsage(ctx context.Context, id, ipAddress string) error

	// Audit log
	CreateAuditLog(ctx context.Context, a *domain.AuditLog) error
	ListAuditLogsForSubject(ctx context.Context, subjectID string, limit int) ([]*domain.AuditLog, error)

	// CheckHealth performs an inexpensive liveness probe (e.g. SELECT 1).
	CheckHealth(ctx context.Context) error

	// WithinTransaction runs fn against a Store scoped to a single
	// transaction, committing if fn returns nil and rolling back
	// otherwise. Callers that must make several writes atomic (upload
	// commit per spec §4.3, the IFC entity graph insert per spec §4.7
	// step 5) issue every write through fn's argument instead of the
	// outer Store.
	WithinTransaction(ctx context.Context, fn func(Store) error) error

	// GetElementByEntityLabel looks up an element by its integer IFC
	// entity label, the primary search key for spec §9's properties
	// lookup.
	GetElementByEntityLabel(ctx context.Context, modelVersionID string, entityLabel int) (*domain.IfcElement, error)
}
