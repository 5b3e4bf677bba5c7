package httpapi

import (
	"context"
	"sync"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/domain"
	"github.com/amd-aig-aima/bimserver/internal/entitystore"
)

// memStore is a minimal in-memory entitystore.Store good enough to drive
// the HTTP surface end to end without a live Postgres, in the spirit of
// the teacher's zero-value Client{} fakes.
type memStore struct {
	mu sync.Mutex

	workspaces    map[string]*domain.Workspace
	wsMembers     map[string]*domain.WorkspaceMembership // key: workspaceID+"/"+userID
	projects      map[string]*domain.Project
	prjMembers    map[string]*domain.ProjectMembership // key: projectID+"/"+userID
	files         map[string]*domain.File
	uploads       map[string]*domain.UploadSession
	models        map[string]*domain.Model
	versions      map[string]*domain.ModelVersion
	jobs          map[string]*domain.ProcessingJob
	elements      map[string]*domain.IfcElement
	oauthApps     map[string]*domain.OAuthApp
	codes         map[string]*domain.AuthorizationCode
	refreshTokens map[string]*domain.RefreshToken
	pats          map[string]*domain.PersonalAccessToken
	nextVersion   map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		workspaces:    make(map[string]*domain.Workspace),
		wsMembers:     make(map[string]*domain.WorkspaceMembership),
		projects:      make(map[string]*domain.Project),
		prjMembers:    make(map[string]*domain.ProjectMembership),
		files:         make(map[string]*domain.File),
		uploads:       make(map[string]*domain.UploadSession),
		models:        make(map[string]*domain.Model),
		versions:      make(map[string]*domain.ModelVersion),
		jobs:          make(map[string]*domain.ProcessingJob),
		elements:      make(map[string]*domain.IfcElement),
		oauthApps:     make(map[string]*domain.OAuthApp),
		codes:         make(map[string]*domain.AuthorizationCode),
		refreshTokens: make(map[string]*domain.RefreshToken),
		pats:          make(map[string]*domain.PersonalAccessToken),
		nextVersion:   make(map[string]int),
	}
}

func (m *memStore) CreateUser(ctx context.Context, u *domain.User) error { return nil }
func (m *memStore) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return nil, apperrors.NewNotFound("user %s not found", id)
}
func (m *memStore) GetUserBySubject(ctx context.Context, subject string) (*domain.User, error) {
	return nil, apperrors.NewNotFound("user with subject %s not found", subject)
}
func (m *memStore) TouchLastLogin(ctx context.Context, userID string) error { return nil }

func (m *memStore) CreateWorkspace(ctx context.Context, w *domain.Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workspaces[w.ID] = w
	return nil
}
func (m *memStore) GetWorkspace(ctx context.Context, id string) (*domain.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workspaces[id]
	if !ok {
		return nil, apperrors.NewNotFound("workspace %s not found", id)
	}
	return w, nil
}
func (m *memStore) ListWorkspacesForUser(ctx context.Context, userID string) ([]*domain.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Workspace
	for key, mem := range m.wsMembers {
		if mem.UserID == userID {
			if w, ok := m.workspaces[mem.WorkspaceID]; ok {
				out = append(out, w)
			}
		}
		_ = key
	}
	return out, nil
}
func (m *memStore) UpdateWorkspace(ctx context.Context, w *domain.Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workspaces[w.ID] = w
	return nil
}

func (m *memStore) UpsertWorkspaceMembership(ctx context.Context, mem *domain.WorkspaceMembership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wsMembers[mem.WorkspaceID+"/"+mem.UserID] = mem
	return nil
}
func (m *memStore) GetWorkspaceMembership(ctx context.Context, workspaceID, userID string) (*domain.WorkspaceMembership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.wsMembers[workspaceID+"/"+userID]
	if !ok {
		return nil, apperrors.NewNotFound("membership not found")
	}
	return mem, nil
}
func (m *memStore) ListWorkspaceMembers(ctx context.Context, workspaceID string) ([]*domain.WorkspaceMembership, error) {
	return nil, nil
}
func (m *memStore) RemoveWorkspaceMembership(ctx context.Context, workspaceID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.wsMembers, workspaceID+"/"+userID)
	return nil
}

func (m *memStore) CreateProject(ctx context.Context, p *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
	return nil
}
func (m *memStore) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, apperrors.NewNotFound("project %s not found", id)
	}
	return p, nil
}
func (m *memStore) ListProjectsForWorkspace(ctx context.Context, workspaceID string) ([]*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Project
	for _, p := range m.projects {
		if p.WorkspaceID == workspaceID {
			out = append(out, p)
		}
	}
	return out, nil
}
func (m *memStore) UpdateProject(ctx context.Context, p *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
	return nil
}

func (m *memStore) UpsertProjectMembership(ctx context.Context, mem *domain.ProjectMembership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prjMembers[mem.ProjectID+"/"+mem.UserID] = mem
	return nil
}
func (m *memStore) GetProjectMembership(ctx context.Context, projectID, userID string) (*domain.ProjectMembership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.prjMembers[projectID+"/"+userID]
	if !ok {
		return nil, apperrors.NewNotFound("membership not found")
	}
	return mem, nil
}
func (m *memStore) ListProjectMembers(ctx context.Context, projectID string) ([]*domain.ProjectMembership, error) {
	return nil, nil
}
func (m *memStore) RemoveProjectMembership(ctx context.Context, projectID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.prjMembers, projectID+"/"+userID)
	return nil
}

func (m *memStore) CreateFile(ctx context.Context, f *domain.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[f.ID] = f
	return nil
}
func (m *memStore) GetFile(ctx context.Context, id string) (*domain.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok {
		return nil, apperrors.NewNotFound("file %s not found", id)
	}
	return f, nil
}
func (m *memStore) ListFilesForProject(ctx context.Context, projectID string, category domain.FileCategory) ([]*domain.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.File
	for _, f := range m.files {
		if f.ProjectID == projectID && (category == "" || f.Category == category) {
			out = append(out, f)
		}
	}
	return out, nil
}
func (m *memStore) SoftDeleteFile(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok {
		return apperrors.NewNotFound("file %s not found", id)
	}
	f.IsDeleted = true
	return nil
}
func (m *memStore) CreateFileLink(ctx context.Context, l *domain.FileLink) error { return nil }
func (m *memStore) ListFileLinks(ctx context.Context, sourceFileID string) ([]*domain.FileLink, error) {
	return nil, nil
}

func (m *memStore) CreateUploadSession(ctx context.Context, s *domain.UploadSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads[s.ID] = s
	return nil
}
func (m *memStore) GetUploadSession(ctx context.Context, id string) (*domain.UploadSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.uploads[id]
	if !ok {
		return nil, apperrors.NewNotFound("upload session %s not found", id)
	}
	return s, nil
}
func (m *memStore) UpdateUploadSession(ctx context.Context, s *domain.UploadSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads[s.ID] = s
	return nil
}
func (m *memStore) ListExpiredUploadSessions(ctx context.Context, statuses []domain.UploadStatus) ([]*domain.UploadSession, error) {
	return nil, nil
}

func (m *memStore) CreateModel(ctx context.Context, model *domain.Model) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models[model.ID] = model
	return nil
}
func (m *memStore) GetModel(ctx context.Context, id string) (*domain.Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mo, ok := m.models[id]
	if !ok {
		return nil, apperrors.NewNotFound("model %s not found", id)
	}
	return mo, nil
}
func (m *memStore) ListModelsForProject(ctx context.Context, projectID string) ([]*domain.Model, error) {
	return nil, nil
}
func (m *memStore) CreateModelVersion(ctx context.Context, v *domain.ModelVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.versions[v.ID] = v
	return nil
}
func (m *memStore) GetModelVersion(ctx context.Context, id string) (*domain.ModelVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.versions[id]
	if !ok {
		return nil, apperrors.NewNotFound("model version %s not found", id)
	}
	return v, nil
}
func (m *memStore) ListModelVersions(ctx context.Context, modelID string) ([]*domain.ModelVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ModelVersion
	for _, v := range m.versions {
		if v.ModelID == modelID {
			out = append(out, v)
		}
	}
	return out, nil
}
func (m *memStore) NextVersionNumber(ctx context.Context, modelID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextVersion[modelID]++
	return m.nextVersion[modelID], nil
}
func (m *memStore) UpdateModelVersion(ctx context.Context, v *domain.ModelVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.versions[v.ID] = v
	return nil
}

func (m *memStore) CreateProcessingJob(ctx context.Context, j *domain.ProcessingJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[j.ID] = j
	return nil
}
func (m *memStore) GetProcessingJob(ctx context.Context, id string) (*domain.ProcessingJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, apperrors.NewNotFound("job %s not found", id)
	}
	return j, nil
}
func (m *memStore) UpdateProcessingJob(ctx context.Context, j *domain.ProcessingJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[j.ID] = j
	return nil
}
func (m *memStore) ListProcessingJobsForVersion(ctx context.Context, modelVersionID string) ([]*domain.ProcessingJob, error) {
	return nil, nil
}

func (m *memStore) BulkInsertIfcElements(ctx context.Context, elements []*domain.IfcElement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range elements {
		m.elements[e.ID] = e
	}
	return nil
}
func (m *memStore) BulkInsertPropertySets(ctx context.Context, sets []*domain.IfcPropertySet) error {
	return nil
}
func (m *memStore) BulkInsertProperties(ctx context.Context, props []*domain.IfcProperty) error {
	return nil
}
func (m *memStore) BulkInsertQuantitySets(ctx context.Context, sets []*domain.IfcQuantitySet) error {
	return nil
}
func (m *memStore) BulkInsertQuantities(ctx context.Context, qtys []*domain.IfcQuantity) error {
	return nil
}
func (m *memStore) ListElementsForVersion(ctx context.Context, modelVersionID string, limit, offset int) ([]*domain.IfcElement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.IfcElement
	for _, e := range m.elements {
		if e.ModelVersionID == modelVersionID {
			out = append(out, e)
		}
	}
	return out, nil
}
func (m *memStore) GetElementByGlobalID(ctx context.Context, modelVersionID, globalID string) (*domain.IfcElement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.elements {
		if e.ModelVersionID == modelVersionID && e.GlobalID == globalID {
			return e, nil
		}
	}
	return nil, apperrors.NewNotFound("element %s not found", globalID)
}
func (m *memStore) GetElementByEntityLabel(ctx context.Context, modelVersionID string, entityLabel int) (*domain.IfcElement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.elements {
		if e.ModelVersionID == modelVersionID && e.EntityLabel == entityLabel {
			return e, nil
		}
	}
	return nil, apperrors.NewNotFound("element with entityLabel %d not found", entityLabel)
}
func (m *memStore) ListPropertySets(ctx context.Context, elementID string) ([]*domain.IfcPropertySet, error) {
	return nil, nil
}
func (m *memStore) ListProperties(ctx context.Context, propertySetID string) ([]*domain.IfcProperty, error) {
	return nil, nil
}

func (m *memStore) CreateOAuthApp(ctx context.Context, a *domain.OAuthApp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.oauthApps[a.ID] = a
	return nil
}
func (m *memStore) GetOAuthAppByClientID(ctx context.Context, clientID string) (*domain.OAuthApp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.oauthApps {
		if a.ClientID == clientID {
			return a, nil
		}
	}
	return nil, apperrors.NewNotFound("oauth app with client_id %s not found", clientID)
}
func (m *memStore) GetOAuthApp(ctx context.Context, id string) (*domain.OAuthApp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.oauthApps[id]
	if !ok {
		return nil, apperrors.NewNotFound("oauth app %s not found", id)
	}
	return a, nil
}
func (m *memStore) ListOAuthAppsForWorkspace(ctx context.Context, workspaceID string) ([]*domain.OAuthApp, error) {
	return nil, nil
}
func (m *memStore) UpdateOAuthApp(ctx context.Context, a *domain.OAuthApp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.oauthApps[a.ID] = a
	return nil
}

func (m *memStore) CreateAuthorizationCode(ctx context.Context, c *domain.AuthorizationCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[c.CodeHash] = c
	return nil
}
func (m *memStore) GetAuthorizationCodeByHash(ctx context.Context, codeHash string) (*domain.AuthorizationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[codeHash]
	if !ok {
		return nil, apperrors.NewNotFound("authorization code not found")
	}
	return c, nil
}
func (m *memStore) MarkAuthorizationCodeUsed(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.codes {
		if c.ID == id {
			c.IsUsed = true
			return nil
		}
	}
	return apperrors.NewNotFound("authorization code %s not found", id)
}

func (m *memStore) CreateRefreshToken(ctx context.Context, t *domain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshTokens[t.TokenHash] = t
	return nil
}
func (m *memStore) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.refreshTokens[tokenHash]
	if !ok {
		return nil, apperrors.NewNotFound("refresh token not found")
	}
	return t, nil
}
func (m *memStore) RevokeRefreshToken(ctx context.Context, id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.refreshTokens {
		if t.ID == id {
			t.IsRevoked = true
			t.RevokedReason = reason
		}
	}
	return nil
}
func (m *memStore) RevokeRefreshTokenFamily(ctx context.Context, tokenFamilyID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.refreshTokens {
		if t.TokenFamilyID == tokenFamilyID {
			t.IsRevoked = true
			t.RevokedReason = reason
		}
	}
	return nil
}
func (m *memStore) ReplaceRefreshToken(ctx context.Context, oldID string, replacement *domain.RefreshToken) error {
	if err := m.RevokeRefreshToken(ctx, oldID, domain.ReasonTokenRotation); err != nil {
		return err
	}
	return m.CreateRefreshToken(ctx, replacement)
}

func (m *memStore) CreatePersonalAccessToken(ctx context.Context, p *domain.PersonalAccessToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pats[p.ID] = p
	return nil
}
func (m *memStore) GetPersonalAccessTokenByHash(ctx context.Context, tokenHash string) (*domain.PersonalAccessToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.pats {
		if p.TokenHash == tokenHash {
			return p, nil
		}
	}
	return nil, apperrors.NewNotFound("personal access token not found")
}
func (m *memStore) ListPersonalAccessTokensForUser(ctx context.Context, userID string) ([]*domain.PersonalAccessToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.PersonalAccessToken
	for _, p := range m.pats {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}
func (m *memStore) RevokePersonalAccessToken(ctx context.Context, id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pats[id]
	if !ok {
		return apperrors.NewNotFound("personal access token %s not found", id)
	}
	p.IsRevoked = true
	p.RevokedReason = reason
	return nil
}
func (m *memStore) TouchPersonalAccessTokenUsage(ctx context.Context, id, ipAddress string) error {
	return nil
}

func (m *memStore) CreateAuditLog(ctx context.Context, a *domain.AuditLog) error { return nil }
func (m *memStore) ListAuditLogsForSubject(ctx context.Context, subjectID string, limit int) ([]*domain.AuditLog, error) {
	return nil, nil
}

func (m *memStore) CheckHealth(ctx context.Context) error { return nil }

// WithinTransaction has no real transaction to join; m's methods are
// already guarded by m.mu, so fn just runs directly against m.
func (m *memStore) WithinTransaction(ctx context.Context, fn func(entitystore.Store) error) error {
	return fn(m)
}
