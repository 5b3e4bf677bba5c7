package uploads

import (
	"context"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/domain"
	"github.com/amd-aig-aima/bimserver/internal/entitystore"
)

type fakeStore struct {
	entitystore.Store

	sessions       map[string]*domain.UploadSession
	files          map[string]*domain.File
	modelVersions  map[string]*domain.ModelVersion
	jobs           map[string]*domain.ProcessingJob
	nextVersionNum int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions:       make(map[string]*domain.UploadSession),
		files:          make(map[string]*domain.File),
		modelVersions:  make(map[string]*domain.ModelVersion),
		jobs:           make(map[string]*domain.ProcessingJob),
		nextVersionNum: 1,
	}
}

func (f *fakeStore) CreateUploadSession(ctx context.Context, s *domain.UploadSession) error {
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeStore) GetUploadSession(ctx context.Context, id string) (*domain.UploadSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, apperrors.NewNotFound("session %s not found", id)
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) UpdateUploadSession(ctx context.Context, s *domain.UploadSession) error {
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeStore) ListExpiredUploadSessions(ctx context.Context, statuses []domain.UploadStatus) ([]*domain.UploadSession, error) {
	allowed := make(map[domain.UploadStatus]bool, len(statuses))
	for _, s := range statuses {
		allowed[s] = true
	}
	var out []*domain.UploadSession
	for _, s := range f.sessions {
		if allowed[s.Status] {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateFile(ctx context.Context, file *domain.File) error {
	f.files[file.ID] = file
	return nil
}

func (f *fakeStore) GetFile(ctx context.Context, id string) (*domain.File, error) {
	file, ok := f.files[id]
	if !ok {
		return nil, apperrors.NewNotFound("file %s not found", id)
	}
	return file, nil
}

func (f *fakeStore) NextVersionNumber(ctx context.Context, modelID string) (int, error) {
	n := f.nextVersionNum
	f.nextVersionNum++
	return n, nil
}

func (f *fakeStore) CreateModelVersion(ctx context.Context, v *domain.ModelVersion) error {
	f.modelVersions[v.ID] = v
	return nil
}

func (f *fakeStore) CreateProcessingJob(ctx context.Context, j *domain.ProcessingJob) error {
	f.jobs[j.ID] = j
	return nil
}

func (f *fakeStore) WithinTransaction(ctx context.Context, fn func(entitystore.Store) error) error {
	return fn(f)
}
