package ifcprocessing

import (
	"context"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/domain"
	"github.com/amd-aig-aima/bimserver/internal/entitystore"
)

// fakeStore is a minimal in-memory entitystore.Store sufficient to
// exercise the orchestrator without a live Postgres instance.
type fakeStore struct {
	entitystore.Store // embed to satisfy the full interface; unused methods panic if called

	files           map[string]*domain.File
	models          map[string]*domain.Model
	projects        map[string]*domain.Project
	modelVersions   map[string]*domain.ModelVersion
	elements        []*domain.IfcElement
	propertySets    []*domain.IfcPropertySet
	properties      []*domain.IfcProperty
	quantitySets    []*domain.IfcQuantitySet
	quantities      []*domain.IfcQuantity
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		files:         make(map[string]*domain.File),
		models:        make(map[string]*domain.Model),
		projects:      make(map[string]*domain.Project),
		modelVersions: make(map[string]*domain.ModelVersion),
	}
}

func (f *fakeStore) GetModelVersion(ctx context.Context, id string) (*domain.ModelVersion, error) {
	v, ok := f.modelVersions[id]
	if !ok {
		return nil, apperrors.NewNotFound("model version %s not found", id)
	}
	cp := *v
	return &cp, nil
}

func (f *fakeStore) UpdateModelVersion(ctx context.Context, v *domain.ModelVersion) error {
	cp := *v
	f.modelVersions[v.ID] = &cp
	return nil
}

func (f *fakeStore) GetFile(ctx context.Context, id string) (*domain.File, error) {
	file, ok := f.files[id]
	if !ok {
		return nil, apperrors.NewNotFound("file %s not found", id)
	}
	return file, nil
}

func (f *fakeStore) CreateFile(ctx context.Context, file *domain.File) error {
	f.files[file.ID] = file
	return nil
}

func (f *fakeStore) GetModel(ctx context.Context, id string) (*domain.Model, error) {
	m, ok := f.models[id]
	if !ok {
		return nil, apperrors.NewNotFound("model %s not found", id)
	}
	return m, nil
}

func (f *fakeStore) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, apperrors.NewNotFound("project %s not found", id)
	}
	return p, nil
}

func (f *fakeStore) CreateFileLink(ctx context.Context, l *domain.FileLink) error {
	return nil
}

func (f *fakeStore) BulkInsertIfcElements(ctx context.Context, elements []*domain.IfcElement) error {
	f.elements = append(f.elements, elements...)
	return nil
}

func (f *fakeStore) BulkInsertPropertySets(ctx context.Context, sets []*domain.IfcPropertySet) error {
	f.propertySets = append(f.propertySets, sets...)
	return nil
}

func (f *fakeStore) BulkInsertProperties(ctx context.Context, props []*domain.IfcProperty) error {
	f.properties = append(f.properties, props...)
	return nil
}

func (f *fakeStore) BulkInsertQuantitySets(ctx context.Context, sets []*domain.IfcQuantitySet) error {
	f.quantitySets = append(f.quantitySets, sets...)
	return nil
}

func (f *fakeStore) BulkInsertQuantities(ctx context.Context, qtys []*domain.IfcQuantity) error {
	f.quantities = append(f.quantities, qtys...)
	return nil
}

func (f *fakeStore) WithinTransaction(ctx context.Context, fn func(entitystore.Store) error) error {
	return fn(f)
}
