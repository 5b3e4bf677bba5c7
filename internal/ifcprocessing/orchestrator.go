package ifcprocessing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/contentstore"
	"github.com/amd-aig-aima/bimserver/internal/domain"
	"github.com/amd-aig-aima/bimserver/internal/entitystore"
	"github.com/amd-aig-aima/bimserver/internal/idutil"
	"github.com/amd-aig-aima/bimserver/internal/progress"
	"github.com/amd-aig-aima/bimserver/internal/storekeys"
)

// artifact key segment names, paired with storekeys.FlavorArtifact.
const (
	artifactWexBim     = "wexbim"
	artifactProperties = "properties"
)

// Payload is the job envelope payload consumed from the processing
// queue for the IfcToWexBim job type.
type Payload struct {
	ModelVersionID string `json:"modelVersionId"`
}

// Orchestrator drives the conversion algorithm described in spec §4.11.
// One Orchestrator is shared across jobs; HandleAsync is safe for
// concurrent use since it holds no per-job state outside the call stack.
type Orchestrator struct {
	store      entitystore.Store
	content    contentstore.Store
	geometry   GeometryEngine
	properties PropertyExtractor
	notifier   *progress.Notifier
}

// New wires an Orchestrator. geometry/properties are typically
// StubGeometryEngine{}/StubPropertyExtractor{} until a real collaborator
// is integrated.
func New(store entitystore.Store, content contentstore.Store, geometry GeometryEngine, properties PropertyExtractor, notifier *progress.Notifier) *Orchestrator {
	return &Orchestrator{store: store, content: content, geometry: geometry, properties: properties, notifier: notifier}
}

// HandleAsync implements internal/worker.Handler for the IfcToWexBim job
// type: jobID is the queue envelope id, payload carries the target
// modelVersionId.
func (o *Orchestrator) HandleAsync(ctx context.Context, jobID string, payloadJSON json.RawMessage) error {
	var p Payload
	if err := json.Unmarshal(payloadJSON, &p); err != nil {
		return apperrors.NewValidation("ifcprocessing: invalid job payload: %v", err)
	}
	return o.Process(ctx, jobID, p.ModelVersionID)
}

// Process runs the full conversion algorithm for modelVersionID,
// emitting progress events for jobID at each stable stage.
func (o *Orchestrator) Process(ctx context.Context, jobID, modelVersionID string) error {
	o.emit(jobID, modelVersionID, progress.StageOpening, progress.PercentOpening, "loading model version", false, true, "")

	version, ifcFile, project, err := o.loadContext(ctx, modelVersionID)
	if err != nil {
		return o.fail(ctx, jobID, version, err)
	}

	version.Status = domain.VersionProcessing
	version.ProcessedAt = nil
	if err := o.store.UpdateModelVersion(ctx, version); err != nil {
		return o.fail(ctx, jobID, version, err)
	}

	source, err := o.content.OpenRead(ctx, ifcFile.StorageKey)
	if err != nil {
		return o.fail(ctx, jobID, version, err)
	}
	if source == nil {
		return o.fail(ctx, jobID, version, apperrors.NewNotFound("ifcprocessing: source ifc bytes absent for key %s", ifcFile.StorageKey))
	}
	defer source.Close()

	raw, err := io.ReadAll(source)
	if err != nil {
		return o.fail(ctx, jobID, version, apperrors.NewInternal(err, "ifcprocessing: read source bytes"))
	}

	o.emit(jobID, modelVersionID, progress.StageProcessing, progress.PercentProcessing, "extracting properties", false, true, "")
	elements, err := o.properties.ExtractProperties(ctx, bytes.NewReader(raw))
	if err != nil {
		return o.fail(ctx, jobID, version, apperrors.NewInternal(err, "ifcprocessing: extract properties"))
	}

	o.emit(jobID, modelVersionID, progress.StageGeometry, progress.PercentGeometry, "converting geometry", false, true, "")
	wexbim, err := o.geometry.ConvertToWexBim(ctx, bytes.NewReader(raw))
	if err != nil {
		return o.fail(ctx, jobID, version, apperrors.NewInternal(err, "ifcprocessing: convert to wexbim"))
	}

	o.emit(jobID, modelVersionID, progress.StageTessellation, progress.PercentTessellation, "writing artifacts", false, true, "")
	wexbimFile, propsFile, err := o.writeArtifacts(ctx, project.WorkspaceID, project.ID, ifcFile.ID, version, wexbim, elements)
	if err != nil {
		return o.fail(ctx, jobID, version, err)
	}

	o.emit(jobID, modelVersionID, progress.StageFinalizing, progress.PercentFinalizing, "persisting entity graph", false, true, "")
	if err := o.insertEntityGraph(ctx, version.ID, elements); err != nil {
		return o.fail(ctx, jobID, version, err)
	}

	version.WexBimFileID = wexbimFile.ID
	version.PropertiesFileID = propsFile.ID
	version.Status = domain.VersionReady
	version.ErrorMessage = ""
	completedAt := time.Now()
	version.ProcessedAt = &completedAt
	if err := o.store.UpdateModelVersion(ctx, version); err != nil {
		return o.fail(ctx, jobID, version, err)
	}

	o.emit(jobID, modelVersionID, progress.StageComplete, progress.PercentComplete, "conversion complete", true, true, "")
	return nil
}

func (o *Orchestrator) loadContext(ctx context.Context, modelVersionID string) (*domain.ModelVersion, *domain.File, *domain.Project, error) {
	version, err := o.store.GetModelVersion(ctx, modelVersionID)
	if err != nil {
		return nil, nil, nil, err
	}
	ifcFile, err := o.store.GetFile(ctx, version.IfcFileID)
	if err != nil {
		return version, nil, nil, err
	}
	model, err := o.store.GetModel(ctx, version.ModelID)
	if err != nil {
		return version, ifcFile, nil, err
	}
	project, err := o.store.GetProject(ctx, model.ProjectID)
	if err != nil {
		return version, ifcFile, nil, err
	}
	return version, ifcFile, project, nil
}

// writeArtifacts persists the WexBIM and properties-index payloads
// through the content store and records their File/FileLink rows.
// Properties are serialized as JSON; a richer format is an integration
// detail of the property extractor, not this orchestrator.
func (o *Orchestrator) writeArtifacts(ctx context.Context, workspaceID, projectID, sourceFileID string, version *domain.ModelVersion, wexbim []byte, elements []ExtractedElement) (*domain.File, *domain.File, error) {
	propsJSON, err := json.Marshal(elements)
	if err != nil {
		return nil, nil, apperrors.NewInternal(err, "ifcprocessing: marshal property index")
	}

	wexbimFile, err := o.putArtifact(ctx, workspaceID, projectID, artifactWexBim, "wexbim", "application/octet-stream", wexbim)
	if err != nil {
		return nil, nil, err
	}
	if err := o.store.CreateFileLink(ctx, &domain.FileLink{ID: idutil.NewUID(), SourceFileID: wexbimFile.ID, TargetFileID: sourceFileID, LinkType: domain.LinkDerivedFrom, CreatedAt: time.Now()}); err != nil {
		return nil, nil, err
	}

	propsFile, err := o.putArtifact(ctx, workspaceID, projectID, artifactProperties, "json", "application/json", propsJSON)
	if err != nil {
		return nil, nil, err
	}
	if err := o.store.CreateFileLink(ctx, &domain.FileLink{ID: idutil.NewUID(), SourceFileID: propsFile.ID, TargetFileID: sourceFileID, LinkType: domain.LinkPropertiesOf, CreatedAt: time.Now()}); err != nil {
		return nil, nil, err
	}

	return wexbimFile, propsFile, nil
}

func (o *Orchestrator) putArtifact(ctx context.Context, workspaceID, projectID, artifactType, ext, contentType string, data []byte) (*domain.File, error) {
	key, err := storekeys.Build(storekeys.FlavorArtifact, workspaceID, projectID, artifactType, ext)
	if err != nil {
		return nil, err
	}
	if err := o.content.Put(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return nil, err
	}
	category := domain.FileWexBim
	if artifactType == artifactProperties {
		category = domain.FileProperties
	}
	file := &domain.File{
		ID:              idutil.NewUID(),
		ProjectID:       projectID,
		Name:            fmt.Sprintf("%s.%s", artifactType, ext),
		ContentType:     contentType,
		SizeBytes:       int64(len(data)),
		Category:        category,
		StorageProvider: o.content.Name(),
		StorageKey:      key,
		CreatedAt:       time.Now(),
	}
	if err := o.store.CreateFile(ctx, file); err != nil {
		return nil, err
	}
	return file, nil
}

// insertEntityGraph bulk-inserts the parsed entity graph, deduplicating
// on (modelVersionId, entityLabel) by keeping the last occurrence
// within this import, and runs all five bulk inserts inside one
// transaction so a failure partway through never leaves elements without
// their property/quantity rows (spec §4.11 step 5).
func (o *Orchestrator) insertEntityGraph(ctx context.Context, modelVersionID string, elements []ExtractedElement) error {
	byLabel := make(map[int]ExtractedElement, len(elements))
	order := make([]int, 0, len(elements))
	for _, el := range elements {
		if _, seen := byLabel[el.EntityLabel]; !seen {
			order = append(order, el.EntityLabel)
		}
		byLabel[el.EntityLabel] = el
	}

	var dbElements []*domain.IfcElement
	var dbPropSets []*domain.IfcPropertySet
	var dbProps []*domain.IfcProperty
	var dbQtySets []*domain.IfcQuantitySet
	var dbQtys []*domain.IfcQuantity

	for _, label := range order {
		el := byLabel[label]
		elementID := idutil.NewUID()
		dbElements = append(dbElements, &domain.IfcElement{
			ID: elementID, ModelVersionID: modelVersionID, EntityLabel: el.EntityLabel,
			GlobalID: el.GlobalID, Name: el.Name, TypeName: el.TypeName, Description: el.Description,
			ObjectType: el.ObjectType, TypeObjectName: el.TypeObjectName, TypeObjectType: el.TypeObjectType,
		})
		for _, ps := range el.PropertySets {
			psID := idutil.NewUID()
			dbPropSets = append(dbPropSets, &domain.IfcPropertySet{
				ID: psID, ElementID: elementID, Name: ps.Name, GlobalID: ps.GlobalID, IsTypePropertySet: ps.IsTypePropertySet,
			})
			for _, p := range ps.Properties {
				dbProps = append(dbProps, &domain.IfcProperty{
					ID: idutil.NewUID(), PropertySetID: psID, Name: p.Name, Value: p.Value, ValueType: p.ValueType, Unit: p.Unit,
				})
			}
		}
		for _, qs := range el.QuantitySets {
			qsID := idutil.NewUID()
			dbQtySets = append(dbQtySets, &domain.IfcQuantitySet{ID: qsID, ElementID: elementID, Name: qs.Name, GlobalID: qs.GlobalID})
			for _, q := range qs.Quantities {
				dbQtys = append(dbQtys, &domain.IfcQuantity{ID: idutil.NewUID(), QuantitySetID: qsID, Name: q.Name, Value: q.Value, Unit: q.Unit})
			}
		}
	}

	return o.store.WithinTransaction(ctx, func(tx entitystore.Store) error {
		if len(dbElements) > 0 {
			if err := tx.BulkInsertIfcElements(ctx, dbElements); err != nil {
				return err
			}
		}
		if len(dbPropSets) > 0 {
			if err := tx.BulkInsertPropertySets(ctx, dbPropSets); err != nil {
				return err
			}
		}
		if len(dbProps) > 0 {
			if err := tx.BulkInsertProperties(ctx, dbProps); err != nil {
				return err
			}
		}
		if len(dbQtySets) > 0 {
			if err := tx.BulkInsertQuantitySets(ctx, dbQtySets); err != nil {
				return err
			}
		}
		if len(dbQtys) > 0 {
			if err := tx.BulkInsertQuantities(ctx, dbQtys); err != nil {
				return err
			}
		}
		return nil
	})
}

// fail records the failure on the ModelVersion (best-effort) and emits
// a terminal progress event, then returns the original error.
func (o *Orchestrator) fail(ctx context.Context, jobID string, version *domain.ModelVersion, cause error) error {
	modelVersionID := ""
	if version != nil {
		modelVersionID = version.ID
		version.Status = domain.VersionFailed
		version.ErrorMessage = domain.TruncateErrorMessage(cause.Error())
		_ = o.store.UpdateModelVersion(ctx, version)
	}
	o.emit(jobID, modelVersionID, "Failed", 0, "", true, false, cause.Error())
	return cause
}

func (o *Orchestrator) emit(jobID, modelVersionID, stage string, percent int, message string, isComplete, isSuccess bool, errMsg string) {
	o.notifier.Publish(progress.Event{
		JobID: jobID, ModelVersionID: modelVersionID, Stage: stage, PercentComplete: percent,
		Message: message, IsComplete: isComplete, IsSuccess: isSuccess, ErrorMessage: errMsg, Timestamp: time.Now(),
	})
}
