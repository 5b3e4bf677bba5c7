// Package uploads implements the Upload Coordinator (spec §4.7,
// component C7): pure orchestration over the Content Store and Entity
// Store driving the upload-session state machine.
package uploads

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/contentstore"
	"github.com/amd-aig-aima/bimserver/internal/domain"
	"github.com/amd-aig-aima/bimserver/internal/entitystore"
	"github.com/amd-aig-aima/bimserver/internal/idutil"
	"github.com/amd-aig-aima/bimserver/internal/logging"
	"github.com/amd-aig-aima/bimserver/internal/queue"
	"github.com/amd-aig-aima/bimserver/internal/storekeys"
)

// defaultSessionTTL is the upload-session lifetime used when New is given
// a non-positive TTL; presigned URLs for DirectToBlob sessions expire
// with the session (spec §4.7).
const defaultSessionTTL = 30 * time.Minute

// IfcConversionJobType names the queue envelope type the processing
// pipeline registers a handler for (spec §4.11).
const IfcConversionJobType = "IfcToWexBim"

// Coordinator wires the Content Store, Entity Store, and Processing
// Queue into the upload-session state machine.
type Coordinator struct {
	store       entitystore.Store
	content     contentstore.Store
	jobQueue    *queue.Queue
	sessionTTL  time.Duration
}

// New wires a Coordinator. sessionTTL <= 0 uses the spec default (30m).
func New(store entitystore.Store, content contentstore.Store, jobQueue *queue.Queue, sessionTTL time.Duration) *Coordinator {
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	return &Coordinator{store: store, content: content, jobQueue: jobQueue, sessionTTL: sessionTTL}
}

// ReserveOptions carries the caller's request for reserveUpload.
type ReserveOptions struct {
	ProjectID     string
	WorkspaceID   string
	FileName      string
	ContentType   string
	ExpectedSize  *int64
	Mode          domain.UploadMode
}

// ReserveResult is reserveUpload's public contract return shape.
type ReserveResult struct {
	Session   *domain.UploadSession
	UploadURL string
}

// ReserveUpload creates a new session in state Reserved (spec §4.7).
func (c *Coordinator) ReserveUpload(ctx context.Context, opts ReserveOptions) (*ReserveResult, error) {
	if opts.ProjectID == "" || opts.FileName == "" {
		return nil, apperrors.NewValidation("uploads: projectId and fileName are required")
	}

	now := time.Now()
	session := &domain.UploadSession{
		ID:                idutil.NewUID(),
		ProjectID:         opts.ProjectID,
		FileName:          opts.FileName,
		ContentType:       opts.ContentType,
		ExpectedSizeBytes: opts.ExpectedSize,
		Status:            domain.UploadReserved,
		UploadMode:        opts.Mode,
		CreatedAt:         now,
		ExpiresAt:         now.Add(c.sessionTTL),
	}

	key, err := storekeys.Build(storekeys.FlavorUpload, opts.WorkspaceID, opts.ProjectID, session.ID, extOf(opts.FileName))
	if err != nil {
		return nil, err
	}
	session.TempStorageKey = key

	var uploadURL string
	if opts.Mode == domain.UploadDirectToBlob {
		uploadURL, err = c.content.GenerateUploadURL(ctx, key, opts.ContentType, session.ExpiresAt)
		if err != nil {
			return nil, err
		}
		if uploadURL == "" {
			return nil, apperrors.NewNotSupported("uploads: content store does not support direct uploads")
		}
		session.DirectUploadURL = uploadURL
	}

	if err := c.store.CreateUploadSession(ctx, session); err != nil {
		return nil, err
	}
	return &ReserveResult{Session: session, UploadURL: uploadURL}, nil
}

// GetUploadSession fetches a session by id.
func (c *Coordinator) GetUploadSession(ctx context.Context, sessionID string) (*domain.UploadSession, error) {
	return c.store.GetUploadSession(ctx, sessionID)
}

// UploadContent streams bytes through the Content Store in ServerProxy
// mode (spec §4.7). Idempotent if the session is already Uploading.
func (c *Coordinator) UploadContent(ctx context.Context, sessionID string, stream io.Reader, contentType string) error {
	session, err := c.store.GetUploadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.UploadMode != domain.UploadServerProxy {
		return apperrors.NewValidation("uploads: uploadContent is only permitted in ServerProxy mode")
	}
	if session.Status != domain.UploadReserved && session.Status != domain.UploadUploading {
		return apperrors.NewConflict("uploads: session %s is not in a state that accepts content (status=%v)", sessionID, session.Status)
	}

	if err := c.content.Put(ctx, session.TempStorageKey, stream, contentType); err != nil {
		session.Status = domain.UploadFailed
		session.FailureReason = err.Error()
		_ = c.store.UpdateUploadSession(ctx, session)
		return err
	}

	session.Status = domain.UploadUploading
	return c.store.UpdateUploadSession(ctx, session)
}

// CommitOptions carries the caller's request for commitUpload.
type CommitOptions struct {
	CreateModelVersion bool
	ModelID            string
	EnqueueConversion  bool
}

// CommitUpload atomically finalizes a session into a File record (spec
// §4.7 commitUpload). Calling commit twice on an already-Committed
// session returns the previously created File without creating a
// duplicate (spec L1 upload idempotence). The File row, the optional
// ModelVersion/ProcessingJob rows, and the session's transition to
// Committed all happen inside one entitystore transaction (spec §4.3);
// the conversion job is only handed to the queue after that transaction
// commits, so a worker can never pick up a job whose rows aren't durable
// yet.
func (c *Coordinator) CommitUpload(ctx context.Context, sessionID string, opts CommitOptions) (*domain.File, error) {
	session, err := c.store.GetUploadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Status == domain.UploadCommitted {
		return c.store.GetFile(ctx, session.CommittedFileID)
	}
	if session.Status != domain.UploadReserved && session.Status != domain.UploadUploading {
		return nil, apperrors.NewConflict("uploads: session %s cannot be committed from status %v", sessionID, session.Status)
	}

	exists, err := c.content.Exists(ctx, session.TempStorageKey)
	if err != nil {
		return nil, err
	}
	if !exists {
		session.Status = domain.UploadFailed
		session.FailureReason = "committed key absent from content store"
		_ = c.store.UpdateUploadSession(ctx, session)
		return nil, apperrors.NewNotFound("uploads: key %s absent at commit time", session.TempStorageKey)
	}

	size, err := c.content.Size(ctx, session.TempStorageKey)
	if err != nil {
		return nil, err
	}

	file := &domain.File{
		ID:              idutil.NewUID(),
		ProjectID:       session.ProjectID,
		Name:            session.FileName,
		ContentType:     session.ContentType,
		SizeBytes:       derefSize(size),
		Category:        categoryOf(session.FileName, session.ContentType),
		StorageProvider: c.content.Name(),
		StorageKey:      session.TempStorageKey,
		CreatedAt:       time.Now(),
	}

	var job *domain.ProcessingJob
	var conversionVersionID string
	err = c.store.WithinTransaction(ctx, func(tx entitystore.Store) error {
		if err := tx.CreateFile(ctx, file); err != nil {
			return err
		}

		if opts.CreateModelVersion && file.Category == domain.FileIfc && opts.ModelID != "" {
			version, j, err := createModelVersionAndJob(ctx, tx, opts.ModelID, file.ID, opts.EnqueueConversion)
			if err != nil {
				return err
			}
			job = j
			conversionVersionID = version.ID
		}

		session.Status = domain.UploadCommitted
		session.CommittedFileID = file.ID
		return tx.UpdateUploadSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	if job != nil && c.jobQueue != nil {
		if err := c.enqueueConversionJob(ctx, conversionVersionID, job); err != nil {
			return nil, err
		}
	}
	return file, nil
}

// createModelVersionAndJob persists the ModelVersion and, if enqueue is
// requested, the ProcessingJob row through tx. Both writes join whatever
// transaction tx is already scoped to (spec §4.3). Enqueuing the job
// onto the in-process queue is a separate, non-transactional step the
// caller performs after the transaction commits.
func createModelVersionAndJob(ctx context.Context, tx entitystore.Store, modelID, ifcFileID string, enqueue bool) (*domain.ModelVersion, *domain.ProcessingJob, error) {
	versionNumber, err := tx.NextVersionNumber(ctx, modelID)
	if err != nil {
		return nil, nil, err
	}
	version := &domain.ModelVersion{
		ID:            idutil.NewUID(),
		ModelID:       modelID,
		VersionNumber: versionNumber,
		IfcFileID:     ifcFileID,
		Status:        domain.VersionPending,
		CreatedAt:     time.Now(),
	}
	if err := tx.CreateModelVersion(ctx, version); err != nil {
		return nil, nil, err
	}

	if !enqueue {
		return version, nil, nil
	}

	job := &domain.ProcessingJob{
		ID:             idutil.NewUID(),
		ModelVersionID: version.ID,
		JobType:        IfcConversionJobType,
		Status:         domain.JobQueued,
		CreatedAt:      time.Now(),
	}
	if err := tx.CreateProcessingJob(ctx, job); err != nil {
		return nil, nil, err
	}
	return version, job, nil
}

func (c *Coordinator) enqueueConversionJob(ctx context.Context, modelVersionID string, job *domain.ProcessingJob) error {
	payload, err := json.Marshal(struct {
		ModelVersionID string `json:"modelVersionId"`
	}{ModelVersionID: modelVersionID})
	if err != nil {
		return apperrors.NewInternal(err, "uploads: marshal conversion job payload")
	}

	return c.jobQueue.Enqueue(ctx, queue.Envelope{
		JobID:       job.ID,
		Type:        IfcConversionJobType,
		PayloadJSON: payload,
		CreatedAt:   time.Now(),
		Version:     1,
	})
}

// SweepExpired transitions Reserved/Uploading sessions past their
// expiresAt into Expired and deletes their temporary keys through the
// Content Store; a failed delete is logged and does not stop the sweep.
// Sweep is idempotent (spec §4.7).
func (c *Coordinator) SweepExpired(ctx context.Context) (int, error) {
	expired, err := c.store.ListExpiredUploadSessions(ctx, []domain.UploadStatus{domain.UploadReserved, domain.UploadUploading})
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, session := range expired {
		session.Status = domain.UploadExpired
		if err := c.store.UpdateUploadSession(ctx, session); err != nil {
			logging.Error(err, "uploads: failed to expire session", "sessionId", session.ID)
			continue
		}
		if session.TempStorageKey != "" {
			if _, err := c.content.Delete(ctx, session.TempStorageKey); err != nil {
				logging.Warn("uploads: failed to delete expired temp key", "sessionId", session.ID, "key", session.TempStorageKey, "error", err)
			}
		}
		swept++
	}
	return swept, nil
}

func derefSize(size *int64) int64 {
	if size == nil {
		return 0
	}
	return *size
}

func categoryOf(fileName, contentType string) domain.FileCategory {
	ext := extOf(fileName)
	switch ext {
	case "ifc":
		return domain.FileIfc
	case "wexbim":
		return domain.FileWexBim
	}
	if contentType == "application/json" {
		return domain.FileProperties
	}
	return domain.FileOther
}

func extOf(fileName string) string {
	ext := strings.TrimPrefix(filepath.Ext(fileName), ".")
	return strings.ToLower(ext)
}
