// Package domain holds the plain-struct entities of the BIM platform data
// model (spec §3). These are persistence-agnostic: internal/entitystore is
// the only package that knows how they are stored.
package domain

import "time"

// WorkspaceRole orders a user's standing inside a Workspace.
type WorkspaceRole int

const (
	WorkspaceGuest WorkspaceRole = iota
	WorkspaceMember
	WorkspaceAdmin
	WorkspaceOwner
)

// ProjectRole orders a user's standing inside a Project.
type ProjectRole int

const (
	ProjectViewer ProjectRole = iota
	ProjectEditor
	ProjectAdmin
)

type User struct {
	ID          string     `db:"id"`
	Subject     string     `db:"subject"`
	Email       string     `db:"email"`
	DisplayName string     `db:"display_name"`
	CreatedAt   time.Time  `db:"created_at"`
	LastLoginAt *time.Time `db:"last_login_at"`
}

type Workspace struct {
	ID          string     `db:"id"`
	Name        string     `db:"name"`
	Description string     `db:"description"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at"`
}

type Project struct {
	ID          string     `db:"id"`
	WorkspaceID string     `db:"workspace_id"`
	Name        string     `db:"name"`
	Description string     `db:"description"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at"`
}

type WorkspaceMembership struct {
	WorkspaceID string        `db:"workspace_id"`
	UserID      string        `db:"user_id"`
	Role        WorkspaceRole `db:"role"`
}

type ProjectMembership struct {
	ProjectID string      `db:"project_id"`
	UserID    string      `db:"user_id"`
	Role      ProjectRole `db:"role"`
}

type FileCategory string

const (
	FileOther      FileCategory = "Other"
	FileIfc        FileCategory = "Ifc"
	FileWexBim     FileCategory = "WexBim"
	FileProperties FileCategory = "Properties"
	FileThumbnail  FileCategory = "Thumbnail"
	FileLog        FileCategory = "Log"
)

type File struct {
	ID              string       `db:"id"`
	ProjectID       string       `db:"project_id"`
	Name            string       `db:"name"`
	ContentType     string       `db:"content_type"`
	SizeBytes       int64        `db:"size_bytes"`
	Checksum        string       `db:"checksum"`
	Kind            string       `db:"kind"`
	Category        FileCategory `db:"category"`
	StorageProvider string       `db:"storage_provider"`
	StorageKey      string       `db:"storage_key"`
	IsDeleted       bool         `db:"is_deleted"`
	CreatedAt       time.Time    `db:"created_at"`
	DeletedAt       *time.Time   `db:"deleted_at"`
}

type FileLinkType string

const (
	LinkDerivedFrom  FileLinkType = "DerivedFrom"
	LinkThumbnailOf  FileLinkType = "ThumbnailOf"
	LinkPropertiesOf FileLinkType = "PropertiesOf"
	LinkLogOf        FileLinkType = "LogOf"
)

type FileLink struct {
	ID           string       `db:"id"`
	SourceFileID string       `db:"source_file_id"`
	TargetFileID string       `db:"target_file_id"`
	LinkType     FileLinkType `db:"link_type"`
	CreatedAt    time.Time    `db:"created_at"`
}

type UploadStatus int

const (
	UploadReserved UploadStatus = iota
	UploadUploading
	UploadCommitted
	UploadFailed
	UploadExpired
)

type UploadMode int

const (
	UploadServerProxy UploadMode = iota
	UploadDirectToBlob
)

type UploadSession struct {
	ID                string       `db:"id"`
	ProjectID         string       `db:"project_id"`
	FileName          string       `db:"file_name"`
	ContentType       string       `db:"content_type"`
	ExpectedSizeBytes *int64       `db:"expected_size_bytes"`
	Status            UploadStatus `db:"status"`
	UploadMode        UploadMode   `db:"upload_mode"`
	TempStorageKey    string       `db:"temp_storage_key"`
	DirectUploadURL   string       `db:"direct_upload_url"`
	CommittedFileID   string       `db:"committed_file_id"`
	FailureReason     string       `db:"failure_reason"`
	CreatedAt         time.Time    `db:"created_at"`
	ExpiresAt         time.Time    `db:"expires_at"`
}

type Model struct {
	ID          string    `db:"id"`
	ProjectID   string    `db:"project_id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

type ModelVersionStatus int

const (
	VersionPending ModelVersionStatus = iota
	VersionProcessing
	VersionReady
	VersionFailed
)

type ModelVersion struct {
	ID               string             `db:"id"`
	ModelID          string             `db:"model_id"`
	VersionNumber    int                `db:"version_number"`
	IfcFileID        string             `db:"ifc_file_id"`
	WexBimFileID     string             `db:"wexbim_file_id"`
	PropertiesFileID string             `db:"properties_file_id"`
	Status           ModelVersionStatus `db:"status"`
	ErrorMessage     string             `db:"error_message"`
	CreatedAt        time.Time          `db:"created_at"`
	ProcessedAt      *time.Time         `db:"processed_at"`
}

type ProcessingJobStatus string

const (
	JobQueued    ProcessingJobStatus = "Queued"
	JobRunning   ProcessingJobStatus = "Running"
	JobCompleted ProcessingJobStatus = "Completed"
	JobFailed    ProcessingJobStatus = "Failed"
)

type ProcessingJob struct {
	ID             string              `db:"id"`
	ModelVersionID string              `db:"model_version_id"`
	JobType        string              `db:"job_type"`
	Status         ProcessingJobStatus `db:"status"`
	ErrorMessage   string              `db:"error_message"`
	CreatedAt      time.Time           `db:"created_at"`
	StartedAt      *time.Time          `db:"started_at"`
	CompletedAt    *time.Time          `db:"completed_at"`
}

type IfcElement struct {
	ID             string `db:"id"`
	ModelVersionID string `db:"model_version_id"`
	EntityLabel    int    `db:"entity_label"`
	GlobalID       string `db:"global_id"`
	Name           string `db:"name"`
	TypeName       string `db:"type_name"`
	Description    string `db:"description"`
	ObjectType     string `db:"object_type"`
	TypeObjectName string `db:"type_object_name"`
	TypeObjectType string `db:"type_object_type"`
}

type IfcPropertySet struct {
	ID                string `db:"id"`
	ElementID         string `db:"element_id"`
	Name              string `db:"name"`
	GlobalID          string `db:"global_id"`
	IsTypePropertySet bool   `db:"is_type_property_set"`
}

type IfcProperty struct {
	ID            string `db:"id"`
	PropertySetID string `db:"property_set_id"`
	Name          string `db:"name"`
	Value         string `db:"value"`
	ValueType     string `db:"value_type"`
	Unit          string `db:"unit"`
}

type IfcQuantitySet struct {
	ID        string `db:"id"`
	ElementID string `db:"element_id"`
	Name      string `db:"name"`
	GlobalID  string `db:"global_id"`
}

type IfcQuantity struct {
	ID            string `db:"id"`
	QuantitySetID string `db:"quantity_set_id"`
	Name          string `db:"name"`
	Value         string `db:"value"`
	Unit          string `db:"unit"`
}

// ErrorMessageMaxLen is the truncation bound for errorMessage columns
// (ProcessingJob, ModelVersion) per spec §7 propagation policy.
const ErrorMessageMaxLen = 4000

// TruncateErrorMessage enforces ErrorMessageMaxLen.
func TruncateErrorMessage(msg string) string {
	if len(msg) <= ErrorMessageMaxLen {
		return msg
	}
	return msg[:ErrorMessageMaxLen]
}

// AtLeast reports whether role satisfies a minimum WorkspaceRole requirement.
func (r WorkspaceRole) AtLeast(min WorkspaceRole) bool {
	return r >= min
}

// AtLeast reports whether role satisfies a minimum ProjectRole requirement.
func (r ProjectRole) AtLeast(min ProjectRole) bool {
	return r >= min
}
