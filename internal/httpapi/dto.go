package httpapi

import (
	"time"

	"github.com/amd-aig-aima/bimserver/internal/domain"
)

// PagedList is the envelope for every list endpoint (spec §6).
type PagedList[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
}

type WorkspaceDto struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

func workspaceDto(w *domain.Workspace) WorkspaceDto {
	return WorkspaceDto{ID: w.ID, Name: w.Name, Description: w.Description, CreatedAt: w.CreatedAt, UpdatedAt: w.UpdatedAt}
}

type ProjectDto struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspaceId"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

func projectDto(p *domain.Project) ProjectDto {
	return ProjectDto{ID: p.ID, WorkspaceID: p.WorkspaceID, Name: p.Name, Description: p.Description, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt}
}

type FileDto struct {
	ID          string              `json:"id"`
	ProjectID   string              `json:"projectId"`
	Name        string              `json:"name"`
	ContentType string              `json:"contentType"`
	SizeBytes   int64               `json:"sizeBytes"`
	Category    domain.FileCategory `json:"category"`
	IsDeleted   bool                `json:"isDeleted"`
	CreatedAt   time.Time           `json:"createdAt"`
}

func fileDto(f *domain.File) FileDto {
	return FileDto{
		ID: f.ID, ProjectID: f.ProjectID, Name: f.Name, ContentType: f.ContentType,
		SizeBytes: f.SizeBytes, Category: f.Category, IsDeleted: f.IsDeleted, CreatedAt: f.CreatedAt,
	}
}

type ModelDto struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"projectId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

func modelDto(m *domain.Model) ModelDto {
	return ModelDto{ID: m.ID, ProjectID: m.ProjectID, Name: m.Name, Description: m.Description, CreatedAt: m.CreatedAt}
}

type ModelVersionDto struct {
	ID            string                    `json:"id"`
	ModelID       string                    `json:"modelId"`
	VersionNumber int                       `json:"versionNumber"`
	IfcFileID     string                    `json:"ifcFileId"`
	WexBimFileID  string                    `json:"wexBimFileId,omitempty"`
	Status        domain.ModelVersionStatus `json:"status"`
	ErrorMessage  string                    `json:"errorMessage,omitempty"`
	CreatedAt     time.Time                 `json:"createdAt"`
	ProcessedAt   *time.Time                `json:"processedAt,omitempty"`
}

func modelVersionDto(v *domain.ModelVersion) ModelVersionDto {
	return ModelVersionDto{
		ID: v.ID, ModelID: v.ModelID, VersionNumber: v.VersionNumber, IfcFileID: v.IfcFileID,
		WexBimFileID: v.WexBimFileID, Status: v.Status, ErrorMessage: v.ErrorMessage,
		CreatedAt: v.CreatedAt, ProcessedAt: v.ProcessedAt,
	}
}

type UploadSessionDto struct {
	ID          string              `json:"id"`
	ProjectID   string              `json:"projectId"`
	FileName    string              `json:"fileName"`
	ContentType string              `json:"contentType"`
	Status      domain.UploadStatus `json:"status"`
	ExpiresAt   time.Time           `json:"expiresAt"`
}

func uploadSessionDto(s *domain.UploadSession) UploadSessionDto {
	return UploadSessionDto{ID: s.ID, ProjectID: s.ProjectID, FileName: s.FileName, ContentType: s.ContentType, Status: s.Status, ExpiresAt: s.ExpiresAt}
}

type ReserveUploadResponse struct {
	Session   UploadSessionDto `json:"session"`
	UploadURL string           `json:"uploadUrl,omitempty"`
}

type UploadContentResponse struct {
	Session UploadSessionDto `json:"session"`
}

type CommitUploadResponse struct {
	File          FileDto          `json:"file"`
	ModelVersion  *ModelVersionDto `json:"modelVersion,omitempty"`
}

type IfcElementDto struct {
	ID          string `json:"id"`
	EntityLabel int    `json:"entityLabel"`
	GlobalID    string `json:"globalId"`
	Name        string `json:"name"`
	TypeName    string `json:"typeName"`
	Description string `json:"description"`
}

func ifcElementDto(e *domain.IfcElement) IfcElementDto {
	return IfcElementDto{ID: e.ID, EntityLabel: e.EntityLabel, GlobalID: e.GlobalID, Name: e.Name, TypeName: e.TypeName, Description: e.Description}
}

type PersonalAccessTokenCreatedDto struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	Prefix    string    `json:"prefix"`
	Name      string    `json:"name"`
	Scopes    []string  `json:"scopes"`
	ExpiresAt time.Time `json:"expiresAt"`
}
