package httpapi

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/domain"
	"github.com/amd-aig-aima/bimserver/internal/idutil"
)

type createModelRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (s *Server) handleCreateModel(c *gin.Context) {
	prj, ok := s.projectRoleCheck(c, c.Param("prjId"), domain.ProjectEditor)
	if !ok {
		return
	}
	var req createModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apperrors.NewValidation("httpapi: %v", err))
		return
	}
	model := &domain.Model{ID: idutil.NewUID(), ProjectID: prj.ID, Name: req.Name, Description: req.Description, CreatedAt: time.Now()}
	if err := s.store.CreateModel(c.Request.Context(), model); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, modelDto(model))
}

type createModelVersionRequest struct {
	IfcFileID         string `json:"ifcFileId" binding:"required"`
	EnqueueConversion bool   `json:"enqueueConversion"`
}

// handleCreateModelVersion advertises 201 only, per spec §4.13's Swagger
// compatibility invariant for operations that never return 200.
func (s *Server) handleCreateModelVersion(c *gin.Context) {
	model, err := s.store.GetModel(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	prj, err := s.store.GetProject(c.Request.Context(), model.ProjectID)
	if err != nil {
		RespondError(c, err)
		return
	}
	if err := s.checker.RequireProjectRole(c.Request.Context(), PrincipalFrom(c), prj.WorkspaceID, prj.ID, domain.ProjectEditor); err != nil {
		RespondError(c, err)
		return
	}

	var req createModelVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apperrors.NewValidation("httpapi: %v", err))
		return
	}
	if _, err := s.store.GetFile(c.Request.Context(), req.IfcFileID); err != nil {
		RespondError(c, err)
		return
	}

	versionNumber, err := s.store.NextVersionNumber(c.Request.Context(), model.ID)
	if err != nil {
		RespondError(c, err)
		return
	}
	version := &domain.ModelVersion{
		ID: idutil.NewUID(), ModelID: model.ID, VersionNumber: versionNumber,
		IfcFileID: req.IfcFileID, Status: domain.VersionPending, CreatedAt: time.Now(),
	}
	if err := s.store.CreateModelVersion(c.Request.Context(), version); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, modelVersionDto(version))
}

func (s *Server) versionAndProjectRole(c *gin.Context, versionID string, min domain.ProjectRole) (*domain.ModelVersion, *domain.Project, bool) {
	version, err := s.store.GetModelVersion(c.Request.Context(), versionID)
	if err != nil {
		RespondError(c, err)
		return nil, nil, false
	}
	model, err := s.store.GetModel(c.Request.Context(), version.ModelID)
	if err != nil {
		RespondError(c, err)
		return nil, nil, false
	}
	prj, err := s.store.GetProject(c.Request.Context(), model.ProjectID)
	if err != nil {
		RespondError(c, err)
		return nil, nil, false
	}
	if err := s.checker.RequireProjectRole(c.Request.Context(), PrincipalFrom(c), prj.WorkspaceID, prj.ID, min); err != nil {
		RespondError(c, err)
		return nil, nil, false
	}
	return version, prj, true
}

func (s *Server) handleGetModelVersion(c *gin.Context) {
	version, _, ok := s.versionAndProjectRole(c, c.Param("id"), domain.ProjectViewer)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, modelVersionDto(version))
}

// handleGetWexBim streams the derived wexbim artifact, redirecting (302)
// to a presigned URL when the backend supports one, else streaming bytes
// (spec §6).
func (s *Server) handleGetWexBim(c *gin.Context) {
	version, _, ok := s.versionAndProjectRole(c, c.Param("id"), domain.ProjectViewer)
	if !ok {
		return
	}
	if version.Status != domain.VersionReady || version.WexBimFileID == "" {
		RespondError(c, apperrors.NewNotFound("httpapi: version %s has no wexbim artifact yet", version.ID))
		return
	}
	file, err := s.store.GetFile(c.Request.Context(), version.WexBimFileID)
	if err != nil {
		RespondError(c, err)
		return
	}

	if url, err := s.content.GenerateUploadURL(c.Request.Context(), file.StorageKey, file.ContentType, time.Now().Add(15*time.Minute)); err == nil && url != "" {
		c.Redirect(http.StatusFound, url)
		return
	}

	stream, err := s.content.OpenRead(c.Request.Context(), file.StorageKey)
	if err != nil {
		RespondError(c, err)
		return
	}
	if stream == nil {
		RespondError(c, apperrors.NewNotFound("httpapi: wexbim artifact missing from storage"))
		return
	}
	defer stream.Close()
	c.Header("Content-Type", file.ContentType)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, stream)
}

func (s *Server) handleListProperties(c *gin.Context) {
	version, _, ok := s.versionAndProjectRole(c, c.Param("id"), domain.ProjectViewer)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "50"))
	if pageSize < 1 {
		pageSize = 50
	}

	// label is the primary search key and is the integer entityLabel
	// (spec §9); globalId is a compatibility alias for callers that only
	// have the IFC GlobalId string.
	if label := c.Query("label"); label != "" {
		entityLabel, err := strconv.Atoi(label)
		if err != nil {
			RespondError(c, apperrors.NewValidation("httpapi: label must be an integer entityLabel"))
			return
		}
		element, err := s.store.GetElementByEntityLabel(c.Request.Context(), version.ID, entityLabel)
		if err != nil {
			RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, PagedList[IfcElementDto]{Items: []IfcElementDto{ifcElementDto(element)}, Page: 1, PageSize: 1, TotalCount: 1})
		return
	}
	if globalID := c.Query("globalId"); globalID != "" {
		element, err := s.store.GetElementByGlobalID(c.Request.Context(), version.ID, globalID)
		if err != nil {
			RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, PagedList[IfcElementDto]{Items: []IfcElementDto{ifcElementDto(element)}, Page: 1, PageSize: 1, TotalCount: 1})
		return
	}

	elements, err := s.store.ListElementsForVersion(c.Request.Context(), version.ID, pageSize, (page-1)*pageSize)
	if err != nil {
		RespondError(c, err)
		return
	}
	items := make([]IfcElementDto, 0, len(elements))
	for _, e := range elements {
		items = append(items, ifcElementDto(e))
	}
	c.JSON(http.StatusOK, PagedList[IfcElementDto]{Items: items, Page: page, PageSize: pageSize, TotalCount: len(items)})
}
