package httpapi

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/domain"
	"github.com/amd-aig-aima/bimserver/internal/logging"
)

func (s *Server) fileAndProjectRole(c *gin.Context, fileID string, min domain.ProjectRole) (*domain.File, bool) {
	file, err := s.store.GetFile(c.Request.Context(), fileID)
	if err != nil {
		RespondError(c, err)
		return nil, false
	}
	prj, err := s.store.GetProject(c.Request.Context(), file.ProjectID)
	if err != nil {
		RespondError(c, err)
		return nil, false
	}
	if err := s.checker.RequireProjectRole(c.Request.Context(), PrincipalFrom(c), prj.WorkspaceID, prj.ID, min); err != nil {
		RespondError(c, err)
		return nil, false
	}
	return file, true
}

func (s *Server) handleGetFile(c *gin.Context) {
	file, ok := s.fileAndProjectRole(c, c.Param("id"), domain.ProjectViewer)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, fileDto(file))
}

func (s *Server) handleGetFileContent(c *gin.Context) {
	file, ok := s.fileAndProjectRole(c, c.Param("id"), domain.ProjectViewer)
	if !ok {
		return
	}
	stream, err := s.content.OpenRead(c.Request.Context(), file.StorageKey)
	if err != nil {
		RespondError(c, err)
		return
	}
	if stream == nil {
		RespondError(c, apperrors.NewNotFound("httpapi: file %s content is missing from storage", file.ID))
		return
	}
	defer stream.Close()

	c.Status(http.StatusOK)
	c.Header("Content-Type", file.ContentType)
	if _, err := io.Copy(c.Writer, stream); err != nil {
		logging.Error(err, "httpapi: streaming file content failed", "fileId", file.ID)
	}
}

func (s *Server) handleListFiles(c *gin.Context) {
	prj, ok := s.projectRoleCheck(c, c.Param("prjId"), domain.ProjectViewer)
	if !ok {
		return
	}
	category := domain.FileCategory(c.Query("category"))
	list, err := s.store.ListFilesForProject(c.Request.Context(), prj.ID, category)
	if err != nil {
		RespondError(c, err)
		return
	}
	items := make([]FileDto, 0, len(list))
	for _, f := range list {
		items = append(items, fileDto(f))
	}
	c.JSON(http.StatusOK, PagedList[FileDto]{Items: items, Page: 1, PageSize: len(items), TotalCount: len(items)})
}

func (s *Server) handleDeleteFile(c *gin.Context) {
	file, ok := s.fileAndProjectRole(c, c.Param("id"), domain.ProjectEditor)
	if !ok {
		return
	}
	if err := s.store.SoftDeleteFile(c.Request.Context(), file.ID); err != nil {
		RespondError(c, err)
		return
	}
	file.IsDeleted = true
	c.JSON(http.StatusOK, fileDto(file))
}
