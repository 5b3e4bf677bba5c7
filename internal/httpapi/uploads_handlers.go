package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/domain"
	"github.com/amd-aig-aima/bimserver/internal/uploads"
)

type reserveUploadRequest struct {
	FileName     string `json:"fileName" binding:"required"`
	ContentType  string `json:"contentType"`
	ExpectedSize *int64 `json:"expectedSize"`
	Mode         string `json:"mode"` // "ServerProxy" (default) or "DirectToBlob"
}

func (s *Server) projectRoleCheck(c *gin.Context, prjID string, min domain.ProjectRole) (*domain.Project, bool) {
	principal := PrincipalFrom(c)
	prj, err := s.store.GetProject(c.Request.Context(), prjID)
	if err != nil {
		RespondError(c, err)
		return nil, false
	}
	if err := s.checker.RequireProjectRole(c.Request.Context(), principal, prj.WorkspaceID, prj.ID, min); err != nil {
		RespondError(c, err)
		return nil, false
	}
	return prj, true
}

func (s *Server) handleReserveUpload(c *gin.Context) {
	prj, ok := s.projectRoleCheck(c, c.Param("prjId"), domain.ProjectEditor)
	if !ok {
		return
	}
	if err := PrincipalFrom(c).RequireScope(domain.ScopeFilesWrite); err != nil {
		RespondError(c, err)
		return
	}
	var req reserveUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apperrors.NewValidation("httpapi: %v", err))
		return
	}
	mode := domain.UploadServerProxy
	if req.Mode == "DirectToBlob" {
		mode = domain.UploadDirectToBlob
	}

	res, err := s.uploader.ReserveUpload(c.Request.Context(), uploads.ReserveOptions{
		ProjectID: prj.ID, WorkspaceID: prj.WorkspaceID, FileName: req.FileName,
		ContentType: req.ContentType, ExpectedSize: req.ExpectedSize, Mode: mode,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ReserveUploadResponse{Session: uploadSessionDto(res.Session), UploadURL: res.UploadURL})
}

func (s *Server) handleGetUploadSession(c *gin.Context) {
	if _, ok := s.projectRoleCheck(c, c.Param("prjId"), domain.ProjectViewer); !ok {
		return
	}
	session, err := s.uploader.GetUploadSession(c.Request.Context(), c.Param("sid"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, uploadSessionDto(session))
}

func (s *Server) handleUploadContent(c *gin.Context) {
	if _, ok := s.projectRoleCheck(c, c.Param("prjId"), domain.ProjectEditor); !ok {
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, apperrors.NewValidation("httpapi: multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if err := s.uploader.UploadContent(c.Request.Context(), c.Param("sid"), file, contentType); err != nil {
		RespondError(c, err)
		return
	}
	session, err := s.uploader.GetUploadSession(c.Request.Context(), c.Param("sid"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, UploadContentResponse{Session: uploadSessionDto(session)})
}

type commitUploadRequest struct {
	CreateModelVersion bool   `json:"createModelVersion"`
	ModelID            string `json:"modelId"`
	EnqueueConversion  bool   `json:"enqueueConversion"`
}

func (s *Server) handleCommitUpload(c *gin.Context) {
	if _, ok := s.projectRoleCheck(c, c.Param("prjId"), domain.ProjectEditor); !ok {
		return
	}
	var req commitUploadRequest
	_ = c.ShouldBindJSON(&req)

	file, err := s.uploader.CommitUpload(c.Request.Context(), c.Param("sid"), uploads.CommitOptions{
		CreateModelVersion: req.CreateModelVersion, ModelID: req.ModelID, EnqueueConversion: req.EnqueueConversion,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	resp := CommitUploadResponse{File: fileDto(file)}
	if req.CreateModelVersion && req.ModelID != "" {
		if list, err := s.store.ListModelVersions(c.Request.Context(), req.ModelID); err == nil {
			for _, v := range list {
				if v.IfcFileID == file.ID {
					dto := modelVersionDto(v)
					resp.ModelVersion = &dto
					break
				}
			}
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSweepUploads(c *gin.Context) {
	if _, ok := s.projectRoleCheck(c, c.Param("prjId"), domain.ProjectAdmin); !ok {
		return
	}
	n, err := s.uploader.SweepExpired(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expiredCount": n})
}
