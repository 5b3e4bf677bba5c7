package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/domain"
	"github.com/amd-aig-aima/bimserver/internal/idutil"
)

type createProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (s *Server) handleCreateProject(c *gin.Context) {
	principal := PrincipalFrom(c)
	wsID := c.Param("wsId")
	if err := s.checker.RequireWorkspaceRole(c.Request.Context(), principal, wsID, domain.WorkspaceMember); err != nil {
		RespondError(c, err)
		return
	}
	if err := principal.RequireScope(domain.ScopeProjectsWrite); err != nil {
		RespondError(c, err)
		return
	}
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apperrors.NewValidation("httpapi: %v", err))
		return
	}

	prj := &domain.Project{ID: idutil.NewUID(), WorkspaceID: wsID, Name: req.Name, Description: req.Description, CreatedAt: time.Now()}
	if err := s.store.CreateProject(c.Request.Context(), prj); err != nil {
		RespondError(c, err)
		return
	}
	if err := s.store.UpsertProjectMembership(c.Request.Context(), &domain.ProjectMembership{
		ProjectID: prj.ID, UserID: principal.UserID, Role: domain.ProjectAdmin,
	}); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, projectDto(prj))
}

func (s *Server) handleGetProject(c *gin.Context) {
	principal := PrincipalFrom(c)
	prj, err := s.store.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	if err := s.checker.RequireProjectRole(c.Request.Context(), principal, prj.WorkspaceID, prj.ID, domain.ProjectViewer); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projectDto(prj))
}

func (s *Server) handleListProjects(c *gin.Context) {
	principal := PrincipalFrom(c)
	wsID := c.Param("wsId")
	if err := s.checker.RequireWorkspaceRole(c.Request.Context(), principal, wsID, domain.WorkspaceGuest); err != nil {
		RespondError(c, err)
		return
	}
	list, err := s.store.ListProjectsForWorkspace(c.Request.Context(), wsID)
	if err != nil {
		RespondError(c, err)
		return
	}
	items := make([]ProjectDto, 0, len(list))
	for _, p := range list {
		items = append(items, projectDto(p))
	}
	c.JSON(http.StatusOK, PagedList[ProjectDto]{Items: items, Page: 1, PageSize: len(items), TotalCount: len(items)})
}

type updateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (s *Server) handleUpdateProject(c *gin.Context) {
	principal := PrincipalFrom(c)
	prj, err := s.store.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	if err := s.checker.RequireProjectRole(c.Request.Context(), principal, prj.WorkspaceID, prj.ID, domain.ProjectEditor); err != nil {
		RespondError(c, err)
		return
	}
	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apperrors.NewValidation("httpapi: %v", err))
		return
	}
	if req.Name != nil {
		prj.Name = *req.Name
	}
	if req.Description != nil {
		prj.Description = *req.Description
	}
	now := time.Now()
	prj.UpdatedAt = &now
	if err := s.store.UpdateProject(c.Request.Context(), prj); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projectDto(prj))
}
