package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/domain"
	"github.com/amd-aig-aima/bimserver/internal/idutil"
)

type createWorkspaceRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (s *Server) handleCreateWorkspace(c *gin.Context) {
	principal := PrincipalFrom(c)
	if err := principal.RequireScope(domain.ScopeWorkspacesWrite); err != nil {
		RespondError(c, err)
		return
	}
	var req createWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apperrors.NewValidation("httpapi: %v", err))
		return
	}

	ws := &domain.Workspace{ID: idutil.NewUID(), Name: req.Name, Description: req.Description, CreatedAt: time.Now()}
	if err := s.store.CreateWorkspace(c.Request.Context(), ws); err != nil {
		RespondError(c, err)
		return
	}
	if err := s.store.UpsertWorkspaceMembership(c.Request.Context(), &domain.WorkspaceMembership{
		WorkspaceID: ws.ID, UserID: principal.UserID, Role: domain.WorkspaceOwner,
	}); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, workspaceDto(ws))
}

func (s *Server) handleGetWorkspace(c *gin.Context) {
	principal := PrincipalFrom(c)
	id := c.Param("id")
	if err := s.checker.RequireWorkspaceRole(c.Request.Context(), principal, id, domain.WorkspaceGuest); err != nil {
		RespondError(c, err)
		return
	}
	ws, err := s.store.GetWorkspace(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, workspaceDto(ws))
}

func (s *Server) handleListWorkspaces(c *gin.Context) {
	principal := PrincipalFrom(c)
	if err := principal.RequireScope(domain.ScopeWorkspacesRead); err != nil {
		RespondError(c, err)
		return
	}
	list, err := s.store.ListWorkspacesForUser(c.Request.Context(), principal.UserID)
	if err != nil {
		RespondError(c, err)
		return
	}
	items := make([]WorkspaceDto, 0, len(list))
	for _, w := range list {
		items = append(items, workspaceDto(w))
	}
	c.JSON(http.StatusOK, PagedList[WorkspaceDto]{Items: items, Page: 1, PageSize: len(items), TotalCount: len(items)})
}

type updateWorkspaceRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (s *Server) handleUpdateWorkspace(c *gin.Context) {
	principal := PrincipalFrom(c)
	id := c.Param("id")
	if err := s.checker.RequireWorkspaceRole(c.Request.Context(), principal, id, domain.WorkspaceAdmin); err != nil {
		RespondError(c, err)
		return
	}
	var req updateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apperrors.NewValidation("httpapi: %v", err))
		return
	}
	ws, err := s.store.GetWorkspace(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	if req.Name != nil {
		ws.Name = *req.Name
	}
	if req.Description != nil {
		ws.Description = *req.Description
	}
	now := time.Now()
	ws.UpdatedAt = &now
	if err := s.store.UpdateWorkspace(c.Request.Context(), ws); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, workspaceDto(ws))
}
