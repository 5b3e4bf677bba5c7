package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/domain"
	"github.com/amd-aig-aima/bimserver/internal/progress"
)

// handleProgressWebsocket upgrades the connection and subscribes it to
// C12 progress events for a single model version (spec §4.12).
func (s *Server) handleProgressWebsocket(c *gin.Context) {
	modelVersionID := c.Param("modelVersionId")
	version, _, ok := s.versionAndProjectRole(c, modelVersionID, domain.ProjectViewer)
	if !ok {
		return
	}
	if s.sink == nil {
		RespondError(c, apperrors.NewNotSupported("httpapi: progress websocket sink is not configured"))
		return
	}

	conn, err := progress.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	s.sink.Subscribe(version.ID, conn)
}
