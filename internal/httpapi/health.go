package httpapi

import "github.com/gin-gonic/gin"

type healthResponse struct {
	Healthy bool                   `json:"healthy"`
	Store   string                 `json:"contentStore"`
	Detail  map[string]interface{} `json:"detail,omitempty"`
}

// handleHealth surfaces the Content Store's liveness probe (spec §4.1
// checkHealth) over HTTP; unauthenticated, matching a standard
// orchestrator readiness check.
func (s *Server) handleHealth(c *gin.Context) {
	report, err := s.content.CheckHealth(c.Request.Context())
	if err != nil {
		c.JSON(503, healthResponse{Healthy: false, Store: s.content.Name()})
		return
	}
	status := 200
	if !report.Healthy {
		status = 503
	}
	c.JSON(status, healthResponse{Healthy: report.Healthy, Store: s.content.Name(), Detail: report.Data})
}
