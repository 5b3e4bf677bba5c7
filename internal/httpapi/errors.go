// Package httpapi is the HTTP surface of the platform (spec §4.13 /
// §6, component C13): a gin.Engine wiring correlation, authentication,
// and authorization middleware in front of the platform's components.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/correlation"
	"github.com/amd-aig-aima/bimserver/internal/logging"
)

// ErrorResponse is the wire envelope for every non-OAuth error (spec §6).
type ErrorResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
	TraceID string   `json:"traceId,omitempty"`
}

// statusForKind maps a component-local error Kind to its wire status
// (spec §7).
func statusForKind(k apperrors.Kind) int {
	switch k {
	case apperrors.NotFound:
		return http.StatusNotFound
	case apperrors.Conflict, apperrors.AlreadyExists:
		return http.StatusConflict
	case apperrors.Validation, apperrors.NotSupported:
		return http.StatusBadRequest
	case apperrors.Unauthenticated:
		return http.StatusUnauthorized
	case apperrors.Forbidden, apperrors.CrossWorkspace:
		return http.StatusForbidden
	case apperrors.Transient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondError converts err to the §6 ErrorResponse envelope and writes
// it, logging Internal/Transient kinds with their cause.
func RespondError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	status := statusForKind(kind)
	if kind == apperrors.Internal || kind == apperrors.Transient {
		logging.Error(err, "request failed", "correlationId", correlation.FromGin(c), "path", c.Request.URL.Path)
	}
	message := err.Error()
	if appErr, ok := err.(*apperrors.Error); ok {
		message = appErr.Message
	}
	c.JSON(status, ErrorResponse{
		Code:    string(kind),
		Message: message,
		TraceID: correlation.FromGin(c),
	})
}
