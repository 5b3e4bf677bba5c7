// Package correlation implements the request correlation-id middleware
// (spec §4.13, component C13): every request carries an identifier
// sourced in priority order from X-Correlation-ID, X-Request-ID, a W3C
// traceparent header, or a freshly generated value, echoed back on the
// response and threaded through the logging scope.
package correlation

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type contextKey struct{}

// HeaderCorrelationID and HeaderRequestID are echoed on every response.
const (
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderRequestID     = "X-Request-ID"
	headerTraceParent   = "traceparent"
)

// Middleware resolves the request's correlation id and attaches it to
// both the gin context and the request context, then echoes it on the
// response headers.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := resolve(c.Request)

		c.Set("correlationId", id)
		c.Request = c.Request.WithContext(WithID(c.Request.Context(), id))
		c.Header(HeaderCorrelationID, id)
		c.Header(HeaderRequestID, id)

		c.Next()
	}
}

// resolve picks the correlation id per spec §4.13 priority order.
func resolve(r *http.Request) string {
	if v := r.Header.Get(HeaderCorrelationID); v != "" {
		return v
	}
	if v := r.Header.Get(HeaderRequestID); v != "" {
		return v
	}
	if v := traceIDFromTraceParent(r.Header.Get(headerTraceParent)); v != "" {
		return v
	}
	return uuid.New().String()
}

// traceIDFromTraceParent extracts the trace-id field from a W3C
// traceparent header of the form "00-<trace-id>-<span-id>-<flags>".
func traceIDFromTraceParent(header string) string {
	parts := strings.Split(header, "-")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// WithID attaches id to ctx for downstream logging/propagation.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IDFrom extracts the correlation id attached by WithID, or "" if
// absent.
func IDFrom(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// FromGin reads the correlation id set by Middleware for the current
// request.
func FromGin(c *gin.Context) string {
	id, _ := c.Get("correlationId")
	s, _ := id.(string)
	return s
}
