package correlation

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, FromGin(c))
	})
	return r
}

func TestMiddleware_UsesCorrelationIDHeaderFirst(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderCorrelationID, "corr-1")
	req.Header.Set(HeaderRequestID, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "corr-1", w.Body.String())
	assert.Equal(t, "corr-1", w.Header().Get(HeaderCorrelationID))
	assert.Equal(t, "corr-1", w.Header().Get(HeaderRequestID))
}

func TestMiddleware_FallsBackToRequestIDHeader(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-1", w.Body.String())
}

func TestMiddleware_FallsBackToTraceParent(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", w.Body.String())
}

func TestMiddleware_GeneratesIDWhenAbsent(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Body.String())
}

func TestIDFrom_RoundTripsThroughContext(t *testing.T) {
	ctx := WithID(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "abc")
	require.Equal(t, "abc", IDFrom(ctx))
}
