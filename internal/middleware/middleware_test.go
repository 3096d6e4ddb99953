package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/annel0/modrt/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T, reg *prometheus.Registry) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewRequestLogger().Handler())

	pm, err := NewPrometheusMiddleware("test", reg)
	require.NoError(t, err)
	r.Use(pm.Handler())
	pm.RegisterMetricsEndpoint(r, reg)

	r.GET("/ok", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(TraceIDKey))
	})
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	return r
}

func serve(r http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRequestLogger_SetsTraceID(t *testing.T) {
	r := newRouter(t, prometheus.NewRegistry())
	rec := serve(r, "/ok")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rec.Body.String(), 36, "без span используется uuid")
	assert.Equal(t, rec.Body.String(), rec.Header().Get("X-Trace-Id"))
}

func TestPrometheusMiddleware_CountsErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := newRouter(t, reg)

	serve(r, "/ok")
	serve(r, "/fail")
	serve(r, "/fail")
	serve(r, "/nowhere")

	count, err := testutil.GatherAndCount(reg, "test_http_request_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "ряды для /fail и для несопоставленного пути")

	rec := serve(r, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="unmatched"`)
	assert.NotContains(t, rec.Body.String(), "/nowhere")
	assert.NotContains(t, rec.Body.String(), `route="/metrics"`, "сам /metrics не учитывается")
	assert.Contains(t, rec.Body.String(), `test_http_response_size_bytes_count{method="GET",route="/ok"} 1`)
}

func TestRequestLogger_ModuleAndSubject(t *testing.T) {
	var buf bytes.Buffer
	l, err := logging.NewLogger("api-test", logging.Options{ConsoleLevel: logging.TRACE, Console: &buf})
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use((&RequestLogger{log: l, quiet: map[string]bool{"/health": true}}).Handler())
	r.PUT("/api/modules/:name/enabled", func(c *gin.Context) {
		c.Set(SubjectKey, "ops")
		c.Status(http.StatusConflict)
	})
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/modules/FastPlace/enabled", nil))
	serve(r, "/health")

	out := buf.String()
	assert.Contains(t, out, "module=FastPlace by=ops → 409")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "TRACE")
}

func TestPrometheusMiddleware_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusMiddleware("dup", reg)
	require.NoError(t, err)
	_, err = NewPrometheusMiddleware("dup", reg)
	assert.Error(t, err)
}
