package middleware

import (
	"strings"
	"time"

	"github.com/annel0/modrt/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TraceIDKey - ключ gin.Context с trace-id запроса.
	TraceIDKey = "trace_id"
	// SubjectKey - ключ gin.Context с владельцем токена, его ставит JWT middleware.
	SubjectKey = "subject"
)

// RequestLogger присваивает запросу trace-id и пишет строку на запрос.
// Опросы /health и /metrics пишутся на уровне TRACE.
type RequestLogger struct {
	log   *logging.Logger
	quiet map[string]bool
}

func NewRequestLogger() *RequestLogger {
	return &RequestLogger{
		log:   logging.GetAPILogger(),
		quiet: map[string]bool{"/health": true, "/metrics": true},
	}
}

func traceID(c *gin.Context) string {
	if sc := trace.SpanFromContext(c.Request.Context()).SpanContext(); sc.IsValid() {
		return sc.TraceID().String()
	}
	return uuid.NewString()
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := traceID(c)
		c.Set(TraceIDKey, id)
		c.Header("X-Trace-Id", id)

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		var b strings.Builder
		b.WriteString(c.Request.Method)
		b.WriteByte(' ')
		b.WriteString(route)
		if name := c.Param("name"); name != "" {
			b.WriteString(" module=")
			b.WriteString(name)
		}
		if sub := c.GetString(SubjectKey); sub != "" {
			b.WriteString(" by=")
			b.WriteString(sub)
		}
		line := b.String()
		latency := time.Since(start)

		switch {
		case status >= 500:
			rl.log.Error("[HTTP] %s → %d %s trace=%s %s", line, status, latency, id, c.Errors.String())
		case rl.quiet[route]:
			rl.log.Trace("[HTTP] %s → %d %s", line, status, latency)
		case status >= 400:
			rl.log.Warn("[HTTP] %s → %d %s trace=%s", line, status, latency, id)
		default:
			rl.log.Info("[HTTP] %s → %d %s trace=%s", line, status, latency, id)
		}
	}
}
