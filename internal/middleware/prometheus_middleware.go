package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// unmatchedRoute подставляется вместо сырых URL без маршрута.
const unmatchedRoute = "unmatched"

// PrometheusMiddleware собирает HTTP-метрики REST API:
//
//	<service>_http_request_duration_seconds{method,route,code}
//	<service>_http_response_size_bytes{method,route}
//	<service>_http_requests_inflight
//	<service>_http_request_errors_total{method,route,code}
//
// Запросы к самому /metrics не учитываются.
type PrometheusMiddleware struct {
	duration *prometheus.HistogramVec
	size     *prometheus.HistogramVec
	inflight prometheus.Gauge
	errors   *prometheus.CounterVec
}

// NewPrometheusMiddleware регистрирует метрики в reg (nil - регистр по умолчанию).
func NewPrometheusMiddleware(service string, reg prometheus.Registerer) (*PrometheusMiddleware, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	labels := []string{"method", "route", "code"}

	pm := &PrometheusMiddleware{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: service,
			Name:      "http_request_duration_seconds",
			Help:      "Длительность HTTP-запросов.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, labels),
		size: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: service,
			Name:      "http_response_size_bytes",
			Help:      "Размер тела ответа.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 6),
		}, []string{"method", "route"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: service,
			Name:      "http_requests_inflight",
			Help:      "Запросы в обработке.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Name:      "http_request_errors_total",
			Help:      "Ответы с кодом 4xx и 5xx.",
		}, labels),
	}

	for _, c := range []prometheus.Collector{pm.duration, pm.size, pm.inflight, pm.errors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return pm, nil
}

// Handler возвращает gin.HandlerFunc для router.Use().
func (pm *PrometheusMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "/metrics" {
			c.Next()
			return
		}

		pm.inflight.Inc()
		start := time.Now()
		c.Next()
		pm.inflight.Dec()

		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request.Method
		status := c.Writer.Status()
		code := strconv.Itoa(status)

		pm.duration.WithLabelValues(method, route, code).Observe(time.Since(start).Seconds())
		if n := c.Writer.Size(); n > 0 {
			pm.size.WithLabelValues(method, route).Observe(float64(n))
		}
		if status >= 400 {
			pm.errors.WithLabelValues(method, route, code).Inc()
		}
	}
}

// RegisterMetricsEndpoint добавляет GET /metrics для g (nil - регистр по умолчанию).
func (pm *PrometheusMiddleware) RegisterMetricsEndpoint(r gin.IRoutes, g prometheus.Gatherer) {
	h := promhttp.Handler()
	if g != nil {
		h = promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	r.GET("/metrics", gin.WrapH(h))
}
