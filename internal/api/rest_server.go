// Package api - административный REST API поверх runtime.
//
// Все чтения и изменения состояния модулей передаются в управляющий поток
// через Runtime.Do; список друзей потокобезопасен и вызывается напрямую.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/annel0/modrt/internal/auth"
	"github.com/annel0/modrt/internal/logging"
	"github.com/annel0/modrt/internal/middleware"
	"github.com/annel0/modrt/internal/runtime"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// DefaultControlTimeout - сколько обработчик ждёт управляющий поток.
const DefaultControlTimeout = 2 * time.Second

// Config содержит конфигурацию REST сервера.
type Config struct {
	Addr string // адрес для прослушивания, по умолчанию ":8088"
	// JWTSecret включает авторизацию Bearer-токеном. Пусто - без авторизации.
	JWTSecret string
	// Registry - регистр Prometheus для HTTP-метрик и /metrics. nil - регистр по умолчанию.
	Registry       *prometheus.Registry
	ServiceName    string
	ControlTimeout time.Duration
}

// Server - REST API сервер.
type Server struct {
	router  *gin.Engine
	rt      *runtime.Runtime
	signer  *auth.Signer
	metrics *ProcessMetrics
	cfg     Config
	srv     *http.Server
	log     *logging.Logger
}

// NewServer создаёт сервер и настраивает маршруты.
func NewServer(rt *runtime.Runtime, cfg Config) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = ":8088"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "modrt_api"
	}
	if cfg.ControlTimeout <= 0 {
		cfg.ControlTimeout = DefaultControlTimeout
	}

	s := &Server{
		rt:      rt,
		metrics: NewProcessMetrics(),
		cfg:     cfg,
		log:     logging.GetAPILogger(),
	}
	if cfg.JWTSecret != "" {
		signer, err := auth.NewSigner(cfg.JWTSecret)
		if err != nil {
			return nil, err
		}
		s.signer = signer
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // без стандартного logger
	router.Use(gin.Recovery())

	// === Observability middleware ===
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.NewRequestLogger().Handler())

	var (
		reg      prometheus.Registerer
		gatherer prometheus.Gatherer
	)
	if cfg.Registry != nil {
		reg, gatherer = cfg.Registry, cfg.Registry
	}
	promMw, err := middleware.NewPrometheusMiddleware(cfg.ServiceName, reg)
	if err != nil {
		return nil, err
	}
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, gatherer)

	s.router = router
	s.setupRoutes()
	return s, nil
}

// setupRoutes настраивает маршруты REST API.
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	if s.signer != nil {
		api.Use(s.jwtMiddleware())
	}

	api.GET("/modules", s.handleListModules)
	api.GET("/modules/:name", s.handleGetModule)
	api.POST("/modules/:name/toggle", s.handleToggle)
	api.PUT("/modules/:name/enabled", s.handleSetEnabled)
	api.PUT("/modules/:name/keybind", s.handleSetKeybind)
	api.POST("/modules/:name/keybind/reset", s.handleResetKeybind)
	api.PUT("/modules/:name/settings/:setting", s.handleSetSetting)
	api.POST("/keybinds/reset", s.handleResetAllKeybinds)

	api.GET("/friends", s.handleListFriends)
	api.POST("/friends", s.handleAddFriend)
	api.DELETE("/friends/:name", s.handleRemoveFriend)

	api.GET("/stats", s.handleStats)
}

// Handler возвращает http.Handler (для тестов и встраивания).
func (s *Server) Handler() http.Handler { return s.router }

// Start запускает HTTP сервер и блокирует до Shutdown.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info("🌐 REST API слушает %s (авторизация: %t)", s.cfg.Addr, s.signer != nil)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown корректно останавливает сервер.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// GenericResponse представляет общий ответ API.
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func ok(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: message, Data: data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, GenericResponse{Success: false, Message: message})
}

// control выполняет fn в управляющем потоке и переводит ошибки в HTTP-статус.
// false означает, что ответ уже записан.
func (s *Server) control(c *gin.Context, fn func()) bool {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.ControlTimeout)
	defer cancel()

	err := s.rt.Do(ctx, fn)
	switch {
	case err == nil:
		return true
	case errors.Is(err, runtime.ErrStopped):
		fail(c, http.StatusServiceUnavailable, "Runtime остановлен")
	case errors.Is(err, context.DeadlineExceeded):
		fail(c, http.StatusGatewayTimeout, "Управляющий поток не ответил вовремя")
	default:
		s.log.Error("❌ Ошибка выполнения команды: %v", err)
		fail(c, http.StatusInternalServerError, "Внутренняя ошибка сервера")
	}
	return false
}

func (s *Server) handleHealth(c *gin.Context) {
	status := "ok"
	code := http.StatusOK
	if s.rt.Stopped() {
		status = "stopped"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status": status,
		"ticks":  s.rt.Ticks(),
		"uptime": s.metrics.Uptime(),
	})
}

func (s *Server) handleStats(c *gin.Context) {
	var stats runtime.Stats
	if !s.control(c, func() { stats = s.rt.Stats() }) {
		return
	}

	data := map[string]interface{}{
		"runtime": stats,
		"process": s.metrics.Snapshot(),
	}
	if s.rt.Friends != nil {
		data["friends"] = s.rt.Friends.Len()
	}
	ok(c, "Статистика получена", data)
}
