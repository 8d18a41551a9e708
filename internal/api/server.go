// Package api exposes the coverage analysis service over HTTP.
package api

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/skywatch/covergo/internal/analysis"
	"github.com/skywatch/covergo/internal/metrics"
	"github.com/skywatch/covergo/internal/status"
	"github.com/skywatch/covergo/internal/tle"
)

// Config holds the HTTP-layer settings.
type Config struct {
	// Token, when non-empty, is required as a Bearer token on /api routes.
	Token string

	// AllowOrigins configures CORS. Empty means same-origin only.
	AllowOrigins []string
}

// Server routes HTTP requests to the analysis service.
type Server struct {
	svc     *analysis.Service
	catalog *tle.Store
	logger  *slog.Logger
	router  *gin.Engine
}

// NewServer builds the router with its middleware chain and routes.
func NewServer(cfg Config, svc *analysis.Service, catalog *tle.Store, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		svc:     svc,
		catalog: catalog,
		logger:  logger,
		router:  gin.New(),
	}

	s.router.Use(gin.Recovery())
	s.router.Use(s.requestLogger())
	s.router.Use(observeRequests())

	if len(cfg.AllowOrigins) > 0 {
		corsCfg := cors.DefaultConfig()
		corsCfg.AllowOrigins = cfg.AllowOrigins
		corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
		s.router.Use(cors.New(corsCfg))
	}

	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/readyz", s.handleReady)
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := s.router.Group("/api/v1")
	if cfg.Token != "" {
		api.Use(bearerAuth(cfg.Token))
	}
	api.POST("/analysis", s.handleStartAnalysis)
	api.GET("/analysis/:id", s.handleAnalysisStatus)
	api.GET("/analysis/:id/result", s.handleAnalysisResult)
	api.GET("/stats", s.handleStats)

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleReady reports ready only once a catalog is loaded; an analysis
// request before that would fail anyway.
func (s *Server) handleReady(c *gin.Context) {
	if s.catalog.Get() == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "no catalog loaded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) handleStartAnalysis(c *gin.Context) {
	var req analysis.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	id, err := s.svc.Start(c.Request.Context(), req)
	switch {
	case errors.Is(err, analysis.ErrAlreadyRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, analysis.ErrNoCatalog):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusAccepted, gin.H{"run_id": id})
	}
}

func (s *Server) handleAnalysisStatus(c *gin.Context) {
	id := c.Param("id")

	if snap, ok := s.svc.Tracker().Current(); ok && snap.RunID == id {
		c.JSON(http.StatusOK, snap)
		return
	}

	// Older runs keep no live snapshot; reconstruct a terminal one from the
	// completed-run store.
	if run := s.svc.Results().Get(id); run != nil {
		c.JSON(http.StatusOK, status.Snapshot{
			RunID:      run.ID,
			Phase:      status.PhaseDone,
			Progress:   1,
			FinishedAt: run.CompletedAt,
		})
		return
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "unknown run"})
}

func (s *Server) handleAnalysisResult(c *gin.Context) {
	id := c.Param("id")

	if run := s.svc.Results().Get(id); run != nil {
		c.JSON(http.StatusOK, run)
		return
	}

	if snap, ok := s.svc.Tracker().Current(); ok && snap.RunID == id && !snap.Terminal() {
		c.JSON(http.StatusAccepted, snap)
		return
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "unknown run"})
}

func (s *Server) handleStats(c *gin.Context) {
	resp := gin.H{
		"store": s.svc.Results().Counters(),
	}

	if cat := s.catalog.Get(); cat != nil {
		resp["catalog"] = gin.H{
			"source":      cat.Source,
			"sets":        len(cat.Sets),
			"age_seconds": s.catalog.AgeSeconds(),
		}
	}

	if latest := s.svc.Results().Latest(); latest != nil {
		resp["latest_run_id"] = latest.ID
		resp["latest_stats"] = latest.Stats
	}

	c.JSON(http.StatusOK, resp)
}

// requestLogger logs one line per request after it completes.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client", c.ClientIP(),
		)
	}
}

func observeRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		metrics.ObserveHTTP(
			c.Request.URL.Path,
			c.Request.Method,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
		)
	}
}

// bearerAuth requires "Authorization: Bearer <token>" with a constant-time
// comparison.
func bearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		got, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
