// Package api exposes the pipeline over HTTP: manual and cron-guarded
// triggers, deal management, health and metrics.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"deal-tracker/internal/common/logger"
	"deal-tracker/internal/pipeline"
)

// DefaultRunTimeout bounds a run started over HTTP.
const DefaultRunTimeout = 5 * time.Minute

// Runner is satisfied by *app.Coordinator.
type Runner interface {
	Run(ctx context.Context, trigger string, dryRun bool) (*pipeline.Summary, error)
}

type Server struct {
	runner     Runner
	deals      DealRepository
	cronSecret string
	runTimeout time.Duration
	now        func() time.Time
	logger     logger.Logger
}

func NewServer(runner Runner, cronSecret string, runTimeout time.Duration, log logger.Logger) *Server {
	if runTimeout <= 0 {
		runTimeout = DefaultRunTimeout
	}
	return &Server{
		runner:     runner,
		cronSecret: cronSecret,
		runTimeout: runTimeout,
		now:        time.Now,
		logger:     log.With(map[string]interface{}{"component": "api"}),
	}
}

// WithDeals enables the /api/deals management routes.
func (s *Server) WithDeals(deals DealRepository) *Server {
	s.deals = deals
	return s
}

// NewRouter constructs a Gin engine with registered routes. metrics may be nil.
func NewRouter(s *Server, metrics http.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	RegisterHealthRoutes(r)
	s.RegisterRefreshRoutes(r)
	if s.deals != nil {
		s.RegisterDealRoutes(r)
	}
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}
	return r
}

func RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "time": time.Now().UTC().Format(time.RFC3339)})
	})
}
