// Package api serves the admin HTTP API.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/plexsweep/plexsweep/internal/api/handler"
	"github.com/plexsweep/plexsweep/internal/config"
	"github.com/plexsweep/plexsweep/internal/engine"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	cfg       *config.Config
	ginEngine *gin.Engine
	engine    *engine.Engine
	srv       *http.Server
}

func New(cfg *config.Config, e *engine.Engine) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	gin.SetMode(gin.ReleaseMode)

	return &Server{
		cfg:       cfg,
		ginEngine: gin.New(),
		engine:    e,
	}, nil
}

func (s *Server) setupRoutes() {
	s.ginEngine.Use(gin.Recovery())
	s.ginEngine.Use(gzip.Gzip(gzip.DefaultCompression))

	h := handler.New(s.engine)

	s.ginEngine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.ginEngine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.ginEngine.Group("/api")

	api.GET("/criteria-spec", h.CriteriaSpec)
	api.GET("/stats", h.Stats)

	api.POST("/rules", h.CreateRule)
	api.GET("/rules", h.ListRules)
	api.GET("/rules/:id", h.GetRule)
	api.PUT("/rules/:id", h.UpdateRule)
	api.DELETE("/rules/:id", h.DeleteRule)
	api.POST("/rules/:id/scan", h.TriggerScan)
	api.GET("/rules/:id/scans", h.ListScans)

	api.GET("/scans/:id", h.GetScan)

	api.GET("/candidates", h.ListCandidates)
	api.GET("/candidates/:id", h.GetCandidate)
	api.POST("/candidates/:id/approve", h.ApproveCandidate)
	api.POST("/candidates/:id/reject", h.RejectCandidate)
	api.POST("/candidates/bulk-approve", h.BulkApprove)
	api.POST("/candidates/bulk-reject", h.BulkReject)
	api.POST("/candidates/delete", h.DeleteCandidates)
}

// Run serves the API until the context is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.setupRoutes()

	s.srv = &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.ginEngine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("API server listening", "addr", s.cfg.Listen)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}
