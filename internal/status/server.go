// Package status exposes the read-only HTTP observability plane for the
// bridge daemon.
package status

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/bridgectl/internal/commands"
	"github.com/danmuck/bridgectl/internal/observability"
	"github.com/danmuck/bridgectl/internal/scene"
)

const version = "0.1.0"

type Config struct {
	ListenAddr  string
	CORSOrigins []string
}

// Server publishes health, registry, and scene state over HTTP. It never
// mutates bridge state.
type Server struct {
	cfg      Config
	registry *commands.Registry
	engine   *scene.Engine
	started  time.Time

	router *gin.Engine
	http   *http.Server
}

func NewServer(cfg Config, registry *commands.Registry, engine *scene.Engine) *Server {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CORSOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		cfg:      cfg,
		registry: registry,
		engine:   engine,
		started:  time.Now(),
		router:   r,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"version": version,
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":   true,
			"uptime":  time.Since(s.started).String(),
			"version": version,
		})
	})

	s.router.GET("/commands", func(c *gin.Context) {
		bindings := s.registry.List()
		list := make([]gin.H, 0, len(bindings))
		for _, binding := range bindings {
			list = append(list, gin.H{
				"name":        binding.Name,
				"description": binding.Description,
			})
		}
		c.JSON(http.StatusOK, gin.H{"commands": list})
	})

	s.router.GET("/scene", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.engine.Snapshot())
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Router exposes the handler for in-process tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Serve blocks until the HTTP server fails or Shutdown is called.
func (s *Server) Serve() error {
	s.http = &http.Server{Addr: s.cfg.ListenAddr, Handler: s.router}
	log.Info().Str("addr", s.cfg.ListenAddr).Msg("status.server listening")
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost", "http://127.0.0.1"}
	}
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin != "" {
			out = append(out, origin)
		}
	}
	return out
}
