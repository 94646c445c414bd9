package bridge

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/bridgectl/internal/commands"
	"github.com/danmuck/bridgectl/internal/commands/code"
	"github.com/danmuck/bridgectl/internal/commands/draw"
	"github.com/danmuck/bridgectl/internal/commands/inspect"
	"github.com/danmuck/bridgectl/internal/commands/render"
	"github.com/danmuck/bridgectl/internal/scene"
	"github.com/danmuck/bridgectl/internal/status"
	"github.com/danmuck/bridgectl/internal/tools"
)

// Daemon configuration: the command endpoint plus the scene host it
// fronts and the optional status plane.
type ServiceConfig struct {
	Server ServerConfig

	SceneName   string
	HostVersion string
	Interpreter string

	HeartbeatInterval time.Duration

	StatusEnabled     bool
	StatusListenAddr  string
	StatusCORSOrigins []string
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Server:            DefaultServerConfig(),
		SceneName:         "Scene",
		HostVersion:       "4.1.0",
		Interpreter:       "python3",
		HeartbeatInterval: 30 * time.Second,
		StatusEnabled:     false,
		StatusListenAddr:  "127.0.0.1:8780",
	}
}

// Service wires the scene engine, the builtin command set, and the
// command server into one runnable daemon.
type Service struct {
	cfg      ServiceConfig
	engine   *scene.Engine
	registry *commands.Registry
	server   *Server
	status   *status.Server
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultServiceConfig().HeartbeatInterval
	}

	engine := scene.NewEngine(cfg.SceneName, cfg.HostVersion)
	registry := commands.NewRegistry()

	providers := []commands.Provider{
		code.NewProvider(tools.ExecRunner{}, cfg.Interpreter),
		draw.NewProvider(engine),
		inspect.NewProvider(engine),
		render.NewProvider(engine),
	}
	for _, provider := range providers {
		if err := registry.RegisterProvider(provider); err != nil {
			return nil, err
		}
	}

	svc := &Service{
		cfg:      cfg,
		engine:   engine,
		registry: registry,
		server:   NewServer(cfg.Server, registry),
	}
	if cfg.StatusEnabled {
		svc.status = status.NewServer(status.Config{
			ListenAddr:  cfg.StatusListenAddr,
			CORSOrigins: cfg.StatusCORSOrigins,
		}, registry, engine)
	}
	return svc, nil
}

func (s *Service) Server() *Server {
	return s.server
}

func (s *Service) Engine() *scene.Engine {
	return s.engine
}

func (s *Service) Registry() *commands.Registry {
	return s.registry
}

// Run starts the endpoint and blocks until SIGINT/SIGTERM, then stops
// the server and status plane.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := s.server.Start(); err != nil {
		return err
	}
	log.Info().
		Str("addr", s.server.Addr()).
		Int("commands", s.registry.Len()).
		Msg("bridge.service running")

	statusErr := make(chan error, 1)
	if s.status != nil {
		go func() {
			statusErr <- s.status.Serve()
		}()
	}

	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("bridge.service shutting down")
			return s.shutdown()
		case err := <-statusErr:
			if err != nil {
				_ = s.server.Stop()
				return err
			}
		case <-ticker.C:
			log.Debug().
				Str("addr", s.server.Addr()).
				Msg("bridge.service heartbeat")
		}
	}
}

func (s *Service) shutdown() error {
	err := s.server.Stop()
	if s.status != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := s.status.Shutdown(ctx); serr != nil && err == nil {
			err = serr
		}
	}
	return err
}
