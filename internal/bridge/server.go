package bridge

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/bridgectl/internal/commands"
)

const (
	DefaultListenAddr  = "127.0.0.1:8765"
	DefaultStopTimeout = 2 * time.Second
)

var (
	ErrAlreadyRunning = errors.New("server already running")
	ErrNotRunning     = errors.New("server not running")
)

// Command endpoint configuration.
type ServerConfig struct {
	ListenAddr  string
	StopTimeout time.Duration
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:  DefaultListenAddr,
		StopTimeout: DefaultStopTimeout,
	}
}

func (c ServerConfig) withDefaults() ServerConfig {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = DefaultStopTimeout
	}
	return c
}

// Server accepts command sessions on a TCP listener and serves them one
// at a time.
type Server struct {
	cfg      ServerConfig
	registry *commands.Registry

	mu      sync.Mutex
	running bool
	ln      net.Listener
	done    chan struct{}

	connMu sync.Mutex
	conn   net.Conn
}

func NewServer(cfg ServerConfig, registry *commands.Registry) *Server {
	if registry == nil {
		registry = commands.NewRegistry()
	}
	return &Server{
		cfg:      cfg.withDefaults(),
		registry: registry,
	}
}

// Start binds the listener and spawns the accept loop. It returns once
// the endpoint is listening; a bind failure is returned to the caller.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.cfg.ListenAddr, err)
	}

	s.ln = ln
	s.running = true
	s.done = make(chan struct{})
	go s.acceptLoop(ln, s.done)

	log.Info().Str("addr", ln.Addr().String()).Msg("bridge.server listening")
	return nil
}

// Stop closes the listener and any active session connection to unblock
// pending reads, then waits a bounded time for the accept loop to exit.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running = false
	ln := s.ln
	done := s.done
	s.ln = nil
	s.mu.Unlock()

	_ = ln.Close()
	s.closeActiveConn()

	select {
	case <-done:
	case <-time.After(s.cfg.StopTimeout):
		log.Warn().Dur("timeout", s.cfg.StopTimeout).Msg("bridge.server stop timed out waiting for accept loop")
	}
	log.Info().Msg("bridge.server stopped")
	return nil
}

// Addr reports the bound listener address, or the configured address
// when the server is not running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.cfg.ListenAddr
}

func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// One session at a time, synchronously. Listener close is the
// cancellation signal.
func (s *Server) acceptLoop(ln net.Listener, done chan struct{}) {
	defer close(done)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || !s.Running() {
				return
			}
			log.Warn().Err(err).Msg("bridge.server accept failed")
			continue
		}
		s.setActiveConn(conn)
		s.serveSession(conn)
		s.clearActiveConn(conn)
	}
}

func (s *Server) setActiveConn(conn net.Conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.conn = conn
}

func (s *Server) clearActiveConn(conn net.Conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == conn {
		s.conn = nil
	}
}

func (s *Server) closeActiveConn() {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}
