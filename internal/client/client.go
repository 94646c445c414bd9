package client

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/bridgectl/internal/protocol"
)

const (
	DefaultMaxConnectAttempts = 5
	DefaultRetryDelay         = 2 * time.Second
	DefaultDialTimeout        = 10 * time.Second
	DefaultIOTimeout          = 10 * time.Second
)

// Connection manager configuration.
type Config struct {
	Address            string
	MaxConnectAttempts int
	RetryDelay         time.Duration
	DialTimeout        time.Duration
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
}

func DefaultConfig() Config {
	return Config{
		Address:            "127.0.0.1:8765",
		MaxConnectAttempts: DefaultMaxConnectAttempts,
		RetryDelay:         DefaultRetryDelay,
		DialTimeout:        DefaultDialTimeout,
		ReadTimeout:        DefaultIOTimeout,
		WriteTimeout:       DefaultIOTimeout,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Address == "" {
		c.Address = def.Address
	}
	if c.MaxConnectAttempts <= 0 {
		c.MaxConnectAttempts = def.MaxConnectAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = def.RetryDelay
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = def.DialTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	return c
}

// Client holds at most one connection to the endpoint and serializes
// round trips over it.
type Client struct {
	cfg Config

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

func New(cfg Config) *Client {
	return &Client{cfg: cfg.withDefaults()}
}

// Connect dials the endpoint with bounded retries and a fixed delay
// between attempts. It is not required before SendCommand, which
// connects lazily.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureConnection()
}

// SendCommand runs one full round trip under the client mutex. Failures
// never surface as Go errors: the connection is dropped for lazy
// reconnect and a synthesized error envelope is returned instead.
func (c *Client) SendCommand(command string, payload map[string]any) protocol.Response {
	c.mu.Lock()
	defer c.mu.Unlock()

	cmd := protocol.Command{Command: command, Payload: payload}
	if err := cmd.Validate(); err != nil {
		// Local validation faults cost neither a dial nor the held
		// connection.
		return protocol.ErrorResponse("send %q failed: %v", command, err)
	}

	if err := c.ensureConnection(); err != nil {
		return protocol.ErrorResponse("connection to %s failed: %v", c.cfg.Address, err)
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		c.reset()
		return protocol.ErrorResponse("send %q failed: %v", command, err)
	}
	if err := protocol.WriteCommand(c.conn, cmd); err != nil {
		c.reset()
		return protocol.ErrorResponse("send %q failed: %v", command, err)
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
		c.reset()
		return protocol.ErrorResponse("receive for %q failed: %v", command, err)
	}
	resp, err := protocol.ReadResponse(c.reader)
	if err != nil {
		c.reset()
		return protocol.ErrorResponse("receive for %q failed: %v", command, err)
	}
	return resp
}

// Disconnect closes the connection if one is open. Safe to call any
// number of times.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// Connected reports whether a connection is currently held. It says
// nothing about the peer still being alive.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// ensureConnection dials with bounded retries and a fixed delay between
// attempts if no connection is held. Callers hold c.mu.
func (c *Client) ensureConnection() error {
	if c.conn != nil {
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxConnectAttempts; attempt++ {
		conn, err := net.DialTimeout("tcp", c.cfg.Address, c.cfg.DialTimeout)
		if err == nil {
			c.adopt(conn)
			log.Debug().Str("addr", c.cfg.Address).Int("attempt", attempt).Msg("client connected")
			return nil
		}
		lastErr = err
		log.Warn().Err(err).
			Str("addr", c.cfg.Address).
			Int("attempt", attempt).
			Int("max_attempts", c.cfg.MaxConnectAttempts).
			Msg("client connect failed")
		if attempt < c.cfg.MaxConnectAttempts {
			time.Sleep(c.cfg.RetryDelay)
		}
	}
	return fmt.Errorf("connect %s after %d attempts: %w", c.cfg.Address, c.cfg.MaxConnectAttempts, lastErr)
}

func (c *Client) adopt(conn net.Conn) {
	c.conn = conn
	c.reader = bufio.NewReader(conn)
}

func (c *Client) reset() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = nil
	c.reader = nil
}
