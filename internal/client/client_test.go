package client

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/bridgectl/internal/protocol"
	"github.com/danmuck/bridgectl/internal/testutil/testlog"
)

func fastConfig(addr string) Config {
	return Config{
		Address:            addr,
		MaxConnectAttempts: 3,
		RetryDelay:         20 * time.Millisecond,
		DialTimeout:        time.Second,
		ReadTimeout:        time.Second,
		WriteTimeout:       time.Second,
	}
}

// startStubServer serves echo sessions until the test ends.
func startStubServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				reader := bufio.NewReader(conn)
				for {
					cmd, err := protocol.ReadCommand(reader)
					if err != nil {
						return
					}
					var resp protocol.Response
					if cmd.Command == "fail" {
						resp = protocol.ErrorResponse("stub failure")
					} else {
						resp = protocol.SuccessResponse(cmd.Payload)
					}
					if err := protocol.WriteResponse(conn, resp); err != nil {
						return
					}
				}
			}(conn)
		}
	}()
	return ln.Addr().String()
}

func TestSendCommandRoundTrip(t *testing.T) {
	testlog.Start(t)
	addr := startStubServer(t)
	c := New(fastConfig(addr))
	defer c.Disconnect()

	resp := c.SendCommand("echo", map[string]any{"value": "ping"})
	if resp.IsError() {
		t.Fatalf("unexpected error: %s", resp.ErrorMessage)
	}
	if resp.Data["value"] != "ping" {
		t.Fatalf("unexpected data %v", resp.Data)
	}
	if !c.Connected() {
		t.Fatalf("client should hold the connection after a round trip")
	}
}

func TestSendCommandSynthesizesErrorEnvelope(t *testing.T) {
	testlog.Start(t)
	// Grab a port with no listener behind it.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	c := New(fastConfig(addr))
	resp := c.SendCommand("echo", nil)
	if !resp.IsError() {
		t.Fatalf("expected synthesized error envelope")
	}
	if !strings.Contains(resp.ErrorMessage, "connection") {
		t.Fatalf("unexpected message %q", resp.ErrorMessage)
	}
	if err := resp.Validate(); err != nil {
		t.Fatalf("synthesized envelope must validate: %v", err)
	}
}

func TestConnectRetriesAreBounded(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	c := New(fastConfig(addr))
	start := time.Now()
	err = c.Connect()
	if err == nil {
		t.Fatalf("expected connect failure")
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Fatalf("unexpected error %v", err)
	}
	// Two inter-attempt delays at 20ms each.
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("retry delay not applied, elapsed %v", elapsed)
	}
}

func TestSendCommandRetriesBeforeSynthesizing(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	c := New(fastConfig(addr))
	start := time.Now()
	resp := c.SendCommand("echo", nil)
	if !resp.IsError() {
		t.Fatalf("expected synthesized error envelope")
	}
	if !strings.Contains(resp.ErrorMessage, "after 3 attempts") {
		t.Fatalf("unexpected message %q", resp.ErrorMessage)
	}
	// Two inter-attempt delays at 20ms each.
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("dial retries not applied, elapsed %v", elapsed)
	}
}

func TestSendCommandConnectsWithinRetryWindow(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	cfg := fastConfig(addr)
	cfg.MaxConnectAttempts = 10
	c := New(cfg)
	defer c.Disconnect()

	// The endpoint comes up partway through the retry window.
	ready := make(chan net.Listener, 1)
	go func() {
		time.Sleep(60 * time.Millisecond)
		for {
			ln2, err := net.Listen("tcp", addr)
			if err != nil {
				time.Sleep(10 * time.Millisecond)
				continue
			}
			ready <- ln2
			conn, err := ln2.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
			reader := bufio.NewReader(conn)
			cmd, err := protocol.ReadCommand(reader)
			if err != nil {
				return
			}
			_ = protocol.WriteResponse(conn, protocol.SuccessResponse(cmd.Payload))
			return
		}
	}()

	resp := c.SendCommand("echo", map[string]any{"n": 1.0})
	if resp.IsError() {
		t.Fatalf("expected reconnect within the retry window: %s", resp.ErrorMessage)
	}
	if resp.Data["n"] != 1.0 {
		t.Fatalf("unexpected data %v", resp.Data)
	}
	select {
	case ln2 := <-ready:
		ln2.Close()
	default:
	}
}

func TestSendCommandLocalFaultKeepsConnection(t *testing.T) {
	testlog.Start(t)
	addr := startStubServer(t)
	c := New(fastConfig(addr))
	defer c.Disconnect()

	if err := c.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}

	resp := c.SendCommand("", nil)
	if !resp.IsError() {
		t.Fatalf("expected error envelope for empty command name")
	}
	if !c.Connected() {
		t.Fatalf("local validation fault must not drop the connection")
	}

	resp = c.SendCommand("echo", map[string]any{"v": "x"})
	if resp.IsError() {
		t.Fatalf("round trip after local fault: %s", resp.ErrorMessage)
	}
	if resp.Data["v"] != "x" {
		t.Fatalf("unexpected data %v", resp.Data)
	}
}

func TestConnectSucceedsAndIsIdempotent(t *testing.T) {
	testlog.Start(t)
	addr := startStubServer(t)
	c := New(fastConfig(addr))
	defer c.Disconnect()

	if err := c.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := c.Connect(); err != nil {
		t.Fatalf("second connect should be a no-op: %v", err)
	}
}

func TestLazyReconnectAfterServerRestart(t *testing.T) {
	testlog.Start(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()

	// First incarnation answers exactly one command, then drops the
	// session and stops accepting.
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		reader := bufio.NewReader(conn)
		cmd, err := protocol.ReadCommand(reader)
		if err == nil {
			_ = protocol.WriteResponse(conn, protocol.SuccessResponse(cmd.Payload))
		}
		conn.Close()
	}()

	c := New(fastConfig(addr))
	defer c.Disconnect()

	resp := c.SendCommand("echo", map[string]any{"n": 1.0})
	if resp.IsError() {
		t.Fatalf("first round trip: %s", resp.ErrorMessage)
	}

	// Kill the server entirely; the held connection is now stale.
	ln.Close()
	time.Sleep(50 * time.Millisecond)

	// The stale connection fails as an error envelope, never a Go error,
	// and drops the connection for reconnect.
	resp = c.SendCommand("echo", map[string]any{"n": 2.0})
	if err := resp.Validate(); err != nil {
		t.Fatalf("envelope after dead server must validate: %v", err)
	}

	// Server comes back on the same address.
	ln2, err := net.Listen("tcp", addr)
	if err != nil {
		t.Fatalf("relisten: %v", err)
	}
	defer ln2.Close()
	go func() {
		for {
			conn, err := ln2.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				reader := bufio.NewReader(conn)
				for {
					cmd, err := protocol.ReadCommand(reader)
					if err != nil {
						return
					}
					if err := protocol.WriteResponse(conn, protocol.SuccessResponse(cmd.Payload)); err != nil {
						return
					}
				}
			}(conn)
		}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp = c.SendCommand("echo", map[string]any{"n": 3.0})
		if !resp.IsError() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("client did not recover: %s", resp.ErrorMessage)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if resp.Data["n"] != 3.0 {
		t.Fatalf("unexpected data %v", resp.Data)
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	testlog.Start(t)
	addr := startStubServer(t)
	c := New(fastConfig(addr))

	if err := c.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	c.Disconnect()
	c.Disconnect()
	if c.Connected() {
		t.Fatalf("client still marked connected")
	}
}

func TestSendCommandSerialized(t *testing.T) {
	testlog.Start(t)
	addr := startStubServer(t)
	c := New(fastConfig(addr))
	defer c.Disconnect()

	var wg sync.WaitGroup
	errs := make(chan string, 32)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 4; j++ {
				tag := fmt.Sprintf("%d-%d", i, j)
				resp := c.SendCommand("echo", map[string]any{"tag": tag})
				if resp.IsError() {
					errs <- resp.ErrorMessage
					return
				}
				if resp.Data["tag"] != tag {
					errs <- fmt.Sprintf("interleaved response: want %s got %v", tag, resp.Data["tag"])
					return
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Fatalf("concurrent round trip: %s", msg)
	}
}
