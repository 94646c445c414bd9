package bridge

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/bridgectl/internal/commands"
	"github.com/danmuck/bridgectl/internal/protocol"
	"github.com/danmuck/bridgectl/internal/testutil/testlog"
)

func testRegistry(t *testing.T) *commands.Registry {
	t.Helper()
	reg := commands.NewRegistry()
	bindings := []commands.Binding{
		{Name: "echo", Handler: func(payload map[string]any) (map[string]any, error) {
			return payload, nil
		}},
		{Name: "fail", Handler: func(payload map[string]any) (map[string]any, error) {
			return nil, errors.New("handler exploded")
		}},
		{Name: "panic", Handler: func(payload map[string]any) (map[string]any, error) {
			panic("handler lost its mind")
		}},
	}
	for _, binding := range bindings {
		if err := reg.Register(binding); err != nil {
			t.Fatalf("register %s: %v", binding.Name, err)
		}
	}
	return reg
}

func startTestServer(t *testing.T) *Server {
	t.Helper()
	testlog.Start(t)
	srv := NewServer(ServerConfig{ListenAddr: "127.0.0.1:0"}, testRegistry(t))
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		if srv.Running() {
			_ = srv.Stop()
		}
	})
	return srv
}

func dialServer(t *testing.T, srv *Server) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", srv.Addr(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial %s: %v", srv.Addr(), err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, bufio.NewReader(conn)
}

func roundTrip(t *testing.T, conn net.Conn, reader *bufio.Reader, cmd protocol.Command) protocol.Response {
	t.Helper()
	if err := protocol.WriteCommand(conn, cmd); err != nil {
		t.Fatalf("write command: %v", err)
	}
	resp, err := protocol.ReadResponse(reader)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp
}

func TestServerEchoRoundTrip(t *testing.T) {
	srv := startTestServer(t)
	conn, reader := dialServer(t, srv)

	resp := roundTrip(t, conn, reader, protocol.Command{
		Command: "echo",
		Payload: map[string]any{"value": "ping"},
	})
	if resp.IsError() {
		t.Fatalf("unexpected error: %s", resp.ErrorMessage)
	}
	if resp.Data["value"] != "ping" {
		t.Fatalf("unexpected data %v", resp.Data)
	}
}

func TestServerUnknownCommand(t *testing.T) {
	srv := startTestServer(t)
	conn, reader := dialServer(t, srv)

	resp := roundTrip(t, conn, reader, protocol.Command{Command: "bogus"})
	if !resp.IsError() {
		t.Fatalf("expected error envelope")
	}
	if !strings.Contains(resp.ErrorMessage, "Unknown command: 'bogus'") {
		t.Fatalf("unexpected message %q", resp.ErrorMessage)
	}
}

func TestServerSessionSurvivesMalformedInput(t *testing.T) {
	srv := startTestServer(t)
	conn, reader := dialServer(t, srv)

	if _, err := fmt.Fprintf(conn, "this is not json\n"); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	resp, err := protocol.ReadResponse(reader)
	if err != nil {
		t.Fatalf("read response to garbage: %v", err)
	}
	if !resp.IsError() || !strings.Contains(resp.ErrorMessage, "invalid command") {
		t.Fatalf("unexpected response %+v", resp)
	}

	// Same session keeps working.
	resp = roundTrip(t, conn, reader, protocol.Command{
		Command: "echo",
		Payload: map[string]any{"after": "garbage"},
	})
	if resp.IsError() {
		t.Fatalf("session should survive malformed input: %s", resp.ErrorMessage)
	}
}

func TestServerSessionSurvivesHandlerFaults(t *testing.T) {
	srv := startTestServer(t)
	conn, reader := dialServer(t, srv)

	resp := roundTrip(t, conn, reader, protocol.Command{Command: "fail"})
	if !resp.IsError() || !strings.Contains(resp.ErrorMessage, "handler exploded") {
		t.Fatalf("unexpected response %+v", resp)
	}

	resp = roundTrip(t, conn, reader, protocol.Command{Command: "panic"})
	if !resp.IsError() || !strings.Contains(resp.ErrorMessage, "handler panic") {
		t.Fatalf("unexpected response %+v", resp)
	}

	resp = roundTrip(t, conn, reader, protocol.Command{Command: "echo", Payload: map[string]any{"ok": true}})
	if resp.IsError() {
		t.Fatalf("session should survive handler faults: %s", resp.ErrorMessage)
	}
}

func TestServerStopUnblocksActiveSession(t *testing.T) {
	srv := startTestServer(t)
	conn, reader := dialServer(t, srv)

	// Session established and idle; the peer read must end when the
	// server stops.
	resp := roundTrip(t, conn, reader, protocol.Command{Command: "echo"})
	if resp.IsError() {
		t.Fatalf("warm-up round trip failed: %s", resp.ErrorMessage)
	}

	stopped := make(chan error, 1)
	go func() { stopped <- srv.Stop() }()

	select {
	case err := <-stopped:
		if err != nil {
			t.Fatalf("stop: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("stop did not return")
	}

	if _, err := protocol.ReadResponse(reader); err == nil {
		t.Fatalf("expected read to fail after stop")
	}
	if srv.Running() {
		t.Fatalf("server still marked running")
	}
}

func TestServerServesSessionsSequentially(t *testing.T) {
	srv := startTestServer(t)

	first, firstReader := dialServer(t, srv)
	resp := roundTrip(t, first, firstReader, protocol.Command{Command: "echo"})
	if resp.IsError() {
		t.Fatalf("first session: %s", resp.ErrorMessage)
	}

	// A second dial connects at the TCP level but is not serviced until
	// the first session ends.
	second, err := net.DialTimeout("tcp", srv.Addr(), 2*time.Second)
	if err != nil {
		t.Fatalf("second dial: %v", err)
	}
	defer second.Close()
	secondReader := bufio.NewReader(second)
	if err := protocol.WriteCommand(second, protocol.Command{Command: "echo"}); err != nil {
		t.Fatalf("second write: %v", err)
	}
	second.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, err := protocol.ReadResponse(secondReader); err == nil {
		t.Fatalf("second session should not be serviced while first is active")
	}

	first.Close()
	second.SetReadDeadline(time.Now().Add(3 * time.Second))
	resp2, err := protocol.ReadResponse(secondReader)
	if err != nil {
		t.Fatalf("second session after first closed: %v", err)
	}
	if resp2.IsError() {
		t.Fatalf("second session response: %s", resp2.ErrorMessage)
	}
}

func TestServerLifecycleErrors(t *testing.T) {
	srv := startTestServer(t)
	if err := srv.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if err := srv.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := srv.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
}

func TestServerBindFailureSurfaces(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	srv := NewServer(ServerConfig{ListenAddr: ln.Addr().String()}, nil)
	if err := srv.Start(); err == nil {
		_ = srv.Stop()
		t.Fatalf("expected bind failure on occupied port")
	}
}
