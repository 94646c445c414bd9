package bridge

import (
	"bufio"
	"errors"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/bridgectl/internal/observability"
	"github.com/danmuck/bridgectl/internal/protocol"
)

// serveSession runs the read/dispatch/write loop for one connection.
// Protocol faults answer with an error envelope and the loop continues;
// only transport errors end the session.
func (s *Server) serveSession(conn net.Conn) {
	defer conn.Close()

	sessionID := uuid.NewString()
	logger := log.With().
		Str("session_id", sessionID).
		Str("remote", conn.RemoteAddr().String()).
		Logger()

	observability.RecordSessionStart()
	defer observability.RecordSessionEnd()
	logger.Info().Msg("bridge.session connected")
	defer logger.Info().Msg("bridge.session closed")

	reader := bufio.NewReader(conn)
	for {
		cmd, err := protocol.ReadCommand(reader)
		if err != nil {
			if errors.Is(err, protocol.ErrMalformedMessage) {
				logger.Warn().Err(err).Msg("bridge.session malformed command")
				resp := protocol.ErrorResponse("invalid command: %v", err)
				if werr := protocol.WriteResponse(conn, resp); werr != nil {
					logger.Warn().Err(werr).Msg("bridge.session write failed")
					return
				}
				continue
			}
			// EOF, reset, or server stop closing the conn.
			logger.Debug().Err(err).Msg("bridge.session read ended")
			return
		}

		resp := s.dispatch(logger, cmd)
		if err := protocol.WriteResponse(conn, resp); err != nil {
			logger.Warn().Err(err).Msg("bridge.session write failed")
			return
		}
	}
}

func (s *Server) dispatch(logger zerolog.Logger, cmd protocol.Command) protocol.Response {
	start := time.Now()

	var resp protocol.Response
	if handler, ok := s.registry.Resolve(cmd.Command); ok {
		resp = invoke(handler, cmd.Payload)
	} else {
		resp = protocol.ErrorResponse("Unknown command: '%s'", cmd.Command)
	}

	duration := time.Since(start)
	observability.RecordCommand(cmd.Command, resp.Status, duration)
	if resp.IsError() {
		logger.Warn().
			Str("command", cmd.Command).
			Dur("duration", duration).
			Str("error", resp.ErrorMessage).
			Msg("bridge.session command failed")
	} else {
		logger.Info().
			Str("command", cmd.Command).
			Dur("duration", duration).
			Msg("bridge.session command ok")
	}
	return resp
}

// invoke shields the session from handler panics.
func invoke(handler func(map[string]any) (map[string]any, error), payload map[string]any) (resp protocol.Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = protocol.ErrorResponse("handler panic: %v", r)
		}
	}()

	data, err := handler(payload)
	if err != nil {
		return protocol.ErrorResponse("%s", err.Error())
	}
	return protocol.SuccessResponse(data)
}
