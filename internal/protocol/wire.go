package protocol

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxLineBytes bounds a single framed envelope. Oversized lines are a
// per-message protocol fault, not a session-terminating condition.
const MaxLineBytes = 1 * 1024 * 1024

var (
	// ErrMalformedMessage marks per-message protocol faults: the line was
	// read off the stream but is not a usable envelope. Sessions answer
	// these with an error envelope and keep reading. Any other read error
	// is terminal for the session.
	ErrMalformedMessage = errors.New("protocol: malformed message")

	ErrMessageTooLarge = fmt.Errorf("%w: exceeds %d bytes", ErrMalformedMessage, MaxLineBytes)
	ErrEmptyMessage    = fmt.Errorf("%w: empty line", ErrMalformedMessage)
)

// WriteCommand frames one command envelope onto the stream.
func WriteCommand(w io.Writer, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	return writeLine(w, cmd)
}

// ReadCommand reads one framed command envelope from the stream. Decode and
// validation failures wrap ErrMalformedMessage; transport failures (EOF,
// reset, deadline) are returned as-is.
func ReadCommand(r *bufio.Reader) (Command, error) {
	line, err := readLine(r)
	if err != nil {
		return Command{}, err
	}
	var cmd Command
	if err := json.Unmarshal(line, &cmd); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if err := cmd.Validate(); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return cmd, nil
}

// WriteResponse frames one response envelope onto the stream.
func WriteResponse(w io.Writer, resp Response) error {
	if err := resp.Validate(); err != nil {
		return err
	}
	return writeLine(w, resp)
}

// ReadResponse reads one framed response envelope from the stream.
func ReadResponse(r *bufio.Reader) (Response, error) {
	line, err := readLine(r)
	if err != nil {
		return Response{}, err
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if resp.Status == StatusSuccess && resp.Data == nil {
		// Tolerate peers that omit an empty result mapping.
		resp.Data = map[string]any{}
	}
	if err := resp.Validate(); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return resp, nil
}

func writeLine(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if len(payload)+1 > MaxLineBytes {
		return ErrMessageTooLarge
	}
	payload = append(payload, '\n')
	_, err = w.Write(payload)
	return err
}

// readLine assembles one newline-terminated frame, faulting as soon as
// the running byte count passes MaxLineBytes so an oversized line never
// gets buffered whole. The remainder of the line is drained to keep the
// stream aligned for the next frame.
func readLine(r *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		chunk, err := r.ReadSlice('\n')
		if len(line)+len(chunk) > MaxLineBytes {
			if err == bufio.ErrBufferFull {
				err = discardLine(r)
			}
			if err != nil {
				return nil, err
			}
			return nil, ErrMessageTooLarge
		}
		line = append(line, chunk...)
		if err == nil {
			break
		}
		if err != bufio.ErrBufferFull {
			return nil, err
		}
	}
	trimmed := trimEOL(line)
	if len(trimmed) == 0 {
		return nil, ErrEmptyMessage
	}
	return trimmed, nil
}

func discardLine(r *bufio.Reader) error {
	for {
		_, err := r.ReadSlice('\n')
		switch err {
		case nil:
			return nil
		case bufio.ErrBufferFull:
			continue
		default:
			return err
		}
	}
}

func trimEOL(line []byte) []byte {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}
