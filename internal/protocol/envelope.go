package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	ErrInvalidCommand  = errors.New("protocol: invalid command envelope")
	ErrInvalidResponse = errors.New("protocol: invalid response envelope")
)

// Command is the client->host request envelope naming one operation.
type Command struct {
	Command string         `json:"command"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Validate enforces required command envelope fields.
func (c Command) Validate() error {
	if strings.TrimSpace(c.Command) == "" {
		return fmt.Errorf("%w: missing command", ErrInvalidCommand)
	}
	return nil
}

// Response is the host->client result envelope. Exactly one of Data and
// ErrorMessage is populated, keyed off Status.
type Response struct {
	Status       string         `json:"status"`
	Data         map[string]any `json:"data,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

func (r Response) Validate() error {
	switch r.Status {
	case StatusSuccess:
		if r.ErrorMessage != "" {
			return fmt.Errorf("%w: success response carries error_message", ErrInvalidResponse)
		}
		if r.Data == nil {
			return fmt.Errorf("%w: success response missing data", ErrInvalidResponse)
		}
	case StatusError:
		if strings.TrimSpace(r.ErrorMessage) == "" {
			return fmt.Errorf("%w: error response missing error_message", ErrInvalidResponse)
		}
		if r.Data != nil {
			return fmt.Errorf("%w: error response carries data", ErrInvalidResponse)
		}
	default:
		return fmt.Errorf("%w: invalid status %q", ErrInvalidResponse, r.Status)
	}
	return nil
}

// MarshalJSON keeps the data key on the wire for success envelopes even
// when the result mapping is empty. An omitempty tag would drop the key
// and the peer would reject an otherwise well-formed reply.
func (r Response) MarshalJSON() ([]byte, error) {
	if r.Status == StatusSuccess {
		data := r.Data
		if data == nil {
			data = map[string]any{}
		}
		return json.Marshal(struct {
			Status string         `json:"status"`
			Data   map[string]any `json:"data"`
		}{r.Status, data})
	}
	return json.Marshal(struct {
		Status       string `json:"status"`
		ErrorMessage string `json:"error_message,omitempty"`
	}{r.Status, r.ErrorMessage})
}

// IsError reports whether the envelope carries an error outcome.
func (r Response) IsError() bool {
	return r.Status == StatusError
}

// SuccessResponse wraps a handler result mapping as a success envelope.
func SuccessResponse(data map[string]any) Response {
	if data == nil {
		data = map[string]any{}
	}
	return Response{Status: StatusSuccess, Data: data}
}

// ErrorResponse builds an error envelope from a fault message.
func ErrorResponse(format string, args ...any) Response {
	return Response{Status: StatusError, ErrorMessage: fmt.Sprintf(format, args...)}
}
