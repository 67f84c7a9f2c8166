package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/vango-dev/mgxrec/pkg/protocol"
	"github.com/vango-dev/mgxrec/pkg/replay"
	"github.com/vango-dev/mgxrec/pkg/upload"
)

// Sentinel errors for request handling.
var (
	// ErrInvalidQuery is returned when a query parameter cannot be parsed.
	ErrInvalidQuery = errors.New("server: invalid query parameter")

	// ErrConnectionClosed is returned when the WebSocket peer went away.
	ErrConnectionClosed = errors.New("server: connection closed")
)

// StreamError wraps a decode failure with the recording it happened in.
type StreamError struct {
	RecordingID string
	Op          string // Operation that failed
	Err         error  // Underlying error
}

// Error returns the error message with recording context.
func (e *StreamError) Error() string {
	if e.RecordingID == "" {
		return fmt.Sprintf("server: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("server: recording %s: %s: %v", e.RecordingID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// NewStreamError creates a new StreamError.
func NewStreamError(id, op string, err error) *StreamError {
	return &StreamError{
		RecordingID: id,
		Op:          op,
		Err:         err,
	}
}

// errorBody is the JSON body of every error response.
type errorBody struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Offset *int64 `json:"offset,omitempty"`
	Opcode string `json:"opcode,omitempty"`
	Field  string `json:"field,omitempty"`
}

// errorResponse maps err to a status code and body.
func errorResponse(err error) (int, errorBody) {
	body := errorBody{Error: err.Error()}

	var de *protocol.DecodeError
	if errors.As(err, &de) {
		body.Code = de.Code.String()
		off := de.Offset
		body.Offset = &off
		if de.Opcode != nil {
			body.Opcode = de.Opcode.String()
		}
		body.Field = de.Field
		return http.StatusUnprocessableEntity, body
	}

	switch {
	case errors.Is(err, upload.ErrNotFound):
		return http.StatusNotFound, body
	case errors.Is(err, ErrInvalidQuery):
		return http.StatusBadRequest, body
	case errors.Is(err, replay.ErrNoPreviousSelection):
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, body
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal error"}
	}
}

// writeError writes err as a JSON error response.
func writeError(w http.ResponseWriter, err error) {
	status, body := errorResponse(err)
	writeJSON(w, status, body)
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
