package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/vango-dev/mgxrec/pkg/protocol"
	"github.com/vango-dev/mgxrec/pkg/replay"
)

// Message types sent on /recs/{id}/ws.
const (
	MessageMeta   = "meta"
	MessageAction = "action"
	MessageEnd    = "end"
	MessageError  = "error"
)

// StreamMessage is one JSON text message of a live action stream.
//
// The stream is a meta message (only when metadata was read), one action
// message per action, then exactly one end or error message.
type StreamMessage struct {
	Type    string          `json:"type"`
	Meta    *protocol.Meta  `json:"meta,omitempty"`
	Action  *replay.Record  `json:"action,omitempty"`
	Summary *replay.Summary `json:"summary,omitempty"`
	Error   *errorBody      `json:"error,omitempty"`
}

// handleStream upgrades to a WebSocket and streams decoded actions as they
// are read. The stream stops early when the client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseDecodeQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	logger := loggerFrom(r.Context(), s.logger).With("recording", id)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go s.readUntilClosed(conn, cancel)

	write := func(msg *StreamMessage) error {
		conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			cancel()
			return ErrConnectionClosed
		}
		return nil
	}

	req.onMeta = func(m *protocol.Meta) error {
		return write(&StreamMessage{Type: MessageMeta, Meta: m})
	}

	stats := replay.NewStats()
	res, err := s.decode(ctx, id, req, replay.Chain(func(_ context.Context, rec *replay.Resolved) error {
		record := rec.Record()
		return write(&StreamMessage{Type: MessageAction, Action: &record})
	}, stats.Middleware()))
	if err != nil {
		if ctx.Err() != nil {
			logger.Debug("stream aborted", "error", err)
			return
		}
		_, body := errorResponse(err)
		write(&StreamMessage{Type: MessageError, Error: &body})
		// Close reasons are limited to 123 bytes; the full error went out above.
		reason := body.Code
		if reason == "" {
			reason = "stream failed"
		}
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, reason),
			time.Now().Add(time.Second))
		return
	}

	stats.Skipped = res.Skipped
	summary := stats.Summary()
	write(&StreamMessage{Type: MessageEnd, Summary: &summary})
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

// readUntilClosed drains client messages and calls cancel once the
// connection fails or the client closes it.
func (s *Server) readUntilClosed(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
