package server

import (
	"context"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/vango-dev/mgxrec/pkg/protocol"
	"github.com/vango-dev/mgxrec/pkg/replay"
	"github.com/vango-dev/mgxrec/pkg/upload"
)

// handleList lists stored recordings, newest first.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	files, err := s.store.List(r.Context())
	if err != nil {
		loggerFrom(r.Context(), s.logger).Error("list failed", "error", err)
		writeError(w, err)
		return
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].CreatedAt.After(files[j].CreatedAt)
	})
	if files == nil {
		files = []*upload.File{}
	}
	writeJSON(w, http.StatusOK, files)
}

// handleGet returns the metadata of one recording.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	file, err := s.store.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	file.Close()
	writeJSON(w, http.StatusOK, file)
}

// handleDelete removes a recording.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	loggerFrom(r.Context(), s.logger).Info("recording deleted", "recording", id)
	w.WriteHeader(http.StatusNoContent)
}

// actionsResponse is the body of GET /recs/{id}/actions.
type actionsResponse struct {
	Meta    *protocol.Meta  `json:"meta,omitempty"`
	Actions []replay.Record `json:"actions"`
	Skipped int             `json:"skipped"`
}

// handleActions decodes a recording and returns its actions as JSON.
func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseDecodeQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	out := actionsResponse{Actions: []replay.Record{}}
	res, err := s.decode(r.Context(), chi.URLParam(r, "id"), req, func(_ context.Context, rec *replay.Resolved) error {
		out.Actions = append(out.Actions, rec.Record())
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	out.Meta = res.Meta
	out.Skipped = res.Skipped
	writeJSON(w, http.StatusOK, out)
}

// handleStats decodes a recording and returns its summary.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseDecodeQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	stats := replay.NewStats()
	res, err := s.decode(r.Context(), chi.URLParam(r, "id"), req, replay.Chain(
		func(context.Context, *replay.Resolved) error { return nil },
		stats.Middleware(),
	))
	if err != nil {
		writeError(w, err)
		return
	}
	stats.Skipped = res.Skipped
	writeJSON(w, http.StatusOK, stats.Summary())
}
