package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vango-dev/mgxrec/pkg/middleware"
	"github.com/vango-dev/mgxrec/pkg/protocol"
	"github.com/vango-dev/mgxrec/pkg/replay"
	"github.com/vango-dev/mgxrec/pkg/upload"
	"go.opentelemetry.io/otel/trace/noop"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, config *ServerConfig, opts ...Option) (*Server, upload.Store) {
	t.Helper()
	store, err := upload.NewDiskStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return New(store, config, opts...), store
}

// recording encodes optional metadata followed by actions.
func recording(t *testing.T, meta *protocol.Meta, actions ...protocol.Action) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := protocol.NewWriter(&buf, protocol.WriterOptions{})
	if meta != nil {
		if err := w.WriteMeta(meta); err != nil {
			t.Fatalf("WriteMeta: %v", err)
		}
	}
	for _, a := range actions {
		if err := w.WriteAction(a); err != nil {
			t.Fatalf("WriteAction(%T): %v", a, err)
		}
	}
	return buf.Bytes()
}

func frame(t *testing.T, c protocol.Command, worldTime uint32) *protocol.Frame {
	t.Helper()
	f, err := protocol.NewFrame(c, worldTime)
	if err != nil {
		t.Fatalf("NewFrame(%T): %v", c, err)
	}
	return f
}

// unsupportedFrame is a command action with opcode 0x99.
func unsupportedFrame() []byte {
	e := protocol.NewEncoder()
	e.WriteUint32(uint32(protocol.ActionCommand))
	e.WriteUint32(1)
	e.WriteUint8(0x99)
	e.WriteUint32(0)
	return e.Bytes()
}

func sampleRecording(t *testing.T) []byte {
	return recording(t, nil,
		&protocol.Time{Elapsed: 100},
		frame(t, &protocol.Move{Player: 1, Objects: protocol.Objects(5, 6)}, 100),
		&protocol.Time{Elapsed: 200},
		frame(t, &protocol.Stop{Objects: protocol.ReusePrevious()}, 300),
		&protocol.Chat{Message: "gg"},
	)
}

func save(t *testing.T, store upload.Store, data []byte) string {
	t.Helper()
	id, err := store.Save(context.Background(), "game.mgx", int64(len(data)), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	return id
}

func do(t *testing.T, h http.Handler, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("Unmarshal(%s): %v", rec.Body.String(), err)
	}
	return v
}

func TestServer_UploadListGetDelete(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/recs?filename=ladder.mgx", bytes.NewReader(sampleRecording(t)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, want 201 (%s)", rec.Code, rec.Body.String())
	}
	created := decodeBody[upload.File](t, rec)
	if !upload.ValidID(created.ID) || created.Filename != "ladder.mgx" {
		t.Fatalf("created = %+v", created)
	}

	rec = do(t, h, http.MethodGet, "/recs", nil)
	list := decodeBody[[]upload.File](t, rec)
	if rec.Code != http.StatusOK || len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("list = %d %+v", rec.Code, list)
	}

	rec = do(t, h, http.MethodGet, "/recs/"+created.ID, nil)
	if got := decodeBody[upload.File](t, rec); rec.Code != http.StatusOK || got.Filename != "ladder.mgx" {
		t.Fatalf("get = %d %+v", rec.Code, got)
	}

	if rec = do(t, h, http.MethodDelete, "/recs/"+created.ID, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}
	if rec = do(t, h, http.MethodGet, "/recs/"+created.ID, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rec.Code)
	}
	if got := s.Stats().Uploads; got != 1 {
		t.Errorf("Uploads = %d, want 1", got)
	}
}

func TestServer_ListEmpty(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/recs", nil)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("empty list body = %q, want []", rec.Body.String())
	}
}

func TestServer_Actions(t *testing.T) {
	s, store := newTestServer(t, nil)
	id := save(t, store, sampleRecording(t))

	rec := do(t, s.Handler(), http.MethodGet, "/recs/"+id+"/actions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	got := decodeBody[actionsResponse](t, rec)
	if len(got.Actions) != 5 {
		t.Fatalf("actions = %d, want 5", len(got.Actions))
	}

	stop := got.Actions[3]
	if stop.Command != "Stop" || stop.GameTimeMS != 300 {
		t.Errorf("Stop record = %+v", stop)
	}
	if len(stop.Objects) != 2 || stop.Objects[0] != 5 {
		t.Errorf("Stop objects = %v, want the previous selection [5 6]", stop.Objects)
	}
}

func TestServer_ActionsFilter(t *testing.T) {
	s, store := newTestServer(t, nil)
	id := save(t, store, sampleRecording(t))

	rec := do(t, s.Handler(), http.MethodGet, "/recs/"+id+"/actions?only=stop,chat", nil)
	got := decodeBody[actionsResponse](t, rec)
	if len(got.Actions) != 2 || got.Actions[0].Command != "Stop" || got.Actions[1].Type != "Chat" {
		t.Fatalf("filtered actions = %+v", got.Actions)
	}
	// Filtering does not change indexes or selection tracking.
	if got.Actions[0].Index != 3 || len(got.Actions[0].Objects) != 2 {
		t.Errorf("Stop record = %+v", got.Actions[0])
	}
}

func TestServer_ActionsBadQuery(t *testing.T) {
	s, store := newTestServer(t, nil)
	id := save(t, store, sampleRecording(t))

	for _, q := range []string{"only=Teleport", "skip_unsupported=maybe", "meta=zip"} {
		t.Run(q, func(t *testing.T) {
			rec := do(t, s.Handler(), http.MethodGet, "/recs/"+id+"/actions?"+q, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestServer_ActionsDecodeError(t *testing.T) {
	s, store := newTestServer(t, nil)
	data := append(sampleRecording(t), unsupportedFrame()...)
	id := save(t, store, data)

	rec := do(t, s.Handler(), http.MethodGet, "/recs/"+id+"/actions", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (%s)", rec.Code, rec.Body.String())
	}
	body := decodeBody[errorBody](t, rec)
	if body.Code != "UnsupportedOpcode" || body.Offset == nil {
		t.Fatalf("error body = %+v", body)
	}
	if s.Stats().FailedStreams != 1 {
		t.Errorf("FailedStreams = %d, want 1", s.Stats().FailedStreams)
	}

	rec = do(t, s.Handler(), http.MethodGet, "/recs/"+id+"/actions?skip_unsupported=true", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("lenient status = %d (%s)", rec.Code, rec.Body.String())
	}
	if got := decodeBody[actionsResponse](t, rec); got.Skipped != 1 || len(got.Actions) != 5 {
		t.Fatalf("lenient response skipped %d actions %d", got.Skipped, len(got.Actions))
	}
}

func TestServer_ActionsUnresolved(t *testing.T) {
	data := recording(t, nil, frame(t, &protocol.Stop{Objects: protocol.ReusePrevious()}, 0))

	s, store := newTestServer(t, nil)
	id := save(t, store, data)
	if rec := do(t, s.Handler(), http.MethodGet, "/recs/"+id+"/actions", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}

	lenient, store2 := newTestServer(t, &ServerConfig{AllowUnresolved: true})
	id = save(t, store2, data)
	if rec := do(t, lenient.Handler(), http.MethodGet, "/recs/"+id+"/actions", nil); rec.Code != http.StatusOK {
		t.Fatalf("AllowUnresolved status = %d, want 200", rec.Code)
	}
}

func TestServer_ActionsMeta(t *testing.T) {
	v4, chapters := uint32(4), uint32(1)
	meta := &protocol.Meta{LogVersion: &v4, ChecksumInterval: 500, LocalPlayer: 2, NumChapters: &chapters}
	data := recording(t, meta, &protocol.Time{Elapsed: 10})

	s, store := newTestServer(t, &ServerConfig{Meta: "mgx"})
	id := save(t, store, data)

	rec := do(t, s.Handler(), http.MethodGet, "/recs/"+id+"/actions", nil)
	got := decodeBody[actionsResponse](t, rec)
	if got.Meta == nil || got.Meta.LocalPlayer != 2 || len(got.Actions) != 1 {
		t.Fatalf("response = %+v", got)
	}

	// The metadata block does not parse as actions.
	rec = do(t, s.Handler(), http.MethodGet, "/recs/"+id+"/actions?meta=none", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("meta=none status = %d, want 422", rec.Code)
	}
}

func TestServer_Stats(t *testing.T) {
	s, store := newTestServer(t, nil)
	id := save(t, store, sampleRecording(t))

	rec := do(t, s.Handler(), http.MethodGet, "/recs/"+id+"/stats", nil)
	got := decodeBody[replay.Summary](t, rec)
	if got.Actions["Time"] != 2 || got.Commands["Move"] != 1 || got.Reused != 1 || got.GameTimeMillis != 300 {
		t.Fatalf("summary = %+v", got)
	}
	if got.DistinctObjects != 2 {
		t.Errorf("DistinctObjects = %d, want 2", got.DistinctObjects)
	}
}

func TestServer_NotFound(t *testing.T) {
	s, _ := newTestServer(t, nil)
	for _, path := range []string{"/recs/" + uuid.NewString() + "/actions", "/recs/nope/stats"} {
		if rec := do(t, s.Handler(), http.MethodGet, path, nil); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, rec.Code)
		}
	}
}

func TestServer_MetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, store := newTestServer(t, nil,
		WithMetrics(middleware.Prometheus(middleware.WithRegistry(reg)), reg))
	id := save(t, store, sampleRecording(t))

	do(t, s.Handler(), http.MethodGet, "/recs/"+id+"/actions", nil)
	rec := do(t, s.Handler(), http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	for _, want := range []string{
		`mgxrec_actions_total{type="Time"} 2`,
		`mgxrec_commands_total{command="Move"} 1`,
		`mgxrec_streams_total{status="success"} 1`,
		`mgxrec_http_requests_total{route="/recs/{id}/actions",status="200"} 1`,
	} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestServer_Tracing(t *testing.T) {
	s, store := newTestServer(t, nil,
		WithTracing(middleware.WithTracer(noop.NewTracerProvider().Tracer("test"))))
	id := save(t, store, sampleRecording(t))

	if rec := do(t, s.Handler(), http.MethodGet, "/recs/"+id+"/actions", nil); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestServer_RequestID(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s.Handler(), http.MethodGet, "/healthz", nil)
	if _, err := uuid.Parse(rec.Header().Get(RequestIDHeader)); err != nil {
		t.Fatalf("X-Request-ID = %q, want a UUID", rec.Header().Get(RequestIDHeader))
	}

	want := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, want)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != want {
		t.Fatalf("X-Request-ID = %q, want %q", got, want)
	}
}

func TestServer_Status(t *testing.T) {
	s, store := newTestServer(t, nil)
	id := save(t, store, sampleRecording(t))
	do(t, s.Handler(), http.MethodGet, "/recs/"+id+"/actions", nil)

	got := decodeBody[ServerMetrics](t, do(t, s.Handler(), http.MethodGet, "/status", nil))
	if got.TotalStreams != 1 || got.ActiveStreams != 0 || got.ActionsDecoded != 5 || got.PeakStreams != 1 {
		t.Fatalf("status = %+v", got)
	}
	if got.BytesDecoded != int64(len(sampleRecording(t))) {
		t.Errorf("BytesDecoded = %d, want %d", got.BytesDecoded, len(sampleRecording(t)))
	}
}

func TestServer_ServeShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer(t, &ServerConfig{ShutdownTimeout: time.Second})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServer_CleanupLoop(t *testing.T) {
	s, store := newTestServer(t, &ServerConfig{Expiry: time.Nanosecond, CleanupInterval: 10 * time.Millisecond})
	id := save(t, store, sampleRecording(t))
	time.Sleep(5 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.cleanupLoop(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := store.Open(context.Background(), id); err != nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expired recording was not removed")
}
