package upload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a recording doesn't exist.
var ErrNotFound = errors.New("upload: recording not found")

// ErrTooLarge is returned when a recording exceeds the size limit.
var ErrTooLarge = errors.New("upload: recording too large")

// ErrEmpty is returned when an upload has no content.
var ErrEmpty = errors.New("upload: recording is empty")

// Store is the interface for recording storage backends.
type Store interface {
	// Save stores a recording and returns its ID.
	Save(ctx context.Context, filename string, size int64, r io.Reader) (id string, err error)

	// Open returns a recording for reading. The caller must Close it.
	Open(ctx context.Context, id string) (*File, error)

	// Delete removes a recording.
	Delete(ctx context.Context, id string) error

	// List returns every stored recording without its body.
	List(ctx context.Context) ([]*File, error)

	// Cleanup removes recordings older than maxAge.
	Cleanup(ctx context.Context, maxAge time.Duration) error
}

// File is a stored recording.
type File struct {
	// ID is the unique identifier of the recording.
	ID string `json:"id"`

	// Filename is the name the recording was uploaded with.
	Filename string `json:"filename"`

	// Size is the recording size in bytes.
	Size int64 `json:"size"`

	// CreatedAt is when the recording was stored.
	CreatedAt time.Time `json:"created_at"`

	// Reader provides the recording body. It is nil in listings.
	Reader io.ReadCloser `json:"-"`
}

// Close closes the file reader if open.
func (f *File) Close() error {
	if f.Reader != nil {
		return f.Reader.Close()
	}
	return nil
}

// NewID returns a fresh recording ID.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id could have been returned by NewID. Stores use
// it to keep IDs from naming arbitrary paths or keys.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

// Handler returns an http.Handler for recording uploads.
// Mount this on your router: r.Post("/recs", upload.Handler(store))
//
// The handler expects a multipart form with a "file" field, or a raw
// application/octet-stream body. It returns JSON with the recording ID:
//
//	{"id": "5f0c...", "filename": "rec.mgx", "size": 1234}
func Handler(store Store) http.Handler {
	return HandlerWithConfig(store, DefaultConfig())
}

// HandlerWithConfig returns an upload handler with custom configuration.
func HandlerWithConfig(store Store, config *Config) http.Handler {
	maxSize := config.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Limit the body before parsing
		r.Body = http.MaxBytesReader(w, r.Body, maxSize)

		filename, size, body, err := requestFile(r)
		if err != nil {
			if isTooLarge(err) {
				http.Error(w, "Recording too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "No recording provided", http.StatusBadRequest)
			return
		}
		defer body.Close()

		id, err := store.Save(r.Context(), filename, size, body)
		if err != nil {
			switch {
			case errors.Is(err, ErrTooLarge), isTooLarge(err):
				http.Error(w, "Recording too large", http.StatusRequestEntityTooLarge)
			case errors.Is(err, ErrEmpty):
				http.Error(w, "Recording is empty", http.StatusBadRequest)
			default:
				http.Error(w, "Upload failed", http.StatusInternalServerError)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(&File{ID: id, Filename: filename, Size: size})
	})
}

// isTooLarge reports whether err comes from the request body limit. The
// multipart parser does not always wrap it, so the message is checked too.
func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}

// requestFile extracts the uploaded recording from a multipart form or a
// raw body.
func requestFile(r *http.Request) (string, int64, io.ReadCloser, error) {
	if r.Header.Get("Content-Type") == "application/octet-stream" {
		name := r.URL.Query().Get("filename")
		if name == "" {
			name = "recording"
		}
		return name, r.ContentLength, r.Body, nil
	}

	// 32MB in memory, but the body is already limited
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return "", 0, nil, err
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", 0, nil, err
	}
	return header.Filename, header.Size, file, nil
}

// DefaultMaxFileSize bounds uploads when Config.MaxFileSize is unset.
const DefaultMaxFileSize = 32 << 20

// Config holds configuration for the upload handler.
type Config struct {
	// MaxFileSize is the maximum allowed recording size in bytes.
	// Default: 32MB.
	MaxFileSize int64

	// Expiry is how long recordings live before cleanup.
	// Default: 1 hour.
	Expiry time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxFileSize: DefaultMaxFileSize,
		Expiry:      time.Hour,
	}
}
