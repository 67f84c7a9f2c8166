package upload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const metaSuffix = ".meta"

// DiskStore keeps recordings in one directory: the bytes under the ID and
// a JSON sidecar "<id>.meta" with the upload metadata. Sidecars are
// cached after first use, so a restarted store still finds earlier uploads.
type DiskStore struct {
	dir     string
	maxSize int64

	mu    sync.RWMutex
	cache map[string]diskMeta
}

type diskMeta struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

func (m diskMeta) file(id string) *File {
	return &File{ID: id, Filename: m.Filename, Size: m.Size, CreatedAt: m.CreatedAt}
}

// NewDiskStore creates dir if needed. maxSize caps a single recording in
// bytes; 0 disables the cap.
func NewDiskStore(dir string, maxSize int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{dir: dir, maxSize: maxSize, cache: make(map[string]diskMeta)}, nil
}

// Save streams r into a temporary file and moves it into place once the
// size checks pass. The declared size is only trusted for an early reject.
func (s *DiskStore) Save(ctx context.Context, filename string, size int64, r io.Reader) (id string, err error) {
	if s.maxSize > 0 && size > s.maxSize {
		return "", ErrTooLarge
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", err
	}
	defer func() {
		tmp.Close()
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	n, err := io.Copy(tmp, src)
	switch {
	case err != nil:
		return "", err
	case s.maxSize > 0 && n > s.maxSize:
		return "", ErrTooLarge
	case n == 0:
		return "", ErrEmpty
	}
	if err = tmp.Close(); err != nil {
		return "", err
	}

	id = NewID()
	meta := diskMeta{Filename: filepath.Base(filename), Size: n, CreatedAt: time.Now()}
	if err = s.writeMeta(id, meta); err != nil {
		return "", err
	}
	if err = os.Rename(tmp.Name(), s.path(id)); err != nil {
		os.Remove(s.metaPath(id))
		return "", err
	}

	s.mu.Lock()
	s.cache[id] = meta
	s.mu.Unlock()
	return id, nil
}

// Open returns the recording with its reader positioned at byte 0.
func (s *DiskStore) Open(_ context.Context, id string) (*File, error) {
	meta, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	file := meta.file(id)
	file.Reader = f
	return file, nil
}

// Delete removes the recording and its sidecar.
func (s *DiskStore) Delete(_ context.Context, id string) error {
	if _, err := s.lookup(id); err != nil {
		return err
	}
	s.forget(id)
	os.Remove(s.metaPath(id))
	err := os.Remove(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

// List returns every recording that has a readable sidecar.
func (s *DiskStore) List(_ context.Context) ([]*File, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var files []*File
	for _, entry := range entries {
		id, ok := strings.CutSuffix(entry.Name(), metaSuffix)
		if !ok {
			continue
		}
		if meta, err := s.lookup(id); err == nil {
			files = append(files, meta.file(id))
		}
	}
	return files, nil
}

// Cleanup deletes every file in the directory last modified before
// now-maxAge. That covers recordings, their sidecars and temporary files
// left by interrupted uploads.
func (s *DiskStore) Cleanup(ctx context.Context, maxAge time.Duration) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		os.Remove(filepath.Join(s.dir, entry.Name()))
		s.forget(strings.TrimSuffix(entry.Name(), metaSuffix))
	}
	return nil
}

func (s *DiskStore) path(id string) string     { return filepath.Join(s.dir, id) }
func (s *DiskStore) metaPath(id string) string { return filepath.Join(s.dir, id+metaSuffix) }

func (s *DiskStore) forget(id string) {
	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()
}

// lookup returns the metadata for id, reading the sidecar on a cache miss.
// Malformed IDs never touch the filesystem.
func (s *DiskStore) lookup(id string) (diskMeta, error) {
	if !ValidID(id) {
		return diskMeta{}, ErrNotFound
	}
	s.mu.RLock()
	meta, ok := s.cache[id]
	s.mu.RUnlock()
	if ok {
		return meta, nil
	}

	data, err := os.ReadFile(s.metaPath(id))
	if err != nil {
		return diskMeta{}, ErrNotFound
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return diskMeta{}, ErrNotFound
	}
	s.mu.Lock()
	s.cache[id] = meta
	s.mu.Unlock()
	return meta, nil
}

func (s *DiskStore) writeMeta(id string, meta diskMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return os.WriteFile(s.metaPath(id), data, 0o644)
}
