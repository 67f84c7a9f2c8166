package upload_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vango-dev/mgxrec/pkg/upload"
)

func TestDiskStore_SaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	store, err := upload.NewDiskStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}

	content := []byte{4, 0, 0, 0, 1, 2, 3}
	id, err := store.Save(ctx, "../game.mgx", int64(len(content)), bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !upload.ValidID(id) {
		t.Fatalf("Save returned invalid id %q", id)
	}

	file, err := store.Open(ctx, id)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, err := io.ReadAll(file.Reader)
	file.Close()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(data, content) {
		t.Fatalf("content = %x, want %x", data, content)
	}
	if file.Filename != "game.mgx" || file.Size != int64(len(content)) {
		t.Fatalf("file = %+v, want filename game.mgx size %d", file, len(content))
	}

	// Open does not consume the recording
	again, err := store.Open(ctx, id)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	again.Close()

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Open(ctx, id); !errors.Is(err, upload.ErrNotFound) {
		t.Fatalf("Open after Delete err = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, id); !errors.Is(err, upload.ErrNotFound) {
		t.Fatalf("second Delete err = %v, want ErrNotFound", err)
	}
}

func TestDiskStore_SaveRejectsWhenReaderExceedsLimitEvenIfDeclaredSizeIsSmaller(t *testing.T) {
	dir := t.TempDir()
	store, err := upload.NewDiskStore(dir, 5)
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}

	// size says 4, but reader provides 6 bytes.
	_, err = store.Save(context.Background(), "x.mgx", 4, bytes.NewReader([]byte("123456")))
	if !errors.Is(err, upload.ErrTooLarge) {
		t.Fatalf("err = %v, want %v", err, upload.ErrTooLarge)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("rejected upload left %d files behind", len(entries))
	}
}

func TestDiskStore_SaveRejectsEmpty(t *testing.T) {
	store, _ := upload.NewDiskStore(t.TempDir(), 0)
	if _, err := store.Save(context.Background(), "x.mgx", 0, bytes.NewReader(nil)); !errors.Is(err, upload.ErrEmpty) {
		t.Fatalf("err = %v, want ErrEmpty", err)
	}
}

func TestDiskStore_OpenLoadsMetadataFromDiskWhenNotInMemory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store1, err := upload.NewDiskStore(dir, 0)
	if err != nil {
		t.Fatalf("NewDiskStore(store1): %v", err)
	}

	content := []byte("persist me")
	id, err := store1.Save(ctx, "persist.mgx", int64(len(content)), bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, id+".meta")); err != nil {
		t.Fatalf("expected meta file to exist: %v", err)
	}

	// New store instance simulates a restart (no in-memory map entry).
	store2, err := upload.NewDiskStore(dir, 0)
	if err != nil {
		t.Fatalf("NewDiskStore(store2): %v", err)
	}

	file, err := store2.Open(ctx, id)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer file.Close()
	if file.Filename != "persist.mgx" {
		t.Fatalf("Filename = %q, want persist.mgx", file.Filename)
	}

	files, err := store2.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 1 || files[0].ID != id {
		t.Fatalf("List = %+v, want one recording %s", files, id)
	}
}

func TestDiskStore_RejectsInvalidIDs(t *testing.T) {
	dir := t.TempDir()
	store, _ := upload.NewDiskStore(dir, 0)

	outside := filepath.Join(filepath.Dir(dir), "secret")
	os.WriteFile(outside, []byte("x"), 0644)
	t.Cleanup(func() { os.Remove(outside) })

	for _, id := range []string{"", "../secret", "not-a-uuid", "6ba7b810-9dad-11d1-80b4-00c04fd430c8/.."} {
		if _, err := store.Open(context.Background(), id); !errors.Is(err, upload.ErrNotFound) {
			t.Errorf("Open(%q) err = %v, want ErrNotFound", id, err)
		}
	}
}

func TestDiskStore_Cleanup(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, _ := upload.NewDiskStore(dir, 0)

	id, err := store.Save(ctx, "old.mgx", 3, bytes.NewReader([]byte("abc")))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	old := time.Now().Add(-2 * time.Hour)
	for _, name := range []string{id, id + ".meta"} {
		if err := os.Chtimes(filepath.Join(dir, name), old, old); err != nil {
			t.Fatalf("Chtimes: %v", err)
		}
	}

	if err := store.Cleanup(ctx, time.Hour); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, id)); !os.IsNotExist(err) {
		t.Fatalf("expected expired recording to be removed, stat err = %v", err)
	}
}
