package app

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/journalimport/internal/config"
	"github.com/JonMunkholm/journalimport/internal/store/memory"
)

func TestOpen_MemoryAndLocal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blobs")
	cfg, err := config.LoadFrom(func(key string) string {
		if key == "STORAGE_DIR" {
			return dir
		}
		return ""
	})
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	d, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	if _, ok := d.Store.(*memory.Store); !ok {
		t.Errorf("Store is %T, want *memory.Store", d.Store)
	}

	ctx := context.Background()
	if err := d.Blobs.Put(ctx, "uploads/x/a.txt", []byte("hello")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	rc, err := d.Blobs.Open(ctx, "uploads/x/a.txt")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "hello" {
		t.Errorf("read back %q, want %q", got, "hello")
	}
}

func TestOpenBlobs_UnknownBackend(t *testing.T) {
	_, _, err := openBlobs(context.Background(), config.StorageConfig{Backend: "s3"})
	if err == nil {
		t.Error("openBlobs() error = nil, want error for unknown backend")
	}
}

func TestOpenPool_BadURL(t *testing.T) {
	_, err := openPool(context.Background(), config.DatabaseConfig{URL: "://not a url", MaxConns: 1})
	if err == nil {
		t.Error("openPool() error = nil, want parse error")
	}
}
