package backup_test

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"concatfile-go/internal/backup"
	"concatfile-go/internal/concat"
)

func TestDirStorePutIsContentAddressed(t *testing.T) {
	root := filepath.Join(t.TempDir(), "backups")
	store, err := backup.NewDirStore(root)
	if err != nil {
		t.Fatalf("NewDirStore() error = %v", err)
	}

	ref, err := store.Put("/etc/app.conf", strings.NewReader("old content"), time.Now())
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if want := concat.Checksum([]byte("old content")); ref != want {
		t.Errorf("ref = %s, want checksum %s", ref, want)
	}

	data, err := os.ReadFile(filepath.Join(root, "content", ref))
	if err != nil {
		t.Fatalf("reading stored content: %v", err)
	}
	if string(data) != "old content" {
		t.Errorf("stored content = %q, want %q", data, "old content")
	}
}

func TestDirStorePutIsIdempotent(t *testing.T) {
	root := filepath.Join(t.TempDir(), "backups")
	store, err := backup.NewDirStore(root)
	if err != nil {
		t.Fatalf("NewDirStore() error = %v", err)
	}

	first, err := store.Put("/etc/app.conf", strings.NewReader("same"), time.Now())
	if err != nil {
		t.Fatalf("first Put() error = %v", err)
	}
	second, err := store.Put("/etc/other.conf", strings.NewReader("same"), time.Now())
	if err != nil {
		t.Fatalf("second Put() error = %v", err)
	}
	if first != second {
		t.Errorf("refs differ for identical content: %s vs %s", first, second)
	}

	entries, err := os.ReadDir(filepath.Join(root, "content"))
	if err != nil {
		t.Fatalf("reading content dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("content files = %d, want 1", len(entries))
	}
}

func TestDirStoreGet(t *testing.T) {
	store, err := backup.NewDirStore(filepath.Join(t.TempDir(), "backups"))
	if err != nil {
		t.Fatalf("NewDirStore() error = %v", err)
	}

	ref, err := store.Put("/etc/app.conf", strings.NewReader("saved"), time.Now())
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	rc, err := store.Get(ref)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "saved" {
		t.Errorf("content = %q, want %q", data, "saved")
	}

	if _, err := store.Get("deadbeef"); err == nil {
		t.Error("Get(missing) error = nil, want not found")
	}
}
