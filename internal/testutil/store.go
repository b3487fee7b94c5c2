package testutil

import (
	"fmt"
	"io"
	"time"

	"concatfile-go/internal/backup"
	"concatfile-go/internal/concat"
)

// NewTestStore creates a new in-memory backup store for testing.
func NewTestStore() concat.BackupStore {
	return backup.NewMemoryStore()
}

// FailingStore is a BackupStore whose Put always fails with Err. Use it
// to verify that a failed backup aborts an operation before any write.
type FailingStore struct {
	Err error
}

var _ concat.BackupStore = (*FailingStore)(nil)

func (s *FailingStore) Put(dest string, r io.Reader, now time.Time) (string, error) {
	return "", s.Err
}

func (s *FailingStore) Get(ref string) (io.ReadCloser, error) {
	return nil, fmt.Errorf("backup not found: %s", ref)
}

func (s *FailingStore) Name() string { return "failing" }

func (s *FailingStore) Encrypted() bool { return false }
