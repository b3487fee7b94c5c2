package backup

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"concatfile-go/internal/concat"
)

// MemoryStore is an in-memory BackupStore. Content addressing matches
// DirStore. Used in tests and available via backup type "memory".
// Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	content map[string][]byte
}

var _ concat.BackupStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{content: make(map[string][]byte)}
}

func (s *MemoryStore) Put(dest string, r io.Reader, now time.Time) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading backup content: %w", err)
	}
	ref := concat.Checksum(data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.content[ref]; !ok {
		s.content[ref] = data
	}
	return ref, nil
}

func (s *MemoryStore) Get(ref string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.content[ref]
	if !ok {
		return nil, fmt.Errorf("backup not found: %s", ref)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Encrypted() bool { return false }

// Len returns the number of distinct stored contents.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.content)
}
