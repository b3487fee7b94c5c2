package backup

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"concatfile-go/internal/concat"
)

// DirStore is a content-addressed backup store rooted at a directory:
//
//	<root>/
//	  content/
//	    <checksum>    (content files, named by SHA-256)
//
// References are content checksums, so backing up identical content
// twice stores it once.
type DirStore struct {
	root       string
	contentDir string
}

var _ concat.BackupStore = (*DirStore)(nil)

// NewDirStore creates a DirStore rooted at the given path, creating the
// directory structure as needed.
func NewDirStore(root string) (*DirStore, error) {
	contentDir := filepath.Join(root, "content")
	if err := os.MkdirAll(contentDir, 0755); err != nil {
		return nil, fmt.Errorf("creating content directory: %w", err)
	}
	return &DirStore{root: root, contentDir: contentDir}, nil
}

// Put stores content under its checksum. Storing the same content again
// is a no-op that returns the same reference.
func (s *DirStore) Put(dest string, r io.Reader, now time.Time) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading backup content: %w", err)
	}
	ref := concat.Checksum(data)

	path := filepath.Join(s.contentDir, ref)
	if _, err := os.Stat(path); err == nil {
		return ref, nil
	}

	if err := writeFile(path, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("storing backup %s: %w", ref, err)
	}
	return ref, nil
}

func (s *DirStore) Get(ref string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.contentDir, ref))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("backup not found: %s", ref)
		}
		return nil, fmt.Errorf("opening backup %s: %w", ref, err)
	}
	return f, nil
}

func (s *DirStore) Name() string { return "dir" }

func (s *DirStore) Encrypted() bool { return false }
