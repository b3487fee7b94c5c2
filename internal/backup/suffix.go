package backup

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"concatfile-go/internal/concat"
)

// DefaultTimestampFormat names suffix backups the way config management
// tools conventionally do, e.g. /etc/app.conf.2024-01-15@10:30:00~.
const DefaultTimestampFormat = "2006-01-02@15:04:05~"

// SuffixStore keeps backups as sibling files of the destination, named
// <dest>.<timestamp>. The reference is the backup's full path, so
// backups stay visible right next to the files they protect.
type SuffixStore struct {
	layout string
}

var _ concat.BackupStore = (*SuffixStore)(nil)

// NewSuffixStore creates a SuffixStore. An empty layout selects
// DefaultTimestampFormat.
func NewSuffixStore(layout string) *SuffixStore {
	if strings.TrimSpace(layout) == "" {
		layout = DefaultTimestampFormat
	}
	return &SuffixStore{layout: layout}
}

// Put writes dest's content to <dest>.<timestamp>. Two backups of the
// same destination within the same timestamp granularity share a name;
// the later one wins.
func (s *SuffixStore) Put(dest string, r io.Reader, now time.Time) (string, error) {
	ref := dest + "." + now.Format(s.layout)
	if err := writeFile(ref, r); err != nil {
		return "", fmt.Errorf("writing backup %s: %w", ref, err)
	}
	return ref, nil
}

func (s *SuffixStore) Get(ref string) (io.ReadCloser, error) {
	f, err := os.Open(ref)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("backup not found: %s", ref)
		}
		return nil, fmt.Errorf("opening backup %s: %w", ref, err)
	}
	return f, nil
}

func (s *SuffixStore) Name() string { return "suffix" }

func (s *SuffixStore) Encrypted() bool { return false }
