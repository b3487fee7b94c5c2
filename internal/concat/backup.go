package concat

import (
	"io"
	"time"
)

// BackupStore persists the pre-operation content of destination files.
type BackupStore interface {
	// Put stores the content of dest as read from r and returns a
	// reference that Get accepts later. Put runs before dest is mutated;
	// a Put error aborts the operation with the destination untouched.
	Put(dest string, r io.Reader, now time.Time) (string, error)

	// Get opens stored backup content by reference. The caller closes
	// the reader.
	Get(ref string) (io.ReadCloser, error)

	// Name identifies the store type, e.g. "suffix" or "s3".
	Name() string

	// Encrypted reports whether stored content is ciphertext. Restore
	// uses this to decide whether a passphrase is needed.
	Encrypted() bool
}
