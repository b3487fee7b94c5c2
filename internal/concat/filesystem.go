package concat

import "io/fs"

// FileSystem provides the file operations the service needs, abstracted
// so tests can run against an in-memory implementation.
type FileSystem interface {
	// Stat returns file info for path, following symlinks.
	Stat(path string) (fs.FileInfo, error)

	// ReadFile returns the entire content of the file at path.
	ReadFile(path string) ([]byte, error)

	// Resolve canonicalizes path by following symlinks. Trailing
	// components that do not exist yet are kept as given, so a
	// destination that is about to be created still resolves.
	Resolve(path string) (string, error)

	// WriteFileAtomic replaces the content of path with data. The write
	// goes to a temp file in the same directory followed by a rename, so
	// readers never observe a partially written file.
	WriteFileAtomic(path string, data []byte, mode fs.FileMode) error

	// MkdirAll creates the directory path together with any missing
	// parents.
	MkdirAll(path string, mode fs.FileMode) error
}
