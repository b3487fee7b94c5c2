package concat

import (
	"errors"
	"fmt"
	"io/fs"
)

// Error kinds returned by Apply and Plan. Callers match them with
// errors.Is; the underlying OS error stays in the chain.
var (
	// ErrPrecondition marks requests that cannot proceed: missing or
	// unreadable source, source or destination is a directory.
	ErrPrecondition = errors.New("precondition failed")

	// ErrPermission marks destination or backup paths the process may
	// not read or write.
	ErrPermission = errors.New("permission denied")

	// ErrIO marks filesystem or store failures that are neither
	// precondition nor permission problems.
	ErrIO = errors.New("io failure")
)

// errf builds an error tagged with kind. Both kind and cause remain
// matchable with errors.Is.
func errf(kind, cause error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if cause == nil {
		return fmt.Errorf("%s: %w", msg, kind)
	}
	return fmt.Errorf("%s: %w: %w", msg, kind, cause)
}

// classify maps a raw filesystem error to the matching error kind.
func classify(err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return ErrPermission
	}
	return ErrIO
}

// isNotExist reports whether err means the file does not exist.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
