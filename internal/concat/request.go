package concat

import "io/fs"

// Request holds the parameters for a single concat operation.
type Request struct {
	// Src is the local file whose content is propagated. It must exist
	// and be a regular, readable file.
	Src string

	// Dest is the destination file. Symlinks are followed; the file is
	// created when absent.
	Dest string

	// Backup preserves Dest's prior content in the backup store before
	// any mutation.
	Backup bool

	// Force replaces Dest's content entirely instead of appending.
	Force bool

	// Mode is an explicit permission mode for Dest. Zero keeps the
	// existing mode, or 0644 for files created by the operation.
	Mode fs.FileMode
}

// Result reports the outcome of an Apply or Plan.
type Result struct {
	// Changed is true when the destination was (or, for Plan, would be)
	// modified.
	Changed bool

	// Dest is the resolved destination path after following symlinks.
	Dest string

	// Checksum is the hex SHA-256 of the destination content after the
	// operation. For Plan it is the checksum the content would have.
	Checksum string

	// Size is the destination size in bytes after the operation.
	Size int64

	// Mode is the destination permission mode after the operation.
	Mode fs.FileMode

	// BackupRef identifies the stored backup, empty when none was taken.
	BackupRef string
}
