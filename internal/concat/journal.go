package concat

import (
	"database/sql"
	"time"
)

// Run is one CLI invocation recorded in the journal.
type Run struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string // "running", "success", or "error"
	StartedAt  time.Time
	FinishedAt sql.NullTime
}

// Apply is one concat operation recorded in the journal.
type Apply struct {
	ID           string // UUID
	RunID        int64  // 0 when the apply ran outside a recorded run
	Src          string
	Dest         string
	SrcChecksum  string
	DestChecksum string // checksum of dest after the operation
	Changed      bool
	Force        bool
	BackupRef    string // empty when no backup was taken
	BackupStore  string // store type holding BackupRef
	Encrypted    bool   // whether the stored backup is ciphertext
	Size         int64
	Mode         string // octal, e.g. "0644"
	AppliedAt    time.Time
}

// Journal records runs and applies for later inspection. The filesystem
// stays the source of truth: the service treats the journal as advisory
// and an Apply that already changed the destination is never failed by
// a journal error.
type Journal interface {
	// BeginRun records the start of a CLI invocation and returns its ID.
	// Applies recorded afterwards on the same journal attach to it.
	BeginRun(operation, parameters string) (int64, error)

	// FinishRun closes the run with a final status.
	FinishRun(id int64, status string) error

	// RecordApply stores one apply. A zero RunID is filled in from the
	// most recent BeginRun on this journal, if any.
	RecordApply(a *Apply) error

	// ListRuns returns up to limit runs, newest first. A non-positive
	// limit means no limit.
	ListRuns(limit int) ([]*Run, error)

	// ListApplies returns up to limit applies for dest, newest first.
	// An empty dest lists applies for all destinations; a non-positive
	// limit means no limit.
	ListApplies(dest string, limit int) ([]*Apply, error)

	// LatestBackup returns the newest apply for dest that produced a
	// backup, or nil when none is recorded.
	LatestBackup(dest string) (*Apply, error)

	Close() error
}
