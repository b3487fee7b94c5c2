package testutil

import (
	"database/sql"
	"time"

	"concatfile-go/internal/concat"
)

// MemJournal is an in-memory concat.Journal that keeps everything it is
// given, for asserting on recorded runs and applies. Not safe for
// concurrent use.
type MemJournal struct {
	Runs    []*concat.Run
	Applies []*concat.Apply

	// RecordErr makes RecordApply fail, for exercising the advisory
	// journal path.
	RecordErr error

	nextRun int64
}

var _ concat.Journal = (*MemJournal)(nil)

// NewMemJournal creates an empty MemJournal.
func NewMemJournal() *MemJournal {
	return &MemJournal{}
}

func (j *MemJournal) BeginRun(operation, parameters string) (int64, error) {
	j.nextRun++
	j.Runs = append(j.Runs, &concat.Run{
		ID:         j.nextRun,
		Operation:  operation,
		Parameters: parameters,
		Status:     "running",
		StartedAt:  time.Now(),
	})
	return j.nextRun, nil
}

func (j *MemJournal) FinishRun(id int64, status string) error {
	for _, r := range j.Runs {
		if r.ID == id {
			r.Status = status
			r.FinishedAt = sql.NullTime{Time: time.Now(), Valid: true}
		}
	}
	return nil
}

func (j *MemJournal) RecordApply(a *concat.Apply) error {
	if j.RecordErr != nil {
		return j.RecordErr
	}
	if a.RunID == 0 {
		a.RunID = j.nextRun
	}
	j.Applies = append(j.Applies, a)
	return nil
}

func (j *MemJournal) ListRuns(limit int) ([]*concat.Run, error) {
	if limit <= 0 {
		limit = len(j.Runs)
	}
	var out []*concat.Run
	for i := len(j.Runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, j.Runs[i])
	}
	return out, nil
}

func (j *MemJournal) ListApplies(dest string, limit int) ([]*concat.Apply, error) {
	if limit <= 0 {
		limit = len(j.Applies)
	}
	var out []*concat.Apply
	for i := len(j.Applies) - 1; i >= 0 && len(out) < limit; i-- {
		if dest == "" || j.Applies[i].Dest == dest {
			out = append(out, j.Applies[i])
		}
	}
	return out, nil
}

func (j *MemJournal) LatestBackup(dest string) (*concat.Apply, error) {
	for i := len(j.Applies) - 1; i >= 0; i-- {
		a := j.Applies[i]
		if a.Dest == dest && a.BackupRef != "" {
			return a, nil
		}
	}
	return nil, nil
}

func (j *MemJournal) Close() error { return nil }
