package journal

import "concatfile-go/internal/concat"

// NopJournal discards everything. Used when journaling is disabled.
type NopJournal struct{}

var _ concat.Journal = (*NopJournal)(nil)

// NewNopJournal creates a NopJournal.
func NewNopJournal() *NopJournal { return &NopJournal{} }

func (*NopJournal) BeginRun(string, string) (int64, error) { return 0, nil }

func (*NopJournal) FinishRun(int64, string) error { return nil }

func (*NopJournal) RecordApply(*concat.Apply) error { return nil }

func (*NopJournal) ListRuns(int) ([]*concat.Run, error) { return nil, nil }

func (*NopJournal) ListApplies(string, int) ([]*concat.Apply, error) { return nil, nil }

func (*NopJournal) LatestBackup(string) (*concat.Apply, error) { return nil, nil }

func (*NopJournal) Close() error { return nil }
