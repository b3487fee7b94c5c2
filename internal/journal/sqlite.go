// Package journal persists runs and applies so past operations can be
// inspected and backups located later.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"concatfile-go/internal/concat"
	"concatfile-go/internal/journal/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteJournal implements concat.Journal backed by SQLite.
type SQLiteJournal struct {
	db    *sql.DB
	path  string
	runID int64
}

var _ concat.Journal = (*SQLiteJournal)(nil)

// NewSQLiteJournal opens the journal at path, which may be ":memory:".
// The schema is not touched; use Open to migrate as well.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteJournal{db: db, path: path}, nil
}

// Open opens the journal at path and brings its schema up to date. An
// old journal is migrated forward; one written by a newer binary is
// refused.
func Open(path string) (*SQLiteJournal, error) {
	j, err := NewSQLiteJournal(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(j.db); err != nil {
		j.db.Close()
		return nil, fmt.Errorf("migrating journal schema: %w", err)
	}
	if err := migrations.CheckDBMigrationStatus(j.db); err != nil {
		j.db.Close()
		return nil, fmt.Errorf("journal schema check: %w", err)
	}
	return j, nil
}

// OpenConnection opens and configures a SQLite connection. Exported for
// tests that need a raw, properly configured connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}

	// SQLite ships with foreign keys off for backward compatibility.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return db, nil
}

func (j *SQLiteJournal) BeginRun(operation, parameters string) (int64, error) {
	res, err := j.db.Exec(
		`INSERT INTO runs (operation, parameters, started_at) VALUES (?, ?, ?)`,
		operation, parameters, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("creating run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}
	j.runID = id
	return id, nil
}

func (j *SQLiteJournal) FinishRun(id int64, status string) error {
	if _, err := j.db.Exec(
		`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id,
	); err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	return nil
}

func (j *SQLiteJournal) RecordApply(a *concat.Apply) error {
	runID := a.RunID
	if runID == 0 {
		runID = j.runID
	}
	if _, err := j.db.Exec(
		`INSERT INTO applies (
			id, run_id, src, dest, src_checksum, dest_checksum,
			changed, force, backup_ref, backup_store, encrypted,
			size, mode, applied_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, nullableID(runID), a.Src, a.Dest, a.SrcChecksum, a.DestChecksum,
		a.Changed, a.Force, a.BackupRef, a.BackupStore, a.Encrypted,
		a.Size, a.Mode, a.AppliedAt.UTC(),
	); err != nil {
		return fmt.Errorf("recording apply: %w", err)
	}
	return nil
}

func (j *SQLiteJournal) ListRuns(limit int) ([]*concat.Run, error) {
	rows, err := j.db.Query(
		`SELECT id, operation, parameters, status, started_at, finished_at
		 FROM runs ORDER BY id DESC LIMIT ?`, noLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*concat.Run
	for rows.Next() {
		var r concat.Run
		if err := rows.Scan(&r.ID, &r.Operation, &r.Parameters, &r.Status, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

func (j *SQLiteJournal) ListApplies(dest string, limit int) ([]*concat.Apply, error) {
	query := `SELECT ` + applyColumns + ` FROM applies
		 WHERE dest = ? ORDER BY applied_at DESC, rowid DESC LIMIT ?`
	args := []any{dest, noLimit(limit)}
	if dest == "" {
		query = `SELECT ` + applyColumns + ` FROM applies
		 ORDER BY applied_at DESC, rowid DESC LIMIT ?`
		args = []any{noLimit(limit)}
	}

	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing applies: %w", err)
	}
	defer rows.Close()

	var applies []*concat.Apply
	for rows.Next() {
		a, err := scanApply(rows)
		if err != nil {
			return nil, err
		}
		applies = append(applies, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating applies: %w", err)
	}
	return applies, nil
}

func (j *SQLiteJournal) LatestBackup(dest string) (*concat.Apply, error) {
	row := j.db.QueryRow(
		`SELECT `+applyColumns+` FROM applies
		 WHERE dest = ? AND backup_ref != ''
		 ORDER BY applied_at DESC, rowid DESC LIMIT 1`, dest,
	)
	a, err := scanApply(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

const applyColumns = `id, run_id, src, dest, src_checksum, dest_checksum,
	changed, force, backup_ref, backup_store, encrypted, size, mode, applied_at`

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanApply(s scanner) (*concat.Apply, error) {
	var a concat.Apply
	var runID sql.NullInt64
	if err := s.Scan(
		&a.ID, &runID, &a.Src, &a.Dest, &a.SrcChecksum, &a.DestChecksum,
		&a.Changed, &a.Force, &a.BackupRef, &a.BackupStore, &a.Encrypted,
		&a.Size, &a.Mode, &a.AppliedAt,
	); err != nil {
		return nil, fmt.Errorf("scanning apply: %w", err)
	}
	if runID.Valid {
		a.RunID = runID.Int64
	}
	return &a, nil
}

// noLimit maps non-positive limits to -1, which SQLite reads as no
// LIMIT at all.
func noLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

// nullableID maps 0 to NULL so applies recorded outside a run do not
// reference a nonexistent row.
func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
