package app

import (
	"bytes"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"concatfile-go/internal/backup"
	"concatfile-go/internal/concat"
	"concatfile-go/internal/config"
	"concatfile-go/internal/encryption"
	"concatfile-go/internal/fs"
	"concatfile-go/internal/journal"
)

// App is the application layer between the CLI and the concat Service.
// It constructs all dependencies from config, exposes high-level
// operations that accept raw string paths, and manages the journal
// lifecycle on Close.
type App struct {
	cfg       *config.Config
	fs        concat.FileSystem
	store     concat.BackupStore
	journal   concat.Journal
	encryptor concat.Encryptor
	service   *concat.Service
	run       *Run
	logFile   *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "Apply", "Plan").
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	fsys := fs.NewOSFileSystem()

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	store, err := backup.NewStoreFromConfig(cfg.Backup, enc)
	if err != nil {
		return nil, fmt.Errorf("creating backup store: %w", err)
	}

	jnl, err := journal.NewJournalFromConfig(cfg.Journal, cfg.HostID)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, runID)
	if err != nil {
		jnl.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	svc := concat.NewService(fsys, store, jnl, &slogAdapter{l: logger}, concat.RealClock{}, concat.UUIDGenerator{})

	return &App{
		cfg:       cfg,
		fs:        fsys,
		store:     store,
		journal:   jnl,
		encryptor: enc,
		service:   svc,
		run:       NewRun(operation, ""),
		logFile:   logFile,
	}, nil
}

// persistRun records the run in the journal, giving it an auto-increment ID.
// This should only be called for mutating commands.
func (a *App) persistRun() error {
	if a.run.Persisted() {
		return nil // already persisted
	}
	id, err := a.journal.BeginRun(a.run.Operation, a.run.Parameters)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	a.run.ID = id
	return nil
}

// Apply propagates src's content into dest: append by default, replace
// with force. mode is an octal string like "0644", empty for no
// explicit mode. Returns the operation result.
func (a *App) Apply(rawSrc, rawDest string, withBackup, force bool, mode string) (*concat.Result, error) {
	res, err := a.apply(rawSrc, rawDest, withBackup, force, mode)
	if err != nil {
		a.run.Status = "error"
	}
	return res, err
}

func (a *App) apply(rawSrc, rawDest string, withBackup, force bool, mode string) (*concat.Result, error) {
	src, err := resolvePath(rawSrc)
	if err != nil {
		return nil, fmt.Errorf("resolving source path: %w", err)
	}

	dest, err := resolvePath(rawDest)
	if err != nil {
		return nil, fmt.Errorf("resolving destination path: %w", err)
	}

	m, err := parseMode(mode)
	if err != nil {
		return nil, err
	}

	a.run.Parameters = src + " -> " + dest
	if err := a.persistRun(); err != nil {
		return nil, err
	}

	return a.service.Apply(concat.Request{
		Src:    src,
		Dest:   dest,
		Backup: withBackup,
		Force:  force,
		Mode:   m,
	})
}

// Plan reports what Apply would do without touching the destination,
// the backup store, or the journal.
func (a *App) Plan(rawSrc, rawDest string, force bool, mode string) (*concat.Result, error) {
	src, err := resolvePath(rawSrc)
	if err != nil {
		return nil, fmt.Errorf("resolving source path: %w", err)
	}

	dest, err := resolvePath(rawDest)
	if err != nil {
		return nil, fmt.Errorf("resolving destination path: %w", err)
	}

	m, err := parseMode(mode)
	if err != nil {
		return nil, err
	}

	return a.service.Plan(concat.Request{
		Src:   src,
		Dest:  dest,
		Force: force,
		Mode:  m,
	})
}

// History returns the most recent runs from the journal.
func (a *App) History(limit int) ([]*concat.Run, error) {
	return a.journal.ListRuns(limit)
}

// Log returns the apply history for one destination, newest first.
func (a *App) Log(rawDest string, limit int) ([]*concat.Apply, error) {
	dest, err := a.resolveDest(rawDest)
	if err != nil {
		return nil, err
	}
	return a.journal.ListApplies(dest, limit)
}

// Backups returns the applies that preserved a backup of the given
// destination, newest first.
func (a *App) Backups(rawDest string) ([]*concat.Apply, error) {
	dest, err := a.resolveDest(rawDest)
	if err != nil {
		return nil, err
	}

	applies, err := a.journal.ListApplies(dest, 0)
	if err != nil {
		return nil, err
	}

	var backups []*concat.Apply
	for _, ap := range applies {
		if ap.BackupRef != "" {
			backups = append(backups, ap)
		}
	}
	return backups, nil
}

// Encrypted reports whether restored backups need a passphrase.
func (a *App) Encrypted() bool {
	return a.store.Encrypted()
}

// RestoreBackup writes a stored backup of dest back to dest. An empty
// ref picks the most recent backup recorded in the journal. passphrase
// is only needed when the backup store is encrypted. Returns the ref
// that was restored.
func (a *App) RestoreBackup(rawDest, ref, passphrase string) (string, error) {
	dest, err := a.resolveDest(rawDest)
	if err != nil {
		return "", err
	}

	if ref == "" {
		latest, err := a.journal.LatestBackup(dest)
		if err != nil {
			return "", fmt.Errorf("finding latest backup: %w", err)
		}
		if latest == nil {
			return "", fmt.Errorf("no backup recorded for %s", dest)
		}
		ref = latest.BackupRef
	}

	rc, err := a.store.Get(ref)
	if err != nil {
		return "", fmt.Errorf("reading backup %s: %w", ref, err)
	}
	defer rc.Close()

	var content []byte
	if a.store.Encrypted() {
		if a.encryptor == nil {
			return "", fmt.Errorf("backup store is encrypted but no encryptor is configured")
		}
		dc, err := a.encryptor.Unlock(passphrase)
		if err != nil {
			return "", fmt.Errorf("unlocking private key: %w", err)
		}
		var buf bytes.Buffer
		if err := dc.Decrypt(rc, &buf); err != nil {
			return "", fmt.Errorf("decrypting backup: %w", err)
		}
		content = buf.Bytes()
	} else {
		content, err = io.ReadAll(rc)
		if err != nil {
			return "", fmt.Errorf("reading backup: %w", err)
		}
	}

	// Keep the destination's current mode, or 0644 when it is gone.
	mode := iofs.FileMode(0644)
	if info, err := a.fs.Stat(dest); err == nil {
		mode = info.Mode().Perm()
	}

	if err := a.fs.WriteFileAtomic(dest, content, mode); err != nil {
		return "", fmt.Errorf("restoring %s: %w", dest, err)
	}

	return ref, nil
}

// Close finalizes the run record and closes all resources.
func (a *App) Close() error {
	var firstErr error

	if a.run.Persisted() {
		if err := a.journal.FinishRun(a.run.ID, a.run.Status); err != nil {
			firstErr = fmt.Errorf("finishing run: %w", err)
		}
	}

	if err := a.journal.Close(); err != nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("closing journal: %w", err)
		}
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// resolveDest resolves a raw destination path the same way Apply does,
// so journal lookups match what apply records.
func (a *App) resolveDest(rawDest string) (string, error) {
	p, err := resolvePath(rawDest)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	resolved, err := a.fs.Resolve(p)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	return resolved, nil
}

// resolvePath expands a leading ~ to the user's home directory and
// makes the path absolute.
func resolvePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path: %w", concat.ErrPrecondition)
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("making %s absolute: %w", path, err)
	}
	return abs, nil
}

// parseMode parses an octal permission string like "0644". Empty means
// no explicit mode.
func parseMode(s string) (iofs.FileMode, error) {
	if s == "" {
		return 0, nil
	}

	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid mode %q (want octal like 0644): %w", s, concat.ErrPrecondition)
	}
	if n == 0 || n > 0777 {
		return 0, fmt.Errorf("mode %q out of range: %w", s, concat.ErrPrecondition)
	}
	return iofs.FileMode(n), nil
}
