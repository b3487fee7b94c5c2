package app

import (
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"testing"

	"concatfile-go/internal/concat"
	"concatfile-go/internal/config"
)

// newTestApp wires an App against a temp directory with suffix backups
// and an in-memory journal.
func newTestApp(t *testing.T, operation string) (*App, string) {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		HostID:  "test-host",
		BaseDir: dir,
		LogDir:  filepath.Join(dir, "log"),
		Backup:  config.BackupConfig{Type: "suffix"},
		Journal: config.JournalConfig{Type: "memory"},
	}

	a, err := NewApp(cfg, operation)
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })

	return a, dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestApp_ApplyCreatesDestination(t *testing.T) {
	a, dir := newTestApp(t, "Apply")
	src := filepath.Join(dir, "src.txt")
	dest := filepath.Join(dir, "dest.txt")
	writeFile(t, src, "hello\n")

	res, err := a.Apply(src, dest, false, false, "")
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !res.Changed {
		t.Error("Changed = false, want true")
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading dest: %v", err)
	}
	if string(got) != "hello\n" {
		t.Errorf("dest content = %q, want %q", got, "hello\n")
	}
	if want := concat.Checksum([]byte("hello\n")); res.Checksum != want {
		t.Errorf("Checksum = %q, want %q", res.Checksum, want)
	}
}

func TestApp_ApplyIsIdempotent(t *testing.T) {
	a, dir := newTestApp(t, "Apply")
	src := filepath.Join(dir, "src.txt")
	dest := filepath.Join(dir, "dest.txt")
	writeFile(t, src, "hello\n")

	if _, err := a.Apply(src, dest, false, false, ""); err != nil {
		t.Fatalf("first Apply() error = %v", err)
	}
	res, err := a.Apply(src, dest, false, false, "")
	if err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}
	if res.Changed {
		t.Error("second apply Changed = true, want false")
	}
}

func TestApp_ApplyRecordsRunAndApply(t *testing.T) {
	a, dir := newTestApp(t, "Apply")
	src := filepath.Join(dir, "src.txt")
	dest := filepath.Join(dir, "dest.txt")
	writeFile(t, src, "hello\n")

	if _, err := a.Apply(src, dest, false, false, ""); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	runs, err := a.History(10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("History() returned %d runs, want 1", len(runs))
	}
	if runs[0].Operation != "Apply" {
		t.Errorf("run Operation = %q, want %q", runs[0].Operation, "Apply")
	}
	if runs[0].Parameters != src+" -> "+dest {
		t.Errorf("run Parameters = %q, want %q", runs[0].Parameters, src+" -> "+dest)
	}

	applies, err := a.Log(dest, 10)
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	if len(applies) != 1 {
		t.Fatalf("Log() returned %d applies, want 1", len(applies))
	}
	if applies[0].Src != src {
		t.Errorf("apply Src = %q, want %q", applies[0].Src, src)
	}
	if applies[0].RunID != runs[0].ID {
		t.Errorf("apply RunID = %d, want %d", applies[0].RunID, runs[0].ID)
	}
}

func TestApp_LogFiltersByDestination(t *testing.T) {
	a, dir := newTestApp(t, "Apply")
	src := filepath.Join(dir, "src.txt")
	dest1 := filepath.Join(dir, "one.txt")
	dest2 := filepath.Join(dir, "two.txt")
	writeFile(t, src, "hello\n")

	if _, err := a.Apply(src, dest1, false, false, ""); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if _, err := a.Apply(src, dest2, false, false, ""); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	applies, err := a.Log(dest1, 10)
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	if len(applies) != 1 {
		t.Fatalf("Log(dest1) returned %d applies, want 1", len(applies))
	}
}

func TestApp_BackupAndRestore(t *testing.T) {
	a, dir := newTestApp(t, "Apply")
	src1 := filepath.Join(dir, "one.txt")
	src2 := filepath.Join(dir, "two.txt")
	dest := filepath.Join(dir, "dest.txt")
	writeFile(t, src1, "one\n")
	writeFile(t, src2, "two\n")

	if _, err := a.Apply(src1, dest, false, false, ""); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	res, err := a.Apply(src2, dest, true, true, "")
	if err != nil {
		t.Fatalf("Apply() with backup error = %v", err)
	}
	if res.BackupRef == "" {
		t.Fatal("BackupRef is empty, want a suffix backup path")
	}

	backups, err := a.Backups(dest)
	if err != nil {
		t.Fatalf("Backups() error = %v", err)
	}
	if len(backups) != 1 {
		t.Fatalf("Backups() returned %d, want 1", len(backups))
	}
	if backups[0].BackupRef != res.BackupRef {
		t.Errorf("backup ref = %q, want %q", backups[0].BackupRef, res.BackupRef)
	}

	ref, err := a.RestoreBackup(dest, "", "")
	if err != nil {
		t.Fatalf("RestoreBackup() error = %v", err)
	}
	if ref != res.BackupRef {
		t.Errorf("restored ref = %q, want %q", ref, res.BackupRef)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading dest: %v", err)
	}
	if string(got) != "one\n" {
		t.Errorf("restored content = %q, want %q", got, "one\n")
	}
}

func TestApp_RestoreBackupWithoutHistory(t *testing.T) {
	a, dir := newTestApp(t, "RestoreBackup")
	dest := filepath.Join(dir, "dest.txt")

	if _, err := a.RestoreBackup(dest, "", ""); err == nil {
		t.Fatal("RestoreBackup() error = nil, want error when nothing is recorded")
	}
}

func TestApp_PlanLeavesDestinationAlone(t *testing.T) {
	a, dir := newTestApp(t, "Plan")
	src := filepath.Join(dir, "src.txt")
	dest := filepath.Join(dir, "dest.txt")
	writeFile(t, src, "hello\n")

	res, err := a.Plan(src, dest, false, "")
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if !res.Changed {
		t.Error("Changed = false, want true")
	}

	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Errorf("plan created %s", dest)
	}

	runs, err := a.History(10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("plan recorded %d runs, want 0", len(runs))
	}
}

func TestApp_ApplyMarksRunOnError(t *testing.T) {
	a, dir := newTestApp(t, "Apply")
	dest := filepath.Join(dir, "dest.txt")

	_, err := a.Apply(filepath.Join(dir, "missing.txt"), dest, false, false, "")
	if err == nil {
		t.Fatal("Apply() error = nil, want error for missing source")
	}
	if !errors.Is(err, concat.ErrPrecondition) {
		t.Errorf("error = %v, want ErrPrecondition", err)
	}
	if a.run.Status != "error" {
		t.Errorf("run Status = %q, want %q", a.run.Status, "error")
	}
}

func TestNewApp_ConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{
			name:   "unknown backup type",
			mutate: func(c *config.Config) { c.Backup.Type = "bogus" },
		},
		{
			name:   "unknown journal type",
			mutate: func(c *config.Config) { c.Journal.Type = "bogus" },
		},
		{
			name:   "unknown encryption type",
			mutate: func(c *config.Config) { c.Encryption.Type = "bogus" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			cfg := config.NewConfig("test-host", dir)
			tt.mutate(cfg)

			if _, err := NewApp(cfg, "Apply"); err == nil {
				t.Fatal("NewApp() error = nil, want error")
			}
		})
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv("HOME", "/custom/home")

	t.Run("expands tilde", func(t *testing.T) {
		got, err := resolvePath("~/notes.txt")
		if err != nil {
			t.Fatalf("resolvePath() error = %v", err)
		}
		if got != "/custom/home/notes.txt" {
			t.Errorf("resolvePath() = %q, want %q", got, "/custom/home/notes.txt")
		}
	})

	t.Run("bare tilde is home", func(t *testing.T) {
		got, err := resolvePath("~")
		if err != nil {
			t.Fatalf("resolvePath() error = %v", err)
		}
		if got != "/custom/home" {
			t.Errorf("resolvePath() = %q, want %q", got, "/custom/home")
		}
	})

	t.Run("keeps absolute paths", func(t *testing.T) {
		got, err := resolvePath("/etc/motd")
		if err != nil {
			t.Fatalf("resolvePath() error = %v", err)
		}
		if got != "/etc/motd" {
			t.Errorf("resolvePath() = %q, want %q", got, "/etc/motd")
		}
	})

	t.Run("makes relative paths absolute", func(t *testing.T) {
		cwd, err := os.Getwd()
		if err != nil {
			t.Fatalf("getting cwd: %v", err)
		}
		got, err := resolvePath("sub/file.txt")
		if err != nil {
			t.Fatalf("resolvePath() error = %v", err)
		}
		if want := filepath.Join(cwd, "sub", "file.txt"); got != want {
			t.Errorf("resolvePath() = %q, want %q", got, want)
		}
	})

	t.Run("rejects empty path", func(t *testing.T) {
		if _, err := resolvePath(""); !errors.Is(err, concat.ErrPrecondition) {
			t.Errorf("resolvePath(\"\") error = %v, want ErrPrecondition", err)
		}
	})
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    iofs.FileMode
		wantErr bool
	}{
		{name: "empty means no explicit mode", in: "", want: 0},
		{name: "with leading zero", in: "0644", want: 0o644},
		{name: "without leading zero", in: "644", want: 0o644},
		{name: "executable", in: "0755", want: 0o755},
		{name: "owner only", in: "0600", want: 0o600},
		{name: "not octal", in: "abc", wantErr: true},
		{name: "digits out of octal range", in: "999", wantErr: true},
		{name: "zero mode", in: "0", wantErr: true},
		{name: "beyond permission bits", in: "1777", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMode(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseMode(%q) error = nil, want error", tt.in)
				}
				if !errors.Is(err, concat.ErrPrecondition) {
					t.Errorf("parseMode(%q) error = %v, want ErrPrecondition", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseMode(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseMode(%q) = %04o, want %04o", tt.in, got, tt.want)
			}
		})
	}
}
