package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		HostID:  "test-host-abc",
		BaseDir: "/home/user/.local/share/concatfile",
		LogDir:  "/home/user/.local/share/concatfile/log",
		Backup: BackupConfig{
			Type:     "s3",
			S3Bucket: "backups",
			S3Prefix: "concatfile/host-1",
			S3Region: "eu-central-1",
		},
		Journal: JournalConfig{Type: "sqlite", DataDir: "/home/user/.local/share/concatfile/journal"},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  "/home/user/.local/share/concatfile/keys/concatfile.pub",
			PrivateKeyPath: "/home/user/.local/share/concatfile/keys/concatfile.key",
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.HostID != original.HostID {
		t.Errorf("HostID = %q, want %q", got.HostID, original.HostID)
	}
	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Backup.Type != "s3" {
		t.Errorf("Backup.Type = %q, want %q", got.Backup.Type, "s3")
	}
	if got.Backup.S3Bucket != "backups" {
		t.Errorf("Backup.S3Bucket = %q, want %q", got.Backup.S3Bucket, "backups")
	}
	if got.Backup.S3Prefix != "concatfile/host-1" {
		t.Errorf("Backup.S3Prefix = %q, want %q", got.Backup.S3Prefix, "concatfile/host-1")
	}
	if got.Journal.Type != "sqlite" {
		t.Errorf("Journal.Type = %q, want %q", got.Journal.Type, "sqlite")
	}
	if got.Journal.DataDir != original.Journal.DataDir {
		t.Errorf("Journal.DataDir = %q, want %q", got.Journal.DataDir, original.Journal.DataDir)
	}
	if got.Encryption.Type != "age" {
		t.Errorf("Encryption.Type = %q, want %q", got.Encryption.Type, "age")
	}
	if got.Encryption.PublicKeyPath != original.Encryption.PublicKeyPath {
		t.Errorf("Encryption.PublicKeyPath = %q, want %q", got.Encryption.PublicKeyPath, original.Encryption.PublicKeyPath)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("host-1", "/data/concatfile")

	if cfg.HostID != "host-1" {
		t.Errorf("HostID = %q, want %q", cfg.HostID, "host-1")
	}
	if cfg.BaseDir != "/data/concatfile" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/concatfile")
	}
	if cfg.LogDir != "/data/concatfile/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/concatfile/log")
	}
	if cfg.Backup.Type != "suffix" {
		t.Errorf("Backup.Type = %q, want %q", cfg.Backup.Type, "suffix")
	}
	if cfg.Journal.Type != "sqlite" {
		t.Errorf("Journal.Type = %q, want %q", cfg.Journal.Type, "sqlite")
	}
	if cfg.Journal.DataDir != "/data/concatfile/journal" {
		t.Errorf("Journal.DataDir = %q, want %q", cfg.Journal.DataDir, "/data/concatfile/journal")
	}
	if cfg.Encryption.Type != "none" {
		t.Errorf("Encryption.Type = %q, want %q", cfg.Encryption.Type, "none")
	}
	if cfg.Encryption.PublicKeyPath != "/data/concatfile/keys/concatfile.pub" {
		t.Errorf("Encryption.PublicKeyPath = %q, want %q", cfg.Encryption.PublicKeyPath, "/data/concatfile/keys/concatfile.pub")
	}
	if cfg.Encryption.PrivateKeyPath != "/data/concatfile/keys/concatfile.key" {
		t.Errorf("Encryption.PrivateKeyPath = %q, want %q", cfg.Encryption.PrivateKeyPath, "/data/concatfile/keys/concatfile.key")
	}
}

func TestFallback(t *testing.T) {
	cfg := Fallback("/data/concatfile")

	if cfg.HostID != "" {
		t.Errorf("HostID = %q, want empty", cfg.HostID)
	}
	if cfg.Backup.Type != "suffix" {
		t.Errorf("Backup.Type = %q, want %q", cfg.Backup.Type, "suffix")
	}
	if cfg.Journal.Type != "none" {
		t.Errorf("Journal.Type = %q, want %q", cfg.Journal.Type, "none")
	}
	if cfg.LogDir != "/data/concatfile/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/concatfile/log")
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "concatfile.toml")
		cfg := NewConfig("h1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "concatfile.toml")
		cfg := NewConfig("h1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		if err := Init(path, cfg); err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "concatfile.toml")
		cfg := NewConfig("read-test", dir)
		cfg.Journal = JournalConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.HostID != "read-test" {
			t.Errorf("HostID = %q, want %q", got.HostID, "read-test")
		}
		if got.Journal.Type != "memory" {
			t.Errorf("Journal.Type = %q, want %q", got.Journal.Type, "memory")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		if _, err := ReadFromFile("/nonexistent/path/concatfile.toml"); err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
