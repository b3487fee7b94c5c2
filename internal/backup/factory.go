package backup

import (
	"context"
	"fmt"

	"concatfile-go/internal/concat"
	"concatfile-go/internal/config"
)

// NewStoreFromConfig creates a BackupStore based on the backup config
// type. When enc is non-nil the store is wrapped so all content is
// encrypted; the suffix store is refused in that case, since sibling
// backup files exist to be read in place.
func NewStoreFromConfig(cfg config.BackupConfig, enc concat.Encryptor) (concat.BackupStore, error) {
	var store concat.BackupStore

	switch cfg.Type {
	case "suffix", "":
		store = NewSuffixStore(cfg.TimestampFormat)
	case "dir":
		if cfg.DirRoot == "" {
			return nil, fmt.Errorf("dir backup store requires dir_root to be set")
		}
		s, err := NewDirStore(cfg.DirRoot)
		if err != nil {
			return nil, fmt.Errorf("creating dir store: %w", err)
		}
		store = s
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 backup store requires s3_bucket to be set")
		}
		s, err := NewS3Store(context.Background(), cfg)
		if err != nil {
			return nil, fmt.Errorf("creating s3 store: %w", err)
		}
		store = s
	case "memory":
		store = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown backup store type: %q", cfg.Type)
	}

	if enc != nil {
		if _, ok := store.(*SuffixStore); ok {
			return nil, fmt.Errorf("suffix backup store cannot hold encrypted backups; use dir or s3")
		}
		store = NewEncryptedStore(store, enc)
	}

	return store, nil
}
