package journal

import (
	"fmt"
	"os"
	"path/filepath"

	"concatfile-go/internal/concat"
	"concatfile-go/internal/config"
)

// NewJournalFromConfig creates a Journal based on the journal config
// type. Journals are kept per host so a shared data_dir (a dir backup
// root on network storage, say) does not mix machines.
func NewJournalFromConfig(cfg config.JournalConfig, hostID string) (concat.Journal, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite journal")
		}
		if hostID == "" {
			return nil, fmt.Errorf("host_id required for sqlite journal")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
		return Open(filepath.Join(cfg.DataDir, hostID+".db"))
	case "memory":
		return Open(":memory:")
	case "none", "":
		return NewNopJournal(), nil
	default:
		return nil, fmt.Errorf("unknown journal type: %q", cfg.Type)
	}
}
