package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"concatfile-go/internal/app"
	"concatfile-go/internal/config"
	"concatfile-go/internal/encryption"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	// A .env in the working directory can supply CONCATFILE_* overrides.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Apply", "Plan").
// Without a config file the built-in fallback keeps apply and plan working:
// suffix backups, journal off.
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if errors.Is(err, fs.ErrNotExist) {
		cfg = config.Fallback(defaults["base_dir"])
	} else if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// readPassphrase prompts on stderr and reads a passphrase without echo.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

// readNewPassphrase prompts twice for a new passphrase and checks both
// entries match.
func readNewPassphrase() (string, error) {
	p1, err := readPassphrase("New passphrase: ")
	if err != nil {
		return "", err
	}
	p2, err := readPassphrase("Repeat passphrase: ")
	if err != nil {
		return "", err
	}
	if p1 != p2 {
		return "", fmt.Errorf("passphrases do not match")
	}
	if p1 == "" {
		return "", fmt.Errorf("passphrase must not be empty")
	}
	return p1, nil
}

var rootCmd = &cobra.Command{
	Use:     "concatfile",
	Short:   "Idempotent file append and copy with backups",
	Version: "0.1.0",
}

// apply command
var applyCmd = &cobra.Command{
	Use:   "apply SRC DEST",
	Short: "Append SRC's content to DEST unless already present",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		withBackup, _ := cmd.Flags().GetBool("backup")
		force, _ := cmd.Flags().GetBool("force")
		mode, _ := cmd.Flags().GetString("mode")

		a, err := newApp("Apply")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Apply(args[0], args[1], withBackup, force, mode)
		if err != nil {
			return err
		}

		switch {
		case !res.Changed:
			fmt.Printf("unchanged: %s\n", res.Dest)
		case res.BackupRef != "":
			fmt.Printf("changed: %s (backup %s)\n", res.Dest, res.BackupRef)
		default:
			fmt.Printf("changed: %s\n", res.Dest)
		}
		return nil
	},
}

// plan command
var planCmd = &cobra.Command{
	Use:   "plan SRC DEST",
	Short: "Show what apply would do without changing DEST",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		mode, _ := cmd.Flags().GetString("mode")

		a, err := newApp("Plan")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Plan(args[0], args[1], force, mode)
		if err != nil {
			return err
		}

		if res.Changed {
			fmt.Printf("would change: %s\n", res.Dest)
		} else {
			fmt.Printf("unchanged: %s\n", res.Dest)
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("History")
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		for _, r := range runs {
			duration := ""
			if r.FinishedAt.Valid {
				d := r.FinishedAt.Time.Sub(r.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-15s  %s  %-10s  %s\n",
				r.ID,
				r.Operation,
				r.StartedAt.Format("2006-01-02 15:04:05"),
				r.Status,
				duration,
			)
		}
		return nil
	},
}

// log command
var logCmd = &cobra.Command{
	Use:   "log DEST",
	Short: "View apply history for a destination",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("Log")
		if err != nil {
			return err
		}
		defer a.Close()

		applies, err := a.Log(args[0], limit)
		if err != nil {
			return err
		}

		if len(applies) == 0 {
			fmt.Println("No apply history.")
			return nil
		}

		for _, e := range applies {
			mark := "unchanged"
			if e.Changed {
				mark = "changed"
			}
			backup := ""
			if e.BackupRef != "" {
				backup = "  backup:" + e.BackupRef
			}
			fmt.Printf("%s  %s  %-9s  %d  mode:%s%s\n",
				e.DestChecksum[:12],
				e.AppliedAt.Format("2006-01-02 15:04:05"),
				mark,
				e.Size,
				e.Mode,
				backup,
			)
		}
		return nil
	},
}

// backups command
var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "Manage destination backups",
}

var backupsListCmd = &cobra.Command{
	Use:   "list DEST",
	Short: "List backups recorded for DEST",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListBackups")
		if err != nil {
			return err
		}
		defer a.Close()

		backups, err := a.Backups(args[0])
		if err != nil {
			return err
		}

		if len(backups) == 0 {
			fmt.Println("No backups recorded.")
			return nil
		}

		for _, b := range backups {
			enc := ""
			if b.Encrypted {
				enc = "  [encrypted]"
			}
			fmt.Printf("%s  %s  %d%s\n",
				b.BackupRef,
				b.AppliedAt.Format("2006-01-02 15:04:05"),
				b.Size,
				enc,
			)
		}
		return nil
	},
}

var backupsRestoreCmd = &cobra.Command{
	Use:   "restore DEST",
	Short: "Write a stored backup back to DEST",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, _ := cmd.Flags().GetString("ref")

		a, err := newApp("RestoreBackup")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase := ""
		if a.Encrypted() {
			passphrase, err = readPassphrase("Passphrase: ")
			if err != nil {
				return err
			}
		}

		restored, err := a.RestoreBackup(args[0], ref, passphrase)
		if err != nil {
			return err
		}

		fmt.Printf("restored: %s (from %s)\n", args[0], restored)
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		encrypt, _ := cmd.Flags().GetBool("encrypt")

		// Get application defaults
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		// Generate a new host ID
		hostID := uuid.New().String()

		// Create config with defaults
		cfg := config.NewConfig(hostID, defaults["base_dir"])

		if encrypt {
			// The suffix store keeps backups next to their destination
			// for direct reading, so ciphertext goes to a dir store.
			cfg.Encryption.Type = "age"
			cfg.Backup.Type = "dir"
			cfg.Backup.DirRoot = filepath.Join(defaults["base_dir"], "backups")

			enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
			if err != nil {
				return fmt.Errorf("creating encryptor: %w", err)
			}

			passphrase, err := readNewPassphrase()
			if err != nil {
				return err
			}
			if err := enc.Setup(passphrase); err != nil {
				return fmt.Errorf("generating keys: %w", err)
			}
			fmt.Printf("Keys written to %s\n", filepath.Dir(cfg.Encryption.PublicKeyPath))
		}

		// Initialize config file
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID: %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Get application defaults
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		// Read config
		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		// Display config
		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Host ID:    %s\n", cfg.HostID)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Backup:     %s\n", cfg.Backup.Type)
		fmt.Printf("Journal:    %s\n", cfg.Journal.Type)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().Bool("encrypt", false, "Generate age keys and encrypt backups")
	configCmd.AddCommand(configListCmd)

	// backups subcommands
	backupsCmd.AddCommand(backupsListCmd)
	backupsCmd.AddCommand(backupsRestoreCmd)
	backupsRestoreCmd.Flags().String("ref", "", "Backup ref to restore (default: most recent)")

	// root commands
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().Bool("backup", false, "Preserve DEST's prior content before changing it")
	applyCmd.Flags().Bool("force", false, "Replace DEST's content instead of appending")
	applyCmd.Flags().String("mode", "", "Octal permission mode for DEST (e.g. 0644)")
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().Bool("force", false, "Replace DEST's content instead of appending")
	planCmd.Flags().String("mode", "", "Octal permission mode for DEST (e.g. 0644)")
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of runs to show")
	rootCmd.AddCommand(logCmd)
	logCmd.Flags().IntP("limit", "n", 50, "Maximum number of applies to show")
	rootCmd.AddCommand(backupsCmd)
	rootCmd.AddCommand(configCmd)
}
