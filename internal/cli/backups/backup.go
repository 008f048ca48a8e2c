package backups

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/rehab/internal/backup"
	"github.com/julianstephens/rehab/internal/cli"
	"github.com/julianstephens/rehab/internal/constants"
)

// ErrNotSQLite is returned when backups are requested for a hosted store
var ErrNotSQLite = errors.New("backups are only available for the local SQLite database")

func manager(ctx *cli.Context) (*backup.Manager, error) {
	if !ctx.IsSQLite() {
		return nil, ErrNotSQLite
	}
	return backup.NewManager(ctx.Store.GetConfigPath()), nil
}

type BackupCreateCmd struct {
	Upload string `help:"Also upload the snapshot to Cloud Storage (gs://bucket/prefix)." placeholder:"gs://BUCKET/PREFIX"`
}

func (c *BackupCreateCmd) Run(ctx *cli.Context) error {
	mgr, err := manager(ctx)
	if err != nil {
		return err
	}

	var target backup.Target
	if c.Upload != "" {
		if target, err = backup.ParseTarget(c.Upload); err != nil {
			return err
		}
	}

	info, err := mgr.Create()
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	fmt.Printf("✓ Backup created: %s\n", info.Name())

	if c.Upload == "" {
		return nil
	}
	return upload(ctx.Background(), info, target)
}

func upload(ctx context.Context, info backup.Info, target backup.Target) error {
	up, err := backup.NewUploader(ctx, os.Getenv(backup.EnvCredentialsFile))
	if err != nil {
		return err
	}
	defer up.Close()

	url, err := up.Upload(ctx, info, target)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	fmt.Printf("✓ Uploaded to %s\n", url)
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *cli.Context) error {
	mgr, err := manager(ctx)
	if err != nil {
		return err
	}
	backups, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	if len(backups) == 0 {
		fmt.Println("No backups found.")
		fmt.Printf("Backups are stored in: %s\n", mgr.Dir())
		return nil
	}

	fmt.Printf("Available backups (%d total, keeping most recent %d):\n\n", len(backups), constants.MaxBackups)
	for _, b := range backups {
		fmt.Printf("  %s  %s  (%.1f KB)\n", b.Timestamp.Format("2006-01-02 15:04:05"), b.Name(), float64(b.Size)/1024.0)
	}
	fmt.Printf("\nBackup directory: %s\n", mgr.Dir())
	return nil
}

type BackupRestoreCmd struct {
	BackupFile string `arg:"" help:"Path or filename of the backup to restore."`
	Yes        bool   `short:"y" help:"Restore without asking."`
}

// resolve looks for file as given, then inside the backup directory
func resolve(mgr *backup.Manager, file string) (string, error) {
	if filepath.IsAbs(file) {
		if _, err := os.Stat(file); err != nil {
			return "", fmt.Errorf("backup file not found: %s", file)
		}
		return file, nil
	}
	if _, err := os.Stat(file); err == nil {
		abs, err := filepath.Abs(file)
		if err != nil {
			return "", fmt.Errorf("failed to resolve backup path: %w", err)
		}
		return abs, nil
	}
	candidate := filepath.Join(mgr.Dir(), file)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	return "", fmt.Errorf("backup file not found: tried current directory and %s", mgr.Dir())
}

func (c *BackupRestoreCmd) Run(ctx *cli.Context) error {
	mgr, err := manager(ctx)
	if err != nil {
		return err
	}
	path, err := resolve(mgr, c.BackupFile)
	if err != nil {
		return err
	}

	if !c.Yes {
		fmt.Println("⚠️  This will replace your current database with the backup.")
		fmt.Println("⚠️  Stop any running 'rehab serve' or 'rehab timer' first.")
		confirmed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Restore from %s?", filepath.Base(path))).
			Description("A snapshot of the current database is taken before restoring.").
			Value(&confirmed).
			Run()
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Restore cancelled.")
			return nil
		}
	}

	if err := ctx.Store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database connection: %v\n", err)
	}

	previous, err := mgr.Restore(path)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	fmt.Println("✓ Database restored successfully!")
	if previous.Path != "" {
		fmt.Printf("  Previous database saved as %s\n", previous.Name())
	}
	return nil
}
