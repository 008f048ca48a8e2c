package system

import (
	"fmt"

	"github.com/julianstephens/rehab/internal/cli"
)

// MigrateCmd brings the SQL schema up to the version embedded in the binary
type MigrateCmd struct {
	DryRun bool `help:"List pending migrations without applying them."`
}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}

	runner, err := ctx.Runner()
	if err != nil {
		return err
	}
	status, err := runner.Status()
	if err != nil {
		return fmt.Errorf("failed to read schema status: %w", err)
	}
	if len(status.Pending) == 0 {
		fmt.Printf("Schema is at version %d. Nothing to migrate.\n", status.Current)
		return nil
	}

	fmt.Printf("Schema version %d, latest %d. Pending:\n", status.Current, status.Latest)
	for _, m := range status.Pending {
		fmt.Printf("  %03d %s\n", m.Version, m.Name)
	}
	if c.DryRun {
		return nil
	}

	// Local databases get a snapshot first so a bad migration can be rolled back with 'rehab backup restore'
	ctx.PerformAutomaticBackup()

	count, err := runner.ApplyMigrations(nil)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	fmt.Printf("✓ Applied %d migration(s), schema is at version %d\n", count, status.Latest)
	return nil
}
