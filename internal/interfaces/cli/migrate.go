package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/CiteDisrupt/internal/infrastructure/database/postgres"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the panel database schema",
	}
	cmd.AddCommand(newMigrateUpCmd(), newMigrateDownCmd(), newMigrateStatusCmd())
	return cmd
}

func newMigrateUpCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			dsn, source := migrationSource(cliCtx, path)
			if err := postgres.RunMigrations(dsn, source); err != nil {
				return err
			}
			PrintSuccess(cmd, "migrations applied")
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "migrations directory (default: database.migration_path)")
	return cmd
}

func newMigrateDownCmd() *cobra.Command {
	var (
		path  string
		steps int
	)

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			dsn, source := migrationSource(cliCtx, path)
			if err := postgres.RollbackMigration(dsn, source, steps); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("rolled back %d migration(s)", steps))
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "migrations directory (default: database.migration_path)")
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	return cmd
}

func newMigrateStatusCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			dsn, source := migrationSource(cliCtx, path)
			version, dirty, err := postgres.MigrationStatus(dsn, source)
			if err != nil {
				return err
			}
			state := "clean"
			if dirty {
				state = "dirty"
			}
			return PrintResult(cmd, fmt.Sprintf("schema version %d (%s)", version, state))
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "migrations directory (default: database.migration_path)")
	return cmd
}

// migrationSource resolves the DSN and migration source URL, defaulting
// the path from configuration and adding the file scheme when absent.
func migrationSource(cliCtx *CLIContext, flagPath string) (dsn, source string) {
	dsn = postgresConfig(cliCtx.Config).DSN()
	source = flagPath
	if source == "" {
		source = cliCtx.Config.Database.MigrationPath
	}
	if source == "" {
		source = "migrations"
	}
	if !strings.Contains(source, "://") {
		source = "file://" + source
	}
	return dsn, source
}
