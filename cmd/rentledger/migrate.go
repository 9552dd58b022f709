package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Strob0t/rentledger/internal/adapter/postgres"
	"github.com/Strob0t/rentledger/internal/config"
)

func newMigrateCmd(flags func() config.CLIFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				dsn, err := migrationDSN(flags)
				if err != nil {
					return err
				}
				if err := postgres.RunMigrations(cmd.Context(), dsn); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			},
		},
		&cobra.Command{
			Use:   "down [n]",
			Short: "Roll back the last n migrations (default 1)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n < 1 {
						return fmt.Errorf("invalid step count %q", args[0])
					}
					steps = n
				}
				dsn, err := migrationDSN(flags)
				if err != nil {
					return err
				}
				if err := postgres.RollbackMigrations(cmd.Context(), dsn, steps); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				dsn, err := migrationDSN(flags)
				if err != nil {
					return err
				}
				v, err := postgres.MigrationVersion(cmd.Context(), dsn)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			},
		},
	)
	return cmd
}

func migrationDSN(flags func() config.CLIFlags) (string, error) {
	cfg, flush, err := loadConfig(flags)
	if err != nil {
		return "", err
	}
	defer flush()
	if cfg.Storage.Driver != "postgres" {
		return "", errors.New("migrations require storage.driver postgres")
	}
	return cfg.Postgres.DSN, nil
}
