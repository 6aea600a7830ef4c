// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/virtualchest/internal/config"
	"github.com/holomush/virtualchest/internal/store"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Run all pending database migrations against the PostgreSQL database.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := databaseURL(opts, cmd)
			if err != nil {
				return err
			}
			cmd.Println("Running migrations...")
			if err := migrateUp(url); err != nil {
				return err
			}
			cmd.Println("Migrations completed successfully")
			return nil
		},
	}

	cmd.AddCommand(newMigrateStatusCmd(opts))
	cmd.AddCommand(newMigrateDownCmd(opts))
	cmd.AddCommand(newMigrateForceCmd(opts))
	return cmd
}

func newMigrateStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := openMigrator(opts, cmd)
			if err != nil {
				return err
			}
			defer closeMigrator(cmd, m)

			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			pending, err := m.Pending()
			if err != nil {
				return err
			}
			cmd.Println(formatStatus(version, dirty, pending))
			return nil
		},
	}
}

func newMigrateDownCmd(opts *rootOptions) *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration (drops all chest data)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return oops.Code("CONFIRMATION_REQUIRED").Errorf("down drops every chest table; rerun with --yes")
			}
			m, err := openMigrator(opts, cmd)
			if err != nil {
				return err
			}
			defer closeMigrator(cmd, m)

			if err := m.Down(); err != nil {
				return err
			}
			cmd.Println("All migrations rolled back")
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirm, "yes", false, "confirm dropping all chest data")
	return cmd
}

func newMigrateForceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "force <version>",
		Short: "Mark a migration version as applied without running it",
		Long: `Mark a migration version as applied without running it. Use this to
recover a database left dirty by a failed migration.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			m, err := openMigrator(opts, cmd)
			if err != nil {
				return err
			}
			defer closeMigrator(cmd, m)

			if err := m.Force(version); err != nil {
				return err
			}
			cmd.Printf("Forced version %d\n", version)
			return nil
		},
	}
}

// parseForceVersion reads the leading integer of s.
func parseForceVersion(s string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(s, "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Wrapf(err, "parse version")
	}
	return version, nil
}

func formatStatus(version uint, dirty bool, pending []uint) string {
	out := fmt.Sprintf("Current version: %d", version)
	if version > 0 {
		if name, err := store.MigrationName(version); err == nil && name != "" {
			out += " (" + name + ")"
		}
	}
	if dirty {
		out += "\nDatabase is DIRTY; fix the schema and run 'migrate force <version>'"
	}
	if len(pending) == 0 {
		return out + "\nNo pending migrations"
	}
	out += fmt.Sprintf("\nPending migrations: %d", len(pending))
	for _, v := range pending {
		name, err := store.MigrationName(v)
		if err != nil || name == "" {
			name = fmt.Sprintf("%06d", v)
		}
		out += "\n  " + name
	}
	return out
}

func databaseURL(opts *rootOptions, cmd *cobra.Command) (string, error) {
	cfg, err := opts.load(cmd)
	if err != nil {
		return "", err
	}
	return requireDatabase(cfg)
}

func requireDatabase(cfg *config.Config) (string, error) {
	if cfg.Database.URL == "" {
		return "", oops.Code(config.CodeInvalid).
			Errorf("database.url is required (--database-url or %sDATABASE__URL)", config.EnvPrefix)
	}
	return cfg.Database.URL, nil
}

func openMigrator(opts *rootOptions, cmd *cobra.Command) (*store.Migrator, error) {
	url, err := databaseURL(opts, cmd)
	if err != nil {
		return nil, err
	}
	return store.NewMigrator(url)
}

func closeMigrator(cmd *cobra.Command, m *store.Migrator) {
	if err := m.Close(); err != nil {
		cmd.PrintErrf("warning: %v\n", err)
	}
}

// migrateUp applies every pending migration.
func migrateUp(url string) error {
	m, err := store.NewMigrator(url)
	if err != nil {
		return err
	}
	upErr := m.Up()
	closeErr := m.Close()
	if upErr != nil {
		return upErr
	}
	return closeErr
}
