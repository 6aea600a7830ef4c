// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/holomush/virtualchest/internal/chest"
	"github.com/holomush/virtualchest/internal/logging"
	"github.com/holomush/virtualchest/internal/menu"
	"github.com/holomush/virtualchest/internal/script"
	"github.com/holomush/virtualchest/internal/store"
)

// importedBy is recorded as the creator of menus stored by the CLI.
const importedBy = "cli"

// NewMenusCmd creates the menus subcommand.
func NewMenusCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "menus",
		Short: "Inspect and manage chest menus without starting the server",
	}
	cmd.AddCommand(newMenusListCmd(opts))
	cmd.AddCommand(newMenusValidateCmd(opts))
	cmd.AddCommand(newMenusImportCmd(opts))
	cmd.AddCommand(newMenusShowCmd(opts))
	cmd.AddCommand(newMenusDeleteCmd(opts))
	return cmd
}

func newMenusListCmd(opts *rootOptions) *cobra.Command {
	var database bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the menus the server would register",
		Long: `Run a load event over the menus directory and the plugins and list
the menus that would be registered. With --database the stored menus
are included as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			logger := logging.Setup(serviceName, version, logging.FormatText, cmd.ErrOrStderr(), logging.WithLevel(slog.LevelWarn))
			evaluator, err := newEvaluator(cfg, logger)
			if err != nil {
				return err
			}

			dir := chest.NewDirectory(chest.WithLogger(logger))
			sources := newFileSources(cfg, evaluator, logger)
			sources.addTo(dir)
			if database {
				url, err := requireDatabase(cfg)
				if err != nil {
					return err
				}
				repo, closeRepo, err := connectMenuRepo(cmd.Context(), url)
				if err != nil {
					return err
				}
				defer closeRepo()
				dir.AddListener(repo)
			}

			result, err := dir.Reload(cmd.Context())
			if err != nil {
				return err
			}
			for _, source := range slices.Sorted(maps.Keys(result.Failures)) {
				cmd.PrintErrf("warning: source %s failed: %v\n", source, result.Failures[source])
			}
			if err := writeMenuTable(cmd.OutOrStdout(), dir, result.Registered); err != nil {
				return err
			}
			if sources.plugins != nil {
				if names := sources.plugins.ListPlugins(); len(names) > 0 {
					cmd.Printf("\nPlugins: %s\n", strings.Join(names, ", "))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&database, "database", false, "include menus stored in the database")
	return cmd
}

func writeMenuTable(w io.Writer, dir *chest.Directory, ids []string) error {
	if len(ids) == 0 {
		_, err := fmt.Fprintln(w, "No menus found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSOURCE\tROWS\tSLOTS\tTITLE")
	for _, id := range ids {
		m, ok := dir.Menu(id)
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", m.ID, m.Source, m.Rows, len(m.Slots), m.Title)
	}
	return tw.Flush()
}

func newMenusValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate menu definition files",
		Long: `Validate menu files against the menu JSON Schema, the menu rules and
the requirement expression compiler.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			evaluator, err := script.NewEvaluator(script.WithTimeout(cfg.Script.Timeout))
			if err != nil {
				return err
			}

			failed := 0
			for _, path := range args {
				m, err := validateMenuFile(evaluator, path)
				if err != nil {
					failed++
					cmd.Printf("FAIL  %s: %v\n", path, err)
					continue
				}
				cmd.Printf("ok    %s (%s)\n", path, m.ID)
			}
			if failed > 0 {
				return oops.Code("MENUS_INVALID").
					With("failed", failed).
					Errorf("%d of %d menu files are invalid", failed, len(args))
			}
			return nil
		},
	}
}

func validateMenuFile(evaluator *script.Evaluator, path string) (*chest.Menu, error) {
	m, err := menu.ValidateFile(path)
	if err != nil {
		return nil, err
	}
	if err := evaluator.ValidateMenu(m); err != nil {
		return nil, err
	}
	return m, nil
}

func newMenusImportCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Store menu definition files in the database",
		Long: `Validate menu files and store them in the database, where the server
picks them up on its next reload. Existing menus are only replaced
with --force.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			url, err := requireDatabase(cfg)
			if err != nil {
				return err
			}
			evaluator, err := script.NewEvaluator(script.WithTimeout(cfg.Script.Timeout))
			if err != nil {
				return err
			}
			repo, closeRepo, err := connectMenuRepo(cmd.Context(), url)
			if err != nil {
				return err
			}
			defer closeRepo()

			failed := 0
			for _, path := range args {
				m, err := validateMenuFile(evaluator, path)
				if err == nil {
					err = repo.Save(cmd.Context(), m, importedBy, !force)
				}
				if err != nil {
					failed++
					cmd.Printf("FAIL  %s: %v\n", path, err)
					continue
				}
				cmd.Printf("saved %s (%s)\n", path, m.ID)
			}
			if failed > 0 {
				return oops.Code("MENUS_IMPORT_FAILED").
					With("failed", failed).
					Errorf("%d of %d menu files were not imported", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "replace menus that are already stored")
	return cmd
}

func newMenusShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a menu stored in the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMenuRepo(opts, cmd, func(repo store.MenuRepository) error {
				m, err := repo.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out, err := yaml.Marshal(m)
				if err != nil {
					return oops.With("menu_id", m.ID).Wrapf(err, "encode menu")
				}
				cmd.Print(string(out))
				return nil
			})
		},
	}
}

func newMenusDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a menu from the database",
		Long: `Remove a stored menu. Players who have it open keep it until the
server's next reload.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMenuRepo(opts, cmd, func(repo store.MenuRepository) error {
				if err := repo.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				cmd.Printf("Deleted menu %s.\n", args[0])
				return nil
			})
		},
	}
}

func withMenuRepo(opts *rootOptions, cmd *cobra.Command, fn func(store.MenuRepository) error) error {
	cfg, err := opts.load(cmd)
	if err != nil {
		return err
	}
	url, err := requireDatabase(cfg)
	if err != nil {
		return err
	}
	repo, closeRepo, err := connectMenuRepo(cmd.Context(), url)
	if err != nil {
		return err
	}
	defer closeRepo()
	return fn(repo)
}
