// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/virtualchest/internal/config"
)

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	configFile string
}

// NewRootCmd creates the root command for the VirtualChest CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "virtualchest",
		Short: "VirtualChest - chest GUI directory for HoloMUSH",
		Long: `VirtualChest serves chest GUIs (inventory-style menus) to players.
Menus are loaded from a directory, from plugins and optionally from
PostgreSQL, and are opened and closed over a telnet front-end.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/virtualchest/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd(opts))
	cmd.AddCommand(NewMenusCmd(opts))
	cmd.AddCommand(NewSchemaCmd())
	cmd.AddCommand(NewMigrateCmd(opts))

	return cmd
}

// load reads the configuration for cmd: defaults, the config file, the
// environment and the flags the user set.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(config.LoadOptions{File: o.configFile, Flags: cmd.Flags()})
}
