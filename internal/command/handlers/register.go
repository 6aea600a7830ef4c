// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package handlers

import (
	"github.com/holomush/virtualchest/internal/command"
)

// Builtins returns the built-in command entries.
func Builtins() []command.CommandEntry {
	return []command.CommandEntry{
		{Name: "chests", Handler: ChestsHandler, Help: "List available chests", Usage: "chests"},
		{Name: "open", Handler: OpenHandler, Help: "Open a chest", Usage: "open <id>"},
		{Name: "close", Handler: CloseHandler, Help: "Close a chest", Usage: "close [id]"},
		{Name: "current", Handler: CurrentHandler, Help: "Show the chest you have open", Usage: "current"},
		{Name: "menu", Handler: MenuHandler, Help: "Describe a chest", Usage: "menu [id]"},
		{
			Name:        "reload",
			Handler:     ReloadHandler,
			Permissions: []string{ReloadPermission},
			Help:        "Reload every chest definition",
			Usage:       "reload",
		},
		{Name: "help", Handler: HelpHandler, Help: "List commands", Usage: "help"},
		{Name: "quit", Handler: QuitHandler, Help: "Disconnect", Usage: "quit"},
	}
}

// RegisterAll registers the built-in commands.
func RegisterAll(reg *command.Registry) error {
	for _, entry := range Builtins() {
		entry.Source = command.SourceCore
		if err := reg.Register(entry); err != nil {
			return err //nolint:wrapcheck // registry errors carry their own code
		}
	}
	return nil
}
