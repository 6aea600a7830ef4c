// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package command provides the command registry, parser, and dispatch system
// of the text front-end.
package command

import (
	"context"
	"io"
	"slices"

	"github.com/oklog/ulid/v2"

	"github.com/holomush/virtualchest/internal/chest"
	"github.com/holomush/virtualchest/internal/core"
)

// SourceCore is the source of built-in commands.
const SourceCore = "core"

// CommandHandler is the function signature for command handlers.
//
//nolint:revive // stutter kept for readability at call sites
type CommandHandler func(ctx context.Context, exec *CommandExecution) error

// CommandEntry is a registered command.
//
//nolint:revive // stutter kept for readability at call sites
type CommandEntry struct {
	Name        string         // canonical name (e.g., "open")
	Handler     CommandHandler // executes the command
	Permissions []string       // ALL required permissions (AND logic)
	Help        string         // short description (one line)
	Usage       string         // usage pattern (e.g., "open <id>")
	Source      string         // "core" or plugin name
}

// GetPermissions returns a copy of the required permissions.
func (e CommandEntry) GetPermissions() []string {
	return slices.Clone(e.Permissions)
}

// Chests is the part of the chest directory commands use.
type Chests interface {
	chest.Service
	OpenResult(ctx context.Context, id string, player core.Player) string
	CloseResult(ctx context.Context, id string, player core.Player) string
	Menu(id string) (*chest.Menu, bool)
	VisibleSlots(ctx context.Context, id string, player core.Player) ([]chest.Slot, error)
	Reload(ctx context.Context) (chest.ReloadResult, error)
}

// Services provides access to server services for command handlers.
// Handlers MUST NOT keep references to services beyond execution.
type Services struct {
	Chests   Chests
	Session  *core.SessionManager
	Access   chest.PermissionChecker
	Registry *Registry
}

// CommandExecution provides context for one command execution.
//
//nolint:revive // stutter kept for readability at call sites
type CommandExecution struct {
	Player    core.Player
	ConnID    ulid.ULID
	Args      string
	InvokedAs string // name the player typed
	Output    io.Writer
	Services  *Services
}
