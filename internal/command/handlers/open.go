// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package handlers

import (
	"context"

	"github.com/holomush/virtualchest/internal/chest"
	"github.com/holomush/virtualchest/internal/command"
)

// OpenHandler opens a chest for the player. Opening a chest closes the one
// already open.
func OpenHandler(ctx context.Context, exec *command.CommandExecution) error {
	id := command.FirstArg(exec.Args)
	if id == "" {
		return command.ErrInvalidArgs("open", "open <id>")
	}

	switch result := exec.Services.Chests.OpenResult(ctx, id, exec.Player); result {
	case chest.ResultAccepted:
		title := id
		if m, ok := exec.Services.Chests.Menu(id); ok && m.Title != "" {
			title = m.Title
		}
		writeOutputf(ctx, exec, "open", "You open %s.\n", title)
		return nil
	case chest.ResultAlreadyOpen:
		writeOutputf(ctx, exec, "open", "You already have '%s' open.\n", id)
		return nil
	default:
		return command.ErrChestRejected(id, result)
	}
}

// CloseHandler closes a chest. Without an argument it closes the open one.
func CloseHandler(ctx context.Context, exec *command.CommandExecution) error {
	id := command.FirstArg(exec.Args)
	if id == "" {
		current, ok := exec.Services.Chests.Lookup(exec.Player)
		if !ok {
			writeOutput(ctx, exec, "close", "You have no chest open.")
			return nil
		}
		id = current
	}

	if result := exec.Services.Chests.CloseResult(ctx, id, exec.Player); result != chest.ResultAccepted {
		return command.ErrChestRejected(id, result)
	}
	writeOutputf(ctx, exec, "close", "You close '%s'.\n", id)
	return nil
}
