// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package handlers

import (
	"context"
	"fmt"

	"github.com/samber/oops"

	"github.com/holomush/virtualchest/internal/command"
)

// QuitHandler ends the player's session. Session end hooks drop the open chest.
func QuitHandler(ctx context.Context, exec *command.CommandExecution) error {
	// Write errors are logged but don't stop the session from ending.
	n, err := fmt.Fprintln(exec.Output, "Goodbye!")
	if err != nil {
		logOutputError(ctx, "quit", exec.Player.ID.String(), n, err)
	}

	if err := exec.Services.Session.EndSession(exec.Player.ID); err != nil {
		return oops.With("player_id", exec.Player.ID.String()).Wrap(err)
	}
	return nil
}
