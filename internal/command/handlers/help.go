// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package handlers

import (
	"context"

	"github.com/holomush/virtualchest/internal/command"
)

// HelpHandler lists the commands the player may run.
func HelpHandler(ctx context.Context, exec *command.CommandExecution) error {
	writeOutput(ctx, exec, "help", "Commands:")
	for _, entry := range exec.Services.Registry.All() {
		if !allowed(exec, entry) {
			continue
		}
		writeOutputf(ctx, exec, "help", "  %-16s %s\n", entry.Usage, entry.Help)
	}
	return nil
}

func allowed(exec *command.CommandExecution, entry command.CommandEntry) bool {
	if exec.Services.Access == nil {
		return true
	}
	for _, perm := range entry.GetPermissions() {
		if !exec.Services.Access.Check(exec.Player, perm) {
			return false
		}
	}
	return true
}
