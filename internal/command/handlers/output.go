// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package handlers implements the built-in chest commands.
package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/holomush/virtualchest/internal/command"
	"github.com/holomush/virtualchest/internal/observability"
)

// logOutputError logs a write failure and counts it. The command itself
// still succeeds.
func logOutputError(ctx context.Context, cmd, playerID string, bytesWritten int, err error) {
	slog.WarnContext(ctx, "failed to write command output",
		"command", cmd,
		"player_id", playerID,
		"bytes_written", bytesWritten,
		"error", err,
	)
	observability.RecordCommandOutputFailure(cmd)
}

func writeOutput(ctx context.Context, exec *command.CommandExecution, cmd, msg string) {
	if n, err := fmt.Fprintln(exec.Output, msg); err != nil {
		logOutputError(ctx, cmd, exec.Player.ID.String(), n, err)
	}
}

func writeOutputf(ctx context.Context, exec *command.CommandExecution, cmd, format string, args ...any) {
	if n, err := fmt.Fprintf(exec.Output, format, args...); err != nil {
		logOutputError(ctx, cmd, exec.Player.ID.String(), n, err)
	}
}
