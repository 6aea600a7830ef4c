// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package handlers

import (
	"context"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/holomush/virtualchest/internal/command"
)

// ReloadPermission is required to run reload.
const ReloadPermission = "virtualchest.reload"

// ReloadHandler rebuilds the chest registry from every source.
func ReloadHandler(ctx context.Context, exec *command.CommandExecution) error {
	result, err := exec.Services.Chests.Reload(ctx)
	if err != nil {
		return err //nolint:wrapcheck // coded RELOAD_FAILED by the directory
	}

	writeOutputf(ctx, exec, "reload", "Reloaded %d chests in %s.\n",
		len(result.Registered), result.Duration.Round(time.Millisecond))
	if len(result.Removed) > 0 {
		writeOutputf(ctx, exec, "reload", "Removed: %s\n", strings.Join(result.Removed, ", "))
	}
	if result.Closed > 0 {
		writeOutputf(ctx, exec, "reload", "Closed %d open chests.\n", result.Closed)
	}
	for _, source := range slices.Sorted(maps.Keys(result.Failures)) {
		writeOutputf(ctx, exec, "reload", "Source %s failed: %v\n", source, result.Failures[source])
	}
	return nil
}
