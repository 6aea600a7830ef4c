// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/holomush/virtualchest/internal/chest"
	"github.com/holomush/virtualchest/internal/command"
)

// ChestsHandler lists the registered chest ids. The open one is marked.
func ChestsHandler(ctx context.Context, exec *command.CommandExecution) error {
	chests := exec.Services.Chests
	ids := chests.IDs()
	if ids.Len() == 0 {
		writeOutput(ctx, exec, "chests", "No chests are available.")
		return nil
	}

	current, _ := chests.Lookup(exec.Player)
	var b strings.Builder
	b.WriteString("Available chests:\n")
	for id := range ids.All() {
		marker := "  "
		if id == current {
			marker = "* "
		}
		b.WriteString(marker)
		b.WriteString(id)
		if m, ok := chests.Menu(id); ok && m.Title != "" {
			b.WriteString(" - ")
			b.WriteString(m.Title)
		}
		b.WriteString("\n")
	}
	writeOutputf(ctx, exec, "chests", "%s", b.String())
	return nil
}

// CurrentHandler shows the chest the player has open.
func CurrentHandler(ctx context.Context, exec *command.CommandExecution) error {
	id, ok := exec.Services.Chests.Lookup(exec.Player)
	if !ok {
		writeOutput(ctx, exec, "current", "You have no chest open.")
		return nil
	}
	writeOutputf(ctx, exec, "current", "You have '%s' open.\n", id)
	return nil
}

// MenuHandler describes a chest: its title, size and the slots the player can see.
func MenuHandler(ctx context.Context, exec *command.CommandExecution) error {
	id := command.FirstArg(exec.Args)
	if id == "" {
		id, _ = exec.Services.Chests.Lookup(exec.Player)
	}
	if id == "" {
		return command.ErrInvalidArgs("menu", "menu <id>")
	}

	chests := exec.Services.Chests
	m, ok := chests.Menu(id)
	if !ok {
		return command.ErrChestRejected(id, chest.ResultUnknownMenu)
	}
	slots, err := chests.VisibleSlots(ctx, id, exec.Player)
	if err != nil {
		return err //nolint:wrapcheck // already coded by the directory
	}

	writeOutputf(ctx, exec, "menu", "%s (%s) - %d rows, %d slots\n", m.Title, m.ID, m.Rows, m.Capacity())
	for _, slot := range slots {
		writeOutputf(ctx, exec, "menu", "  [%2d] %s\n", slot.Index, describeItem(slot.Item))
	}
	if len(slots) == 0 {
		writeOutput(ctx, exec, "menu", "  (empty)")
	}
	return nil
}

func describeItem(item chest.Item) string {
	name := item.Name
	if name == "" {
		name = item.Type
	}
	if item.Count > 1 {
		return name + " x" + strconv.Itoa(item.Count)
	}
	return name
}
