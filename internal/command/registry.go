// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/samber/oops"
)

// Registry manages command registration and lookup.
// It is safe for concurrent use. Names are case-insensitive.
type Registry struct {
	commands map[string]CommandEntry
	mu       sync.RWMutex
}

// NewRegistry creates a new command registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]CommandEntry),
	}
}

// Register adds a command to the registry.
// A command with the same name is overwritten with a warning: last registered wins.
func (r *Registry) Register(entry CommandEntry) error {
	entry.Name = strings.TrimSpace(entry.Name)
	if err := ValidateCommandName(entry.Name); err != nil {
		return err
	}
	if entry.Handler == nil {
		return oops.Code(CodeInvalidName).
			With("command", entry.Name).
			Errorf("command %s has no handler", entry.Name)
	}
	entry.Permissions = entry.GetPermissions()
	key := strings.ToLower(entry.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.commands[key]; ok {
		slog.Warn("command conflict: overwriting existing command",
			"command", entry.Name,
			"previous_source", existing.Source,
			"new_source", entry.Source)
	}

	r.commands[key] = entry
	return nil
}

// Get retrieves a command by name.
func (r *Registry) Get(name string) (CommandEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.commands[strings.ToLower(name)]
	return entry, ok
}

// All returns all registered commands sorted by name.
// The returned slice is a copy and safe to modify.
func (r *Registry) All() []CommandEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]CommandEntry, 0, len(r.commands))
	for _, key := range slices.Sorted(maps.Keys(r.commands)) {
		entries = append(entries, r.commands[key])
	}
	return entries
}
