// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package chest provides the chest GUI directory: which menus are registered,
// which menu each player has open, and the requests to open or close one.
package chest

import (
	"context"
	"iter"
	"slices"

	"github.com/holomush/virtualchest/internal/core"
)

// Service is the chest GUI directory as seen by plugins and front-ends.
//
// The set of identifiers only changes while a load event is running (see
// Directory.Reload). Registration itself is not part of this interface.
type Service interface {
	// IDs returns the identifiers of all available chest GUIs.
	IDs() IDSet

	// Lookup returns the identifier of the chest GUI the player has open.
	Lookup(player core.Player) (string, bool)

	// Open marks the chest GUI as opened for the player. It returns true if the
	// identifier is registered and the open was accepted.
	Open(ctx context.Context, id string, player core.Player) bool

	// Close marks the chest GUI as closed for the player. It returns true if the
	// identifier is registered and the close was accepted.
	Close(ctx context.Context, id string, player core.Player) bool
}

// IDSet is an immutable snapshot of registered menu identifiers.
// The zero value is an empty set.
type IDSet struct {
	members map[string]struct{}
	sorted  []string
}

func newIDSet(ids []string) IDSet {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	members := make(map[string]struct{}, len(sorted))
	for _, id := range sorted {
		members[id] = struct{}{}
	}
	return IDSet{members: members, sorted: sorted}
}

// Contains reports whether id is in the set.
func (s IDSet) Contains(id string) bool {
	_, ok := s.members[id]
	return ok
}

// Len returns the number of identifiers.
func (s IDSet) Len() int {
	return len(s.sorted)
}

// Slice returns the identifiers in sorted order. The slice is a copy.
func (s IDSet) Slice() []string {
	return slices.Clone(s.sorted)
}

// All iterates the identifiers in sorted order.
func (s IDSet) All() iter.Seq[string] {
	return slices.Values(s.sorted)
}
