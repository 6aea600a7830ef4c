// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package core

import (
	"github.com/oklog/ulid/v2"
)

// Player is the server-side representation of a connected game client.
type Player struct {
	ID   ulid.ULID
	Name string
}

// IsZero reports whether the player has no identity.
func (p Player) IsZero() bool {
	return p.ID.Compare(ulid.ULID{}) == 0
}

// String returns the player name, falling back to the ID.
func (p Player) String() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID.String()
}
