// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package core contains the host runtime types shared by the chest service:
// players, sessions and the chest event stream.
package core

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType identifies the kind of event.
type EventType string

const (
	EventTypeChestOpen   EventType = "chest_open"
	EventTypeChestClose  EventType = "chest_close"
	EventTypeChestReload EventType = "chest_reload"
)

// SystemStream carries events that are not tied to a single player.
const SystemStream = "system"

// PlayerStream returns the stream name for events addressed to a player.
func PlayerStream(playerID ulid.ULID) string {
	return "player:" + playerID.String()
}

// ActorKind identifies what type of entity caused an event.
type ActorKind uint8

const (
	ActorPlayer ActorKind = iota
	ActorSystem
	ActorPlugin
)

func (a ActorKind) String() string {
	switch a {
	case ActorPlayer:
		return "player"
	case ActorSystem:
		return "system"
	case ActorPlugin:
		return "plugin"
	default:
		return "unknown"
	}
}

// Actor represents who or what caused an event.
type Actor struct {
	Kind ActorKind
	ID   string // Player ID, plugin name, or "system"
}

// Event represents a change in chest state observed by the host.
type Event struct {
	ID        ulid.ULID
	Stream    string // e.g., "player:01ABC", "system"
	Type      EventType
	Timestamp time.Time
	Actor     Actor
	Payload   []byte // JSON
}

// ChestPayload is the JSON payload for chest open and close events.
type ChestPayload struct {
	MenuID string `json:"menu_id"`
	Reason string `json:"reason,omitempty"`
}

// ReloadPayload is the JSON payload for chest reload events.
type ReloadPayload struct {
	MenuCount int      `json:"menu_count"`
	Removed   []string `json:"removed,omitempty"`
}
