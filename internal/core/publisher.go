// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/samber/oops"
)

// Publisher records chest events and delivers them to live subscribers.
type Publisher struct {
	store       EventStore
	broadcaster *Broadcaster
}

// NewPublisher creates a publisher. Either argument may be nil.
func NewPublisher(store EventStore, broadcaster *Broadcaster) *Publisher {
	return &Publisher{
		store:       store,
		broadcaster: broadcaster,
	}
}

// PublishChest records an open or close of menuID for player.
func (p *Publisher) PublishChest(ctx context.Context, eventType EventType, player Player, menuID, reason string) error {
	payload, err := json.Marshal(ChestPayload{MenuID: menuID, Reason: reason})
	if err != nil {
		return oops.With("operation", "marshal chest payload").Wrap(err)
	}

	return p.publish(ctx, Event{
		ID:        NewULID(),
		Stream:    PlayerStream(player.ID),
		Type:      eventType,
		Timestamp: time.Now(),
		Actor:     Actor{Kind: ActorPlayer, ID: player.ID.String()},
		Payload:   payload,
	})
}

// PublishReload records that the registered menu set was replaced.
func (p *Publisher) PublishReload(ctx context.Context, menuCount int, removed []string) error {
	payload, err := json.Marshal(ReloadPayload{MenuCount: menuCount, Removed: removed})
	if err != nil {
		return oops.With("operation", "marshal reload payload").Wrap(err)
	}

	return p.publish(ctx, Event{
		ID:        NewULID(),
		Stream:    SystemStream,
		Type:      EventTypeChestReload,
		Timestamp: time.Now(),
		Actor:     Actor{Kind: ActorSystem, ID: "system"},
		Payload:   payload,
	})
}

func (p *Publisher) publish(ctx context.Context, event Event) error {
	if p.store != nil {
		if err := p.store.Append(ctx, event); err != nil {
			return oops.
				With("event_type", string(event.Type)).
				With("stream", event.Stream).
				Wrapf(err, "append %s event", event.Type)
		}
	}

	// Broadcast to subscribers (nil-safe)
	if p.broadcaster != nil {
		p.broadcaster.Broadcast(event)
	}
	return nil
}
