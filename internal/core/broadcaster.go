// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package core

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// DefaultSubscriberBuffer is the channel capacity given to each subscriber.
const DefaultSubscriberBuffer = 64

// Broadcaster fans chest events out to stream subscribers.
// Delivery never blocks the publisher: a full subscriber misses the event.
type Broadcaster struct {
	mu      sync.RWMutex
	subs    map[string][]chan Event
	buffer  int
	dropped atomic.Uint64
}

// NewBroadcaster creates a broadcaster using DefaultSubscriberBuffer.
func NewBroadcaster() *Broadcaster {
	return NewBroadcasterWithBuffer(DefaultSubscriberBuffer)
}

// NewBroadcasterWithBuffer creates a broadcaster with the given per-subscriber buffer.
func NewBroadcasterWithBuffer(buffer int) *Broadcaster {
	if buffer < 1 {
		buffer = 1
	}
	return &Broadcaster{
		subs:   make(map[string][]chan Event),
		buffer: buffer,
	}
}

// Subscribe creates a channel for receiving events on a stream.
func (b *Broadcaster) Subscribe(stream string) chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.buffer)
	b.subs[stream] = append(b.subs[stream], ch)
	return ch
}

// Unsubscribe removes a channel from a stream and closes it.
func (b *Broadcaster) Unsubscribe(stream string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[stream]
	for i, sub := range subs {
		if sub != ch {
			continue
		}
		subs = append(subs[:i], subs[i+1:]...)
		if len(subs) == 0 {
			delete(b.subs, stream)
		} else {
			b.subs[stream] = subs
		}
		close(ch)
		return
	}
}

// Broadcast sends an event to all subscribers of its stream.
func (b *Broadcaster) Broadcast(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[event.Stream] {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
			slog.Warn("chest event dropped: subscriber buffer full",
				"stream", event.Stream,
				"event_id", event.ID.String(),
				"event_type", event.Type,
			)
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}
