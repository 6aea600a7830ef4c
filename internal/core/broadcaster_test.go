// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_Subscribe(t *testing.T) {
	bc := NewBroadcaster()

	ch := bc.Subscribe("player:test")
	require.NotNil(t, ch)

	event := Event{ID: NewULID(), Stream: "player:test", Type: EventTypeChestOpen}
	bc.Broadcast(event)

	select {
	case received := <-ch:
		assert.Equal(t, event.ID, received.ID)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
}

func TestBroadcaster_OnlyMatchingStream(t *testing.T) {
	bc := NewBroadcaster()

	ch := bc.Subscribe("player:a")
	bc.Broadcast(Event{ID: NewULID(), Stream: "player:b", Type: EventTypeChestOpen})

	select {
	case e := <-ch:
		t.Fatalf("unexpected event on stream %s", e.Stream)
	default:
	}
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	bc := NewBroadcaster()

	ch := bc.Subscribe("player:test")
	bc.Unsubscribe("player:test", ch)

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed")

	// Broadcasting after the last subscriber left must not panic.
	bc.Broadcast(Event{ID: NewULID(), Stream: "player:test"})
}

func TestBroadcaster_MultipleSubscribers(t *testing.T) {
	bc := NewBroadcaster()

	ch1 := bc.Subscribe(SystemStream)
	ch2 := bc.Subscribe(SystemStream)

	event := Event{ID: NewULID(), Stream: SystemStream, Type: EventTypeChestReload}
	bc.Broadcast(event)

	for i, ch := range []chan Event{ch1, ch2} {
		select {
		case received := <-ch:
			assert.Equal(t, event.ID, received.ID, "subscriber %d", i)
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("subscriber %d: timeout", i)
		}
	}
}

func TestBroadcaster_DropsWhenFull(t *testing.T) {
	bc := NewBroadcasterWithBuffer(1)
	ch := bc.Subscribe("player:test")

	bc.Broadcast(Event{ID: NewULID(), Stream: "player:test"})
	bc.Broadcast(Event{ID: NewULID(), Stream: "player:test"})

	assert.Len(t, ch, 1)
	assert.Equal(t, uint64(1), bc.Dropped())
}
