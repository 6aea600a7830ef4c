// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPlayer(name string) Player {
	return Player{ID: NewULID(), Name: name}
}

func TestSessionManager_Connect(t *testing.T) {
	sm := NewSessionManager()
	player := newTestPlayer("alice")

	session := sm.Connect(player, NewULID())
	require.NotNil(t, session)
	assert.Equal(t, player, session.Player)
	assert.Len(t, session.Connections, 1)
	assert.False(t, session.ConnectedAt.IsZero())
	assert.True(t, sm.IsOnline(player))
}

func TestSessionManager_MultipleConnections(t *testing.T) {
	sm := NewSessionManager()
	player := newTestPlayer("alice")

	sm.Connect(player, NewULID())
	session := sm.Connect(player, NewULID())

	assert.Len(t, session.Connections, 2)
}

func TestSessionManager_DisconnectLastConnectionEndsSession(t *testing.T) {
	sm := NewSessionManager()
	player := newTestPlayer("alice")

	var ended []Player
	sm.OnSessionEnd(func(p Player) { ended = append(ended, p) })

	conn1, conn2 := NewULID(), NewULID()
	sm.Connect(player, conn1)
	sm.Connect(player, conn2)

	sm.Disconnect(player.ID, conn1)
	assert.True(t, sm.IsOnline(player), "one connection remains")
	assert.Empty(t, ended)

	sm.Disconnect(player.ID, conn2)
	assert.False(t, sm.IsOnline(player))
	assert.Nil(t, sm.GetSession(player.ID))
	assert.Equal(t, []Player{player}, ended)
}

func TestSessionManager_Disconnect_NonExistentSession(t *testing.T) {
	sm := NewSessionManager()
	called := false
	sm.OnSessionEnd(func(Player) { called = true })

	sm.Disconnect(NewULID(), NewULID())
	assert.False(t, called)
}

func TestSessionManager_EndSession(t *testing.T) {
	sm := NewSessionManager()
	player := newTestPlayer("bob")

	var ended Player
	sm.OnSessionEnd(func(p Player) { ended = p })
	sm.Connect(player, NewULID())

	require.NoError(t, sm.EndSession(player.ID))
	assert.Equal(t, player, ended)
	assert.False(t, sm.IsOnline(player))
}

func TestSessionManager_EndSession_NotFound(t *testing.T) {
	sm := NewSessionManager()

	err := sm.EndSession(NewULID())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found")
}

func TestSessionManager_HookMayCallBack(t *testing.T) {
	sm := NewSessionManager()
	player := newTestPlayer("carol")

	// A hook that re-enters the manager must not deadlock.
	sm.OnSessionEnd(func(p Player) {
		assert.False(t, sm.IsOnline(p))
	})
	conn := NewULID()
	sm.Connect(player, conn)
	sm.Disconnect(player.ID, conn)
}

func TestSessionManager_FindByName(t *testing.T) {
	sm := NewSessionManager()
	player := newTestPlayer("Alice")
	sm.Connect(player, NewULID())

	found, ok := sm.FindByName("alice")
	require.True(t, ok)
	assert.Equal(t, player.ID, found.ID)

	_, ok = sm.FindByName("nobody")
	assert.False(t, ok)
}

func TestSessionManager_ConnectByName(t *testing.T) {
	sm := NewSessionManager()

	first, resumed := sm.ConnectByName("Alice", NewULID())
	require.NotNil(t, first)
	assert.False(t, resumed)
	assert.Equal(t, "Alice", first.Player.Name)
	assert.False(t, first.Player.IsZero())

	second, resumed := sm.ConnectByName("alice", NewULID())
	assert.True(t, resumed)
	assert.Equal(t, first.Player, second.Player)
	assert.Len(t, second.Connections, 2)
}

func TestSessionManager_ConnectByNameConcurrent(t *testing.T) {
	sm := NewSessionManager()

	var wg sync.WaitGroup
	players := make(chan Player, 20)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session, _ := sm.ConnectByName("alice", NewULID())
			players <- session.Player
		}()
	}
	wg.Wait()
	close(players)

	want := <-players
	for p := range players {
		assert.Equal(t, want, p, "one name must map to one player")
	}
	sessions := sm.ListActiveSessions()
	require.Len(t, sessions, 1)
	assert.Len(t, sessions[0].Connections, 20)
}

func TestSessionManager_DefensiveCopy(t *testing.T) {
	sm := NewSessionManager()
	player := newTestPlayer("alice")

	session1 := sm.Connect(player, NewULID())
	session1.Connections = append(session1.Connections, NewULID())

	session2 := sm.GetSession(player.ID)
	require.NotNil(t, session2)
	assert.Len(t, session2.Connections, 1, "internal state should be unchanged")
}

func TestSessionManager_ListActiveSessions(t *testing.T) {
	sm := NewSessionManager()
	sm.Connect(newTestPlayer("a"), NewULID())
	sm.Connect(newTestPlayer("b"), NewULID())

	assert.Len(t, sm.ListActiveSessions(), 2)
}

func TestSessionManager_UpdateActivity(t *testing.T) {
	sm := NewSessionManager()
	player := newTestPlayer("alice")
	before := sm.Connect(player, NewULID()).LastActivity

	sm.UpdateActivity(player.ID)
	after := sm.GetSession(player.ID).LastActivity
	assert.False(t, after.Before(before))

	// Unknown players are ignored.
	sm.UpdateActivity(NewULID())
}

func TestPlayer_String(t *testing.T) {
	named := newTestPlayer("alice")
	assert.Equal(t, "alice", named.String())

	anonymous := Player{ID: NewULID()}
	assert.Equal(t, anonymous.ID.String(), anonymous.String())
	assert.True(t, Player{}.IsZero())
	assert.False(t, named.IsZero())
}
