// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package core

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session represents a player's ongoing presence on the server.
type Session struct {
	Player       Player
	Connections  []ulid.ULID // Active connection IDs
	ConnectedAt  time.Time
	LastActivity time.Time // Last time the session had activity
}

// SessionEndHook is called after a player's session has been removed.
type SessionEndHook func(Player)

// copySession returns a defensive copy of a session to prevent external modification.
func copySession(s *Session) *Session {
	connections := make([]ulid.ULID, len(s.Connections))
	copy(connections, s.Connections)

	return &Session{
		Player:       s.Player,
		Connections:  connections,
		ConnectedAt:  s.ConnectedAt,
		LastActivity: s.LastActivity,
	}
}

// SessionManager manages player sessions.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[ulid.ULID]*Session // keyed by player ID
	onEnd    []SessionEndHook
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[ulid.ULID]*Session),
	}
}

// OnSessionEnd registers a hook run whenever a session ends.
func (sm *SessionManager) OnSessionEnd(hook SessionEndHook) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.onEnd = append(sm.onEnd, hook)
}

// Connect attaches a connection to a player's session.
// Creates the session if it doesn't exist.
// Returns a copy of the session to prevent external modification.
func (sm *SessionManager) Connect(player Player, connID ulid.ULID) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	session, exists := sm.sessions[player.ID]
	if !exists {
		session = &Session{
			Player:      player,
			Connections: make([]ulid.ULID, 0, 1),
			ConnectedAt: now,
		}
		sm.sessions[player.ID] = session
	}

	session.Connections = append(session.Connections, connID)
	session.LastActivity = now

	return copySession(session)
}

// ConnectByName attaches a connection to the session of the online player
// called name (case-insensitive), or starts a session for a new player with
// that name. resumed reports whether an existing session was joined.
func (sm *SessionManager) ConnectByName(name string, connID ulid.ULID) (session *Session, resumed bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	existing := sm.findByNameLocked(name)
	if existing == nil {
		existing = &Session{
			Player:      Player{ID: NewULID(), Name: name},
			Connections: make([]ulid.ULID, 0, 1),
			ConnectedAt: now,
		}
		sm.sessions[existing.Player.ID] = existing
	} else {
		resumed = true
	}

	existing.Connections = append(existing.Connections, connID)
	existing.LastActivity = now
	return copySession(existing), resumed
}

// Disconnect removes a connection from a player's session.
// The session ends when its last connection goes away.
func (sm *SessionManager) Disconnect(playerID, connID ulid.ULID) {
	sm.mu.Lock()
	session, exists := sm.sessions[playerID]
	if !exists {
		sm.mu.Unlock()
		slog.Debug("disconnect called for non-existent session",
			"player_id", playerID.String(),
			"conn_id", connID.String(),
		)
		return
	}

	for i, id := range session.Connections {
		if id == connID {
			session.Connections = append(session.Connections[:i], session.Connections[i+1:]...)
			break
		}
	}

	if len(session.Connections) > 0 {
		sm.mu.Unlock()
		return
	}

	delete(sm.sessions, playerID)
	hooks := sm.hooksLocked()
	sm.mu.Unlock()

	runHooks(hooks, session.Player)
}

// GetSession returns a copy of a player's session, or nil if none exists.
func (sm *SessionManager) GetSession(playerID ulid.ULID) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[playerID]
	if !exists {
		return nil
	}

	return copySession(session)
}

// FindByName returns the online player with the given name (case-insensitive).
func (sm *SessionManager) FindByName(name string) (Player, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if session := sm.findByNameLocked(name); session != nil {
		return session.Player, true
	}
	return Player{}, false
}

func (sm *SessionManager) findByNameLocked(name string) *Session {
	for _, session := range sm.sessions {
		if strings.EqualFold(session.Player.Name, name) {
			return session
		}
	}
	return nil
}

// IsOnline reports whether the player currently has a session.
func (sm *SessionManager) IsOnline(player Player) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	_, exists := sm.sessions[player.ID]
	return exists
}

// EndSession completely removes a player's session from the manager.
// Returns an error if the session does not exist.
func (sm *SessionManager) EndSession(playerID ulid.ULID) error {
	sm.mu.Lock()
	session, exists := sm.sessions[playerID]
	if !exists {
		sm.mu.Unlock()
		return oops.Code("SESSION_NOT_FOUND").
			With("player_id", playerID.String()).
			Errorf("session not found for player %s", playerID.String())
	}

	delete(sm.sessions, playerID)
	hooks := sm.hooksLocked()
	sm.mu.Unlock()

	runHooks(hooks, session.Player)
	return nil
}

// UpdateActivity refreshes the last activity time for a player's session.
func (sm *SessionManager) UpdateActivity(playerID ulid.ULID) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[playerID]
	if !exists {
		return
	}
	session.LastActivity = time.Now()
}

// ListActiveSessions returns copies of all active sessions.
func (sm *SessionManager) ListActiveSessions() []*Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	result := make([]*Session, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		result = append(result, copySession(session))
	}
	return result
}

func (sm *SessionManager) hooksLocked() []SessionEndHook {
	hooks := make([]SessionEndHook, len(sm.onEnd))
	copy(hooks, sm.onEnd)
	return hooks
}

// runHooks is called without the lock held so hooks may call back into the manager.
func runHooks(hooks []SessionEndHook, player Player) {
	for _, hook := range hooks {
		hook(player)
	}
}
