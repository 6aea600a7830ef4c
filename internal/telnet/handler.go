// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package telnet

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"regexp"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/holomush/virtualchest/internal/command"
	"github.com/holomush/virtualchest/internal/core"
)

// namePattern limits player names to one word.
var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{1,31}$`)

// ConnectionHandler handles a single telnet connection.
type ConnectionHandler struct {
	conn     net.Conn
	reader   *bufio.Reader
	deps     Deps
	connID   ulid.ULID
	player   core.Player
	authed   bool
	quitting bool
	playerCh chan core.Event
	systemCh chan core.Event
}

// NewConnectionHandler creates a new handler.
func NewConnectionHandler(conn net.Conn, deps Deps) *ConnectionHandler {
	return &ConnectionHandler{
		conn:   conn,
		reader: bufio.NewReader(conn),
		deps:   deps,
		connID: core.NewULID(),
	}
}

// Handle processes the connection until it closes, the player quits, or ctx
// is cancelled.
func (h *ConnectionHandler) Handle(ctx context.Context) {
	done := make(chan struct{})
	defer func() {
		close(done)
		h.unsubscribe()
		if h.authed && !h.quitting {
			h.deps.Sessions.Disconnect(h.player.ID, h.connID)
			h.updateSessionGauge()
		}
		if err := h.conn.Close(); err != nil {
			slog.Debug("error closing connection", "conn_id", h.connID.String(), "error", err)
		}
	}()

	h.send("Welcome to VirtualChest!")
	h.send("Use: connect <name>")

	lineCh := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		for {
			line, err := h.reader.ReadString('\n')
			if err != nil {
				errCh <- err
				return
			}
			select {
			case lineCh <- strings.TrimSpace(line):
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.send("Server shutting down.")
			return

		case err := <-errCh:
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				slog.Debug("connection read error", "conn_id", h.connID.String(), "error", err)
			}
			return

		case line := <-lineCh:
			h.processLine(ctx, line)
			if h.quitting {
				return
			}

		case event := <-h.playerCh:
			h.sendEvent(event)

		case event := <-h.systemCh:
			h.sendEvent(event)
		}
	}
}

func (h *ConnectionHandler) processLine(ctx context.Context, line string) {
	if line == "" {
		return
	}
	parsed, err := command.Parse(line)
	if err != nil {
		return
	}

	if !h.authed {
		switch strings.ToLower(parsed.Name) {
		case "connect":
			h.handleConnect(parsed.Args)
		case "quit":
			h.send("Goodbye!")
			h.quitting = true
		default:
			h.send("You must connect first. Use: connect <name>")
		}
		return
	}

	if strings.EqualFold(parsed.Name, "connect") {
		h.send("Already connected.")
		return
	}

	h.deps.Sessions.UpdateActivity(h.player.ID)
	exec := &command.CommandExecution{
		Player:   h.player,
		ConnID:   h.connID,
		Output:   h.conn,
		Services: h.deps.Services,
	}
	if err := h.deps.Dispatcher.Dispatch(ctx, line, exec); err != nil {
		if msg := command.PlayerMessage(err); msg != "" {
			h.send(msg)
		}
	}

	// quit ends the session from inside the command.
	if h.deps.Sessions.GetSession(h.player.ID) == nil {
		h.quitting = true
		h.updateSessionGauge()
	}
}

func (h *ConnectionHandler) handleConnect(arg string) {
	name := command.FirstArg(arg)
	if !namePattern.MatchString(name) {
		h.send("Usage: connect <name> (2-32 letters, digits, '_' or '-')")
		return
	}

	session, online := h.deps.Sessions.ConnectByName(name, h.connID)
	player := session.Player
	h.player = player
	h.authed = true
	h.updateSessionGauge()

	if h.deps.Broadcaster != nil {
		h.playerCh = h.deps.Broadcaster.Subscribe(core.PlayerStream(player.ID))
		h.systemCh = h.deps.Broadcaster.Subscribe(core.SystemStream)
	}

	slog.Info("player connected",
		"player_id", player.ID.String(),
		"player", player.Name,
		"conn_id", h.connID.String(),
		"resumed", online)

	if online {
		h.send(fmt.Sprintf("Welcome back, %s!", player.Name))
		if id, ok := h.deps.Services.Chests.Lookup(player); ok {
			h.send(fmt.Sprintf("You have '%s' open.", id))
		}
		return
	}
	h.send(fmt.Sprintf("Hello, %s! Type 'help' for commands.", player.Name))
}

func (h *ConnectionHandler) unsubscribe() {
	if h.deps.Broadcaster == nil {
		return
	}
	if h.playerCh != nil {
		h.deps.Broadcaster.Unsubscribe(core.PlayerStream(h.player.ID), h.playerCh)
	}
	if h.systemCh != nil {
		h.deps.Broadcaster.Unsubscribe(core.SystemStream, h.systemCh)
	}
}

func (h *ConnectionHandler) updateSessionGauge() {
	if h.deps.Metrics != nil {
		h.deps.Metrics.ActiveSessions.Set(float64(len(h.deps.Sessions.ListActiveSessions())))
	}
}

func (h *ConnectionHandler) send(msg string) {
	if _, err := fmt.Fprintln(h.conn, msg); err != nil {
		slog.Debug("failed to send message to client",
			"conn_id", h.connID.String(),
			"error", err,
		)
	}
}

func (h *ConnectionHandler) sendEvent(e core.Event) {
	switch e.Type {
	case core.EventTypeChestOpen, core.EventTypeChestClose:
		var p core.ChestPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			slog.Error("failed to unmarshal chest event",
				"event_id", e.ID.String(),
				"stream", e.Stream,
				"error", err,
			)
			return
		}
		h.send(formatChestEvent(e.Type, p))
	case core.EventTypeChestReload:
		var p core.ReloadPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			slog.Error("failed to unmarshal reload event",
				"event_id", e.ID.String(),
				"error", err,
			)
			return
		}
		h.send(fmt.Sprintf("[chest] Chests reloaded: %d available.", p.MenuCount))
	default:
		slog.Warn("unknown event type in sendEvent",
			"event_id", e.ID.String(),
			"type", e.Type,
		)
	}
}

func formatChestEvent(t core.EventType, p core.ChestPayload) string {
	if t == core.EventTypeChestOpen {
		return fmt.Sprintf("[chest] '%s' opened.", p.MenuID)
	}
	switch p.Reason {
	case "replaced":
		return fmt.Sprintf("[chest] '%s' closed: another chest was opened.", p.MenuID)
	case "reloaded":
		return fmt.Sprintf("[chest] '%s' closed: it was removed.", p.MenuID)
	default:
		return fmt.Sprintf("[chest] '%s' closed.", p.MenuID)
	}
}
