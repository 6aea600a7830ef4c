// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package chest

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/virtualchest/internal/core"
	"github.com/holomush/virtualchest/pkg/errutil"
)

var tracer = otel.Tracer("virtualchest/chest")

// Compile-time interface check.
var _ Service = (*Directory)(nil)

// Presence reports whether a player is connected.
type Presence interface {
	IsOnline(player core.Player) bool
}

// PermissionChecker decides whether a player holds a permission.
type PermissionChecker interface {
	Check(player core.Player, permission string) bool
}

// RequirementChecker evaluates a requirement expression for a player.
type RequirementChecker interface {
	Check(ctx context.Context, expr string, player core.Player, menu *Menu) (bool, error)
}

// Notifier publishes chest state changes to the host.
type Notifier interface {
	PublishChest(ctx context.Context, eventType core.EventType, player core.Player, menuID, reason string) error
	PublishReload(ctx context.Context, menuCount int, removed []string) error
}

// Close reasons attached to chest_close events.
const (
	ReasonRequested = "requested"
	ReasonReplaced  = "replaced"
	ReasonReloaded  = "reloaded"
)

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithPresence makes Open reject players that are not online.
func WithPresence(p Presence) DirectoryOption {
	return func(d *Directory) {
		d.presence = p
	}
}

// WithPermissions makes Open require each menu's permission.
func WithPermissions(p PermissionChecker) DirectoryOption {
	return func(d *Directory) {
		d.permissions = p
	}
}

// WithRequirements enables menu open-requirements and slot requirements.
func WithRequirements(r RequirementChecker) DirectoryOption {
	return func(d *Directory) {
		d.requirements = r
	}
}

// WithNotifier publishes open, close and reload events.
func WithNotifier(n Notifier) DirectoryOption {
	return func(d *Directory) {
		d.notifier = n
	}
}

// WithLogger overrides the logger (default slog.Default()).
func WithLogger(l *slog.Logger) DirectoryOption {
	return func(d *Directory) {
		d.logger = l
	}
}

// Directory is the Service implementation. It is safe for concurrent use.
type Directory struct {
	mu    sync.RWMutex
	menus map[string]*Menu
	ids   IDSet
	open  map[ulid.ULID]string // player ID -> menu ID

	// publishMu is taken before mu is released by every state change that
	// publishes events, so events go out in the order the changes happened.
	publishMu sync.Mutex

	listenersMu sync.Mutex
	listeners   []LoadListener
	reloadMu    sync.Mutex

	presence     Presence
	permissions  PermissionChecker
	requirements RequirementChecker
	notifier     Notifier
	logger       *slog.Logger
}

// NewDirectory creates an empty directory. Menus appear after the first Reload.
func NewDirectory(opts ...DirectoryOption) *Directory {
	d := &Directory{
		menus:  make(map[string]*Menu),
		ids:    newIDSet(nil),
		open:   make(map[ulid.ULID]string),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AddListener registers a listener for future load events.
func (d *Directory) AddListener(l LoadListener) {
	d.listenersMu.Lock()
	defer d.listenersMu.Unlock()
	d.listeners = append(d.listeners, l)
}

// IDs returns the identifiers registered by the last load event.
func (d *Directory) IDs() IDSet {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ids
}

// Lookup returns the identifier of the menu the player has open.
func (d *Directory) Lookup(player core.Player) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.open[player.ID]
	return id, ok
}

// Menu returns a copy of a registered menu.
func (d *Directory) Menu(id string) (*Menu, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	m, ok := d.menus[id]
	if !ok {
		return nil, false
	}
	return m.Clone(), true
}

// Open marks menu id as opened for player.
//
// An open is rejected when the id is unknown, the player is offline, lacks the
// menu permission, or fails the menu's open-requirement. Opening a menu while
// another one is open closes the other one first.
func (d *Directory) Open(ctx context.Context, id string, player core.Player) bool {
	result := d.OpenResult(ctx, id, player)
	return result == ResultAccepted || result == ResultAlreadyOpen
}

// OpenResult is Open reporting the Result* label instead of a bool.
func (d *Directory) OpenResult(ctx context.Context, id string, player core.Player) string {
	ctx, span := tracer.Start(ctx, "chest.open",
		trace.WithAttributes(
			attribute.String("chest.menu_id", id),
			attribute.String("player.id", player.ID.String()),
		),
	)
	defer span.End()

	result := d.open0(ctx, id, player)
	span.SetAttributes(attribute.String("chest.result", result))

	label := id
	if result == ResultUnknownMenu {
		label = unknownMenuLabel
	}
	recordOpen(label, result)
	return result
}

func (d *Directory) open0(ctx context.Context, id string, player core.Player) string {
	if player.IsZero() {
		return ResultInvalidPlayer
	}

	menu, ok := d.Menu(id)
	if !ok {
		return ResultUnknownMenu
	}
	if d.presence != nil && !d.presence.IsOnline(player) {
		return ResultOffline
	}
	if d.permissions != nil && !d.permissions.Check(player, menu.EffectivePermission()) {
		d.logger.DebugContext(ctx, "chest open denied",
			"menu_id", id,
			"player_id", player.ID.String(),
			"permission", menu.EffectivePermission())
		return ResultDenied
	}
	if menu.OpenRequirement != "" && d.requirements != nil {
		allowed, err := d.requirements.Check(ctx, menu.OpenRequirement, player, menu)
		if err != nil {
			errutil.LogError(d.logger, "open requirement failed",
				oops.With("menu_id", id).With("player_id", player.ID.String()).Wrap(err))
			return ResultRequirement
		}
		if !allowed {
			return ResultRequirement
		}
	}

	d.mu.Lock()
	// A reload may have removed the menu while the checks ran.
	if _, still := d.menus[id]; !still {
		d.mu.Unlock()
		return ResultUnknownMenu
	}
	// Session teardown calls Forget after the session is gone, so a player
	// seen online here cannot be forgotten before the association is stored.
	if d.presence != nil && !d.presence.IsOnline(player) {
		d.mu.Unlock()
		return ResultOffline
	}
	previous, hadPrevious := d.open[player.ID]
	if hadPrevious && previous == id {
		d.mu.Unlock()
		return ResultAlreadyOpen
	}
	d.open[player.ID] = id
	d.publishMu.Lock()
	d.mu.Unlock()
	defer d.publishMu.Unlock()

	if hadPrevious {
		recordClose(previous, ResultAccepted)
		d.notify(ctx, core.EventTypeChestClose, player, previous, ReasonReplaced)
	}
	d.notify(ctx, core.EventTypeChestOpen, player, id, "")

	d.logger.InfoContext(ctx, "chest opened",
		"menu_id", id,
		"player_id", player.ID.String(),
		"player", player.Name)
	return ResultAccepted
}

// Close marks menu id as closed for player. It returns false when id is not
// registered or is not the menu the player has open.
func (d *Directory) Close(ctx context.Context, id string, player core.Player) bool {
	return d.CloseResult(ctx, id, player) == ResultAccepted
}

// CloseResult is Close reporting the Result* label instead of a bool.
func (d *Directory) CloseResult(ctx context.Context, id string, player core.Player) string {
	ctx, span := tracer.Start(ctx, "chest.close",
		trace.WithAttributes(
			attribute.String("chest.menu_id", id),
			attribute.String("player.id", player.ID.String()),
		),
	)
	defer span.End()

	result := d.close0(ctx, id, player)
	span.SetAttributes(attribute.String("chest.result", result))

	label := id
	if result == ResultUnknownMenu {
		label = unknownMenuLabel
	}
	recordClose(label, result)
	return result
}

func (d *Directory) close0(ctx context.Context, id string, player core.Player) string {
	d.mu.Lock()
	if _, ok := d.menus[id]; !ok {
		d.mu.Unlock()
		return ResultUnknownMenu
	}
	current, ok := d.open[player.ID]
	if !ok || current != id {
		d.mu.Unlock()
		return ResultNotOpen
	}
	delete(d.open, player.ID)
	d.publishMu.Lock()
	d.mu.Unlock()
	defer d.publishMu.Unlock()

	d.notify(ctx, core.EventTypeChestClose, player, id, ReasonRequested)
	d.logger.InfoContext(ctx, "chest closed",
		"menu_id", id,
		"player_id", player.ID.String(),
		"player", player.Name)
	return ResultAccepted
}

// Forget drops the player's open menu without publishing an event.
// It is meant for session teardown.
func (d *Directory) Forget(player core.Player) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.open, player.ID)
}

// VisibleSlots returns the slots of menu id whose requirement the player meets.
// Slots whose requirement fails to evaluate are hidden.
func (d *Directory) VisibleSlots(ctx context.Context, id string, player core.Player) ([]Slot, error) {
	menu, ok := d.Menu(id)
	if !ok {
		return nil, ErrMenuNotFound(id)
	}

	visible := make([]Slot, 0, len(menu.Slots))
	for _, slot := range menu.Slots {
		if slot.Requirement == "" || d.requirements == nil {
			visible = append(visible, slot)
			continue
		}
		ok, err := d.requirements.Check(ctx, slot.Requirement, player, menu)
		if err != nil {
			d.logger.WarnContext(ctx, "slot requirement failed",
				"menu_id", id,
				"slot", slot.Index,
				"error", err)
			continue
		}
		if ok {
			visible = append(visible, slot)
		}
	}
	slices.SortFunc(visible, func(a, b Slot) int { return a.Index - b.Index })
	return visible, nil
}

// ReloadResult summarizes a load event.
type ReloadResult struct {
	Registered []string         // identifiers now available, sorted
	Removed    []string         // identifiers no longer available, sorted
	Closed     int              // players whose open menu was removed
	Failures   map[string]error // listener source -> error
	Duration   time.Duration
}

// Reload fires a load event. Every listener runs in registration order; menus
// registered by a failing listener are discarded while the others still apply.
// The registered set, and every player whose open menu disappeared, change
// together once all listeners have run. Reload returns an error only if ctx is
// done before the new set is installed, in which case nothing changes.
func (d *Directory) Reload(ctx context.Context) (ReloadResult, error) {
	d.reloadMu.Lock()
	defer d.reloadMu.Unlock()

	ctx, span := tracer.Start(ctx, "chest.reload")
	defer span.End()

	start := time.Now()

	d.listenersMu.Lock()
	listeners := slices.Clone(d.listeners)
	d.listenersMu.Unlock()

	state := &loadState{menus: make(map[string]*Menu)}
	result := ReloadResult{Failures: make(map[string]error)}

	for _, l := range listeners {
		if err := ctx.Err(); err != nil {
			return ReloadResult{}, oops.Code(CodeReloadFailed).With("source", l.Source()).Wrap(err)
		}

		event := newLoadEvent(l.Source(), state)
		if err := l.OnLoad(ctx, event); err != nil {
			event.discard()
			result.Failures[l.Source()] = err
			ListenerFailures.WithLabelValues(l.Source()).Inc()
			errutil.LogError(d.logger, "load listener failed", oops.With("source", l.Source()).Wrap(err))
			continue
		}
		n := event.commit()
		d.logger.DebugContext(ctx, "load listener finished", "source", l.Source(), "menus", n)
	}

	if err := ctx.Err(); err != nil {
		return ReloadResult{}, oops.Code(CodeReloadFailed).Wrap(err)
	}

	newIDs := slices.Collect(maps.Keys(state.menus))
	ids := newIDSet(newIDs)

	type dropped struct {
		player ulid.ULID
		menu   string
	}
	var closed []dropped

	d.mu.Lock()
	for id := range d.menus {
		if !ids.Contains(id) {
			result.Removed = append(result.Removed, id)
		}
	}
	for playerID, menuID := range d.open {
		if !ids.Contains(menuID) {
			closed = append(closed, dropped{player: playerID, menu: menuID})
			delete(d.open, playerID)
		}
	}
	d.menus = state.menus
	d.ids = ids
	d.publishMu.Lock()
	d.mu.Unlock()
	defer d.publishMu.Unlock()

	for source, err := range state.failures {
		result.Failures[source] = err
		ListenerFailures.WithLabelValues(source).Inc()
		errutil.LogError(d.logger, "load source skipped", oops.With("source", source).Wrap(err))
	}

	slices.Sort(result.Removed)
	result.Registered = ids.Slice()
	result.Closed = len(closed)
	result.Duration = time.Since(start)

	for _, c := range closed {
		recordClose(c.menu, ResultReloadedAway)
		d.notify(ctx, core.EventTypeChestClose, core.Player{ID: c.player}, c.menu, ReasonReloaded)
	}
	if d.notifier != nil {
		if err := d.notifier.PublishReload(ctx, ids.Len(), result.Removed); err != nil {
			errutil.LogError(d.logger, "failed to publish reload event", err)
		}
	}

	recordReload(ids.Len(), result.Duration)
	span.SetAttributes(
		attribute.Int("chest.registered", ids.Len()),
		attribute.Int("chest.removed", len(result.Removed)),
		attribute.Int("chest.failures", len(result.Failures)),
	)
	d.logger.InfoContext(ctx, "chest GUIs loaded",
		"registered", ids.Len(),
		"removed", len(result.Removed),
		"closed", result.Closed,
		"failed_sources", len(result.Failures),
		"duration", result.Duration)

	return result, nil
}

func (d *Directory) notify(ctx context.Context, eventType core.EventType, player core.Player, menuID, reason string) {
	if d.notifier == nil {
		return
	}
	if err := d.notifier.PublishChest(ctx, eventType, player, menuID, reason); err != nil {
		errutil.LogError(d.logger, "failed to publish chest event",
			oops.With("menu_id", menuID).With("player_id", player.ID.String()).Wrap(err))
	}
}
