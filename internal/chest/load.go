// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package chest

import (
	"context"
	"maps"
	"sync"

	"github.com/samber/oops"
)

// LoadListener contributes menus while a load event is running.
type LoadListener interface {
	// Source names where the listener's menus come from (e.g. "dir:menus", "plugin:shop").
	Source() string

	// OnLoad registers menus through the event. Returning an error discards
	// everything this listener registered during the event.
	OnLoad(ctx context.Context, event *LoadEvent) error
}

type listenerFunc struct {
	source string
	fn     func(ctx context.Context, event *LoadEvent) error
}

func (l listenerFunc) Source() string { return l.source }

func (l listenerFunc) OnLoad(ctx context.Context, event *LoadEvent) error {
	return l.fn(ctx, event)
}

// ListenerFunc adapts a function into a LoadListener.
func ListenerFunc(source string, fn func(ctx context.Context, event *LoadEvent) error) LoadListener {
	return listenerFunc{source: source, fn: fn}
}

// loadState accumulates the menus committed by every listener of one event.
type loadState struct {
	menus    map[string]*Menu
	failures map[string]error
}

// LoadEvent is handed to each listener during Directory.Reload. Menus
// registered through it become visible only after every listener has run.
type LoadEvent struct {
	source string
	state  *loadState
	staged map[string]*Menu
	closed bool
	mu     sync.Mutex
}

func newLoadEvent(source string, state *loadState) *LoadEvent {
	return &LoadEvent{
		source: source,
		state:  state,
		staged: make(map[string]*Menu),
	}
}

// Source returns the name of the listener the event was issued to.
func (e *LoadEvent) Source() string {
	return e.source
}

// Register validates menu and stages it for the directory. The menu is copied.
// Registering an identifier already taken by this or an earlier listener fails.
func (e *LoadEvent) Register(menu *Menu) error {
	return e.RegisterAll(e.source, []*Menu{menu})
}

// RegisterAll stages menus as one unit: if any of them is rejected, none is
// staged. Menus without a Source are attributed to source.
func (e *LoadEvent) RegisterAll(source string, menus []*Menu) error {
	for _, menu := range menus {
		if menu == nil {
			return oops.Code(CodeInvalidMenu).With("source", source).Errorf("menu is nil")
		}
		if err := menu.Validate(); err != nil {
			return oops.With("source", source).Wrap(err)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return oops.Code(CodeLoadClosed).
			With("source", source).
			Errorf("load event for %s has already finished", e.source)
	}

	batch := make(map[string]*Menu, len(menus))
	for _, menu := range menus {
		if existing, ok := e.state.menus[menu.ID]; ok {
			return errDuplicateMenu(menu.ID, source, existing.Source)
		}
		if existing, ok := e.staged[menu.ID]; ok {
			return errDuplicateMenu(menu.ID, source, existing.Source)
		}
		if _, ok := batch[menu.ID]; ok {
			return errDuplicateMenu(menu.ID, source, source)
		}
		c := menu.Clone()
		if c.Source == "" {
			c.Source = source
		}
		batch[c.ID] = c
	}
	maps.Copy(e.staged, batch)
	return nil
}

// Fail records that one part of the listener, named source, was skipped.
// The listener itself keeps going; the failure is reported by Reload.
func (e *LoadEvent) Fail(source string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.failures == nil {
		e.state.failures = make(map[string]error)
	}
	e.state.failures[source] = err
}

// commit moves staged menus into the shared state and closes the event.
func (e *LoadEvent) commit() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	for id, menu := range e.staged {
		e.state.menus[id] = menu
	}
	return len(e.staged)
}

// discard drops staged menus and closes the event.
func (e *LoadEvent) discard() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	e.staged = nil
}
