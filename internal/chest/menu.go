// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package chest

import (
	"regexp"
	"slices"
	"strings"
)

const (
	// SlotsPerRow is the width of a chest inventory.
	SlotsPerRow = 9
	// MaxRows is the tallest chest a client can show.
	MaxRows = 6
	// MaxStackSize is the largest item count a slot may display.
	MaxStackSize = 64
	// MaxIDLength is the maximum allowed length for menu identifiers.
	MaxIDLength = 64

	// PermissionPrefix prefixes the default permission of every menu.
	PermissionPrefix = "virtualchest.open."
)

// idPattern validates menu identifiers: lowercase letters and digits,
// with hyphens or underscores inside.
var idPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9_-]*[a-z0-9])?$`)

// Menu is a registered chest GUI definition.
type Menu struct {
	ID              string `yaml:"id" json:"id" jsonschema:"required,pattern=^[a-z0-9]([a-z0-9_-]*[a-z0-9])?$,maxLength=64"`
	Title           string `yaml:"title" json:"title" jsonschema:"required"`
	Rows            int    `yaml:"rows" json:"rows" jsonschema:"required,minimum=1,maximum=6"`
	Permission      string `yaml:"permission,omitempty" json:"permission,omitempty"`
	OpenRequirement string `yaml:"open-requirement,omitempty" json:"open-requirement,omitempty"`
	Slots           []Slot `yaml:"slots,omitempty" json:"slots,omitempty"`

	// Source names the load listener that registered the menu.
	Source string `yaml:"-" json:"-"`
}

// Slot is one cell of the chest inventory.
type Slot struct {
	Index       int      `yaml:"index" json:"index" jsonschema:"minimum=0,maximum=53"`
	Item        Item     `yaml:"item" json:"item" jsonschema:"required"`
	Requirement string   `yaml:"requirement,omitempty" json:"requirement,omitempty"`
	Actions     []Action `yaml:"actions,omitempty" json:"actions,omitempty"`
}

// Item describes what a slot displays.
type Item struct {
	Type  string   `yaml:"type" json:"type" jsonschema:"required"`
	Name  string   `yaml:"name,omitempty" json:"name,omitempty"`
	Lore  []string `yaml:"lore,omitempty" json:"lore,omitempty"`
	Count int      `yaml:"count,omitempty" json:"count,omitempty" jsonschema:"minimum=0,maximum=64"`
}

// Action is a command run when a player clicks a slot.
type Action struct {
	Command  string `yaml:"command" json:"command" jsonschema:"required"`
	KeepOpen bool   `yaml:"keep-open,omitempty" json:"keep-open,omitempty"`
}

// ValidateID checks a menu identifier.
func ValidateID(id string) error {
	if id == "" {
		return errInvalidMenu(id, "menu id is required")
	}
	if len(id) > MaxIDLength {
		return errInvalidMenu(id, "menu id must be %d characters or less, got %d", MaxIDLength, len(id))
	}
	if !idPattern.MatchString(id) {
		return errInvalidMenu(id, "menu id %q must use a-z, 0-9, hyphens or underscores and start and end with a letter or digit", id)
	}
	return nil
}

// Validate checks menu constraints.
func (m *Menu) Validate() error {
	if err := ValidateID(m.ID); err != nil {
		return err
	}
	if strings.TrimSpace(m.Title) == "" {
		return errInvalidMenu(m.ID, "title is required")
	}
	if m.Rows < 1 || m.Rows > MaxRows {
		return errInvalidMenu(m.ID, "rows must be between 1 and %d, got %d", MaxRows, m.Rows)
	}

	capacity := m.Capacity()
	seen := make(map[int]bool, len(m.Slots))
	for i, slot := range m.Slots {
		if slot.Index < 0 || slot.Index >= capacity {
			return errInvalidMenu(m.ID, "slot %d: index %d outside 0..%d", i, slot.Index, capacity-1)
		}
		if seen[slot.Index] {
			return errInvalidMenu(m.ID, "slot %d: index %d is defined twice", i, slot.Index)
		}
		seen[slot.Index] = true

		if strings.TrimSpace(slot.Item.Type) == "" {
			return errInvalidMenu(m.ID, "slot %d: item.type is required", slot.Index)
		}
		if slot.Item.Count < 0 || slot.Item.Count > MaxStackSize {
			return errInvalidMenu(m.ID, "slot %d: item.count must be between 0 and %d", slot.Index, MaxStackSize)
		}
		for j, action := range slot.Actions {
			if strings.TrimSpace(action.Command) == "" {
				return errInvalidMenu(m.ID, "slot %d: action %d: command is required", slot.Index, j)
			}
		}
	}
	return nil
}

// Capacity returns the number of slots the menu holds.
func (m *Menu) Capacity() int {
	return m.Rows * SlotsPerRow
}

// EffectivePermission returns the permission a player needs to open the menu.
func (m *Menu) EffectivePermission() string {
	if m.Permission != "" {
		return m.Permission
	}
	return PermissionPrefix + m.ID
}

// Slot returns the slot at index, if defined.
func (m *Menu) Slot(index int) (Slot, bool) {
	for _, s := range m.Slots {
		if s.Index == index {
			return s, true
		}
	}
	return Slot{}, false
}

// Clone returns a deep copy of the menu.
func (m *Menu) Clone() *Menu {
	c := *m
	if m.Slots == nil {
		return &c
	}
	c.Slots = make([]Slot, len(m.Slots))
	for i, s := range m.Slots {
		s.Item.Lore = slices.Clone(s.Item.Lore)
		s.Actions = slices.Clone(s.Actions)
		c.Slots[i] = s
	}
	return &c
}
