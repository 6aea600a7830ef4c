// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package access decides which permissions a player holds.
//
// Pattern matching uses gobwas/glob with '.' as the segment separator:
//   - '*' matches a single segment (does not cross '.')
//   - '**' matches zero or more segments (crosses '.')
//
// Examples:
//   - "virtualchest.open.*" matches "virtualchest.open.shop" but NOT "shop.vip.open"
//   - "shop.**" matches both "shop.buy" AND "shop.vip.open"
//   - "**" matches any permission
package access

import (
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/holomush/virtualchest/internal/chest"
	"github.com/holomush/virtualchest/internal/core"
)

// CodeInvalidGrant is returned for empty subjects or malformed patterns.
const CodeInvalidGrant = "INVALID_GRANT"

// SelfToken in a pattern is replaced by the checking player's lowercased name.
const SelfToken = "$self"

// Compile-time interface check.
var _ chest.PermissionChecker = (*Enforcer)(nil)

type compiledGrant struct {
	pattern string
	glob    glob.Glob
	self    bool // pattern contains SelfToken and is compiled per check
}

// Enforcer checks player permissions. Grants are keyed by lowercased player
// name; default grants apply to every player.
//
// Enforcer is safe for concurrent use. The zero value denies everything.
type Enforcer struct {
	mu       sync.RWMutex
	grants   map[string][]compiledGrant
	defaults []compiledGrant
}

// NewEnforcer creates an enforcer with no grants.
func NewEnforcer() *Enforcer {
	return &Enforcer{grants: make(map[string][]compiledGrant)}
}

// NewEnforcerFromConfig builds an enforcer from a default grant list and a
// per-player grant map.
func NewEnforcerFromConfig(defaults []string, grants map[string][]string) (*Enforcer, error) {
	e := NewEnforcer()
	if err := e.SetDefaults(defaults); err != nil {
		return nil, err
	}
	for _, name := range slices.Sorted(maps.Keys(grants)) {
		if err := e.SetGrants(name, grants[name]); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func compileGrants(subject string, patterns []string) ([]compiledGrant, error) {
	compiled := make([]compiledGrant, len(patterns))
	for i, pattern := range patterns {
		if pattern == "" {
			return nil, oops.Code(CodeInvalidGrant).
				With("subject", subject).
				With("index", i).
				Errorf("grant %d: empty permission pattern", i)
		}
		cg := compiledGrant{pattern: pattern}
		if strings.Contains(pattern, SelfToken) {
			cg.self = true
		} else {
			g, err := glob.Compile(pattern, '.')
			if err != nil {
				return nil, oops.Code(CodeInvalidGrant).
					With("subject", subject).
					With("pattern", pattern).
					Wrapf(err, "grant %d (%q)", i, pattern)
			}
			cg.glob = g
		}
		compiled[i] = cg
	}
	return compiled, nil
}

// SetGrants replaces the grants of a player. The patterns are validated
// before anything changes.
func (e *Enforcer) SetGrants(player string, patterns []string) error {
	key := strings.ToLower(strings.TrimSpace(player))
	if key == "" {
		return oops.Code(CodeInvalidGrant).Errorf("player name cannot be empty")
	}
	compiled, err := compileGrants(key, patterns)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.grants == nil {
		e.grants = make(map[string][]compiledGrant)
	}
	e.grants[key] = compiled
	return nil
}

// SetDefaults replaces the grants every player holds.
func (e *Enforcer) SetDefaults(patterns []string) error {
	compiled, err := compileGrants("default", patterns)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.defaults = compiled
	return nil
}

// Check reports whether player holds permission. Empty permissions and
// unnamed players are denied.
func (e *Enforcer) Check(player core.Player, permission string) bool {
	if permission == "" {
		return false
	}
	name := strings.ToLower(player.Name)

	e.mu.RLock()
	defer e.mu.RUnlock()

	if matchAny(e.defaults, name, permission) {
		return true
	}
	if name == "" {
		return false
	}
	return matchAny(e.grants[name], name, permission)
}

func matchAny(grants []compiledGrant, name, permission string) bool {
	for _, g := range grants {
		if !g.self {
			if g.glob.Match(permission) {
				return true
			}
			continue
		}
		if name == "" {
			continue
		}
		resolved, err := glob.Compile(strings.ReplaceAll(g.pattern, SelfToken, name), '.')
		if err != nil {
			continue
		}
		if resolved.Match(permission) {
			return true
		}
	}
	return false
}
