// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugin

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"

	"github.com/holomush/virtualchest/internal/chest"
	"github.com/holomush/virtualchest/internal/menu"
)

// ListenerSource is the load listener source of the plugin manager.
const ListenerSource = "plugins"

// Compile-time interface check.
var _ chest.LoadListener = (*Manager)(nil)

// Manager discovers plugins and registers their menus on every load event.
type Manager struct {
	pluginsDir  string
	hostVersion *semver.Version
	validator   menu.MenuValidator
	logger      *slog.Logger

	loaded map[string]*DiscoveredPlugin
	mu     sync.RWMutex
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithHostVersion sets the version checked against manifest constraints.
// An unparseable version disables the check.
func WithHostVersion(version string) ManagerOption {
	return func(m *Manager) {
		v, err := semver.NewVersion(version)
		if err != nil {
			m.hostVersion = nil
			return
		}
		m.hostVersion = v
	}
}

// WithMenuValidator adds a validation step to every plugin menu.
func WithMenuValidator(v menu.MenuValidator) ManagerOption {
	return func(m *Manager) {
		m.validator = v
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// NewManager creates a plugin manager.
func NewManager(pluginsDir string, opts ...ManagerOption) *Manager {
	m := &Manager{
		pluginsDir: pluginsDir,
		loaded:     make(map[string]*DiscoveredPlugin),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DiscoveredPlugin contains a manifest and its directory.
type DiscoveredPlugin struct {
	Manifest *Manifest
	Dir      string
}

// MenusDir returns the absolute menus directory of the plugin.
func (dp *DiscoveredPlugin) MenusDir() string {
	return filepath.Join(dp.Dir, dp.Manifest.MenusDir())
}

// Discover finds all valid plugins in the plugins directory, sorted by name.
// Invalid plugins are logged and skipped.
func (m *Manager) Discover(ctx context.Context) ([]*DiscoveredPlugin, error) {
	entries, err := os.ReadDir(m.pluginsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, oops.With("dir", m.pluginsDir).Wrapf(err, "failed to read plugins directory")
	}

	var plugins []*DiscoveredPlugin
	seen := make(map[string]string)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		pluginDir := filepath.Join(m.pluginsDir, entry.Name())
		manifestPath := filepath.Join(pluginDir, ManifestFile)

		data, err := os.ReadFile(manifestPath) //nolint:gosec // manifestPath is constructed from ReadDir entries
		if err != nil {
			m.logger.WarnContext(ctx, "skipping plugin without manifest",
				"dir", entry.Name(),
				"error", err)
			continue
		}

		manifest, err := ParseManifest(data)
		if err != nil {
			m.logger.WarnContext(ctx, "skipping plugin with invalid manifest",
				"dir", entry.Name(),
				"error", err)
			continue
		}
		if !manifest.Supports(m.hostVersion) {
			m.logger.WarnContext(ctx, "skipping plugin that does not support this version",
				"plugin", manifest.Name,
				"requires", manifest.Requires,
				"host_version", m.hostVersion.String())
			continue
		}
		if other, dup := seen[manifest.Name]; dup {
			m.logger.WarnContext(ctx, "skipping plugin with duplicate name",
				"plugin", manifest.Name,
				"dir", entry.Name(),
				"first_dir", other)
			continue
		}
		seen[manifest.Name] = entry.Name()

		plugins = append(plugins, &DiscoveredPlugin{
			Manifest: manifest,
			Dir:      pluginDir,
		})
	}

	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Manifest.Name < plugins[j].Manifest.Name
	})
	return plugins, nil
}

// Source implements chest.LoadListener.
func (m *Manager) Source() string {
	return ListenerSource
}

// OnLoad implements chest.LoadListener. Plugins are discovered again on every
// load event, so added, changed and removed plugins take effect on reload.
// Each plugin's menus register as a unit; a plugin that fails is reported on
// the event and the others still load.
func (m *Manager) OnLoad(ctx context.Context, event *chest.LoadEvent) error {
	discovered, err := m.Discover(ctx)
	if err != nil {
		return err
	}

	loaded := make(map[string]*DiscoveredPlugin, len(discovered))
	for _, dp := range discovered {
		if err := m.apply(ctx, dp, event); err != nil {
			event.Fail(dp.Manifest.Source(), err)
			continue
		}
		loaded[dp.Manifest.Name] = dp
		m.logger.DebugContext(ctx, "loaded plugin",
			"plugin", dp.Manifest.Name,
			"version", dp.Manifest.Version,
			"menus", dp.MenusDir())
	}

	m.mu.Lock()
	m.loaded = loaded
	m.mu.Unlock()
	return nil
}

// ListPlugins returns the names of the plugins applied by the last load event.
func (m *Manager) ListPlugins() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.loaded))
	for name := range m.loaded {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) apply(ctx context.Context, dp *DiscoveredPlugin, event *chest.LoadEvent) error {
	opts := []menu.DirSourceOption{
		menu.WithSourceName(dp.Manifest.Source()),
		menu.WithSourceLogger(m.logger.With("plugin", dp.Manifest.Name)),
	}
	if m.validator != nil {
		opts = append(opts, menu.WithValidator(m.validator))
	}

	menus, err := menu.NewDirSource(dp.MenusDir(), opts...).Read(ctx)
	if err != nil {
		return oops.With("plugin", dp.Manifest.Name).Wrap(err)
	}
	if err := event.RegisterAll(dp.Manifest.Source(), menus); err != nil {
		return oops.With("plugin", dp.Manifest.Name).Wrap(err)
	}
	return nil
}
