// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/holomush/virtualchest/internal/chest"
	"github.com/holomush/virtualchest/internal/config"
	"github.com/holomush/virtualchest/internal/menu"
	"github.com/holomush/virtualchest/internal/plugin"
	"github.com/holomush/virtualchest/internal/script"
	"github.com/holomush/virtualchest/internal/store"
)

// fileSources holds the file-backed load listeners.
type fileSources struct {
	menus   *menu.DirSource
	plugins *plugin.Manager // nil when plugins are disabled
}

// newFileSources builds the listeners for the menus directory and, unless
// disabled, the plugins directory. Plugins are discovered on every load event.
func newFileSources(cfg *config.Config, evaluator *script.Evaluator, logger *slog.Logger) fileSources {
	sources := fileSources{
		menus: menu.NewDirSource(cfg.Menus.Dir,
			menu.WithValidator(evaluator),
			menu.WithSourceLogger(logger),
		),
	}
	if cfg.Plugins.Dir != "" {
		sources.plugins = plugin.NewManager(cfg.Plugins.Dir,
			plugin.WithHostVersion(version),
			plugin.WithMenuValidator(evaluator),
			plugin.WithLogger(logger),
		)
	}
	return sources
}

// addTo registers the listeners on dir in registration order.
func (s fileSources) addTo(dir *chest.Directory) {
	dir.AddListener(s.menus)
	if s.plugins != nil {
		dir.AddListener(s.plugins)
	}
}

func newEvaluator(cfg *config.Config, logger *slog.Logger) (*script.Evaluator, error) {
	return script.NewEvaluator(
		script.WithTimeout(cfg.Script.Timeout),
		script.WithCacheSize(cfg.Script.CacheSize),
		script.WithLogger(logger),
	)
}

// connectMenuRepo opens the menu store. Tests replace it with a mock pool.
var connectMenuRepo = func(ctx context.Context, url string) (*store.PostgresMenuRepository, func(), error) {
	pool, err := store.Connect(ctx, url, store.ConnectOptions{})
	if err != nil {
		return nil, nil, err
	}
	return store.NewPostgresMenuRepository(pool), pool.Close, nil
}
