// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/virtualchest/internal/access"
	"github.com/holomush/virtualchest/internal/chest"
	"github.com/holomush/virtualchest/internal/command"
	"github.com/holomush/virtualchest/internal/command/handlers"
	"github.com/holomush/virtualchest/internal/config"
	"github.com/holomush/virtualchest/internal/core"
	"github.com/holomush/virtualchest/internal/logging"
	"github.com/holomush/virtualchest/internal/menu"
	"github.com/holomush/virtualchest/internal/observability"
	"github.com/holomush/virtualchest/internal/store"
	"github.com/holomush/virtualchest/internal/telnet"
	"github.com/holomush/virtualchest/pkg/errutil"
)

const serviceName = "virtualchest"

// shutdownTimeout bounds how long the observability server may take to stop.
const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the chest server (telnet and observability)",
		Long: `Start the chest server. Menus are loaded from the menus directory,
from plugins and, when a database URL is configured, from PostgreSQL.
SIGHUP reloads every source; SIGINT and SIGTERM shut down.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)

			return runServe(ctx, cfg, serveOptions{logOutput: cmd.ErrOrStderr(), reload: hup})
		},
	}
}

// serveOptions carries what runServe takes from its environment.
type serveOptions struct {
	logOutput io.Writer
	// reload triggers a reload of every source on each receive.
	reload <-chan os.Signal
	// started is called with the telnet address once the server accepts
	// connections.
	started func(telnetAddr string)
}

// runServe runs the server until ctx is cancelled.
func runServe(ctx context.Context, cfg *config.Config, opts serveOptions) error {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	if opts.logOutput == nil {
		opts.logOutput = os.Stderr
	}
	logger := logging.Setup(serviceName, version, cfg.Log.Format, opts.logOutput, logging.WithLevel(level))
	slog.SetDefault(logger)

	logger.Info("starting virtualchest",
		"telnet_addr", cfg.Telnet.Addr,
		"metrics_addr", cfg.Metrics.Addr,
		"menus_dir", cfg.Menus.Dir,
		"plugins_dir", cfg.Plugins.Dir,
		"database", cfg.Database.URL != "",
	)

	enforcer, err := access.NewEnforcerFromConfig(cfg.Access.Defaults, cfg.Access.Grants)
	if err != nil {
		return err
	}
	evaluator, err := newEvaluator(cfg, logger)
	if err != nil {
		return err
	}

	sessions := core.NewSessionManager()
	broadcaster := core.NewBroadcaster()

	var eventStore core.EventStore = core.NewMemoryEventStore()
	var menuRepo *store.PostgresMenuRepository
	if cfg.Database.URL != "" {
		if cfg.Database.AutoMigrate {
			if err := migrateUp(cfg.Database.URL); err != nil {
				return err
			}
		}
		pool, err := store.Connect(ctx, cfg.Database.URL, store.ConnectOptions{})
		if err != nil {
			return err
		}
		defer pool.Close()
		eventStore = store.NewPostgresEventStore(pool)
		menuRepo = store.NewPostgresMenuRepository(pool)
		logger.Info("connected to database")
	}

	dir := chest.NewDirectory(
		chest.WithPresence(sessions),
		chest.WithPermissions(enforcer),
		chest.WithRequirements(evaluator),
		chest.WithNotifier(core.NewPublisher(eventStore, broadcaster)),
		chest.WithLogger(logger),
	)
	newFileSources(cfg, evaluator, logger).addTo(dir)
	if menuRepo != nil {
		dir.AddListener(menuRepo)
	}
	sessions.OnSessionEnd(dir.Forget)

	if _, err := dir.Reload(ctx); err != nil {
		return oops.Wrapf(err, "initial menu load")
	}
	logger.Info("menus loaded", "count", dir.IDs().Len())

	registry := command.NewRegistry()
	if err := handlers.RegisterAll(registry); err != nil {
		return err
	}
	dispatcher, err := command.NewDispatcher(registry, enforcer)
	if err != nil {
		return err
	}

	var ready atomic.Bool
	var metrics *observability.Metrics
	var obsErrs <-chan error
	if cfg.Metrics.Addr != "" {
		obs := observability.NewServer(cfg.Metrics.Addr, ready.Load,
			observability.WithRegistration(chest.RegisterMetrics),
			observability.WithRegistration(command.RegisterMetrics),
		)
		obsErrs, err = obs.Start()
		if err != nil {
			return err
		}
		metrics = obs.Metrics()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := obs.Stop(shutdownCtx); err != nil {
				errutil.LogError(logger, "observability server shutdown failed", err)
			}
		}()
	}

	srv := telnet.NewServer(cfg.Telnet.Addr, telnet.Deps{
		Dispatcher: dispatcher,
		Services: &command.Services{
			Chests:   dir,
			Session:  sessions,
			Access:   enforcer,
			Registry: registry,
		},
		Sessions:    sessions,
		Broadcaster: broadcaster,
		Metrics:     metrics,
	})

	var wg sync.WaitGroup
	defer wg.Wait()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	telnetErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		telnetErr <- srv.Run(runCtx)
	}()

	reload := func(ctx context.Context) error {
		result, err := dir.Reload(ctx)
		if err != nil {
			errutil.LogError(logger, "menu reload failed", err)
			return err
		}
		logger.Info("menus reloaded",
			"count", len(result.Registered),
			"removed", result.Removed,
			"closed", result.Closed)
		return nil
	}

	if cfg.Menus.Watch {
		watcher := menu.NewWatcher(cfg.Menus.Dir, reload,
			menu.WithDebounce(cfg.Menus.Debounce),
			menu.WithWatcherLogger(logger),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watcher.Run(runCtx); err != nil {
				errutil.LogError(logger, "menus watcher stopped", err)
			}
		}()
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	for srv.Addr() == "" {
		select {
		case <-ctx.Done():
			ticker.Stop()
			cancel()
			return <-telnetErr
		case err := <-telnetErr:
			ticker.Stop()
			return err
		case <-ticker.C:
		}
	}
	ticker.Stop()
	ready.Store(true)
	if opts.started != nil {
		opts.started(srv.Addr())
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			ready.Store(false)
			cancel()
			return <-telnetErr
		case err := <-telnetErr:
			cancel()
			return err
		case err, ok := <-obsErrs:
			if !ok {
				obsErrs = nil
				continue
			}
			cancel()
			<-telnetErr
			return err
		case sig := <-opts.reload:
			logger.Info("reload requested", "signal", sig.String())
			_ = reload(ctx) //nolint:errcheck // logged by reload
		}
	}
}
