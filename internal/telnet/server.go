// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package telnet provides the telnet front-end.
package telnet

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/virtualchest/internal/command"
	"github.com/holomush/virtualchest/internal/core"
	"github.com/holomush/virtualchest/internal/observability"
)

// Deps are the services a connection uses.
type Deps struct {
	Dispatcher  *command.Dispatcher
	Services    *command.Services
	Sessions    *core.SessionManager
	Broadcaster *core.Broadcaster      // optional; without it events are not echoed
	Metrics     *observability.Metrics // optional
}

// Server is a telnet server.
type Server struct {
	addr     string
	deps     Deps
	listener net.Listener
	mu       sync.RWMutex
	wg       sync.WaitGroup
}

// NewServer creates a new telnet server.
func NewServer(addr string, deps Deps) *Server {
	return &Server{addr: addr, deps: deps}
}

// Addr returns the server's listen address, or "" before Run.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run listens and serves until ctx is cancelled. It returns after every
// connection handler has finished.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return oops.Code("TELNET_LISTEN_FAILED").With("addr", s.addr).Wrap(err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	slog.Info("telnet server started", "addr", listener.Addr().String())

	go func() {
		<-ctx.Done()
		if err := listener.Close(); err != nil {
			slog.Debug("error closing listener", "error", err)
		}
	}()

	defer s.wg.Wait()
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				slog.Info("telnet server stopped")
				return nil
			}
			slog.Error("accept failed", "error", err)
			continue
		}
		if s.deps.Metrics != nil {
			s.deps.Metrics.ConnectionsTotal.WithLabelValues("telnet").Inc()
		}
		handler := NewConnectionHandler(conn, s.deps)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			handler.Handle(ctx)
		}()
	}
}
