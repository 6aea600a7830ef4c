// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/virtualchest/internal/chest"
)

var tracer = otel.Tracer("virtualchest/command")

// Dispatcher handles command parsing, permission checks, and execution.
type Dispatcher struct {
	registry *Registry
	access   chest.PermissionChecker
}

// NewDispatcher creates a command dispatcher. registry and access are required.
func NewDispatcher(registry *Registry, access chest.PermissionChecker) (*Dispatcher, error) {
	if registry == nil {
		return nil, ErrNilRegistry
	}
	if access == nil {
		return nil, ErrNilAccess
	}
	return &Dispatcher{registry: registry, access: access}, nil
}

// Dispatch parses and executes a command.
func (d *Dispatcher) Dispatch(ctx context.Context, input string, exec *CommandExecution) (err error) {
	if exec.Player.IsZero() {
		return ErrNoPlayer()
	}
	if exec.Services == nil {
		return ErrNilServices()
	}

	parsed, err := Parse(input)
	if err != nil {
		return err
	}

	metrics := newMetricsRecorder()
	defer metrics.record()

	ctx, span := tracer.Start(ctx, "command.execute",
		trace.WithAttributes(
			attribute.String("command.name", parsed.Name),
			attribute.String("player.id", exec.Player.ID.String()),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	entry, ok := d.registry.Get(parsed.Name)
	if !ok {
		metrics.commandName = unknownCommandLabel
		metrics.status = StatusNotFound
		err = ErrUnknownCommand(parsed.Name)
		return err
	}
	metrics.commandName = entry.Name
	span.SetAttributes(attribute.String("command.source", entry.Source))

	for _, perm := range entry.GetPermissions() {
		if !d.access.Check(exec.Player, perm) {
			metrics.status = StatusPermissionDenied
			err = ErrPermissionDenied(entry.Name, perm)
			return err
		}
	}

	exec.Args = parsed.Args
	exec.InvokedAs = parsed.Name
	err = entry.Handler(ctx, exec)
	if err != nil {
		metrics.status = StatusError
		slog.WarnContext(ctx, "command execution failed",
			"command", entry.Name,
			"player_id", exec.Player.ID.String(),
			"error", err,
		)
	}
	return err
}
