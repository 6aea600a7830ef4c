// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/virtualchest/internal/core"
)

// Compile-time interface check.
var _ core.EventStore = (*PostgresEventStore)(nil)

// PostgresEventStore implements core.EventStore using PostgreSQL.
type PostgresEventStore struct {
	pool poolIface
}

// NewPostgresEventStore creates a PostgreSQL event store on an open pool.
func NewPostgresEventStore(pool poolIface) *PostgresEventStore {
	return &PostgresEventStore{pool: pool}
}

// Append persists an event.
func (s *PostgresEventStore) Append(ctx context.Context, event core.Event) error {
	var payload any
	if len(event.Payload) > 0 {
		payload = event.Payload
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chest_events (id, stream, type, actor_kind, actor_id, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID.String(),
		event.Stream,
		string(event.Type),
		int16(event.Actor.Kind),
		event.Actor.ID,
		payload,
		event.Timestamp,
	)
	if err != nil {
		return oops.With("operation", "append event").
			With("event_id", event.ID.String()).
			With("stream", event.Stream).
			Wrap(err)
	}
	return nil
}

// Replay returns up to limit events from a stream after afterID.
func (s *PostgresEventStore) Replay(ctx context.Context, stream string, afterID ulid.ULID, limit int) ([]core.Event, error) {
	if limit <= 0 {
		return nil, nil
	}

	var rows pgx.Rows
	var err error
	if afterID.IsZero() {
		rows, err = s.pool.Query(ctx,
			`SELECT id, stream, type, actor_kind, actor_id, payload, created_at
			 FROM chest_events WHERE stream = $1 ORDER BY id LIMIT $2`,
			stream, limit)
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT id, stream, type, actor_kind, actor_id, payload, created_at
			 FROM chest_events WHERE stream = $1 AND id > $2 ORDER BY id LIMIT $3`,
			stream, afterID.String(), limit)
	}
	if err != nil {
		return nil, oops.With("operation", "replay events").With("stream", stream).Wrap(err)
	}
	defer rows.Close()

	var events []core.Event
	for rows.Next() {
		var (
			e         core.Event
			idStr     string
			typeStr   string
			actorKind int16
		)
		if err := rows.Scan(&idStr, &e.Stream, &typeStr, &actorKind, &e.Actor.ID, &e.Payload, &e.Timestamp); err != nil {
			return nil, oops.With("operation", "scan event row").With("stream", stream).Wrap(err)
		}
		e.ID, err = ulid.Parse(idStr)
		if err != nil {
			return nil, oops.Code("CORRUPT_EVENT_ID").With("stream", stream).With("id", idStr).Wrap(err)
		}
		e.Type = core.EventType(typeStr)
		e.Actor.Kind = core.ActorKind(actorKind)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate events").With("stream", stream).Wrap(err)
	}
	return events, nil
}

// LastEventID returns the most recent event ID for a stream.
func (s *PostgresEventStore) LastEventID(ctx context.Context, stream string) (ulid.ULID, error) {
	var idStr string
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM chest_events WHERE stream = $1 ORDER BY id DESC LIMIT 1`,
		stream).Scan(&idStr)
	if errors.Is(err, pgx.ErrNoRows) {
		return ulid.ULID{}, core.ErrStreamEmpty
	}
	if err != nil {
		return ulid.ULID{}, oops.With("operation", "last event id").With("stream", stream).Wrap(err)
	}
	id, err := ulid.Parse(idStr)
	if err != nil {
		return ulid.ULID{}, oops.Code("CORRUPT_EVENT_ID").With("stream", stream).With("id", idStr).Wrap(err)
	}
	return id, nil
}
