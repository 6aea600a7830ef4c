// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/holomush/virtualchest/internal/chest"
	"github.com/holomush/virtualchest/pkg/errutil"
)

// DatabaseSource is the load listener source of database menus.
const DatabaseSource = "database"

// CodeMenuExists is returned when creating a menu whose id is taken.
const CodeMenuExists = "MENU_EXISTS"

// Compile-time interface check.
var _ chest.LoadListener = (*PostgresMenuRepository)(nil)

// MenuRepository stores chest GUI definitions.
type MenuRepository interface {
	List(ctx context.Context) ([]*chest.Menu, error)
	Get(ctx context.Context, id string) (*chest.Menu, error)
	// Save stores m. With create set, an existing id fails with MENU_EXISTS;
	// otherwise the stored definition is replaced.
	Save(ctx context.Context, m *chest.Menu, createdBy string, create bool) error
	Delete(ctx context.Context, id string) error
}

// PostgresMenuRepository implements MenuRepository using PostgreSQL. It is
// also a load listener contributing every stored menu.
type PostgresMenuRepository struct {
	pool   poolIface
	logger *slog.Logger
}

// NewPostgresMenuRepository creates a new PostgreSQL menu repository.
func NewPostgresMenuRepository(pool poolIface) *PostgresMenuRepository {
	return &PostgresMenuRepository{pool: pool, logger: slog.Default()}
}

// List returns every stored menu sorted by id. Rows whose definition no
// longer decodes or validates are logged and skipped.
func (r *PostgresMenuRepository) List(ctx context.Context) ([]*chest.Menu, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, definition FROM chest_menus ORDER BY id`)
	if err != nil {
		return nil, oops.With("operation", "list menus").Wrap(err)
	}
	defer rows.Close()

	var menus []*chest.Menu
	for rows.Next() {
		var id string
		var definition []byte
		if err := rows.Scan(&id, &definition); err != nil {
			return nil, oops.With("operation", "scan menu row").Wrap(err)
		}
		m, err := decodeMenu(id, definition)
		if err != nil {
			errutil.LogError(r.logger, "skipping stored menu", err)
			continue
		}
		menus = append(menus, m)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate menus").Wrap(err)
	}
	return menus, nil
}

// Get returns one stored menu.
func (r *PostgresMenuRepository) Get(ctx context.Context, id string) (*chest.Menu, error) {
	var definition []byte
	err := r.pool.QueryRow(ctx, `SELECT definition FROM chest_menus WHERE id = $1`, id).Scan(&definition)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, chest.ErrMenuNotFound(id)
	}
	if err != nil {
		return nil, oops.With("operation", "get menu").With("menu_id", id).Wrap(err)
	}
	return decodeMenu(id, definition)
}

// Save validates and stores m.
func (r *PostgresMenuRepository) Save(ctx context.Context, m *chest.Menu, createdBy string, create bool) error {
	if m == nil {
		return oops.Code(chest.CodeInvalidMenu).Errorf("menu is nil")
	}
	if err := m.Validate(); err != nil {
		return err
	}
	definition, err := json.Marshal(m)
	if err != nil {
		return oops.With("operation", "encode menu").With("menu_id", m.ID).Wrap(err)
	}

	var createdByArg any = createdBy
	if createdBy == "" {
		createdByArg = nil
	}

	if create {
		_, err = r.pool.Exec(ctx,
			`INSERT INTO chest_menus (id, definition, created_by) VALUES ($1, $2, $3)`,
			m.ID, definition, createdByArg)
	} else {
		_, err = r.pool.Exec(ctx,
			`INSERT INTO chest_menus (id, definition, created_by) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO UPDATE SET definition = $2, updated_at = now()`,
			m.ID, definition, createdByArg)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code(CodeMenuExists).With("menu_id", m.ID).Errorf("menu %q already exists", m.ID)
		}
		return oops.With("operation", "save menu").With("menu_id", m.ID).Wrap(err)
	}
	return nil
}

// Delete removes a stored menu.
func (r *PostgresMenuRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM chest_menus WHERE id = $1`, id)
	if err != nil {
		return oops.With("operation", "delete menu").With("menu_id", id).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return chest.ErrMenuNotFound(id)
	}
	return nil
}

// Source implements chest.LoadListener.
func (r *PostgresMenuRepository) Source() string {
	return DatabaseSource
}

// OnLoad implements chest.LoadListener. A query failure fails the listener;
// menus that clash with other sources are logged and skipped.
func (r *PostgresMenuRepository) OnLoad(ctx context.Context, event *chest.LoadEvent) error {
	menus, err := r.List(ctx)
	if err != nil {
		return err
	}
	for _, m := range menus {
		if err := event.Register(m); err != nil {
			errutil.LogError(r.logger, "skipping stored menu", err)
		}
	}
	return nil
}

func decodeMenu(id string, definition []byte) (*chest.Menu, error) {
	var m chest.Menu
	if err := json.Unmarshal(definition, &m); err != nil {
		return nil, oops.Code(chest.CodeInvalidMenu).With("menu_id", id).Wrapf(err, "decode stored menu")
	}
	if m.ID == "" {
		m.ID = id
	}
	if m.ID != id {
		return nil, oops.Code(chest.CodeInvalidMenu).
			With("menu_id", id).
			With("definition_id", m.ID).
			Errorf("stored menu %q has id %q in its definition", id, m.ID)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.Source = DatabaseSource
	return &m, nil
}
