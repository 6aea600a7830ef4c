// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/virtualchest/internal/chest"
	"github.com/holomush/virtualchest/internal/config"
	"github.com/holomush/virtualchest/internal/store"
	"github.com/holomush/virtualchest/pkg/errutil"
)

const testDatabaseURL = "postgres://chest@localhost:5432/chests"

// mockMenuStore points the menus commands at a pgxmock pool.
func mockMenuStore(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")

	previous := connectMenuRepo
	connectMenuRepo = func(_ context.Context, url string) (*store.PostgresMenuRepository, func(), error) {
		assert.Equal(t, testDatabaseURL, url)
		return store.NewPostgresMenuRepository(mock), func() {}, nil
	}
	t.Cleanup(func() {
		connectMenuRepo = previous
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		mock.Close()
	})
	return mock
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestMenusList(t *testing.T) {
	menusDir := t.TempDir()
	writeFile(t, filepath.Join(menusDir, "shop.yaml"), "title: General Store\nrows: 3\n")
	writeFile(t, filepath.Join(menusDir, "bank.yaml"), "title: Bank\nrows: 2\nslots:\n  - index: 0\n    item:\n      type: gold\n")

	pluginsDir := t.TempDir()
	writeFile(t, filepath.Join(pluginsDir, "armory", "plugin.yaml"), "name: armory\nversion: 1.0.0\n")
	writeFile(t, filepath.Join(pluginsDir, "armory", "menus", "weapons.yaml"), "title: Weapons\nrows: 1\n")

	output, err := execute(t, "--menus-dir", menusDir, "--plugins-dir", pluginsDir, "menus", "list")
	require.NoError(t, err)

	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "General Store")
	assert.Contains(t, output, "weapons")
	assert.Contains(t, output, "plugin:armory")
	assert.Regexp(t, `bank\s+\S+\s+2\s+1\s+Bank`, output)
}

func TestMenusList_FromConfigFile(t *testing.T) {
	menusDir := t.TempDir()
	writeFile(t, filepath.Join(menusDir, "vault.yml"), "title: Vault\nrows: 1\n")
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, cfgPath, "menus:\n  dir: "+menusDir+"\nplugins:\n  dir: \"\"\n")

	output, err := execute(t, "--config", cfgPath, "menus", "list")
	require.NoError(t, err)
	assert.Contains(t, output, "vault")
}

func TestMenusList_Empty(t *testing.T) {
	output, err := execute(t, "--menus-dir", t.TempDir(), "--plugins-dir", "", "menus", "list")
	require.NoError(t, err)
	assert.Contains(t, output, "No menus found.")
}

func TestMenusValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "bank.yaml")
	writeFile(t, good, "title: Bank\nrows: 2\nopen-requirement: player.name ~= \"guest\"\n")
	badRows := filepath.Join(dir, "huge.yaml")
	writeFile(t, badRows, "title: Huge\nrows: 9\n")
	badScript := filepath.Join(dir, "broken.yaml")
	writeFile(t, badScript, "title: Broken\nrows: 1\nopen-requirement: \"player.name ==\"\n")

	output, err := execute(t, "menus", "validate", good)
	require.NoError(t, err)
	assert.Contains(t, output, "ok    "+good+" (bank)")

	output, err = execute(t, "menus", "validate", good, badRows, badScript)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MENUS_INVALID")
	errutil.AssertErrorContext(t, err, "failed", 2)
	assert.Contains(t, output, "FAIL  "+badRows)
	assert.Contains(t, output, "FAIL  "+badScript)
}

func TestMenusValidate_RequiresFiles(t *testing.T) {
	_, err := execute(t, "menus", "validate")
	require.Error(t, err)
}

func TestMenusList_Plugins(t *testing.T) {
	pluginsDir := t.TempDir()
	writeFile(t, filepath.Join(pluginsDir, "shops", "plugin.yaml"), "name: shops\nversion: 1.0.0\n")
	writeFile(t, filepath.Join(pluginsDir, "shops", "menus", "general.yaml"), "title: General\nrows: 1\n")
	writeFile(t, filepath.Join(pluginsDir, "bank", "plugin.yaml"), "name: bank\nversion: 1.0.0\n")

	output, err := execute(t, "--menus-dir", t.TempDir(), "--plugins-dir", pluginsDir, "menus", "list")
	require.NoError(t, err)
	assert.Contains(t, output, "Plugins: bank, shops")
}

func TestMenusList_Database(t *testing.T) {
	mock := mockMenuStore(t)
	mock.ExpectQuery(`SELECT id, definition FROM chest_menus`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "definition"}).
			AddRow("vault", []byte(`{"title":"Stored Vault","rows":2}`)))

	menusDir := t.TempDir()
	writeFile(t, filepath.Join(menusDir, "shop.yaml"), "title: General Store\nrows: 3\n")

	output, err := execute(t, "--menus-dir", menusDir, "--plugins-dir", "",
		"--database-url", testDatabaseURL, "menus", "list", "--database")
	require.NoError(t, err)
	assert.Contains(t, output, "General Store")
	assert.Regexp(t, `vault\s+`+store.DatabaseSource+`\s+2\s+0\s+Stored Vault`, output)
}

func TestMenusList_DatabaseRequiresURL(t *testing.T) {
	_, err := execute(t, "--menus-dir", t.TempDir(), "--plugins-dir", "", "menus", "list", "--database")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, config.CodeInvalid)
}

func TestMenusImport(t *testing.T) {
	dir := t.TempDir()
	bank := filepath.Join(dir, "bank.yaml")
	writeFile(t, bank, "title: Bank\nrows: 2\n")
	shop := filepath.Join(dir, "shop.yaml")
	writeFile(t, shop, "title: Shop\nrows: 1\n")
	broken := filepath.Join(dir, "broken.yaml")
	writeFile(t, broken, "title: Broken\nrows: 1\nopen-requirement: \"player.name ==\"\n")

	mock := mockMenuStore(t)
	mock.ExpectExec(`INSERT INTO chest_menus`).
		WithArgs("bank", pgxmock.AnyArg(), importedBy).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO chest_menus`).
		WithArgs("shop", pgxmock.AnyArg(), importedBy).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	output, err := execute(t, "--database-url", testDatabaseURL, "menus", "import", bank, shop, broken)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MENUS_IMPORT_FAILED")
	errutil.AssertErrorContext(t, err, "failed", 2)

	assert.Contains(t, output, "saved "+bank+" (bank)")
	assert.Contains(t, output, "FAIL  "+shop)
	assert.Contains(t, output, "already exists")
	assert.Contains(t, output, "FAIL  "+broken)
}

func TestMenusImport_Force(t *testing.T) {
	shop := filepath.Join(t.TempDir(), "shop.yaml")
	writeFile(t, shop, "title: Shop\nrows: 1\n")

	mock := mockMenuStore(t)
	mock.ExpectExec(`ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("shop", pgxmock.AnyArg(), importedBy).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	output, err := execute(t, "--database-url", testDatabaseURL, "menus", "import", "--force", shop)
	require.NoError(t, err)
	assert.Contains(t, output, "saved "+shop+" (shop)")
}

func TestMenusShow(t *testing.T) {
	mock := mockMenuStore(t)
	mock.ExpectQuery(`SELECT definition FROM chest_menus WHERE id`).
		WithArgs("vault").
		WillReturnRows(pgxmock.NewRows([]string{"definition"}).
			AddRow([]byte(`{"title":"Vault","rows":2,"slots":[{"index":4,"item":{"type":"gold"}}]}`)))

	output, err := execute(t, "--database-url", testDatabaseURL, "menus", "show", "vault")
	require.NoError(t, err)
	assert.Contains(t, output, "id: vault")
	assert.Contains(t, output, "title: Vault")
	assert.Contains(t, output, "type: gold")
}

func TestMenusDelete(t *testing.T) {
	mock := mockMenuStore(t)
	mock.ExpectExec(`DELETE FROM chest_menus`).WithArgs("vault").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM chest_menus`).WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	output, err := execute(t, "--database-url", testDatabaseURL, "menus", "delete", "vault")
	require.NoError(t, err)
	assert.Contains(t, output, "Deleted menu vault.")

	_, err = execute(t, "--database-url", testDatabaseURL, "menus", "delete", "missing")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, chest.CodeMenuNotFound)
}
