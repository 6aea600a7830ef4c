// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/virtualchest/pkg/errutil"
)

// isolate points XDG paths at a temp dir so a developer's config is never read.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	return dir
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, ":4201", cfg.Telnet.Addr)
	assert.Equal(t, "127.0.0.1:9101", cfg.Metrics.Addr)
	assert.Equal(t, filepath.Join(dir, "data", "virtualchest", "menus"), cfg.Menus.Dir)
	assert.Equal(t, filepath.Join(dir, "data", "virtualchest", "plugins"), cfg.Plugins.Dir)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 100*time.Millisecond, cfg.Script.Timeout)
	assert.Equal(t, 256, cfg.Script.CacheSize)
	assert.Equal(t, []string{"virtualchest.open.*"}, cfg.Access.Defaults)
	assert.Empty(t, cfg.Database.URL)
	assert.False(t, cfg.Menus.Watch)
}

func TestLoad_File(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
telnet:
  addr: ":5000"
menus:
  dir: /srv/menus
  watch: true
  debounce: 2s
log:
  format: text
script:
  timeout: 250ms
access:
  defaults: []
  grants:
    alice: ["virtualchest.**"]
`)

	cfg, err := Load(LoadOptions{File: path})
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Telnet.Addr)
	assert.Equal(t, "/srv/menus", cfg.Menus.Dir)
	assert.True(t, cfg.Menus.Watch)
	assert.Equal(t, 2*time.Second, cfg.Menus.Debounce)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 250*time.Millisecond, cfg.Script.Timeout)
	assert.Empty(t, cfg.Access.Defaults)
	assert.Equal(t, map[string][]string{"alice": {"virtualchest.**"}}, cfg.Access.Grants)
	assert.Equal(t, "127.0.0.1:9101", cfg.Metrics.Addr, "unset keys keep defaults")
}

func TestLoad_XDGFileIsOptional(t *testing.T) {
	dir := isolate(t)

	_, err := Load(LoadOptions{})
	require.NoError(t, err, "missing default file is not an error")

	cfgDir := filepath.Join(dir, "config", "virtualchest")
	require.NoError(t, os.MkdirAll(cfgDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte("telnet:\n  addr: \":6000\"\n"), 0o600))

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, ":6000", cfg.Telnet.Addr)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	isolate(t)
	_, err := Load(LoadOptions{File: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, CodeInvalid)
}

func TestLoad_MalformedFile(t *testing.T) {
	isolate(t)
	_, err := Load(LoadOptions{File: writeConfig(t, "telnet: [unclosed")})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, CodeInvalid)
}

func TestLoad_Env(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "telnet:\n  addr: \":5000\"\n")
	t.Setenv("VIRTUALCHEST_TELNET__ADDR", ":7000")
	t.Setenv("VIRTUALCHEST_DATABASE__URL", "postgres://localhost/chests")
	t.Setenv("VIRTUALCHEST_SCRIPT__TIMEOUT", "1s")
	t.Setenv("VIRTUALCHEST_MENUS__WATCH", "true")
	t.Setenv("VIRTUALCHEST_ACCESS__DEFAULTS", "shop.open, bank.open")
	t.Setenv("VIRTUALCHEST_ACCESS__GRANTS__BOB", "virtualchest.reload")

	cfg, err := Load(LoadOptions{File: path})
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Telnet.Addr, "env beats file")
	assert.Equal(t, "postgres://localhost/chests", cfg.Database.URL)
	assert.Equal(t, time.Second, cfg.Script.Timeout)
	assert.True(t, cfg.Menus.Watch)
	assert.Equal(t, []string{"shop.open", "bank.open"}, cfg.Access.Defaults)
	assert.Equal(t, []string{"virtualchest.reload"}, cfg.Access.Grants["bob"])
}

func TestLoad_Flags(t *testing.T) {
	isolate(t)
	t.Setenv("VIRTUALCHEST_TELNET__ADDR", ":7000")
	t.Setenv("VIRTUALCHEST_LOG__FORMAT", "text")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	fs.String("config", "", "not a config key")
	require.NoError(t, fs.Parse([]string{"--telnet-addr", ":8000", "--watch", "--log-level", "debug"}))

	cfg, err := Load(LoadOptions{Flags: fs})
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Telnet.Addr, "flags beat env")
	assert.True(t, cfg.Menus.Watch)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format, "unchanged flags keep env values")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "empty telnet addr", mutate: func(c *Config) { c.Telnet.Addr = "" }, wantErr: "telnet.addr"},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "log format"},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "log level"},
		{name: "zero script timeout", mutate: func(c *Config) { c.Script.Timeout = 0 }, wantErr: "script.timeout"},
		{name: "zero cache size", mutate: func(c *Config) { c.Script.CacheSize = 0 }, wantErr: "script.cache_size"},
		{name: "negative debounce", mutate: func(c *Config) { c.Menus.Debounce = -time.Second }, wantErr: "menus.debounce"},
		{name: "watch without dir", mutate: func(c *Config) { c.Menus.Watch, c.Menus.Dir = true, "" }, wantErr: "menus.watch"},
		{name: "auto-migrate without url", mutate: func(c *Config) { c.Database.AutoMigrate = true }, wantErr: "database.auto_migrate"},
		{name: "empty grant subject", mutate: func(c *Config) { c.Access.Grants = map[string][]string{" ": {"**"}} }, wantErr: "empty player name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, CodeInvalid)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Telnet.Addr = ""
	cfg.Script.CacheSize = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telnet.addr")
	assert.Contains(t, err.Error(), "script.cache_size")
}
