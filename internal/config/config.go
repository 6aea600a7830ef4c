// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads the server configuration.
//
// Sources are layered, later ones winning:
//
//	defaults → YAML file → VIRTUALCHEST_ environment → command-line flags
//
// Environment keys use a double underscore for nesting:
// VIRTUALCHEST_TELNET__ADDR sets telnet.addr.
package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/virtualchest/internal/logging"
	"github.com/holomush/virtualchest/internal/menu"
	"github.com/holomush/virtualchest/internal/script"
	"github.com/holomush/virtualchest/internal/xdg"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "VIRTUALCHEST_"

// CodeInvalid is returned when configuration fails to load or validate.
const CodeInvalid = "CONFIG_INVALID"

// Config is the complete server configuration.
type Config struct {
	Telnet   TelnetConfig   `koanf:"telnet"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Menus    MenusConfig    `koanf:"menus"`
	Plugins  PluginsConfig  `koanf:"plugins"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Script   ScriptConfig   `koanf:"script"`
	Access   AccessConfig   `koanf:"access"`
}

// TelnetConfig configures the telnet front-end.
type TelnetConfig struct {
	Addr string `koanf:"addr"`
}

// MetricsConfig configures the observability server. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// MenusConfig configures the menus directory source.
type MenusConfig struct {
	Dir      string        `koanf:"dir"`
	Watch    bool          `koanf:"watch"`
	Debounce time.Duration `koanf:"debounce"`
}

// PluginsConfig configures plugin discovery. An empty directory disables it.
type PluginsConfig struct {
	Dir string `koanf:"dir"`
}

// DatabaseConfig configures the optional PostgreSQL store. An empty URL
// disables it.
type DatabaseConfig struct {
	URL         string `koanf:"url"`
	AutoMigrate bool   `koanf:"auto_migrate"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// ScriptConfig configures requirement evaluation.
type ScriptConfig struct {
	Timeout   time.Duration `koanf:"timeout"`
	CacheSize int           `koanf:"cache_size"`
}

// AccessConfig holds permission grants. Defaults apply to every player;
// Grants are keyed by player name.
type AccessConfig struct {
	Defaults []string            `koanf:"defaults"`
	Grants   map[string][]string `koanf:"grants"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Telnet:  TelnetConfig{Addr: ":4201"},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9101"},
		Menus: MenusConfig{
			Dir:      xdg.MenusDir(),
			Debounce: menu.DefaultDebounce,
		},
		Plugins: PluginsConfig{Dir: xdg.PluginsDir()},
		Log:     LogConfig{Format: logging.FormatJSON, Level: "info"},
		Script: ScriptConfig{
			Timeout:   script.DefaultTimeout,
			CacheSize: script.DefaultCacheSize,
		},
		Access: AccessConfig{Defaults: []string{"virtualchest.open.*"}},
	}
}

// flagKeys maps command-line flags to configuration keys. Flags not listed
// are not configuration.
var flagKeys = map[string]string{
	"telnet-addr":  "telnet.addr",
	"metrics-addr": "metrics.addr",
	"menus-dir":    "menus.dir",
	"watch":        "menus.watch",
	"plugins-dir":  "plugins.dir",
	"database-url": "database.url",
	"auto-migrate": "database.auto_migrate",
	"log-format":   "log.format",
	"log-level":    "log.level",
}

// RegisterFlags adds the configuration flags to fs. Flag defaults are only
// shown in help; unset flags never override other sources.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("telnet-addr", d.Telnet.Addr, "telnet listen address")
	fs.String("metrics-addr", d.Metrics.Addr, "observability listen address (empty disables)")
	fs.String("menus-dir", d.Menus.Dir, "directory of chest menu files")
	fs.Bool("watch", d.Menus.Watch, "reload when the menus directory changes")
	fs.String("plugins-dir", d.Plugins.Dir, "directory plugins are discovered in (empty disables)")
	fs.String("database-url", d.Database.URL, "PostgreSQL URL for stored menus (empty disables)")
	fs.Bool("auto-migrate", d.Database.AutoMigrate, "apply database migrations on startup")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
}

// LoadOptions selects the sources Load reads.
type LoadOptions struct {
	// File is the YAML config path. When empty, the XDG config file is read
	// if it exists.
	File string
	// Flags, when set, overrides with the flags the user changed.
	Flags *pflag.FlagSet
}

// Load reads and validates the configuration.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(defaultsProvider{}, nil); err != nil {
		return nil, oops.Code(CodeInvalid).Wrapf(err, "load defaults")
	}

	path, explicit := opts.File, opts.File != ""
	if !explicit {
		path = xdg.ConfigFile()
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, oops.Code(CodeInvalid).With("path", path).Wrapf(err, "load config file")
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, oops.Code(CodeInvalid).Wrapf(err, "load environment")
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code(CodeInvalid).Wrapf(err, "load flags")
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code(CodeInvalid).Wrapf(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envValue maps VIRTUALCHEST_A__B to a.b. Grant lists are comma separated.
func envValue(name, value string) (string, any) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(name, EnvPrefix)), "__", ".")
	if key == "access.defaults" || strings.HasPrefix(key, "access.grants.") {
		var patterns []string
		for p := range strings.SplitSeq(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				patterns = append(patterns, p)
			}
		}
		return key, patterns
	}
	return key, value
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Telnet.Addr == "" {
		errs = append(errs, errors.New("telnet.addr is required"))
	}
	// Nested codes are flattened so CONFIG_INVALID stays the reported code.
	if err := logging.ValidateFormat(c.Log.Format); err != nil {
		errs = append(errs, errors.New(err.Error()))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, errors.New(err.Error()))
	}
	if c.Script.Timeout <= 0 {
		errs = append(errs, oops.Errorf("script.timeout must be positive, got %s", c.Script.Timeout))
	}
	if c.Script.CacheSize <= 0 {
		errs = append(errs, oops.Errorf("script.cache_size must be positive, got %d", c.Script.CacheSize))
	}
	if c.Menus.Debounce < 0 {
		errs = append(errs, oops.Errorf("menus.debounce must not be negative, got %s", c.Menus.Debounce))
	}
	if c.Menus.Watch && c.Menus.Dir == "" {
		errs = append(errs, errors.New("menus.watch requires menus.dir"))
	}
	if c.Database.AutoMigrate && c.Database.URL == "" {
		errs = append(errs, errors.New("database.auto_migrate requires database.url"))
	}
	for name := range c.Access.Grants {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, errors.New("access.grants has an empty player name"))
		}
	}
	if len(errs) > 0 {
		return oops.Code(CodeInvalid).Wrap(errors.Join(errs...))
	}
	return nil
}

// defaultsProvider feeds Default() to koanf as a nested map.
type defaultsProvider struct{}

func (defaultsProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("defaults provider does not support ReadBytes")
}

func (defaultsProvider) Read() (map[string]any, error) {
	d := Default()
	return map[string]any{
		"telnet":  map[string]any{"addr": d.Telnet.Addr},
		"metrics": map[string]any{"addr": d.Metrics.Addr},
		"menus": map[string]any{
			"dir":      d.Menus.Dir,
			"watch":    d.Menus.Watch,
			"debounce": d.Menus.Debounce,
		},
		"plugins":  map[string]any{"dir": d.Plugins.Dir},
		"database": map[string]any{"url": d.Database.URL, "auto_migrate": d.Database.AutoMigrate},
		"log":      map[string]any{"format": d.Log.Format, "level": d.Log.Level},
		"script": map[string]any{
			"timeout":    d.Script.Timeout,
			"cache_size": d.Script.CacheSize,
		},
		"access": map[string]any{"defaults": d.Access.Defaults},
	}, nil
}
