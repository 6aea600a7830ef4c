// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package script

import (
	"context"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/holomush/virtualchest/internal/chest"
	"github.com/holomush/virtualchest/internal/core"
)

// Error codes for expression evaluation.
const (
	CodeScriptSyntax = "SCRIPT_SYNTAX"
	CodeScriptFailed = "SCRIPT_FAILED"
)

const (
	// DefaultTimeout bounds a single evaluation.
	DefaultTimeout = 100 * time.Millisecond
	// DefaultCacheSize is the number of compiled expressions kept.
	DefaultCacheSize = 256
)

// Compile-time interface check.
var _ chest.RequirementChecker = (*Evaluator)(nil)

// Env is the data an expression can see.
type Env struct {
	Player core.Player
	Menu   *chest.Menu
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(e *Evaluator) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithCacheSize overrides DefaultCacheSize.
func WithCacheSize(n int) Option {
	return func(e *Evaluator) {
		e.cacheSize = n
	}
}

// WithLogger sets the logger used for evaluation diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = l
	}
}

// Evaluator runs requirement expressions such as `player.name ~= "guest"`.
// Each evaluation gets its own sandboxed state; compiled chunks are shared.
type Evaluator struct {
	factory   *StateFactory
	cache     *lru.Cache[string, *lua.FunctionProto]
	cacheSize int
	timeout   time.Duration
	logger    *slog.Logger
}

// NewEvaluator creates an evaluator.
func NewEvaluator(opts ...Option) (*Evaluator, error) {
	e := &Evaluator{
		factory:   NewStateFactory(),
		cacheSize: DefaultCacheSize,
		timeout:   DefaultTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	cache, err := lru.New[string, *lua.FunctionProto](e.cacheSize)
	if err != nil {
		return nil, oops.Code(CodeScriptFailed).With("cache_size", e.cacheSize).Wrapf(err, "create expression cache")
	}
	e.cache = cache
	return e, nil
}

// Compile parses expr and caches the result. It reports syntax errors
// without running anything.
func (e *Evaluator) Compile(expr string) (*lua.FunctionProto, error) {
	if proto, ok := e.cache.Get(expr); ok {
		return proto, nil
	}

	if strings.TrimSpace(expr) == "" {
		return nil, oops.Code(CodeScriptSyntax).Errorf("expression is empty")
	}

	src := "return (" + expr + ")"
	chunk, err := parse.Parse(strings.NewReader(src), "<requirement>")
	if err != nil {
		return nil, oops.Code(CodeScriptSyntax).With("expression", expr).Wrapf(err, "parse expression")
	}
	proto, err := lua.Compile(chunk, "<requirement>")
	if err != nil {
		return nil, oops.Code(CodeScriptSyntax).With("expression", expr).Wrapf(err, "compile expression")
	}

	e.cache.Add(expr, proto)
	return proto, nil
}

// Eval evaluates expr with env and returns its Lua truthiness.
func (e *Evaluator) Eval(ctx context.Context, expr string, env Env) (bool, error) {
	proto, err := e.Compile(expr)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	L, err := e.factory.NewState(ctx)
	if err != nil {
		return false, err
	}
	defer L.Close()

	setEnv(L, env)

	L.Push(L.NewFunctionFromProto(proto))
	if err := L.PCall(0, 1, nil); err != nil {
		return false, oops.Code(CodeScriptFailed).
			With("expression", expr).
			With("player_id", env.Player.ID.String()).
			Wrapf(err, "evaluate expression")
	}

	result := L.Get(-1)
	L.Pop(1)
	return lua.LVAsBool(result), nil
}

// Check evaluates a requirement for a player viewing menu.
func (e *Evaluator) Check(ctx context.Context, expr string, player core.Player, menu *chest.Menu) (bool, error) {
	ok, err := e.Eval(ctx, expr, Env{Player: player, Menu: menu})
	if err != nil {
		e.logger.DebugContext(ctx, "requirement evaluation failed",
			"expression", expr,
			"player_id", player.ID.String(),
			"error", err)
	}
	return ok, err
}

// ValidateMenu compiles every expression in menu.
func (e *Evaluator) ValidateMenu(menu *chest.Menu) error {
	if menu.OpenRequirement != "" {
		if _, err := e.Compile(menu.OpenRequirement); err != nil {
			return oops.With("menu_id", menu.ID).Wrapf(err, "open-requirement")
		}
	}
	for _, slot := range menu.Slots {
		if slot.Requirement == "" {
			continue
		}
		if _, err := e.Compile(slot.Requirement); err != nil {
			return oops.With("menu_id", menu.ID).With("slot", slot.Index).Wrapf(err, "slot %d requirement", slot.Index)
		}
	}
	return nil
}

func setEnv(L *lua.LState, env Env) {
	player := L.NewTable()
	if !env.Player.IsZero() {
		player.RawSetString("id", lua.LString(env.Player.ID.String()))
	}
	player.RawSetString("name", lua.LString(env.Player.Name))
	L.SetGlobal("player", player)

	menu := L.NewTable()
	if env.Menu != nil {
		menu.RawSetString("id", lua.LString(env.Menu.ID))
		menu.RawSetString("title", lua.LString(env.Menu.Title))
		menu.RawSetString("rows", lua.LNumber(env.Menu.Rows))
	}
	L.SetGlobal("menu", menu)
}
