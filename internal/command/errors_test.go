// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/holomush/virtualchest/internal/chest"
	"github.com/holomush/virtualchest/pkg/errutil"
)

func TestErrorConstructors(t *testing.T) {
	err := ErrPermissionDenied("reload", "virtualchest.reload")
	errutil.AssertErrorCode(t, err, CodePermissionDenied)
	errutil.AssertErrorContext(t, err, "permission", "virtualchest.reload")

	err = ErrChestRejected("shop", chest.ResultDenied)
	errutil.AssertErrorCode(t, err, CodeChestRejected)
	errutil.AssertErrorContext(t, err, "menu_id", "shop")
	errutil.AssertErrorContext(t, err, "result", chest.ResultDenied)
}

func TestPlayerMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: genericMessage},
		{name: "plain error", err: errors.New("boom"), want: genericMessage},
		{name: "empty input", err: func() error { _, err := Parse(""); return err }(), want: ""},
		{name: "unknown command", err: ErrUnknownCommand("dance"), want: "Unknown command. Try 'help'."},
		{name: "permission denied", err: ErrPermissionDenied("reload", "virtualchest.reload"), want: "You don't have permission to do that."},
		{name: "usage", err: ErrInvalidArgs("open", "open <id>"), want: "Usage: open <id>"},
		{name: "usage missing", err: ErrInvalidArgs("open", ""), want: "Invalid arguments."},
		{name: "unknown chest", err: ErrChestRejected("vault", chest.ResultUnknownMenu), want: "There is no chest called 'vault'."},
		{name: "chest permission", err: ErrChestRejected("shop", chest.ResultDenied), want: "You don't have permission to open 'shop'."},
		{name: "chest requirement", err: ErrChestRejected("shop", chest.ResultRequirement), want: "You can't open 'shop' right now."},
		{name: "chest offline", err: ErrChestRejected("shop", chest.ResultOffline), want: "You must be online to use chests."},
		{name: "chest not open", err: ErrChestRejected("shop", chest.ResultNotOpen), want: "You don't have 'shop' open."},
		{name: "menu not found", err: chest.ErrMenuNotFound("shop"), want: "There is no such chest."},
		{name: "no player", err: ErrNoPlayer(), want: "You are not connected. Use 'connect <name>' first."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlayerMessage(tt.err))
		})
	}
}
