// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/virtualchest/internal/config"
	"github.com/holomush/virtualchest/pkg/errutil"
)

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantVersion int
		wantErr     bool
	}{
		{name: "valid integer", input: "3", wantVersion: 3},
		{name: "zero is valid", input: "0", wantVersion: 0},
		{name: "non-numeric returns error", input: "abc", wantErr: true},
		{name: "float parses as integer", input: "1.5", wantVersion: 1},
		{name: "trailing chars are ignored", input: "3abc", wantVersion: 3},
		{name: "negative parses", input: "-1", wantVersion: -1},
		{name: "empty string returns error", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseForceVersion(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, "INVALID_VERSION")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, got)
		})
	}
}

func TestFormatStatus(t *testing.T) {
	assert.Equal(t, "Current version: 0\nPending migrations: 2\n  000001_chest_menus\n  000002_chest_events",
		formatStatus(0, false, []uint{1, 2}))
	assert.Equal(t, "Current version: 2 (000002_chest_events)\nNo pending migrations",
		formatStatus(2, false, nil))
	assert.Contains(t, formatStatus(1, true, []uint{2}), "DIRTY")
}

func TestMigrate_RequiresDatabaseURL(t *testing.T) {
	for _, args := range [][]string{
		{"migrate"},
		{"migrate", "status"},
		{"migrate", "force", "1"},
	} {
		_, err := execute(t, args...)
		require.Error(t, err, "args %v", args)
		errutil.AssertErrorCode(t, err, config.CodeInvalid)
	}
}

func TestMigrateDown_RequiresConfirmation(t *testing.T) {
	_, err := execute(t, "migrate", "down", "--database-url", "postgres://localhost/none")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIRMATION_REQUIRED")
}

func TestMigrateForce_InvalidVersion(t *testing.T) {
	_, err := execute(t, "migrate", "force", "abc")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "INVALID_VERSION")
}
