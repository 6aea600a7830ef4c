// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/virtualchest/internal/menu"
	"github.com/holomush/virtualchest/pkg/errutil"
)

func TestSchemaCmd_Stdout(t *testing.T) {
	output, err := execute(t, "schema")
	require.NoError(t, err)
	assert.Contains(t, output, menu.SchemaID)
	assert.True(t, json.Valid([]byte(output)), "schema output must be JSON")
}

func TestSchemaCmd_OutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemas", "menu.schema.json")

	output, err := execute(t, "schema", "--output", path)
	require.NoError(t, err)
	assert.Contains(t, output, "Generated "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), menu.SchemaID)
}

func TestSchemaCmd_OutputDirectoryFailure(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	_, err := execute(t, "schema", "--output", filepath.Join(file, "menu.schema.json"))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "DIR_CREATE_FAILED")
}
