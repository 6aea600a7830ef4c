// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package menu reads chest GUI definitions from YAML files.
package menu

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/holomush/virtualchest/internal/chest"
)

// Error codes for menu files.
const (
	CodeParseFailed   = "MENU_PARSE_FAILED"
	CodeSchemaInvalid = "MENU_SCHEMA_INVALID"
)

// ParseDefinition decodes a YAML menu definition and validates it.
// Unknown keys are rejected.
func ParseDefinition(data []byte) (*chest.Menu, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, oops.Code(CodeParseFailed).Errorf("menu definition is empty")
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m chest.Menu
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, oops.Code(CodeParseFailed).Errorf("menu definition is empty")
		}
		return nil, oops.Code(CodeParseFailed).Wrapf(err, "decode menu")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ParseFile reads and parses a menu file. When the file has no id, the file
// name without extension is used.
func ParseFile(path string) (*chest.Menu, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, oops.Code(CodeParseFailed).With("path", path).Wrapf(err, "read menu file")
	}

	data = withDefaultID(data, idFromPath(path))
	m, err := ParseDefinition(data)
	if err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	return m, nil
}

// ValidateFile checks a menu file against the JSON Schema before parsing
// it. It reports schema violations that ParseFile would describe less
// precisely.
func ValidateFile(path string) (*chest.Menu, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, oops.Code(CodeParseFailed).With("path", path).Wrapf(err, "read menu file")
	}

	data = withDefaultID(data, idFromPath(path))
	if err := ValidateSchema(data); err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	m, err := ParseDefinition(data)
	if err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	return m, nil
}

// IsMenuFile reports whether name has a menu file extension.
func IsMenuFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func idFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// withDefaultID injects "id: <fallback>" when the document has no id key.
func withDefaultID(data []byte, fallback string) []byte {
	var probe map[string]any
	if err := yaml.Unmarshal(data, &probe); err != nil || probe == nil {
		return data
	}
	if _, ok := probe["id"]; ok {
		return data
	}
	probe["id"] = fallback
	out, err := yaml.Marshal(probe)
	if err != nil {
		return data
	}
	return out
}
