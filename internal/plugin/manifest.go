// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package plugin discovers menu bundles: directories holding a plugin.yaml
// manifest and a folder of chest GUI definitions.
package plugin

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// ManifestFile is the manifest file name inside a plugin directory.
const ManifestFile = "plugin.yaml"

// DefaultMenusDir is used when a manifest does not name a menus directory.
const DefaultMenusDir = "menus"

// CodeInvalidManifest is returned for manifests that fail to parse or validate.
const CodeInvalidManifest = "INVALID_MANIFEST"

// Manifest represents a plugin.yaml file.
type Manifest struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description,omitempty"`
	// Menus is the menu directory relative to the plugin directory.
	Menus string `yaml:"menus,omitempty"`
	// Requires is a semver constraint on the host version, e.g. ">= 1.2, < 2".
	Requires string `yaml:"requires,omitempty"`

	version     *semver.Version
	constraints *semver.Constraints
}

// maxNameLength is the maximum allowed length for plugin names.
const maxNameLength = 64

// namePattern validates plugin names: must start with lowercase letter,
// followed by lowercase letters, digits, or hyphens.
// Cannot end with a hyphen. Single character names are allowed.
var namePattern = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)

// ParseManifest parses and validates a plugin.yaml file.
func ParseManifest(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, oops.Code(CodeInvalidManifest).Errorf("manifest data is empty")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, oops.Code(CodeInvalidManifest).Wrapf(err, "invalid YAML")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks manifest constraints.
func (m *Manifest) Validate() error {
	fail := oops.Code(CodeInvalidManifest).With("plugin", m.Name)

	if m.Name == "" || !namePattern.MatchString(m.Name) {
		return fail.Errorf("name %q must start with a-z, contain only a-z, 0-9, hyphens, and not end with a hyphen", m.Name)
	}
	if len(m.Name) > maxNameLength {
		return fail.Errorf("name must be %d characters or less, got %d", maxNameLength, len(m.Name))
	}

	if m.Version == "" {
		return fail.Errorf("version is required")
	}
	v, err := semver.StrictNewVersion(m.Version)
	if err != nil {
		return fail.With("version", m.Version).Wrapf(err, "version %q is not semantic", m.Version)
	}
	m.version = v

	if m.Requires != "" {
		c, err := semver.NewConstraint(m.Requires)
		if err != nil {
			return fail.With("requires", m.Requires).Wrapf(err, "requires %q is not a version constraint", m.Requires)
		}
		m.constraints = c
	}

	if m.Menus != "" {
		clean := filepath.Clean(m.Menus)
		if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
			return fail.With("menus", m.Menus).Errorf("menus must be a directory inside the plugin")
		}
	}
	return nil
}

// SemVer returns the parsed version. It is nil before Validate succeeds.
func (m *Manifest) SemVer() *semver.Version {
	return m.version
}

// Supports reports whether the plugin accepts the given host version.
// Plugins without a constraint support every host.
func (m *Manifest) Supports(host *semver.Version) bool {
	if m.constraints == nil || host == nil {
		return true
	}
	return m.constraints.Check(host)
}

// MenusDir returns the menus directory relative to the plugin directory.
func (m *Manifest) MenusDir() string {
	if m.Menus == "" {
		return DefaultMenusDir
	}
	return filepath.Clean(m.Menus)
}

// Source returns the load listener source name for the plugin.
func (m *Manifest) Source() string {
	return "plugin:" + m.Name
}
