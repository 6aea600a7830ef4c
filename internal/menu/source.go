// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package menu

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/samber/oops"

	"github.com/holomush/virtualchest/internal/chest"
	"github.com/holomush/virtualchest/pkg/errutil"
)

// Compile-time interface check.
var _ chest.LoadListener = (*DirSource)(nil)

// MenuValidator performs checks beyond Menu.Validate, such as compiling
// requirement expressions.
type MenuValidator interface {
	ValidateMenu(m *chest.Menu) error
}

// DirSourceOption configures a DirSource.
type DirSourceOption func(*DirSource)

// WithSourceName overrides the source name (default "dir:<base name>").
func WithSourceName(name string) DirSourceOption {
	return func(s *DirSource) {
		s.source = name
	}
}

// WithValidator adds an extra validation step for every file.
func WithValidator(v MenuValidator) DirSourceOption {
	return func(s *DirSource) {
		s.validator = v
	}
}

// WithSourceLogger sets the logger.
func WithSourceLogger(l *slog.Logger) DirSourceOption {
	return func(s *DirSource) {
		s.logger = l
	}
}

// DirSource registers every *.yaml and *.yml file in a directory.
// Files that fail to parse or register are logged and skipped.
type DirSource struct {
	dir       string
	source    string
	validator MenuValidator
	logger    *slog.Logger
}

// NewDirSource creates a listener for dir.
func NewDirSource(dir string, opts ...DirSourceOption) *DirSource {
	s := &DirSource{
		dir:    dir,
		source: "dir:" + filepath.Base(dir),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the directory being read.
func (s *DirSource) Dir() string {
	return s.dir
}

// Source implements chest.LoadListener.
func (s *DirSource) Source() string {
	return s.source
}

// OnLoad implements chest.LoadListener. A missing directory contributes no
// menus; any other read error fails the listener.
func (s *DirSource) OnLoad(ctx context.Context, event *chest.LoadEvent) error {
	menus, err := s.Read(ctx)
	if err != nil {
		return err
	}
	for _, m := range menus {
		if err := event.Register(m); err != nil {
			errutil.LogError(s.logger, "skipping chest GUI", err)
		}
	}
	return nil
}

// Read parses every valid menu file, sorted by file name. Invalid files are
// logged and left out. Each menu's Source is set to the listener source.
func (s *DirSource) Read(ctx context.Context) ([]*chest.Menu, error) {
	files, err := ListFiles(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.WarnContext(ctx, "menus directory does not exist", "dir", s.dir)
			return nil, nil
		}
		return nil, err
	}

	menus := make([]*chest.Menu, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, oops.With("dir", s.dir).Wrap(err)
		}

		m, err := ParseFile(path)
		if err == nil && s.validator != nil {
			err = s.validator.ValidateMenu(m)
		}
		if err != nil {
			errutil.LogError(s.logger, "skipping invalid menu file", oops.With("path", path).Wrap(err))
			continue
		}
		m.Source = s.source
		menus = append(menus, m)
	}
	return menus, nil
}

// ListFiles returns the menu files directly inside dir, sorted.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, oops.Code(CodeParseFailed).With("dir", dir).Wrapf(err, "read menus directory")
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !IsMenuFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}
