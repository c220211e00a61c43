// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package catalog reads a directory's immediate children into classified entries.
package catalog

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ErrDirectoryUnreadable is returned when a directory cannot be enumerated
var ErrDirectoryUnreadable = errors.Base("directory unreadable")

// 💾 FileSystem abstracts the enumeration primitives the catalog needs
type FileSystem interface {
	ReadDir(name string) ([]fs.DirEntry, error)
	Stat(name string) (fs.FileInfo, error)
}

type osFS struct{}

func (osFS) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }
func (osFS) Stat(name string) (fs.FileInfo, error)      { return os.Stat(name) }

// 🔧 ListOption configures List
type ListOption func(*listConfig)

type listConfig struct {
	fsys   FileSystem
	ignore []string
}

// WithFileSystem replaces the OS filesystem
func WithFileSystem(fsys FileSystem) ListOption {
	return func(c *listConfig) {
		c.fsys = fsys
	}
}

// WithIgnorePatterns drops children whose name matches any doublestar pattern
func WithIgnorePatterns(patterns ...string) ListOption {
	return func(c *listConfig) {
		c.ignore = append(c.ignore, patterns...)
	}
}

// 📋 List returns the classified children of dir sorted case-insensitively by name.
// Children whose metadata cannot be read are left out.
func List(ctx context.Context, dir string, opts ...ListOption) ([]Entry, error) {
	cfg := listConfig{fsys: osFS{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Errorf("%w: %s: %s", ErrDirectoryUnreadable, dir, err)
	}

	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("dir", abs).Msg("listing directory")

	children, err := cfg.fsys.ReadDir(abs)
	if err != nil {
		return nil, errors.Errorf("%w: %s: %s", ErrDirectoryUnreadable, abs, err)
	}

	entries := make([]Entry, 0, len(children))
	for _, child := range children {
		if cfg.ignored(child.Name()) {
			continue
		}
		path := filepath.Join(abs, child.Name())
		info, err := cfg.fsys.Stat(path)
		if err != nil {
			logger.Debug().Str("path", path).Err(err).Msg("skipping unreadable entry")
			continue
		}
		entries = append(entries, fromInfo(path, info))
	}

	Sort(entries)
	return entries, nil
}

// 🔤 Sort orders entries case-insensitively, falling back to byte order for ties
func Sort(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := strings.ToLower(entries[i].Name), strings.ToLower(entries[j].Name)
		if a != b {
			return a < b
		}
		return entries[i].Name < entries[j].Name
	})
}

// 🔍 Filter returns the entries of the given kinds, preserving order
func Filter(entries []Entry, kinds ...Kind) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		for _, k := range kinds {
			if e.Kind == k {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

func (c *listConfig) ignored(name string) bool {
	for _, pattern := range c.ignore {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
