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

// Package bundle inspects application bundle directories: their Info.plist,
// the loadable components they ship, and exporting those components.
package bundle

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"howett.net/plist"

	"github.com/walteh/bundlekit/pkg/catalog"
	"github.com/walteh/bundlekit/pkg/fileops"
)

var (
	ErrNoApplication          = errors.Base("no application bundle found")
	ErrInvalidInfo            = errors.Base("invalid Info.plist")
	ErrDestinationOutsideRoot = errors.Base("destination must be within the root directory")
)

// 🔍 FindApp returns the first application directory among dir's children
func FindApp(ctx context.Context, dir string, opts ...catalog.ListOption) (catalog.Entry, error) {
	entries, err := catalog.List(ctx, dir, opts...)
	if err != nil {
		return catalog.Entry{}, err
	}
	apps := catalog.Filter(entries, catalog.KindApplicationDirectory)
	if len(apps) == 0 {
		return catalog.Entry{}, errors.Errorf("%w: %s", ErrNoApplication, dir)
	}
	return apps[0], nil
}

// ℹ️ Info is the identifying subset of an application's Info.plist
type Info struct {
	Identifier     string `plist:"CFBundleIdentifier"`
	Name           string `plist:"CFBundleName"`
	DisplayName    string `plist:"CFBundleDisplayName"`
	Version        string `plist:"CFBundleShortVersionString"`
	Build          string `plist:"CFBundleVersion"`
	Executable     string `plist:"CFBundleExecutable"`
	MinimumVersion string `plist:"MinimumOSVersion"`
}

// Title returns the display name, falling back to the bundle name
func (i *Info) Title() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.Name
}

// 📖 ReadInfo decodes appDir/Info.plist in any plist encoding
func ReadInfo(appDir string) (*Info, error) {
	data, err := os.ReadFile(filepath.Join(appDir, "Info.plist"))
	if err != nil {
		return nil, errors.Errorf("%w: %s", ErrInvalidInfo, err)
	}

	var info Info
	if _, err := plist.Unmarshal(data, &info); err != nil {
		return nil, errors.Errorf("%w: %s", ErrInvalidInfo, err)
	}
	if info.Identifier == "" {
		return nil, errors.Errorf("%w: missing CFBundleIdentifier", ErrInvalidInfo)
	}
	return &info, nil
}

// 🧩 Components lists loadable code shipped inside an application
type Components struct {
	Dylibs     []string // .dylib files
	Bundles    []string // .bundle files or directories
	Extensions []string // .appex directories
}

// All returns every component path
func (c *Components) All() []string {
	out := make([]string, 0, len(c.Dylibs)+len(c.Bundles)+len(c.Extensions))
	out = append(out, c.Dylibs...)
	out = append(out, c.Bundles...)
	return append(out, c.Extensions...)
}

// Empty reports whether nothing was found
func (c *Components) Empty() bool {
	return len(c.Dylibs) == 0 && len(c.Bundles) == 0 && len(c.Extensions) == 0
}

// 🔎 Inventory walks appDir for dylibs, resource bundles and app extensions.
// Each list is sorted by base name and holds absolute paths.
func Inventory(ctx context.Context, appDir string) (*Components, error) {
	abs, err := filepath.Abs(appDir)
	if err != nil {
		return nil, errors.Errorf("resolving app directory: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Errorf("reading app directory: %w", err)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%w: %s is not a directory", ErrNoApplication, abs)
	}

	fsys := os.DirFS(abs)
	find := func(pattern string, dirsOnly bool) ([]string, error) {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, errors.Errorf("matching %s: %w", pattern, err)
		}
		seen := map[string]bool{}
		out := make([]string, 0, len(matches))
		for _, m := range matches {
			p := filepath.Join(abs, filepath.FromSlash(m))
			if seen[p] {
				continue
			}
			if dirsOnly {
				if st, err := os.Stat(p); err != nil || !st.IsDir() {
					continue
				}
			}
			seen[p] = true
			out = append(out, p)
		}
		sortByBase(out)
		return out, nil
	}

	c := &Components{}
	if c.Dylibs, err = find("**/*.dylib", false); err != nil {
		return nil, err
	}
	if c.Bundles, err = find("**/*.bundle", false); err != nil {
		return nil, err
	}
	if c.Extensions, err = find("**/*.appex", true); err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().
		Str("path", abs).
		Int("dylibs", len(c.Dylibs)).
		Int("bundles", len(c.Bundles)).
		Int("extensions", len(c.Extensions)).
		Msg("inventoried app")
	return c, nil
}

func sortByBase(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		a, b := strings.ToLower(filepath.Base(paths[i])), strings.ToLower(filepath.Base(paths[j]))
		if a != b {
			return a < b
		}
		return paths[i] < paths[j]
	})
}

// 📤 ExportComponents copies files into dstDir, replacing same-named items.
// dstDir must lie within root.
func ExportComponents(ctx context.Context, files []string, dstDir, root string) (fileops.BatchResult, error) {
	dst, err := within(dstDir, root)
	if err != nil {
		return fileops.BatchResult{}, err
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return fileops.BatchResult{}, errors.Errorf("creating destination: %w", err)
	}

	logger := zerolog.Ctx(ctx)
	return fileops.Batch(ctx, fileops.DefaultWorkers, files, filepath.Base, func(ctx context.Context, src string) error {
		target := filepath.Join(dst, filepath.Base(src))
		if err := os.RemoveAll(target); err != nil {
			return errors.Errorf("replacing %s: %w", filepath.Base(src), err)
		}
		logger.Debug().Str("path", src).Str("target", target).Msg("exporting component")
		return fileops.CopyTree(ctx, src, target)
	}), nil
}

func within(dir, root string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Errorf("resolving destination: %w", err)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", errors.Errorf("resolving root: %w", err)
	}
	rel, err := filepath.Rel(absRoot, absDir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("%w: %s", ErrDestinationOutsideRoot, absDir)
	}
	return absDir, nil
}
