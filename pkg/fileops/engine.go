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

package fileops

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/walteh/bundlekit/pkg/catalog"
	"github.com/walteh/bundlekit/pkg/dispatch"
	"github.com/walteh/bundlekit/pkg/naming"
	"gitlab.com/tozd/go/errors"
)

// DefaultWorkers bounds item parallelism when Options.Workers is unset
const DefaultWorkers = 4

// Swapped by tests to exercise the cross-device and raw fallback paths.
var (
	renamePath = os.Rename
	copyPath   = CopyTree
)

// 🔧 Options contains configuration for the engine
type Options struct {
	// Runner schedules batch jobs and owns the completion context
	Runner *dispatch.Runner
	// Workers bounds the number of items processed at once
	Workers int
	// Accessor grants access to import sources
	Accessor Accessor
}

// 🗃️ Engine runs file operations on a directory tree
type Engine struct {
	runner   *dispatch.Runner
	workers  int
	accessor Accessor

	active atomic.Int32
}

// 🏭 New creates an engine with the given options
func New(opts Options) *Engine {
	e := &Engine{
		runner:   opts.Runner,
		workers:  opts.Workers,
		accessor: opts.Accessor,
	}
	if e.runner == nil {
		e.runner = dispatch.NewRunner(dispatch.Inline(), false)
	}
	if e.workers < 1 {
		e.workers = DefaultWorkers
	}
	if e.accessor == nil {
		e.accessor = statAccessor{}
	}
	return e
}

// InProgress reports whether a batch operation of this engine is running
func (e *Engine) InProgress() bool {
	return e.active.Load() > 0
}

func (e *Engine) batch(ctx context.Context, name string, count int, job func(context.Context) BatchResult) *dispatch.Future[BatchResult] {
	e.active.Add(1)
	zerolog.Ctx(ctx).Debug().Str("operation", name).Int("items", count).Msg("starting batch")
	return dispatch.Submit(ctx, e.runner, name, func(ctx context.Context) (BatchResult, error) {
		return job(ctx), nil
	}, func() { e.active.Add(-1) })
}

func entryName(e catalog.Entry) string { return e.Name }

// 📋 Copy copies items into dstDir. Colliding names are disambiguated.
func (e *Engine) Copy(ctx context.Context, items []catalog.Entry, dstDir string) *dispatch.Future[BatchResult] {
	return e.batch(ctx, "copy", len(items), func(ctx context.Context) BatchResult {
		return Batch(ctx, e.workers, items, entryName, func(ctx context.Context, item catalog.Entry) error {
			final, err := copyResolved(ctx, item.Path, dstDir, item.Name)
			if err != nil {
				return errors.Errorf("copying %s: %w", item.Name, err)
			}
			zerolog.Ctx(ctx).Debug().Str("path", item.Path).Str("destination", final).Msg("copied item")
			return nil
		})
	})
}

// 🚚 Move moves items into dstDir. An item whose name is already taken in
// dstDir fails with ErrDestinationExists and is left in place.
func (e *Engine) Move(ctx context.Context, items []catalog.Entry, dstDir string) *dispatch.Future[BatchResult] {
	return e.batch(ctx, "move", len(items), func(ctx context.Context) BatchResult {
		return Batch(ctx, e.workers, items, entryName, func(ctx context.Context, item catalog.Entry) error {
			return moveOne(ctx, item, dstDir)
		})
	})
}

func moveOne(ctx context.Context, item catalog.Entry, dstDir string) error {
	target := filepath.Join(dstDir, item.Name)
	if naming.Exists(target) {
		return errors.Errorf("%w: %s", ErrDestinationExists, target)
	}

	err := renamePath(item.Path, target)
	if err == nil {
		zerolog.Ctx(ctx).Debug().Str("path", item.Path).Str("destination", target).Msg("moved item")
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return errors.Errorf("moving %s: %w", item.Name, err)
	}

	zerolog.Ctx(ctx).Debug().Str("path", item.Path).Msg("cross-device move, copying instead")
	if err := CopyTree(ctx, item.Path, target); err != nil {
		return errors.Errorf("moving %s across devices: %w", item.Name, err)
	}
	if err := os.RemoveAll(item.Path); err != nil {
		return errors.Errorf("removing moved source %s: %w", item.Name, err)
	}
	return nil
}

// 🗑️ DeleteOne removes item and everything below it
func (e *Engine) DeleteOne(ctx context.Context, item catalog.Entry) error {
	if _, err := os.Lstat(item.Path); err != nil {
		return errors.Errorf("deleting %s: %w", item.Name, err)
	}
	if err := os.RemoveAll(item.Path); err != nil {
		return errors.Errorf("deleting %s: %w", item.Name, err)
	}
	zerolog.Ctx(ctx).Debug().Str("path", item.Path).Msg("deleted item")
	return nil
}

// DeleteMany removes every item independently
func (e *Engine) DeleteMany(ctx context.Context, items []catalog.Entry) *dispatch.Future[BatchResult] {
	return e.batch(ctx, "delete", len(items), func(ctx context.Context) BatchResult {
		return Batch(ctx, e.workers, items, entryName, e.DeleteOne)
	})
}

// ✏️ Rename renames item in place and returns the new path. The name is
// sanitized first; an occupied target fails with ErrTargetExists.
func (e *Engine) Rename(ctx context.Context, item catalog.Entry, newName string) (string, error) {
	name, err := cleanName(newName)
	if err != nil {
		return "", err
	}

	target := filepath.Join(item.Dir(), name)
	if naming.Exists(target) {
		return "", errors.Errorf("%w: %s", ErrTargetExists, target)
	}
	if err := renamePath(item.Path, target); err != nil {
		return "", errors.Errorf("renaming %s: %w", item.Name, err)
	}

	zerolog.Ctx(ctx).Debug().Str("path", item.Path).Str("name", name).Msg("renamed item")
	return target, nil
}

// 📁 CreateFolder creates dir/name, including missing parents of dir
func (e *Engine) CreateFolder(ctx context.Context, dir, name string) (string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return "", err
	}

	target := filepath.Join(dir, clean)
	if naming.Exists(target) {
		return "", errors.Errorf("%w: %s", ErrTargetExists, target)
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", errors.Errorf("creating folder %s: %w", clean, err)
	}

	zerolog.Ctx(ctx).Debug().Str("path", target).Msg("created folder")
	return target, nil
}

// 📄 CreateFile creates an empty file, disambiguating the name if it is taken
func (e *Engine) CreateFile(ctx context.Context, dir, name string) (string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return "", err
	}

	target := naming.Resolve(filepath.Join(dir, clean))
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", errors.Errorf("creating file %s: %w", clean, err)
	}
	if err := f.Close(); err != nil {
		return "", errors.Errorf("closing file %s: %w", clean, err)
	}

	zerolog.Ctx(ctx).Debug().Str("path", target).Msg("created file")
	return target, nil
}

func cleanName(name string) (string, error) {
	clean := strings.TrimSpace(naming.Sanitize(name))
	if clean == "" || clean == "." || clean == ".." {
		return "", errors.Errorf("%w: %q", ErrInvalidName, name)
	}
	return clean, nil
}
