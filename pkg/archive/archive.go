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

package archive

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/bundlekit/pkg/archive/codec"
	"github.com/walteh/bundlekit/pkg/catalog"
	"github.com/walteh/bundlekit/pkg/dispatch"
	"github.com/walteh/bundlekit/pkg/naming"
	"gitlab.com/tozd/go/errors"
)

var (
	ErrNotAnArchive              = errors.Base("not an archive")
	ErrNotAnApplicationDirectory = errors.Base("not an application directory")
	ErrJobActive                 = errors.Base("an archive job is already running")
)

// DefaultProgressInterval is the minimum delay between two progress reports
const DefaultProgressInterval = 50 * time.Millisecond

const (
	stagingPattern = ".bundlekit-extract-*"
	packagePattern = ".bundlekit-package-*.ipa"
)

// 📦 ExtractResult describes a finished extraction
type ExtractResult struct {
	OutputName string // Base name of the created directory
	OutputPath string // Absolute path of the created directory
	Entries    int    // Files, directories and links created
	Bytes      int64  // Uncompressed bytes written
}

// 📦 PackageResult describes a finished packaging job
type PackageResult struct {
	OutputName string // Base name of the generated container
	OutputPath string // Absolute path of the generated container
	Entries    int    // Entries stored in the container
	Bytes      int64  // Source bytes packed
}

// 🔧 Options contains configuration for the service
type Options struct {
	// Runner schedules jobs and owns the completion context
	Runner *dispatch.Runner
	// ProgressInterval throttles progress reports
	ProgressInterval time.Duration
	// PreserveMode keeps source permission bits when packaging
	PreserveMode bool
}

// 🗜️ Service runs at most one extraction or packaging job at a time
type Service struct {
	runner   *dispatch.Runner
	interval time.Duration
	packer   codec.ZipPacker

	active atomic.Bool
}

// 🏭 New creates a service with the given options
func New(opts Options) *Service {
	s := &Service{
		runner:   opts.Runner,
		interval: opts.ProgressInterval,
		packer:   codec.ZipPacker{NormalizeModes: !opts.PreserveMode},
	}
	if s.runner == nil {
		s.runner = dispatch.NewRunner(dispatch.Inline(), false)
	}
	if s.interval <= 0 {
		s.interval = DefaultProgressInterval
	}
	return s
}

// Active reports whether a job holds the guard
func (s *Service) Active() bool {
	return s.active.Load()
}

func (s *Service) acquire() error {
	if !s.active.CompareAndSwap(false, true) {
		return ErrJobActive
	}
	return nil
}

func (s *Service) release() {
	s.active.Store(false)
}

// 📤 Extract unpacks entry into a new directory inside intoDir named after the
// archive. The directory only appears once every entry has been written.
func (s *Service) Extract(ctx context.Context, entry catalog.Entry, intoDir string, progress func(float64)) (*dispatch.Future[ExtractResult], error) {
	if !entry.IsArchive() {
		return nil, errors.Errorf("%w: %s", ErrNotAnArchive, entry.Name)
	}
	c, ok := codec.ForName(entry.Name)
	if !ok {
		return nil, errors.Errorf("%w: no codec for %s", ErrNotAnArchive, entry.Name)
	}
	if err := s.acquire(); err != nil {
		return nil, err
	}

	t := newTracker(s.runner.Completion(), progress, s.interval)
	return dispatch.Submit(ctx, s.runner, "extract", func(ctx context.Context) (ExtractResult, error) {
		return s.extract(ctx, c, entry, intoDir, t)
	}, s.release), nil
}

func (s *Service) extract(ctx context.Context, c codec.Codec, entry catalog.Entry, intoDir string, t *tracker) (ExtractResult, error) {
	logger := zerolog.Ctx(ctx).With().Str("path", entry.Path).Str("codec", c.Name()).Logger()
	logger.Debug().Str("into", intoDir).Msg("extracting archive")

	staging, err := os.MkdirTemp(intoDir, stagingPattern)
	if err != nil {
		return ExtractResult{}, errors.Errorf("creating staging directory: %w", err)
	}

	stats, err := c.Extract(logger.WithContext(ctx), entry.Path, staging, t.bytes)
	if err != nil {
		_ = os.RemoveAll(staging)
		return ExtractResult{}, errors.Errorf("extracting %s: %w", entry.Name, err)
	}

	if err := os.Chmod(staging, 0o755); err != nil {
		_ = os.RemoveAll(staging)
		return ExtractResult{}, errors.Errorf("setting mode on output: %w", err)
	}

	final := naming.Resolve(filepath.Join(intoDir, naming.Stem(entry.Name)))
	if err := os.Rename(staging, final); err != nil {
		_ = os.RemoveAll(staging)
		return ExtractResult{}, errors.Errorf("publishing %s: %w", filepath.Base(final), err)
	}

	t.complete()
	logger.Debug().Str("output", final).Int("entries", stats.Entries).Msg("extracted archive")
	return ExtractResult{
		OutputName: filepath.Base(final),
		OutputPath: final,
		Entries:    stats.Entries,
		Bytes:      stats.Bytes,
	}, nil
}

// 📥 Package builds <intoDir>/<name>.ipa from an application directory with
// the Payload/<name>.app layout. An existing container is never replaced.
func (s *Service) Package(ctx context.Context, app catalog.Entry, intoDir string, progress func(float64)) (*dispatch.Future[PackageResult], error) {
	if !app.IsApplicationDirectory() {
		return nil, errors.Errorf("%w: %s", ErrNotAnApplicationDirectory, app.Name)
	}
	if err := s.acquire(); err != nil {
		return nil, err
	}

	t := newTracker(s.runner.Completion(), progress, s.interval)
	return dispatch.Submit(ctx, s.runner, "package", func(ctx context.Context) (PackageResult, error) {
		return s.pack(ctx, app, intoDir, t)
	}, s.release), nil
}

func (s *Service) pack(ctx context.Context, app catalog.Entry, intoDir string, t *tracker) (res PackageResult, err error) {
	logger := zerolog.Ctx(ctx).With().Str("path", app.Path).Logger()
	logger.Debug().Str("into", intoDir).Msg("packaging application")

	rootInfo, err := os.Lstat(app.Path)
	if err != nil {
		return PackageResult{}, errors.Errorf("reading %s: %w", app.Name, err)
	}
	entries, err := codec.Walk(ctx, app.Path, "Payload/"+app.Name)
	if err != nil {
		return PackageResult{}, err
	}
	entries = append([]codec.PackEntry{{Name: "Payload", Path: app.Path, Info: rootInfo}}, entries...)

	tmp, err := os.CreateTemp(intoDir, packagePattern)
	if err != nil {
		return PackageResult{}, errors.Errorf("creating temporary container: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = s.packer.Pack(logger.WithContext(ctx), tmp, entries, t.bytes); err != nil {
		tmp.Close()
		return PackageResult{}, errors.Errorf("packing %s: %w", app.Name, err)
	}
	if err = tmp.Close(); err != nil {
		return PackageResult{}, errors.Errorf("closing container: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return PackageResult{}, errors.Errorf("setting mode on container: %w", err)
	}

	final := naming.Resolve(filepath.Join(intoDir, naming.Stem(app.Name)+".ipa"))
	if err = os.Rename(tmp.Name(), final); err != nil {
		return PackageResult{}, errors.Errorf("publishing %s: %w", filepath.Base(final), err)
	}

	t.complete()
	logger.Debug().Str("output", final).Int("entries", len(entries)).Msg("packaged application")
	return PackageResult{
		OutputName: filepath.Base(final),
		OutputPath: final,
		Entries:    len(entries),
		Bytes:      codec.TotalBytes(entries),
	}, nil
}
