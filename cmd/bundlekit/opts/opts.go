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

package opts

import (
	"context"
	"io"

	"github.com/walteh/bundlekit/pkg/archive"
	"github.com/walteh/bundlekit/pkg/catalog"
	"github.com/walteh/bundlekit/pkg/certificate"
	"github.com/walteh/bundlekit/pkg/config"
	"github.com/walteh/bundlekit/pkg/dispatch"
	"github.com/walteh/bundlekit/pkg/fileops"
	"github.com/walteh/bundlekit/pkg/identitystore"
	"github.com/walteh/bundlekit/pkg/log"
	"github.com/walteh/bundlekit/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// RootOpts contains shared options used by all commands
type RootOpts struct {
	Config     *config.Config
	Console    *log.Logger
	UserLogger *status.UserLogger

	Loop      *dispatch.Loop
	Runner    *dispatch.Runner
	Engine    *fileops.Engine
	Archive   *archive.Service
	Validator *certificate.Validator
	Store     *identitystore.Store

	Out io.Writer
	Err io.Writer
}

// ListOptions returns the catalog options the config asks for
func (o *RootOpts) ListOptions() []catalog.ListOption {
	return []catalog.ListOption{catalog.WithIgnorePatterns(o.Config.Catalog.Ignore...)}
}

// Entry snapshots the item at path, resolved against the configured root
func (o *RootOpts) Entry(path string) (catalog.Entry, error) {
	entry, err := catalog.NewEntry(o.Config.Resolve(path))
	if err != nil {
		return catalog.Entry{}, errors.Errorf("reading %s: %w", path, err)
	}
	return entry, nil
}

// Entries snapshots every path, failing on the first unreadable one
func (o *RootOpts) Entries(paths []string) ([]catalog.Entry, error) {
	entries := make([]catalog.Entry, 0, len(paths))
	for _, p := range paths {
		e, err := o.Entry(p)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// WithLoggers returns ctx carrying the console logger
func (o *RootOpts) WithLoggers(ctx context.Context) context.Context {
	return log.NewContext(ctx, o.Console)
}

// Close waits for outstanding jobs and stops the completion loop
func (o *RootOpts) Close() {
	if o.Runner != nil {
		o.Runner.Drain()
	}
	if o.Loop != nil {
		o.Loop.Close()
	}
}
