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

	"github.com/rs/zerolog"
	"github.com/walteh/bundlekit/pkg/dispatch"
	"gitlab.com/tozd/go/errors"
)

// 📥 ImportExternal copies sources from outside the managed tree into dstDir.
// Each source is opened under a scoped access token. When the direct copy
// fails the bytes are read and written again under a freshly claimed name
// before the item is given up. A taken name is never overwritten.
func (e *Engine) ImportExternal(ctx context.Context, sources []string, dstDir string) *dispatch.Future[BatchResult] {
	return e.batch(ctx, "import", len(sources), func(ctx context.Context) BatchResult {
		return Batch(ctx, e.workers, sources, filepath.Base, func(ctx context.Context, src string) error {
			return e.importOne(ctx, src, dstDir)
		})
	})
}

func (e *Engine) importOne(ctx context.Context, src, dstDir string) error {
	name := filepath.Base(src)
	logger := zerolog.Ctx(ctx).With().Str("path", src).Logger()

	token, err := e.accessor.Acquire(ctx, src)
	if err != nil {
		return &SourceNotAccessibleError{Name: name, Err: err}
	}
	defer token.Release()

	if _, err := os.Stat(src); err != nil {
		return &SourceNotAccessibleError{Name: name, Err: err}
	}

	final, copyErr := copyResolved(ctx, src, dstDir, name)
	if copyErr == nil {
		logger.Debug().Str("destination", final).Msg("imported item")
		return nil
	}
	if errors.Is(copyErr, ErrTargetExists) || ctx.Err() != nil {
		return errors.Errorf("importing %s: %w", name, copyErr)
	}

	logger.Debug().Err(copyErr).Msg("direct copy failed, falling back to raw write")
	data, err := os.ReadFile(src)
	if err != nil {
		return errors.Errorf("importing %s: copy failed (%s) and read failed: %w", name, copyErr, err)
	}
	if final, err = writeExclusive(dstDir, name, data); err != nil {
		return errors.Errorf("importing %s: copy failed (%s) and write failed: %w", name, copyErr, err)
	}

	logger.Debug().Str("destination", final).Msg("imported item through raw write")
	return nil
}
