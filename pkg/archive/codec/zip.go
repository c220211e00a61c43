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

package codec

import (
	"context"
	"io"
	"io/fs"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🗜️ zipCodec handles zip based containers, including application packages
type zipCodec struct{}

func (zipCodec) Name() string { return "zip" }

func (zipCodec) Match(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range []string{".zip", ".ipa", ".tipa"} {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

func (zipCodec) Extract(ctx context.Context, src, dst string, progress Progress) (Stats, error) {
	logger := zerolog.Ctx(ctx)

	r, err := zip.OpenReader(src)
	if err != nil {
		return Stats{}, errors.Errorf("%w: opening zip %s: %s", ErrCorrupt, src, err)
	}
	defer r.Close()

	var total int64
	for _, f := range r.File {
		if !f.FileInfo().IsDir() {
			total += int64(f.UncompressedSize64)
		}
	}

	out := newOutput(dst)
	var done int64
	progress.report(0, total)

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return out.stats, err
		}

		info := f.FileInfo()
		mode := info.Mode()
		logger.Debug().Str("entry", f.Name).Str("mode", mode.String()).Msg("extracting zip entry")

		switch {
		case info.IsDir() || strings.HasSuffix(f.Name, "/"):
			err = out.dir(f.Name, mode)
		case mode&fs.ModeSymlink != 0:
			err = extractZipLink(out, f)
			done += int64(f.UncompressedSize64)
			progress.report(done, total)
		default:
			err = extractZipFile(ctx, out, f, &done, total, progress)
		}
		if err != nil {
			return out.stats, err
		}
	}

	return out.finish()
}

func extractZipFile(ctx context.Context, out *output, f *zip.File, done *int64, total int64, progress Progress) error {
	rc, err := f.Open()
	if err != nil {
		return errors.Errorf("%w: opening entry %s: %s", ErrCorrupt, f.Name, err)
	}
	defer rc.Close()

	return out.file(ctx, f.Name, &countingReader{r: rc, n: done, total: total, fn: progress}, f.Mode())
}

func extractZipLink(out *output, f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		return errors.Errorf("%w: opening link %s: %s", ErrCorrupt, f.Name, err)
	}
	defer rc.Close()

	target, err := io.ReadAll(io.LimitReader(rc, 4096))
	if err != nil {
		return errors.Errorf("%w: reading link %s: %s", ErrCorrupt, f.Name, err)
	}
	return out.symlink(f.Name, string(target))
}
