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
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

var streamVariants = []decompressor{
	{suffixes: []string{".gz"}, open: openGzip},
	{suffixes: []string{".zst"}, open: openZstd},
	{suffixes: []string{".xz"}, open: openXz},
	{suffixes: []string{".bz2"}, open: openBzip2},
}

// 💧 streamCodec decompresses a single compressed file
type streamCodec struct{}

func (streamCodec) Name() string { return "stream" }

func (streamCodec) Match(name string) bool {
	if (tarCodec{}).Match(name) {
		return false
	}
	_, ok := variantFor(name, streamVariants)
	return ok
}

func (streamCodec) Extract(ctx context.Context, src, dst string, progress Progress) (Stats, error) {
	variant, ok := variantFor(src, streamVariants)
	if !ok {
		return Stats{}, errors.Errorf("%w: %s is not a compressed stream", ErrUnsupported, src)
	}

	base := filepath.Base(src)
	name := base[:len(base)-len(filepath.Ext(base))]
	if strings.TrimSpace(name) == "" {
		name = "content"
	}

	f, err := os.Open(src)
	if err != nil {
		return Stats{}, errors.Errorf("opening %s: %w", src, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Stats{}, errors.Errorf("reading %s: %w", src, err)
	}

	var consumed int64
	stream, err := variant.open(&countingReader{r: f, n: &consumed, total: info.Size(), fn: progress})
	if err != nil {
		return Stats{}, errors.Errorf("%w: opening stream %s: %s", ErrCorrupt, src, err)
	}
	closeStream := sync.OnceFunc(func() { _ = stream.Close() })
	defer closeStream()

	zerolog.Ctx(ctx).Debug().Str("entry", name).Msg("decompressing stream")
	out := newOutput(dst)
	if err := out.file(ctx, name, stream, info.Mode()); err != nil {
		return out.stats, err
	}
	closeStream()
	progress.report(info.Size(), info.Size())
	return out.finish()
}
