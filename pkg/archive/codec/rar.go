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
	"os"
	"path"
	"strings"

	"github.com/javi11/rarlist"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 📚 rarCodec reassembles stored (uncompressed) RAR archives, including
// multi-volume sets. Compressed or encrypted content is refused.
type rarCodec struct{}

func (rarCodec) Name() string { return "rar" }

func (rarCodec) Match(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".rar")
}

func (rarCodec) Extract(ctx context.Context, src, dst string, progress Progress) (Stats, error) {
	logger := zerolog.Ctx(ctx)

	files, err := rarlist.ListFiles(src)
	if err != nil {
		if errors.Is(err, rarlist.ErrPasswordProtected) || errors.Is(err, rarlist.ErrCompressedNotSupported) {
			return Stats{}, errors.Errorf("%w: %s", ErrUnsupported, err)
		}
		return Stats{}, errors.Errorf("%w: indexing %s: %s", ErrCorrupt, src, err)
	}

	// names that prefix other names are directories
	dirs := map[string]bool{}
	var total int64
	for _, f := range files {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		for d := path.Dir(name); d != "." && d != "/"; d = path.Dir(d) {
			dirs[d] = true
		}
		total += f.TotalUnpackedSize
	}

	out := newOutput(dst)
	var done int64
	progress.report(0, total)

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return out.stats, err
		}
		if f.AnyEncrypted || !f.AllStored {
			return out.stats, errors.Errorf("%w: %s is compressed or encrypted", ErrUnsupported, f.Name)
		}

		name := strings.ReplaceAll(f.Name, "\\", "/")
		if dirs[name] {
			if err := out.dir(name, 0o755); err != nil {
				return out.stats, err
			}
			continue
		}

		logger.Debug().Str("entry", name).Int("parts", len(f.Parts)).Msg("extracting rar entry")
		r := &countingReader{r: partsReader(f.Parts), n: &done, total: total, fn: progress}
		if err := out.file(ctx, name, r, 0o644); err != nil {
			return out.stats, err
		}
	}

	return out.finish()
}

// partsReader concatenates the stored payload of every volume part
func partsReader(parts []rarlist.AggregatedFilePart) io.Reader {
	readers := make([]io.Reader, 0, len(parts))
	for _, p := range parts {
		readers = append(readers, &volumeSection{part: p})
	}
	return io.MultiReader(readers...)
}

// volumeSection opens its volume lazily and closes it at EOF
type volumeSection struct {
	part rarlist.AggregatedFilePart
	f    *os.File
	r    io.Reader
}

func (v *volumeSection) Read(p []byte) (int, error) {
	if v.r == nil {
		f, err := os.Open(v.part.Path)
		if err != nil {
			return 0, errors.Errorf("opening volume %s: %w", v.part.Path, err)
		}
		v.f = f
		v.r = io.NewSectionReader(f, v.part.DataOffset, v.part.PackedSize)
	}
	n, err := v.r.Read(p)
	if err == io.EOF && v.f != nil {
		v.f.Close()
		v.f = nil
	}
	return n, err
}
