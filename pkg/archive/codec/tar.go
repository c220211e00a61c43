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
	"archive/tar"
	"compress/bzip2"
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/rs/zerolog"
	"github.com/ulikunitz/xz"
	"gitlab.com/tozd/go/errors"
)

// 🌊 decompressor wraps a compressed stream
type decompressor struct {
	suffixes []string
	open     func(io.Reader) (io.ReadCloser, error)
}

var tarVariants = []decompressor{
	{suffixes: []string{".tar.gz", ".tgz"}, open: openGzip},
	{suffixes: []string{".tar.zst", ".tzst"}, open: openZstd},
	{suffixes: []string{".tar.xz", ".txz"}, open: openXz},
	{suffixes: []string{".tar.bz2", ".tbz2"}, open: openBzip2},
	{suffixes: []string{".tar"}, open: func(r io.Reader) (io.ReadCloser, error) { return io.NopCloser(r), nil }},
}

func openGzip(r io.Reader) (io.ReadCloser, error) {
	return pgzip.NewReader(r)
}

func openZstd(r io.Reader) (io.ReadCloser, error) {
	d, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return d.IOReadCloser(), nil
}

func openXz(r io.Reader) (io.ReadCloser, error) {
	x, err := xz.NewReader(r)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(x), nil
}

func openBzip2(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(bzip2.NewReader(r)), nil
}

func variantFor(name string, variants []decompressor) (decompressor, bool) {
	lower := strings.ToLower(name)
	for _, v := range variants {
		for _, suffix := range v.suffixes {
			if strings.HasSuffix(lower, suffix) {
				return v, true
			}
		}
	}
	return decompressor{}, false
}

// 📼 tarCodec handles plain and compressed tarballs
type tarCodec struct{}

func (tarCodec) Name() string { return "tar" }

func (tarCodec) Match(name string) bool {
	_, ok := variantFor(name, tarVariants)
	return ok
}

func (tarCodec) Extract(ctx context.Context, src, dst string, progress Progress) (Stats, error) {
	logger := zerolog.Ctx(ctx)

	variant, ok := variantFor(src, tarVariants)
	if !ok {
		return Stats{}, errors.Errorf("%w: %s is not a tarball", ErrUnsupported, src)
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
	counted := &countingReader{r: f, n: &consumed, total: info.Size(), fn: progress}
	stream, err := variant.open(counted)
	if err != nil {
		return Stats{}, errors.Errorf("%w: opening stream %s: %s", ErrCorrupt, src, err)
	}
	closeStream := sync.OnceFunc(func() { _ = stream.Close() })
	defer closeStream()

	progress.report(0, info.Size())
	out := newOutput(dst)
	tr := tar.NewReader(stream)
	for {
		if err := ctx.Err(); err != nil {
			return out.stats, err
		}

		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return out.stats, errors.Errorf("%w: reading tar header: %s", ErrCorrupt, err)
		}

		logger.Debug().Str("entry", hdr.Name).Int("type", int(hdr.Typeflag)).Msg("extracting tar entry")
		mode := hdr.FileInfo().Mode()

		switch hdr.Typeflag {
		case tar.TypeDir:
			err = out.dir(hdr.Name, mode)
		case tar.TypeReg:
			err = out.file(ctx, hdr.Name, tr, mode)
		case tar.TypeSymlink:
			err = out.symlink(hdr.Name, hdr.Linkname)
		case tar.TypeLink:
			err = out.hardlink(hdr.Name, hdr.Linkname)
		case tar.TypeXGlobalHeader, tar.TypeXHeader:
			continue
		default:
			logger.Debug().Str("entry", hdr.Name).Msg("skipping special tar entry")
			continue
		}
		if err != nil {
			return out.stats, err
		}
	}

	// decompressors may read ahead on their own goroutines
	closeStream()
	progress.report(info.Size(), info.Size())
	return out.finish()
}
