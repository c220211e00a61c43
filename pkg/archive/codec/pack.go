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
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 📦 PackEntry is one source object and its slash separated name in the archive
type PackEntry struct {
	Name string      // Archive name, directories without trailing slash
	Path string      // Source path on disk
	Info fs.FileInfo // Lstat result for Path
}

// 🗜️ ZipPacker writes zip containers
type ZipPacker struct {
	// Method is the compression method for regular files, zip.Deflate when zero
	Method uint16
	// NormalizeModes stores 0755 for directories and executables and 0644 for
	// everything else instead of the source permission bits
	NormalizeModes bool
}

// Walk collects pack entries for everything below dir, prefixing names with prefix
func Walk(ctx context.Context, dir, prefix string) ([]PackEntry, error) {
	var entries []PackEntry
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		name := prefix
		if rel != "." {
			name = strings.TrimSuffix(prefix, "/") + "/" + filepath.ToSlash(rel)
		}
		if name == "" {
			return nil
		}
		entries = append(entries, PackEntry{Name: name, Path: p, Info: info})
		return nil
	})
	if err != nil {
		return nil, errors.Errorf("walking %s: %w", dir, err)
	}
	return entries, nil
}

// TotalBytes sums the sizes of the regular files among entries
func TotalBytes(entries []PackEntry) int64 {
	var total int64
	for _, e := range entries {
		if e.Info.Mode().IsRegular() {
			total += e.Info.Size()
		}
	}
	return total
}

// 📦 Pack writes entries to w as a zip archive. Progress counts source bytes.
func (p ZipPacker) Pack(ctx context.Context, w io.Writer, entries []PackEntry, progress Progress) error {
	logger := zerolog.Ctx(ctx)
	method := p.Method
	if method == 0 {
		method = zip.Deflate
	}

	total := TotalBytes(entries)
	var done int64
	progress.report(0, total)

	zw := zip.NewWriter(w)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return err
		}

		hdr, err := zip.FileInfoHeader(e.Info)
		if err != nil {
			zw.Close()
			return errors.Errorf("building header for %s: %w", e.Name, err)
		}
		hdr.Name = e.Name
		logger.Debug().Str("entry", e.Name).Msg("packing entry")

		mode := e.Info.Mode()
		if p.NormalizeModes {
			hdr.SetMode(normalizedMode(mode))
		}
		switch {
		case mode.IsDir():
			hdr.Name = strings.TrimSuffix(e.Name, "/") + "/"
			hdr.Method = zip.Store
			_, err = zw.CreateHeader(hdr)
		case mode&fs.ModeSymlink != 0:
			err = packLink(zw, hdr, e)
		case mode.IsRegular():
			hdr.Method = method
			err = packFile(ctx, zw, hdr, e, &done, total, progress)
		default:
			logger.Debug().Str("entry", e.Name).Msg("skipping special file")
			continue
		}
		if err != nil {
			zw.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return errors.Errorf("finishing zip: %w", err)
	}
	return nil
}

func packFile(ctx context.Context, zw *zip.Writer, hdr *zip.FileHeader, e PackEntry, done *int64, total int64, progress Progress) error {
	f, err := os.Open(e.Path)
	if err != nil {
		return errors.Errorf("opening %s: %w", e.Path, err)
	}
	defer f.Close()

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return errors.Errorf("writing header for %s: %w", e.Name, err)
	}
	if _, err := io.Copy(w, ctxReader{ctx: ctx, r: &countingReader{r: f, n: done, total: total, fn: progress}}); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Errorf("packing %s: %w", e.Name, err)
	}
	return nil
}

func packLink(zw *zip.Writer, hdr *zip.FileHeader, e PackEntry) error {
	target, err := os.Readlink(e.Path)
	if err != nil {
		return errors.Errorf("reading link %s: %w", e.Path, err)
	}
	hdr.Method = zip.Store
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return errors.Errorf("writing header for %s: %w", e.Name, err)
	}
	if _, err := io.WriteString(w, target); err != nil {
		return errors.Errorf("writing link %s: %w", e.Name, err)
	}
	return nil
}

func normalizedMode(mode fs.FileMode) fs.FileMode {
	switch {
	case mode.IsDir():
		return fs.ModeDir | 0o755
	case mode&fs.ModeSymlink != 0:
		return mode
	case mode&0o111 != 0:
		return 0o755
	default:
		return 0o644
	}
}
