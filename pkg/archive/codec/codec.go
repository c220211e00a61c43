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

// Package codec unpacks archive containers and writes distributable zips.
package codec

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"gitlab.com/tozd/go/errors"
)

var (
	ErrUnsafePath  = errors.Base("archive entry escapes the extraction root")
	ErrUnsupported = errors.Base("unsupported archive content")
	ErrCorrupt     = errors.Base("corrupt archive")
)

// 📈 Progress receives the work done so far against the expected total.
// Both values are in bytes of the unit the codec measures.
type Progress func(done, total int64)

func (p Progress) report(done, total int64) {
	if p != nil {
		p(done, total)
	}
}

// 📊 Stats summarises an extraction
type Stats struct {
	Entries int   // Files, directories and links created
	Bytes   int64 // Uncompressed bytes written
}

// 🔌 Codec extracts one family of archive formats
type Codec interface {
	// Name identifies the codec in logs
	Name() string
	// Match reports whether the codec handles the given file name
	Match(name string) bool
	// Extract unpacks src into the existing directory dst
	Extract(ctx context.Context, src, dst string, progress Progress) (Stats, error)
}

var (
	mu     sync.RWMutex
	codecs []Codec
)

// 📝 Register registers a codec. Codecs registered first win ties.
func Register(c Codec) {
	mu.Lock()
	defer mu.Unlock()
	codecs = append(codecs, c)
}

// 🎯 ForName returns the codec that handles name
func ForName(name string) (Codec, bool) {
	mu.RLock()
	defer mu.RUnlock()
	for _, c := range codecs {
		if c.Match(name) {
			return c, true
		}
	}
	return nil, false
}

func init() {
	Register(zipCodec{})
	Register(tarCodec{})
	Register(streamCodec{})
	Register(rarCodec{})
}

// 🛡️ SafeJoin joins an archive entry name onto root, refusing absolute
// names and names that climb out of root.
func SafeJoin(root, name string) (string, error) {
	clean := strings.ReplaceAll(name, "\\", "/")
	if clean == "" || strings.HasPrefix(clean, "/") || filepath.IsAbs(clean) || filepath.VolumeName(clean) != "" {
		return "", errors.Errorf("%w: %q", ErrUnsafePath, name)
	}

	target := filepath.Join(root, filepath.FromSlash(clean))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return target, nil
}

// checkLink refuses symlink targets that leave root. parent must already be
// resolved on disk. ".." is only allowed as a leading run so the link can never
// climb back out through another link.
func checkLink(root, parent, target string) error {
	unsafe := errors.Errorf("%w: link in %s points to %q", ErrUnsafePath, parent, target)
	slashed := filepath.ToSlash(target)
	if slashed == "" || strings.HasPrefix(slashed, "/") || filepath.IsAbs(target) {
		return unsafe
	}

	climbing := true
	for _, part := range strings.Split(slashed, "/") {
		switch part {
		case "", ".":
		case "..":
			if !climbing {
				return unsafe
			}
		default:
			climbing = false
		}
	}

	rel, err := filepath.Rel(root, filepath.Join(parent, filepath.FromSlash(slashed)))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return unsafe
	}
	return nil
}

// 🔢 countingReader adds the bytes read through it to a shared counter
type countingReader struct {
	r     io.Reader
	n     *int64
	total int64
	fn    Progress
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		*c.n += int64(n)
		c.fn.report(*c.n, c.total)
	}
	return n, err
}

// ctxReader fails reads once ctx is done
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
