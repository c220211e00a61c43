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
	"strings"
	"unicode/utf8"

	"github.com/natefinch/atomic"
	"github.com/rs/zerolog"
	"github.com/walteh/bundlekit/pkg/catalog"
	"gitlab.com/tozd/go/errors"
)

var ErrNotText = errors.Base("file is not valid UTF-8 text")

// 📖 ReadText loads item as UTF-8 text
func (e *Engine) ReadText(ctx context.Context, item catalog.Entry) (string, error) {
	if item.IsDirectory() {
		return "", errors.Errorf("%w: %s is a directory", ErrUnsupportedType, item.Name)
	}
	data, err := os.ReadFile(item.Path)
	if err != nil {
		return "", errors.Errorf("reading %s: %w", item.Name, err)
	}
	if !utf8.Valid(data) {
		return "", errors.Errorf("%w: %s", ErrNotText, item.Name)
	}
	zerolog.Ctx(ctx).Debug().Str("path", item.Path).Int("bytes", len(data)).Msg("read text")
	return string(data), nil
}

// 💾 WriteText atomically replaces item's content, keeping its permission bits
func (e *Engine) WriteText(ctx context.Context, item catalog.Entry, content string) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(item.Path); err == nil {
		mode = info.Mode().Perm()
	}

	if err := atomic.WriteFile(item.Path, strings.NewReader(content)); err != nil {
		return errors.Errorf("writing %s: %w", item.Name, err)
	}
	if err := os.Chmod(item.Path, mode); err != nil {
		return errors.Errorf("restoring permissions on %s: %w", item.Name, err)
	}
	zerolog.Ctx(ctx).Debug().Str("path", item.Path).Int("bytes", len(content)).Msg("wrote text")
	return nil
}
