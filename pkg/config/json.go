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

package config

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🔧 JSONParser reads .bundlekit.json. A file holds exactly one object;
// unknown keys and trailing data are rejected.
type JSONParser struct{}

func init() {
	Register(&JSONParser{})
}

func (p *JSONParser) CanParse(filename string) bool {
	return strings.EqualFold(filepath.Ext(strings.TrimSpace(filename)), ".json")
}

// 📝 Parse decodes data into a Config. Blank input yields the zero Config so
// Validate can fill in defaults.
func (p *JSONParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	cfg := &Config{}
	if len(bytes.TrimSpace(data)) == 0 {
		zerolog.Ctx(ctx).Debug().Msg("empty JSON config, using defaults")
		return cfg, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, jsonError(data, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		line, col := position(data, dec.InputOffset())
		return nil, errors.Errorf("parsing JSON: unexpected data after the config object at line %d, column %d", line, col)
	}
	return cfg, nil
}

// jsonError points syntax and type errors at a line and column of data
func jsonError(data []byte, err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		// Offset counts the offending byte
		line, col := position(data, syntaxErr.Offset-1)
		return errors.Errorf("parsing JSON at line %d, column %d: %w", line, col, err)
	case errors.As(err, &typeErr):
		line, col := position(data, typeErr.Offset)
		return errors.Errorf("parsing JSON at line %d, column %d: field %q wants %s, got %s: %w",
			line, col, typeErr.Field, typeErr.Type, typeErr.Value, err)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return errors.Errorf("parsing JSON: truncated config: %w", err)
	}
	return errors.Errorf("parsing JSON: %w", err)
}

// position converts a byte offset into a 1-based line and column
func position(data []byte, offset int64) (int, int) {
	offset = min(max(offset, 0), int64(len(data)))
	before := data[:offset]
	line := bytes.Count(before, []byte("\n")) + 1
	return line, int(offset) - bytes.LastIndexByte(before, '\n')
}
