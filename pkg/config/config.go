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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

const (
	DefaultWorkers  = 4
	DefaultStoreDir = ".bundlekit/identities"
)

// FileNames are the config files Discover looks for, in order
var FileNames = []string{".bundlekit.yaml", ".bundlekit.yml", ".bundlekit.hcl", ".bundlekit.json"}

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 📂 CatalogArgs configures directory listings
type CatalogArgs struct {
	Ignore []string `json:"ignore,omitempty" yaml:"ignore,omitempty"` // Doublestar patterns hidden from listings
}

// 📦 ArchiveArgs configures extraction and packaging
type ArchiveArgs struct {
	PreserveMode bool `json:"preserve_mode,omitempty" yaml:"preserve_mode,omitempty"` // Keep file modes when packaging
}

// 🔑 CertificateArgs configures certificate import
type CertificateArgs struct {
	DefaultPassword string `json:"default_password,omitempty" yaml:"default_password,omitempty"` // Tried when no password is given
}

// 📚 Config represents the complete configuration
type Config struct {
	Root         string          `json:"root,omitempty" yaml:"root,omitempty"`
	Store        string          `json:"store,omitempty" yaml:"store,omitempty"`
	Workers      int             `json:"workers,omitempty" yaml:"workers,omitempty"`
	Catalog      CatalogArgs     `json:"catalog,omitempty" yaml:"catalog,omitempty"`
	Archive      ArchiveArgs     `json:"archive,omitempty" yaml:"archive,omitempty"`
	Certificates CertificateArgs `json:"certificates,omitempty" yaml:"certificates,omitempty"`

	location string
}

// 🏭 Default returns a validated config rooted at root
func Default(root string) (*Config, error) {
	cfg := &Config{Root: root}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// 🔎 Discover loads the first config file found in dir, or defaults rooted
// at dir when there is none
func Discover(ctx context.Context, dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(ctx, path)
		}
	}
	zerolog.Ctx(ctx).Debug().Str("dir", dir).Msg("no config file, using defaults")
	return Default(dir)
}

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	// Read config file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	// Get parser
	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	// Parse config
	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}
	cfg.location = path

	// Relative roots are relative to the config file
	if cfg.Root == "" {
		cfg.Root = filepath.Dir(path)
	} else if !filepath.IsAbs(cfg.Root) {
		cfg.Root = filepath.Join(filepath.Dir(path), cfg.Root)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// 🔍 Validate checks the configuration and fills defaults
func (cfg *Config) Validate() error {
	if cfg.Workers < 0 {
		return errors.Errorf("workers must not be negative, got %d", cfg.Workers)
	}
	for _, pattern := range cfg.Catalog.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return errors.Errorf("catalog.ignore: invalid pattern %q", pattern)
		}
	}

	// Clean up paths
	if cfg.Root == "" {
		cfg.Root = "."
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return errors.Errorf("resolving root: %w", err)
	}
	cfg.Root = root

	if cfg.Store == "" {
		cfg.Store = filepath.Join(cfg.Root, DefaultStoreDir)
	} else if !filepath.IsAbs(cfg.Store) {
		cfg.Store = filepath.Join(cfg.Root, cfg.Store)
	}
	cfg.Store = filepath.Clean(cfg.Store)

	// Set defaults
	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Catalog.Ignore == nil {
		cfg.Catalog.Ignore = []string{".DS_Store"}
	}

	return nil
}

// Location returns the file the config was loaded from, empty for defaults
func (cfg *Config) Location() string {
	return cfg.location
}

// Resolve joins relative paths onto Root
func (cfg *Config) Resolve(path string) string {
	if path == "" {
		return cfg.Root
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(cfg.Root, path)
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	src := cfg.location
	if src == "" {
		src = "defaults"
	}
	return fmt.Sprintf("%s (workers=%d, store=%s, ignore=[%s]) from %s",
		cfg.Root, cfg.Workers, cfg.Store, strings.Join(cfg.Catalog.Ignore, ","), src)
}
