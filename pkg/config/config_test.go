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
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

func TestLoad(t *testing.T) {
	t.Setenv("BUNDLEKIT_TEST_STORE", "/var/lib/bundlekit")

	tests := []struct {
		name        string
		file        string
		config      string
		wantErr     bool
		errContains string
		check       func(t *testing.T, dir string, cfg *Config)
	}{
		{
			name: "yaml_config",
			file: ".bundlekit.yaml",
			config: `
root: apps
store: keys
workers: 8
catalog:
  ignore:
    - .DS_Store
    - "._*"
archive:
  preserve_mode: true
certificates:
  default_password: hunter2
`,
			check: func(t *testing.T, dir string, cfg *Config) {
				assert.Equal(t, filepath.Join(dir, "apps"), cfg.Root, "relative root should resolve against the config file")
				assert.Equal(t, filepath.Join(dir, "apps", "keys"), cfg.Store, "relative store should resolve against root")
				assert.Equal(t, 8, cfg.Workers)
				assert.Equal(t, []string{".DS_Store", "._*"}, cfg.Catalog.Ignore)
				assert.True(t, cfg.Archive.PreserveMode)
				assert.Equal(t, "hunter2", cfg.Certificates.DefaultPassword)
				assert.Equal(t, filepath.Join(dir, ".bundlekit.yaml"), cfg.Location())
			},
		},
		{
			name: "hcl_config_with_env",
			file: ".bundlekit.hcl",
			config: `
store   = env.BUNDLEKIT_TEST_STORE
workers = 2

catalog {
  ignore = ["*.tmp"]
}

archive {
  preserve_mode = true
}
`,
			check: func(t *testing.T, dir string, cfg *Config) {
				assert.Equal(t, dir, cfg.Root, "root should default to the config directory")
				assert.Equal(t, "/var/lib/bundlekit", cfg.Store)
				assert.Equal(t, 2, cfg.Workers)
				assert.Equal(t, []string{"*.tmp"}, cfg.Catalog.Ignore)
				assert.True(t, cfg.Archive.PreserveMode)
			},
		},
		{
			name:   "json_config",
			file:   ".bundlekit.json",
			config: `{"workers": 3, "certificates": {"default_password": "x"}}`,
			check: func(t *testing.T, dir string, cfg *Config) {
				assert.Equal(t, 3, cfg.Workers)
				assert.Equal(t, "x", cfg.Certificates.DefaultPassword)
				assert.Equal(t, filepath.Join(dir, DefaultStoreDir), cfg.Store)
				assert.Equal(t, []string{".DS_Store"}, cfg.Catalog.Ignore, "ignore should default")
			},
		},
		{
			name:   "empty_yaml_uses_defaults",
			file:   ".bundlekit.yml",
			config: "",
			check: func(t *testing.T, dir string, cfg *Config) {
				assert.Equal(t, DefaultWorkers, cfg.Workers)
				assert.Equal(t, dir, cfg.Root)
			},
		},
		{
			name:        "yaml_unknown_field",
			file:        ".bundlekit.yaml",
			config:      "workers: 2\nprovider: github\n",
			wantErr:     true,
			errContains: "parsing YAML",
		},
		{
			name:        "json_unknown_field",
			file:        ".bundlekit.json",
			config:      `{"destination": "/tmp"}`,
			wantErr:     true,
			errContains: "parsing JSON",
		},
		{
			name:        "hcl_unknown_attribute",
			file:        ".bundlekit.hcl",
			config:      `clean = true`,
			wantErr:     true,
			errContains: "decoding HCL",
		},
		{
			name:        "hcl_syntax_error",
			file:        ".bundlekit.hcl",
			config:      `catalog {`,
			wantErr:     true,
			errContains: "parsing HCL",
		},
		{
			name:        "negative_workers",
			file:        ".bundlekit.yaml",
			config:      "workers: -1\n",
			wantErr:     true,
			errContains: "workers must not be negative",
		},
		{
			name:        "invalid_ignore_pattern",
			file:        ".bundlekit.yaml",
			config:      "catalog:\n  ignore: [\"[\"]\n",
			wantErr:     true,
			errContains: "invalid pattern",
		},
		{
			name:        "unsupported_extension",
			file:        "bundlekit.toml",
			config:      "workers = 1",
			wantErr:     true,
			errContains: "no parser found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext(t)
			dir := t.TempDir()
			path := filepath.Join(dir, tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.config), 0644), "writing config should succeed")

			cfg, err := Load(ctx, path)
			if tt.wantErr {
				require.Error(t, err, "loading should fail")
				assert.Contains(t, err.Error(), tt.errContains, "error should mention the cause")
				return
			}
			require.NoError(t, err, "loading should succeed")
			tt.check(t, dir, cfg)
		})
	}
}

func TestDiscover(t *testing.T) {
	ctx := testContext(t)

	t.Run("no_file", func(t *testing.T) {
		dir := t.TempDir()
		cfg, err := Discover(ctx, dir)
		require.NoError(t, err)
		assert.Equal(t, dir, cfg.Root)
		assert.Equal(t, DefaultWorkers, cfg.Workers)
		assert.Equal(t, filepath.Join(dir, DefaultStoreDir), cfg.Store)
		assert.Empty(t, cfg.Location())
		assert.Contains(t, cfg.String(), "from defaults")
	})

	t.Run("yaml_before_json", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".bundlekit.json"), []byte(`{"workers": 9}`), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".bundlekit.yaml"), []byte("workers: 5\n"), 0644))

		cfg, err := Discover(ctx, dir)
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.Workers)
	})
}

func TestResolve(t *testing.T) {
	cfg, err := Default("/srv/apps")
	require.NoError(t, err)

	assert.Equal(t, "/srv/apps", cfg.Resolve(""))
	assert.Equal(t, "/srv/apps/Demo.app", cfg.Resolve("Demo.app"))
	assert.Equal(t, "/tmp/x", cfg.Resolve("/tmp//x"))
}

func TestGetParser(t *testing.T) {
	assert.IsType(t, &YAMLParser{}, GetParser("a.YML"))
	assert.IsType(t, &HCLParser{}, GetParser(".bundlekit.hcl"))
	assert.IsType(t, &JSONParser{}, GetParser("x.json"))
	assert.IsType(t, &JSONParser{}, GetParser("X.JSON"))
	assert.Nil(t, GetParser("x.toml"))
}

func TestJSONParserErrors(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		errContains string
	}{
		{name: "syntax", data: "{\n  \"workers\": 2,\n  ]\n}", errContains: "line 3, column 3"},
		{name: "wrong_type", data: `{"workers": "four"}`, errContains: `field "workers" wants int, got string`},
		{name: "trailing_object", data: `{"workers": 2} {"workers": 3}`, errContains: "unexpected data after the config object"},
		{name: "truncated", data: `{"workers": 2`, errContains: "truncated config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&JSONParser{}).Parse(testContext(t), []byte(tt.data))
			require.Error(t, err, "parsing should fail")
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}

	t.Run("blank", func(t *testing.T) {
		cfg, err := (&JSONParser{}).Parse(testContext(t), []byte(" \n"))
		require.NoError(t, err)
		assert.Zero(t, cfg.Workers, "blank input should leave defaults to Validate")
	})
}

func TestHCLEnvironment(t *testing.T) {
	p := &HCLParser{Environ: func() []string { return []string{"ROOT=/data", "=ignored", "broken"} }}
	cfg, err := p.Parse(testContext(t), []byte(`root = env.ROOT`))
	require.NoError(t, err)
	assert.Equal(t, "/data", cfg.Root)
}
