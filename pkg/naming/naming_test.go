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

package naming

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644), "creating fixture should succeed")
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		input    string
		want     string
	}{
		{
			name:  "absent_path_unchanged",
			input: "report.txt",
			want:  "report.txt",
		},
		{
			name:     "first_collision",
			existing: []string{"report.txt"},
			input:    "report.txt",
			want:     "report (1).txt",
		},
		{
			name:     "skips_taken_counters",
			existing: []string{"report.txt", "report (1).txt", "report (2).txt"},
			input:    "report.txt",
			want:     "report (3).txt",
		},
		{
			name:     "no_extension",
			existing: []string{"Makefile"},
			input:    "Makefile",
			want:     "Makefile (1)",
		},
		{
			name:     "app_directory_name",
			existing: []string{"Foo.app"},
			input:    "Foo.app",
			want:     "Foo (1).app",
		},
		{
			name:     "dotfile_has_no_extension",
			existing: []string{".profile"},
			input:    ".profile",
			want:     ".profile (1)",
		},
		{
			name:     "compound_archive_keeps_last_extension",
			existing: []string{"a.tar.gz"},
			input:    "a.tar.gz",
			want:     "a.tar (1).gz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, e := range tt.existing {
				touch(t, filepath.Join(dir, e))
			}

			got := Resolve(filepath.Join(dir, tt.input))
			assert.Equal(t, filepath.Join(dir, tt.want), got, "resolved path should match")
			if len(tt.existing) > 0 {
				assert.False(t, Exists(got), "resolved path should not exist")
			}
		})
	}
}

func TestResolveIsIdempotentOnFreePath(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "free.bin")
	assert.Equal(t, p, Resolve(p))
	assert.Equal(t, Resolve(p), Resolve(Resolve(p)), "resolving a free path twice should not change it")
}

func TestResolveGivesUpAfterMaxAttempts(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "x.txt"))
	for n := 1; n <= MaxAttempts; n++ {
		touch(t, filepath.Join(dir, "x ("+strconv.Itoa(n)+").txt"))
	}

	got := Resolve(filepath.Join(dir, "x.txt"))
	assert.Equal(t, filepath.Join(dir, "x (999).txt"), got, "last attempted path should be returned")
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report:final.txt", "reportfinal.txt"},
		{`a/b\c`, "abc"},
		{`we?ird*<na>me|"x".txt`, "weirdnamex.txt"},
		{"plain.txt", "plain.txt"},
		{"///", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestStem(t *testing.T) {
	assert.Equal(t, "Foo", Stem("Foo.app"))
	assert.Equal(t, "bundle", Stem("bundle.tar.gz"))
	assert.Equal(t, "bundle", Stem("bundle.TAR.ZST"))
	assert.Equal(t, "App", Stem("App.ipa"))
	assert.Equal(t, "noext", Stem("noext"))
	assert.Equal(t, ".tar", Stem(".tar.gz"), "a bare compound suffix is not stripped whole")
}
