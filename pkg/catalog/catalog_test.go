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

package catalog

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

func writeTree(t *testing.T, root string, files map[string]string, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0755), "creating dir should succeed")
	}
	for name, content := range files {
		p := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755), "creating parent should succeed")
		require.NoError(t, os.WriteFile(p, []byte(content), 0644), "writing file should succeed")
	}
}

func TestList(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"beta.txt":                 "12345",
		"Alpha.zip":                "zip",
		"cert.p12":                 "p12",
		"dev.mobileprovision":      "profile",
		"Info.plist":               "plist",
		"gamma.tar.gz":             "tgz",
		"Payload/Foo.app/Info.txt": "nested",
	}, "Docs", "Demo.app")

	entries, err := List(ctx, dir)
	require.NoError(t, err, "listing should succeed")

	names := make([]string, 0, len(entries))
	kinds := map[string]Kind{}
	for _, e := range entries {
		names = append(names, e.Name)
		kinds[e.Name] = e.Kind
		assert.True(t, filepath.IsAbs(e.Path), "path should be absolute")
	}

	assert.Equal(t, []string{
		"Alpha.zip", "beta.txt", "cert.p12", "Demo.app", "dev.mobileprovision",
		"Docs", "gamma.tar.gz", "Info.plist", "Payload",
	}, names, "entries should be sorted case-insensitively")

	assert.Equal(t, KindArchive, kinds["Alpha.zip"])
	assert.Equal(t, KindArchive, kinds["gamma.tar.gz"])
	assert.Equal(t, KindPlainFile, kinds["beta.txt"])
	assert.Equal(t, KindPrivateKeyContainer, kinds["cert.p12"])
	assert.Equal(t, KindAuthorizationProfile, kinds["dev.mobileprovision"])
	assert.Equal(t, KindApplicationDirectory, kinds["Demo.app"])
	assert.Equal(t, KindDirectory, kinds["Docs"])
	assert.Equal(t, KindPropertyList, kinds["Info.plist"])

	for _, e := range entries {
		switch e.Name {
		case "beta.txt":
			assert.Equal(t, int64(5), e.Size, "file size should be recorded")
			assert.Equal(t, "5 B", e.FormattedSize())
		case "Docs", "Demo.app":
			assert.Zero(t, e.Size, "directories have no size")
			assert.True(t, e.IsDirectory())
			assert.Empty(t, e.FormattedSize())
		}
	}
}

func TestListNamesAreUniqueAndSorted(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"b": "", "B.txt": "", "a": "", "C": "", "c.md": ""})

	entries, err := List(ctx, dir)
	require.NoError(t, err)

	seen := map[string]bool{}
	for i, e := range entries {
		assert.False(t, seen[e.Name], "names should be unique")
		seen[e.Name] = true
		if i > 0 {
			prev := strings.ToLower(entries[i-1].Name)
			assert.LessOrEqual(t, prev, strings.ToLower(e.Name), "entries should be ascending")
		}
	}
}

func TestListUnreadableDirectory(t *testing.T) {
	ctx := testContext(t)
	_, err := List(ctx, filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDirectoryUnreadable), "error should be ErrDirectoryUnreadable")
}

func TestListIgnorePatterns(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{".DS_Store": "", "._junk": "", "keep.txt": ""})

	entries, err := List(ctx, dir, WithIgnorePatterns(".DS_Store", "._*"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "keep.txt", entries[0].Name)
}

// 🔧 flakyFS fails Stat for chosen names
type flakyFS struct {
	osFS
	fail map[string]bool
}

func (f flakyFS) Stat(name string) (fs.FileInfo, error) {
	if f.fail[filepath.Base(name)] {
		return nil, errors.New("stat failed")
	}
	return f.osFS.Stat(name)
}

func TestListSkipsEntriesWithUnreadableMetadata(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"good.txt": "", "bad.txt": ""})

	entries, err := List(ctx, dir, WithFileSystem(flakyFS{fail: map[string]bool{"bad.txt": true}}))
	require.NoError(t, err, "a failing child should not fail the listing")
	require.Len(t, entries, 1)
	assert.Equal(t, "good.txt", entries[0].Name)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		isDir bool
		want  Kind
	}{
		{"App.IPA", false, KindArchive},
		{"bundle.tar.zst", false, KindArchive},
		{"thing.rar", false, KindArchive},
		{"Identity.PFX", false, KindPrivateKeyContainer},
		{"x.app", false, KindPlainFile},
		{"x.app", true, KindApplicationDirectory},
		{".app", true, KindDirectory},
		{"folder.zip", true, KindDirectory},
		{"notes", false, KindPlainFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.name, tt.isDir))
		})
	}
}

func TestEntryEqualityIsByPath(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.txt": "1"})

	first, err := NewEntry(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("1234"), 0644))
	second, err := NewEntry(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)

	assert.True(t, first.Equal(second), "entries with the same path should be equal")
	assert.NotEqual(t, first.Size, second.Size, "snapshots should not be mutated in place")
}

func TestFilter(t *testing.T) {
	entries := []Entry{
		{Name: "a.mobileprovision", Kind: KindAuthorizationProfile},
		{Name: "b.txt", Kind: KindPlainFile},
		{Name: "c.mobileprovision", Kind: KindAuthorizationProfile},
	}
	got := Filter(entries, KindAuthorizationProfile)
	require.Len(t, got, 2)
	assert.Equal(t, "a.mobileprovision", got[0].Name)
	assert.Equal(t, "c.mobileprovision", got[1].Name)
}
