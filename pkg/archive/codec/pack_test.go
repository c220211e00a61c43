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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackAndExtractRoundTrip(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	app := filepath.Join(dir, "Demo.app")
	require.NoError(t, os.MkdirAll(filepath.Join(app, "Frameworks"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(app, "Demo"), []byte("binary"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(app, "Frameworks", "lib.dylib"), []byte("library"), 0o644))
	require.NoError(t, os.Symlink("Demo", filepath.Join(app, "alias")))

	entries, err := Walk(ctx, app, "Payload/Demo.app")
	require.NoError(t, err)
	assert.Equal(t, int64(len("binary")+len("library")), TotalBytes(entries))

	var buf bytes.Buffer
	rec := &recorder{}
	require.NoError(t, ZipPacker{}.Pack(ctx, &buf, entries, rec.progress))
	rec.assertMonotonic(t)
	last := rec.calls[len(rec.calls)-1]
	assert.Equal(t, last[1], last[0], "pack progress should reach the total")

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range zr.File {
		assert.True(t, strings.HasPrefix(f.Name, "Payload/Demo.app"), "entry %s should live under Payload/Demo.app", f.Name)
		names[f.Name] = true
	}
	assert.True(t, names["Payload/Demo.app/"], "app directory entry should be present")
	assert.True(t, names["Payload/Demo.app/Frameworks/lib.dylib"])

	src := filepath.Join(dir, "Demo.ipa")
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0o644))
	dst := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(dst, 0o755))

	stats, err := zipCodec{}.Extract(ctx, src, dst, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(len("binary")+len("library")), stats.Bytes)

	info, err := os.Stat(filepath.Join(dst, "Payload", "Demo.app", "Demo"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm(), "executable bit should survive")

	link, err := os.Readlink(filepath.Join(dst, "Payload", "Demo.app", "alias"))
	require.NoError(t, err)
	assert.Equal(t, "Demo", link)
}

func TestPackHonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("a"), 0o644))

	ctx := testContext(t)
	entries, err := Walk(ctx, dir, "root")
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err = ZipPacker{}.Pack(cancelled, &bytes.Buffer{}, entries, nil)
	assert.Error(t, err)
}
