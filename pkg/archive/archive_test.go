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

package archive

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/bundlekit/pkg/archive/codec"
	"github.com/walteh/bundlekit/pkg/catalog"
	"github.com/walteh/bundlekit/pkg/dispatch"
	"gitlab.com/tozd/go/errors"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
	return logger.WithContext(context.Background())
}

func entry(t *testing.T, path string) catalog.Entry {
	t.Helper()
	e, err := catalog.NewEntry(path)
	require.NoError(t, err, "building entry should succeed")
	return e
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func makeApp(t *testing.T, dir string) string {
	t.Helper()
	app := filepath.Join(dir, "Demo.app")
	require.NoError(t, os.MkdirAll(filepath.Join(app, "PlugIns", "Share.appex"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(app, "Demo"), []byte(strings.Repeat("b", 4096)), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(app, "Info.plist"), []byte("<plist/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(app, "PlugIns", "Share.appex", "Share"), []byte("ext"), 0o755))
	return app
}

// 📈 fractions collects progress reports
type fractions struct {
	mu     sync.Mutex
	values []float64
}

func (f *fractions) add(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = append(f.values, v)
}

func (f *fractions) assertComplete(t *testing.T) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.values, "progress should be reported")
	for i := 1; i < len(f.values); i++ {
		assert.GreaterOrEqual(t, f.values[i], f.values[i-1], "progress should never go backwards")
	}
	for _, v := range f.values[:len(f.values)-1] {
		assert.Less(t, v, 1.0, "only the final report may be 1.0")
	}
	assert.Equal(t, 1.0, f.values[len(f.values)-1], "progress should end at exactly 1.0")
}

func assertNoLeftovers(t *testing.T, dir string) {
	t.Helper()
	leftovers, err := filepath.Glob(filepath.Join(dir, ".bundlekit-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "temporary output should be removed")
}

func newLoopService(t *testing.T) *Service {
	loop := dispatch.NewLoop()
	t.Cleanup(loop.Close)
	return New(Options{Runner: dispatch.NewRunner(loop, true), ProgressInterval: 1})
}

func TestExtract(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "Demo.zip")
	writeZip(t, src, map[string]string{
		"Payload/Demo.app/Info.plist": "<plist/>",
		"Payload/Demo.app/Demo":       strings.Repeat("x", 10000),
		"README.txt":                  "read me",
	})

	svc := newLoopService(t)
	progress := &fractions{}
	job, err := svc.Extract(ctx, entry(t, src), dir, progress.add)
	require.NoError(t, err)

	res, err := job.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Demo", res.OutputName)
	assert.Equal(t, filepath.Join(dir, "Demo"), res.OutputPath)
	assert.Equal(t, int64(10000+len("<plist/>")+len("read me")), res.Bytes)

	got, err := os.ReadFile(filepath.Join(dir, "Demo", "README.txt"))
	require.NoError(t, err)
	assert.Equal(t, "read me", string(got))
	assert.FileExists(t, filepath.Join(dir, "Demo", "Payload", "Demo.app", "Demo"))

	progress.assertComplete(t)
	assertNoLeftovers(t, dir)
	assert.False(t, svc.Active(), "guard should clear after delivery")
}

func TestExtractDisambiguatesOutput(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "bundle.zip")
	writeZip(t, src, map[string]string{"a.txt": "a"})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "bundle"), 0o755))

	svc := New(Options{})
	job, err := svc.Extract(ctx, entry(t, src), dir, nil)
	require.NoError(t, err)
	res, err := job.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bundle (1)", res.OutputName)

	entries, err := os.ReadDir(filepath.Join(dir, "bundle"))
	require.NoError(t, err)
	assert.Empty(t, entries, "existing directory should be untouched")
}

func TestExtractFailureLeavesNothing(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "evil.zip")
	writeZip(t, src, map[string]string{"good.txt": "fine", "../../escape.txt": "bad"})

	svc := New(Options{})
	job, err := svc.Extract(ctx, entry(t, src), dir, nil)
	require.NoError(t, err, "preconditions hold, the job itself fails")

	_, err = job.Wait(ctx)
	require.Error(t, err)
	assert.NoDirExists(t, filepath.Join(dir, "evil"))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dir), "escape.txt"))
	assertNoLeftovers(t, dir)
	assert.False(t, svc.Active())
}

func TestExtractCorruptArchive(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.tar.gz")
	require.NoError(t, os.WriteFile(src, []byte("nope"), 0o644))

	svc := New(Options{})
	job, err := svc.Extract(ctx, entry(t, src), dir, nil)
	require.NoError(t, err)
	_, err = job.Wait(ctx)
	assert.True(t, errors.Is(err, codec.ErrCorrupt), "unexpected error: %v", err)
	assertNoLeftovers(t, dir)
}

func TestExtractPreconditions(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("n"), 0o644))

	svc := New(Options{})
	job, err := svc.Extract(ctx, entry(t, filepath.Join(dir, "notes.txt")), dir, nil)
	assert.Nil(t, job)
	assert.True(t, errors.Is(err, ErrNotAnArchive))
	assert.False(t, svc.Active(), "a rejected request should not take the guard")
}

func TestExtractCancelled(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "Demo.zip")
	writeZip(t, src, map[string]string{"a.txt": "a"})

	ctx, cancel := context.WithCancel(testContext(t))
	cancel()

	svc := New(Options{})
	job, err := svc.Extract(ctx, entry(t, src), dir, nil)
	require.NoError(t, err)
	_, err = job.Wait(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoDirExists(t, filepath.Join(dir, "Demo"))
	assertNoLeftovers(t, dir)
}

func TestSingleActiveJob(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "Demo.zip")
	writeZip(t, src, map[string]string{"a.txt": strings.Repeat("a", 1024)})
	app := makeApp(t, dir)

	started := make(chan struct{})
	gate := make(chan struct{})
	var once sync.Once
	blocking := func(float64) {
		once.Do(func() {
			close(started)
			<-gate
		})
	}

	svc := New(Options{Runner: dispatch.NewRunner(dispatch.Inline(), true)})
	job, err := svc.Extract(ctx, entry(t, src), dir, blocking)
	require.NoError(t, err)
	<-started
	assert.True(t, svc.Active())

	_, err = svc.Extract(ctx, entry(t, src), dir, nil)
	assert.True(t, errors.Is(err, ErrJobActive), "second extraction should be rejected")
	_, err = svc.Package(ctx, entry(t, app), dir, nil)
	assert.True(t, errors.Is(err, ErrJobActive), "packaging should be rejected while extracting")

	close(gate)
	_, err = job.Wait(ctx)
	require.NoError(t, err)
	assert.False(t, svc.Active())

	next, err := svc.Package(ctx, entry(t, app), dir, nil)
	require.NoError(t, err, "guard should be free again")
	_, err = next.Wait(ctx)
	require.NoError(t, err)
}

func TestPackage(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	app := makeApp(t, dir)
	out := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(out, 0o755))

	svc := newLoopService(t)
	progress := &fractions{}
	job, err := svc.Package(ctx, entry(t, app), out, progress.add)
	require.NoError(t, err)
	res, err := job.Wait(ctx)
	require.NoError(t, err)

	assert.Equal(t, "Demo.ipa", res.OutputName)
	progress.assertComplete(t)
	assertNoLeftovers(t, out)

	zr, err := zip.OpenReader(res.OutputPath)
	require.NoError(t, err)
	defer zr.Close()
	names := map[string]bool{}
	for _, f := range zr.File {
		assert.True(t, strings.HasPrefix(f.Name, "Payload/"), "entry %s should be under Payload/", f.Name)
		names[f.Name] = true
	}
	assert.True(t, names["Payload/"])
	assert.True(t, names["Payload/Demo.app/"])
	assert.True(t, names["Payload/Demo.app/Info.plist"])
	assert.True(t, names["Payload/Demo.app/PlugIns/Share.appex/Share"])

	again, err := svc.Package(ctx, entry(t, app), out, nil)
	require.NoError(t, err)
	res2, err := again.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Demo (1).ipa", res2.OutputName, "an earlier package should not be overwritten")
}

func TestPackageRequiresApplicationDirectory(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	plain := filepath.Join(dir, "Plain")
	require.NoError(t, os.Mkdir(plain, 0o755))
	out := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(out, 0o755))

	svc := New(Options{})
	job, err := svc.Package(ctx, entry(t, plain), out, nil)
	assert.Nil(t, job)
	assert.True(t, errors.Is(err, ErrNotAnApplicationDirectory))

	created, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, created, "no output file should be created")
}

func TestPackageThenExtractRoundTrip(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	app := makeApp(t, dir)
	out := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(out, 0o755))

	svc := New(Options{PreserveMode: true})
	job, err := svc.Package(ctx, entry(t, app), out, nil)
	require.NoError(t, err)
	pkg, err := job.Wait(ctx)
	require.NoError(t, err)

	extract, err := svc.Extract(ctx, entry(t, pkg.OutputPath), out, nil)
	require.NoError(t, err)
	res, err := extract.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Demo", res.OutputName)

	info, err := os.Stat(filepath.Join(res.OutputPath, "Payload", "Demo.app", "Demo"))
	require.NoError(t, err)
	assert.Equal(t, int64(4096), info.Size())
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}
