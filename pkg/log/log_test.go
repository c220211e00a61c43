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

package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/bundlekit/pkg/catalog"
	"github.com/walteh/bundlekit/pkg/fileops"
)

func testLogger(t *testing.T) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return NewWithZerolog(buf, zerolog.New(zerolog.NewTestWriter(t))), buf
}

func lines(buf *bytes.Buffer) []string {
	output := strings.TrimSpace(buf.String())
	out := []string{}
	for _, line := range strings.Split(output, "\n") {
		out = append(out, strings.TrimSpace(line))
	}
	return out
}

func TestLogger(t *testing.T) {
	// Disable color for testing
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name     string
		op       func(t *testing.T, logger *Logger)
		wantLogs []string
	}{
		{
			name: "log_messages",
			op: func(t *testing.T, logger *Logger) {
				logger.Info("info message")
				logger.Warning("warning message")
				logger.Error("error message")
				logger.Success("success message")
			},
			wantLogs: []string{
				"ℹ️  info message",
				"⚠️  warning message",
				"❌ error message",
				"✅ success message",
			},
		},
		{
			name: "log_formatted_messages",
			op: func(t *testing.T, logger *Logger) {
				logger.Infof("info %s", "test")
				logger.Warningf("warning %s", "test")
				logger.Errorf("error %s", "test")
				logger.Successf("success %s", "test")
			},
			wantLogs: []string{
				"ℹ️  info test",
				"⚠️  warning test",
				"❌ error test",
				"✅ success test",
			},
		},
		{
			name: "log_header",
			op: func(t *testing.T, logger *Logger) {
				logger.Header("extracting Demo.ipa")
			},
			wantLogs: []string{
				"bundlekit • extracting Demo.ipa",
			},
		},
		{
			name: "log_newline",
			op: func(t *testing.T, logger *Logger) {
				logger.Info("first")
				logger.LogNewline()
				logger.Info("second")
			},
			wantLogs: []string{
				"ℹ️  first",
				"",
				"ℹ️  second",
			},
		},
		{
			name: "log_result_all_ok",
			op: func(t *testing.T, logger *Logger) {
				logger.LogResult(context.Background(), "copied", fileops.BatchResult{SuccessCount: 3})
			},
			wantLogs: []string{
				"✅ copied 3 of 3 items",
			},
		},
		{
			name: "log_result_partial",
			op: func(t *testing.T, logger *Logger) {
				logger.LogResult(context.Background(), "imported", fileops.BatchResult{
					SuccessCount: 2,
					Failures: []fileops.Failure{{
						Name:    "b.txt",
						Message: "Source file not accessible: b.txt",
						Err:     errors.New("denied"),
					}},
				})
			},
			wantLogs: []string{
				fmt.Sprintf("✗ %-35s %s", "b.txt", "Source file not accessible: b.txt"),
				"⚠️  imported 2 of 3 items, 1 failed",
			},
		},
		{
			name: "log_result_empty",
			op: func(t *testing.T, logger *Logger) {
				logger.LogResult(context.Background(), "delete", fileops.BatchResult{})
			},
			wantLogs: []string{
				"ℹ️  nothing to delete",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := testLogger(t)

			// Perform operation
			tt.op(t, logger)

			// Check output
			got := lines(buf)
			require.Equal(t, len(tt.wantLogs), len(got), "number of log lines should match")
			for i, want := range tt.wantLogs {
				assert.Equal(t, want, got[i], "log line %d should match", i)
			}
		})
	}
}

func TestLoggerContext(t *testing.T) {
	logger := New(io.Discard, zerolog.InfoLevel)

	ctx := NewContext(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx), "logger from context should be the same instance")

	assert.NotPanics(t, func() {
		FromContext(context.Background()).Info("dropped")
	}, "a missing logger should fall back to a silent one")
}

func TestEntryFormatting(t *testing.T) {
	// Disable color for testing
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name  string
		entry catalog.Entry
		want  string
	}{
		{
			name:  "plain_file",
			entry: catalog.Entry{Name: "notes.txt", Kind: catalog.KindPlainFile, Size: 5},
			want:  fmt.Sprintf("• %-35s %-10s %s", "notes.txt", "file", "5 B"),
		},
		{
			name:  "archive",
			entry: catalog.Entry{Name: "Demo.ipa", Kind: catalog.KindArchive, Size: 2048},
			want:  fmt.Sprintf("▣ %-35s %-10s %s", "Demo.ipa", "archive", "2.0 kB"),
		},
		{
			name:  "application_directory",
			entry: catalog.Entry{Name: "Demo.app", Kind: catalog.KindApplicationDirectory},
			want:  strings.TrimSpace(fmt.Sprintf("◆ %-35s %-10s", "Demo.app/", "app")),
		},
		{
			name:  "directory",
			entry: catalog.Entry{Name: "Docs", Kind: catalog.KindDirectory},
			want:  strings.TrimSpace(fmt.Sprintf("▸ %-35s %-10s", "Docs/", "directory")),
		},
		{
			name:  "private_key_container",
			entry: catalog.Entry{Name: "dev.p12", Kind: catalog.KindPrivateKeyContainer, Size: 1},
			want:  fmt.Sprintf("✦ %-35s %-10s %s", "dev.p12", "p12", "1 B"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := testLogger(t)
			logger.LogEntry(context.Background(), tt.entry)
			assert.Equal(t, tt.want, strings.TrimSpace(buf.String()), "formatted output should match")
		})
	}
}
