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
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/walteh/bundlekit/pkg/catalog"
	"github.com/walteh/bundlekit/pkg/fileops"
)

// 🎨 Display configuration
const (
	entryIndent = 4  // spaces to indent entries
	nameWidth   = 35 // Base width for names
	kindWidth   = 10 // Width for entry kind
)

// 🎯 Logger prints user-facing lines to the console and mirrors them to zerolog
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex
}

// 🏭 New creates a new logger
func New(console io.Writer, level zerolog.Level) *Logger {
	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(level)
	return NewWithZerolog(console, zlog)
}

// 🏭 NewWithZerolog creates a logger mirroring to zlog
func NewWithZerolog(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context, discarding output when none is set
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return logger
	}
	return NewWithZerolog(io.Discard, zerolog.Nop())
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

func kindStyle(k catalog.Kind) (rune, color.Attribute) {
	switch k {
	case catalog.KindDirectory:
		return '▸', color.FgBlue
	case catalog.KindApplicationDirectory:
		return '◆', color.FgMagenta
	case catalog.KindArchive:
		return '▣', color.FgYellow
	case catalog.KindAuthorizationProfile, catalog.KindPrivateKeyContainer:
		return '✦', color.FgGreen
	case catalog.KindPropertyList:
		return '≡', color.FgCyan
	default:
		return '•', color.FgWhite
	}
}

// 📝 formatEntry formats a catalog entry for display
func (l *Logger) formatEntry(e catalog.Entry) string {
	symbol, symbolColor := kindStyle(e.Kind)
	name := e.Name
	if e.IsDirectory() {
		name += "/"
	}

	return fmt.Sprintf("%s%s %s %s %s",
		fmt.Sprintf("%*s", entryIndent, ""),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", nameWidth, name),
		color.New(color.Faint).Sprint(fmt.Sprintf("%-*s", kindWidth, e.Kind)),
		e.FormattedSize())
}

// 📝 LogEntry prints one directory entry
func (l *Logger) LogEntry(ctx context.Context, e catalog.Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintln(l.console, l.formatEntry(e))

	l.zlog.Debug().
		Str("path", e.Path).
		Str("kind", e.Kind.String()).
		Int64("size", e.Size).
		Msg("entry")
}

// 📝 LogResult prints every failure of a batch followed by a summary line
func (l *Logger) LogResult(ctx context.Context, verb string, r fileops.BatchResult) {
	l.mu.Lock()
	for _, f := range r.Failures {
		fmt.Fprintf(l.console, "%s%s %s %s\n",
			fmt.Sprintf("%*s", entryIndent, ""),
			color.New(color.FgRed).Sprint("✗"),
			fmt.Sprintf("%-*s", nameWidth, f.Name),
			f.Message)
		l.zlog.Warn().Str("item", f.Name).Err(f.Err).Msg(verb + " failed")
	}
	l.mu.Unlock()

	switch {
	case r.Total() == 0:
		l.Infof("nothing to %s", verb)
	case r.OK():
		l.Successf("%s %d of %d items", verb, r.SuccessCount, r.Total())
	default:
		l.Warningf("%s %d of %d items, %d failed", verb, r.SuccessCount, r.Total(), len(r.Failures))
	}
}

// 📝 LogNewline logs a newline
func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("bundlekit")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}
