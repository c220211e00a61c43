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

package status

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"

	"github.com/walteh/bundlekit/pkg/certificate"
	"github.com/walteh/bundlekit/pkg/fileops"
)

// 🎨 ChangeType represents what happened to an item
type ChangeType int

const (
	ItemCreated ChangeType = iota
	ItemCopied
	ItemMoved
	ItemDeleted
	ItemSkipped
	ItemFailed
)

// 🖼️ Change is one item-level event shown to the user
type Change struct {
	Type        ChangeType
	Path        string
	Description string
	Error       error
}

// 📢 UserLogger provides user-friendly feedback about jobs
type UserLogger struct {
	log zerolog.Logger // for debug/error logging
	out io.Writer
}

// 🎯 NewUserLogger creates a new user logger writing to out
func NewUserLogger(ctx context.Context, out io.Writer) *UserLogger {
	return &UserLogger{
		log: *zerolog.Ctx(ctx),
		out: out,
	}
}

func (u *UserLogger) printer(base pterm.PrefixPrinter, prefix string) *pterm.PrefixPrinter {
	return base.WithPrefix(pterm.Prefix{Text: prefix, Style: base.Prefix.Style}).WithWriter(u.out)
}

// 📝 LogChange logs an item change with appropriate emoji and formatting
func (u *UserLogger) LogChange(change Change) {
	name := filepath.Base(change.Path)

	var action string
	var printer *pterm.PrefixPrinter
	switch change.Type {
	case ItemCreated:
		action = "Created"
		printer = u.printer(pterm.Success, "✨")
	case ItemCopied:
		action = "Copied"
		printer = u.printer(pterm.Success, "📄")
	case ItemMoved:
		action = "Moved"
		printer = u.printer(pterm.Info, "🔄")
	case ItemDeleted:
		action = "Deleted"
		printer = u.printer(pterm.Warning, "🗑️")
	case ItemSkipped:
		action = "Skipped"
		printer = u.printer(pterm.Info, "⏭️")
	default:
		action = "Failed"
		printer = u.printer(pterm.Error, "❌")
	}

	msg := fmt.Sprintf("%s %s", action, name)
	if change.Description != "" {
		msg += fmt.Sprintf(" (%s)", change.Description)
	}

	printer.Println(msg)
	if change.Error != nil {
		u.log.Error().Err(change.Error).Str("path", change.Path).Msg(msg)
	} else {
		u.log.Debug().Str("path", change.Path).Msg(msg)
	}
}

// 📊 LogBatch prints every failure of r and its summary
func (u *UserLogger) LogBatch(verb string, r fileops.BatchResult) {
	for _, f := range r.Failures {
		u.LogChange(Change{Type: ItemFailed, Path: f.Name, Description: f.Message, Error: f.Err})
	}
	summary := FormatBatch(verb, r)
	if r.OK() {
		u.printer(pterm.Success, "📦").Println(summary)
		u.log.Info().Int("ok", r.SuccessCount).Msg(verb)
		return
	}
	u.printer(pterm.Warning, "📦").Println(summary)
	u.log.Warn().Int("ok", r.SuccessCount).Int("failed", len(r.Failures)).Msg(verb)
}

// 🔑 LogOutcome prints a certificate import outcome
func (u *UserLogger) LogOutcome(o certificate.Outcome) {
	msg := FormatOutcome(o)
	switch o.State {
	case certificate.StateSucceeded:
		u.printer(pterm.Success, "✅").Println(msg)
		u.log.Info().Str("id", o.IdentityID).Msg("certificate imported")
	case certificate.StateAwaitingPassword:
		u.printer(pterm.Warning, "🔑").Println(msg)
		u.log.Warn().Str("profile", o.ProfilePath).Msg("certificate password rejected")
	default:
		u.printer(pterm.Error, "❌").Println(msg)
		u.log.Error().Err(o.Err).Msg("certificate import failed")
	}
}
