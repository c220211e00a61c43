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

// Package text applies literal find-and-replace rules to the text files of a tree.
package text

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/bundlekit/pkg/catalog"
	"github.com/walteh/bundlekit/pkg/fileops"
)

// 📝 Rule replaces every occurrence of From with To in files matching Glob
type Rule struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
	Glob string `json:"glob,omitempty" yaml:"glob,omitempty"` // Slash path relative to the tree root; empty matches every file
}

// Matches reports whether the rule applies to rel
func (r Rule) Matches(rel string) bool {
	if r.Glob == "" {
		return true
	}
	ok, err := doublestar.Match(r.Glob, filepath.ToSlash(rel))
	return err == nil && ok
}

// Result is the outcome of applying rules to one text
type Result struct {
	Content string
	Count   int
}

// Modified reports whether any rule matched
func (r Result) Modified() bool {
	return r.Count > 0
}

// 🔄 Replace applies rules to content in order. Rules with an empty From are skipped.
func Replace(content string, rules []Rule) Result {
	res := Result{Content: content}
	for _, rule := range rules {
		if rule.From == "" {
			continue
		}
		if n := strings.Count(res.Content, rule.From); n > 0 {
			res.Count += n
			res.Content = strings.ReplaceAll(res.Content, rule.From, rule.To)
		}
	}
	return res
}

// ✅ ValidateRules rejects rules without a search text or with a malformed glob
func ValidateRules(rules []Rule) error {
	if len(rules) == 0 {
		return errors.New("no replacement rules")
	}
	for i, rule := range rules {
		if rule.From == "" {
			return errors.Errorf("rule %d: from is required", i)
		}
		if rule.Glob != "" && !doublestar.ValidatePattern(rule.Glob) {
			return errors.Errorf("rule %d: invalid glob %q", i, rule.Glob)
		}
	}
	return nil
}

// Editor reads and replaces text files
type Editor interface {
	ReadText(ctx context.Context, item catalog.Entry) (string, error)
	WriteText(ctx context.Context, item catalog.Entry, content string) error
}

// FileChange records the replacements made in one file
type FileChange struct {
	Path  string
	Count int
}

// 📊 Report accounts for an Apply run
type Report struct {
	Changes []FileChange // Files rewritten, sorted by path
	Batch   fileops.BatchResult
}

// 🚀 Apply rewrites every text file under root that a rule matches. Files that
// are not UTF-8 text are left alone.
func Apply(ctx context.Context, ed Editor, root string, rules []Rule, workers int) (Report, error) {
	if err := ValidateRules(rules); err != nil {
		return Report{}, err
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return Report{}, errors.Errorf("resolving root: %w", err)
	}
	matches, err := doublestar.Glob(os.DirFS(abs), "**", doublestar.WithFilesOnly())
	if err != nil {
		return Report{}, errors.Errorf("walking %s: %w", abs, err)
	}

	type target struct {
		rel   string
		rules []Rule
	}
	targets := make([]target, 0, len(matches))
	for _, rel := range matches {
		var applicable []Rule
		for _, rule := range rules {
			if rule.Matches(rel) {
				applicable = append(applicable, rule)
			}
		}
		if len(applicable) > 0 {
			targets = append(targets, target{rel: rel, rules: applicable})
		}
	}

	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("root", abs).Int("files", len(targets)).Msg("applying replacements")

	var (
		mu      sync.Mutex
		changes []FileChange
	)
	batch := fileops.Batch(ctx, workers, targets, func(t target) string { return t.rel }, func(ctx context.Context, t target) error {
		entry, err := catalog.NewEntry(filepath.Join(abs, filepath.FromSlash(t.rel)))
		if err != nil {
			return err
		}
		content, err := ed.ReadText(ctx, entry)
		if errors.Is(err, fileops.ErrNotText) {
			logger.Debug().Str("path", entry.Path).Msg("skipping binary file")
			return nil
		}
		if err != nil {
			return err
		}

		res := Replace(content, t.rules)
		if !res.Modified() {
			return nil
		}
		if err := ed.WriteText(ctx, entry, res.Content); err != nil {
			return err
		}

		mu.Lock()
		changes = append(changes, FileChange{Path: entry.Path, Count: res.Count})
		mu.Unlock()
		return nil
	})

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return Report{Changes: changes, Batch: batch}, nil
}
