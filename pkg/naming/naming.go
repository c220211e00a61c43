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

// Package naming produces collision-free destination paths and safe file names.
package naming

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxAttempts bounds the counter search in Resolve
const MaxAttempts = 999

// 🚫 invalidChars are stripped from user supplied names
const invalidChars = `/:?*<>|"\`

// compoundExts are archive suffixes treated as a single extension by Stem
var compoundExts = []string{".tar.gz", ".tar.zst", ".tar.xz", ".tar.bz2"}

// 🔍 Exists reports whether anything (file, directory or dangling symlink) lives at path
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// 🎯 Resolve returns candidate unchanged when nothing exists there, otherwise the first
// "name (n).ext" sibling that does not exist. After MaxAttempts tries, the last attempted
// path is returned as is.
func Resolve(candidate string) string {
	if !Exists(candidate) {
		return candidate
	}

	dir := filepath.Dir(candidate)
	base, ext := SplitExt(filepath.Base(candidate))

	var attempt string
	for n := 1; n <= MaxAttempts; n++ {
		attempt = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", base, n, ext))
		if !Exists(attempt) {
			return attempt
		}
	}
	return attempt
}

// ✂️ SplitExt splits name at its last extension. A leading dot does not start an
// extension, so ".profile" has none.
func SplitExt(name string) (string, string) {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 {
		return name, ""
	}
	return name[:idx], name[idx:]
}

// 🧹 Sanitize strips the characters that are not allowed in file names
func Sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidChars, r) {
			return -1
		}
		return r
	}, name)
}

// 📛 Stem returns name without its extension, treating compound archive suffixes
// such as ".tar.gz" as one extension.
func Stem(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range compoundExts {
		if strings.HasSuffix(lower, ext) && len(name) > len(ext) {
			return name[:len(name)-len(ext)]
		}
	}
	base, _ := SplitExt(name)
	return base
}
