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
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"gitlab.com/tozd/go/errors"
)

// 📄 Entry is an immutable snapshot of one filesystem object
type Entry struct {
	Name      string      // Base name
	Path      string      // Absolute path, the identity of the entry
	Size      int64       // Size in bytes, 0 for directories
	CreatedAt *time.Time  // Birth time when the filesystem records one
	ModTime   time.Time   // Last modification time
	Mode      fs.FileMode // Mode bits as reported by stat
	Kind      Kind        // Classification computed at construction
}

// 🏭 NewEntry stats path and builds its Entry
func NewEntry(path string) (Entry, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Entry{}, errors.Errorf("resolving absolute path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Entry{}, errors.Errorf("reading metadata for %s: %w", abs, err)
	}
	return fromInfo(abs, info), nil
}

func fromInfo(path string, info fs.FileInfo) Entry {
	e := Entry{
		Name:    filepath.Base(path),
		Path:    path,
		ModTime: info.ModTime(),
		Mode:    info.Mode(),
		Kind:    Classify(info.Name(), info.IsDir()),
	}
	if !info.IsDir() {
		e.Size = info.Size()
	}
	if t, ok := birthTime(path, info); ok {
		e.CreatedAt = &t
	}
	return e
}

// Equal reports whether both entries refer to the same path
func (e Entry) Equal(other Entry) bool {
	return e.Path == other.Path
}

func (e Entry) IsDirectory() bool {
	return e.Kind == KindDirectory || e.Kind == KindApplicationDirectory
}

func (e Entry) IsArchive() bool              { return e.Kind == KindArchive }
func (e Entry) IsAuthorizationProfile() bool { return e.Kind == KindAuthorizationProfile }
func (e Entry) IsPrivateKeyContainer() bool  { return e.Kind == KindPrivateKeyContainer }
func (e Entry) IsApplicationDirectory() bool { return e.Kind == KindApplicationDirectory }
func (e Entry) IsPropertyList() bool         { return e.Kind == KindPropertyList }

// Dir returns the directory that contains the entry
func (e Entry) Dir() string {
	return filepath.Dir(e.Path)
}

// 📏 FormattedSize renders the size for display, empty for directories
func (e Entry) FormattedSize() string {
	if e.IsDirectory() {
		return ""
	}
	return humanize.Bytes(uint64(e.Size))
}
