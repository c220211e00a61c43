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
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	securejoin "github.com/cyphar/filepath-securejoin"
	"gitlab.com/tozd/go/errors"
)

const modBits = fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky

// 🏗️ output materialises archive entries below root
type output struct {
	root     string
	dirModes map[string]fs.FileMode
	stats    Stats
}

func newOutput(root string) *output {
	return &output{root: root, dirModes: map[string]fs.FileMode{}}
}

// resolve maps name below root, following links extracted earlier without
// ever leaving root
func (o *output) resolve(name string) (string, error) {
	lexical, err := SafeJoin(o.root, name)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(o.root, lexical)
	if err != nil {
		return "", errors.Errorf("%w: %q", ErrUnsafePath, name)
	}
	target, err := securejoin.SecureJoin(o.root, rel)
	if err != nil {
		return "", errors.Errorf("%w: resolving %q: %s", ErrUnsafePath, name, err)
	}
	return target, nil
}

// resolveParent resolves the directory of name but keeps its last element, so
// an entry replaces an existing link instead of writing through it
func (o *output) resolveParent(name string) (string, string, error) {
	lexical, err := SafeJoin(o.root, name)
	if err != nil {
		return "", "", err
	}
	parent := o.root
	if filepath.Dir(lexical) != o.root {
		rel, err := filepath.Rel(o.root, filepath.Dir(lexical))
		if err != nil {
			return "", "", errors.Errorf("%w: %q", ErrUnsafePath, name)
		}
		if parent, err = securejoin.SecureJoin(o.root, rel); err != nil {
			return "", "", errors.Errorf("%w: resolving %q: %s", ErrUnsafePath, name, err)
		}
	}
	return parent, filepath.Join(parent, filepath.Base(lexical)), nil
}

func (o *output) dir(name string, mode fs.FileMode) error {
	target, err := o.resolve(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return errors.Errorf("creating directory %s: %w", name, err)
	}
	if mode&fs.ModePerm != 0 {
		o.dirModes[target] = mode & modBits
	}
	o.stats.Entries++
	return nil
}

func (o *output) file(ctx context.Context, name string, r io.Reader, mode fs.FileMode) error {
	target, err := o.resolve(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.Errorf("creating parent of %s: %w", name, err)
	}

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return errors.Errorf("creating %s: %w", name, err)
	}
	n, err := io.Copy(f, ctxReader{ctx: ctx, r: r})
	if err != nil {
		f.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Errorf("%w: writing %s: %s", ErrCorrupt, name, err)
	}
	if err := f.Close(); err != nil {
		return errors.Errorf("closing %s: %w", name, err)
	}

	perm := mode & modBits
	if perm&fs.ModePerm == 0 {
		perm |= 0o644
	}
	if err := os.Chmod(target, perm); err != nil {
		return errors.Errorf("setting mode on %s: %w", name, err)
	}

	o.stats.Entries++
	o.stats.Bytes += n
	return nil
}

func (o *output) symlink(name, linkTarget string) error {
	parent, target, err := o.resolveParent(name)
	if err != nil {
		return err
	}
	if err := checkLink(o.root, parent, linkTarget); err != nil {
		return err
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return errors.Errorf("creating parent of %s: %w", name, err)
	}
	_ = os.Remove(target)
	if err := os.Symlink(linkTarget, target); err != nil {
		return errors.Errorf("creating link %s: %w", name, err)
	}
	o.stats.Entries++
	return nil
}

func (o *output) hardlink(name, existing string) error {
	parent, target, err := o.resolveParent(name)
	if err != nil {
		return err
	}
	source, err := o.resolve(existing)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return errors.Errorf("creating parent of %s: %w", name, err)
	}
	_ = os.Remove(target)
	if err := os.Link(source, target); err != nil {
		return errors.Errorf("linking %s: %w", name, err)
	}
	o.stats.Entries++
	return nil
}

// finish applies directory modes deepest first so writable parents stay
// writable until their children are done
func (o *output) finish() (Stats, error) {
	dirs := make([]string, 0, len(o.dirModes))
	for d := range o.dirModes {
		dirs = append(dirs, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
	for _, d := range dirs {
		if err := os.Chmod(d, o.dirModes[d]); err != nil {
			return o.stats, errors.Errorf("setting mode on %s: %w", d, err)
		}
	}
	return o.stats, nil
}
