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

package fileops

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/walteh/bundlekit/pkg/naming"
	"gitlab.com/tozd/go/errors"
)

const modBits = fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky

// 📋 CopyTree copies src to dst, recursing into directories. Permission bits,
// modification times and symlinks are preserved. dst must not exist; when the
// copy fails part way whatever was written under dst is removed.
func CopyTree(ctx context.Context, src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return errors.Errorf("reading %s: %w", src, err)
	}
	if _, err := os.Lstat(dst); err == nil {
		return errors.Errorf("%w: %s", ErrTargetExists, dst)
	}

	if err := copyEntry(ctx, src, dst, info); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return errors.Errorf("%w: %s", ErrTargetExists, dst)
		}
		_ = os.RemoveAll(dst)
		return err
	}
	return nil
}

// maxClaimAttempts bounds how often a destination name is resolved again
// after another writer took it first
const maxClaimAttempts = 8

// copyResolved copies src to a free name derived from dstDir/name. A name
// taken between resolution and creation is resolved again.
func copyResolved(ctx context.Context, src, dstDir, name string) (string, error) {
	var err error
	for range maxClaimAttempts {
		final := naming.Resolve(filepath.Join(dstDir, name))
		if err = copyPath(ctx, src, final); !errors.Is(err, ErrTargetExists) {
			return final, err
		}
	}
	return "", err
}

// writeExclusive stores data under a free name derived from dstDir/name,
// never replacing an existing file
func writeExclusive(dstDir, name string, data []byte) (string, error) {
	for range maxClaimAttempts {
		final := naming.Resolve(filepath.Join(dstDir, name))
		f, err := os.OpenFile(final, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", errors.Errorf("creating %s: %w", final, err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			_ = os.Remove(final)
			return "", errors.Errorf("writing %s: %w", final, err)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(final)
			return "", errors.Errorf("closing %s: %w", final, err)
		}
		return final, nil
	}
	return "", errors.Errorf("%w: %s", ErrTargetExists, filepath.Join(dstDir, name))
}

func copyEntry(ctx context.Context, src, dst string, info fs.FileInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch mode := info.Mode(); {
	case mode&fs.ModeSymlink != 0:
		target, err := os.Readlink(src)
		if err != nil {
			return errors.Errorf("reading link %s: %w", src, err)
		}
		if err := os.Symlink(target, dst); err != nil {
			return errors.Errorf("creating link %s: %w", dst, err)
		}
		return nil
	case mode.IsDir():
		if err := copyDirectory(ctx, src, dst); err != nil {
			return err
		}
	case mode.IsRegular():
		if err := copyFileContent(src, dst); err != nil {
			return err
		}
	default:
		return errors.Errorf("%w: %s (%s)", ErrUnsupportedType, src, mode.Type())
	}

	return setAttributes(dst, info)
}

func copyDirectory(ctx context.Context, src, dst string) error {
	if err := os.Mkdir(dst, 0o700); err != nil {
		return errors.Errorf("creating directory %s: %w", dst, err)
	}

	children, err := os.ReadDir(src)
	if err != nil {
		return errors.Errorf("reading directory %s: %w", src, err)
	}
	for _, child := range children {
		childInfo, err := child.Info()
		if err != nil {
			return errors.Errorf("reading %s: %w", filepath.Join(src, child.Name()), err)
		}
		if err := copyEntry(ctx, filepath.Join(src, child.Name()), filepath.Join(dst, child.Name()), childInfo); err != nil {
			return err
		}
	}
	return nil
}

func copyFileContent(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Errorf("opening source file: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return errors.Errorf("creating destination file: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Errorf("copying file content: %w", err)
	}
	if err := out.Close(); err != nil {
		return errors.Errorf("closing destination file: %w", err)
	}
	return nil
}

// set permission bits and modification time on targetPath
func setAttributes(targetPath string, info fs.FileInfo) error {
	if err := os.Chmod(targetPath, info.Mode()&modBits); err != nil && !os.IsPermission(err) {
		return errors.Errorf("changing permissions on %s: %w", targetPath, err)
	}
	if err := os.Chtimes(targetPath, info.ModTime(), info.ModTime()); err != nil && !os.IsPermission(err) {
		return errors.Errorf("changing times on %s: %w", targetPath, err)
	}
	return nil
}
