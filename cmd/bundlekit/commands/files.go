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

package commands

import (
	"io"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"
	"github.com/walteh/bundlekit/cmd/bundlekit/opts"
	"github.com/walteh/bundlekit/pkg/catalog"
	"github.com/walteh/bundlekit/pkg/fileops"
	"github.com/walteh/bundlekit/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// ErrItemsFailed is returned when a batch finished with failures
var ErrItemsFailed = errors.Base("some items failed")

// report prints a batch summary and turns failures into a non-zero exit
func report(o *opts.RootOpts, verb string, res fileops.BatchResult, err error) error {
	if err != nil {
		return errors.Errorf("%s: %w", verb, err)
	}
	o.UserLogger.LogBatch(verb, res)
	if !res.OK() {
		return errors.Errorf("%w: %d of %d", ErrItemsFailed, len(res.Failures), res.Total())
	}
	return nil
}

// NewListCmd creates the ls command
func NewListCmd(o *opts.RootOpts) *cobra.Command {
	var kinds []string

	cmd := &cobra.Command{
		Use:   "ls [dir]",
		Short: "List the items of a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}

			entries, err := catalog.List(ctx, o.Config.Resolve(dir), o.ListOptions()...)
			if err != nil {
				return err
			}

			for _, e := range entries {
				if len(kinds) > 0 && !slices.Contains(kinds, e.Kind.String()) {
					continue
				}
				o.Console.LogEntry(ctx, e)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&kinds, "kind", "k", nil, "only show these kinds (file, directory, archive, profile, p12, app, plist)")
	return cmd
}

// NewCopyCmd creates the cp command
func NewCopyCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "cp <item>... <dir>",
		Short: "Copy items into a directory",
		Long: `Copy duplicates every item into the destination directory.
Name collisions get a numbered suffix instead of overwriting.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			items, err := o.Entries(args[:len(args)-1])
			if err != nil {
				return err
			}

			res, err := o.Engine.Copy(ctx, items, o.Config.Resolve(args[len(args)-1])).Wait(ctx)
			return report(o, "copy", res, err)
		},
	}
}

// NewMoveCmd creates the mv command
func NewMoveCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <item>... <dir>",
		Short: "Move items into a directory",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			items, err := o.Entries(args[:len(args)-1])
			if err != nil {
				return err
			}

			res, err := o.Engine.Move(ctx, items, o.Config.Resolve(args[len(args)-1])).Wait(ctx)
			return report(o, "move", res, err)
		},
	}
}

// NewRemoveCmd creates the rm command
func NewRemoveCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <item>...",
		Short: "Delete items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			items, err := o.Entries(args)
			if err != nil {
				return err
			}

			if len(items) == 1 {
				if err := o.Engine.DeleteOne(ctx, items[0]); err != nil {
					return err
				}
				o.UserLogger.LogChange(status.Change{Type: status.ItemDeleted, Path: items[0].Path})
				return nil
			}

			res, err := o.Engine.DeleteMany(ctx, items).Wait(ctx)
			return report(o, "delete", res, err)
		},
	}
}

// NewRenameCmd creates the rename command
func NewRenameCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <item> <new-name>",
		Short: "Rename an item in place",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := o.Entry(args[0])
			if err != nil {
				return err
			}

			path, err := o.Engine.Rename(cmd.Context(), item, args[1])
			if err != nil {
				return err
			}
			o.UserLogger.LogChange(status.Change{
				Type:        status.ItemMoved,
				Path:        path,
				Description: "renamed from " + item.Name,
			})
			return nil
		},
	}
}

// NewMkdirCmd creates the mkdir command
func NewMkdirCmd(o *opts.RootOpts) *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:   "mkdir <name>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := o.Engine.CreateFolder(cmd.Context(), o.Config.Resolve(in), args[0])
			if err != nil {
				return err
			}
			o.UserLogger.LogChange(status.Change{Type: status.ItemCreated, Path: path})
			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "parent directory (default: root)")
	return cmd
}

// NewTouchCmd creates the touch command
func NewTouchCmd(o *opts.RootOpts) *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:   "touch <name>",
		Short: "Create an empty file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := o.Engine.CreateFile(cmd.Context(), o.Config.Resolve(in), args[0])
			if err != nil {
				return err
			}
			o.UserLogger.LogChange(status.Change{Type: status.ItemCreated, Path: path})
			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "parent directory (default: root)")
	return cmd
}

// NewImportCmd creates the import command
func NewImportCmd(o *opts.RootOpts) *cobra.Command {
	var into string

	cmd := &cobra.Command{
		Use:   "import <source>...",
		Short: "Copy files from outside the root into it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sources := make([]string, 0, len(args))
			for _, a := range args {
				abs, err := filepath.Abs(a)
				if err != nil {
					return errors.Errorf("resolving %s: %w", a, err)
				}
				sources = append(sources, abs)
			}

			res, err := o.Engine.ImportExternal(ctx, sources, o.Config.Resolve(into)).Wait(ctx)
			return report(o, "import", res, err)
		},
	}

	cmd.Flags().StringVar(&into, "into", "", "destination directory (default: root)")
	return cmd
}

// NewCatCmd creates the cat command
func NewCatCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <file>",
		Short: "Print a text file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := o.Entry(args[0])
			if err != nil {
				return err
			}
			text, err := o.Engine.ReadText(cmd.Context(), item)
			if err != nil {
				return err
			}
			_, err = io.WriteString(o.Out, text)
			return err
		},
	}
}

// NewWriteCmd creates the write command
func NewWriteCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "write <file>",
		Short: "Replace a text file with standard input",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := o.Entry(args[0])
			if err != nil {
				return err
			}
			content, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return errors.Errorf("reading input: %w", err)
			}
			if err := o.Engine.WriteText(cmd.Context(), item, string(content)); err != nil {
				return err
			}
			o.Console.Successf("saved %s", item.Name)
			return nil
		},
	}
}
