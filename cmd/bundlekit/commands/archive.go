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
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/walteh/bundlekit/cmd/bundlekit/opts"
	"github.com/walteh/bundlekit/pkg/bundle"
	"github.com/walteh/bundlekit/pkg/catalog"
	"github.com/walteh/bundlekit/pkg/status"
)

// progressFlags holds the flags shared by extract and package
type progressFlags struct {
	into  string
	quiet bool
}

func (f *progressFlags) add(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.into, "into", "", "output directory (default: next to the input)")
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "hide the progress bar")
}

// bar starts a progress bar unless quiet. The returned stop is always safe to call.
func (f *progressFlags) bar(o *opts.RootOpts, title string) (func(float64), func(), error) {
	if f.quiet {
		return nil, func() {}, nil
	}
	b, err := status.NewBar(title, o.Err)
	if err != nil {
		return nil, nil, err
	}
	return b.Update, b.Stop, nil
}

func (f *progressFlags) dir(o *opts.RootOpts, input catalog.Entry) string {
	if f.into == "" {
		return input.Dir()
	}
	return o.Config.Resolve(f.into)
}

func describe(entries int, bytes int64) string {
	return fmt.Sprintf("%d entries, %s", entries, humanize.Bytes(uint64(bytes)))
}

// NewExtractCmd creates the extract command
func NewExtractCmd(o *opts.RootOpts) *cobra.Command {
	var flags progressFlags

	cmd := &cobra.Command{
		Use:   "extract <archive>",
		Short: "Unpack an archive into a new folder",
		Long: `Extract unpacks zip, ipa, tar (optionally gzip, bzip2, xz or zstd compressed),
single-stream compressed files and stored rar sets into a folder named after the
archive. An existing folder of that name is never overwritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			entry, err := o.Entry(args[0])
			if err != nil {
				return err
			}

			update, stop, err := flags.bar(o, "Extracting "+entry.Name)
			if err != nil {
				return err
			}
			defer stop()

			fut, err := o.Archive.Extract(ctx, entry, flags.dir(o, entry), update)
			if err != nil {
				return err
			}
			res, err := fut.Wait(ctx)
			stop()
			if err != nil {
				return err
			}

			o.UserLogger.LogChange(status.Change{
				Type:        status.ItemCreated,
				Path:        res.OutputPath,
				Description: describe(res.Entries, res.Bytes),
			})
			return nil
		},
	}

	flags.add(cmd)
	return cmd
}

// NewPackageCmd creates the package command
func NewPackageCmd(o *opts.RootOpts) *cobra.Command {
	var flags progressFlags

	cmd := &cobra.Command{
		Use:   "package <app-or-dir>",
		Short: "Package an application directory as an .ipa",
		Long: `Package stores an .app directory under Payload/ in a new .ipa container.
When given a plain directory the single application inside it is packaged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			app, err := o.Entry(args[0])
			if err != nil {
				return err
			}
			if app.Kind != catalog.KindApplicationDirectory {
				app, err = bundle.FindApp(ctx, app.Path, o.ListOptions()...)
				if err != nil {
					return err
				}
			}

			update, stop, err := flags.bar(o, "Packaging "+app.Name)
			if err != nil {
				return err
			}
			defer stop()

			fut, err := o.Archive.Package(ctx, app, flags.dir(o, app), update)
			if err != nil {
				return err
			}
			res, err := fut.Wait(ctx)
			stop()
			if err != nil {
				return err
			}

			o.UserLogger.LogChange(status.Change{
				Type:        status.ItemCreated,
				Path:        res.OutputPath,
				Description: describe(res.Entries, res.Bytes),
			})
			return nil
		},
	}

	flags.add(cmd)
	return cmd
}
