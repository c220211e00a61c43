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
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/walteh/bundlekit/cmd/bundlekit/opts"
	"github.com/walteh/bundlekit/pkg/bundle"
	"github.com/walteh/bundlekit/pkg/catalog"
	"gitlab.com/tozd/go/errors"
)

// ErrUnknownComponent is returned when an export names a component the app does not contain
var ErrUnknownComponent = errors.Base("unknown component")

// NewInspectCmd creates the inspect command
func NewInspectCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <app>",
		Short: "Show an application's identity and embedded components",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			appDir := o.Config.Resolve(args[0])
			info, err := bundle.ReadInfo(appDir)
			if err != nil {
				return err
			}
			components, err := bundle.Inventory(ctx, appDir)
			if err != nil {
				return err
			}

			o.Console.Header(info.Title())
			o.Console.Infof("identifier: %s", info.Identifier)
			o.Console.Infof("version:    %s (%s)", info.Version, info.Build)
			if info.MinimumVersion != "" {
				o.Console.Infof("minimum os: %s", info.MinimumVersion)
			}
			if components.Empty() {
				o.Console.Info("no embedded components")
				return nil
			}
			for _, path := range components.All() {
				entry, err := catalog.NewEntry(path)
				if err != nil {
					continue
				}
				o.Console.LogEntry(ctx, entry)
			}
			return nil
		},
	}

	cmd.AddCommand(newInspectExportCmd(o))
	return cmd
}

func newInspectExportCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "export <app> <dir> [component]...",
		Short: "Copy embedded components out of an application",
		Long: `Export copies dylibs, bundles and extensions found inside the application
into a directory under the root, replacing same-named items. Without component
names every component is exported.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			components, err := bundle.Inventory(ctx, o.Config.Resolve(args[0]))
			if err != nil {
				return err
			}
			files, err := pick(components.All(), args[2:])
			if err != nil {
				return err
			}

			res, err := bundle.ExportComponents(ctx, files, o.Config.Resolve(args[1]), o.Config.Root)
			return report(o, "export", res, err)
		},
	}
}

// pick selects components by base name, or all of them when names is empty
func pick(all, names []string) ([]string, error) {
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]string, len(all))
	for _, p := range all {
		byName[filepath.Base(p)] = p
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		p, ok := byName[n]
		if !ok {
			return nil, errors.Errorf("%w: %s", ErrUnknownComponent, n)
		}
		out = append(out, p)
	}
	return out, nil
}
