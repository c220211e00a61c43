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

	"github.com/spf13/cobra"
	"github.com/walteh/bundlekit/cmd/bundlekit/opts"
	"github.com/walteh/bundlekit/pkg/status"
	"github.com/walteh/bundlekit/pkg/text"
)

// NewReplaceCmd creates the replace command
func NewReplaceCmd(o *opts.RootOpts) *cobra.Command {
	var rule text.Rule

	cmd := &cobra.Command{
		Use:   "replace [dir] --from <text> --to <text>",
		Short: "Find and replace text in the files of a directory",
		Long: `Replace rewrites every UTF-8 text file under the directory that matches
--glob, replacing each occurrence of --from with --to. Binary files are skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}

			rep, err := text.Apply(cmd.Context(), o.Engine, o.Config.Resolve(dir), []text.Rule{rule}, o.Config.Workers)
			if err != nil {
				return err
			}
			for _, c := range rep.Changes {
				o.UserLogger.LogChange(status.Change{
					Type:        status.ItemCreated,
					Path:        c.Path,
					Description: fmt.Sprintf("%d replaced", c.Count),
				})
			}
			return report(o, "scan", rep.Batch, nil)
		},
	}

	cmd.Flags().StringVar(&rule.From, "from", "", "text to search for")
	cmd.Flags().StringVar(&rule.To, "to", "", "replacement text")
	cmd.Flags().StringVar(&rule.Glob, "glob", "", "only files whose relative path matches this doublestar pattern")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}
