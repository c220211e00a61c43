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
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/walteh/bundlekit/cmd/bundlekit/opts"
	"github.com/walteh/bundlekit/pkg/certificate"
	"github.com/walteh/bundlekit/pkg/certificate/parser"
	"github.com/walteh/bundlekit/pkg/status"
)

// NewCertCmd creates the cert command group
func NewCertCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cert",
		Short: "Import and manage signing identities",
	}

	cmd.AddCommand(
		newCertImportCmd(o),
		newCertListCmd(o),
		newCertRemoveCmd(o),
		newCertProfileCmd(o),
	)
	return cmd
}

func newCertImportCmd(o *opts.RootOpts) *cobra.Command {
	var (
		profile  string
		password string
		name     string
	)

	cmd := &cobra.Command{
		Use:   "import <p12>",
		Short: "Import a private-key container with its provisioning profile",
		Long: `Import verifies the container's password, checks that the provisioning
profile lists its certificate and installs both in the identity store.
Without --profile the single .mobileprovision next to the container is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if !cmd.Flags().Changed("password") {
				password = o.Config.Certificates.DefaultPassword
			}
			var profilePath string
			if profile != "" {
				profilePath = o.Config.Resolve(profile)
			}

			req := certificate.NewRequest(o.Config.Resolve(args[0]), profilePath, password)
			req.DisplayName = name

			outcome, err := o.Validator.ImportAsync(ctx, o.Runner, req).Wait(ctx)
			if err != nil {
				return err
			}
			o.UserLogger.LogOutcome(outcome)
			if outcome.State != certificate.StateSucceeded {
				return outcome.Err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&profile, "profile", "", "provisioning profile (default: found next to the container)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "container password (default: from config)")
	cmd.Flags().StringVar(&name, "name", "", "display name (default: container file name)")
	return cmd
}

func newCertListCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed identities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := o.Store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(records) == 0 {
				o.Console.Info("no identities installed")
				return nil
			}
			for _, r := range records {
				expires := "never"
				if !r.ExpiresAt.IsZero() {
					expires = humanize.Time(r.ExpiresAt)
				}
				o.Console.Infof("%s  %-30s team=%s profile=%s expires %s", r.ID, r.DisplayName, r.Team, r.ProfileName, expires)
			}
			return nil
		},
	}
}

func newCertRemoveCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove an installed identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rec, err := o.Store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if err := o.Store.Remove(ctx, rec.ID); err != nil {
				return err
			}
			o.UserLogger.LogChange(status.Change{Type: status.ItemDeleted, Path: rec.DisplayName, Description: rec.ID})
			return nil
		},
	}
}

func newCertProfileCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "profile <mobileprovision>",
		Short: "Show what a provisioning profile grants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parser.New().OpenProfile(cmd.Context(), o.Config.Resolve(args[0]))
			if err != nil {
				return err
			}

			o.Console.Header(p.Name)
			o.Console.Infof("uuid:         %s", p.UUID)
			o.Console.Infof("team:         %s %v", p.TeamName, p.TeamIdentifiers)
			o.Console.Infof("app id:       %s", p.AppIDName)
			o.Console.Infof("certificates: %d", len(p.DeveloperCertificates))
			o.Console.Infof("devices:      %d", len(p.ProvisionedDevices))
			if p.Expired(time.Now()) {
				o.Console.Warningf("expired %s", humanize.Time(p.ExpirationDate))
			} else if !p.ExpirationDate.IsZero() {
				o.Console.Successf("expires %s", humanize.Time(p.ExpirationDate))
			}
			return nil
		},
	}
}
