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

package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/bundlekit/cmd/bundlekit/commands"
	"github.com/walteh/bundlekit/cmd/bundlekit/opts"
	"github.com/walteh/bundlekit/pkg/archive"
	"github.com/walteh/bundlekit/pkg/certificate"
	"github.com/walteh/bundlekit/pkg/certificate/parser"
	"github.com/walteh/bundlekit/pkg/config"
	"github.com/walteh/bundlekit/pkg/dispatch"
	"github.com/walteh/bundlekit/pkg/fileops"
	"github.com/walteh/bundlekit/pkg/identitystore"
	"github.com/walteh/bundlekit/pkg/log"
	"github.com/walteh/bundlekit/pkg/status"
	"gitlab.com/tozd/go/errors"
)

var (
	// Flags
	configFile string
	rootDir    string
	debug      bool
)

// newRootCmd builds the command tree. The returned options are filled in
// before any subcommand runs.
func newRootCmd() (*cobra.Command, *opts.RootOpts) {
	o := &opts.RootOpts{}

	rootCmd := &cobra.Command{
		Use:   "bundlekit",
		Short: "Manage files, archives and signing identities of app bundles",
		Long: `bundlekit browses and rearranges a directory tree, extracts and packages
application archives, and imports signing certificates together with their
provisioning profiles.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx := setupLogging(cmd.Context(), cmd)
			if err := newRootOpts(ctx, o, cmd); err != nil {
				return err
			}
			cmd.SetContext(o.WithLoggers(ctx))
			return nil
		},
	}

	addRootFlags(rootCmd)

	rootCmd.AddCommand(
		commands.NewListCmd(o),
		commands.NewCopyCmd(o),
		commands.NewMoveCmd(o),
		commands.NewRemoveCmd(o),
		commands.NewRenameCmd(o),
		commands.NewMkdirCmd(o),
		commands.NewTouchCmd(o),
		commands.NewImportCmd(o),
		commands.NewCatCmd(o),
		commands.NewWriteCmd(o),
		commands.NewReplaceCmd(o),
		commands.NewExtractCmd(o),
		commands.NewPackageCmd(o),
		commands.NewCertCmd(o),
		commands.NewInspectCmd(o),
		newVersionCmd(),
	)

	return rootCmd, o
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: discovered in the root)")
	cmd.PersistentFlags().StringVarP(&rootDir, "root", "r", "", "directory tree to manage (default: current directory)")
	cmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
}

// setupLogging attaches a zerolog logger writing to the command's error stream
func setupLogging(ctx context.Context, cmd *cobra.Command) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
		Level(level).
		With().
		Timestamp().
		Logger()
	return logger.WithContext(ctx)
}

// newRootOpts loads the config and builds the services every command shares
func newRootOpts(ctx context.Context, o *opts.RootOpts, cmd *cobra.Command) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return errors.Errorf("loading config: %w", err)
	}

	zlog := *zerolog.Ctx(ctx)
	loop := dispatch.NewLoop()
	runner := dispatch.NewRunner(loop, true)
	store := identitystore.New(cfg.Store)

	o.Config = cfg
	o.Out = cmd.OutOrStdout()
	o.Err = cmd.ErrOrStderr()
	o.Console = log.NewWithZerolog(o.Out, zlog)
	o.UserLogger = status.NewUserLogger(ctx, o.Out)
	o.Loop = loop
	o.Runner = runner
	o.Store = store
	o.Engine = fileops.New(fileops.Options{
		Runner:  runner,
		Workers: cfg.Workers,
	})
	o.Archive = archive.New(archive.Options{
		Runner:       runner,
		PreserveMode: cfg.Archive.PreserveMode,
	})
	o.Validator = certificate.New(certificate.Options{
		Parser:  parser.New(),
		Store:   store,
		Catalog: o.ListOptions(),
	})

	zlog.Debug().Str("config", cfg.String()).Msg("configuration ready")
	return nil
}

func loadConfig(ctx context.Context) (*config.Config, error) {
	if configFile == "" {
		dir := rootDir
		if dir == "" {
			wd, err := os.Getwd()
			if err != nil {
				return nil, errors.Errorf("getting working directory: %w", err)
			}
			dir = wd
		}
		return config.Discover(ctx, dir)
	}

	cfg, err := config.Load(ctx, configFile)
	if err != nil {
		return nil, err
	}
	if rootDir != "" {
		abs, err := filepath.Abs(rootDir)
		if err != nil {
			return nil, errors.Errorf("resolving root: %w", err)
		}
		cfg.Root = abs
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
