// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rails/buildkite-config/internal/pkg/buildcontext"
	"github.com/rails/buildkite-config/internal/pkg/cli"
	"github.com/rails/buildkite-config/internal/pkg/config"
	"github.com/rails/buildkite-config/internal/pkg/github"
	"github.com/rails/buildkite-config/internal/pkg/plan"
	"github.com/rails/buildkite-config/pkg/core/logger"
)

const (
	railsRootFlag = "rails-root"
	configFlag    = "config"
	logLevelFlag  = "log-level"
	prCacheFlag   = "pr-cache"

	defaultPRCache = ".buildkite/tmp"
)

// env is what every subcommand shares.
type env struct {
	streams *cli.IOStreams
	environ func() []string

	// runner runs generators for diff, a subprocess runner when nil.
	runner plan.Runner
	// githubOpts configure the GitHub client of update-pr and fetch-pr.
	githubOpts []github.Option
}

// NewCommand returns the buildkite-config command.
func NewCommand() *cobra.Command {
	return NewCommandWithStreams(cli.NewIOStreams())
}

// NewCommandWithStreams returns the buildkite-config command wired to streams.
func NewCommandWithStreams(streams *cli.IOStreams) *cobra.Command {
	return newCommand(&env{streams: streams, environ: os.Environ})
}

func newCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "buildkite-config [subcommand]",
		Short:         "Generates the Buildkite pipelines of the Rails CI.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetIn(e.streams.In)
	cmd.SetOut(e.streams.Out)
	cmd.SetErr(e.streams.Err)

	setupGlobalFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newGenerateCommand(e),
		newListCommand(e),
		newValidateCommand(e),
		newDiffCommand(e),
		newUpdatePRCommand(e),
		newFetchPRCommand(e),
		newVersionCommand(e),
	)

	return cmd
}

func setupGlobalFlags(flags *pflag.FlagSet) {
	flags.String(railsRootFlag, "", "Rails checkout to generate for (default: the working directory on CI, tmp/rails otherwise)")
	flags.StringP(configFlag, "c", "", "YAML file whose keys override the environment")
	flags.String(logLevelFlag, logger.DefaultLogLevel.String(), "Log level: debug, info, warning, error")
	flags.String(prCacheFlag, defaultPRCache, "Directory holding the pull request cache written by fetch-pr")
}

// hideInheritedFlags keeps commands that ignore the Rails checkout free of its flags in --help.
func hideInheritedFlags(c *cobra.Command) {
	c.InheritedFlags().VisitAll(func(f *pflag.Flag) {
		f.Hidden = true
	})
}

func (e *env) logger(cmd *cobra.Command) (*logger.Logger, error) {
	raw, _ := cmd.Flags().GetString(logLevelFlag)
	lvl, err := logger.ParseLevel(raw)
	if err != nil {
		return nil, err
	}
	return logger.New("buildkite-config", lvl, e.streams.Err), nil
}

func (e *env) settings(cmd *cobra.Command) (*config.Settings, error) {
	path, _ := cmd.Flags().GetString(configFlag)
	return config.LoadSettings(e.environ(), path)
}

// buildContext returns a fresh context. Generators mutate the ruby matrix of their
// context, so every pipeline needs its own.
func (e *env) buildContext(cmd *cobra.Command, settings *config.Settings) (*buildcontext.Context, error) {
	var opts []buildcontext.Option
	if root, _ := cmd.Flags().GetString(railsRootFlag); root != "" {
		opts = append(opts, buildcontext.WithRailsRoot(root))
	}
	cache, _ := cmd.Flags().GetString(prCacheFlag)
	if title := github.CachedTitle(cache); title != "" {
		opts = append(opts, buildcontext.WithPRTitle(title))
	}

	bc, err := buildcontext.New(settings, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading build context: %w", err)
	}
	return bc, nil
}
