// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rails/buildkite-config/internal/pkg/github"
)

func newUpdatePRCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "update-pr",
		Short: "Write the diff read from stdin into the pull request description",
		Long: `Update-pr reads a plain diff, as printed by "diff --text", from stdin and
replaces the plan section of the pull request given by BUILDKITE_PULL_REQUEST. It needs
GITHUB_TOKEN.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			settings, err := e.settings(c)
			if err != nil {
				return err
			}
			diff, err := io.ReadAll(e.streams.In)
			if err != nil {
				return fmt.Errorf("reading diff: %w", err)
			}

			pr, err := github.UpdatePR(c.Context(), settings, string(diff), e.githubOpts...)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(e.streams.Out, pr.Body)
			return err
		},
	}
}

func newFetchPRCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch-pr",
		Short: "Cache the pull request title and changed files",
		Long: `Fetch-pr caches the metadata and changed files of the build's pull request in
the --pr-cache directory, where generate reads the title for skip markers.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			log, err := e.logger(c)
			if err != nil {
				return err
			}
			settings, err := e.settings(c)
			if err != nil {
				return err
			}
			dir, _ := c.Flags().GetString(prCacheFlag)

			if err := github.FetchPR(c.Context(), settings, dir, e.githubOpts...); err != nil {
				return err
			}

			files := github.CachedFilenames(dir)
			log.Infof("Cached pull request %q with %d changed files in %s", github.CachedTitle(dir), len(files), dir)
			for _, f := range files {
				fmt.Fprintln(e.streams.Out, f)
			}
			return nil
		},
	}
}
