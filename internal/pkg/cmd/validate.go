// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rails/buildkite-config/internal/pkg/cli"
	"github.com/rails/buildkite-config/internal/pkg/pipelines"
	"github.com/rails/buildkite-config/pkg/buildkite/pipeline"
)

// ErrPipelinesDiffer is returned by validate when a generated pipeline does not match
// its checked in copy.
var ErrPipelinesDiffer = errors.New("generated pipelines differ from the checked in copies")

func newValidateCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Compare generated pipelines with checked in copies",
		Long: `Validate generates every pipeline and compares it, ignoring formatting, with
{dir}/{name}.yml.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return validateCmd(e, c)
		},
	}

	cmd.Flags().String("dir", ".buildkite/expected", "Directory of the checked in pipelines")
	cmd.Flags().String("pipelines", "", "Comma separated pipelines to validate (default: all)")

	return cmd
}

func validateCmd(e *env, cmd *cobra.Command) error {
	dir, _ := cmd.Flags().GetString("dir")
	only, _ := cmd.Flags().GetString("pipelines")

	defs := pipelines.Definitions
	if names := cli.StringToSlice(only); len(names) > 0 {
		defs = make([]pipelines.Definition, 0, len(names))
		for _, name := range names {
			d, err := pipelines.Lookup(name)
			if err != nil {
				return err
			}
			defs = append(defs, d)
		}
	}

	settings, err := e.settings(cmd)
	if err != nil {
		return err
	}

	results := make([]*pipeline.CompareResult, len(defs))
	var g errgroup.Group
	for i, d := range defs {
		bc, err := e.buildContext(cmd, settings)
		if err != nil {
			return err
		}
		g.Go(func() error {
			p, err := d.Generator(bc)
			if err != nil {
				return fmt.Errorf("generating %s: %w", d.Name, err)
			}
			res, err := pipeline.SemanticCompareWithFile(p, d.YAMLFile(dir))
			if err != nil {
				return fmt.Errorf("comparing %s: %w", d.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	ok := color.New(color.FgGreen).Sprint("ok")
	differs := color.New(color.FgRed).Sprint("differs")

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Pipeline", "File", "Status"})
	failed := false
	for i, d := range defs {
		status := ok
		if !results[i].Equal {
			status = differs
			failed = true
		}
		t.AppendRow(table.Row{d.Name, d.YAMLFile(dir), status})
	}
	fmt.Fprintln(e.streams.Out, t.Render())

	for i, d := range defs {
		res := results[i]
		if res.Equal {
			continue
		}
		if res.ParseError != nil {
			fmt.Fprintf(e.streams.Out, "\n%s: %v\n", d.Name, res.ParseError)
			continue
		}
		fmt.Fprintf(e.streams.Out, "\n%s:\n%s\n", d.Name, strings.Join(res.Differences, "\n"))
	}

	if failed {
		return ErrPipelinesDiffer
	}
	return nil
}
