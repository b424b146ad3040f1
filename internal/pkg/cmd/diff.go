// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rails/buildkite-config/internal/pkg/plan"
)

func newDiffCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Diff the generated pipeline against a baseline config checkout",
		Long: `Diff generates the pipeline with this config checkout and with the baseline
checkout, both against the Rails tree at tmp/rails, and prints the difference.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return diffCmd(e, c)
		},
	}

	cmd.Flags().String("root", ".", "Config checkout under review")
	cmd.Flags().String("baseline", "", "Baseline config checkout (default: {root}/tmp/buildkite-config)")
	cmd.Flags().String("pipeline", plan.DefaultPipeline, "Pipeline to compare")
	cmd.Flags().Bool("annotate", false, "Print a Buildkite annotation instead of the colored diff")
	cmd.Flags().Bool("text", false, "Print the plain diff, as update-pr expects it")

	return cmd
}

func diffCmd(e *env, cmd *cobra.Command) error {
	log, err := e.logger(cmd)
	if err != nil {
		return err
	}
	settings, err := e.settings(cmd)
	if err != nil {
		return err
	}

	runner := e.runner
	if runner == nil {
		runner = plan.ExecRunner{Stderr: e.streams.Err}
	}

	root, _ := cmd.Flags().GetString("root")
	d := plan.NewDiffer(root, runner, log)
	if baseline, _ := cmd.Flags().GetString("baseline"); baseline != "" {
		d.Baseline = baseline
	}
	d.Pipeline, _ = cmd.Flags().GetString("pipeline")

	diff, err := d.Compare(cmd.Context())
	if err != nil {
		return err
	}

	annotate, _ := cmd.Flags().GetBool("annotate")
	text, _ := cmd.Flags().GetBool("text")
	switch {
	case annotate:
		_, err = fmt.Fprint(e.streams.Out, plan.Annotate(diff, settings.IsNightly()))
	case text:
		_, err = fmt.Fprint(e.streams.Out, diff.Text())
	default:
		_, err = fmt.Fprint(e.streams.Out, diff.Color())
	}
	if err != nil {
		return err
	}

	if diff.Empty() {
		log.Infof("No changes to the %s pipeline", d.Pipeline)
	}
	return nil
}
