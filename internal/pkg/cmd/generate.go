// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rails/buildkite-config/internal/pkg/pipelines"
)

func newGenerateCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [pipeline]",
		Short: "Print the YAML of a pipeline",
		Long: `Generate prints the YAML of the named pipeline, rails-ci by default, for
buildkite-agent pipeline upload.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return generateCmd(e, c, args)
		},
	}

	cmd.Flags().StringP("output", "o", "", "Write the pipeline to this file instead of stdout")

	return cmd
}

func generateCmd(e *env, cmd *cobra.Command, args []string) error {
	name := pipelines.DefaultPipeline
	if len(args) > 0 {
		name = args[0]
	}

	log, err := e.logger(cmd)
	if err != nil {
		return err
	}
	settings, err := e.settings(cmd)
	if err != nil {
		return err
	}
	bc, err := e.buildContext(cmd, settings)
	if err != nil {
		return err
	}

	p, err := pipelines.Generate(name, bc)
	if err != nil {
		return err
	}
	if bc.Skip() {
		log.Infof("Skipping %s: skip marker found in the commit message or pull request title", name)
	}
	log.Debugw("generated pipeline", "pipeline", name, "rails", bc.RailsVersion().String(),
		"groups", len(p.Groups()), "steps", len(p.CommandSteps()))

	output, _ := cmd.Flags().GetString("output")
	if output != "" {
		if err := p.WriteYAML(output); err != nil {
			return fmt.Errorf("writing %s: %w", output, err)
		}
		return nil
	}

	data, err := p.MarshalYAML()
	if err != nil {
		return err
	}
	_, err = e.streams.Out.Write(data)
	return err
}
