// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/rails/buildkite-config/internal/pkg/release"
)

func newVersionCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Display the version of the generator",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			info := release.Info()
			if asYAML, _ := c.Flags().GetBool("yaml"); asYAML {
				out, err := yaml.Marshal(info)
				if err != nil {
					return fmt.Errorf("marshaling version: %w", err)
				}
				_, err = e.streams.Out.Write(out)
				return err
			}
			_, err := fmt.Fprintf(e.streams.Out, "buildkite-config version: %s\n", info)
			return err
		},
	}

	cmd.Flags().Bool("yaml", false, "Output information in YAML format")
	cmd.SetHelpFunc(func(c *cobra.Command, s []string) {
		hideInheritedFlags(c)
		c.Root().HelpFunc()(c, s)
	})

	return cmd
}
