// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/rails/buildkite-config/internal/pkg/pipelines"
)

func newListCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the pipelines that can be generated",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			t := table.NewWriter()
			t.AppendHeader(table.Row{"Pipeline", "Description"})
			for _, d := range pipelines.Definitions {
				t.AppendRow(table.Row{d.Name, d.Description})
			}
			_, err := fmt.Fprintln(e.streams.Out, t.Render())
			return err
		},
	}
}
