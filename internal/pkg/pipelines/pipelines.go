// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

// Package pipelines assembles the Rails Buildkite pipelines from the shared steps.
package pipelines

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rails/buildkite-config/internal/pkg/buildcontext"
	"github.com/rails/buildkite-config/pkg/buildkite/pipeline"
)

var (
	// ErrUnknownPipeline is returned for a pipeline name that is not registered.
	ErrUnknownPipeline = errors.New("unknown pipeline")

	// ErrEmptyMatrix is returned when no ruby can run the single-ruby steps, usually
	// because the gemspec minimum is above every candidate.
	ErrEmptyMatrix = errors.New("no ruby in the matrix satisfies the rails checkout")
)

// DefaultPipeline is generated when no name is given.
const DefaultPipeline = "rails-ci"

// RubyMinors are the candidate ruby versions of the test matrix.
var RubyMinors = []string{"2.4", "2.5", "2.6", "2.7", "3.0", "3.1", "3.2", "3.3", "3.4"}

// Generator builds a pipeline for a build context.
type Generator func(bc *buildcontext.Context) (*pipeline.Pipeline, error)

// Definition is a pipeline that can be generated.
type Definition struct {
	Name        string
	Description string
	Generator   Generator
}

// YAMLFile is the path of the checked in copy of the pipeline under dir.
func (d Definition) YAMLFile(dir string) string {
	return filepath.Join(dir, d.Name+".yml")
}

// Definitions is the list of all pipelines that can be generated.
var Definitions = []Definition{
	{"rails-ci", "Rails test suite on every supported ruby", RailsCI},
	{"rails-ci-nightly", "Nightly run against ruby master, YJIT and debug builds", RailsCINightly},
	{"docs-preview", "Build and deploy the guides and API docs preview", DocsPreview},
}

// Lookup finds a pipeline definition by name.
func Lookup(name string) (Definition, error) {
	for _, d := range Definitions {
		if d.Name == name {
			return d, nil
		}
	}
	return Definition{}, fmt.Errorf("%w: %q", ErrUnknownPipeline, name)
}

// Generate builds the named pipeline.
func Generate(name string, bc *buildcontext.Context) (*pipeline.Pipeline, error) {
	d, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	p, err := d.Generator(bc)
	if err != nil {
		return nil, fmt.Errorf("generating %s: %w", name, err)
	}
	return p, nil
}
