// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package pipeline

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const schemaComment = "# yaml-language-server: $schema=https://raw.githubusercontent.com/buildkite/pipeline-schema/main/schema.json\n"

// Pipeline is a Buildkite pipeline document.
type Pipeline struct {
	Steps []any `yaml:"steps"`
}

// New creates a new pipeline.
func New() *Pipeline {
	return &Pipeline{Steps: []any{}}
}

// Add adds a step to the pipeline. It accepts *CommandStep or *GroupStep.
func (p *Pipeline) Add(step any) *Pipeline {
	switch s := step.(type) {
	case *CommandStep:
		p.Steps = append(p.Steps, s)
	case *GroupStep:
		p.Steps = append(p.Steps, s)
	default:
		panic(fmt.Sprintf("unsupported step type: %T", step))
	}
	return p
}

// CommandSteps returns every command step, descending into groups.
func (p *Pipeline) CommandSteps() []*CommandStep {
	var out []*CommandStep
	for _, s := range p.Steps {
		switch v := s.(type) {
		case *CommandStep:
			out = append(out, v)
		case *GroupStep:
			out = append(out, v.Steps...)
		}
	}
	return out
}

// Groups returns the top level group steps.
func (p *Pipeline) Groups() []*GroupStep {
	var out []*GroupStep
	for _, s := range p.Steps {
		if g, ok := s.(*GroupStep); ok {
			out = append(out, g)
		}
	}
	return out
}

// MarshalYAML marshals the pipeline to YAML bytes with the schema comment.
func (p *Pipeline) MarshalYAML() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(schemaComment)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p.document()); err != nil {
		return nil, fmt.Errorf("marshaling pipeline to YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshaling pipeline to YAML: %w", err)
	}

	return buf.Bytes(), nil
}

// document hides the []byte returning MarshalYAML from the encoder.
func (p *Pipeline) document() any {
	type doc Pipeline
	return (*doc)(p)
}

// WriteYAML writes the pipeline to a file.
func (p *Pipeline) WriteYAML(path string) error {
	data, err := p.MarshalYAML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Ptr is a helper to convert a value to a pointer.
func Ptr[T any](v T) *T {
	return &v
}
