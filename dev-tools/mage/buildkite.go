// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package mage

import (
	"fmt"
	"os"
	"strings"

	"github.com/rails/buildkite-config/internal/pkg/buildcontext"
	"github.com/rails/buildkite-config/internal/pkg/config"
	"github.com/rails/buildkite-config/internal/pkg/pipelines"
	"github.com/rails/buildkite-config/pkg/buildkite/pipeline"
)

// ExpectedDir holds the checked in copy of every pipeline.
const ExpectedDir = ".buildkite/expected"

// RailsRoot is the Rails checkout pipelines are generated against.
var RailsRoot = EnvOr("RAILS_ROOT", "tmp/rails")

func buildContext() (*buildcontext.Context, error) {
	settings, err := config.LoadSettings(os.Environ(), "")
	if err != nil {
		return nil, err
	}
	return buildcontext.New(settings, buildcontext.WithRailsRoot(RailsRoot))
}

func generate(d pipelines.Definition) (*pipeline.Pipeline, error) {
	bc, err := buildContext()
	if err != nil {
		return nil, err
	}
	return d.Generator(bc)
}

// BuildkiteGeneratePipeline generates a pipeline by name and outputs YAML to stdout.
// This is designed to be piped to `buildkite-agent pipeline upload`.
func BuildkiteGeneratePipeline(name string) error {
	d, err := pipelines.Lookup(name)
	if err != nil {
		return err
	}
	pl, err := generate(d)
	if err != nil {
		return fmt.Errorf("failed to generate %s: %w", name, err)
	}
	yaml, err := pl.MarshalYAML()
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	fmt.Print(string(yaml))
	return nil
}

// BuildkiteUpdate rewrites the checked in copies from the generators.
func BuildkiteUpdate(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, d := range pipelines.Definitions {
		pl, err := generate(d)
		if err != nil {
			return fmt.Errorf("failed to generate %s: %w", d.Name, err)
		}
		if err := pl.WriteYAML(d.YAMLFile(dir)); err != nil {
			return err
		}
		fmt.Printf("  wrote %s\n", d.YAMLFile(dir))
	}
	return nil
}

// BuildkiteValidateResult contains the result of validating a single pipeline.
type BuildkiteValidateResult struct {
	Name        string
	YAMLFile    string
	Valid       bool
	Error       error
	Differences []string
}

// BuildkiteValidate validates that generated pipelines match the YAML files in dir.
// Returns the validation results and an error if any pipeline doesn't match.
func BuildkiteValidate(dir string) ([]BuildkiteValidateResult, error) {
	fmt.Println(">> buildkite:validate - Validating Buildkite pipelines against YAML files...")

	var results []BuildkiteValidateResult
	var errs []string

	for _, d := range pipelines.Definitions {
		result := BuildkiteValidateResult{
			Name:     d.Name,
			YAMLFile: d.YAMLFile(dir),
		}

		pl, err := generate(d)
		if err != nil {
			result.Error = err
			errs = append(errs, fmt.Sprintf("%s: %v", d.Name, err))
			results = append(results, result)
			continue
		}
		compareResult, err := pipeline.SemanticCompareWithFile(pl, result.YAMLFile)
		if err != nil {
			result.Error = err
			errs = append(errs, fmt.Sprintf("%s: %v", d.Name, err))
			results = append(results, result)
			continue
		}
		if compareResult.ParseError != nil {
			result.Error = compareResult.ParseError
			errs = append(errs, fmt.Sprintf("%s: parse error: %v", d.Name, compareResult.ParseError))
			results = append(results, result)
			continue
		}
		if !compareResult.Equal {
			result.Differences = compareResult.Differences
			errs = append(errs, fmt.Sprintf("%s: generated pipeline does not match %s:\n%s",
				d.Name, result.YAMLFile, strings.Join(compareResult.Differences, "\n")))
		} else {
			result.Valid = true
			fmt.Printf("  ✓ %s matches %s\n", d.Name, result.YAMLFile)
		}
		results = append(results, result)
	}

	if len(errs) > 0 {
		fmt.Println("\n>> buildkite:validate - FAILED!")
		for _, e := range errs {
			fmt.Printf("  ✗ %s\n", e)
		}
		return results, fmt.Errorf("pipeline validation failed: %d errors", len(errs))
	}

	fmt.Println(">> buildkite:validate - Done! All pipelines match.")
	return results, nil
}

// BuildkiteDiffResult contains the diff result for a single pipeline.
type BuildkiteDiffResult struct {
	Name     string
	YAMLFile string
	Equal    bool
	Diff     string
	Error    error
}

// BuildkiteDiff compares generated pipelines with the YAML files in dir line by line.
func BuildkiteDiff(dir string) []BuildkiteDiffResult {
	fmt.Println(">> buildkite:diff - Comparing generated pipelines with YAML files...")

	var results []BuildkiteDiffResult
	anyDiff := false

	for _, d := range pipelines.Definitions {
		result := BuildkiteDiffResult{
			Name:     d.Name,
			YAMLFile: d.YAMLFile(dir),
		}

		pl, err := generate(d)
		if err == nil {
			var compareResult *pipeline.CompareResult
			compareResult, err = pipeline.CompareWithFile(pl, result.YAMLFile)
			if err == nil {
				result.Equal = compareResult.Equal
				result.Diff = compareResult.Diff
			}
		}
		if err != nil {
			result.Error = err
			fmt.Printf("\n--- %s ---\nError: %v\n", d.Name, err)
			anyDiff = true
			results = append(results, result)
			continue
		}

		if !result.Equal {
			anyDiff = true
			fmt.Printf("\n--- %s (%s) ---\n", d.Name, result.YAMLFile)
			fmt.Println(result.Diff)
		}
		results = append(results, result)
	}

	if !anyDiff {
		fmt.Println(">> buildkite:diff - No differences found!")
	}

	return results
}
