// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package pipeline

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"
)

// CompareResult contains the result of comparing two pipelines.
type CompareResult struct {
	Equal       bool
	Diff        string
	Differences []string
	Generated   string
	Expected    string
	ParseError  error
}

// CompareWithFile compares a generated pipeline with an existing YAML file.
func CompareWithFile(p *Pipeline, path string) (*CompareResult, error) {
	generated, expected, err := marshalAndRead(p, path)
	if err != nil {
		return nil, err
	}
	return Compare(generated, expected)
}

// Compare compares two YAML representations of pipelines line by line.
func Compare(generated, expected []byte) (*CompareResult, error) {
	result := &CompareResult{
		Generated: string(generated),
		Expected:  string(expected),
	}

	genNorm := strings.TrimSpace(string(generated))
	expNorm := strings.TrimSpace(string(expected))

	result.Equal = genNorm == expNorm
	if result.Equal {
		return result, nil
	}

	diff, err := UnifiedDiff(expNorm+"\n", genNorm+"\n", "expected", "generated", 3)
	if err != nil {
		return nil, err
	}
	result.Diff = diff
	return result, nil
}

// SemanticCompareWithFile compares a generated pipeline with a YAML file after parsing both,
// so formatting and key order do not matter.
func SemanticCompareWithFile(p *Pipeline, path string) (*CompareResult, error) {
	generated, expected, err := marshalAndRead(p, path)
	if err != nil {
		return nil, err
	}
	return SemanticCompare(generated, expected), nil
}

// SemanticCompare compares two YAML documents structurally.
func SemanticCompare(generated, expected []byte) *CompareResult {
	result := &CompareResult{
		Generated: string(generated),
		Expected:  string(expected),
	}

	var gen, exp any
	if err := yaml.Unmarshal(generated, &gen); err != nil {
		result.ParseError = fmt.Errorf("parsing generated YAML: %w", err)
		return result
	}
	if err := yaml.Unmarshal(expected, &exp); err != nil {
		result.ParseError = fmt.Errorf("parsing expected YAML: %w", err)
		return result
	}

	result.Diff = cmp.Diff(exp, gen)
	result.Equal = result.Diff == ""
	for _, line := range strings.Split(result.Diff, "\n") {
		if strings.TrimSpace(line) != "" {
			result.Differences = append(result.Differences, line)
		}
	}
	return result
}

// UnifiedDiff renders a unified diff between two texts.
func UnifiedDiff(from, to, fromName, toName string, context int) (string, error) {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(from),
		B:        difflib.SplitLines(to),
		FromFile: fromName,
		ToFile:   toName,
		Context:  context,
	})
	if err != nil {
		return "", fmt.Errorf("computing diff: %w", err)
	}
	return diff, nil
}

func marshalAndRead(p *Pipeline, path string) ([]byte, []byte, error) {
	generated, err := p.MarshalYAML()
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling generated pipeline: %w", err)
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading expected file %s: %w", path, err)
	}
	return generated, expected, nil
}
