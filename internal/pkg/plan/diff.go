// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package plan

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
)

// DiffContext is the number of unchanged lines kept around each change.
const DiffContext = 4

// Diff is a unified diff between two generated pipelines.
type Diff struct {
	lines []string
}

// NewDiff diffs from against to. Identical inputs give an empty Diff.
func NewDiff(from, to string) (*Diff, error) {
	unified, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(from),
		B:        splitLines(to),
		FromFile: "baseline",
		ToFile:   "head",
		Context:  DiffContext,
	})
	if err != nil {
		return nil, fmt.Errorf("diffing pipelines: %w", err)
	}

	d := &Diff{}
	for i, line := range strings.SplitAfter(unified, "\n") {
		if line == "" || strings.HasPrefix(line, "@@") {
			continue
		}
		// file headers
		if i < 2 && (strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "+++ ")) {
			continue
		}
		d.lines = append(d.lines, line)
	}
	return d, nil
}

// ParseDiff wraps text already produced by Text.
func ParseDiff(text string) *Diff {
	d := &Diff{}
	for _, line := range strings.SplitAfter(text, "\n") {
		if line != "" {
			d.lines = append(d.lines, line)
		}
	}
	return d
}

// Empty reports whether both pipelines were identical.
func (d *Diff) Empty() bool {
	return len(d.lines) == 0
}

// Text is the diff body without file headers or hunk markers.
func (d *Diff) Text() string {
	return strings.Join(d.lines, "")
}

// String implements fmt.Stringer.
func (d *Diff) String() string {
	return d.Text()
}

// Color is Text with removed lines in red and added lines in green. Colors are
// forced on since the output usually ends up in a Buildkite annotation, not a tty.
func (d *Diff) Color() string {
	red := color.New(color.FgRed)
	red.EnableColor()
	green := color.New(color.FgGreen)
	green.EnableColor()

	var b strings.Builder
	for _, line := range d.lines {
		body := strings.TrimSuffix(line, "\n")
		switch {
		case strings.HasPrefix(body, "-"):
			b.WriteString(red.Sprint(body))
		case strings.HasPrefix(body, "+"):
			b.WriteString(green.Sprint(body))
		default:
			b.WriteString(body)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// splitLines keeps line endings and does not invent a trailing empty line.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	} else {
		lines[len(lines)-1] += "\n"
	}
	return lines
}
