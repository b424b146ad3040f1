// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package plan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"
)

func TestNewDiff(t *testing.T) {
	d, err := NewDiff(
		"version: 1\nrails: 7.0\nruby: 3.3\n",
		"version: 1\nrails: 7.1\nruby: 3.3\n",
	)
	require.NoError(t, err)
	assert.False(t, d.Empty())
	golden.Assert(t, d.Text(), "diff_text.golden")
	assert.Equal(t, d.Text(), d.String())
}

func TestNewDiffIdentical(t *testing.T) {
	d, err := NewDiff("steps: []\n", "steps: []\n")
	require.NoError(t, err)
	assert.True(t, d.Empty())
	assert.Equal(t, "", d.Text())
	assert.Equal(t, "", d.Color())
}

func TestNewDiffContext(t *testing.T) {
	var from, to []string
	for i := 0; i < 20; i++ {
		line := strings.Repeat("x", i+1)
		from = append(from, line)
		if i == 10 {
			line = "changed"
		}
		to = append(to, line)
	}

	d, err := NewDiff(strings.Join(from, "\n")+"\n", strings.Join(to, "\n")+"\n")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(d.Text(), "\n"), "\n")
	// four lines of context on each side of the change
	require.Len(t, lines, 10)
	assert.Equal(t, " "+strings.Repeat("x", 7), lines[0])
	assert.Equal(t, "-"+strings.Repeat("x", 11), lines[4])
	assert.Equal(t, "+changed", lines[5])
	assert.Equal(t, " "+strings.Repeat("x", 15), lines[9])
}

func TestNewDiffFromEmpty(t *testing.T) {
	d, err := NewDiff("", "steps: []\n")
	require.NoError(t, err)
	assert.Equal(t, "+steps: []\n", d.Text())
}

func TestNewDiffKeepsRemovedSeparators(t *testing.T) {
	d, err := NewDiff("--- a\nkeep\n", "keep\n")
	require.NoError(t, err)
	assert.Equal(t, "---- a\n keep\n", d.Text())
}

func TestDiffColor(t *testing.T) {
	d, err := NewDiff("a\nb\n", "a\nc\n")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(d.Color(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, " a", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "\x1b[31m-b"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "\x1b[32m+c"), lines[2])
	assert.True(t, strings.HasSuffix(lines[2], "\x1b[0m"), lines[2])
}

func TestParseDiff(t *testing.T) {
	d := ParseDiff(" a\n-b\n+c\n")
	assert.False(t, d.Empty())
	assert.Equal(t, " a\n-b\n+c\n", d.Text())
	assert.True(t, ParseDiff("").Empty())
}

func TestAnnotate(t *testing.T) {
	d, err := NewDiff("a\nb\n", "a\nc\n")
	require.NoError(t, err)

	got := Annotate(d, false)
	assert.True(t, strings.HasPrefix(got, "### :writing_hand: buildkite-config/plan\n\n<details>\n<summary>Show Output</summary>\n\n```term\n"), got)
	assert.Contains(t, got, d.Color())
	assert.True(t, strings.HasSuffix(got, "\n```\n\n</details>\n"), got)

	nightly := Annotate(d, true)
	assert.True(t, strings.HasPrefix(nightly, "### :writing_hand: buildkite-config-nightly/plan\n"), nightly)
}

func TestAnnotateEmpty(t *testing.T) {
	d, err := NewDiff("a\n", "a\n")
	require.NoError(t, err)
	assert.Equal(t, "", Annotate(d, true))
	assert.Equal(t, "", Annotate(nil, false))
}

func TestPullRequestBodyAppends(t *testing.T) {
	got := PullRequestBody("Fixes the mysql image for 6.0.\n", " a\n-b\n+B\n c\n")
	golden.Assert(t, got, "pull_request_body.golden")
}

func TestPullRequestBodyReplaces(t *testing.T) {
	body := PullRequestBody("Intro\n", "-old\n") + "Outro\n"

	got := PullRequestBody(body, "+new $1\n")
	assert.Equal(t, 1, strings.Count(got, planBegin))
	assert.Equal(t, 1, strings.Count(got, planEnd))
	assert.NotContains(t, got, "-old")
	assert.Contains(t, got, "```diff\n+new $1\n\n```")
	assert.True(t, strings.HasPrefix(got, "Intro\n"), got)
	assert.True(t, strings.HasSuffix(got, planEnd+"\n\nOutro\n"), got)
}
