// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package mage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rails/buildkite-config/internal/pkg/pipelines"
	"github.com/rails/buildkite-config/pkg/buildkite/pipeline"
)

// findRepoRoot finds the repository root by looking for go.mod.
func findRepoRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err, "failed to get working directory")

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, parent, dir, "could not find repository root (go.mod)")
		dir = parent
	}
}

func TestBuildkitePipelinesRegistered(t *testing.T) {
	actualNames := make([]string, len(pipelines.Definitions))
	for i, d := range pipelines.Definitions {
		actualNames[i] = d.Name
	}

	assert.Equal(t, []string{"rails-ci", "rails-ci-nightly", "docs-preview"}, actualNames, "pipeline registry mismatch")
}

func TestBuildkiteExpectedFiles(t *testing.T) {
	for _, d := range pipelines.Definitions {
		path := d.YAMLFile(ExpectedDir)
		assert.True(t, strings.HasPrefix(path, ".buildkite/expected/"), "pipeline %s expected file %q", d.Name, path)
		assert.True(t, strings.HasSuffix(path, ".yml"))
	}
}

// docs-preview does not depend on the Rails checkout, so the checked in copy
// always matches.
func TestDocsPreviewMatchesExpected(t *testing.T) {
	root := findRepoRoot(t)

	d, err := pipelines.Lookup("docs-preview")
	require.NoError(t, err)

	pl, err := d.Generator(nil)
	require.NoError(t, err)

	result, err := pipeline.SemanticCompareWithFile(pl, filepath.Join(root, d.YAMLFile(ExpectedDir)))
	require.NoError(t, err)
	assert.True(t, result.Equal, strings.Join(result.Differences, "\n"))
}

func TestEnvOr(t *testing.T) {
	t.Setenv("BUILDKITE_CONFIG_TEST_ENV", "")
	assert.Equal(t, "fallback", EnvOr("BUILDKITE_CONFIG_TEST_ENV", "fallback"))

	t.Setenv("BUILDKITE_CONFIG_TEST_ENV", "set")
	assert.Equal(t, "set", EnvOr("BUILDKITE_CONFIG_TEST_ENV", "fallback"))
}

func TestParseBoolEnv(t *testing.T) {
	t.Setenv("BUILDKITE_CONFIG_TEST_BOOL", "")
	v, err := ParseBoolEnv("BUILDKITE_CONFIG_TEST_BOOL", true)
	require.NoError(t, err)
	assert.True(t, v)

	t.Setenv("BUILDKITE_CONFIG_TEST_BOOL", "false")
	v, err = ParseBoolEnv("BUILDKITE_CONFIG_TEST_BOOL", true)
	require.NoError(t, err)
	assert.False(t, v)

	t.Setenv("BUILDKITE_CONFIG_TEST_BOOL", "maybe")
	_, err = ParseBoolEnv("BUILDKITE_CONFIG_TEST_BOOL", true)
	assert.Error(t, err)
}

func TestBuildArgsLinkerVars(t *testing.T) {
	args := DefaultBuildArgs()
	args.Version = "1.2.3"

	assert.Equal(t, filepath.Join("build", DefaultName), args.Output())

	flags := args.linkerVars()
	require.Len(t, flags, 3)
	assert.Equal(t, "-X "+ReleasePackage+".version=1.2.3", flags[0])
	assert.True(t, strings.HasPrefix(flags[1], "-X "+ReleasePackage+".commit="))
	assert.Equal(t, "-X "+ReleasePackage+".buildTime="+BuildDate(), flags[2])
}
