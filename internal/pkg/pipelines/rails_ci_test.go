// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package pipelines

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rails/buildkite-config/internal/pkg/ruby"
	"github.com/rails/buildkite-config/pkg/buildkite/pipeline"
)

var yjitGroup = "yjit:" + ruby.MasterImage

func TestRailsCIMainline(t *testing.T) {
	bc := newContext(t, railsTree(t, "7.1.0", "3.1.0"), map[string]string{"BUILDKITE_BRANCH": "main"})

	p, err := RailsCI(bc)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"build", "ruby:3.1", "ruby:3.2", "ruby:3.3", "ruby:3.4", ruby.MasterImage, yjitGroup, "isolated",
	}, groupNames(p))

	build := p.Groups()[0]
	assert.Equal(t, []string{
		":docker: ruby:3.4",
		":docker: ruby:3.3",
		":docker: ruby:3.2",
		":docker: ruby:3.1",
		":docker: " + ruby.MasterImage,
	}, labels(build.Steps))

	group, step := findStep(t, p, "activerecord mysql2:isolated")
	assert.Equal(t, "isolated", group.Group)
	assert.Equal(t, pipeline.Commands{"rake db:mysql:rebuild mysql2:isolated_test"}, step.Command)
	assert.Equal(t, []string{"docker-image-ruby-3-4"}, step.DependsOn)
	assert.Equal(t, 5, step.Parallelism)

	group, _ = findStep(t, p, "actiontext isolated")
	assert.Equal(t, "isolated", group.Group)
	group, _ = findStep(t, p, "actionpack isolated")
	assert.Equal(t, "isolated", group.Group)

	group, step = findStep(t, p, "railties (3.3)")
	assert.Equal(t, "ruby:3.3", group.Group)
	assert.Equal(t, 12, step.Parallelism)

	group, step = findStep(t, p, "actionpack (yjit)")
	assert.Equal(t, yjitGroup, group.Group)
	assert.True(t, step.SoftFail)
	assert.Equal(t, "1", step.Env["RUBY_YJIT_ENABLE"])
}

func TestRailsCISpecialCases(t *testing.T) {
	bc := newContext(t, railsTree(t, "7.1.0", "3.1.0"), map[string]string{"BUILDKITE_BRANCH": "main"})

	p, err := RailsCI(bc)
	require.NoError(t, err)

	group, step := findStep(t, p, "actionpack [rack-head]")
	assert.Equal(t, "ruby:3.4", group.Group)
	assert.True(t, step.SoftFail)
	assert.Equal(t, "head", step.Env["RACK"])
	assert.Equal(t, "rm Gemfile.lock && bundle install", step.Env["PRE_STEPS"])

	_, step = findStep(t, p, "railties [rack-2]")
	assert.False(t, step.SoftFail)
	assert.Equal(t, "~> 2.0", step.Env["RACK"])
	assert.Equal(t, 12, step.Parallelism)

	_, step = findStep(t, p, "actioncable integration (3.4)")
	require.NotNil(t, step.Retry)
	assert.Equal(t, []pipeline.AutomaticRetry{{Limit: 3}}, step.Retry.Automatic)

	_, step = findStep(t, p, "activejob integration (3.1)")
	assert.True(t, step.SoftFail)

	_, step = findStep(t, p, "actionview ujs")
	assert.Equal(t, "actionview", step.Plugins[1]["docker-compose#v3.7.0"].(map[string]any)["run"])

	_, step = findStep(t, p, "activerecord mysql2 [prepared_statements]")
	assert.Equal(t, "true", step.Env["MYSQL_PREPARED_STATEMENTS"])

	_, step = findStep(t, p, "activerecord trilogy [mariadb]")
	assert.Equal(t, "mariadb:latest", step.Env["MYSQL_IMAGE"])
	assert.Equal(t, pipeline.Commands{"rake db:mysql:rebuild trilogy:test"}, step.Command)

	_, step = findStep(t, p, "activerecord trilogy [mysql_5_7]")
	assert.Equal(t, "mysql:5.7", step.Env["MYSQL_IMAGE"])

	_, step = findStep(t, p, "activerecord sqlite3_mem")
	assert.Equal(t, pipeline.Commands{"rake sqlite3_mem:test"}, step.Command)
}

func TestRailsCIOrdering(t *testing.T) {
	bc := newContext(t, railsTree(t, "7.1.0", "3.1.0"), map[string]string{"BUILDKITE_BRANCH": "main"})

	p, err := RailsCI(bc)
	require.NoError(t, err)

	for _, g := range p.Groups()[1:] {
		seenTaskVariant := false
		prev := ""
		for _, s := range g.Steps {
			taskVariant := strings.Contains(s.Command[0], "test:")
			if seenTaskVariant {
				assert.True(t, taskVariant, "%s: %q sorted after a test: task", g.Group, s.Label)
			}
			if taskVariant == seenTaskVariant {
				assert.LessOrEqual(t, prev, s.Label, "%s: labels out of order", g.Group)
			}
			seenTaskVariant = seenTaskVariant || taskVariant
			prev = s.Label
		}
	}
}

func TestRailsCIBranch(t *testing.T) {
	bc := newContext(t, railsTree(t, "7.1.0", "3.1.0"), map[string]string{"BUILDKITE_BRANCH": "zzak:feature"})

	p, err := RailsCI(bc)
	require.NoError(t, err)

	assert.NotContains(t, groupNames(p), "isolated")
	assert.False(t, hasLabel(p, func(l string) bool { return strings.Contains(l, "isolated") }))
}

func TestRailsCISkip(t *testing.T) {
	bc := newContext(t, railsTree(t, "7.1.0", "3.1.0"), map[string]string{"BUILDKITE_MESSAGE": "Fix typo [ci skip]"})

	p, err := RailsCI(bc)
	require.NoError(t, err)
	assert.Empty(t, p.Steps)
}

func TestRailsCIEmptyMatrix(t *testing.T) {
	bc := newContext(t, railsTree(t, "7.1.0", "3.5.0"), nil)

	_, err := RailsCI(bc)
	assert.ErrorIs(t, err, ErrEmptyMatrix)
}

func TestRailsCIMissingSubsystem(t *testing.T) {
	bc := newContext(t, railsTree(t, "7.1.0", "3.1.0", "guides", "actiontext"), map[string]string{"BUILDKITE_BRANCH": "main"})

	p, err := RailsCI(bc)
	require.NoError(t, err)
	assert.False(t, hasLabel(p, regexp.MustCompile(`^(guides|actiontext)`).MatchString))
	assert.True(t, hasLabel(p, regexp.MustCompile(`^actionpack`).MatchString))
}

func TestRailsCIOldRails(t *testing.T) {
	bc := newContext(t, railsTree(t, "5.2.8", "2.2.2"), map[string]string{"BUILDKITE_BRANCH": "5-2-stable"})

	p, err := RailsCI(bc)
	require.NoError(t, err)

	def, ok := bc.DefaultRuby()
	require.True(t, ok)
	assert.Equal(t, "2.6", def.Version)

	assert.False(t, hasLabel(p, regexp.MustCompile(`^guides`).MatchString))
	assert.False(t, hasLabel(p, func(l string) bool { return strings.Contains(l, "trilogy") }))
	assert.False(t, hasLabel(p, func(l string) bool { return strings.Contains(l, "prepared_statements") }))

	_, step := findStep(t, p, "activerecord mysql2 [mariadb]")
	assert.Equal(t, "mariadb:10.2", step.Env["MYSQL_IMAGE"])

	_, step = findStep(t, p, "actioncable integration (2.6)")
	assert.True(t, step.SoftFail)

	_, step = findStep(t, p, "actionpack (2.6)")
	assert.Equal(t, "mysql:5.7", step.Env["MYSQL_IMAGE"])
	assert.False(t, step.SoftFail)

	_, step = findStep(t, p, "actionpack (2.7)")
	assert.True(t, step.SoftFail)

	assert.False(t, hasLabel(p, func(l string) bool { return strings.Contains(l, "[rack-") }))
	assert.False(t, hasLabel(p, func(l string) bool { return l == "railspect" }))
}

func TestRailsCIRubyOrder(t *testing.T) {
	bc := newContext(t, railsTree(t, "6.0.6", "2.5.0"), map[string]string{"BUILDKITE_BRANCH": "6-0-stable"})

	_, err := RailsCI(bc)
	require.NoError(t, err)

	var names []string
	for _, r := range bc.Rubies() {
		names = append(names, r.Name())
	}
	assert.Equal(t, []string{
		"ruby:2.7", "ruby:2.6", "ruby:2.5", ruby.YJIT().Name(), ruby.MasterImage, "ruby:3.4", "ruby:3.3", "ruby:3.2", "ruby:3.1", "ruby:3.0",
	}, names)
}

func TestRailsCIAllSoftFailing(t *testing.T) {
	bc := newContext(t, railsTree(t, "6.0.6", "3.2.0"), map[string]string{"BUILDKITE_BRANCH": "main"})

	p, err := RailsCI(bc)
	require.NoError(t, err)

	def, ok := bc.DefaultRuby()
	require.True(t, ok)
	assert.Equal(t, "ruby:3.4", def.Name())

	group, step := findStep(t, p, "activerecord sqlite3_mem")
	assert.Equal(t, "ruby:3.4", group.Group)
	assert.False(t, step.SoftFail)
	assert.Equal(t, []string{"docker-image-ruby-3-4"}, step.DependsOn)
}

func TestRailsCILintSteps(t *testing.T) {
	root := railsTree(t, "7.1.0", "3.1.0")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "tools"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "tools", "railspect"), []byte("#!/usr/bin/env ruby\n"), 0o755))
	bc := newContext(t, root, map[string]string{"BUILDKITE_BRANCH": "main"})

	p, err := RailsCI(bc)
	require.NoError(t, err)

	group, step := findStep(t, p, "guides lint")
	assert.Equal(t, "ruby:3.4", group.Group)
	assert.Equal(t, pipeline.Commands{"rake guides:lint"}, step.Command)

	group, step = findStep(t, p, "railspect")
	assert.Equal(t, "ruby:3.4", group.Group)
	assert.Equal(t, pipeline.Commands{"tools/railspect changelogs . && tools/railspect configuration ."}, step.Command)
	assert.Equal(t, []string{"runner", "."}, step.Plugins[1]["docker-compose#v3.7.0"].(map[string]any)["shell"])
}

func TestRailsCINoLintBeforeSevenOne(t *testing.T) {
	bc := newContext(t, railsTree(t, "7.0.8", "2.7.0"), map[string]string{"BUILDKITE_BRANCH": "main"})

	p, err := RailsCI(bc)
	require.NoError(t, err)

	assert.False(t, hasLabel(p, func(l string) bool { return l == "guides lint" }))
	assert.False(t, hasLabel(p, func(l string) bool { return l == "railspect" }))
	assert.False(t, hasLabel(p, func(l string) bool { return strings.Contains(l, "[rack-") }))
}

func TestRailsCIGuidesOnSixOne(t *testing.T) {
	bc := newContext(t, railsTree(t, "6.1.7", "2.5.0"), map[string]string{"BUILDKITE_BRANCH": "6-1-stable"})

	p, err := RailsCI(bc)
	require.NoError(t, err)

	assert.False(t, hasLabel(p, regexp.MustCompile(`^guides`).MatchString))
	findStep(t, p, "activerecord mysql2 [prepared_statements]")
}
