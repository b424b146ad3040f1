// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package pipelines

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rails/buildkite-config/internal/pkg/ruby"
	"github.com/rails/buildkite-config/pkg/buildkite/pipeline"
)

func TestRailsCINightly(t *testing.T) {
	bc := newContext(t, railsTree(t, "7.1.0", "3.1.0"), map[string]string{"RAILS_CI_NIGHTLY": "true"})

	p, err := RailsCINightly(bc)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"build", "3.4", "3.3", "3.2", "3.1", ruby.MasterImage, yjitGroup, ruby.MasterDebugImage, "isolated",
	}, groupNames(p))

	def, ok := bc.DefaultRuby()
	require.True(t, ok)
	assert.True(t, def.Equal(ruby.Master()))

	build := p.Groups()[0]
	assert.Len(t, build.Steps, 6)
	for _, s := range build.Steps {
		assert.NotContains(t, s.Label, "yjit")
	}
}

func TestRailsCINightlyDefaultRubyVariants(t *testing.T) {
	bc := newContext(t, railsTree(t, "7.1.0", "3.1.0"), nil)

	p, err := RailsCINightly(bc)
	require.NoError(t, err)

	group, step := findStep(t, p, "actionpack (master) [rack-2]")
	assert.Equal(t, ruby.MasterImage, group.Group)
	assert.Equal(t, "~> 2.0", step.Env["RACK"])
	assert.Equal(t, "bundle install", step.Env["PRE_STEPS"])

	_, step = findStep(t, p, "activerecord mysql2 (master) [mariadb]")
	assert.Equal(t, "mariadb", step.Plugins[1]["docker-compose#v3.7.0"].(map[string]any)["run"])
	assert.Equal(t, "mariadb:latest", step.Env["MYSQL_IMAGE"])

	_, step = findStep(t, p, "activerecord trilogy (master) [mysql_5_7]")
	assert.Equal(t, "mysql:5.7", step.Env["MYSQL_IMAGE"])

	_, step = findStep(t, p, "railties (master) [rack-head]")
	assert.True(t, step.SoftFail)
	assert.Equal(t, 12, step.Parallelism)

	findStep(t, p, "activerecord sqlite3_mem (master)")
	findStep(t, p, "actionview ujs (master)")

	for _, g := range p.Groups() {
		if g.Group == ruby.MasterImage || g.Group == "isolated" {
			continue
		}
		for _, s := range g.Steps {
			assert.NotContains(t, s.Label, "[rack-", "%s in %s", s.Label, g.Group)
			assert.NotContains(t, s.Label, "[mariadb]", "%s in %s", s.Label, g.Group)
		}
	}
}

func TestRailsCINightlyRubyGroup(t *testing.T) {
	bc := newContext(t, railsTree(t, "7.1.0", "3.1.0"), nil)

	p, err := RailsCINightly(bc)
	require.NoError(t, err)

	group, step := findStep(t, p, "actioncable (3.3)")
	assert.Equal(t, "3.3", group.Group)
	assert.Equal(t, "bundle exec rake -f activerecord/Rakefile db:postgresql:rebuild", step.Env["PRE_STEPS"])
	assert.False(t, step.SoftFail)

	_, step = findStep(t, p, "actioncable integration (3.3)")
	require.NotNil(t, step.Retry)
	assert.Equal(t, []pipeline.AutomaticRetry{pipeline.RetryOn(-1, 3)}, step.Retry.Automatic)

	_, step = findStep(t, p, "activejob integration (3.3)")
	assert.False(t, step.SoftFail)

	_, step = findStep(t, p, "activesupport (master-debug)")
	assert.True(t, step.SoftFail)
	assert.Equal(t, []string{"docker-image-rubylang-ruby-master-debug-nightly-jammy"}, step.DependsOn)

	_, step = findStep(t, p, "activesupport (yjit)")
	assert.Equal(t, "1", step.Env["RUBY_YJIT_ENABLE"])
	assert.Equal(t, []string{"docker-image-rubylang-ruby-master-nightly-jammy"}, step.DependsOn)
}

func TestRailsCINightlyIsolated(t *testing.T) {
	bc := newContext(t, railsTree(t, "7.1.0", "3.1.0"), nil)

	p, err := RailsCINightly(bc)
	require.NoError(t, err)

	groups := p.Groups()
	isolated := groups[len(groups)-1]
	require.Equal(t, "isolated", isolated.Group)
	assert.Equal(t, []string{
		"activerecord mysql2:isolated (master)",
		"activerecord postgresql:isolated (master)",
		"activerecord sqlite3:isolated (master)",
		"activerecord trilogy:isolated (master)",
		"actionmailer isolated (master)",
		"actionpack isolated (master)",
		"actionview isolated (master)",
		"activejob isolated (master)",
		"activemodel isolated (master)",
		"activesupport isolated (master)",
	}, labels(isolated.Steps))

	for _, s := range isolated.Steps {
		if strings.HasPrefix(s.Label, "activerecord") {
			assert.Equal(t, 5, s.Parallelism, s.Label)
		} else {
			assert.Zero(t, s.Parallelism, s.Label)
		}
	}
}

func TestRailsCINightlyOldRails(t *testing.T) {
	bc := newContext(t, railsTree(t, "4.2.11", "1.9.3"), nil)

	p, err := RailsCINightly(bc)
	require.NoError(t, err)

	assert.False(t, hasLabel(p, func(l string) bool { return strings.Contains(l, "trilogy") }))
	assert.False(t, hasLabel(p, func(l string) bool { return strings.Contains(l, "[mariadb]") }))

	_, step := findStep(t, p, "activejob integration (2.4)")
	assert.True(t, step.SoftFail)
	assert.Equal(t, "mysql:5.6", step.Env["MYSQL_IMAGE"])
	assert.Equal(t, "postgres:9.6-alpine", step.Env["POSTGRES_IMAGE"])
}

func TestRailsCINightlySkip(t *testing.T) {
	bc := newContext(t, railsTree(t, "7.1.0", "3.1.0"), map[string]string{"BUILDKITE_MESSAGE": "[skip ci] docs"})

	p, err := RailsCINightly(bc)
	require.NoError(t, err)
	assert.Empty(t, p.Steps)
}
