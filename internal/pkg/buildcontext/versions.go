// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package buildcontext

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rails/buildkite-config/internal/pkg/ruby"
	"github.com/rails/buildkite-config/pkg/buildkite/pipeline"
	"github.com/rails/buildkite-config/pkg/version"
)

const (
	railsVersionFile = "RAILS_VERSION"
	railsGemspecFile = "rails.gemspec"
	defaultMinRuby   = "2.0"
)

var (
	minRubyRegEx = regexp.MustCompile(`required_ruby_version[^0-9]+([0-9]+\.[0-9]+)`)

	trilogyVersion    = version.MustParse("7.1.0.alpha")
	guidesLintVersion = version.MustParse("7.1")
)

// rangeRule maps the first satisfied Rails requirement to a value.
type rangeRule struct {
	requirement version.Requirement
	value       string
}

var (
	bundlerRules = []rangeRule{
		{version.MustParseRequirement("< 5.0"), "< 2"},
		{version.MustParseRequirement("< 6.1"), "< 2.2.10"},
	}
	rubygemsRules = []rangeRule{
		{version.MustParseRequirement("< 5.0"), "2.6.13"},
		{version.MustParseRequirement("< 6.1"), "3.2.9"},
	}
	maxRubyRules = []rangeRule{
		{version.MustParseRequirement("< 5.1"), "2.4"},
		{version.MustParseRequirement("< 5.2"), "2.5"},
		{version.MustParseRequirement("< 6.0"), "2.6"},
		{version.MustParseRequirement("< 6.1"), "2.7"},
	}
)

func (c *Context) dispatch(rules []rangeRule) (string, bool) {
	for _, r := range rules {
		if r.requirement.Satisfied(*c.railsVersion) {
			return r.value, true
		}
	}
	return "", false
}

// RailsVersion is the version of the Rails checkout.
func (c *Context) RailsVersion() version.GemVersion {
	return *c.railsVersion
}

// MinRuby is the lowest Ruby the gemspec accepts.
func (c *Context) MinRuby() version.GemVersion {
	return *c.minRuby
}

// Bundler is the bundler constraint old Rails releases need.
func (c *Context) Bundler() (string, bool) {
	return c.dispatch(bundlerRules)
}

// Rubygems is the rubygems version old Rails releases need.
func (c *Context) Rubygems() (string, bool) {
	return c.dispatch(rubygemsRules)
}

// MaxRuby is the newest Ruby old Rails releases are expected to pass on.
func (c *Context) MaxRuby() (version.GemVersion, bool) {
	v, ok := c.dispatch(maxRubyRules)
	if !ok {
		return version.GemVersion{}, false
	}
	return version.MustParse(v), true
}

// SupportsTrilogy reports whether the trilogy adapter ships with this Rails.
func (c *Context) SupportsTrilogy() bool {
	return !c.railsVersion.Less(trilogyVersion)
}

// SupportsGuidesLint reports whether the guides have a lint task.
func (c *Context) SupportsGuidesLint() bool {
	return !c.railsVersion.Less(guidesLintVersion)
}

// TestWithMultipleVersionsOfRack reports whether the rack-2 and rack-head variants
// run for r. They only run on the default ruby.
func (c *Context) TestWithMultipleVersionsOfRack(r ruby.Config) bool {
	if c.railsVersion.Less(trilogyVersion) {
		return false
	}
	def, ok := c.DefaultRuby()
	return ok && def.Equal(r)
}

// HasRailspect reports whether the checkout ships the railspect tool.
func (c *Context) HasRailspect() bool {
	_, err := os.Stat(filepath.Join(c.railsRoot, "tools", "railspect"))
	return err == nil
}

// HasDir reports whether the checkout contains dir.
func (c *Context) HasDir(dir string) bool {
	info, err := os.Stat(filepath.Join(c.railsRoot, dir))
	return err == nil && info.IsDir()
}

// RakefileContains reports whether dir/Rakefile mentions marker. A missing Rakefile
// contains nothing.
func (c *Context) RakefileContains(dir, marker string) bool {
	data, err := os.ReadFile(filepath.Join(c.railsRoot, dir, "Rakefile"))
	if err != nil {
		return false
	}
	return strings.Contains(string(data), marker)
}

// ArtifactPaths are the test report globs every test step uploads.
func (c *Context) ArtifactPaths() []string {
	return []string{"test-reports/*/*.xml"}
}

// AutomaticRetryOn retries agent losses and killed containers.
func (c *Context) AutomaticRetryOn() []pipeline.AutomaticRetry {
	return []pipeline.AutomaticRetry{
		pipeline.RetryOn(-1, 2),
		pipeline.RetryOn(255, 2),
	}
}

// TimeoutInMinutes is the default test step timeout.
func (c *Context) TimeoutInMinutes() int {
	return 30
}

func readRailsVersion(root string) (*version.GemVersion, error) {
	data, err := os.ReadFile(filepath.Join(root, railsVersionFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRailsVersion, err)
	}
	v, err := version.ParseVersion(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRailsVersion, err)
	}
	return v, nil
}

func readMinRuby(root string) *version.GemVersion {
	found := defaultMinRuby
	if data, err := os.ReadFile(filepath.Join(root, railsGemspecFile)); err == nil {
		if m := minRubyRegEx.FindSubmatch(data); m != nil {
			found = string(m[1])
		}
	}
	v := version.MustParse(found)
	return &v
}
