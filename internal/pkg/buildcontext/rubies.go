// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package buildcontext

import (
	"fmt"
	"slices"
	"sort"

	"github.com/rails/buildkite-config/internal/pkg/ruby"
	"github.com/rails/buildkite-config/pkg/version"
)

// RubyPrefix is the official docker image prefix for matrix rubies.
const RubyPrefix = "ruby:"

// SetupRubies builds the Ruby matrix from candidate minor versions. Versions below the
// gemspec minimum are dropped, versions above the maximum supported by an old Rails
// soft fail unless they are a patch release of that maximum. The result runs newest
// first with soft failing rubies last.
func (c *Context) SetupRubies(minors []string) error {
	versions := make([]version.GemVersion, 0, len(minors))
	for _, m := range minors {
		v, err := version.ParseVersion(m)
		if err != nil {
			return fmt.Errorf("ruby matrix: %w", err)
		}
		versions = append(versions, *v)
	}
	version.Sort(versions)

	maxRuby, hasMax := c.MaxRuby()

	rubies := make([]ruby.Config, 0, len(versions))
	for _, v := range versions {
		if v.Less(*c.minRuby) {
			continue
		}
		rc := ruby.New(v.Original(), ruby.WithPrefix(RubyPrefix))
		if hasMax && v.GreaterThan(maxRuby) && !v.SameSeries(maxRuby) {
			rc.SoftFail = true
		}
		rubies = append(rubies, rc)
	}

	for i, j := 0, len(rubies)-1; i < j; i, j = i+1, j-1 {
		rubies[i], rubies[j] = rubies[j], rubies[i]
	}
	sort.SliceStable(rubies, func(i, j int) bool {
		return !rubies[i].SoftFail && rubies[j].SoftFail
	})

	c.rubies = rubies
	return nil
}

// Rubies returns the matrix.
func (c *Context) Rubies() []ruby.Config {
	return append([]ruby.Config(nil), c.rubies...)
}

// AddRuby appends r to the matrix.
func (c *Context) AddRuby(r ruby.Config) {
	c.rubies = append(c.rubies, r)
}

// InsertRuby adds r ahead of the soft failing rubies of the matrix.
func (c *Context) InsertRuby(r ruby.Config) {
	i := slices.IndexFunc(c.rubies, func(x ruby.Config) bool { return x.SoftFail })
	if i < 0 {
		c.rubies = append(c.rubies, r)
		return
	}
	c.rubies = slices.Insert(c.rubies, i, r)
}

// DefaultRuby is the ruby single-version steps run on: the explicit default when one was
// set, otherwise the newest ruby that is not soft failing. When every minor soft fails
// the newest of them is used. A matrix without minor versions has no default.
func (c *Context) DefaultRuby() (ruby.Config, bool) {
	if c.defaultRuby != nil {
		return *c.defaultRuby, true
	}
	for _, r := range c.rubies {
		if !r.SoftFail {
			return r, true
		}
	}
	for _, r := range c.rubies {
		if r.Prefix == RubyPrefix {
			return r, true
		}
	}
	return ruby.Config{}, false
}

// SetDefaultRuby overrides the default ruby.
func (c *Context) SetDefaultRuby(r ruby.Config) {
	c.defaultRuby = &r
}
