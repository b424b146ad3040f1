// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

// Package ruby describes the Ruby interpreter images a pipeline builds and tests against.
package ruby

import (
	"regexp"
	"strings"
)

const (
	// MasterImage is the nightly build of Ruby's default branch.
	MasterImage = "rubylang/ruby:master-nightly-jammy"
	// MasterDebugImage is the nightly build of Ruby's default branch compiled with debug checks.
	MasterDebugImage = "rubylang/ruby:master-debug-nightly-jammy"

	// yjitMarker is prepended to the master image so YJIT runs reuse the master image
	// and only toggle YJIT through the environment.
	yjitMarker = "yjit:"

	DefaultSuffix = "build_id"
)

var (
	nonWord         = regexp.MustCompile(`\W`)
	nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]`)
	shortStrip      = regexp.MustCompile(`^ruby:|:latest$`)
)

// Config is one Ruby image of the test matrix.
type Config struct {
	Version  string
	Prefix   string
	SoftFail bool
	YJIT     bool
}

// Option customizes a Config.
type Option func(*Config)

// WithPrefix sets the image prefix, e.g. "ruby:".
func WithPrefix(prefix string) Option {
	return func(c *Config) { c.Prefix = prefix }
}

// WithSoftFail marks the image as allowed to fail.
func WithSoftFail(softFail bool) Option {
	return func(c *Config) { c.SoftFail = softFail }
}

// WithYJIT enables YJIT for steps running on the image.
func WithYJIT() Option {
	return func(c *Config) { c.YJIT = true }
}

// New creates a Config for version.
func New(version string, opts ...Option) Config {
	c := Config{Version: version}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Master is the soft failing nightly master image.
func Master() Config {
	return New(MasterImage, WithSoftFail(true))
}

// YJIT is the master image with YJIT enabled.
func YJIT() Config {
	return New(yjitMarker+MasterImage, WithSoftFail(true), WithYJIT())
}

// MasterDebug is the soft failing nightly master image built with debug checks.
func MasterDebug() Config {
	return New(MasterDebugImage, WithSoftFail(true))
}

// Build reports whether the image needs its own docker build step. YJIT shares the master image.
func (c Config) Build() bool {
	return !c.YJIT
}

// HasVersion reports whether the config names a version at all.
func (c Config) HasVersion() bool {
	return c.Version != ""
}

// RubyImage is the docker image reference.
func (c Config) RubyImage() string {
	if c.YJIT {
		return strings.Replace(c.Version, yjitMarker, "", 1)
	}
	return c.Prefix + c.Version
}

// ImageKey is the step key fragment for the image.
func (c Config) ImageKey() string {
	return nonWord.ReplaceAllString(c.RubyImage(), "-")
}

// ImageNameFor is the image tag for suffix: every non-alphanumeric character of the
// image becomes "-".
func (c Config) ImageNameFor(suffix string) string {
	return mangleName(c.RubyImage()) + "-" + suffix
}

// ShortRuby is the shortened name used in step labels.
func (c Config) ShortRuby() string {
	switch {
	case c.Version == MasterImage:
		return "master"
	case c.Version == MasterDebugImage:
		return "master-debug"
	case c.YJIT:
		return "yjit"
	default:
		return replaceFirst(shortStrip, c.Version, "")
	}
}

// Equal compares every attribute.
func (c Config) Equal(other Config) bool {
	return c == other
}

// Name is the matrix entry as written in the pipeline: prefix and version, with the
// yjit marker kept.
func (c Config) Name() string {
	return c.Prefix + c.Version
}

func (c Config) String() string {
	return c.Version
}

func replaceFirst(re *regexp.Regexp, s, repl string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + repl + s[loc[1]:]
}

func mangleName(name string) string {
	return nonAlphanumeric.ReplaceAllString(name, "-")
}
