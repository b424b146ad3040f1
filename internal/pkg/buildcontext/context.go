// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

// Package buildcontext holds everything a pipeline generation run knows about its
// environment, the Rails checkout under test and the Ruby matrix.
package buildcontext

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/rails/buildkite-config/internal/pkg/config"
	"github.com/rails/buildkite-config/internal/pkg/ruby"
	"github.com/rails/buildkite-config/pkg/version"
)

const (
	// DefaultRegistry hosts the images built by self-hosted agents.
	DefaultRegistry = "973266071021.dkr.ecr.us-east-1.amazonaws.com"

	DefaultPipelineName = "rails-ci"
	DefaultBranch       = "main"
	DefaultBuildID      = "build_id"
	DefaultBuildQueue   = "builder"
	DefaultRunQueue     = "default"
)

var (
	// ErrRailsVersion is returned when the Rails checkout has no readable RAILS_VERSION.
	ErrRailsVersion = errors.New("cannot determine rails version")

	// pipelines that run inside the Rails repository itself rather than a config checkout.
	inRepoPipelines = []string{"rails-ci", "rails-sandbox", "zzak/rails", "rails"}

	skipMarkers = []string{"[ci skip]", "[skip ci]", "[ci-skip]", "[skip-ci]"}

	mainlineRegEx = regexp.MustCompile(`\A[0-9-]+(?:-stable)?\z`)
)

// Context is the state of one pipeline generation run.
type Context struct {
	settings *config.Settings

	workDir   string
	railsRoot string
	prTitle   string

	railsVersion *version.GemVersion
	minRuby      *version.GemVersion

	rubies      []ruby.Config
	defaultRuby *ruby.Config
}

// Option customizes a Context.
type Option func(*Context)

// WithWorkingDir replaces the process working directory used to locate the Rails checkout.
func WithWorkingDir(dir string) Option {
	return func(c *Context) { c.workDir = dir }
}

// WithRailsRoot points directly at the Rails checkout.
func WithRailsRoot(dir string) Option {
	return func(c *Context) { c.railsRoot = dir }
}

// WithRailsVersion skips reading RAILS_VERSION.
func WithRailsVersion(v version.GemVersion) Option {
	return func(c *Context) { c.railsVersion = &v }
}

// WithPRTitle provides the pull request title, used for skip detection.
func WithPRTitle(title string) Option {
	return func(c *Context) { c.prTitle = title }
}

// New builds a Context from settings.
func New(settings *config.Settings, opts ...Option) (*Context, error) {
	if settings == nil {
		settings = &config.Settings{}
	}
	c := &Context{settings: settings}
	for _, opt := range opts {
		opt(c)
	}

	if c.workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		c.workDir = wd
	}
	if c.railsRoot == "" {
		c.railsRoot = c.defaultRailsRoot()
	}

	if c.railsVersion == nil {
		v, err := readRailsVersion(c.railsRoot)
		if err != nil {
			return nil, err
		}
		c.railsVersion = v
	}
	c.minRuby = readMinRuby(c.railsRoot)

	return c, nil
}

// Settings returns the settings the context was built from.
func (c *Context) Settings() *config.Settings {
	return c.settings
}

// CI reports whether the generator runs on a CI agent.
func (c *Context) CI() bool {
	return c.settings.Buildkite != nil || c.settings.CI != nil
}

// Hosted reports whether the build runs on Buildkite hosted agents.
func (c *Context) Hosted() bool {
	v, _ := config.Value(c.settings.ComputeType)
	return v == "hosted"
}

// SelfHosted reports whether the build runs on self-hosted agents, the default.
func (c *Context) SelfHosted() bool {
	return !c.Hosted()
}

// Skip reports whether the commit message or the pull request title asks to skip CI.
func (c *Context) Skip() bool {
	msg, _ := config.Value(c.settings.Message)
	for _, marker := range skipMarkers {
		if strings.Contains(msg, marker) || strings.Contains(c.prTitle, marker) {
			return true
		}
	}
	return false
}

// PipelineName is the Buildkite pipeline slug.
func (c *Context) PipelineName() string {
	if v, ok := config.Value(c.settings.PipelineName); ok {
		return v
	}
	return DefaultPipelineName
}

// RailsRoot is the directory of the Rails checkout under test.
func (c *Context) RailsRoot() string {
	return c.railsRoot
}

func (c *Context) defaultRailsRoot() string {
	if c.CI() && slices.Contains(inRepoPipelines, c.PipelineName()) {
		return c.workDir
	}
	return filepath.Join(c.workDir, "tmp", "rails")
}

// Registry is the docker registry images are pushed to.
func (c *Context) Registry() string {
	if c.SelfHosted() {
		return DefaultRegistry
	}
	if v, ok := config.Value(c.settings.Registry); ok {
		return v
	}
	return DefaultRegistry
}

// ImageBase is the image repository, DOCKER_IMAGE when set.
func (c *Context) ImageBase() string {
	if v, ok := config.Value(c.settings.DockerImage); ok {
		return v
	}
	return c.RemoteImageBase()
}

// RemoteImageBase is the registry repository for the build queue.
func (c *Context) RemoteImageBase() string {
	base := c.Registry() + "/"
	if q := c.BuildQueue(); !isStandardQueue(q, true) {
		base += q + "-"
	}
	return base + "builds"
}

// ImageNameFor is the fully qualified cache image for r tagged with suffix.
func (c *Context) ImageNameFor(r ruby.Config, suffix string) string {
	return "base:" + c.ImageBase() + ":" + r.ImageNameFor(suffix)
}

// BuildID identifies the build, used to tag the images it produces.
func (c *Context) BuildID() string {
	if v, ok := config.Value(c.settings.BuildkiteID); ok {
		return v
	}
	if v, ok := config.Value(c.settings.BuildID); ok {
		return v
	}
	return DefaultBuildID
}

// RebuildID is the build this one was retried from.
func (c *Context) RebuildID() (string, bool) {
	v, ok := config.Value(c.settings.RebuiltFromID)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// BaseBranch is the branch a pull request targets, else the built branch, else main.
// It is unset when the first candidate that is not blank is unset.
func (c *Context) BaseBranch() (string, bool) {
	return firstNonBlank(c.settings.BaseBranch, c.settings.Branch, config.Ptr(DefaultBranch))
}

// LocalBranch is the built branch, main when blank.
func (c *Context) LocalBranch() (string, bool) {
	return firstNonBlank(c.settings.Branch, config.Ptr(DefaultBranch))
}

// Mainline reports whether the built branch is main or a release branch.
func (c *Context) Mainline() bool {
	b, ok := c.LocalBranch()
	if !ok {
		return false
	}
	return b == DefaultBranch || mainlineRegEx.MatchString(b)
}

// PullRequest is the pull request number, unset for branch builds.
func (c *Context) PullRequest() (string, bool) {
	v, ok := config.Value(c.settings.PullRequest)
	if !ok || v == "" || v == "false" {
		return "", false
	}
	return v, true
}

// Queue is the agent queue the pipeline upload runs on, when it is not a standard queue.
func (c *Context) Queue() (string, bool) {
	v, ok := config.Value(c.settings.AgentQueue)
	if isStandardQueue(v, ok) {
		return "", false
	}
	return v, true
}

// BuildQueue is the queue docker builds run on.
func (c *Context) BuildQueue() string {
	if v, ok := config.Value(c.settings.BuildQueue); ok {
		return v
	}
	if q, ok := c.Queue(); ok {
		return q
	}
	return DefaultBuildQueue
}

// RunQueue is the queue test steps run on.
func (c *Context) RunQueue() string {
	if v, ok := config.Value(c.settings.RunQueue); ok {
		return v
	}
	if q, ok := c.Queue(); ok {
		return q
	}
	return DefaultRunQueue
}

func isStandardQueue(name string, set bool) bool {
	return !set || name == DefaultRunQueue || name == DefaultBuildQueue
}

func firstNonBlank(values ...*string) (string, bool) {
	for _, v := range values {
		if v == nil {
			return "", false
		}
		if *v != "" {
			return *v, true
		}
	}
	return "", false
}
