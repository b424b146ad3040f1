// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

// Package steps emits the Buildkite steps shared by the Rails pipelines: the docker
// image builds and the rake test runs.
package steps

import (
	"slices"
	"strings"

	"github.com/rails/buildkite-config/internal/pkg/buildcontext"
	"github.com/rails/buildkite-config/internal/pkg/ruby"
	"github.com/rails/buildkite-config/pkg/buildkite/pipeline"
)

const (
	dockerBuildTimeout = 15
	baseService        = "base"
)

// BuildDownloads are the files the docker build needs from the config checkout.
var BuildDownloads = []string{".dockerignore", ".buildkite/*", ".buildkite/**/*"}

// DockerBuild emits the step building the test image for r. Rubies sharing another
// image, like YJIT, have no build step and report false.
func DockerBuild(bc *buildcontext.Context, r ruby.Config) (*pipeline.CommandStep, bool) {
	if !r.Build() {
		return nil, false
	}

	step := pipeline.CommandWithKey(":docker: "+r.Name(), DependencyKey(r), "")
	pipeline.AddPlugin(step, pipeline.PluginArtifactsDownload(BuildDownloads...))
	pipeline.AddPlugin(step, pipeline.PluginDockerCompose(map[string]any{
		"build":            baseService,
		"config":           pipeline.DockerComposeConfig,
		"env":              []string{"PRE_STEPS", "RACK"},
		"image-name":       r.ImageNameFor(bc.BuildID()),
		"cache-from":       cacheFrom(bc, r),
		"push":             []string{pushTarget(bc, r)},
		"image-repository": bc.ImageBase(),
	}))

	bundler, rubygems := optional(bc.Bundler()), optional(bc.Rubygems())
	pipeline.SetEnv(step, pipeline.Env{
		"BUNDLER":                    bundler,
		"RUBYGEMS":                   rubygems,
		"RUBY_IMAGE":                 r.RubyImage(),
		"encrypted_0fb9444d0374_key": nil,
		"encrypted_0fb9444d0374_iv":  nil,
	})
	pipeline.SetTimeout(step, dockerBuildTimeout)
	pipeline.SetSoftFail(step, r.SoftFail)
	pipeline.SetAgent(step, pipeline.Agent{"queue": bc.BuildQueue()})

	return step, true
}

// DependencyKey is the key of the docker build step test steps on r wait for.
func DependencyKey(r ruby.Config) string {
	return "docker-image-" + r.ImageKey()
}

// cacheFrom lists the images a build may reuse layers from, most specific first.
func cacheFrom(bc *buildcontext.Context, r ruby.Config) []string {
	var images []string
	if id, ok := bc.RebuildID(); ok {
		images = append(images, bc.ImageNameFor(r, id))
	}
	if pr, ok := bc.PullRequest(); ok {
		images = append(images, bc.ImageNameFor(r, "pr-"+pr))
	}
	if branch, ok := bc.LocalBranch(); ok && !strings.Contains(branch, ":") {
		images = append(images, bc.ImageNameFor(r, "br-"+branch))
	}
	if branch, ok := bc.BaseBranch(); ok {
		images = append(images, bc.ImageNameFor(r, "br-"+branch))
	}
	images = append(images, bc.ImageNameFor(r, "br-"+buildcontext.DefaultBranch))

	unique := images[:0]
	for _, image := range images {
		if !slices.Contains(unique, image) {
			unique = append(unique, image)
		}
	}
	return unique
}

// pushTarget tags fork branches ("user:branch") by pull request instead of by branch.
func pushTarget(bc *buildcontext.Context, r ruby.Config) string {
	branch, _ := bc.LocalBranch()
	if strings.Contains(branch, ":") {
		pr, _ := bc.PullRequest()
		return bc.ImageNameFor(r, "pr-"+pr)
	}
	return bc.ImageNameFor(r, "br-"+branch)
}

// optional turns an unset value into a YAML null.
func optional(v string, ok bool) any {
	if !ok {
		return nil
	}
	return v
}
