// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package pipelines

import (
	"strings"

	"github.com/rails/buildkite-config/internal/pkg/buildcontext"
	"github.com/rails/buildkite-config/pkg/buildkite/pipeline"
)

const (
	previewArchive  = "preview.tar.gz"
	previewAnnotate = ".buildkite/docs-preview-annotate"
)

// DocsPreview generates the pipeline that builds the guides and API docs, publishes
// them to Cloudflare Pages and annotates the build with the preview link.
func DocsPreview(_ *buildcontext.Context) (*pipeline.Pipeline, error) {
	build := pipeline.CommandWithKey(":rails: build", "build", "bundle install && bundle exec rake preview_docs")
	pipeline.AddPlugin(build, pipeline.PluginDocker("ruby:latest",
		"BUILDKITE_BRANCH",
		"BUILDKITE_BUILD_CREATOR",
		"BUILDKITE_BUILD_NUMBER",
		"BUILDKITE_BUILD_URL",
		"BUILDKITE_COMMIT",
		"BUILDKITE_MESSAGE",
		"BUILDKITE_PULL_REQUEST",
		"BUILDKITE_REPO",
		"BUNDLE_WITHOUT=db:job:cable:storage:ujs",
	))
	pipeline.AddPlugin(build, pipeline.PluginDockerArtifactsUpload(previewArchive))

	deploy := pipeline.CommandWithKey(":rocket: deploy", "deploy", "tar -xzf "+previewArchive)
	pipeline.SetDependsOn(deploy, "build")
	pipeline.AddPlugin(deploy, pipeline.PluginDocker("node:latest",
		"BUILDKITE_BRANCH",
		"CLOUDFLARE_ACCOUNT_ID",
		"CLOUDFLARE_API_TOKEN",
		// silences the wrangler usage metrics prompt
		"WRANGLER_SEND_METRICS=false",
	))
	pipeline.AddPlugin(deploy, pipeline.PluginDockerArtifactsDownload(previewArchive))
	pipeline.AddCommand(deploy, "npm install wrangler")
	pipeline.AddCommand(deploy, `npx wrangler pages publish preview --project-name=$CLOUDFLARE_PAGES_PROJECT --branch="$BUILDKITE_BRANCH"`)

	// $$ escapes Buildkite interpolation so the agent shell expands the variables.
	annotate := pipeline.Command(":writing_hand: annotate", `sh -c "$$ANNOTATE_COMMAND" | buildkite-agent annotate --style info`)
	pipeline.SetDependsOn(annotate, "deploy")
	pipeline.AddPlugin(annotate, pipeline.PluginDockerArtifactsDownload(previewAnnotate))
	pipeline.AddEnv(annotate, "ANNOTATE_COMMAND", strings.Join([]string{
		"docker run --rm",
		`-v "$$PWD":/app:ro -w /app`,
		"-e CLOUDFLARE_ACCOUNT_ID",
		"-e CLOUDFLARE_API_TOKEN",
		"-e CLOUDFLARE_PAGES_PROJECT",
		"ruby:latest",
		"ruby " + previewAnnotate,
	}, " "))

	return pipeline.New().Add(build).Add(deploy).Add(annotate), nil
}
