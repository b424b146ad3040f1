// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

// Package pipeline provides types and helpers for generating Buildkite pipeline
// YAML documents from Go.
//
// Steps are plain structs tagged for gopkg.in/yaml.v3, so a generated pipeline can be
// mutated freely after construction before it is serialized.
//
// # Basic Usage
//
//	step := pipeline.CommandWithKey(":docker: ruby:3.3", "docker-image-ruby-3-3", "")
//	pipeline.SetAgent(step, pipeline.Agent{"queue": "builder"})
//	pipeline.SetTimeout(step, 15)
//	pipeline.AddPlugin(step, pipeline.PluginArtifactsDownload(".dockerignore"))
//
//	group := pipeline.Group("build")
//	pipeline.AddGroupStep(group, step)
//
//	yaml, err := pipeline.New().Add(group).MarshalYAML()
//
// # Plugin Configuration
//
// Plugins pinned by the Rails pipelines are available as helpers returning a Plugin
// keyed by the pinned source:
//
//	pipeline.AddPlugin(step, pipeline.PluginDockerCompose(map[string]any{"run": "default"}))
//
// # Testing
//
// Generated pipelines can be compared with files on disk, either textually or after
// parsing both sides:
//
//	result, err := pipeline.SemanticCompareWithFile(p, ".buildkite/rails-ci.yml")
//	if !result.Equal {
//		fmt.Println(strings.Join(result.Differences, "\n"))
//	}
package pipeline
