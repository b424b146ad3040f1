// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package pipeline

// Plugin versions - centralized for easy updates.
const (
	PluginVersionDockerCompose = "v3.7.0"
	PluginVersionArtifacts     = "v1.2.0"

	// The docs preview pipeline pins newer releases.
	PluginVersionDocker          = "v5.10.0"
	PluginVersionArtifactsDocker = "v1.9.3"
)

const DockerComposeConfig = ".buildkite/docker-compose.yml"

// PluginDockerCompose returns the docker-compose plugin with the given config.
func PluginDockerCompose(config map[string]any) Plugin {
	return Plugin{"docker-compose#" + PluginVersionDockerCompose: config}
}

// PluginArtifactsDownload returns the artifacts plugin downloading the given paths.
func PluginArtifactsDownload(paths ...string) Plugin {
	return Plugin{"artifacts#" + PluginVersionArtifacts: map[string]any{
		"download": paths,
	}}
}

// PluginDocker returns the docker plugin used by the docs preview pipeline.
func PluginDocker(image string, environment ...string) Plugin {
	config := map[string]any{
		"environment": environment,
	}
	if image != "" {
		config["image"] = image
	}
	return Plugin{"docker#" + PluginVersionDocker: config}
}

// PluginDockerArtifactsUpload uploads a single artifact with the docs preview artifacts pin.
func PluginDockerArtifactsUpload(path string) Plugin {
	return Plugin{"artifacts#" + PluginVersionArtifactsDocker: map[string]any{
		"upload": path,
	}}
}

// PluginDockerArtifactsDownload downloads a single artifact with the docs preview artifacts pin.
func PluginDockerArtifactsDownload(path string) Plugin {
	return Plugin{"artifacts#" + PluginVersionArtifactsDocker: map[string]any{
		"download": path,
	}}
}
