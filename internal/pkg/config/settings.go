// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package config

import (
	"fmt"
)

// Settings is every environment input of pipeline generation. A nil field is unset,
// which several rules treat differently from a blank value.
type Settings struct {
	Buildkite     *string `config:"BUILDKITE"`
	CI            *string `config:"CI"`
	ComputeType   *string `config:"BUILDKITE_COMPUTE_TYPE"`
	Registry      *string `config:"REGISTRY"`
	Nightly       *string `config:"RAILS_CI_NIGHTLY"`
	Message       *string `config:"BUILDKITE_MESSAGE"`
	DockerImage   *string `config:"DOCKER_IMAGE"`
	BuildkiteID   *string `config:"BUILDKITE_BUILD_ID"`
	BuildID       *string `config:"BUILD_ID"`
	RebuiltFromID *string `config:"BUILDKITE_REBUILT_FROM_BUILD_ID"`
	BaseBranch    *string `config:"BUILDKITE_PULL_REQUEST_BASE_BRANCH"`
	Branch        *string `config:"BUILDKITE_BRANCH"`
	PipelineName  *string `config:"BUILDKITE_PIPELINE_NAME"`
	PullRequest   *string `config:"BUILDKITE_PULL_REQUEST"`
	AgentQueue    *string `config:"BUILDKITE_AGENT_META_DATA_QUEUE"`
	BuildQueue    *string `config:"BUILD_QUEUE"`
	RunQueue      *string `config:"RUN_QUEUE"`

	GithubToken      *string `config:"GITHUB_TOKEN"`
	GithubRepository *string `config:"GITHUB_REPOSITORY"`
}

// NewSettings unpacks settings from a configuration.
func NewSettings(cfg *Config) (*Settings, error) {
	s := &Settings{}
	if err := cfg.UnpackTo(s); err != nil {
		return nil, fmt.Errorf("unpacking settings: %w", err)
	}
	return s, nil
}

// LoadSettings reads the environment and, when path is not empty, a YAML file whose
// keys override it.
func LoadSettings(environ []string, path string) (*Settings, error) {
	cfg, err := FromEnviron(environ)
	if err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if path != "" {
		override, err := LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := cfg.Merge(override); err != nil {
			return nil, fmt.Errorf("merging config file %s: %w", path, err)
		}
	}

	return NewSettings(cfg)
}

// SettingsFromMap is a convenience for tests and callers that already hold the values.
func SettingsFromMap(values map[string]string) (*Settings, error) {
	data := make(map[string]interface{}, len(values))
	for k, v := range values {
		data[k] = v
	}
	cfg, err := NewConfigFrom(data)
	if err != nil {
		return nil, err
	}
	return NewSettings(cfg)
}

// MustSettingsFromMap panics on invalid input.
func MustSettingsFromMap(values map[string]string) *Settings {
	s, err := SettingsFromMap(values)
	if err != nil {
		panic(err)
	}
	return s
}

// IsNightly reports whether RAILS_CI_NIGHTLY is set, whatever its value.
func (s *Settings) IsNightly() bool {
	return s.Nightly != nil
}

// Value returns the dereferenced value and whether it was set.
func Value(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}

// Ptr returns a pointer to s, for building Settings by hand.
func Ptr(s string) *string {
	return &s
}
