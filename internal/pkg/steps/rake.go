// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package steps

import (
	"regexp"
	"strings"

	"github.com/rails/buildkite-config/internal/pkg/buildcontext"
	"github.com/rails/buildkite-config/internal/pkg/ruby"
	"github.com/rails/buildkite-config/pkg/buildkite/pipeline"
	"github.com/rails/buildkite-config/pkg/version"
)

const (
	DefaultService = "default"
	DefaultTask    = "test"
)

// RakeDownloads are the files a test step needs from the config checkout.
var RakeDownloads = []string{".buildkite/*", ".buildkite/**/*"}

var (
	labelTaskRegEx = regexp.MustCompile(`[:_]test|test:`)
	labelTestRegEx = regexp.MustCompile(` test`)

	rails5   = version.MustParse("5.x")
	rails52  = version.MustParse("5.2.x")
	rails6   = version.MustParse("6.x")
	trilogyV = version.MustParse("7.1.0.alpha")
)

// RakeOptions tune a rake step.
type RakeOptions struct {
	// Service is the docker-compose service the task runs in, "default" when empty.
	Service string
	// PreSteps run inside the container before the task.
	PreSteps []string
	// Unlabelled leaves the ruby out of the step label.
	Unlabelled bool
}

// ToLabel builds a step label from the subsystem directory and the rake task,
// dropping the redundant "test" words, followed by the short ruby name.
func ToLabel(r ruby.Config, dir, task string) string {
	label := dir + " " + replaceFirst(labelTaskRegEx, task, "")
	label = replaceFirst(labelTestRegEx, label, "")
	if !r.HasVersion() {
		return label
	}
	return label + " (" + r.ShortRuby() + ")"
}

// Rake emits the step running task in the dir subsystem on r. The returned step is
// fully populated and callers adjust it for their variant.
func Rake(bc *buildcontext.Context, r ruby.Config, dir, task string, opts RakeOptions) *pipeline.CommandStep {
	if task == "" {
		task = DefaultTask
	}
	service := opts.Service
	if service == "" {
		service = DefaultService
	}

	label := ToLabel(r, dir, task)
	if opts.Unlabelled {
		label = ToLabel(ruby.Config{}, dir, task)
	}

	step := pipeline.Command(label, "rake "+rebuildTask(bc, task))
	pipeline.SetDependsOn(step, DependencyKey(r))
	pipeline.AddPlugin(step, pipeline.PluginArtifactsDownload(RakeDownloads...))
	pipeline.AddPlugin(step, pipeline.PluginDockerCompose(map[string]any{
		"env":    []string{"PRE_STEPS", "RACK"},
		"run":    service,
		"pull":   service,
		"config": pipeline.DockerComposeConfig,
		"shell":  []string{"runner", dir},
	}))
	pipeline.SetEnv(step, rakeEnv(bc, r, opts.PreSteps))
	pipeline.SetAgent(step, pipeline.Agent{"queue": bc.RunQueue()})
	pipeline.SetArtifactPaths(step, bc.ArtifactPaths()...)
	pipeline.SetRetryAutomatic(step, bc.AutomaticRetryOn()...)
	pipeline.SetTimeout(step, bc.TimeoutInMinutes())
	pipeline.SetSoftFail(step, r.SoftFail)

	return step
}

// rebuildTask prefixes database tasks with the rebuild of their database.
func rebuildTask(bc *buildcontext.Context, task string) string {
	switch {
	case strings.HasPrefix(task, "mysql2:"),
		strings.HasPrefix(task, "trilogy:") && !bc.RailsVersion().Less(trilogyV):
		return "db:mysql:rebuild " + task
	case strings.HasPrefix(task, "postgresql:"):
		return "db:postgresql:rebuild " + task
	}
	return task
}

func rakeEnv(bc *buildcontext.Context, r ruby.Config, preSteps []string) pipeline.Env {
	env := pipeline.Env{
		"IMAGE_NAME": bc.ImageBase() + ":" + r.ImageNameFor(bc.BuildID()),
	}

	rails := bc.RailsVersion()
	switch {
	case rails.Less(rails5):
		env["MYSQL_IMAGE"] = "mysql:5.6"
	case rails.Less(rails6):
		env["MYSQL_IMAGE"] = "mysql:5.7"
	}
	if rails.Less(rails52) {
		env["POSTGRES_IMAGE"] = "postgres:9.6-alpine"
	}

	if r.YJIT {
		env["RUBY_YJIT_ENABLE"] = "1"
	}
	if len(preSteps) > 0 {
		env["PRE_STEPS"] = strings.Join(preSteps, " && ")
	}
	return env
}

func replaceFirst(re *regexp.Regexp, s, repl string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + repl + s[loc[1]:]
}
