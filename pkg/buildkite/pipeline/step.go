// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package pipeline

// Agent is the agent targeting rules of a step, usually just the queue.
type Agent map[string]string

// Env holds step environment variables. A nil value is emitted as YAML null, which
// Buildkite uses to unset a variable inherited from the pipeline.
type Env map[string]any

// Plugin is a single plugin reference: one key (the plugin source) mapped to its config.
type Plugin map[string]any

// Commands is emitted as a plain string when it holds a single command.
type Commands []string

func (c Commands) MarshalYAML() (interface{}, error) {
	if len(c) == 1 {
		return c[0], nil
	}
	return []string(c), nil
}

// AutomaticRetry is one rule of the automatic retry policy.
type AutomaticRetry struct {
	ExitStatus *int `yaml:"exit_status,omitempty"`
	Limit      int  `yaml:"limit,omitempty"`
}

// Retry is the retry policy of a command step.
type Retry struct {
	Automatic []AutomaticRetry `yaml:"automatic,omitempty"`
}

// CommandStep is a Buildkite command step.
type CommandStep struct {
	Label            string   `yaml:"label,omitempty"`
	Key              string   `yaml:"key,omitempty"`
	Command          Commands `yaml:"command,omitempty"`
	DependsOn        []string `yaml:"depends_on,omitempty"`
	Plugins          []Plugin `yaml:"plugins,omitempty"`
	Env              Env      `yaml:"env,omitempty"`
	Agents           Agent    `yaml:"agents,omitempty"`
	ArtifactPaths    []string `yaml:"artifact_paths,omitempty"`
	Retry            *Retry   `yaml:"retry,omitempty"`
	TimeoutInMinutes int      `yaml:"timeout_in_minutes,omitempty"`
	SoftFail         bool     `yaml:"soft_fail,omitempty"`
	Parallelism      int      `yaml:"parallelism,omitempty"`
}

// GroupStep is a Buildkite group step.
type GroupStep struct {
	Group string         `yaml:"group"`
	Steps []*CommandStep `yaml:"steps"`
}

// Command creates a new command step with the given label and command.
func Command(label, command string) *CommandStep {
	step := &CommandStep{Label: label}
	if command != "" {
		step.Command = Commands{command}
	}
	return step
}

// CommandWithKey creates a new command step with label, key, and command.
func CommandWithKey(label, key, command string) *CommandStep {
	step := Command(label, command)
	step.Key = key
	return step
}

// Group creates a new group step with the given label.
func Group(label string) *GroupStep {
	return &GroupStep{Group: label, Steps: []*CommandStep{}}
}

// AddGroupStep adds command steps to a group.
func AddGroupStep(group *GroupStep, steps ...*CommandStep) *GroupStep {
	group.Steps = append(group.Steps, steps...)
	return group
}

// SetLabel replaces the label of a command step.
func SetLabel(step *CommandStep, label string) *CommandStep {
	step.Label = label
	return step
}

// AddCommand appends a command, turning the step into a multi-command step.
func AddCommand(step *CommandStep, command string) *CommandStep {
	step.Command = append(step.Command, command)
	return step
}

// SetAgent sets the agent configuration on a command step.
func SetAgent(step *CommandStep, agent Agent) *CommandStep {
	step.Agents = agent
	return step
}

// SetEnv sets environment variables on a command step.
func SetEnv(step *CommandStep, env Env) *CommandStep {
	step.Env = make(Env, len(env))
	for k, v := range env {
		step.Env[k] = v
	}
	return step
}

// AddEnv adds a single environment variable to a command step.
func AddEnv(step *CommandStep, key string, value any) *CommandStep {
	if step.Env == nil {
		step.Env = make(Env)
	}
	step.Env[key] = value
	return step
}

// SetArtifactPaths sets artifact paths on a command step.
func SetArtifactPaths(step *CommandStep, paths ...string) *CommandStep {
	step.ArtifactPaths = append([]string(nil), paths...)
	return step
}

// SetRetryAutomatic replaces the automatic retry rules of a command step.
func SetRetryAutomatic(step *CommandStep, rules ...AutomaticRetry) *CommandStep {
	if len(rules) == 0 {
		step.Retry = nil
		return step
	}
	step.Retry = &Retry{Automatic: append([]AutomaticRetry(nil), rules...)}
	return step
}

// RetryOn builds an automatic retry rule for the given exit status.
func RetryOn(exitStatus, limit int) AutomaticRetry {
	return AutomaticRetry{ExitStatus: Ptr(exitStatus), Limit: limit}
}

// SetDependsOn sets step dependencies on a command step.
// Always uses array format for consistency with YAML files.
func SetDependsOn(step *CommandStep, keys ...string) *CommandStep {
	step.DependsOn = append([]string(nil), keys...)
	return step
}

// SetSoftFail configures soft failure handling on a command step.
func SetSoftFail(step *CommandStep, softFail bool) *CommandStep {
	step.SoftFail = softFail
	return step
}

// SetTimeout sets the timeout in minutes on a command step.
func SetTimeout(step *CommandStep, minutes int) *CommandStep {
	step.TimeoutInMinutes = minutes
	return step
}

// AddPlugin appends plugins to a command step, keeping their order.
func AddPlugin(step *CommandStep, plugins ...Plugin) *CommandStep {
	step.Plugins = append(step.Plugins, plugins...)
	return step
}

// SetParallelism sets the parallelism for a command step.
func SetParallelism(step *CommandStep, n int) *CommandStep {
	step.Parallelism = n
	return step
}
