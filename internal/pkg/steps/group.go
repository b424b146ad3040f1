// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package steps

import (
	"github.com/rails/buildkite-config/internal/pkg/ruby"
	"github.com/rails/buildkite-config/pkg/buildkite/pipeline"
)

// RubyGroup groups steps under the version of r.
func RubyGroup(r ruby.Config, steps ...*pipeline.CommandStep) *pipeline.GroupStep {
	return pipeline.AddGroupStep(pipeline.Group(r.String()), steps...)
}
