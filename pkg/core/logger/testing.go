// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/elastic/elastic-agent-libs/logp"
)

// NewTesting returns a debug level logger whose entries are only recorded in the
// returned observer, keeping test output free of generator warnings.
func NewTesting(name string) (*Logger, *observer.ObservedLogs) {
	core, obs := observer.New(zapcore.DebugLevel)

	log := logp.NewLogger(name, zap.WrapCore(func(zapcore.Core) zapcore.Core {
		return core
	}))
	return log, obs
}
