// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package mage

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/magefile/mage/sh"
)

const (
	// ReleasePackage receives the version variables at link time.
	ReleasePackage = "github.com/rails/buildkite-config/internal/pkg/release"

	// DefaultName is the name of the generator binary.
	DefaultName = "buildkite-config"
)

var (
	buildDate = time.Now().UTC().Format(time.RFC3339)

	commitHash     string
	commitHashOnce sync.Once
)

// BuildDate returns the time that the build started.
func BuildDate() string {
	return buildDate
}

// CommitHash returns the HEAD commit, "unknown" outside a git checkout.
func CommitHash() string {
	commitHashOnce.Do(func() {
		hash, err := sh.Output("git", "rev-parse", "HEAD")
		if err != nil || hash == "" {
			hash = "unknown"
		}
		commitHash = hash
	})
	return commitHash
}

// EnvOr returns the value of the specified environment variable if it is
// non-empty. Otherwise it returns def.
func EnvOr(name, def string) string {
	s := os.Getenv(name)
	if s == "" {
		return def
	}
	return s
}

// ParseBoolEnv parses a boolean environment variable with a default value.
func ParseBoolEnv(name string, def bool) (bool, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	return strconv.ParseBool(s)
}
