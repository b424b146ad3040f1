// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package mage

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/sh"
)

// BuildArgs are the arguments used for the "build" target and they define how
// "go build" is invoked.
type BuildArgs struct {
	Name       string // Name of the binary.
	OutputDir  string
	Version    string
	LDFlags    []string
	ExtraFlags []string
}

// DefaultBuildArgs returns the default BuildArgs for use in builds.
func DefaultBuildArgs() BuildArgs {
	return BuildArgs{
		Name:      DefaultName,
		OutputDir: "build",
		Version:   EnvOr("VERSION", "0.0.0-dev"),
		LDFlags:   []string{"-s"},
	}
}

// linkerVars are the -X flags setting the version variables of the release package.
func (b BuildArgs) linkerVars() []string {
	vars := map[string]string{
		"version":   b.Version,
		"commit":    CommitHash(),
		"buildTime": BuildDate(),
	}
	var flags []string
	for _, name := range []string{"version", "commit", "buildTime"} {
		flags = append(flags, fmt.Sprintf("-X %s.%s=%s", ReleasePackage, name, vars[name]))
	}
	return flags
}

// Output is the path of the built binary.
func (b BuildArgs) Output() string {
	return filepath.Join(b.OutputDir, b.Name)
}

// Build invokes "go build" to produce a binary.
func Build(params BuildArgs) error {
	ldflags := append(append([]string{}, params.LDFlags...), params.linkerVars()...)

	args := []string{"build", "-o", params.Output()}
	args = append(args, params.ExtraFlags...)
	args = append(args, "-ldflags", strings.Join(ldflags, " "), ".")

	fmt.Println(">> build: Building", params.Name)
	return sh.RunV("go", args...)
}

// GoTest runs the unit tests of every package.
func GoTest(race bool) error {
	args := []string{"test"}
	if race {
		args = append(args, "-race")
	}
	args = append(args, "./...")

	fmt.Println(">> go test:", "Unit Testing")
	return sh.RunV("go", args...)
}
