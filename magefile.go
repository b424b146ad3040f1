// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

//go:build mage

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"

	devtools "github.com/rails/buildkite-config/dev-tools/mage"
)

// Default set to build everything by default.
var Default = Build.All

// Build namespace used to build binaries.
type Build mg.Namespace

// Test namespace contains all the task for testing the projects.
type Test mg.Namespace

// Check namespace contains tasks related check the actual code quality.
type Check mg.Namespace

// Buildkite namespace contains tasks related to the generated pipelines.
type Buildkite mg.Namespace

// All builds the generator binary.
func (Build) All() {
	mg.Deps(Build.Binary)
}

// Binary builds the generator binary into build/.
func (Build) Binary() error {
	return devtools.Build(devtools.DefaultBuildArgs())
}

// Clean removes the build directory.
func (Build) Clean() error {
	return devtools.Clean([]string{"build"})
}

// Unit runs all the unit tests. Set RACE_DETECTOR=true to enable the race detector.
func (Test) Unit() error {
	race, err := devtools.ParseBoolEnv("RACE_DETECTOR", false)
	if err != nil {
		return err
	}
	return devtools.GoTest(race)
}

// All runs the code checks.
func (Check) All() {
	mg.SerialDeps(Check.Vet, CheckNoChanges)
}

// Vet runs go vet.
func (Check) Vet() error {
	fmt.Println(">> check - go vet")
	return sh.RunV("go", "vet", "./...")
}

func CheckNoChanges() error {
	fmt.Println(">> fmt - go mod tidy")
	err := sh.RunV("go", "mod", "tidy", "-v")
	if err != nil {
		return fmt.Errorf("failed running go mod tidy, please fix the issues reported: %w", err)
	}
	fmt.Println(">> fmt - git diff-index")
	err = sh.RunV("git", "diff-index", "--exit-code", "HEAD", "--")
	if err != nil {
		return fmt.Errorf("failed running git diff-index, please fix the issues reported: %w", err)
	}
	return nil
}

// Clean removes the build output and the generated pipeline scratch directories.
func Clean() error {
	return devtools.Clean()
}

// Generate prints the named pipeline as YAML.
// Example: mage buildkite:generate rails-ci
func (Buildkite) Generate(name string) error {
	return devtools.BuildkiteGeneratePipeline(name)
}

// Update rewrites the expected pipelines under .buildkite/expected.
func (Buildkite) Update() error {
	return devtools.BuildkiteUpdate(devtools.ExpectedDir)
}

// Validate checks that every generated pipeline matches its expected copy.
func (Buildkite) Validate() error {
	results, err := devtools.BuildkiteValidate(devtools.ExpectedDir)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Pipeline", "File", "Status"})
	for _, r := range results {
		status := "ok"
		switch {
		case r.Error != nil:
			status = "error"
		case !r.Valid:
			status = fmt.Sprintf("%d differences", len(r.Differences))
		}
		t.AppendRow(table.Row{r.Name, r.YAMLFile, status})
	}
	t.Render()

	return err
}

// Diff prints a line diff of every generated pipeline against its expected copy.
func (Buildkite) Diff() error {
	var differ []string
	for _, r := range devtools.BuildkiteDiff(devtools.ExpectedDir) {
		if r.Error != nil || !r.Equal {
			differ = append(differ, r.Name)
		}
	}
	if len(differ) > 0 {
		return fmt.Errorf("pipelines differ: %s", strings.Join(differ, ", "))
	}
	return nil
}
