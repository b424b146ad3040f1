// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package plan

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/otiai10/copy"

	"github.com/rails/buildkite-config/pkg/core/logger"
)

const (
	// DefaultPipeline is the pipeline compared by the plan.
	DefaultPipeline = "rails-ci"

	generateBin       = ".buildkite/bin/pipeline-generate"
	legacyGenerateBin = ".buildkite/pipeline-generate"
)

// Runner runs a generator inside dir and returns what it wrote to stdout.
type Runner interface {
	Run(ctx context.Context, dir, bin string, args ...string) ([]byte, error)
}

// ExecRunner runs generators as subprocesses.
type ExecRunner struct {
	// Stderr receives the generator's stderr.
	Stderr io.Writer
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, dir, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	if r.Stderr != nil {
		cmd.Stderr = r.Stderr
	}
	return cmd.Output()
}

// Differ generates the pipeline of the working config checkout and of a baseline
// checkout against the same Rails tree and diffs them.
type Differ struct {
	// Root is the config checkout under review. The Rails tree lives at Root/tmp/rails.
	Root string
	// Baseline is the config checkout to compare against, Root/tmp/buildkite-config by default.
	Baseline string
	// Pipeline is the generator argument.
	Pipeline string

	runner Runner
	log    *logger.Logger
}

// NewDiffer returns a Differ rooted at root.
func NewDiffer(root string, runner Runner, log *logger.Logger) *Differ {
	return &Differ{
		Root:     root,
		Baseline: filepath.Join(root, "tmp", "buildkite-config"),
		Pipeline: DefaultPipeline,
		runner:   runner,
		log:      log,
	}
}

// Compare diffs the baseline pipeline against the head pipeline.
func (d *Differ) Compare(ctx context.Context) (*Diff, error) {
	head, err := d.Generate(ctx, d.Root)
	if err != nil {
		return nil, err
	}
	baseline, err := d.Generate(ctx, d.Baseline)
	if err != nil {
		return nil, err
	}
	return NewDiff(baseline, head)
}

// Generate places repo at tmp/rails/.buildkite, runs its generator from tmp/rails and
// returns the output. A failing generator is logged and yields an empty pipeline.
func (d *Differ) Generate(ctx context.Context, repo string) (string, error) {
	rails := filepath.Join(d.Root, "tmp", "rails")
	target := filepath.Join(rails, ".buildkite")
	if err := os.RemoveAll(target); err != nil {
		return "", fmt.Errorf("cleaning %s: %w", target, err)
	}

	err := copy.Copy(repo, target, copy.Options{
		OnSymlink: func(_ string) copy.SymlinkAction {
			return copy.Shallow
		},
		Skip: skipCheckoutState(repo),
	})
	if err != nil {
		return "", fmt.Errorf("copying %s to %s: %w", repo, target, err)
	}
	defer func() {
		if err := os.RemoveAll(target); err != nil {
			d.log.Warnf("Failed to remove %s: %v", target, err)
		}
	}()

	bin := generateBin
	if _, err := os.Stat(filepath.Join(rails, bin)); err != nil {
		bin = legacyGenerateBin
	}

	d.log.Debugw("generating pipeline", "repo", repo, "bin", bin, "pipeline", d.Pipeline)
	out, err := d.runner.Run(ctx, rails, filepath.Join(rails, bin), d.Pipeline)
	if err != nil {
		d.log.Warnf("Failed to generate pipeline for %s", repo)
		return "", nil
	}
	return string(out), nil
}

// skipCheckoutState leaves out the tmp and .git directories at the top of repo. tmp
// holds the Rails tree the copy is written into.
func skipCheckoutState(repo string) func(os.FileInfo, string, string) (bool, error) {
	tmp := filepath.Join(repo, "tmp")
	git := filepath.Join(repo, ".git")
	return func(info os.FileInfo, src, _ string) (bool, error) {
		if !info.IsDir() {
			return false, nil
		}
		src = filepath.Clean(src)
		return src == tmp || src == git, nil
	}
}
