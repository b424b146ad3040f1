// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Jeffail/gabs/v2"
	"golang.org/x/sync/errgroup"

	"github.com/rails/buildkite-config/internal/pkg/config"
	"github.com/rails/buildkite-config/internal/pkg/plan"
)

// DefaultRepository is the repository whose pull requests carry the plan.
const DefaultRepository = "zzak/buildkite-config"

const (
	metaFile  = ".pr-meta.json"
	filesFile = ".pr-files.json"
)

var (
	// ErrMissingToken is returned when GITHUB_TOKEN is unset.
	ErrMissingToken = errors.New("Missing $GITHUB_TOKEN!") //nolint:stylecheck // printed to users as is
	// ErrNotPullRequest is returned when the build is not for a pull request.
	ErrNotPullRequest = errors.New("Skipping: Not a pull request\nMissing $BUILDKITE_PULL_REQUEST!") //nolint:stylecheck // printed to users as is
)

// Target identifies the pull request of the current build.
type Target struct {
	Token      string
	Repository string
	Number     int
}

// TargetFromSettings resolves the token, repository and pull request number.
func TargetFromSettings(s *config.Settings) (Target, error) {
	token, ok := config.Value(s.GithubToken)
	if !ok || token == "" {
		return Target{}, ErrMissingToken
	}

	raw, ok := config.Value(s.PullRequest)
	if !ok || raw == "" || raw == "false" {
		return Target{}, ErrNotPullRequest
	}
	number, err := strconv.Atoi(raw)
	if err != nil {
		return Target{}, fmt.Errorf("invalid pull request number %q: %w", raw, err)
	}

	repo := DefaultRepository
	if v, ok := config.Value(s.GithubRepository); ok && v != "" {
		repo = v
	}
	return Target{Token: token, Repository: repo, Number: number}, nil
}

// UpdatePR writes diff into the plan section of the build's pull request and returns
// the updated pull request.
func UpdatePR(ctx context.Context, s *config.Settings, diff string, opts ...Option) (*PullRequest, error) {
	target, err := TargetFromSettings(s)
	if err != nil {
		return nil, err
	}
	client, err := NewClient(ctx, target.Token, opts...)
	if err != nil {
		return nil, err
	}

	pr, err := client.PullRequest(ctx, target.Repository, target.Number)
	if err != nil {
		return nil, fmt.Errorf("fetching pull request %s#%d: %w", target.Repository, target.Number, err)
	}
	updated, err := client.UpdatePullRequestBody(ctx, target.Repository, target.Number, plan.PullRequestBody(pr.Body, diff))
	if err != nil {
		return nil, fmt.Errorf("updating pull request %s#%d: %w", target.Repository, target.Number, err)
	}
	return updated, nil
}

// FetchPR fetches the build's pull request and its changed files concurrently and
// caches both in dir.
func FetchPR(ctx context.Context, s *config.Settings, dir string, opts ...Option) error {
	target, err := TargetFromSettings(s)
	if err != nil {
		return err
	}
	client, err := NewClient(ctx, target.Token, opts...)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pr, err := client.PullRequest(gctx, target.Repository, target.Number)
		if err != nil {
			return fmt.Errorf("fetching pull request: %w", err)
		}
		return writeJSON(filepath.Join(dir, metaFile), pr)
	})
	g.Go(func() error {
		files, err := client.PullRequestFiles(gctx, target.Repository, target.Number)
		if err != nil {
			return fmt.Errorf("fetching pull request files: %w", err)
		}
		return writeJSON(filepath.Join(dir, filesFile), files)
	})
	return g.Wait()
}

func writeJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// CachedTitle is the pull request title cached by FetchPR, or "" when unavailable.
func CachedTitle(dir string) string {
	parsed, err := gabs.ParseJSONFile(filepath.Join(dir, metaFile))
	if err != nil {
		return ""
	}
	title, _ := parsed.Path("title").Data().(string)
	return title
}

// CachedFilenames are the changed files cached by FetchPR, or nil when unavailable.
func CachedFilenames(dir string) []string {
	parsed, err := gabs.ParseJSONFile(filepath.Join(dir, filesFile))
	if err != nil {
		return nil
	}

	var names []string
	for _, file := range parsed.Children() {
		name, ok := file.Path("filename").Data().(string)
		if !ok {
			return nil
		}
		names = append(names, name)
	}
	return names
}
