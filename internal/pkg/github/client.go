// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"golang.org/x/oauth2"
)

const (
	// DefaultBaseURL is the GitHub REST API root.
	DefaultBaseURL = "https://api.github.com/"

	filesPerPage = 100
)

// PullRequest is the part of a GitHub pull request the generator reads.
type PullRequest struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	State  string `json:"state"`
}

// File is a file changed by a pull request.
type File struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Client talks to the GitHub REST API with a bearer token.
type Client struct {
	baseURL        *url.URL
	http           *http.Client
	maxElapsedTime time.Duration
	initialBackoff time.Duration
}

// Option configures a Client.
type Option func(*Client) error

// WithBaseURL points the client at another API root, such as a test server.
func WithBaseURL(raw string) Option {
	return func(c *Client) error {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("parsing base URL %q: %w", raw, err)
		}
		if u.Path == "" || u.Path[len(u.Path)-1] != '/' {
			u.Path += "/"
		}
		c.baseURL = u
		return nil
	}
}

// WithRetry bounds the retries of GET requests.
func WithRetry(initial, maxElapsed time.Duration) Option {
	return func(c *Client) error {
		c.initialBackoff = initial
		c.maxElapsedTime = maxElapsed
		return nil
	}
}

// NewClient returns a client that authenticates every request with token.
func NewClient(ctx context.Context, token string, opts ...Option) (*Client, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	c := &Client{
		http:           oauth2.NewClient(ctx, src),
		initialBackoff: time.Second,
		maxElapsedTime: time.Minute,
	}
	if err := WithBaseURL(DefaultBaseURL)(c); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// PullRequest fetches pull request number of repo.
func (c *Client) PullRequest(ctx context.Context, repo string, number int) (*PullRequest, error) {
	var pr PullRequest
	if err := c.get(ctx, pullPath(repo, number), nil, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// PullRequestFiles lists every file changed by pull request number, following pages.
func (c *Client) PullRequestFiles(ctx context.Context, repo string, number int) ([]File, error) {
	var files []File
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("per_page", strconv.Itoa(filesPerPage))
		query.Set("page", strconv.Itoa(page))

		var batch []File
		if err := c.get(ctx, pullPath(repo, number)+"/files", query, &batch); err != nil {
			return nil, err
		}
		files = append(files, batch...)
		if len(batch) < filesPerPage {
			return files, nil
		}
	}
}

// UpdatePullRequestBody replaces the body of pull request number.
func (c *Client) UpdatePullRequestBody(ctx context.Context, repo string, number int, body string) (*PullRequest, error) {
	payload, err := json.Marshal(map[string]string{"body": body})
	if err != nil {
		return nil, err
	}

	var pr PullRequest
	if err := c.do(ctx, http.MethodPatch, pullPath(repo, number), nil, payload, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

func pullPath(repo string, number int) string {
	return fmt.Sprintf("repos/%s/pulls/%d", repo, number)
}

// get retries transport errors and 5xx responses with exponential backoff.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.initialBackoff
	exp.MaxElapsedTime = c.maxElapsedTime

	return backoff.Retry(func() error {
		err := c.do(ctx, http.MethodGet, path, query, nil, out)
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode < http.StatusInternalServerError {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(exp, ctx))
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte, out interface{}) error {
	u := c.baseURL.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", u, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, URL: u.String(), StatusCode: resp.StatusCode, Body: string(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", u, err)
	}
	return nil
}
