// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package release

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrimCommit(t *testing.T) {
	assert.Equal(t, "abc", TrimCommit("abc"))
	assert.Equal(t, "0123ab", TrimCommit("0123abcdef"))
}

func TestVersionInfoString(t *testing.T) {
	info := VersionInfo{Version: "1.2.0", Commit: "0123abcdef"}
	assert.Equal(t, "1.2.0 (build: 0123ab)", info.String())

	info.BuildTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "1.2.0 (build: 0123ab at 2024-05-01 12:00:00 +0000 UTC)", info.String())
}

func TestBuildTime(t *testing.T) {
	orig := buildTime
	t.Cleanup(func() { buildTime = orig })

	buildTime = ""
	assert.True(t, BuildTime().IsZero())

	buildTime = "2024-05-01T12:00:00Z"
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), BuildTime().UTC())
}

func TestInfo(t *testing.T) {
	info := Info()
	assert.Equal(t, Version(), info.Version)
	assert.Equal(t, Commit(), info.Commit)
}
