// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package mage

import (
	"github.com/magefile/mage/sh"
)

// DefaultCleanPaths specifies a list of files or paths to recursively delete.
var DefaultCleanPaths = []string{
	"build",
	"tmp/rails/.buildkite",
	".buildkite/tmp",
}

// Clean clean generated build artifacts.
func Clean(pathLists ...[]string) error {
	if len(pathLists) == 0 {
		pathLists = [][]string{DefaultCleanPaths}
	}
	for _, paths := range pathLists {
		for _, f := range paths {
			if err := sh.Rm(f); err != nil {
				return err
			}
		}
	}
	return nil
}
