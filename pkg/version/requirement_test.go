// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequirementSatisfied(t *testing.T) {
	testcases := []struct {
		requirement string
		version     string
		expected    bool
	}{
		{"< 5.0", "4.2.11", true},
		{"< 5.0", "5.0.0", false},
		{"< 6.1", "6.1.0.rc1", true},
		{"< 6.1", "6.1.7", false},
		{">= 7.1.0.alpha", "7.1.0", true},
		{">= 7.1.0.alpha", "7.0.8", false},
		{"3.2", "3.2.0", true},
		{"!= 3.2", "3.3", true},
		{"> 2.7", "2.7.1", true},
		{"<= 2.7", "2.7", true},
		{"~> 2.7", "2.7.8", true},
		{"~> 2.7", "2.9", true},
		{"~> 2.7", "3.0", false},
		{"~> 2.7.1", "2.7.9", true},
		{"~> 2.7.1", "2.8", false},
	}

	for _, tc := range testcases {
		t.Run(tc.requirement+" "+tc.version, func(t *testing.T) {
			r, err := ParseRequirement(tc.requirement)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, r.Satisfied(MustParse(tc.version)))
		})
	}
}

func TestParseRequirementErrors(t *testing.T) {
	_, err := ParseRequirement("<< 3")
	assert.ErrorIs(t, err, ErrNoMatch)

	_, err = ParseRequirement("")
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestSort(t *testing.T) {
	vs := []GemVersion{MustParse("3.10"), MustParse("3.4.0-rc1"), MustParse("2.7"), MustParse("3.3")}
	Sort(vs)

	var got []string
	for _, v := range vs {
		got = append(got, v.String())
	}
	assert.Equal(t, []string{"2.7", "3.3", "3.4.0-rc1", "3.10"}, got)
}
