// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package version

import (
	"fmt"
	"regexp"
	"sort"
)

var requirementRegEx = regexp.MustCompile(`^\s*(=|!=|>=|<=|>|<|~>)?\s*(\S+)\s*$`)

// Requirement is a single version constraint such as "< 6.1" or "~> 2.7".
type Requirement struct {
	op      string
	version GemVersion
}

// ParseRequirement parses a constraint, a bare version means "=".
func ParseRequirement(s string) (Requirement, error) {
	m := requirementRegEx.FindStringSubmatch(s)
	if m == nil {
		return Requirement{}, fmt.Errorf("parsing requirement %q: %w", s, ErrNoMatch)
	}
	v, err := ParseVersion(m[2])
	if err != nil {
		return Requirement{}, fmt.Errorf("parsing requirement %q: %w", s, err)
	}
	op := m[1]
	if op == "" {
		op = "="
	}
	return Requirement{op: op, version: *v}, nil
}

// MustParseRequirement panics on malformed constraints.
func MustParseRequirement(s string) Requirement {
	r, err := ParseRequirement(s)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Requirement) String() string {
	return r.op + " " + r.version.String()
}

// Satisfied reports whether v meets the constraint.
func (r Requirement) Satisfied(v GemVersion) bool {
	c := v.Compare(r.version)
	switch r.op {
	case "=":
		return c == 0
	case "!=":
		return c != 0
	case ">":
		return c > 0
	case "<":
		return c < 0
	case ">=":
		return c >= 0
	case "<=":
		return c <= 0
	case "~>":
		return c >= 0 && v.Release().Less(r.version.Bump())
	}
	return false
}

// Versions sorts ascending.
type Versions []GemVersion

func (vs Versions) Len() int           { return len(vs) }
func (vs Versions) Less(i, j int) bool { return vs[i].Less(vs[j]) }
func (vs Versions) Swap(i, j int)      { vs[i], vs[j] = vs[j], vs[i] }

// Sort sorts the versions in place, keeping the input order of equal versions.
func Sort(vs []GemVersion) {
	sort.Stable(Versions(vs))
}
