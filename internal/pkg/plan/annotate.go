// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package plan

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	planBegin = "<!-- buildkite-config/plan:begin -->"
	planEnd   = "<!-- buildkite-config/plan:end -->"
)

var planForm = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(planBegin) + `(.*)` + regexp.QuoteMeta(planEnd))

// Annotate renders the Buildkite annotation for diff. An empty diff has no annotation.
func Annotate(diff *Diff, nightly bool) string {
	if diff == nil || diff.Empty() {
		return ""
	}

	title := "buildkite-config"
	if nightly {
		title += "-nightly"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "### :writing_hand: %s/plan\n\n", title)
	b.WriteString("<details>\n<summary>Show Output</summary>\n\n")
	fmt.Fprintf(&b, "```term\n%s\n```\n\n", diff.Color())
	b.WriteString("</details>\n")
	return b.String()
}

// PullRequestBody returns body with the plan section set to diff. An existing section
// is replaced, otherwise the section is appended.
func PullRequestBody(body, diff string) string {
	section := pullRequestSection(diff)
	if planForm.MatchString(body) {
		return planForm.ReplaceAllLiteralString(body, section)
	}
	return body + section
}

func pullRequestSection(diff string) string {
	var b strings.Builder
	b.WriteString("\n" + planBegin + "\n\n---\n\n")
	b.WriteString("### :writing_hand: buildkite-config/plan\n\n")
	b.WriteString("<details>\n<summary>Show Output</summary>\n\n")
	fmt.Fprintf(&b, "```diff\n%s\n```\n\n", diff)
	b.WriteString("</details>\n\n" + planEnd + "\n")
	return b.String()
}
