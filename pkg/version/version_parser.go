// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package version

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// versionFormat accepts RubyGems version strings: dot separated alphanumeric parts with an
// optional dash introduced prerelease (3.4.0-rc1 is treated like 3.4.0.pre.rc1).
const versionFormat = `^\s*(?P<version>[0-9]+(?:\.[0-9a-zA-Z]+)*(?:-[0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*)?)\s*$`

var (
	versionFmtRegEx = regexp.MustCompile(versionFormat)
	segmentRegEx    = regexp.MustCompile(`[0-9]+|[a-zA-Z]+`)
)

var ErrNoMatch = errors.New("version string does not match expected format")

type segment struct {
	num   int
	str   string
	isStr bool
}

func (s segment) String() string {
	if s.isStr {
		return s.str
	}
	return strconv.Itoa(s.num)
}

// GemVersion is a parsed version following the RubyGems ordering rules, where any
// alphabetic segment marks a prerelease and sorts before numeric segments.
type GemVersion struct {
	original string
	segments []segment
}

func (v GemVersion) Original() string {
	return v.original
}

func (v GemVersion) String() string {
	return v.original
}

// Segments returns the parsed segments, ints for numeric parts and strings for the rest.
func (v GemVersion) Segments() []any {
	out := make([]any, 0, len(v.segments))
	for _, s := range v.segments {
		if s.isStr {
			out = append(out, s.str)
		} else {
			out = append(out, s.num)
		}
	}
	return out
}

func (v GemVersion) Prerelease() bool {
	for _, s := range v.segments {
		if s.isStr {
			return true
		}
	}
	return false
}

// Release returns the version with all prerelease segments removed.
func (v GemVersion) Release() GemVersion {
	if !v.Prerelease() {
		return v
	}
	numeric := v.numericSegments()
	return fromSegments(numeric)
}

// ApproximateRecommendation returns the pessimistic constraint ("~> 2.7") a caller
// would use to depend on this version.
func (v GemVersion) ApproximateRecommendation() string {
	segs := v.numericSegments()
	for len(segs) > 2 {
		segs = segs[:len(segs)-1]
	}
	for len(segs) < 2 {
		segs = append(segs, segment{})
	}
	r := "~> " + joinSegments(segs)
	if v.Prerelease() {
		r += ".a"
	}
	return r
}

// Bump drops prerelease parts and the last numeric segment, then increments the new last one.
func (v GemVersion) Bump() GemVersion {
	segs := v.numericSegments()
	if len(segs) > 1 {
		segs = segs[:len(segs)-1]
	}
	segs[len(segs)-1].num++
	return fromSegments(segs)
}

// Compare returns -1, 0 or 1 when v is lower than, equal to or greater than other.
func (v GemVersion) Compare(other GemVersion) int {
	lhs := v.canonical()
	rhs := other.canonical()

	limit := len(lhs)
	if len(rhs) > limit {
		limit = len(rhs)
	}

	for i := 0; i < limit; i++ {
		l, r := segment{}, segment{}
		if i < len(lhs) {
			l = lhs[i]
		}
		if i < len(rhs) {
			r = rhs[i]
		}
		if l == r {
			continue
		}
		switch {
		case l.isStr && !r.isStr:
			return -1
		case !l.isStr && r.isStr:
			return 1
		case l.isStr:
			return strings.Compare(l.str, r.str)
		case l.num < r.num:
			return -1
		default:
			return 1
		}
	}
	return 0
}

func (v GemVersion) Less(other GemVersion) bool {
	return v.Compare(other) < 0
}

func (v GemVersion) Equal(other GemVersion) bool {
	return v.Compare(other) == 0
}

func (v GemVersion) GreaterThan(other GemVersion) bool {
	return v.Compare(other) > 0
}

// SameSeries reports whether v shares the major and minor segments of other,
// so 3.2.1 and 3.2 are in the same series while 3.3 is not.
func (v GemVersion) SameSeries(other GemVersion) bool {
	a, b := v.numericSegments(), other.numericSegments()
	for i := 0; i < 2; i++ {
		var x, y int
		if i < len(a) {
			x = a[i].num
		}
		if i < len(b) {
			y = b[i].num
		}
		if x != y {
			return false
		}
	}
	return true
}

func (v GemVersion) numericSegments() []segment {
	out := make([]segment, 0, len(v.segments))
	for _, s := range v.segments {
		if s.isStr {
			break
		}
		out = append(out, s)
	}
	return out
}

// canonical drops trailing zeros from both the release and the prerelease part.
func (v GemVersion) canonical() []segment {
	numeric := v.numericSegments()
	rest := v.segments[len(numeric):]
	out := append(trimZeros(numeric), trimZeros(rest)...)
	return out
}

func trimZeros(segs []segment) []segment {
	end := len(segs)
	for end > 0 && !segs[end-1].isStr && segs[end-1].num == 0 {
		end--
	}
	out := make([]segment, end)
	copy(out, segs[:end])
	return out
}

func joinSegments(segs []segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, ".")
}

func fromSegments(segs []segment) GemVersion {
	cp := make([]segment, len(segs))
	copy(cp, segs)
	return GemVersion{original: joinSegments(cp), segments: cp}
}

// ParseVersion parses a RubyGems style version string.
func ParseVersion(version string) (*GemVersion, error) {
	matches := versionFmtRegEx.FindStringSubmatch(version)
	if matches == nil {
		return nil, fmt.Errorf("parsing version %q: %w", version, ErrNoMatch)
	}

	value := matches[versionFmtRegEx.SubexpIndex("version")]
	normalized := strings.ReplaceAll(value, "-", ".pre.")

	raw := segmentRegEx.FindAllString(normalized, -1)
	segs := make([]segment, 0, len(raw))
	for _, r := range raw {
		n, err := strconv.Atoi(r)
		if err != nil {
			segs = append(segs, segment{str: r, isStr: true})
			continue
		}
		segs = append(segs, segment{num: n})
	}

	return &GemVersion{original: value, segments: segs}, nil
}

// MustParse is ParseVersion for constants, it panics on malformed input.
func MustParse(version string) GemVersion {
	v, err := ParseVersion(version)
	if err != nil {
		panic(err)
	}
	return *v
}
