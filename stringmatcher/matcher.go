/*
 * Copyright 2019 the go-netty project
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package stringmatcher

// Matcher is a single glob pattern ('*' matches any run of characters, '?'
// matches exactly one), grounded on
// original_source/regex/SegmentedStringMatcher.{h,cpp}'s single-segment
// matching primitive.
type Matcher struct {
	pattern string
}

// New compiles pattern into a Matcher.
func New(pattern string) *Matcher { return &Matcher{pattern: pattern} }

// Match reports whether s matches the pattern in full.
func (m *Matcher) Match(s string) bool { return globMatch(m.pattern, s) }

// globMatch is the classic iterative wildcard matcher with backtracking on
// '*', supporting '?' for a single character.
func globMatch(pattern, s string) bool {
	var pi, si int
	starIdx, matchIdx := -1, -1

	for si < len(s) {
		switch {
		case pi < len(pattern) && (pattern[pi] == '?' || pattern[pi] == s[si]):
			pi++
			si++
		case pi < len(pattern) && pattern[pi] == '*':
			starIdx = pi
			matchIdx = si
			pi++
		case starIdx != -1:
			pi = starIdx + 1
			matchIdx++
			si = matchIdx
		default:
			return false
		}
	}
	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}

// SegmentedMatcher matches a '/'-separated path against a pattern whose
// segments are themselves globs, optionally offering several
// comma-separated alternatives per segment (e.g. a sub-protocol glob that
// accepts "chat,superchat"), grounded on StringTokenizer's hard/soft
// separator split.
type SegmentedMatcher struct {
	segments [][]string // per-segment list of glob alternatives
}

// NewSegmented compiles a '/'-separated pattern into a SegmentedMatcher.
func NewSegmented(pattern string) *SegmentedMatcher {
	hard := splitHard(pattern)
	segments := make([][]string, len(hard))
	for i, seg := range hard {
		alts := splitSoft(seg)
		if len(alts) == 0 {
			alts = []string{seg}
		}
		segments[i] = alts
	}
	return &SegmentedMatcher{segments: segments}
}

// Match reports whether s (split on '/') matches the compiled pattern:
// equal segment count, and each candidate segment matches at least one
// glob alternative at the same position.
func (m *SegmentedMatcher) Match(s string) bool {
	candidate := splitHard(s)
	if len(candidate) != len(m.segments) {
		return false
	}
	for i, seg := range candidate {
		if !matchesAny(m.segments[i], seg) {
			return false
		}
	}
	return true
}

func matchesAny(alts []string, s string) bool {
	for _, alt := range alts {
		if globMatch(alt, s) {
			return true
		}
	}
	return false
}
