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

// Package stringmatcher implements glob-style path and token matching used
// by the WebSocket gateway for path and sub-protocol matching, per §4.5.4.
package stringmatcher

import "strings"

// splitHard tokenizes s on the hard separator (path-level, '/'), used by
// SegmentedMatcher to break a pattern and a candidate into segments.
// Grounded on original_source/util/StringTokenizer.h's hard/soft
// separator distinction.
func splitHard(s string) []string {
	return splitOn(s, '/')
}

// splitSoft tokenizes one segment on the soft separator (alternation
// within a segment, ','), e.g. a Sec-WebSocket-Protocol glob that accepts
// several alternative sub-protocol names for one path position.
func splitSoft(s string) []string {
	return splitOn(s, ',')
}

func splitOn(s string, sep byte) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, string(sep))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
