// SPDX-License-Identifier: Apache-2.0

package recovery

import "strings"

// stripFences removes a markdown code fence wrapper (with or without a
// language tag) and trims the remaining text to the outermost { ... } span.
// When no brace pair exists at all there is nothing for the later stages to
// work on, so a NoJSONFoundError is returned immediately.
func stripFences(raw string) (string, error) {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the opening fence line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		// Drop the closing fence.
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}

	first := strings.IndexByte(s, '{')
	last := strings.LastIndexByte(s, '}')
	if first < 0 || last < first {
		return "", &NoJSONFoundError{Raw: raw}
	}
	return s[first : last+1], nil
}
