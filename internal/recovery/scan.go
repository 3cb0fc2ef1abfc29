// SPDX-License-Identifier: Apache-2.0

package recovery

import "strings"

// Scanner helpers shared by the repair stages. Every scan in this file walks
// the text one byte at a time with explicit string/escape state instead of
// regular expressions, so structural characters inside string values can
// never be mistaken for punctuation.

// span is a half-open [start, end) byte range of a string token, including
// both quote characters.
type span struct {
	start, end int
}

// stringSpans returns the spans of every string token in s, in order.
// An unterminated final string is returned as a span running to len(s).
func stringSpans(s string) []span {
	var spans []span
	inString := false
	escaped := false
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inString {
			if c == '"' {
				inString = true
				start = i
			}
			continue
		}
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '"':
			inString = false
			spans = append(spans, span{start, i + 1})
		}
	}
	if inString {
		spans = append(spans, span{start, len(s)})
	}
	return spans
}

// spanEndingAt returns the string span whose closing quote sits at end-1.
func spanEndingAt(spans []span, end int) (span, bool) {
	for _, sp := range spans {
		if sp.end == end {
			return sp, true
		}
		if sp.end > end {
			break
		}
	}
	return span{}, false
}

// keyOccurrences returns the start offsets of every string token that is
// exactly the given key and is followed (after optional whitespace) by a
// colon. Occurrences of the key inside larger string values do not count.
func keyOccurrences(s, key string) []int {
	quoted := `"` + key + `"`
	var occ []int
	for _, sp := range stringSpans(s) {
		if s[sp.start:sp.end] != quoted {
			continue
		}
		j := sp.end
		for j < len(s) && isJSONSpace(s[j]) {
			j++
		}
		if j < len(s) && s[j] == ':' {
			occ = append(occ, sp.start)
		}
	}
	return occ
}

// matchingDelim returns the index of the delimiter closing the one at open,
// or -1 when the text ends first. Delimiters inside strings are ignored.
func matchingDelim(s string, open int, openCh, closeCh byte) int {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case openCh:
			depth++
		case closeCh:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// skipString returns the index just past the string token starting at i
// (s[i] must be '"'). An unterminated string runs to len(s).
func skipString(s string, i int) int {
	escaped := false
	for j := i + 1; j < len(s); j++ {
		if escaped {
			escaped = false
			continue
		}
		switch s[j] {
		case '\\':
			escaped = true
		case '"':
			return j + 1
		}
	}
	return len(s)
}

// stripTrailingCommas removes commas that directly precede a closing brace or
// bracket, outside of strings. Runs of commas are handled by iterating until
// the text stops changing.
func stripTrailingCommas(s string) string {
	for {
		var b strings.Builder
		b.Grow(len(s))
		changed := false
		inString := false
		escaped := false
		for i := 0; i < len(s); i++ {
			c := s[i]
			if inString {
				if escaped {
					escaped = false
				} else if c == '\\' {
					escaped = true
				} else if c == '"' {
					inString = false
				}
				b.WriteByte(c)
				continue
			}
			if c == '"' {
				inString = true
				b.WriteByte(c)
				continue
			}
			if c == ',' {
				j := i + 1
				for j < len(s) && isJSONSpace(s[j]) {
					j++
				}
				if j < len(s) && (s[j] == '}' || s[j] == ']') {
					changed = true
					continue
				}
			}
			b.WriteByte(c)
		}
		if !changed {
			return s
		}
		s = b.String()
	}
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
