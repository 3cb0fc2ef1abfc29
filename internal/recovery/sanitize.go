// SPDX-License-Identifier: Apache-2.0

package recovery

import (
	"regexp"
	"strings"
)

// degreePattern matches the math notation the model emits for angles and
// temperatures, e.g. `360^{\circ}` or `$45^\circ$`, capturing the numeral.
// The closing dollar binds its leading whitespace so that without one the
// match ends at the notation and surrounding text keeps its spacing.
var degreePattern = regexp.MustCompile(`\$?(\d+(?:\.\d+)?)\s*\^\s*\{?\s*\\{0,2}circ\s*\}?(?:\s*\$)?`)

// mathSpanPattern matches a residual $...$ math span inside a string value.
var mathSpanPattern = regexp.MustCompile(`\$([^$]*)\$`)

// sanitizeStrings rewrites the content of every quoted string *value* in the
// candidate JSON text. Keys and structural punctuation pass through
// untouched: the later stages rely on punctuation being exactly where the
// model put it. The whole pass is idempotent.
//
// The scanner tracks the container it is in (object or array) and, inside an
// object, whether the next string token is a key or a value. Strings inside
// arrays are always values.
type containerKind byte

const (
	inObject containerKind = iota
	inArray
)

func sanitizeStrings(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	var stack []containerKind
	expectKey := false

	top := func() (containerKind, bool) {
		if len(stack) == 0 {
			return 0, false
		}
		return stack[len(stack)-1], true
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '{':
			stack = append(stack, inObject)
			expectKey = true
			b.WriteByte(c)
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if kind, ok := top(); ok && kind == inObject {
				// Back inside an object the closed container was a value;
				// the next string after a comma will be a key again.
				expectKey = false
			}
			b.WriteByte(c)
		case '[':
			stack = append(stack, inArray)
			b.WriteByte(c)
		case ':':
			if kind, ok := top(); ok && kind == inObject {
				expectKey = false
			}
			b.WriteByte(c)
		case ',':
			if kind, ok := top(); ok && kind == inObject {
				expectKey = true
			}
			b.WriteByte(c)
		case '"':
			end := skipString(text, i)
			content := text[i+1 : end-1]
			if end == len(text) && !strings.HasSuffix(text[i:], `"`) {
				// Unterminated string: pass through, the parser will fail and
				// the fallback extractor deals with the truncation.
				content = text[i+1:]
				end = len(text)
				b.WriteByte('"')
				b.WriteString(content)
				i = end - 1
				continue
			}
			kind, ok := top()
			isValue := !ok || kind == inArray || !expectKey
			if isValue {
				content = sanitizeValue(content)
			}
			b.WriteByte('"')
			b.WriteString(content)
			b.WriteByte('"')
			i = end - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// sanitizeValue applies the value-content rules in order: math-degree
// rewriting, invalid-escape doubling, control-character escaping, and
// residual math-span stripping.
func sanitizeValue(content string) string {
	content = degreePattern.ReplaceAllString(content, "${1} degrees")
	content = escapeInvalidBackslashes(content)
	content = escapeControlChars(content)
	content = mathSpanPattern.ReplaceAllStringFunc(content, func(m string) string {
		inner := m[1 : len(m)-1]
		return doubleBackslashes(inner)
	})
	return content
}

// escapeInvalidBackslashes doubles every backslash that does not begin a
// valid JSON escape sequence. Valid escapes, including \u followed by four
// hex digits, pass through unchanged, which makes the rewrite idempotent.
func escapeInvalidBackslashes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(s) {
			switch n := s[i+1]; n {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
				b.WriteByte('\\')
				b.WriteByte(n)
				i++
				continue
			case 'u':
				if i+5 < len(s) && isHex4(s[i+2:i+6]) {
					b.WriteString(s[i : i+6])
					i += 5
					continue
				}
			}
		}
		b.WriteString(`\\`)
	}
	return b.String()
}

// escapeControlChars replaces literal control characters with their escaped
// forms. Escape sequences already present are skipped over so an escaped \n
// is never doubled.
func escapeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			b.WriteByte(c)
			escaped = false
			continue
		}
		if c == '\\' {
			b.WriteByte(c)
			escaped = true
			continue
		}
		switch c {
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\f':
			b.WriteString(`\f`)
		case '\b':
			b.WriteString(`\b`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// doubleBackslashes turns every single backslash into a doubled one while
// leaving already-doubled pairs alone, so math commands like \frac survive
// as literal text instead of being read as JSON escapes.
func doubleBackslashes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == '\\' {
			i++
		}
		b.WriteString(`\\`)
	}
	return b.String()
}

func isHex4(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < 4; i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
