// SPDX-License-Identifier: Apache-2.0

package recovery

import "sort"

// resolveDuplicateKeys keeps, for each field the profile lists as duplicable,
// only the last occurrence within any single object. Duplicates are an
// artifact of the merged-object failure mode; scope is deliberately narrow
// (profile-listed fields only) so legitimately repeated substrings elsewhere
// in the document are never corrupted.
func (p *Pipeline) resolveDuplicateKeys(text string) string {
	for _, field := range p.rules.DuplicateFields {
		text = removeEarlierDuplicates(text, field)
	}
	return text
}

// member is an occurrence of a key inside one object: the byte range of the
// whole `"key": value` member, without separators.
type member struct {
	start, end int
}

// removeEarlierDuplicates deletes every occurrence but the last of the given
// field within each object of the text.
func removeEarlierDuplicates(text, field string) string {
	quoted := `"` + field + `"`

	// Walk the text once, associating each key occurrence with the object
	// (identified by its '{' position) that directly contains it.
	type frame struct {
		members []member
	}
	var stack []*frame
	var doomed []member

	for i := 0; i < len(text); i++ {
		switch c := text[i]; c {
		case '{':
			stack = append(stack, &frame{})
		case '}':
			if len(stack) > 0 {
				f := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if len(f.members) > 1 {
					doomed = append(doomed, f.members[:len(f.members)-1]...)
				}
			}
		case '"':
			end := skipString(text, i)
			if len(stack) > 0 && text[i:end] == quoted && nextNonSpaceIs(text, end, ':') {
				if mEnd, ok := memberEnd(text, i); ok {
					f := stack[len(stack)-1]
					f.members = append(f.members, member{start: i, end: mEnd})
				}
			}
			i = end - 1
		}
	}
	if len(doomed) == 0 {
		return text
	}

	// Delete back-to-front. Each deletion swallows the member's trailing
	// comma when present, otherwise the comma before it, so the object stays
	// syntactically intact.
	sort.Slice(doomed, func(a, b int) bool { return doomed[a].start > doomed[b].start })
	for _, m := range doomed {
		start, end := m.start, m.end
		if j := skipSpaces(text, end); j < len(text) && text[j] == ',' {
			end = j + 1
		} else {
			k := start - 1
			for k >= 0 && isJSONSpace(text[k]) {
				k--
			}
			if k >= 0 && text[k] == ',' {
				start = k
			}
		}
		text = text[:start] + text[end:]
	}
	return text
}

// memberEnd returns the index just past the value of the member whose key
// token starts at keyStart.
func memberEnd(text string, keyStart int) (int, bool) {
	i := skipString(text, keyStart)
	i = skipSpaces(text, i)
	if i >= len(text) || text[i] != ':' {
		return 0, false
	}
	i = skipSpaces(text, i+1)
	if i >= len(text) {
		return 0, false
	}
	switch text[i] {
	case '"':
		return skipString(text, i), true
	case '{':
		end := matchingDelim(text, i, '{', '}')
		if end < 0 {
			return 0, false
		}
		return end + 1, true
	case '[':
		end := matchingDelim(text, i, '[', ']')
		if end < 0 {
			return 0, false
		}
		return end + 1, true
	default:
		// Number, boolean, or null: runs to the next delimiter.
		j := i
		for j < len(text) && text[j] != ',' && text[j] != '}' && text[j] != ']' && !isJSONSpace(text[j]) {
			j++
		}
		if j == i {
			return 0, false
		}
		return j, true
	}
}

func skipSpaces(s string, i int) int {
	for i < len(s) && isJSONSpace(s[i]) {
		i++
	}
	return i
}

func nextNonSpaceIs(s string, i int, c byte) bool {
	i = skipSpaces(s, i)
	return i < len(s) && s[i] == c
}
