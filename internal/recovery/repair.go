// SPDX-License-Identifier: Apache-2.0

package recovery

import (
	"sort"
	"strings"
)

// mergeSig classifies the structural signature found directly before a
// primary-key occurrence.
type mergeSig int

const (
	sigNone mergeSig = iota
	// sigArrayClose: a nested array field ended (`]`) and the next record's
	// primary key follows with no object boundary between them.
	sigArrayClose
	// sigStringClose: a string field ended (`"`) in the same configuration,
	// guarded by a check that the string really is the value of a
	// "key": "value" pair rather than arbitrary string content.
	sigStringClose
)

// repairMergedObjects detects records the model concatenated into a single
// JSON object by omitting a closing brace, and splits them by splicing
// `}, {` at each merge point. Trailing commas are stripped as part of the
// same stage. The returned telemetry travels with the call; the pipeline
// itself holds no repair state.
//
// Detection requires the precondition the Profile documents: the primary key
// opens every record. A well-formed record that carries the key in a later
// position matches a merge signature and gets split, so the no-false-positive
// round-trip guarantee only holds for key-leading records.
func (p *Pipeline) repairMergedObjects(text string) (string, Telemetry) {
	var tel Telemetry

	arrOpen, arrClose, ok := p.isolateArray(text)
	if !ok {
		return stripTrailingCommas(text), tel
	}
	body := text[arrOpen+1 : arrClose]

	occ := keyOccurrences(body, p.rules.PrimaryKey)
	if len(occ) <= 1 {
		return stripTrailingCommas(text), tel
	}
	tel.RepairAttempted = true

	spans := stringSpans(body)
	var inserts []int
	for _, keyStart := range occ {
		sig, sigPos := mergeSignature(body, spans, keyStart)
		if sig == sigNone {
			continue
		}
		// A closing brace between the signature and the key means the object
		// was genuinely closed and no repair is needed at this point.
		if braceDepthGoesNegative(body, sigPos+1, keyStart) {
			continue
		}
		inserts = append(inserts, keyStart)
	}
	if len(inserts) == 0 {
		return stripTrailingCommas(text), tel
	}

	// Splice back-to-front so earlier offsets stay valid.
	sort.Sort(sort.Reverse(sort.IntSlice(inserts)))
	repaired := body
	for _, pos := range inserts {
		repaired = repaired[:pos] + "}, {" + repaired[pos:]
	}
	tel.ObjectsSaved = len(inserts)

	rebuilt := text[:arrOpen+1] + repaired + text[arrClose:]
	return stripTrailingCommas(rebuilt), tel
}

// isolateArray locates the record array named by the profile and returns the
// indexes of its opening and matching closing bracket. The closing bracket is
// found with a bracket-depth scan so nested arrays inside records (tag lists)
// do not end the search early.
func (p *Pipeline) isolateArray(text string) (open, end int, ok bool) {
	occ := keyOccurrences(text, p.rules.ArrayKey)
	if len(occ) == 0 {
		return 0, 0, false
	}
	// Skip past the key token and its colon.
	i := occ[0] + len(p.rules.ArrayKey) + 2
	for i < len(text) && (isJSONSpace(text[i]) || text[i] == ':') {
		i++
	}
	if i >= len(text) || text[i] != '[' {
		return 0, 0, false
	}
	closing := matchingDelim(text, i, '[', ']')
	if closing < 0 {
		return 0, 0, false
	}
	return i, closing, true
}

// mergeSignature inspects the text directly before a primary-key occurrence.
// Only whitespace and commas may separate the signature character from the
// key; anything else means the key opens a well-formed object (or sits in a
// context this stage does not touch).
func mergeSignature(body string, spans []span, keyStart int) (mergeSig, int) {
	i := keyStart - 1
	for i >= 0 && (isJSONSpace(body[i]) || body[i] == ',') {
		i--
	}
	if i < 0 {
		return sigNone, -1
	}
	switch body[i] {
	case ']':
		return sigArrayClose, i
	case '"':
		sp, ok := spanEndingAt(spans, i+1)
		if !ok {
			return sigNone, -1
		}
		if isValueStringTail(body, sp) {
			return sigStringClose, i
		}
	}
	return sigNone, -1
}

// isValueStringTail reports whether the string token looks like the value of
// a "key": "value" pair: its opening quote must be preceded (modulo
// whitespace) by a colon, which in turn follows another string token.
func isValueStringTail(body string, sp span) bool {
	j := sp.start - 1
	for j >= 0 && isJSONSpace(body[j]) {
		j--
	}
	if j < 0 || body[j] != ':' {
		return false
	}
	k := j - 1
	for k >= 0 && isJSONSpace(body[k]) {
		k--
	}
	return k >= 0 && body[k] == '"'
}

// braceDepthGoesNegative scans [from, to) tracking brace depth outside of
// strings; a negative depth means a closing brace for the current object
// exists before the next primary key.
func braceDepthGoesNegative(s string, from, to int) bool {
	depth := 0
	inString := false
	escaped := false
	for i := from; i < to && i < len(s); i++ {
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
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return true
			}
		}
	}
	return false
}

// objectSpansInArray splits the array body into its top-level elements,
// splitting on commas at bracket depth zero. A truncated final element is
// returned as-is for the caller to complete.
func objectSpansInArray(body string) []string {
	var frags []string
	start := 0
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(body); i++ {
		c := body[i]
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
		case '{', '[':
			depth++
		case '}', ']':
			depth--
		case ',':
			if depth == 0 {
				frags = append(frags, strings.TrimSpace(body[start:i]))
				start = i + 1
			}
		}
	}
	if tail := strings.TrimSpace(body[start:]); tail != "" {
		frags = append(frags, tail)
	}
	return frags
}
