// SPDX-License-Identifier: Apache-2.0

package recovery

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// The fallback extractor is the last line of defense once whole-document
// parsing has failed. It tolerates partial data loss: whatever
// complete-looking records it can pull out are returned, in the order they
// appeared, and everything else is abandoned.

// objectPattern matches a single `{ "asset_name": ... }` span, consuming
// string tokens atomically and stopping at the first closing brace outside a
// string. Records are flat, so nested braces are not a concern here.
func objectPattern(primaryKey string) *regexp.Regexp {
	return regexp.MustCompile(
		`\{\s*` + regexp.QuoteMeta(`"`+primaryKey+`"`) + `\s*:\s*(?:[^{}"]|"(?:[^"\\]|\\.)*")*\}`,
	)
}

// extractObjects is fallback strategy 1: regex-match individual record spans
// directly out of the text and run the sanitize/dedupe/parse stages on each
// span independently. Only spans that parse with both a name and a
// specification survive.
func (p *Pipeline) extractObjects(text string) []Record {
	var records []Record
	for _, match := range p.objectRe.FindAllString(text, -1) {
		if rec, ok := p.recoverObject(match); ok {
			records = append(records, rec)
		}
	}
	return records
}

// splitUnclosedArray is fallback strategy 2: locate the record array prefix
// even when the array was never closed, split the remaining text on
// top-level element boundaries, and run the same per-candidate repair and
// parse over each fragment.
func (p *Pipeline) splitUnclosedArray(text string) []Record {
	occ := keyOccurrences(text, p.rules.ArrayKey)
	if len(occ) == 0 {
		return nil
	}
	i := occ[0] + len(p.rules.ArrayKey) + 2
	for i < len(text) && (isJSONSpace(text[i]) || text[i] == ':') {
		i++
	}
	if i >= len(text) || text[i] != '[' {
		return nil
	}
	body := text[i+1:]
	if end := matchingDelim(text, i, '[', ']'); end >= 0 {
		body = text[i+1 : end]
	}

	var records []Record
	for _, frag := range objectSpansInArray(body) {
		if !strings.HasPrefix(frag, "{") {
			continue
		}
		for _, candidate := range completions(frag) {
			if rec, ok := p.recoverObject(candidate); ok {
				records = append(records, rec)
				break
			}
		}
	}
	return records
}

// completions lists the closing repairs worth trying on a fragment: as-is, a
// missing closing brace, and a truncated string value plus the brace.
func completions(frag string) []string {
	if strings.HasSuffix(frag, "}") {
		return []string{frag}
	}
	return []string{frag, frag + "}", frag + `"}`}
}

// repairWholeDocument is fallback strategy 3: hand the cleaned text to the
// generic jsonrepair library and re-run the document parse once over its
// output. It runs only when strategies 1 and 2 both came back empty.
func (p *Pipeline) repairWholeDocument(text string) []Record {
	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return nil
	}
	doc, err := p.parseDocument(repaired)
	if err != nil {
		return nil
	}
	var records []Record
	for _, rec := range p.mapAssets(doc.Assets) {
		if rec.Name != "" {
			records = append(records, rec)
		}
	}
	return records
}

// recoverObject runs the per-candidate stages (sanitize, duplicate-key
// resolution, trailing-comma strip, parse, map) over a single object span.
func (p *Pipeline) recoverObject(fragment string) (Record, bool) {
	cleaned := sanitizeStrings(fragment)
	cleaned = p.resolveDuplicateKeys(cleaned)
	cleaned = stripTrailingCommas(cleaned)

	var a rawAsset
	if err := json.Unmarshal([]byte(cleaned), &a); err != nil {
		return Record{}, false
	}
	rec := p.mapAsset(a)
	if rec.Name == "" || rec.SpecificationText == "" {
		return Record{}, false
	}
	return rec, true
}

// extractFallback runs the strategies in order over the raw completion and
// the partially cleaned text, returning the first non-empty result.
func (p *Pipeline) extractFallback(raw, cleaned string) ([]Record, string) {
	if records := p.extractObjects(cleaned); len(records) > 0 {
		return records, StrategyObjectScan
	}
	if records := p.extractObjects(raw); len(records) > 0 {
		return records, StrategyObjectScan
	}
	if records := p.splitUnclosedArray(cleaned); len(records) > 0 {
		return records, StrategyArraySplit
	}
	if records := p.repairWholeDocument(cleaned); len(records) > 0 {
		return records, StrategyRepairLibrary
	}
	return nil, ""
}
