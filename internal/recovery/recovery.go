// SPDX-License-Identifier: Apache-2.0

// Package recovery turns an untrusted LLM completion into a validated list
// of canonical asset records. The pipeline repairs markdown wrapping,
// invalid escape sequences, merged objects, and duplicated keys before
// parsing; when whole-document parsing still fails it degrades through a
// set of fallback extraction strategies before giving up.
package recovery

import (
	"context"
	"regexp"
	"strings"

	"github.com/ProdBay-app/ProdBay-sub000/internal/ruleset"
)

// Telemetry describes what the structural repairer did during a single
// invocation. It travels with the result value; the pipeline keeps no state
// between calls, so concurrent invocations can never interleave telemetry.
type Telemetry struct {
	RepairAttempted bool `json:"repair_attempted"`
	ObjectsSaved    int  `json:"objects_saved"`
}

// Record is the canonical asset record every historical output shape is
// normalized into.
type Record struct {
	Name              string   `json:"name"`
	SpecificationText string   `json:"specification_text"`
	SourceExcerpt     string   `json:"source_excerpt"`
	CategoryTags      []string `json:"category_tags"`
	Quantity          any      `json:"quantity"`
	SupplierContext   *string  `json:"supplier_context"`
}

// Strategies a result can come from, in degradation order.
const (
	// StrategyDocument: the repaired text parsed as one document.
	StrategyDocument = "document"
	// StrategyObjectScan: individual record spans were regex-extracted.
	StrategyObjectScan = "object-scan"
	// StrategyArraySplit: an unclosed record array was split on element
	// boundaries and the fragments recovered one by one.
	StrategyArraySplit = "array-split"
	// StrategyRepairLibrary: a generic JSON repair pass salvaged the text.
	StrategyRepairLibrary = "repair-library"
)

// Result is the output of a successful recovery run.
type Result struct {
	Records    []Record  `json:"records"`
	Reasoning  *string   `json:"reasoning,omitempty"`
	Confidence *float64  `json:"confidence,omitempty"`
	Strategy   string    `json:"strategy"`
	Telemetry  Telemetry `json:"telemetry"`
}

// Pipeline runs the recovery stages over a completion. It holds only the
// immutable extraction profile and a compiled pattern, so a single Pipeline
// is safe for concurrent use.
type Pipeline struct {
	rules    ruleset.Profile
	objectRe *regexp.Regexp
}

// NewPipeline creates a Pipeline for the given extraction profile.
func NewPipeline(rules ruleset.Profile) *Pipeline {
	return &Pipeline{
		rules:    rules,
		objectRe: objectPattern(rules.PrimaryKey),
	}
}

// Recover converts the raw completion into a Result. On unrecoverable input
// it returns one of the typed failures (EmptyCompletionError,
// NoJSONFoundError, StructuralParseError); it never panics and never returns
// any other error kind.
func (p *Pipeline) Recover(_ context.Context, raw string) (Result, error) {
	if strings.TrimSpace(raw) == "" {
		return Result{}, &EmptyCompletionError{}
	}

	candidate, err := stripFences(raw)
	if err != nil {
		return Result{}, err
	}

	cleaned := sanitizeStrings(candidate)
	repaired, tel := p.repairMergedObjects(cleaned)
	resolved := p.resolveDuplicateKeys(repaired)

	doc, parseErr := p.parseDocument(resolved)
	if parseErr == nil {
		return Result{
			Records:    p.mapAssets(doc.Assets),
			Reasoning:  doc.Reasoning,
			Confidence: doc.Confidence,
			Strategy:   StrategyDocument,
			Telemetry:  tel,
		}, nil
	}

	if records, strategy := p.extractFallback(raw, resolved); len(records) > 0 {
		return Result{
			Records:   records,
			Strategy:  strategy,
			Telemetry: tel,
		}, nil
	}

	return Result{}, &StructuralParseError{Raw: raw, Cleaned: resolved, Err: parseErr}
}
