// SPDX-License-Identifier: Apache-2.0

package recovery

import (
	"encoding/json"
	"fmt"
)

// Two historical prompt versions produced two record shapes. The older one
// used `specifications` and `tags`; the current one uses
// `technical_specifications`, `category_tag`, and `supplier_context`.
// This file is the single place aware of the variants: everything downstream
// sees only the canonical Record.
type assetShape int

const (
	shapeCurrent assetShape = iota
	shapeLegacy
)

// rawAsset carries the union of both historical shapes as decoded from the
// repaired text.
type rawAsset struct {
	AssetName               string   `json:"asset_name"`
	Specifications          *string  `json:"specifications"`
	Tags                    []string `json:"tags"`
	TechnicalSpecifications *string  `json:"technical_specifications"`
	CategoryTag             *string  `json:"category_tag"`
	SupplierContext         *string  `json:"supplier_context"`
	SourceExcerpt           *string  `json:"source_excerpt"`
	Quantity                any      `json:"quantity"`
}

// shape classifies which prompt generation produced the record. Presence of
// any current-generation field wins; everything else is read as legacy.
func (a rawAsset) shape() assetShape {
	if a.TechnicalSpecifications != nil || a.CategoryTag != nil {
		return shapeCurrent
	}
	return shapeLegacy
}

// llmDocument is the parsed top-level completion.
type llmDocument struct {
	Assets     []rawAsset
	Reasoning  *string
	Confidence *float64
}

// parseDocument runs a standard JSON parse over the fully repaired text. The
// record array key comes from the profile; `reasoning` and `confidence` are
// optional and tolerated in any malformed shape by being ignored.
func (p *Pipeline) parseDocument(text string) (llmDocument, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		return llmDocument{}, err
	}

	arrayRaw, ok := envelope[p.rules.ArrayKey]
	if !ok {
		return llmDocument{}, fmt.Errorf("document has no %q array", p.rules.ArrayKey)
	}
	var assets []rawAsset
	if err := json.Unmarshal(arrayRaw, &assets); err != nil {
		return llmDocument{}, fmt.Errorf("decode %q array: %w", p.rules.ArrayKey, err)
	}

	doc := llmDocument{Assets: assets}
	if raw, ok := envelope["reasoning"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			doc.Reasoning = &s
		}
	}
	if raw, ok := envelope["confidence"]; ok {
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			doc.Confidence = &f
		}
	}
	return doc, nil
}

// mapAsset normalizes one raw record into the canonical shape. Missing
// optional fields become null or an empty sequence; the mapper never fails.
func (p *Pipeline) mapAsset(a rawAsset) Record {
	rec := Record{
		Name:          a.AssetName,
		SourceExcerpt: deref(a.SourceExcerpt),
		Quantity:      a.Quantity,
	}

	switch a.shape() {
	case shapeCurrent:
		rec.SpecificationText = deref(a.TechnicalSpecifications)
		if rec.SpecificationText == "" && a.Specifications != nil {
			rec.SpecificationText = *a.Specifications
		}
		rec.CategoryTags = a.Tags
		if len(rec.CategoryTags) == 0 && a.CategoryTag != nil && *a.CategoryTag != "" {
			rec.CategoryTags = []string{*a.CategoryTag}
		}
		rec.SupplierContext = a.SupplierContext
	case shapeLegacy:
		rec.SpecificationText = deref(a.Specifications)
		rec.CategoryTags = a.Tags
		rec.SupplierContext = a.SupplierContext
	}

	if rec.CategoryTags == nil {
		rec.CategoryTags = []string{}
	}
	if limit := p.rules.MaxCategoryTags; limit > 0 && len(rec.CategoryTags) > limit {
		rec.CategoryTags = rec.CategoryTags[:limit]
	}
	return rec
}

func (p *Pipeline) mapAssets(assets []rawAsset) []Record {
	records := make([]Record, 0, len(assets))
	for _, a := range assets {
		records = append(records, p.mapAsset(a))
	}
	return records
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
