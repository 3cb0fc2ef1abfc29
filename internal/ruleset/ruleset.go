// SPDX-License-Identifier: Apache-2.0

package ruleset

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Profile describes the shape of the asset list a completion is expected to
// carry: the key of the record array, the key that opens every record, the
// fields that are allowed to collapse to their last occurrence when a merged
// object duplicated them, and the tag-count bounds of a mapped record.
//
// The profile is read once at startup and treated as immutable afterwards;
// the recovery pipeline only ever reads from it.
type Profile struct {
	// ArrayKey is the JSON key of the record array, e.g. "assets".
	ArrayKey string `yaml:"array_key" json:"array_key"`
	// PrimaryKey is the JSON key that begins every record, e.g. "asset_name".
	PrimaryKey string `yaml:"primary_key" json:"primary_key"`
	// DuplicateFields lists the keys the duplicate-key resolver is allowed to
	// collapse. Keys not listed here are never touched, even when repeated.
	DuplicateFields []string `yaml:"duplicate_fields" json:"duplicate_fields"`
	// MinCategoryTags and MaxCategoryTags bound the category_tags sequence of
	// a mapped record.
	MinCategoryTags int `yaml:"min_category_tags" json:"min_category_tags"`
	MaxCategoryTags int `yaml:"max_category_tags" json:"max_category_tags"`
}

// Default returns the profile matching the current asset-extraction prompt.
func Default() Profile {
	return Profile{
		ArrayKey:   "assets",
		PrimaryKey: "asset_name",
		DuplicateFields: []string{
			"supplier_context",
			"quantity",
			"category_tag",
			"technical_specifications",
			"specifications",
		},
		MinCategoryTags: 1,
		MaxCategoryTags: 4,
	}
}

// Load reads a profile from a YAML file. Fields omitted in the file keep
// their Default values, so a profile override only needs to name what changed.
func Load(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	profile := Default()
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return Profile{}, fmt.Errorf("parse profile %q: %w", path, err)
	}
	if err := profile.Validate(); err != nil {
		return Profile{}, fmt.Errorf("profile %q: %w", path, err)
	}
	return profile, nil
}

// Validate reports structurally unusable profiles.
func (p Profile) Validate() error {
	if p.ArrayKey == "" {
		return fmt.Errorf("array_key must not be empty")
	}
	if p.PrimaryKey == "" {
		return fmt.Errorf("primary_key must not be empty")
	}
	if p.MinCategoryTags < 0 || p.MaxCategoryTags < p.MinCategoryTags {
		return fmt.Errorf("invalid tag bounds [%d, %d]", p.MinCategoryTags, p.MaxCategoryTags)
	}
	return nil
}
