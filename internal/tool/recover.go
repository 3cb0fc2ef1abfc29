// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ProdBay-app/ProdBay-sub000/internal/recovery"
	"github.com/ProdBay-app/ProdBay-sub000/internal/ruleset"
)

// MetadataRecoverAssetList describes the recover_asset_list tool.
var MetadataRecoverAssetList = &mcp.Tool{
	Name: "recover_asset_list",
	Description: "Recover a validated list of procurement asset records from a raw LLM completion. " +
		"The completion may be wrapped in markdown fences, contain invalid escape sequences or " +
		"LaTeX-style notation inside string values, carry merged record objects, or be truncated " +
		"mid-document; the pipeline repairs what it can before parsing and degrades through " +
		"fallback extraction strategies when whole-document parsing fails. " +
		"The result reports which strategy produced the records and whether structural repair " +
		"was attempted.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"completion"},
		"properties": map[string]interface{}{
			"completion": map[string]interface{}{
				"type":        "string",
				"description": "Raw completion text to recover asset records from",
			},
			"profile_path": map[string]interface{}{
				"type":        "string",
				"description": "Optional path to a YAML extraction profile. If omitted, the default asset profile is used.",
			},
			"source_id": map[string]interface{}{
				"type":        "string",
				"description": "Optional identifier for the completion (request id, project id, etc.) echoed back in the result.",
			},
		},
	},
}

// InputRecoverAssetList is the input for the RecoverAssetList tool.
type InputRecoverAssetList struct {
	Completion  string `json:"completion"`
	ProfilePath string `json:"profile_path"`
	SourceID    string `json:"source_id"`
}

// OutputRecoverAssetList is the output for the RecoverAssetList tool.
type OutputRecoverAssetList struct {
	// Records is the list of canonical asset records.
	Records []recovery.Record `json:"records"`
	// Reasoning is the model's stated reasoning, when the completion carried one.
	Reasoning *string `json:"reasoning,omitempty"`
	// Confidence is the model's stated confidence, when the completion carried one.
	Confidence *float64 `json:"confidence,omitempty"`
	// Strategy names the extraction strategy that produced the records.
	Strategy string `json:"strategy"`
	// Telemetry reports what the structural repairer did.
	Telemetry recovery.Telemetry `json:"telemetry"`
	// SourceID echoes the caller-provided completion identifier.
	SourceID string `json:"source_id,omitempty"`
}

// RecoverHandler is the handler signature the MCP server registers for the
// recover_asset_list tool.
type RecoverHandler = func(context.Context, *mcp.CallToolRequest, InputRecoverAssetList) (*mcp.CallToolResult, OutputRecoverAssetList, error)

// pipelineFor builds a Pipeline for the given profile path, falling back to
// the provided profile when the path is empty.
func pipelineFor(profilePath string, fallback ruleset.Profile) (*recovery.Pipeline, error) {
	if profilePath == "" {
		return recovery.NewPipeline(fallback), nil
	}
	profile, err := ruleset.Load(profilePath)
	if err != nil {
		return nil, err
	}
	return recovery.NewPipeline(profile), nil
}

// RecoverAssetListWith returns a handler whose recoveries use the given
// profile whenever a call does not name its own profile_path. This is how a
// server-level --profile flag reaches the tool.
func RecoverAssetListWith(fallback ruleset.Profile) RecoverHandler {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input InputRecoverAssetList) (*mcp.CallToolResult, OutputRecoverAssetList, error) {
		if input.Completion == "" {
			return nil, OutputRecoverAssetList{}, fmt.Errorf("completion is required")
		}

		pipeline, err := pipelineFor(input.ProfilePath, fallback)
		if err != nil {
			return nil, OutputRecoverAssetList{}, err
		}

		result, err := pipeline.Recover(ctx, input.Completion)
		if err != nil {
			return nil, OutputRecoverAssetList{}, err
		}

		return nil, OutputRecoverAssetList{
			Records:    result.Records,
			Reasoning:  result.Reasoning,
			Confidence: result.Confidence,
			Strategy:   result.Strategy,
			Telemetry:  result.Telemetry,
			SourceID:   input.SourceID,
		}, nil
	}
}

// RecoverAssetList handles recover_asset_list with the default asset profile.
func RecoverAssetList(ctx context.Context, req *mcp.CallToolRequest, input InputRecoverAssetList) (*mcp.CallToolResult, OutputRecoverAssetList, error) {
	return RecoverAssetListWith(ruleset.Default())(ctx, req, input)
}
