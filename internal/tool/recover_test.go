// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProdBay-app/ProdBay-sub000/internal/recovery"
	"github.com/ProdBay-app/ProdBay-sub000/internal/ruleset"
)

func TestRecoverAssetList(t *testing.T) {
	ctx := context.Background()
	req := &mcp.CallToolRequest{}

	tests := []struct {
		name           string
		input          InputRecoverAssetList
		wantErr        bool
		errContains    string
		validateOutput func(t *testing.T, output OutputRecoverAssetList)
	}{
		{
			name:        "empty completion returns error",
			input:       InputRecoverAssetList{Completion: ""},
			wantErr:     true,
			errContains: "completion is required",
		},
		{
			name: "fenced completion produces records",
			input: InputRecoverAssetList{
				Completion: "```json\n{\"assets\":[{\"asset_name\":\"PA System\",\"technical_specifications\":\"line array, 110 dB\",\"category_tag\":\"Audio\"}]}\n```",
				SourceID:   "project-42",
			},
			wantErr: false,
			validateOutput: func(t *testing.T, output OutputRecoverAssetList) {
				require.Len(t, output.Records, 1)
				assert.Equal(t, "PA System", output.Records[0].Name)
				assert.Equal(t, []string{"Audio"}, output.Records[0].CategoryTags)
				assert.Equal(t, recovery.StrategyDocument, output.Strategy)
				assert.False(t, output.Telemetry.RepairAttempted)
				assert.Equal(t, "project-42", output.SourceID)
			},
		},
		{
			name: "merged objects are split and reported",
			input: InputRecoverAssetList{
				Completion: `{"assets":[{"asset_name":"A","tags":["X"]"asset_name":"B","tags":["Y"]}]}`,
			},
			wantErr: false,
			validateOutput: func(t *testing.T, output OutputRecoverAssetList) {
				require.Len(t, output.Records, 2)
				assert.True(t, output.Telemetry.RepairAttempted)
				assert.Equal(t, 1, output.Telemetry.ObjectsSaved)
			},
		},
		{
			name: "truncated completion degrades to fallback extraction",
			input: InputRecoverAssetList{
				Completion: `{"assets":[{"asset_name":"A","specifications":"s1"},{"asset_name":"B","specifications":"s2"},{"asset_name":"C","spe`,
			},
			wantErr: false,
			validateOutput: func(t *testing.T, output OutputRecoverAssetList) {
				require.GreaterOrEqual(t, len(output.Records), 2)
				assert.NotEqual(t, recovery.StrategyDocument, output.Strategy)
			},
		},
		{
			name: "reasoning and confidence are surfaced",
			input: InputRecoverAssetList{
				Completion: `{"reasoning":"two items matched","assets":[{"asset_name":"A","specifications":"s"}],"confidence":0.9}`,
			},
			wantErr: false,
			validateOutput: func(t *testing.T, output OutputRecoverAssetList) {
				require.NotNil(t, output.Reasoning)
				assert.Equal(t, "two items matched", *output.Reasoning)
				require.NotNil(t, output.Confidence)
				assert.InDelta(t, 0.9, *output.Confidence, 1e-9)
			},
		},
		{
			name: "prose without json returns error",
			input: InputRecoverAssetList{
				Completion: "I could not find any assets in this brief.",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, output, err := RecoverAssetList(ctx, req, tt.input)

			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}

			require.NoError(t, err)
			if tt.validateOutput != nil {
				tt.validateOutput(t, output)
			}
		})
	}
}

func TestRecoverAssetList_ProfilePath(t *testing.T) {
	ctx := context.Background()
	req := &mcp.CallToolRequest{}

	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("array_key: line_items\n"), 0o644))

	input := InputRecoverAssetList{
		Completion:  `{"line_items":[{"asset_name":"Truss","specifications":"12m span"}]}`,
		ProfilePath: path,
	}

	_, output, err := RecoverAssetList(ctx, req, input)
	require.NoError(t, err)
	require.Len(t, output.Records, 1)
	assert.Equal(t, "Truss", output.Records[0].Name)
}

func TestRecoverAssetListWith_ServerProfile(t *testing.T) {
	ctx := context.Background()
	req := &mcp.CallToolRequest{}

	serverProfile := ruleset.Default()
	serverProfile.ArrayKey = "line_items"
	handler := RecoverAssetListWith(serverProfile)

	t.Run("server profile applies when the call names none", func(t *testing.T) {
		input := InputRecoverAssetList{
			Completion: `{"line_items":[{"asset_name":"Truss","specifications":"12m span"}]}`,
		}

		_, output, err := handler(ctx, req, input)
		require.NoError(t, err)
		require.Len(t, output.Records, 1)
		assert.Equal(t, "Truss", output.Records[0].Name)
	})

	t.Run("per-call profile_path overrides the server profile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "profile.yaml")
		require.NoError(t, os.WriteFile(path, []byte("array_key: assets\n"), 0o644))

		input := InputRecoverAssetList{
			Completion:  `{"assets":[{"asset_name":"PA System","specifications":"2x subs"}]}`,
			ProfilePath: path,
		}

		_, output, err := handler(ctx, req, input)
		require.NoError(t, err)
		require.Len(t, output.Records, 1)
		assert.Equal(t, "PA System", output.Records[0].Name)
	})
}

func TestRecoverAssetList_BadProfilePath(t *testing.T) {
	ctx := context.Background()

	input := InputRecoverAssetList{
		Completion:  `{"assets":[]}`,
		ProfilePath: filepath.Join(t.TempDir(), "missing.yaml"),
	}

	_, _, err := RecoverAssetList(ctx, &mcp.CallToolRequest{}, input)
	require.Error(t, err)
}
