// SPDX-License-Identifier: Apache-2.0

package recovery

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeStrings(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain values pass through",
			input: `{"asset_name": "Stage", "specifications": "40x20 ft"}`,
			want:  `{"asset_name": "Stage", "specifications": "40x20 ft"}`,
		},
		{
			name:  "degree notation becomes plain text",
			input: `{"specifications": "Uses 360^{\circ} rotation"}`,
			want:  `{"specifications": "Uses 360 degrees rotation"}`,
		},
		{
			name:  "degree notation with dollar delimiters",
			input: `{"specifications": "Tilts $45^{\circ}$ forward"}`,
			want:  `{"specifications": "Tilts 45 degrees forward"}`,
		},
		{
			name:  "degree notation without braces or dollars",
			input: `{"specifications": "swings 90^\circ, then locks"}`,
			want:  `{"specifications": "swings 90 degrees, then locks"}`,
		},
		{
			name:  "undelimited degree notation keeps following word separate",
			input: `{"specifications": "$45^\circ$ tilt and 30^{\circ} pan"}`,
			want:  `{"specifications": "45 degrees tilt and 30 degrees pan"}`,
		},
		{
			name:  "invalid escape is doubled",
			input: `{"specifications": "path \width unknown"}`,
			want:  `{"specifications": "path \\width unknown"}`,
		},
		{
			name:  "valid escapes survive",
			input: `{"specifications": "line1\nline2 \"quoted\" slash\\"}`,
			want:  `{"specifications": "line1\nline2 \"quoted\" slash\\"}`,
		},
		{
			name:  "literal newline becomes escape",
			input: "{\"specifications\": \"line1\nline2\"}",
			want:  `{"specifications": "line1\nline2"}`,
		},
		{
			name:  "literal tab becomes escape",
			input: "{\"specifications\": \"a\tb\"}",
			want:  `{"specifications": "a\tb"}`,
		},
		{
			name:  "residual math span is stripped",
			input: `{"specifications": "load $\alpha \times 2$ rated"}`,
			want:  `{"specifications": "load \\alpha \\times 2 rated"}`,
		},
		{
			name:  "keys are never rewritten",
			input: `{"asset_name": "A", "tags": ["X\circ"]}`,
			want:  `{"asset_name": "A", "tags": ["X\\circ"]}`,
		},
		{
			name:  "unicode escape survives",
			input: `{"specifications": "symbol ° here"}`,
			want:  `{"specifications": "symbol ° here"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeStrings(tt.input)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeStrings_Idempotent(t *testing.T) {
	inputs := []string{
		`{"asset_name": "Stage", "specifications": "40x20 ft"}`,
		`{"specifications": "Uses 360^{\circ} rotation"}`,
		`{"specifications": "path \width unknown"}`,
		"{\"specifications\": \"line1\nline2\ttabbed\"}",
		`{"specifications": "load $\alpha$ rated", "tags": ["a", "b"]}`,
		`{"assets":[{"asset_name":"A","tags":["X"]"asset_name":"B"}]}`,
	}
	for _, input := range inputs {
		once := sanitizeStrings(input)
		twice := sanitizeStrings(once)
		assert.Equal(t, once, twice, "sanitize must be idempotent for %q", input)
	}
}

func TestSanitizeStrings_OutputParses(t *testing.T) {
	// After sanitizing, previously invalid escapes must no longer break a
	// standard parse.
	input := `{"specifications": "uses \circ and \width", "asset_name": "A"}`
	got := sanitizeStrings(input)

	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(got), &m))
	assert.Equal(t, "A", m["asset_name"])
}

func TestSanitizeStrings_PunctuationUntouched(t *testing.T) {
	// Structural characters inside values must be escaped or preserved, but
	// punctuation outside strings must never move.
	input := `{"a": "x", "b": ["y", "z"], "c": {"d": "e"}}`
	assert.Equal(t, input, sanitizeStrings(input))
}
