// SPDX-License-Identifier: Apache-2.0

package recovery_test

import (
	"context"
	"encoding/json"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/require"

	"github.com/ProdBay-app/ProdBay-sub000/internal/recovery"
	"github.com/ProdBay-app/ProdBay-sub000/internal/ruleset"
)

// recordSchema is the contract every mapped record must satisfy, whichever
// completion shape or fallback strategy produced it.
const recordSchema = `
#Record: {
	name:               string & !=""
	specification_text: string
	source_excerpt:     string
	category_tags:      [...string]
	quantity:           _
	supplier_context:   string | null
}
`

func TestRecoveredRecordsConformToSchema(t *testing.T) {
	ctx := context.Background()
	pipeline := recovery.NewPipeline(ruleset.Default())

	cuectx := cuecontext.New()
	schema := cuectx.CompileString(recordSchema).LookupPath(cue.ParsePath("#Record"))
	require.NoError(t, schema.Err())

	inputs := map[string]string{
		"legacy shape": `{"assets":[{"asset_name":"Stage","specifications":"40x20 ft","tags":["Staging"]}]}`,
		"current shape": `{"assets":[{"asset_name":"PA System","technical_specifications":"line array, 110 dB",` +
			`"category_tag":"Audio","supplier_context":"regional AV house","quantity":2}]}`,
		"merged objects": `{"assets":[{"asset_name":"A","tags":["X"]"asset_name":"B","tags":["Y"]}]}`,
		"truncated fallback": `{"assets":[{"asset_name":"A","specifications":"s1"},` +
			`{"asset_name":"B","specifications":"s2"},{"asset_name":"C","spe`,
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			result, err := pipeline.Recover(ctx, input)
			require.NoError(t, err)
			require.NotEmpty(t, result.Records)

			for _, record := range result.Records {
				encoded, err := json.Marshal(record)
				require.NoError(t, err)

				value := cuectx.CompileBytes(encoded)
				require.NoError(t, value.Err())

				unified := schema.Unify(value)
				require.NoError(t, unified.Validate(cue.Concrete(true)),
					"record %q does not conform to the output contract", record.Name)
			}
		})
	}
}
