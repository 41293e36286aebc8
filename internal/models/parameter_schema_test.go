package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatSchemaJSON = `{
	"headers": {
		"x-trace": {"type": "text"}
	},
	"body": {
		"bodyKind": "json",
		"required": ["model"],
		"data": {
			"model": {"type": "string"},
			"messages": {"type": "array", "required": true},
			"temperature": {"type": "double", "description": "sampling temperature"},
			"options": {
				"type": "json",
				"required": ["format"],
				"properties": {
					"format": {"type": "string"},
					"seed": {"type": "integer"}
				}
			}
		}
	},
	"query": {
		"verbose": {"type": "boolean"}
	},
	"pathParams": {
		"id": {"type": "string", "required": true}
	}
}`

func TestParameterSchema_UnmarshalNormalizesAndKeepsOrder(t *testing.T) {
	var schema ParameterSchema
	require.NoError(t, json.Unmarshal([]byte(chatSchemaJSON), &schema))

	assert.Equal(t, BodyKindJSON, schema.Body.Kind)
	assert.Equal(t, []string{"model", "messages", "temperature", "options"}, schema.Body.Data.Names())

	temperature, ok := schema.Body.Data.Get("temperature")
	require.True(t, ok)
	assert.Equal(t, TypeNumber, temperature.Type)

	options, ok := schema.Body.Data.Get("options")
	require.True(t, ok)
	assert.Equal(t, TypeObject, options.Type)
	assert.Equal(t, []string{"format"}, options.RequiredFields)
	require.NotNil(t, options.Properties)
	assert.Equal(t, []string{"format", "seed"}, options.Properties.Names())

	header, _ := schema.Headers.Get("x-trace")
	assert.Equal(t, TypeString, header.Type)
}

func TestParameterSchema_JSONRoundTripKeepsOrder(t *testing.T) {
	var schema ParameterSchema
	require.NoError(t, json.Unmarshal([]byte(chatSchemaJSON), &schema))

	encoded, err := json.Marshal(schema)
	require.NoError(t, err)

	var decoded ParameterSchema
	require.NoError(t, json.Unmarshal(encoded, &decoded))

	assert.Equal(t, schema.Body.Data.Names(), decoded.Body.Data.Names())
	options, _ := decoded.Body.Data.Get("options")
	assert.Equal(t, []string{"format"}, options.RequiredFields)
}

func TestFieldSet_AcceptsArrayForm(t *testing.T) {
	var set FieldSet
	err := json.Unmarshal([]byte(`[{"name":"b","type":"integer"},{"name":"a"}]`), &set)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, set.Names())

	err = json.Unmarshal([]byte(`[{"type":"integer"}]`), &set)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`"nope"`), &set)
	assert.Error(t, err)
}

func TestParameterSchema_Flatten(t *testing.T) {
	var schema ParameterSchema
	require.NoError(t, json.Unmarshal([]byte(chatSchemaJSON), &schema))

	flat := schema.Flatten()

	require.Len(t, flat.Headers, 1)
	assert.Equal(t, "headers.x-trace", flat.Headers[0].Path)

	require.Len(t, flat.Parameters, 1)
	assert.Equal(t, "parameters.id", flat.Parameters[0].Path)
	assert.True(t, flat.Parameters[0].Required)

	require.Len(t, flat.Query, 1)
	assert.Equal(t, "query.verbose", flat.Query[0].Path)
	assert.Equal(t, TypeBoolean, flat.Query[0].Type)

	paths := make([]string, len(flat.Body))
	for i, f := range flat.Body {
		paths[i] = f.Path
	}
	assert.Equal(t, []string{
		"body.data.model",
		"body.data.messages",
		"body.data.temperature",
		"body.data.options",
		"body.data.options.format",
		"body.data.options.seed",
	}, paths)

	t.Run("required from parent list", func(t *testing.T) {
		model, ok := flat.Lookup("body.data.model")
		require.True(t, ok)
		assert.True(t, model.Required)

		format, ok := flat.Lookup("body.data.options.format")
		require.True(t, ok)
		assert.True(t, format.Required)
	})

	t.Run("required from own flag", func(t *testing.T) {
		messages, _ := flat.Lookup("body.data.messages")
		assert.True(t, messages.Required)
	})

	t.Run("optional fields stay optional", func(t *testing.T) {
		seed, _ := flat.Lookup("body.data.options.seed")
		assert.False(t, seed.Required)
		temperature, _ := flat.Lookup("body.data.temperature")
		assert.False(t, temperature.Required)
		assert.Equal(t, "sampling temperature", temperature.Description)
	})

	assert.Len(t, flat.All(), 9)
}

func TestParameterSchema_DuplicateNames(t *testing.T) {
	schema := ParameterSchema{
		Headers:    NewFieldSet(ParameterField{Name: "id", Type: TypeString}, ParameterField{Name: "trace", Type: TypeString}),
		Body:       BodySpec{Data: NewFieldSet(ParameterField{Name: "prompt", Type: TypeString}, ParameterField{Name: "trace", Type: TypeString})},
		Query:      NewFieldSet(ParameterField{Name: "id", Type: TypeString}),
		PathParams: NewFieldSet(ParameterField{Name: "unique", Type: TypeString}),
	}

	assert.Equal(t, []string{"id", "trace"}, schema.DuplicateNames())

	clean := ParameterSchema{
		Headers: NewFieldSet(ParameterField{Name: "a"}),
		Query:   NewFieldSet(ParameterField{Name: "b"}),
	}
	assert.Empty(t, clean.DuplicateNames())
}

func TestParameterSchema_ScanValue(t *testing.T) {
	var schema ParameterSchema
	require.NoError(t, json.Unmarshal([]byte(chatSchemaJSON), &schema))

	value, err := schema.Value()
	require.NoError(t, err)

	var scanned ParameterSchema
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, schema.Body.Data.Names(), scanned.Body.Data.Names())

	require.NoError(t, scanned.Scan(string(value.([]byte))))
	assert.Error(t, scanned.Scan(42))
}
