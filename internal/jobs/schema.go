package jobs

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var optionsSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"mode":              map[string]any{"type": "string", "minLength": 1},
		"strategy":          map[string]any{"type": "string", "minLength": 1},
		"highlight":         map[string]any{"type": "boolean"},
		"highlight_color":   map[string]any{"type": "string", "minLength": 1},
		"all_pages":         map[string]any{"type": "boolean"},
		"trim_whitespace":   map[string]any{"type": "boolean"},
		"normalize_unicode": map[string]any{"type": "boolean"},
		"exclude":           map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"dpi":               map[string]any{"type": "integer", "minimum": 1, "maximum": 2400},
		"shift_threshold":   map[string]any{"type": "integer", "minimum": 0},
		"start_page":        map[string]any{"type": "integer"},
		"end_page":          map[string]any{"type": "integer"},
	},
}

var pairSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []any{"file1", "file2"},
	"properties": map[string]any{
		"file1":      map[string]any{"type": "string", "minLength": 1},
		"file2":      map[string]any{"type": "string", "minLength": 1},
		"identifier": map[string]any{"type": "string"},
		"options":    optionsSchema,
	},
}

// jobFileSchema describes a batch job file.
var jobFileSchema = map[string]any{
	"$schema":              "http://json-schema.org/draft-07/schema#",
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"name":    map[string]any{"type": "string"},
		"options": optionsSchema,
		"pairs": map[string]any{
			"type":  "array",
			"items": pairSchema,
		},
		"directories": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"required":             []any{"left", "right"},
			"properties": map[string]any{
				"left":        map[string]any{"type": "string", "minLength": 1},
				"right":       map[string]any{"type": "string", "minLength": 1},
				"skip_hidden": map[string]any{"type": "boolean"},
			},
		},
	},
	"anyOf": []any{
		map[string]any{"required": []any{"pairs"}},
		map[string]any{"required": []any{"directories"}},
	},
}

// validateJSONAgainstSchema validates data against schemaMap.
func validateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
