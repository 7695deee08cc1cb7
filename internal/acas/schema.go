package acas

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// parserResponseSchema constrains the GenericDataParser payload shape. The
// downstream response is an untrusted external format; anything that does not
// match is rejected before field extraction.
func parserResponseSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"hasError"},
		"properties": map[string]any{
			"hasError":   map[string]any{"type": "boolean"},
			"hasWarning": map[string]any{"type": "boolean"},
			"errorMessages": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"errorLevel": map[string]any{"type": "string"},
						"message":    map[string]any{"type": "string"},
					},
				},
			},
			"results": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"experimentCode": map[string]any{"type": "string"},
					"htmlSummary":    map[string]any{"type": "string"},
				},
			},
		},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
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
