package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/docpipeline/constants"
	"github.com/joseph-ayodele/docpipeline/internal/entity"
)

// structuredResultSchema guards the document summary written on success.
// Whatever the stages produced, a row that violates this shape is a bug and
// must fail the job instead of landing in the documents table.
var structuredResultSchema = map[string]any{
	"type":                 "object",
	"required":             []any{"type", "confidence", "text_preview", "fields"},
	"additionalProperties": false,
	"properties": map[string]any{
		"type": map[string]any{
			"type": "string",
			"enum": toAnySlice(constants.AsStringSlice()),
		},
		"confidence": map[string]any{
			"type":    "number",
			"minimum": 0,
			"maximum": 100,
		},
		"text_preview": map[string]any{
			"type": "string",
			// PreviewLength plus the ellipsis appended on truncation.
			"maxLength": PreviewLength + 3,
		},
		"fields": map[string]any{
			"type":                 "object",
			"additionalProperties": map[string]any{"type": "string"},
		},
	},
}

var (
	compiledSchemaOnce sync.Once
	compiledSchema     *jsonschema.Schema
	compiledSchemaErr  error
)

func compileStructuredResultSchema() (*jsonschema.Schema, error) {
	compiledSchemaOnce.Do(func() {
		b, err := json.Marshal(structuredResultSchema)
		if err != nil {
			compiledSchemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("structured_result.json", bytes.NewReader(b)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, compiledSchemaErr = compiler.Compile("structured_result.json")
	})
	return compiledSchema, compiledSchemaErr
}

// validateStructuredResult checks the summary against the schema before it is
// written to the documents row.
func validateStructuredResult(result *entity.StructuredResult) error {
	schema, err := compileStructuredResultSchema()
	if err != nil {
		return err
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal structured result: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal structured result: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("structured result does not match schema: %w", err)
	}
	return nil
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
