package assistant

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Response schemas. The assistant is an external service; its responses are
// validated structurally before anything is decoded from them.

const intentSchema = `{
	"type": "object",
	"required": ["intent", "confidence"],
	"properties": {
		"intent": {"type": "string"},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"fields": {
			"type": "object",
			"properties": {
				"duration": {"type": "integer", "minimum": 0},
				"purpose": {"type": "string"},
				"participants": {"type": "array", "items": {"type": "string"}},
				"suggestedTitle": {"type": "string"}
			}
		},
		"missing": {"type": "array", "items": {"type": "string"}}
	}
}`

const titleSchema = `{
	"type": "object",
	"required": ["title"],
	"properties": {
		"title": {"type": "string", "minLength": 1},
		"enhancedPurpose": {"type": "string"},
		"titleSuggestions": {"type": "array", "items": {"type": "string"}},
		"keyPoints": {"type": "array", "items": {"type": "string"}}
	}
}`

const agendaSchema = `{
	"type": "object",
	"required": ["agenda"],
	"properties": {
		"agenda": {
			"type": "object",
			"required": ["text"],
			"properties": {
				"html": {"type": "string"},
				"text": {"type": "string", "minLength": 1}
			}
		}
	}
}`

func validateResponse(schema string, data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("assistant response is not valid JSON: %w", err)
	}

	if !result.Valid() {
		return fmt.Errorf("assistant response failed schema validation: %v", result.Errors())
	}

	return nil
}
