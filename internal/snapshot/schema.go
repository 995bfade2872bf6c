package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// documentSchema validates the raw JSON of one document kind before it is
// decoded into typed records.
type documentSchema struct {
	name     string
	compiled *jsonschema.Schema
}

func (s documentSchema) validate(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := s.compiled.Validate(v); err != nil {
		return fmt.Errorf("schema %s: %w", s.name, err)
	}
	return nil
}

func mustSchema(name, src string) documentSchema {
	return documentSchema{name: name, compiled: jsonschema.MustCompileString(name+".json", src)}
}

var (
	movementsSchema = mustSchema("movements", `{
		"type": "array",
		"items": {
			"type": "object",
			"required": ["x", "y", "timestamp", "speed"],
			"properties": {
				"x":         {"type": "integer"},
				"y":         {"type": "integer"},
				"timestamp": {"type": "number", "minimum": 0},
				"speed":     {"type": "number", "minimum": 0}
			}
		}
	}`)

	clicksSchema = mustSchema("clicks", `{
		"type": "array",
		"items": {
			"type": "object",
			"required": ["x", "y", "button", "pressed", "timestamp"],
			"properties": {
				"x":         {"type": "integer"},
				"y":         {"type": "integer"},
				"button":    {"type": "string"},
				"pressed":   {"type": "boolean"},
				"timestamp": {"type": "number", "minimum": 0}
			}
		}
	}`)

	scrollsSchema = mustSchema("scrolls", `{
		"type": "array",
		"items": {
			"type": "object",
			"required": ["x", "y", "dx", "dy", "timestamp"],
			"properties": {
				"x":         {"type": "integer"},
				"y":         {"type": "integer"},
				"dx":        {"type": "number"},
				"dy":        {"type": "number"},
				"timestamp": {"type": "number", "minimum": 0}
			}
		}
	}`)

	hoverSchema = mustSchema("hover", `{
		"type": "array",
		"items": {
			"type": "object",
			"required": ["x", "y", "duration"],
			"properties": {
				"x":        {"type": "integer"},
				"y":        {"type": "integer"},
				"duration": {"type": "number", "minimum": 0}
			}
		}
	}`)
)
