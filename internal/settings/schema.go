package settings

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "kanban-settings.json"

const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "date-trigger":         {"$ref": "#/definitions/trigger"},
    "time-trigger":         {"$ref": "#/definitions/trigger"},
    "priority-trigger":     {"$ref": "#/definitions/trigger"},
    "story-points-trigger": {"$ref": "#/definitions/trigger"},
    "category-trigger":     {"$ref": "#/definitions/trigger"},
    "link-date-to-daily-note": {"type": "boolean"},
    "date-format": {"type": "string", "minLength": 1},
    "time-format": {"type": "string", "minLength": 1},
    "new-card-insertion-method": {"enum": ["append", "prepend", "prepend-compact"]},
    "categories": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name":  {"type": "string"},
          "color": {"type": "string"}
        }
      }
    }
  },
  "definitions": {
    "trigger": {"type": "string", "minLength": 1, "pattern": "^\\S+$"}
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add settings schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
	})
	return schema, schemaErr
}

// ValidationError is the first schema violation, addressed by settings key.
type ValidationError struct {
	Key     string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Key == "" {
		return "invalid settings: " + e.Message
	}
	return fmt.Sprintf("invalid setting %s: %s", e.Key, e.Message)
}

// Validate checks s against the settings schema. Unknown keys are allowed.
func Validate(s Settings) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	// Round-trip through JSON so numbers and nested values have the shapes the validator expects.
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("unmarshal settings: %w", err)
	}
	if doc == nil {
		return nil
	}
	if err := sch.Validate(doc); err != nil {
		ve, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return &ValidationError{Message: err.Error()}
		}
		return firstCause(ve)
	}
	return nil
}

func firstCause(ve *jsonschema.ValidationError) error {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	key := strings.TrimPrefix(strings.TrimPrefix(ve.InstanceLocation, "#"), "/")
	if i := strings.Index(key, "/"); i >= 0 {
		key = key[:i]
	}
	return &ValidationError{Key: key, Message: ve.Message}
}
