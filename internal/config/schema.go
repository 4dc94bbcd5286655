package config

import (
	_ "embed"
	"encoding/json"
	"strings"

	aserrors "github.com/systmms/authstack/internal/errors"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

// validateSchema checks the raw YAML document against the embedded JSON
// Schema. The YAML is round-tripped through JSON because the validator
// only speaks JSON.
func validateSchema(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return aserrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}

	jsonDoc, err := json.Marshal(doc)
	if err != nil {
		return aserrors.ConfigError{
			Message:    "configuration could not be converted for validation",
			Suggestion: "Remove non-scalar map keys from authstack.yaml",
		}
	}

	schemaLoader := gojsonschema.NewStringLoader(schemaJSON)
	documentLoader := gojsonschema.NewBytesLoader(jsonDoc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return aserrors.ConfigError{
			Message:    "schema validation error: " + err.Error(),
			Suggestion: "This is an internal error. Please report it",
		}
	}

	if !result.Valid() {
		var errorMessages []string
		for _, desc := range result.Errors() {
			errorMessages = append(errorMessages, desc.String())
		}
		return aserrors.ConfigError{
			Message:    "configuration does not match the expected structure:\n  - " + strings.Join(errorMessages, "\n  - "),
			Suggestion: "Compare your authstack.yaml against the fields shown by 'authstack init'",
		}
	}

	return nil
}
