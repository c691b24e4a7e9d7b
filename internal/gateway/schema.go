// ABOUTME: JSON Schema for chat webhook replies and the validation helper
// ABOUTME: Uses gojsonschema so malformed replies surface as DecodeError

package gateway

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var errNotJSON = errors.New("body is not valid JSON")

// chatResponseSchema describes the reply of the chat webhook.
var chatResponseSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"id", "type", "text", "timestamp"},
	"properties": map[string]interface{}{
		"id":        map[string]interface{}{"type": "number"},
		"type":      map[string]interface{}{"type": "string", "enum": []interface{}{"ai"}},
		"text":      map[string]interface{}{"type": "string"},
		"timestamp": map[string]interface{}{"type": "string"},
	},
}

var chatSchema = mustCompile(chatResponseSchema)

func mustCompile(schema map[string]interface{}) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("compiling schema: %v", err))
	}
	return s
}

// validate checks raw against schema and joins the violations into one error.
func validate(schema *gojsonschema.Schema, raw []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return errors.New("schema violation: " + strings.Join(errs, "; "))
	}
	return nil
}
