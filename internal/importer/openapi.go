// Package importer turns an OpenAPI 3 document into mock rules: one
// single-response rule per documented operation, with the path template
// rewritten as a matchable pattern and the example response used as the
// rule body.
package importer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/hcplat/mockapi/internal/models"
)

// Importer parses OpenAPI 3 documents into rule inputs
type Importer struct{}

// NewImporter creates a new OpenAPI importer
func NewImporter() *Importer {
	return &Importer{}
}

// Import parses an OpenAPI 3 document and returns one rule input per
// operation. Operations without a usable example response get an empty
// JSON object body.
func (i *Importer) Import(content string) ([]*models.RuleInput, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true

	doc, err := loader.LoadFromData([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI spec: %w", err)
	}

	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI spec: %w", err)
	}

	var inputs []*models.RuleInput

	for pathTemplate, pathItem := range doc.Paths.Map() {
		if pathItem == nil {
			continue
		}

		methods := map[string]*openapi3.Operation{
			"GET":     pathItem.Get,
			"POST":    pathItem.Post,
			"PUT":     pathItem.Put,
			"DELETE":  pathItem.Delete,
			"PATCH":   pathItem.Patch,
			"HEAD":    pathItem.Head,
			"OPTIONS": pathItem.Options,
		}

		for method, op := range methods {
			if op == nil {
				continue
			}

			name := op.OperationID
			if name == "" {
				name = fmt.Sprintf("%s %s", method, pathTemplate)
			}

			status, headers, body := exampleResponse(op)
			enabled := true

			inputs = append(inputs, &models.RuleInput{
				Name:         name,
				Method:       method,
				PathPattern:  PathTemplateToPattern(pathTemplate),
				Enabled:      &enabled,
				StatusCode:   status,
				Headers:      headers,
				BodyTemplate: body,
			})
		}
	}

	return inputs, nil
}

// templateParamPattern matches OpenAPI path parameters like {id}
var templateParamPattern = regexp.MustCompile(`\\\{[^}]+\\\}`)

// PathTemplateToPattern converts an OpenAPI path template to a rule path
// pattern: literal segments are escaped, parameters become single-segment
// wildcards, e.g. /users/{id} -> /users/([^/]+).
func PathTemplateToPattern(pathTemplate string) string {
	escaped := regexp.QuoteMeta(pathTemplate)
	return templateParamPattern.ReplaceAllString(escaped, `([^/]+)`)
}

// exampleResponse extracts the first documented success response.
func exampleResponse(op *openapi3.Operation) (int, map[string]string, string) {
	status := 200
	headers := map[string]string{}
	body := "{}"

	if op.Responses == nil {
		return status, headers, body
	}

	for _, code := range []int{200, 201, 202, 204} {
		response := op.Responses.Status(code)
		if response == nil || response.Value == nil {
			continue
		}

		status = code
		for name, header := range response.Value.Headers {
			if header.Value != nil && header.Value.Example != nil {
				headers[name] = fmt.Sprintf("%v", header.Value.Example)
			}
		}

		for mediaType, content := range response.Value.Content {
			if !strings.Contains(mediaType, "json") {
				continue
			}
			headers["Content-Type"] = mediaType
			if content.Example != nil {
				body = formatExample(content.Example)
			} else if len(content.Examples) > 0 {
				for _, ex := range content.Examples {
					if ex.Value != nil && ex.Value.Value != nil {
						body = formatExample(ex.Value.Value)
						break
					}
				}
			} else if content.Schema != nil && content.Schema.Value != nil {
				body = exampleFromSchema(content.Schema.Value)
			}
			break
		}

		if code == 204 {
			body = ""
		}
		return status, headers, body
	}

	return status, headers, body
}

// formatExample converts an example value to a JSON string
func formatExample(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		if data, err := json.Marshal(val); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%v", val)
	}
}

// exampleFromSchema generates a placeholder example from a schema type
func exampleFromSchema(schema *openapi3.Schema) string {
	if schema.Example != nil {
		return formatExample(schema.Example)
	}
	if schema.Type == nil || len(schema.Type.Slice()) == 0 {
		return "null"
	}

	switch schema.Type.Slice()[0] {
	case "object":
		return "{}"
	case "array":
		return "[]"
	case "string":
		return `"string"`
	case "integer":
		return "0"
	case "number":
		return "0.0"
	case "boolean":
		return "false"
	default:
		return "null"
	}
}
