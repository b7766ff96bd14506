package schema

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"quoteflow/internal/domain"
)

const resourceName = "canonical_extraction.json"

var (
	isoDate = map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`}
	text    = map[string]any{"type": "string"}
	nonNeg  = map[string]any{"type": "number", "minimum": 0}
	count   = map[string]any{"type": "integer", "minimum": 0}
)

// Canonical is the JSON-Schema every provider's normalized output must satisfy.
// It is also embedded verbatim in the LLM system prompt.
var Canonical = map[string]any{
	"$schema":  "http://json-schema.org/draft-07/schema#",
	"title":    "CanonicalExtraction",
	"type":     "object",
	"required": []any{"supplier_name", "line_items"},
	"properties": map[string]any{
		"supplier_name": map[string]any{"type": "string", "minLength": 1},
		"quote_number":  text,
		"quote_date":    isoDate,
		"currency":      map[string]any{"type": "string", "pattern": `^[A-Z]{3}$`},
		"valid_until":   isoDate,
		"payment_terms": text,
		"notes":         text,
		"line_items": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":     "object",
				"required": []any{"supplier_part_number", "description", "qty_breaks"},
				"properties": map[string]any{
					"supplier_part_number": map[string]any{"type": "string", "minLength": 1},
					"description":          map[string]any{"type": "string", "minLength": 1},
					"uom":                  text,
					"lead_time_days":       count,
					"moq":                  count,
					"qty_breaks": map[string]any{
						"type":     "array",
						"minItems": 1,
						"items": map[string]any{
							"type":     "object",
							"required": []any{"min_qty", "unit_price"},
							"properties": map[string]any{
								"min_qty":    nonNeg,
								"unit_price": nonNeg,
							},
						},
					},
					"catalog_code":     text,
					"sub_catalog_code": text,
					"manufacturer_id":  text,
					"sku":              text,
					"attributes":       map[string]any{"type": "object"},
				},
			},
		},
	},
}

var compiled = mustCompile(Canonical)

func mustCompile(schemaMap map[string]any) *jsonschema.Schema {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		panic(err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resourceName, bytes.NewReader(b)); err != nil {
		panic(err)
	}
	return compiler.MustCompile(resourceName)
}

// JSON returns the canonical schema as indented JSON.
func JSON() string {
	b, _ := json.MarshalIndent(Canonical, "", "  ")
	return string(b)
}

// Validate checks a normalized extraction against the canonical schema.
func Validate(ext *domain.CanonicalExtraction) error {
	data, err := json.Marshal(ext)
	if err != nil {
		return eris.Wrap(err, "marshal extraction")
	}
	return ValidateJSON(data)
}

// ValidateJSON checks an arbitrary JSON document against the canonical schema.
func ValidateJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return eris.Wrap(err, "unmarshal extraction")
	}
	if err := compiled.Validate(v); err != nil {
		return eris.Wrap(err, "extraction does not match canonical schema")
	}
	return nil
}
