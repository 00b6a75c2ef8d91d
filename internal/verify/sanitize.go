package verify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// rowSchema guards the persistence boundary: every value must already be a
// plain string and the applicant id must be present.
const rowSchema = `{
	"type": "object",
	"required": ["id"],
	"properties": {
		"id": {"type": "string", "minLength": 1}
	},
	"additionalProperties": {"type": "string"}
}`

var compiledRowSchema = jsonschema.MustCompileString("row.schema.json", rowSchema)

// SanitizeRow replaces unparseable numeric sentinels and null-ish values
// with empty strings so the persisted row is always JSON-safe.
func SanitizeRow(row map[string]string) map[string]string {
	out := make(map[string]string, len(row))
	for k, v := range row {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "nan", "null", "none", "<nil>":
			out[k] = ""
		default:
			out[k] = v
		}
	}
	return out
}

// ValidateRow checks a sanitized row against the report-row schema.
func ValidateRow(row map[string]string) error {
	raw, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal row: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode row: %w", err)
	}
	if err := compiledRowSchema.Validate(doc); err != nil {
		return fmt.Errorf("row schema validation: %w", err)
	}
	return nil
}
