package rules

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ruleSchema structurally validates rule documents before they reach the
// repository. The check type enum mirrors the built-in registry; custom
// deployments extending the registry relax this at their own seeding layer.
const ruleSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "ruleId": {"type": "string", "minLength": 1},
    "field": {"type": "string", "minLength": 1},
    "type": {"enum": ["regex"]},
    "check": {"type": "string", "minLength": 1},
    "errorTxt": {"type": "string"}
  },
  "required": ["ruleId", "field", "type", "check"],
  "additionalProperties": false
}`

var compiledRuleSchema = jsonschema.MustCompileString("rule.schema.json", ruleSchema)

// ValidateRuleDocument checks a raw rule document against the rule schema
func ValidateRuleDocument(data []byte) error {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decoding rule document: %w", err)
	}
	if err := compiledRuleSchema.Validate(doc); err != nil {
		return fmt.Errorf("invalid rule document: %w", err)
	}
	return nil
}
