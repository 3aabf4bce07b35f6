package rules

import "fmt"

// CheckTypeRegex is the check type evaluated as a prefix-anchored regular
// expression against the field value.
const CheckTypeRegex = "regex"

// Rule is a named validation constraint against one field of extracted
// invoice data. Rules are immutable once loaded; the repository is scanned
// once per process lifetime.
type Rule struct {
	RuleID   string `json:"ruleId"`
	Field    string `json:"field"`
	Type     string `json:"type"`
	Check    string `json:"check"`
	ErrorTxt string `json:"errorTxt"`
}

// Verdict is the outcome of evaluating all rules against one document page.
// FailingRules preserves rule evaluation order.
type Verdict struct {
	Passed       bool
	FailingRules []string
}

// missingFieldMessage is appended when a rule's field is absent from the
// extracted data. The wording is part of the indexed record contract.
func missingFieldMessage(field string) string {
	return fmt.Sprintf("%s is missing in the input document. It is required for processing", field)
}

// failureMessage is appended when a rule's check does not match.
func failureMessage(r Rule) string {
	return fmt.Sprintf("[%s] %s", r.RuleID, r.ErrorTxt)
}
