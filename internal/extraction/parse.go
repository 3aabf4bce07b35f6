package extraction

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseAnalyzedJSON parses the JSON response from the analysis model,
// tolerating markdown fences and surrounding prose.
func parseAnalyzedJSON(text string) (*AnalyzedExpense, error) {
	text = strings.TrimSpace(text)

	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Keep only the outermost JSON object
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	var exp AnalyzedExpense
	if err := json.Unmarshal([]byte(text), &exp); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	if len(exp.ExpenseDocuments) == 0 {
		return nil, fmt.Errorf("response contains no expense documents")
	}

	return &exp, nil
}
