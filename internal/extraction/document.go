package extraction

// AnalyzedExpense is the analysis service's JSON output for one analyzed
// document batch: one ExpenseDocument per page.
type AnalyzedExpense struct {
	ExpenseDocuments []ExpenseDocument `json:"ExpenseDocuments"`
}

// ExpenseDocument holds the detected fields and text blocks for one page
type ExpenseDocument struct {
	SummaryFields  []SummaryField  `json:"SummaryFields"`
	LineItemGroups []LineItemGroup `json:"LineItemGroups"`
	Blocks         []Block         `json:"Blocks"`
}

// SummaryField is one detected semantic field with its value, optionally
// tagged with group membership (e.g. the receiver shipping address group)
type SummaryField struct {
	Type            FieldType       `json:"Type"`
	ValueDetection  ValueDetection  `json:"ValueDetection"`
	GroupProperties []GroupProperty `json:"GroupProperties"`
}

// FieldType carries the canonical field name
type FieldType struct {
	Text string `json:"Text"`
}

// ValueDetection carries the detected field value
type ValueDetection struct {
	Text string `json:"Text"`
}

// GroupProperty tags a field with the groups it belongs to
type GroupProperty struct {
	Types []string `json:"Types"`
}

// LineItemGroup is a table of detected line items
type LineItemGroup struct {
	LineItems []LineItem `json:"LineItems"`
}

// LineItem is a single row of a line-item table
type LineItem struct {
	LineItemExpenseFields []SummaryField `json:"LineItemExpenseFields"`
}

// Block is one unit of detected text
type Block struct {
	BlockType string `json:"BlockType"`
	Text      string `json:"Text"`
}
