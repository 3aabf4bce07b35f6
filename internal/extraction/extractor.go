package extraction

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Canonical summary fields carried into the field map. Everything else the
// analysis service detects is dropped.
var allowedFields = []string{
	"TAX_PAYER_ID",
	"VENDOR_VAT_NUMBER",
	"PO_NUMBER",
	"SUBTOTAL",
	"TAX",
	"TOTAL",
	"INVOICE_RECEIPT_ID",
	"ORDER_DATE",
	"DUE_DATE",
	"DELIVERY_DATE",
}

// Receiver shipping sub-fields, merged in under the group prefix when their
// group membership matches.
var receiverFields = []string{"CITY", "STATE", "COUNTRY", "STREET"}

const receiverGroupKey = "RECEIVER_SHIP_TO"

// LineItemCountKey is the derived field holding the number of detected line
// items. It is merged into the field map before validation.
const LineItemCountKey = "line_item_count"

// FieldMap maps canonical field names to extracted string values
type FieldMap map[string]string

// PayloadError indicates an analyzed-expense payload is missing the
// structure extraction expects. Fatal to the invocation.
type PayloadError struct {
	Err error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("malformed analyzed-expense payload: %v", e.Err)
}

func (e *PayloadError) Unwrap() error {
	return e.Err
}

// Document is the shaped extraction result for one analyzed batch: a flat
// field mapping plus the concatenated line text of each page.
type Document struct {
	// Fields holds the allow-listed summary fields, the prefixed receiver
	// shipping sub-fields, and the derived line-item count.
	Fields FieldMap

	// LineItemCount is the number of line items in the first line-item group
	LineItemCount int

	// PageTexts holds the space-joined LINE block text of each page
	PageTexts []string
}

// ParseAnalyzedExpense decodes a raw analyzed-expense payload and shapes it
func ParseAnalyzedExpense(data []byte) (*Document, error) {
	var exp AnalyzedExpense
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, &PayloadError{Err: err}
	}
	return Shape(&exp)
}

// Shape builds the field mapping and per-page line text from an analyzed
// payload. Summary fields and the line-item count come from the first
// expense document; line text is collected per page.
func Shape(exp *AnalyzedExpense) (*Document, error) {
	if len(exp.ExpenseDocuments) == 0 {
		return nil, &PayloadError{Err: fmt.Errorf("no expense documents")}
	}

	first := exp.ExpenseDocuments[0]
	fields := make(FieldMap)
	for _, sf := range first.SummaryFields {
		name := sf.Type.Text
		if contains(allowedFields, name) {
			fields[name] = sf.ValueDetection.Text
			continue
		}
		if contains(receiverFields, name) && inGroup(sf, receiverGroupKey) {
			fields[receiverGroupKey+"_"+name] = sf.ValueDetection.Text
		}
	}

	count := 0
	if len(first.LineItemGroups) > 0 {
		count = len(first.LineItemGroups[0].LineItems)
	}
	fields[LineItemCountKey] = strconv.Itoa(count)

	pageTexts := make([]string, 0, len(exp.ExpenseDocuments))
	for _, doc := range exp.ExpenseDocuments {
		pageTexts = append(pageTexts, lineText(doc))
	}

	return &Document{
		Fields:        fields,
		LineItemCount: count,
		PageTexts:     pageTexts,
	}, nil
}

// lineText concatenates the text of all LINE blocks on a page
func lineText(doc ExpenseDocument) string {
	texts := make([]string, 0, len(doc.Blocks))
	for _, block := range doc.Blocks {
		if block.BlockType == "LINE" && block.Text != "" {
			texts = append(texts, block.Text)
		}
	}
	return strings.Join(texts, " ")
}

func inGroup(sf SummaryField, group string) bool {
	if len(sf.GroupProperties) == 0 {
		return false
	}
	return contains(sf.GroupProperties[0].Types, group)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
