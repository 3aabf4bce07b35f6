package indexing

import "fmt"

// PageDocument is one search-index record, covering a single page of an
// analyzed document together with its verification outcome. Field names are
// part of the index contract and must not change.
type PageDocument struct {
	Content            string         `json:"content"`
	Page               int            `json:"page"`
	URI                string         `json:"uri"`
	Timestamp          string         `json:"timestamp"`
	OriginFileName     string         `json:"origin_file_name"`
	S3Object           string         `json:"s3_object"`
	InvoiceData        map[string]any `json:"invoice_data"`
	VerificationStatus bool           `json:"VERIFICATION_STATUS"`
	FailingRules       []string       `json:"FAILING_RULES"`
}

// ID returns the document identifier. Re-ingesting the same page overwrites
// the prior record in the index.
func (d PageDocument) ID() string {
	return fmt.Sprintf("%s_%d", d.OriginFileName, d.Page)
}
