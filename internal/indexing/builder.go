package indexing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/verifiq/invoice-verifier/internal/rules"
)

// timestampLayout is the UTC second-resolution layout the index expects
const timestampLayout = "2006-01-02T15:04:05Z"

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Metadata carries the per-invocation context embedded into every record
type Metadata struct {
	// OriginFileURI is the URI of the original multi-page source document
	OriginFileURI string

	// OriginFileName is the origin URI's base name with the extension stripped
	OriginFileName string

	// SourceObject is the path of the analyzed batch the page came from
	SourceObject string
}

// Builder assembles search-index records from extraction results and
// verdicts
type Builder struct {
	timeSource TimeSource
}

// NewBuilder creates a Builder stamping records with the wall clock
func NewBuilder() *Builder {
	return NewBuilderWithTimeSource(&defaultTimeSource{})
}

// NewBuilderWithTimeSource creates a Builder with an injected time source
// for deterministic records in tests
func NewBuilderWithTimeSource(timeSource TimeSource) *Builder {
	return &Builder{timeSource: timeSource}
}

// Build assembles the record for one page. Two calls with identical inputs
// differ only in the timestamp field.
func (b *Builder) Build(fields map[string]string, content string, page int, meta Metadata, verdict rules.Verdict) PageDocument {
	invoiceData := make(map[string]any, len(fields))
	for k, v := range fields {
		// The derived line-item count is indexed as a number
		if k == "line_item_count" {
			if n, err := strconv.Atoi(v); err == nil {
				invoiceData[k] = n
				continue
			}
		}
		invoiceData[k] = v
	}

	failing := verdict.FailingRules
	if failing == nil {
		failing = []string{}
	}

	return PageDocument{
		Content:            content,
		Page:               page,
		URI:                meta.OriginFileURI,
		Timestamp:          b.timeSource.Now().UTC().Format(timestampLayout),
		OriginFileName:     meta.OriginFileName,
		S3Object:           meta.SourceObject,
		InvoiceData:        invoiceData,
		VerificationStatus: verdict.Passed,
		FailingRules:       failing,
	}
}

// bulkAction is the header line preceding each document in a bulk payload
type bulkAction struct {
	Index bulkActionMeta `json:"index"`
}

type bulkActionMeta struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

// SerializeBulk emits the newline-delimited bulk-import payload: one
// action-header line and one document line per record, each
// newline-terminated, in record order.
func SerializeBulk(docs []PageDocument, indexName string) ([]byte, error) {
	var buf bytes.Buffer
	for _, doc := range docs {
		action, err := json.Marshal(bulkAction{
			Index: bulkActionMeta{Index: indexName, ID: doc.ID()},
		})
		if err != nil {
			return nil, fmt.Errorf("marshaling bulk action: %w", err)
		}
		body, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("marshaling document %s: %w", doc.ID(), err)
		}
		buf.Write(action)
		buf.WriteByte('\n')
		buf.Write(body)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
