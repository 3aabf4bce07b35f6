package pipeline

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/verifiq/invoice-verifier/internal/extraction"
	"github.com/verifiq/invoice-verifier/internal/indexing"
	"github.com/verifiq/invoice-verifier/internal/objectstore"
	"github.com/verifiq/invoice-verifier/internal/routing"
	"github.com/verifiq/invoice-verifier/internal/rules"
)

// uploadDateKey is the derived field stamped when the verifier runs the
// analyzer itself
const uploadDateKey = "upload_date"

// VerifyRequest is the single-document event: the source object and,
// optionally, its already-extracted invoice data. When invoice data is
// absent the verifier runs the analyzer on the object first.
type VerifyRequest struct {
	Bucket      string              `json:"bucket"`
	Key         string              `json:"key"`
	ContentType string              `json:"content_type,omitempty"`
	InvoiceData extraction.FieldMap `json:"invoice_data,omitempty"`
}

// VerifyResult is the mutated input event annotated with the verification
// outcome and the destination location.
type VerifyResult struct {
	Bucket             string              `json:"bucket"`
	Key                string              `json:"key"`
	InvoiceData        extraction.FieldMap `json:"invoice_data"`
	VerificationStatus bool                `json:"VERIFICATION_STATUS"`
	DocLocation        string              `json:"DOC_LOCATION"`
	FailingRules       []string            `json:"FAILING_RULES"`
}

// Verifier is the single-document entry point. It shares the rule set and
// routing core with the manifest pipeline and writes the outcome straight
// to the search index instead of staging a bulk payload.
type Verifier struct {
	store      objectstore.Store
	ruleSet    *rules.Set
	router     *routing.Router
	analyzer   extraction.Analyzer
	index      indexing.Index
	indexName  string
	timeSource indexing.TimeSource
}

// NewVerifier creates a new Verifier. The analyzer may be nil when callers
// always supply pre-extracted invoice data; the index may be nil when no
// search index is configured.
func NewVerifier(store objectstore.Store, ruleSet *rules.Set, router *routing.Router, analyzer extraction.Analyzer, index indexing.Index, indexName string, timeSource indexing.TimeSource) *Verifier {
	return &Verifier{
		store:      store,
		ruleSet:    ruleSet,
		router:     router,
		analyzer:   analyzer,
		index:      index,
		indexName:  indexName,
		timeSource: timeSource,
	}
}

// Verify evaluates one document, routes it and records the outcome in the
// search index.
func (v *Verifier) Verify(req VerifyRequest) (*VerifyResult, error) {
	if req.Bucket == "" || req.Key == "" {
		return nil, fmt.Errorf("bucket and key are required")
	}

	fields := req.InvoiceData
	if len(fields) == 0 {
		var err error
		fields, err = v.analyze(req)
		if err != nil {
			return nil, err
		}
	}

	verdict := v.ruleSet.Evaluate(fields)

	source := objectstore.Location{Bucket: req.Bucket, Key: req.Key}
	destination, err := v.router.Route(verdict, source)
	if err != nil {
		return nil, err
	}

	failing := verdict.FailingRules
	if failing == nil {
		failing = []string{}
	}

	docLocation := fmt.Sprintf("%s/%s", destination.Bucket, destination.Key)
	if err := v.indexOutcome(req, fields, verdict, docLocation); err != nil {
		return nil, err
	}

	return &VerifyResult{
		Bucket:             req.Bucket,
		Key:                req.Key,
		InvoiceData:        fields,
		VerificationStatus: verdict.Passed,
		DocLocation:        docLocation,
		FailingRules:       failing,
	}, nil
}

// analyze runs the external analyzer on the stored document and shapes the
// result into a field map, stamping the upload date.
func (v *Verifier) analyze(req VerifyRequest) (extraction.FieldMap, error) {
	if v.analyzer == nil {
		return nil, fmt.Errorf("no invoice data supplied and no analyzer configured")
	}

	data, err := v.store.Get(req.Bucket, req.Key)
	if err != nil {
		return nil, fmt.Errorf("loading document: %w", err)
	}

	exp, err := v.analyzer.AnalyzeExpense(data, req.ContentType)
	if err != nil {
		return nil, fmt.Errorf("analyzing document: %w", err)
	}

	doc, err := extraction.Shape(exp)
	if err != nil {
		return nil, err
	}

	doc.Fields[uploadDateKey] = v.timeSource.Now().UTC().Format("2006-01-02T15:04:05Z")
	return doc.Fields, nil
}

// indexOutcome pushes the annotated document to the search index, creating
// the index on first use. The identifier is derived from the object key so
// re-verifying the same document overwrites its record.
func (v *Verifier) indexOutcome(req VerifyRequest, fields extraction.FieldMap, verdict rules.Verdict, docLocation string) error {
	if v.index == nil {
		return nil
	}

	body := make(map[string]any, len(fields)+2)
	for k, val := range fields {
		body[k] = val
	}
	body["VERIFICATION_STATUS"] = verdict.Passed
	body["DOC_LOCATION"] = docLocation

	if err := v.index.EnsureIndex(v.indexName); err != nil {
		return fmt.Errorf("ensuring index: %w", err)
	}

	docID := strings.ReplaceAll(req.Key, "/", "_")
	if err := v.index.IndexDocument(v.indexName, docID, body); err != nil {
		return fmt.Errorf("indexing outcome: %w", err)
	}

	slog.Info("Indexed verification outcome", "index", v.indexName, "id", docID, "passed", verdict.Passed)
	return nil
}

// realTime is a TimeSource backed by the wall clock
type realTime struct{}

func (realTime) Now() time.Time {
	return time.Now()
}

// NewRealTimeSource returns a wall-clock TimeSource for production wiring
func NewRealTimeSource() indexing.TimeSource {
	return realTime{}
}
