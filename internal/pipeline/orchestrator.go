package pipeline

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/verifiq/invoice-verifier/internal/extraction"
	"github.com/verifiq/invoice-verifier/internal/indexing"
	"github.com/verifiq/invoice-verifier/internal/objectstore"
	"github.com/verifiq/invoice-verifier/internal/routing"
	"github.com/verifiq/invoice-verifier/internal/rules"
)

// IDGenerator generates the per-invocation staging token
type IDGenerator interface {
	Generate() string
}

// uuidGenerator generates random UUID tokens
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// StagingConfig describes where serialized bulk payloads are written
type StagingConfig struct {
	Bucket string
	Prefix string
}

// InvocationResult is the manifest pipeline's output
type InvocationResult struct {
	OpenSearchBulkImport string `json:"OpenSearchBulkImport"`
}

// Orchestrator wires the manifest pipeline: manifest resolution, page
// fan-out, rule evaluation, routing and bulk-record accumulation. Pages are
// processed sequentially so the bulk payload ordering is deterministic.
type Orchestrator struct {
	store     objectstore.Store
	ruleSet   *rules.Set
	router    *routing.Router
	builder   *indexing.Builder
	staging   StagingConfig
	indexName string
	idGen     IDGenerator
}

// NewOrchestrator creates an Orchestrator with a UUID staging token
// generator
func NewOrchestrator(store objectstore.Store, ruleSet *rules.Set, router *routing.Router, builder *indexing.Builder, staging StagingConfig, indexName string) *Orchestrator {
	return NewOrchestratorWithDeps(store, ruleSet, router, builder, staging, indexName, &uuidGenerator{})
}

// NewOrchestratorWithDeps creates an Orchestrator with a custom token
// generator for testing
func NewOrchestratorWithDeps(store objectstore.Store, ruleSet *rules.Set, router *routing.Router, builder *indexing.Builder, staging StagingConfig, indexName string, idGen IDGenerator) *Orchestrator {
	return &Orchestrator{
		store:     store,
		ruleSet:   ruleSet,
		router:    router,
		builder:   builder,
		staging:   staging,
		indexName: indexName,
		idGen:     idGen,
	}
}

// ProcessInvocation runs the whole pipeline for one invocation. Any
// per-page failure aborts the invocation before the staging write, so a
// partial bulk payload is never persisted; source-object copies made for
// earlier pages are not rolled back.
func (o *Orchestrator) ProcessInvocation(event Event) (*InvocationResult, error) {
	manifest, err := event.ResolveManifest()
	if err != nil {
		return nil, fmt.Errorf("resolving manifest: %w", err)
	}
	if event.OriginFileURI == "" {
		return nil, fmt.Errorf("event carries no originFileURI")
	}
	if event.AnalyzerResult == nil || event.AnalyzerResult.OutputJSONPath == "" {
		return nil, fmt.Errorf("event carries no analyzed output path")
	}

	start, err := startPage(manifest.S3Path)
	if err != nil {
		return nil, err
	}

	origin, err := originFileName(event.OriginFileURI)
	if err != nil {
		return nil, err
	}

	originLoc, err := objectstore.ParseURI(event.OriginFileURI)
	if err != nil {
		return nil, fmt.Errorf("parsing origin location: %w", err)
	}

	analyzedLoc, err := objectstore.ParseURI(event.AnalyzerResult.OutputJSONPath)
	if err != nil {
		return nil, fmt.Errorf("parsing analyzed output location: %w", err)
	}
	payload, err := o.store.Get(analyzedLoc.Bucket, analyzedLoc.Key)
	if err != nil {
		return nil, fmt.Errorf("loading analyzed output: %w", err)
	}

	doc, err := extraction.ParseAnalyzedExpense(payload)
	if err != nil {
		return nil, err
	}

	slog.Info("Processing invocation",
		"origin", event.OriginFileURI,
		"batch", manifest.S3Path,
		"pages", len(doc.PageTexts),
		"start_page", start,
	)

	meta := indexing.Metadata{
		OriginFileURI:  event.OriginFileURI,
		OriginFileName: origin,
		SourceObject:   manifest.S3Path,
	}

	records := make([]indexing.PageDocument, 0, len(doc.PageTexts))
	for idx, pageText := range doc.PageTexts {
		pageNumber := start + idx

		verdict := o.ruleSet.Evaluate(doc.Fields)
		if _, err := o.router.Route(verdict, originLoc); err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNumber, err)
		}

		records = append(records, o.builder.Build(doc.Fields, pageText, pageNumber, meta, verdict))
	}

	bulk, err := indexing.SerializeBulk(records, o.indexName)
	if err != nil {
		return nil, fmt.Errorf("serializing bulk payload: %w", err)
	}

	// A fresh token per invocation keeps concurrent invocations from
	// clobbering each other's staging objects.
	stagingKey := fmt.Sprintf("%s/%s/%s.json",
		strings.TrimSuffix(o.staging.Prefix, "/"),
		o.idGen.Generate(),
		baseNameNoExt(manifest.S3Path),
	)
	if err := o.store.Put(o.staging.Bucket, stagingKey, bulk); err != nil {
		return nil, fmt.Errorf("writing staging object: %w", err)
	}

	stagingLoc := objectstore.Location{Bucket: o.staging.Bucket, Key: stagingKey}
	slog.Info("Wrote bulk import payload", "staging", stagingLoc.URI(), "records", len(records))

	return &InvocationResult{OpenSearchBulkImport: stagingLoc.URI()}, nil
}
