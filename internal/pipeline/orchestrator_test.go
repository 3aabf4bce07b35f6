package pipeline

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/verifiq/invoice-verifier/internal/extraction"
	"github.com/verifiq/invoice-verifier/internal/indexing"
	"github.com/verifiq/invoice-verifier/internal/routing"
	"github.com/verifiq/invoice-verifier/internal/rules"
)

// mockStore is a mock implementation of objectstore.Store
type mockStore struct {
	objects map[string][]byte
	getErr  error
	putErr  error
	copyErr error
}

func newMockStore() *mockStore {
	return &mockStore{objects: make(map[string][]byte)}
}

func (m *mockStore) path(bucket, key string) string {
	return bucket + "/" + key
}

func (m *mockStore) Get(bucket, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.objects[m.path(bucket, key)]
	if !ok {
		return nil, errors.New("object not found: " + m.path(bucket, key))
	}
	return data, nil
}

func (m *mockStore) GetRange(bucket, key string, offset, length int64) ([]byte, error) {
	return m.Get(bucket, key)
}

func (m *mockStore) Put(bucket, key string, data []byte) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[m.path(bucket, key)] = data
	return nil
}

func (m *mockStore) Copy(srcBucket, srcKey, dstBucket, dstKey string) error {
	if m.copyErr != nil {
		return m.copyErr
	}
	data, ok := m.objects[m.path(srcBucket, srcKey)]
	if !ok {
		return errors.New("source object not found")
	}
	m.objects[m.path(dstBucket, dstKey)] = data
	return nil
}

// mockIDGenerator is a mock implementation of IDGenerator
type mockIDGenerator struct {
	id string
}

func (m *mockIDGenerator) Generate() string {
	return m.id
}

// mockTimeSource is a mock implementation of indexing.TimeSource
type mockTimeSource struct {
	now time.Time
}

func (m *mockTimeSource) Now() time.Time {
	return m.now
}

const analyzedPayload = `{
  "ExpenseDocuments": [
    {
      "SummaryFields": [
        {"Type": {"Text": "TOTAL"}, "ValueDetection": {"Text": "100.50"}},
        {"Type": {"Text": "PO_NUMBER"}, "ValueDetection": {"Text": "PO-7781"}}
      ],
      "LineItemGroups": [{"LineItems": [{"LineItemExpenseFields": []}]}],
      "Blocks": [{"BlockType": "LINE", "Text": "page five"}]
    },
    {
      "SummaryFields": [],
      "LineItemGroups": [],
      "Blocks": [{"BlockType": "LINE", "Text": "page six"}]
    },
    {
      "SummaryFields": [],
      "LineItemGroups": [],
      "Blocks": [{"BlockType": "LINE", "Text": "page seven"}]
    }
  ]
}`

var _ = Describe("Orchestrator", func() {
	var (
		store        *mockStore
		ruleSet      *rules.Set
		router       *routing.Router
		builder      *indexing.Builder
		orchestrator *Orchestrator
		event        Event
		result       *InvocationResult
		err          error
	)

	BeforeEach(func() {
		store = newMockStore()
		Expect(store.Put("uploads", "invoices/march.pdf", []byte("original pdf"))).To(Succeed())
		Expect(store.Put("analyzed", "output/5-7.json", []byte(analyzedPayload))).To(Succeed())

		var setErr error
		ruleSet, setErr = rules.NewSet([]rules.Rule{
			{RuleID: "R1", Field: "TOTAL", Type: "regex", Check: `^[0-9]+\.[0-9]{2}$`, ErrorTxt: "bad total"},
		}, rules.NewRegistry())
		Expect(setErr).NotTo(HaveOccurred())

		router = routing.NewRouter(store,
			routing.Destination{Bucket: "uploads", KeyPrefix: "approved/"},
			routing.Destination{Bucket: "uploads", KeyPrefix: "declined/"},
		)
		builder = indexing.NewBuilderWithTimeSource(&mockTimeSource{
			now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		})

		event = Event{
			Manifest:       &Manifest{S3Path: "s3://batches/prefix/5-7.pdf"},
			OriginFileURI:  "s3://uploads/invoices/march.pdf",
			AnalyzerResult: &AnalyzerResult{OutputJSONPath: "s3://analyzed/output/5-7.json"},
		}
	})

	JustBeforeEach(func() {
		orchestrator = NewOrchestratorWithDeps(store, ruleSet, router, builder,
			StagingConfig{Bucket: "staging", Prefix: "opensearch"},
			"invoices",
			&mockIDGenerator{id: "token-123"},
		)
		result, err = orchestrator.ProcessInvocation(event)
	})

	When("the invocation succeeds", func() {
		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the staging URI with the token and base name", func() {
			Expect(result.OpenSearchBulkImport).To(Equal("s3://staging/opensearch/token-123/5-7.json"))
		})

		It("should write the bulk payload to the staging object", func() {
			data, getErr := store.Get("staging", "opensearch/token-123/5-7.json")
			Expect(getErr).NotTo(HaveOccurred())
			Expect(data).NotTo(BeEmpty())
		})

		It("should number pages from the parsed start page", func() {
			data, _ := store.Get("staging", "opensearch/token-123/5-7.json")
			lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
			Expect(lines).To(HaveLen(6))

			var pages []int
			var ids []string
			for i := 1; i < len(lines); i += 2 {
				var doc indexing.PageDocument
				Expect(json.Unmarshal([]byte(lines[i]), &doc)).To(Succeed())
				pages = append(pages, doc.Page)
				ids = append(ids, doc.ID())
			}
			Expect(pages).To(Equal([]int{5, 6, 7}))
			Expect(ids).To(Equal([]string{"march_5", "march_6", "march_7"}))
		})

		It("should embed the verdict and page text in each record", func() {
			data, _ := store.Get("staging", "opensearch/token-123/5-7.json")
			lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")

			var first indexing.PageDocument
			Expect(json.Unmarshal([]byte(lines[1]), &first)).To(Succeed())
			Expect(first.Content).To(Equal("page five"))
			Expect(first.VerificationStatus).To(BeTrue())
			Expect(first.OriginFileName).To(Equal("march"))
			Expect(first.URI).To(Equal("s3://uploads/invoices/march.pdf"))
			Expect(first.S3Object).To(Equal("s3://batches/prefix/5-7.pdf"))
			Expect(first.InvoiceData).To(HaveKeyWithValue("TOTAL", "100.50"))
		})

		It("should route the origin document to the approved prefix", func() {
			_, getErr := store.Get("uploads", "approved/march.pdf")
			Expect(getErr).NotTo(HaveOccurred())
		})
	})

	When("the rules fail", func() {
		BeforeEach(func() {
			var setErr error
			ruleSet, setErr = rules.NewSet([]rules.Rule{
				{RuleID: "R1", Field: "SUBTOTAL", Type: "regex", Check: ".+", ErrorTxt: "bad subtotal"},
			}, rules.NewRegistry())
			Expect(setErr).NotTo(HaveOccurred())
		})

		It("should route the origin document to the declined prefix", func() {
			Expect(err).NotTo(HaveOccurred())
			_, getErr := store.Get("uploads", "declined/march.pdf")
			Expect(getErr).NotTo(HaveOccurred())
		})

		It("should record the failure in every page record", func() {
			data, _ := store.Get("staging", "opensearch/token-123/5-7.json")
			lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")

			var doc indexing.PageDocument
			Expect(json.Unmarshal([]byte(lines[1]), &doc)).To(Succeed())
			Expect(doc.VerificationStatus).To(BeFalse())
			Expect(doc.FailingRules).To(Equal([]string{
				"SUBTOTAL is missing in the input document. It is required for processing",
			}))
		})
	})

	When("the batch name does not encode a page range", func() {
		BeforeEach(func() {
			event.Manifest.S3Path = "s3://batches/invoice.pdf"
		})

		It("should return a MalformedPageRangeError", func() {
			var rangeErr *MalformedPageRangeError
			Expect(errors.As(err, &rangeErr)).To(BeTrue())
		})
	})

	When("the batch name is a single page number without a range", func() {
		BeforeEach(func() {
			event.Manifest.S3Path = "s3://batches/5.pdf"
		})

		It("should return a MalformedPageRangeError", func() {
			var rangeErr *MalformedPageRangeError
			Expect(errors.As(err, &rangeErr)).To(BeTrue())
			Expect(rangeErr.Name).To(Equal("5.pdf"))
		})
	})

	When("the analyzed payload is malformed", func() {
		BeforeEach(func() {
			Expect(store.Put("analyzed", "output/5-7.json", []byte(`{"ExpenseDocuments": []}`))).To(Succeed())
		})

		It("should return a PayloadError", func() {
			var payloadErr *extraction.PayloadError
			Expect(errors.As(err, &payloadErr)).To(BeTrue())
		})
	})

	When("a page's routing copy fails", func() {
		BeforeEach(func() {
			store.copyErr = errors.New("copy refused")
		})

		It("should abort the invocation", func() {
			Expect(err).To(HaveOccurred())
		})

		It("should not write a partial staging object", func() {
			_, getErr := store.Get("staging", "opensearch/token-123/5-7.json")
			Expect(getErr).To(HaveOccurred())
		})
	})

	When("the event carries no manifest", func() {
		BeforeEach(func() {
			event = Event{OriginFileURI: "s3://uploads/invoices/march.pdf"}
		})

		It("should return an error", func() {
			Expect(err).To(HaveOccurred())
		})
	})

	When("the staging write fails", func() {
		BeforeEach(func() {
			store.putErr = errors.New("staging unavailable")
		})

		It("should propagate the error", func() {
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, store.putErr)).To(BeTrue())
		})
	})
})
