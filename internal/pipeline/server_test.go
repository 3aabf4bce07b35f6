package pipeline

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/verifiq/invoice-verifier/internal/indexing"
	"github.com/verifiq/invoice-verifier/internal/routing"
	"github.com/verifiq/invoice-verifier/internal/rules"
)

var _ = Describe("Server", func() {
	var (
		store  *mockStore
		index  *mockIndex
		server *Server
		auth   BasicAuth
	)

	BeforeEach(func() {
		store = newMockStore()
		index = newMockIndex()
		auth = BasicAuth{}

		Expect(store.Put("uploads", "invoices/march.pdf", []byte("original pdf"))).To(Succeed())
		Expect(store.Put("analyzed", "output/5-7.json", []byte(analyzedPayload))).To(Succeed())

		ruleSet, err := rules.NewSet([]rules.Rule{
			{RuleID: "R1", Field: "TOTAL", Type: "regex", Check: `^[0-9]+\.[0-9]{2}$`, ErrorTxt: "bad total"},
		}, rules.NewRegistry())
		Expect(err).NotTo(HaveOccurred())

		builder := indexing.NewBuilderWithTimeSource(&mockTimeSource{
			now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		})

		manifestRouter := routing.NewRouter(store,
			routing.Destination{Bucket: "uploads", KeyPrefix: "approved/"},
			routing.Destination{Bucket: "uploads", KeyPrefix: "declined/"},
		)
		orchestrator := NewOrchestratorWithDeps(store, ruleSet, manifestRouter, builder,
			StagingConfig{Bucket: "staging", Prefix: "opensearch"},
			"invoices",
			&mockIDGenerator{id: "token-123"},
		)

		verifyRouter := routing.NewRouter(store,
			routing.Destination{Bucket: "approved"},
			routing.Destination{Bucket: "denied"},
		)
		verifier := NewVerifier(store, ruleSet, verifyRouter, nil, index, "invoices",
			&mockTimeSource{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)})

		server = NewServer(orchestrator, verifier, auth)
	})

	JustBeforeEach(func() {
		server.basicAuth = auth
	})

	doRequest := func(method, path string, body any, user, pass string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		if user != "" || pass != "" {
			req.SetBasicAuth(user, pass)
		}
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		return rec
	}

	Describe("POST /api/invocations", func() {
		var event Event

		BeforeEach(func() {
			event = Event{
				Manifest:       &Manifest{S3Path: "s3://batches/5-7.pdf"},
				OriginFileURI:  "s3://uploads/invoices/march.pdf",
				AnalyzerResult: &AnalyzerResult{OutputJSONPath: "s3://analyzed/output/5-7.json"},
			}
		})

		It("should return the staging location", func() {
			rec := doRequest("POST", "/api/invocations", event, "", "")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var result InvocationResult
			Expect(json.Unmarshal(rec.Body.Bytes(), &result)).To(Succeed())
			Expect(result.OpenSearchBulkImport).To(Equal("s3://staging/opensearch/token-123/5-7.json"))
		})

		It("should reject an invalid body", func() {
			req := httptest.NewRequest("POST", "/api/invocations", bytes.NewBufferString("not json"))
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should return 400 for a malformed page range", func() {
			event.Manifest.S3Path = "s3://batches/invoice.pdf"
			rec := doRequest("POST", "/api/invocations", event, "", "")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /api/expenses/verify", func() {
		It("should return the annotated event", func() {
			rec := doRequest("POST", "/api/expenses/verify", VerifyRequest{
				Bucket:      "uploads",
				Key:         "invoices/march.pdf",
				InvoiceData: map[string]string{"TOTAL": "100.50"},
			}, "", "")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var result VerifyResult
			Expect(json.Unmarshal(rec.Body.Bytes(), &result)).To(Succeed())
			Expect(result.VerificationStatus).To(BeTrue())
			Expect(result.DocLocation).To(Equal("approved/invoices/march.pdf"))
		})

		It("should return 500 when verification cannot run", func() {
			rec := doRequest("POST", "/api/expenses/verify", VerifyRequest{
				Bucket: "uploads",
				Key:    "invoices/march.pdf",
				// no invoice data and no analyzer configured
			}, "", "")
			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("GET /healthz", func() {
		It("should report ok", func() {
			rec := doRequest("GET", "/healthz", nil, "", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("ok"))
		})
	})

	Describe("authentication", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "ops", Password: "secret"}
		})

		It("should reject requests without credentials", func() {
			rec := doRequest("POST", "/api/expenses/verify", VerifyRequest{}, "", "")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("should reject requests with wrong credentials", func() {
			rec := doRequest("POST", "/api/expenses/verify", VerifyRequest{}, "ops", "wrong")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("should accept requests with valid credentials", func() {
			rec := doRequest("POST", "/api/expenses/verify", VerifyRequest{
				Bucket:      "uploads",
				Key:         "invoices/march.pdf",
				InvoiceData: map[string]string{"TOTAL": "100.50"},
			}, "ops", "secret")
			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		It("should leave the health endpoint open", func() {
			rec := doRequest("GET", "/healthz", nil, "", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
		})
	})
})
