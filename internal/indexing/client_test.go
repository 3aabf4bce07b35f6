package indexing

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("HTTPIndex", func() {
	var (
		server *ghttp.Server
		index  *HTTPIndex
		err    error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		index, err = NewHTTPIndex(server.URL(), "admin", "secret")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("NewHTTPIndex", func() {
		It("should require an endpoint", func() {
			_, err := NewHTTPIndex("", "", "")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("EnsureIndex", func() {
		When("the index already exists", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest("HEAD", "/invoices"),
					ghttp.VerifyBasicAuth("admin", "secret"),
					ghttp.RespondWith(http.StatusOK, nil),
				))
			})

			It("should not attempt a create", func() {
				Expect(index.EnsureIndex("invoices")).To(Succeed())
				Expect(server.ReceivedRequests()).To(HaveLen(1))
			})
		})

		When("the index is missing", func() {
			BeforeEach(func() {
				server.AppendHandlers(
					ghttp.CombineHandlers(
						ghttp.VerifyRequest("HEAD", "/invoices"),
						ghttp.RespondWith(http.StatusNotFound, nil),
					),
					ghttp.CombineHandlers(
						ghttp.VerifyRequest("PUT", "/invoices"),
						ghttp.VerifyJSON(`{"settings": {"index": {"number_of_shards": 4}}}`),
						ghttp.RespondWith(http.StatusOK, `{"acknowledged": true}`),
					),
				)
			})

			It("should create it with the configured shard count", func() {
				Expect(index.EnsureIndex("invoices")).To(Succeed())
				Expect(server.ReceivedRequests()).To(HaveLen(2))
			})
		})

		When("the existence check fails", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest("HEAD", "/invoices"),
					ghttp.RespondWith(http.StatusInternalServerError, nil),
				))
			})

			It("should return an error", func() {
				Expect(index.EnsureIndex("invoices")).NotTo(Succeed())
			})
		})
	})

	Describe("IndexDocument", func() {
		When("the write succeeds", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest("PUT", "/invoices/_doc/march_5", "refresh=true"),
					ghttp.VerifyBasicAuth("admin", "secret"),
					ghttp.VerifyJSON(`{"content": "page five"}`),
					ghttp.RespondWith(http.StatusCreated, `{"result": "created"}`),
				))
			})

			It("should put the document body", func() {
				err := index.IndexDocument("invoices", "march_5", map[string]string{"content": "page five"})
				Expect(err).NotTo(HaveOccurred())
			})
		})

		When("the index rejects the write", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest("PUT", "/invoices/_doc/march_5", "refresh=true"),
					ghttp.RespondWith(http.StatusBadRequest, `{"error": "mapper_parsing_exception"}`),
				))
			})

			It("should surface the status and body", func() {
				err := index.IndexDocument("invoices", "march_5", map[string]string{"content": "page five"})
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("status 400"))
			})
		})
	})
})
