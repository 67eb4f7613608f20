package hf_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/shelf/pkg/embeddings"
	"github.com/papercomputeco/shelf/pkg/embeddings/hf"
)

func TestHF(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "HF Embedder Suite")
}

var _ = Describe("Embedder", func() {
	var (
		requests atomic.Int32
		server   *httptest.Server
		embedder *hf.Embedder
	)

	newServer := func(handler http.HandlerFunc) {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			handler(w, r)
		}))
		DeferCleanup(server.Close)

		var err error
		embedder, err = hf.NewEmbedder(hf.Config{
			BaseURL:    server.URL,
			Dimensions: 3,
		})
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		requests.Store(0)
	})

	It("embeds text and returns the provider's vector", func() {
		newServer(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/embed"))

			var body map[string]string
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			Expect(body["inputs"]).To(Equal("hello"))

			json.NewEncoder(w).Encode(map[string]any{
				"embeddings": [][]float32{{0.1, 0.2, 0.3}},
			})
		})

		vec, err := embedder.Embed(context.Background(), "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(Equal([]float32{0.1, 0.2, 0.3}))
	})

	It("sends the API key as a bearer token when configured", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.Header.Get("Authorization")).To(Equal("Bearer sekrit"))
			json.NewEncoder(w).Encode(map[string]any{
				"embeddings": [][]float32{{1, 2, 3}},
			})
		}))
		DeferCleanup(server.Close)

		e, err := hf.NewEmbedder(hf.Config{BaseURL: server.URL, APIKey: "sekrit", Dimensions: 3})
		Expect(err).NotTo(HaveOccurred())

		_, err = e.Embed(context.Background(), "hello")
		Expect(err).NotTo(HaveOccurred())
	})

	DescribeTable("rejects blank input without contacting the provider",
		func(input string) {
			newServer(func(w http.ResponseWriter, r *http.Request) {
				Fail("provider should not be contacted")
			})

			_, err := embedder.Embed(context.Background(), input)
			Expect(err).To(MatchError(embeddings.ErrEmptyInput))
			Expect(requests.Load()).To(BeZero())
		},
		Entry("empty string", ""),
		Entry("spaces only", "   "),
		Entry("tabs and newlines", "\t\n "),
	)

	It("carries the upstream status on provider failure", func() {
		newServer(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		})

		_, err := embedder.Embed(context.Background(), "hello")
		Expect(err).To(MatchError(embeddings.ErrProvider))

		var provErr *embeddings.ProviderError
		Expect(errors.As(err, &provErr)).To(BeTrue())
		Expect(provErr.StatusCode).To(Equal(http.StatusTooManyRequests))
		Expect(provErr.Detail).To(ContainSubstring("rate limited"))
	})

	It("rejects vectors with unexpected dimensionality", func() {
		newServer(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"embeddings": [][]float32{{0.1, 0.2}},
			})
		})

		_, err := embedder.Embed(context.Background(), "hello")
		Expect(err).To(MatchError(embeddings.ErrProvider))
	})

	It("fails when the provider returns no embeddings", func() {
		newServer(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"embeddings": [][]float32{},
			})
		})

		_, err := embedder.Embed(context.Background(), "hello")
		Expect(err).To(MatchError(embeddings.ErrProvider))
	})
})
