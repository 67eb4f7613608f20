package rag_test

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/shelf/pkg/logger"
	"github.com/papercomputeco/shelf/pkg/rag"
	testutils "github.com/papercomputeco/shelf/pkg/utils/test"
	"github.com/papercomputeco/shelf/pkg/vector"
)

var _ = Describe("Retriever", func() {
	var (
		embedder *testutils.MockEmbedder
		provider *testutils.MockProvider
		cache    *vector.Cache
		ctx      context.Context
	)

	BeforeEach(func() {
		embedder = testutils.NewMockEmbedder()
		provider = testutils.NewMockProvider()
		cache = vector.NewCache(provider, logger.Nop())
		ctx = context.Background()
	})

	newRetriever := func(cfg rag.RetrieverConfig) *rag.Retriever {
		return rag.NewRetriever(embedder, cache, cfg, logger.Nop())
	}

	seedMatches := func(name string, texts ...string) {
		index, err := provider.Ensure(ctx, name)
		Expect(err).NotTo(HaveOccurred())

		mock := index.(*testutils.MockIndex)
		for _, text := range texts {
			mock.Matches = append(mock.Matches, vector.Match{Score: 0.9, Text: text})
		}
	}

	DescribeTable("sizes topK to the context budget",
		func(maxContextChars, chunkSize, expected int) {
			retriever := newRetriever(rag.RetrieverConfig{
				MaxContextChars: maxContextChars,
				ChunkSizeHint:   chunkSize,
			})
			Expect(retriever.TopK()).To(Equal(expected))
		},
		Entry("default-sized budget", 22000, 1000, 22),
		Entry("budget smaller than a chunk", 500, 1000, 1),
		Entry("uneven division rounds down", 2500, 1000, 2),
		Entry("exact division", 3000, 1000, 3),
	)

	It("rejects blank queries before any lookup", func() {
		retriever := newRetriever(rag.RetrieverConfig{})

		_, err := retriever.Retrieve(ctx, "manual-embeddings", "   ")
		Expect(err).To(MatchError(rag.ErrEmptyQuery))
		Expect(embedder.Calls).To(BeEmpty())
	})

	It("searches with the adaptive topK", func() {
		seedMatches("manual-embeddings", "alpha")
		retriever := newRetriever(rag.RetrieverConfig{MaxContextChars: 22000, ChunkSizeHint: 1000})

		_, err := retriever.Retrieve(ctx, "manual-embeddings", "how do I reset?")
		Expect(err).NotTo(HaveOccurred())

		index := provider.Index("manual-embeddings")
		Expect(index.SearchTopKs).To(Equal([]uint64{22}))
	})

	It("joins match texts with blank lines", func() {
		seedMatches("manual-embeddings", "alpha", "bravo", "charlie")
		retriever := newRetriever(rag.RetrieverConfig{})

		contextText, err := retriever.Retrieve(ctx, "manual-embeddings", "how do I reset?")
		Expect(err).NotTo(HaveOccurred())
		Expect(contextText).To(Equal("alpha\n\nbravo\n\ncharlie"))
	})

	It("drops matches without text payloads", func() {
		index, err := provider.Ensure(ctx, "manual-embeddings")
		Expect(err).NotTo(HaveOccurred())
		mock := index.(*testutils.MockIndex)
		mock.Matches = []vector.Match{
			{Score: 0.9, Text: "alpha"},
			{Score: 0.8, Text: ""},
			{Score: 0.7, Text: "charlie"},
		}

		retriever := newRetriever(rag.RetrieverConfig{})

		contextText, err := retriever.Retrieve(ctx, "manual-embeddings", "how do I reset?")
		Expect(err).NotTo(HaveOccurred())
		Expect(contextText).To(Equal("alpha\n\ncharlie"))
	})

	It("hard-caps the assembled context at the budget", func() {
		seedMatches("manual-embeddings", strings.Repeat("x", 400), strings.Repeat("y", 400))
		retriever := newRetriever(rag.RetrieverConfig{MaxContextChars: 500, ChunkSizeHint: 1000})

		contextText, err := retriever.Retrieve(ctx, "manual-embeddings", "how do I reset?")
		Expect(err).NotTo(HaveOccurred())
		Expect(contextText).To(HaveLen(500))
	})

	It("returns an empty context when the index is empty", func() {
		seedMatches("manual-embeddings")
		retriever := newRetriever(rag.RetrieverConfig{})

		contextText, err := retriever.Retrieve(ctx, "manual-embeddings", "how do I reset?")
		Expect(err).NotTo(HaveOccurred())
		Expect(contextText).To(BeEmpty())
	})

	Describe("Matches", func() {
		It("returns the requested number of related texts", func() {
			seedMatches("manual-embeddings", "alpha", "bravo", "charlie")
			retriever := newRetriever(rag.RetrieverConfig{})

			texts, err := retriever.Matches(ctx, "manual-embeddings", "how do I reset?", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(texts).To(Equal([]string{"alpha", "bravo"}))
		})

		It("falls back to the default limit for non-positive topK", func() {
			seedMatches("manual-embeddings", "alpha")
			retriever := newRetriever(rag.RetrieverConfig{})

			_, err := retriever.Matches(ctx, "manual-embeddings", "how do I reset?", 0)
			Expect(err).NotTo(HaveOccurred())

			index := provider.Index("manual-embeddings")
			Expect(index.SearchTopKs).To(Equal([]uint64{uint64(rag.DefaultMatchLimit)}))
		})

		It("drops matches without text payloads", func() {
			index, err := provider.Ensure(ctx, "manual-embeddings")
			Expect(err).NotTo(HaveOccurred())
			mock := index.(*testutils.MockIndex)
			mock.Matches = []vector.Match{
				{Score: 0.9, Text: "alpha"},
				{Score: 0.8, Text: ""},
				{Score: 0.7, Text: "charlie"},
			}

			retriever := newRetriever(rag.RetrieverConfig{})

			texts, err := retriever.Matches(ctx, "manual-embeddings", "how do I reset?", 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(texts).To(Equal([]string{"alpha", "charlie"}))
		})

		It("rejects blank queries", func() {
			retriever := newRetriever(rag.RetrieverConfig{})

			_, err := retriever.Matches(ctx, "manual-embeddings", "\t\n", 5)
			Expect(err).To(MatchError(rag.ErrEmptyQuery))
		})
	})
})
