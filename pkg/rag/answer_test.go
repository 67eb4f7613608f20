package rag_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/shelf/pkg/rag"
	testutils "github.com/papercomputeco/shelf/pkg/utils/test"

	"github.com/papercomputeco/shelf/pkg/logger"
)

var _ = Describe("Answerer", func() {
	var (
		generator *testutils.MockGenerator
		answerer  *rag.Answerer
		ctx       context.Context
	)

	BeforeEach(func() {
		generator = testutils.NewMockGenerator("draft answer", "refined answer")
		answerer = rag.NewAnswerer(generator, logger.Nop())
		ctx = context.Background()
	})

	It("returns the refined answer from the second stage", func() {
		answer, err := answerer.Answer(ctx, "how do I reset?", "hold the button for 5 seconds")
		Expect(err).NotTo(HaveOccurred())
		Expect(answer).To(Equal("refined answer"))
		Expect(generator.Calls).To(HaveLen(2))
	})

	It("feeds the context and question only to the first stage", func() {
		_, err := answerer.Answer(ctx, "how do I reset?", "hold the button for 5 seconds")
		Expect(err).NotTo(HaveOccurred())

		first := generator.Calls[0]
		Expect(first.Prompt).To(ContainSubstring("hold the button for 5 seconds"))
		Expect(first.Prompt).To(ContainSubstring("how do I reset?"))
	})

	It("never leaks the context or question into the second stage", func() {
		_, err := answerer.Answer(ctx, "how do I reset?", "hold the button for 5 seconds")
		Expect(err).NotTo(HaveOccurred())

		second := generator.Calls[1]
		Expect(second.Prompt).To(Equal("Answer: draft answer"))
		Expect(second.Prompt).NotTo(ContainSubstring("how do I reset?"))
		Expect(second.Prompt).NotTo(ContainSubstring("hold the button"))
		Expect(second.System).NotTo(ContainSubstring("context"))
	})

	It("uses distinct system prompts per stage", func() {
		_, err := answerer.Answer(ctx, "how do I reset?", "some context")
		Expect(err).NotTo(HaveOccurred())

		Expect(generator.Calls[0].System).NotTo(Equal(generator.Calls[1].System))
	})

	It("propagates generation failures", func() {
		generator.Err = context.DeadlineExceeded

		_, err := answerer.Answer(ctx, "how do I reset?", "some context")
		Expect(err).To(HaveOccurred())
		Expect(generator.Calls).To(HaveLen(1))
	})
})
