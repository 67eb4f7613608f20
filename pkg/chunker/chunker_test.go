package chunker_test

import (
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/shelf/pkg/chunker"
)

func TestChunker(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Chunker Suite")
}

var _ = Describe("Split", func() {
	It("returns no chunks for empty input", func() {
		chunks, err := chunker.Split("", 1000, 200)
		Expect(err).NotTo(HaveOccurred())
		Expect(chunks).To(BeEmpty())
	})

	It("returns a single chunk for input shorter than the window", func() {
		chunks, err := chunker.Split("hello world", 1000, 200)
		Expect(err).NotTo(HaveOccurred())
		Expect(chunks).To(HaveLen(1))
		Expect(chunks[0].Index).To(Equal(0))
		Expect(chunks[0].Text).To(Equal("hello world"))
	})

	It("produces ceil(len/step) chunks with the configured overlap", func() {
		text := strings.Repeat("a", 2500)
		chunks, err := chunker.Split(text, 1000, 200)
		Expect(err).NotTo(HaveOccurred())

		// step = 800, so starts at 0, 800, 1600, 2400 -> 4 chunks.
		Expect(chunks).To(HaveLen(4))
		Expect(chunks[0].Text).To(HaveLen(1000))
		Expect(chunks[1].Text).To(HaveLen(1000))
		Expect(chunks[2].Text).To(HaveLen(900))
		Expect(chunks[3].Text).To(HaveLen(100))
	})

	It("captures each window at the expected offsets", func() {
		text := "abcdefghijklmnopqrstuvwxyz"
		chunks, err := chunker.Split(text, 10, 4)
		Expect(err).NotTo(HaveOccurred())

		step := 10 - 4
		for _, c := range chunks {
			start := c.Index * step
			end := start + 10
			if end > len(text) {
				end = len(text)
			}
			Expect(c.Text).To(Equal(text[start:end]))
		}
	})

	It("shares overlap bytes between consecutive full chunks", func() {
		text := strings.Repeat("abcdefghij", 50)
		chunks, err := chunker.Split(text, 100, 30)
		Expect(err).NotTo(HaveOccurred())

		for i := 1; i < len(chunks); i++ {
			prev := chunks[i-1].Text
			if len(prev) < 100 {
				continue
			}
			Expect(strings.HasPrefix(chunks[i].Text, prev[len(prev)-30:])).To(BeTrue())
		}
	})

	It("is deterministic", func() {
		text := strings.Repeat("the quick brown fox ", 200)
		first, err := chunker.Split(text, 1000, 200)
		Expect(err).NotTo(HaveOccurred())
		second, err := chunker.Split(text, 1000, 200)
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal(first))
	})

	It("reconstructs the original text when overlap is stripped", func() {
		text := strings.Repeat("0123456789", 123)
		chunks, err := chunker.Split(text, 100, 40)
		Expect(err).NotTo(HaveOccurred())

		var b strings.Builder
		step := 100 - 40
		for _, c := range chunks {
			start := c.Index * step
			// Only append the bytes this chunk contributes beyond what
			// previous chunks already covered.
			covered := b.Len()
			if start+len(c.Text) > covered {
				b.WriteString(c.Text[covered-start:])
			}
		}
		Expect(b.String()).To(Equal(text))
	})

	DescribeTable("rejects windows that never advance",
		func(size, overlap int) {
			_, err := chunker.Split("some text", size, overlap)
			Expect(err).To(MatchError(chunker.ErrWindowSize))
		},
		Entry("size equal to overlap", 200, 200),
		Entry("size below overlap", 100, 200),
		Entry("zero size", 0, 0),
		Entry("negative overlap", 100, -1),
	)
})
