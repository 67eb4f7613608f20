package eventstream_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/shelf/pkg/eventstream"
)

func TestEventstream(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Eventstream Suite")
}

var _ = Describe("Events", func() {
	It("stamps ingestion events with envelope metadata", func() {
		event := eventstream.NewDocumentIngestedEvent("manual-embeddings", "completed", 23, 1500*time.Millisecond)

		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(event.EventType).To(Equal(eventstream.EventTypeDocumentIngested))
		Expect(event.EventID).NotTo(BeEmpty())
		Expect(event.EmittedAt).To(BeTemporally("~", time.Now(), time.Minute))
		Expect(event.IndexName).To(Equal("manual-embeddings"))
		Expect(event.Status).To(Equal("completed"))
		Expect(event.ChunkCount).To(Equal(23))
		Expect(event.DurationMs).To(Equal(int64(1500)))
	})

	It("stamps query events with envelope metadata", func() {
		event := eventstream.NewQueryAnsweredEvent("manual-embeddings", 42, 21000, 22, time.Second)

		Expect(event.EventType).To(Equal(eventstream.EventTypeQueryAnswered))
		Expect(event.EventID).NotTo(BeEmpty())
		Expect(event.QueryChars).To(Equal(42))
		Expect(event.ContextChars).To(Equal(21000))
		Expect(event.TopK).To(Equal(22))
	})

	It("gives every event a distinct id", func() {
		first := eventstream.NewDocumentIngestedEvent("a", "completed", 1, 0)
		second := eventstream.NewDocumentIngestedEvent("a", "completed", 1, 0)
		Expect(first.EventID).NotTo(Equal(second.EventID))
	})
})
