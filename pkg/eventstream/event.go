// Package eventstream defines transport-neutral pipeline events and the
// Publisher interface backends implement.
package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeDocumentIngested is emitted after an ingestion run finishes.
	EventTypeDocumentIngested = "shelf.document.ingested"

	// EventTypeQueryAnswered is emitted after a chat query produces an answer.
	EventTypeQueryAnswered = "shelf.query.answered"
)

// DocumentIngestedEvent is emitted when a document has been chunked,
// embedded and stored (or found already present).
type DocumentIngestedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`

	IndexName  string `json:"index_name"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	DurationMs int64  `json:"duration_ms"`
}

// QueryAnsweredEvent is emitted when a chat query completes both
// generation stages.
type QueryAnsweredEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`

	IndexName    string `json:"index_name"`
	QueryChars   int    `json:"query_chars"`
	ContextChars int    `json:"context_chars"`
	TopK         int    `json:"top_k"`
	DurationMs   int64  `json:"duration_ms"`
}

// NewDocumentIngestedEvent stamps a fresh ingestion event envelope.
func NewDocumentIngestedEvent(indexName, status string, chunkCount int, duration time.Duration) *DocumentIngestedEvent {
	return &DocumentIngestedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeDocumentIngested,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		IndexName:     indexName,
		Status:        status,
		ChunkCount:    chunkCount,
		DurationMs:    duration.Milliseconds(),
	}
}

// NewQueryAnsweredEvent stamps a fresh query event envelope.
func NewQueryAnsweredEvent(indexName string, queryChars, contextChars, topK int, duration time.Duration) *QueryAnsweredEvent {
	return &QueryAnsweredEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeQueryAnswered,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		IndexName:     indexName,
		QueryChars:    queryChars,
		ContextChars:  contextChars,
		TopK:          topK,
		DurationMs:    duration.Milliseconds(),
	}
}
