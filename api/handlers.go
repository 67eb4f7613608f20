package api

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/shelf/pkg/embeddings"
	"github.com/papercomputeco/shelf/pkg/eventstream"
	"github.com/papercomputeco/shelf/pkg/rag"
)

// ErrorResponse is the JSON error envelope for all failed requests.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// QueryRequest asks for the texts most related to a query.
type QueryRequest struct {
	Query     string `json:"query"`
	IndexName string `json:"indexName,omitempty"`
	TopK      int    `json:"top_k,omitempty"`
}

// QueryResponse carries the related texts, most similar first.
type QueryResponse struct {
	RelatedTexts []string `json:"related_texts"`
}

// ChatRequest asks for a generated answer grounded in the indexed document.
type ChatRequest struct {
	Query     string `json:"query"`
	IndexName string `json:"indexName,omitempty"`
}

// ChatResponse carries the final refined answer.
type ChatResponse struct {
	Response string `json:"response"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleIngest runs the ingestion pipeline against the configured document.
// The route name is historical; the source is plain text.
func (s *Server) handleIngest(c *fiber.Ctx) error {
	indexName := c.Query("indexName", s.config.IndexName)

	result, err := s.pipeline.Ingest(c.Context(), indexName)
	if err != nil {
		s.logger.Error("ingestion failed",
			"index", indexName,
			"error", err,
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "ingestion failed",
			Details: err.Error(),
		})
	}

	return c.JSON(result)
}

// handleQuery returns the texts most similar to the query.
func (s *Server) handleQuery(c *fiber.Ctx) error {
	var req QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	if strings.TrimSpace(req.Query) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "query must not be empty"})
	}

	indexName := req.IndexName
	if indexName == "" {
		indexName = s.config.IndexName
	}

	texts, err := s.retriever.Matches(c.Context(), indexName, req.Query, req.TopK)
	if err != nil {
		return s.renderError(c, "query failed", err)
	}

	return c.JSON(QueryResponse{RelatedTexts: texts})
}

// handleChat retrieves context for the query and generates a two-stage
// answer.
func (s *Server) handleChat(c *fiber.Ctx) error {
	started := time.Now()

	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	if strings.TrimSpace(req.Query) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "query must not be empty"})
	}

	indexName := req.IndexName
	if indexName == "" {
		indexName = s.config.IndexName
	}

	contextText, err := s.retriever.Retrieve(c.Context(), indexName, req.Query)
	if err != nil {
		return s.renderError(c, "retrieval failed", err)
	}

	answer, err := s.answerer.Answer(c.Context(), req.Query, contextText)
	if err != nil {
		return s.renderError(c, "generation failed", err)
	}

	event := eventstream.NewQueryAnsweredEvent(
		indexName,
		len(req.Query),
		len(contextText),
		s.retriever.TopK(),
		time.Since(started),
	)
	if err := s.events.PublishQuery(c.Context(), event); err != nil {
		s.logger.Warn("failed to publish query event",
			"index", indexName,
			"error", err,
		)
	}

	return c.JSON(ChatResponse{Response: answer})
}

// handleCacheStats reports which indexes are cached.
func (s *Server) handleCacheStats(c *fiber.Ctx) error {
	return c.JSON(s.cache.Stats())
}

// handleCacheInvalidate drops a single cached index handle.
func (s *Server) handleCacheInvalidate(c *fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "index name required"})
	}

	invalidated := s.cache.Invalidate(name)

	return c.JSON(fiber.Map{
		"index":       name,
		"invalidated": invalidated,
	})
}

// handleCacheClear empties the index cache.
func (s *Server) handleCacheClear(c *fiber.Ctx) error {
	count := s.cache.InvalidateAll()

	return c.JSON(fiber.Map{
		"cleared": count,
	})
}

// renderError maps domain errors onto HTTP statuses: caller mistakes are
// 400s, everything else is a 500 with the cause attached.
func (s *Server) renderError(c *fiber.Ctx, message string, err error) error {
	if errors.Is(err, rag.ErrEmptyQuery) || errors.Is(err, embeddings.ErrEmptyInput) {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	s.logger.Error(message, "error", err)

	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   message,
		Details: err.Error(),
	})
}
