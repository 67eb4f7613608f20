package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/shelf/pkg/eventstream"
	"github.com/papercomputeco/shelf/pkg/rag"
	"github.com/papercomputeco/shelf/pkg/vector"
)

// Server is the API server for ingesting documents and answering questions
// over them.
type Server struct {
	config    Config
	pipeline  *rag.Pipeline
	retriever *rag.Retriever
	answerer  *rag.Answerer
	cache     *vector.Cache
	events    eventstream.Publisher
	logger    *slog.Logger
	app       *fiber.App
}

// NewServer creates a new API server. The pipeline, retriever, answerer and
// cache are injected so they can be shared with the CLI commands.
func NewServer(
	config Config,
	pipeline *rag.Pipeline,
	retriever *rag.Retriever,
	answerer *rag.Answerer,
	cache *vector.Cache,
	events eventstream.Publisher,
	logger *slog.Logger,
) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:    config,
		pipeline:  pipeline,
		retriever: retriever,
		answerer:  answerer,
		cache:     cache,
		events:    events,
		logger:    logger,
		app:       app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/process-pdf", s.handleIngest)
	app.Post("/query", s.handleQuery)
	app.Post("/chat", s.handleChat)
	app.Get("/cache/stats", s.handleCacheStats)
	app.Delete("/cache/:name", s.handleCacheInvalidate)
	app.Delete("/cache", s.handleCacheClear)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the underlying fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
