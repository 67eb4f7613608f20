// Package servecmder provides the serve command that runs the shelf API server.
package servecmder

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/shelf/api"
	"github.com/papercomputeco/shelf/pkg/config"
	embeddingutils "github.com/papercomputeco/shelf/pkg/embeddings/utils"
	"github.com/papercomputeco/shelf/pkg/eventstream"
	"github.com/papercomputeco/shelf/pkg/eventstream/kafka"
	"github.com/papercomputeco/shelf/pkg/eventstream/nop"
	llmutils "github.com/papercomputeco/shelf/pkg/llm/utils"
	"github.com/papercomputeco/shelf/pkg/loader"
	"github.com/papercomputeco/shelf/pkg/logger"
	"github.com/papercomputeco/shelf/pkg/rag"
	"github.com/papercomputeco/shelf/pkg/vector"
	vectorutils "github.com/papercomputeco/shelf/pkg/vector/utils"
)

type ServeCommander struct {
	configDir string
	debug     bool
	watch     bool

	apiListen       string
	documentPath    string
	chunkSize       int
	chunkOverlap    int
	maxContextChars int
	indexName       string
	embeddingProv   string
	embeddingTgt    string
	embeddingModel  string
	embeddingDims   uint
	vectorProv      string
	vectorTgt       string
	vectorDB        string
	llmProv         string
	llmTgt          string
	llmModel        string
	eventsEnabled   bool
	eventsBrokers   string
	eventsTopic     string

	v      *viper.Viper
	logger *slog.Logger
}

const serveLongDesc string = `Run the shelf API server.

The server indexes the configured document on demand and answers questions
over it:
  GET    /process-pdf    Index the configured document
  POST   /query          Return the texts most related to a query
  POST   /chat           Answer a question grounded in the document
  GET    /cache/stats    Report cached indexes
  DELETE /cache/:name    Drop one cached index handle
  DELETE /cache          Drop all cached index handles

With --watch, changes to the document on disk invalidate cached index
handles so the next request re-provisions them.`

const serveShortDesc string = "Run the shelf API server"

// serveFlagKeys lists every registry flag the serve command exposes.
var serveFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagDocumentPath,
	config.FlagChunkSize,
	config.FlagChunkOverlap,
	config.FlagMaxContextChars,
	config.FlagIndexName,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagVectorStoreDB,
	config.FlagLLMProv,
	config.FlagLLMTgt,
	config.FlagLLMModel,
	config.FlagEventsEnabled,
	config.FlagEventsBrokers,
	config.FlagEventsTopic,
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			cmder.v, err = config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}

			config.BindRegisteredFlags(cmder.v, cmd, config.Flags, serveFlagKeys)
			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &cmder.apiListen)
	config.AddStringFlag(cmd, config.Flags, config.FlagDocumentPath, &cmder.documentPath)
	config.AddIntFlag(cmd, config.Flags, config.FlagChunkSize, &cmder.chunkSize)
	config.AddIntFlag(cmd, config.Flags, config.FlagChunkOverlap, &cmder.chunkOverlap)
	config.AddIntFlag(cmd, config.Flags, config.FlagMaxContextChars, &cmder.maxContextChars)
	config.AddStringFlag(cmd, config.Flags, config.FlagIndexName, &cmder.indexName)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embeddingProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.embeddingTgt)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, config.Flags, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreProv, &cmder.vectorProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreTgt, &cmder.vectorTgt)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreDB, &cmder.vectorDB)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMProv, &cmder.llmProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMTgt, &cmder.llmTgt)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMModel, &cmder.llmModel)
	config.AddBoolFlag(cmd, config.Flags, config.FlagEventsEnabled, &cmder.eventsEnabled)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsBrokers, &cmder.eventsBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsTopic, &cmder.eventsTopic)

	cmd.Flags().BoolVarP(&cmder.watch, "watch", "w", false, "Invalidate cached indexes when the document changes on disk")

	return cmd
}

func (c *ServeCommander) run() error {
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(true),
	)

	v := c.v

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: v.GetString("embedding.provider"),
		TargetURL:    v.GetString("embedding.target"),
		Model:        v.GetString("embedding.model"),
		APIKey:       os.Getenv("HF_API_KEY"),
		Dimensions:   v.GetInt("embedding.dimensions"),
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	provider, err := vectorutils.NewProvider(&vectorutils.NewProviderOpts{
		ProviderType: v.GetString("vector_store.provider"),
		Target:       v.GetString("vector_store.target"),
		DBPath:       v.GetString("vector_store.db_path"),
		Dimensions:   v.GetUint64("embedding.dimensions"),
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating vector provider: %w", err)
	}
	defer provider.Close()

	generator, err := llmutils.NewGenerator(&llmutils.NewGeneratorOpts{
		ProviderType: v.GetString("llm.provider"),
		TargetURL:    v.GetString("llm.target"),
		Model:        v.GetString("llm.model"),
		APIKey:       os.Getenv("GROQ_API_KEY"),
	})
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}
	defer generator.Close()

	events, err := c.createPublisher()
	if err != nil {
		return err
	}
	defer events.Close()

	cache := vector.NewCache(provider, c.logger)

	docPath := v.GetString("document.path")
	pipeline := rag.NewPipeline(
		loader.NewFileLoader(docPath),
		embedder,
		cache,
		events,
		rag.PipelineConfig{
			ChunkSize:    v.GetInt("retrieval.chunk_size"),
			ChunkOverlap: v.GetInt("retrieval.chunk_overlap"),
		},
		c.logger,
	)

	retriever := rag.NewRetriever(embedder, cache, rag.RetrieverConfig{
		MaxContextChars: v.GetInt("retrieval.max_context_chars"),
		ChunkSizeHint:   v.GetInt("retrieval.chunk_size"),
	}, c.logger)

	answerer := rag.NewAnswerer(generator, c.logger)

	apiConfig := api.Config{
		ListenAddr: v.GetString("api.listen"),
		IndexName:  v.GetString("retrieval.index_name"),
	}
	apiServer := api.NewServer(apiConfig, pipeline, retriever, answerer, cache, events, c.logger)

	c.logger.Info("starting api server",
		"api_addr", apiConfig.ListenAddr,
		"index", apiConfig.IndexName,
		"document", docPath,
	)

	// Channel to capture errors from goroutines
	errChan := make(chan error, 1)

	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	if c.watch {
		watcher, err := c.watchDocument(docPath, cache)
		if err != nil {
			return err
		}
		defer watcher.Close()
	}

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return apiServer.Shutdown()
	}
}

// createPublisher returns the Kafka publisher when events are enabled,
// otherwise a no-op publisher.
func (c *ServeCommander) createPublisher() (eventstream.Publisher, error) {
	if !c.v.GetBool("events.enabled") {
		return nop.NewPublisher(), nil
	}

	var brokers []string
	for _, b := range strings.Split(c.v.GetString("events.brokers"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	pub, err := kafka.NewPublisher(kafka.Config{
		Brokers: brokers,
		Topic:   c.v.GetString("events.topic"),
	}, c.logger)
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}

	return pub, nil
}

// watchDocument invalidates cached index handles when the document changes.
// The parent directory is watched because editors often replace the file on
// save rather than writing it in place.
func (c *ServeCommander) watchDocument(path string, cache *vector.Cache) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", path, err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}

				cleared := cache.InvalidateAll()
				c.logger.Info("document changed, invalidated cached indexes",
					"path", path,
					"cleared", cleared,
				)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				c.logger.Warn("document watcher error", "error", err)
			}
		}
	}()

	c.logger.Info("watching document for changes", "path", path)

	return watcher, nil
}
