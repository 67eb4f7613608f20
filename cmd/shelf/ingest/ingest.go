// Package ingestcmder provides the ingest command for indexing the
// configured document from the terminal.
package ingestcmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/shelf/pkg/cliui"
	"github.com/papercomputeco/shelf/pkg/config"
	embeddingutils "github.com/papercomputeco/shelf/pkg/embeddings/utils"
	"github.com/papercomputeco/shelf/pkg/eventstream"
	"github.com/papercomputeco/shelf/pkg/eventstream/kafka"
	"github.com/papercomputeco/shelf/pkg/eventstream/nop"
	"github.com/papercomputeco/shelf/pkg/loader"
	"github.com/papercomputeco/shelf/pkg/logger"
	"github.com/papercomputeco/shelf/pkg/rag"
	"github.com/papercomputeco/shelf/pkg/vector"
	vectorutils "github.com/papercomputeco/shelf/pkg/vector/utils"
)

type IngestCommander struct {
	configDir string
	debug     bool

	documentPath  string
	indexName     string
	chunkSize     int
	chunkOverlap  int
	embeddingProv string
	embeddingTgt  string
	embeddingMdl  string
	embeddingDims uint
	vectorProv    string
	vectorTgt     string
	vectorDB      string
	eventsEnabled bool
	eventsBrokers string
	eventsTopic   string

	v      *viper.Viper
	logger *slog.Logger
}

const ingestLongDesc string = `Index the configured document.

Splits the document into overlapping chunks, embeds each chunk, and stores
the vectors in the configured index. Indexing is skipped when the index
already holds vectors, so re-running is safe.

Examples:
  shelf ingest
  shelf ingest --document notes/handbook.txt --index handbook`

const ingestShortDesc string = "Index the configured document"

// ingestFlagKeys lists the registry flags the ingest command exposes.
var ingestFlagKeys = []string{
	config.FlagDocumentPath,
	config.FlagIndexName,
	config.FlagChunkSize,
	config.FlagChunkOverlap,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagVectorStoreDB,
	config.FlagEventsEnabled,
	config.FlagEventsBrokers,
	config.FlagEventsTopic,
}

func NewIngestCmd() *cobra.Command {
	cmder := &IngestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.NoArgs,
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

			config.BindRegisteredFlags(cmder.v, cmd, config.Flags, ingestFlagKeys)
			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagDocumentPath, &cmder.documentPath)
	config.AddStringFlag(cmd, config.Flags, config.FlagIndexName, &cmder.indexName)
	config.AddIntFlag(cmd, config.Flags, config.FlagChunkSize, &cmder.chunkSize)
	config.AddIntFlag(cmd, config.Flags, config.FlagChunkOverlap, &cmder.chunkOverlap)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embeddingProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.embeddingTgt)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embeddingMdl)
	config.AddUintFlag(cmd, config.Flags, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreProv, &cmder.vectorProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreTgt, &cmder.vectorTgt)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreDB, &cmder.vectorDB)
	config.AddBoolFlag(cmd, config.Flags, config.FlagEventsEnabled, &cmder.eventsEnabled)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsBrokers, &cmder.eventsBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsTopic, &cmder.eventsTopic)

	return cmd
}

func (c *IngestCommander) run() error {
	// Keep terminal output clean unless debugging.
	if c.debug {
		c.logger = logger.New(
			logger.WithDebug(true),
			logger.WithPretty(true),
		)
	} else {
		c.logger = logger.Nop()
	}

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

	events, err := c.createPublisher()
	if err != nil {
		return err
	}
	defer events.Close()

	cache := vector.NewCache(provider, c.logger)

	docPath := v.GetString("document.path")
	indexName := v.GetString("retrieval.index_name")

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println()

	var result *rag.IngestResult
	err = cliui.Step(os.Stdout, fmt.Sprintf("Indexing %s into %q", docPath, indexName), func() error {
		var stepErr error
		result, stepErr = pipeline.Ingest(ctx, indexName)
		return stepErr
	})
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if result.Status == rag.StatusSkipped {
		fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Index already holds vectors, nothing to do."))
		return nil
	}

	fmt.Printf("  %s %s\n\n",
		cliui.KeyStyle.Render("Indexed:"),
		cliui.ValueStyle.Render(fmt.Sprintf("%d chunks", result.ChunkCount)),
	)

	return nil
}

// createPublisher returns the Kafka publisher when events are enabled,
// otherwise a no-op publisher.
func (c *IngestCommander) createPublisher() (eventstream.Publisher, error) {
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
