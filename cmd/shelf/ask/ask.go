// Package askcmder provides the ask command for answering a question about
// the indexed document from the terminal.
package askcmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/shelf/pkg/cliui"
	"github.com/papercomputeco/shelf/pkg/config"
	embeddingutils "github.com/papercomputeco/shelf/pkg/embeddings/utils"
	"github.com/papercomputeco/shelf/pkg/eventstream"
	"github.com/papercomputeco/shelf/pkg/eventstream/kafka"
	"github.com/papercomputeco/shelf/pkg/eventstream/nop"
	llmutils "github.com/papercomputeco/shelf/pkg/llm/utils"
	"github.com/papercomputeco/shelf/pkg/logger"
	"github.com/papercomputeco/shelf/pkg/rag"
	"github.com/papercomputeco/shelf/pkg/vector"
	vectorutils "github.com/papercomputeco/shelf/pkg/vector/utils"
)

type AskCommander struct {
	configDir string
	debug     bool

	indexName       string
	maxContextChars int
	chunkSize       int
	embeddingProv   string
	embeddingTgt    string
	embeddingMdl    string
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

const askLongDesc string = `Ask a question about the indexed document.

Retrieves the chunks most related to the question, generates a grounded
answer, refines it, and renders the result as markdown.

Examples:
  shelf ask "how do I reset the device?"
  shelf ask --index handbook "what is the return policy?"`

const askShortDesc string = "Ask a question about the indexed document"

// askFlagKeys lists the registry flags the ask command exposes.
var askFlagKeys = []string{
	config.FlagIndexName,
	config.FlagMaxContextChars,
	config.FlagChunkSize,
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

func NewAskCmd() *cobra.Command {
	cmder := &AskCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
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

			config.BindRegisteredFlags(cmder.v, cmd, config.Flags, askFlagKeys)
			return nil
		},
		RunE: func(_ *cobra.Command, args []string) error {
			return cmder.run(strings.Join(args, " "))
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagIndexName, &cmder.indexName)
	config.AddIntFlag(cmd, config.Flags, config.FlagMaxContextChars, &cmder.maxContextChars)
	config.AddIntFlag(cmd, config.Flags, config.FlagChunkSize, &cmder.chunkSize)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embeddingProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.embeddingTgt)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embeddingMdl)
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

	return cmd
}

func (c *AskCommander) run(question string) error {
	started := time.Now()

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

	retriever := rag.NewRetriever(embedder, cache, rag.RetrieverConfig{
		MaxContextChars: v.GetInt("retrieval.max_context_chars"),
		ChunkSizeHint:   v.GetInt("retrieval.chunk_size"),
	}, c.logger)

	answerer := rag.NewAnswerer(generator, c.logger)

	indexName := v.GetString("retrieval.index_name")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println()

	var contextText string
	err = cliui.Step(os.Stdout, fmt.Sprintf("Retrieving context from %q", indexName), func() error {
		var stepErr error
		contextText, stepErr = retriever.Retrieve(ctx, indexName, question)
		return stepErr
	})
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	var answer string
	err = cliui.Step(os.Stdout, "Generating answer", func() error {
		var stepErr error
		answer, stepErr = answerer.Answer(ctx, question, contextText)
		return stepErr
	})
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	event := eventstream.NewQueryAnsweredEvent(
		indexName,
		len(question),
		len(contextText),
		retriever.TopK(),
		time.Since(started),
	)
	if err := events.PublishQuery(ctx, event); err != nil {
		c.logger.Warn("failed to publish query event",
			"index", indexName,
			"error", err,
		)
	}

	// RenderMarkdown falls back to the raw answer on error.
	rendered, err := cliui.RenderMarkdown(answer)
	if err != nil {
		c.logger.Debug("markdown rendering failed", "error", err)
	}

	fmt.Println(rendered)

	return nil
}

// createPublisher returns the Kafka publisher when events are enabled,
// otherwise a no-op publisher.
func (c *AskCommander) createPublisher() (eventstream.Publisher, error) {
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
