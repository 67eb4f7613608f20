package config

const (
	defaultAPIListen = ":8080"

	defaultDocumentPath = "public/manual.txt"

	defaultChunkSize       = 1000
	defaultChunkOverlap    = 200
	defaultMaxContextChars = 22000
	defaultIndexName       = "manual-embeddings"

	defaultEmbeddingProvider   = "hf"
	defaultEmbeddingTarget     = "http://localhost:8000"
	defaultEmbeddingDimensions = 384

	defaultVectorProvider = "qdrant"
	defaultVectorTarget   = "localhost:6334"

	defaultLLMProvider = "groq"

	defaultEventsTopic = "shelf.events"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Document: DocumentConfig{
			Path: defaultDocumentPath,
		},
		Retrieval: RetrievalConfig{
			ChunkSize:       defaultChunkSize,
			ChunkOverlap:    defaultChunkOverlap,
			MaxContextChars: defaultMaxContextChars,
			IndexName:       defaultIndexName,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Dimensions: defaultEmbeddingDimensions,
		},
		VectorStore: VectorStoreConfig{
			Provider: defaultVectorProvider,
			Target:   defaultVectorTarget,
		},
		LLM: LLMConfig{
			Provider: defaultLLMProvider,
		},
		Events: EventsConfig{
			Enabled: false,
			Topic:   defaultEventsTopic,
		},
	}
}
