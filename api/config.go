// Package api provides the HTTP API server for document ingestion,
// retrieval and question answering.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// IndexName is the index used when a request does not name one.
	IndexName string
}
