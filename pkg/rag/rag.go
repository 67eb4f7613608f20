// Package rag wires chunking, embedding, vector search and generation into
// the ingestion and question-answering flows.
package rag

import "errors"

// ErrEmptyQuery is returned when a query is blank after trimming whitespace.
var ErrEmptyQuery = errors.New("query must not be empty")
