package vector

import "errors"

var (
	// ErrConnection is returned when the vector store cannot be reached.
	ErrConnection = errors.New("vector store connection failed")

	// ErrProvider is returned when a vector store request fails. Wrapped
	// errors carry the upstream status/detail.
	ErrProvider = errors.New("vector store request failed")
)
