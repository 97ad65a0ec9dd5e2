package embedding

import "errors"

var (
	// ErrEmptyText is returned when there is nothing to embed.
	ErrEmptyText = errors.New("empty text")
	// ErrNoEmbedding is returned when the provider responds without a vector.
	ErrNoEmbedding = errors.New("no embedding returned")
)
