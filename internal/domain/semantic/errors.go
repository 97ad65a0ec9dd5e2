package semantic

import "errors"

// Sentinel kinds for similarity errors.
var (
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrEmptyVector       = errors.New("empty embedding vector")
)
