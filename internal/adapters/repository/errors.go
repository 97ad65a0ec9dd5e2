package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrCandidateNotFound = errors.New("candidate not found")
	ErrProjectNotFound   = errors.New("project not found")
)
