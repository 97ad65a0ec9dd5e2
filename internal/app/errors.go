package service

import "errors"

var (
	// ErrNotStarted is returned when an operation runs before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrMatchTimeout is returned when a match run exceeds its deadline.
	ErrMatchTimeout = errors.New("match run timed out")
)
