// Package repository provides the durable keyed stores behind the rating
// engine and the candidate/project registry.
package repository

// RatingOption applies a configuration option to the RatingStore.
type RatingOption func(*RatingStore)

// WithRatingPath sets the snapshot file for rating records and rater
// reliability state. Empty keeps the store memory-only.
func WithRatingPath(path string) RatingOption {
	return func(s *RatingStore) {
		s.path = path
	}
}

// ProfileOption applies a configuration option to the ProfileStore.
type ProfileOption func(*ProfileStore)

// WithProfilePath sets the snapshot file for candidate and project records.
// Empty keeps the store memory-only.
func WithProfilePath(path string) ProfileOption {
	return func(s *ProfileStore) {
		s.path = path
	}
}
