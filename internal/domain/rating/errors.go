package rating

import "errors"

// Sentinel kinds for rating errors.
var (
	ErrUnknownCategory = errors.New("unknown rating category")
	ErrScoreOutOfRange = errors.New("category score out of range")
	ErrNoRatings       = errors.New("no ratings recorded")
	ErrRaterNotFound   = errors.New("rater not found")
)
