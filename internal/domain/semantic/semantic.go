// Package semantic provides the cosine similarity primitive and the
// relevance gate that decides whether a candidate enters scoring at all.
package semantic

import (
	"fmt"
	"math"

	"github.com/convergehq/converge/internal/domain/model"
)

// Relevance band thresholds. Similarity in [0.30, 0.35) is a deliberate
// dead zone: rejected, but distinguishable from "unrelated" in reporting.
const (
	unrelatedBelow  = 0.30
	meaningfulFloor = 0.35
	strongAbove     = 0.55
)

// Label classifies a similarity score into a relevance band.
type Label string

const (
	LabelUnrelated  Label = "unrelated"
	LabelBorderline Label = "borderline"
	LabelMeaningful Label = "meaningful"
	LabelStrong     Label = "strong"
)

// Verdict is the gate's output for one candidate.
type Verdict struct {
	Passes     bool
	Similarity float64
	Label      Label
}

// Cosine returns the cosine similarity of two equal-length vectors in
// [-1, 1]. A zero-norm vector yields 0 rather than a division fault.
func Cosine(a, b model.EmbeddingVector) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, ErrEmptyVector
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Gate computes similarity between a project and candidate embedding and
// classifies it:
//
//	s < 0.30          reject, unrelated
//	0.30 <= s < 0.35  reject, borderline
//	0.35 <= s <= 0.55 pass, meaningful
//	s > 0.55          pass, strong
//
// Candidates that fail the gate are excluded from all downstream scoring.
func Gate(project, candidate model.EmbeddingVector) (Verdict, error) {
	s, err := Cosine(project, candidate)
	if err != nil {
		return Verdict{}, err
	}
	return Classify(s), nil
}

// Classify maps a precomputed similarity score onto a relevance band.
func Classify(s float64) Verdict {
	switch {
	case s < unrelatedBelow:
		return Verdict{Passes: false, Similarity: s, Label: LabelUnrelated}
	case s < meaningfulFloor:
		return Verdict{Passes: false, Similarity: s, Label: LabelBorderline}
	case s <= strongAbove:
		return Verdict{Passes: true, Similarity: s, Label: LabelMeaningful}
	default:
		return Verdict{Passes: true, Similarity: s, Label: LabelStrong}
	}
}
