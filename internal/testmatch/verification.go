package testmatch

import (
	"fmt"
	"log"
)

// verifyResults verifies the ordering and bounds of a match run.
func verifyResults(config *Config, results []MatchEntry, globals map[string]GlobalRating) error {
	log.Println("Verifying results...")

	if len(results) == 0 {
		return fmt.Errorf("no match results to verify")
	}

	if len(results) > config.TopN {
		return fmt.Errorf("got %d results, requested at most %d", len(results), config.TopN)
	}

	// Results must come back sorted by final score, best first
	for i := 1; i < len(results); i++ {
		if results[i].FinalScore > results[i-1].FinalScore {
			return fmt.Errorf("results not properly sorted: entry %d has higher score than entry %d", i, i-1)
		}
	}

	// Final scores are normalized
	for i, entry := range results {
		if entry.FinalScore < 0 || entry.FinalScore > 1 {
			return fmt.Errorf("entry %d has out-of-range score %.4f", i, entry.FinalScore)
		}
		if entry.SemanticLabel == "" {
			return fmt.Errorf("entry %d is missing a relevance label", i)
		}
	}

	displayTopMatches(results, globals, config.Verbose)

	log.Println("Result verification completed")
	return nil
}

// displayTopMatches shows the best matches with their aggregate ratings.
func displayTopMatches(results []MatchEntry, globals map[string]GlobalRating, verbose bool) {
	topN := 10
	if len(results) < topN {
		topN = len(results)
	}

	log.Printf("Top %d matches:", topN)
	for i := 0; i < topN; i++ {
		entry := results[i]
		global, ok := globals[entry.CandidateID]
		if ok {
			log.Printf("   %d. %s - score: %.4f (%s, rating %.3f from %d ratings)",
				i+1, entry.Name, entry.FinalScore, entry.SemanticLabel, global.Value, global.TotalRatings)
		} else {
			log.Printf("   %d. %s - score: %.4f (%s)", i+1, entry.Name, entry.FinalScore, entry.SemanticLabel)
		}
	}

	if verbose && len(results) > 0 {
		avgScore := calculateAverageScore(results)
		maxScore := results[0].FinalScore
		minScore := results[len(results)-1].FinalScore

		log.Printf(`Score statistics:
   Average: %.4f
   Maximum: %.4f
   Minimum: %.4f
`, avgScore, maxScore, minScore)
	}
}

// calculateAverageScore calculates the average final score of the results.
func calculateAverageScore(results []MatchEntry) float64 {
	if len(results) == 0 {
		return 0
	}

	sum := 0.0
	for _, entry := range results {
		sum += entry.FinalScore
	}

	return sum / float64(len(results))
}
