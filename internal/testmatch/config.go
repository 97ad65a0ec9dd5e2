package testmatch

import "time"

// Config holds configuration for the match pool test
type Config struct {
	BaseURL       string        // Base URL of the service
	NumCandidates int           // Number of candidates to generate
	NumRatings    int           // Number of peer ratings to submit
	TopN          int           // Number of match results to request
	Workers       int           // Number of concurrent workers
	Timeout       time.Duration // HTTP request timeout
	OutputFile    string        // Output file for generated candidates
	LogFile       string        // Log file for test output
	Verbose       bool          // Enable verbose logging
}

// Candidate mirrors the candidate registration payload
type Candidate struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Skills       SkillSet          `json:"skills"`
	Experience   string            `json:"experience"`
	DomainExp    map[string]string `json:"domain_experience,omitempty"`
	Availability string            `json:"availability"`
	Reputation   Reputation        `json:"reputation"`
}

// SkillSet mirrors the skill grouping of the registration payload
type SkillSet struct {
	Languages    []string `json:"languages"`
	Frameworks   []string `json:"frameworks"`
	Tools        []string `json:"tools"`
	DomainSkills []string `json:"domain_skills"`
}

// Reputation mirrors the project history of the registration payload
type Reputation struct {
	CompletedProjects int `json:"completed_projects"`
	DroppedProjects   int `json:"dropped_projects"`
}

// Project mirrors the project registration payload
type Project struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Type           string   `json:"type"`
	RequiredSkills []string `json:"required_skills"`
	TeamSize       int      `json:"team_size"`
}

// Rating mirrors the rating submission payload
type Rating struct {
	RaterID   string             `json:"rater_id"`
	RateeID   string             `json:"ratee_id"`
	ProjectID string             `json:"project_id"`
	Scores    map[string]float64 `json:"scores"`
}

// MatchEntry represents one ranked result from a match run
type MatchEntry struct {
	CandidateID   string  `json:"candidate_id"`
	Name          string  `json:"name"`
	FinalScore    float64 `json:"final_score"`
	Alpha         float64 `json:"alpha"`
	SemanticLabel string  `json:"semantic_label"`
}

// MatchResponse represents the response from a match run
type MatchResponse struct {
	ProjectID string       `json:"project_id"`
	Results   []MatchEntry `json:"results"`
}

// RegisteredResponse represents the response from a registration
type RegisteredResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// GlobalRating represents a candidate's aggregate rating
type GlobalRating struct {
	Value         float64 `json:"value"`
	ProjectsRated int     `json:"projects_rated"`
	TotalRatings  int     `json:"total_ratings"`
}

// Stats holds test statistics
type Stats struct {
	CandidatesGenerated  int
	CandidatesRegistered int
	CandidatesFailed     int
	RatingsSubmitted     int
	RatingsFailed        int
	GlobalsRetrieved     int
	MatchResults         int
	StartTime            time.Time
	EndTime              time.Time
	Duration             time.Duration
}
