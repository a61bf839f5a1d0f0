package models

import "time"

// Question is one step of the questionnaire. Options are display labels in
// presentation order; an option's rank is its 1-based position in the list.
type Question struct {
	Ordinal int      `json:"ordinal" yaml:"-"`
	Prompt  string   `json:"prompt" yaml:"prompt"`
	Options []string `json:"options" yaml:"options"`
}

// Answer is one accepted selection, captured at the moment it was appended.
// Prompt and Rank are recorded here rather than re-derived from the catalog
// later, so persistence can never pair an answer with the wrong question.
type Answer struct {
	Ordinal int    `json:"ordinal"`
	Prompt  string `json:"prompt"`
	Label   string `json:"label"`
	Rank    int    `json:"rank"` // 1-based option position
}

// Session tracks one participant's progress. Invariant: len(Answers) == Ordinal.
// IntroSent is per-session state, not a process-wide flag.
type Session struct {
	Phone     string    `json:"phone"`
	Ordinal   int       `json:"ordinal"`
	Answers   []Answer  `json:"answers"`
	IntroSent bool      `json:"intro_sent"`
	CreatedAt time.Time `json:"created_at"`
}

// Severity buckets a numeric score into an ordered category.
type Severity string

const (
	SeverityMild       Severity = "mild"
	SeverityModerate   Severity = "moderate"
	SeveritySevere     Severity = "severe"
	SeverityVerySevere Severity = "very_severe"
)

// ScoreResult is the outcome of scoring a completed answer list.
type ScoreResult struct {
	Numeric  int      `json:"numeric"`
	Severity Severity `json:"severity"`
}

// Result is a finalized questionnaire handed off for persistence.
type Result struct {
	ID          string      `json:"id"`
	Phone       string      `json:"phone"`
	Score       ScoreResult `json:"score"`
	Answers     []Answer    `json:"answers"`
	CompletedAt time.Time   `json:"completed_at"`
}
