package domain

import "time"

// Domain contains core models shared across the acquisition and scoring pipeline.

// Sentiment labels produced by the classifier and the keyword fallback.
const (
	LabelPositive = "positive"
	LabelNegative = "negative"
	LabelNeutral  = "neutral"
)

// Per-source outcome states recorded by the orchestrator.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Article is one scraped and normalized news article.
type Article struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Content        string          `json:"content"`
	Summary        string          `json:"summary,omitempty"`
	URL            string          `json:"url"`
	Author         string          `json:"author,omitempty"`
	Tags           []string        `json:"tags,omitempty"`
	Symbols        []string        `json:"symbols,omitempty"`
	PublishedAt    time.Time       `json:"published_at"`
	Source         string          `json:"source"`
	SourcePriority int             `json:"source_priority"`
	SourceWeight   float64         `json:"source_weight"`
	RelevanceScore float64         `json:"relevance_score"`
	Sentiment      *SentimentScore `json:"sentiment,omitempty"`
}

// SentimentScore is the classification outcome for one article or an aggregate.
// On the model path Score is a positivity score centered on 0.5; the keyword
// fallback emits a signed magnitude capped at 0.8.
type SentimentScore struct {
	Label      string  `json:"label"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// SentimentBreakdown counts articles per label. Percentages sum to 100 when
// at least one article was scored and are all zero otherwise.
type SentimentBreakdown struct {
	Positive           int     `json:"positive"`
	Negative           int     `json:"negative"`
	Neutral            int     `json:"neutral"`
	PositivePercentage float64 `json:"positive_percentage"`
	NegativePercentage float64 `json:"negative_percentage"`
	NeutralPercentage  float64 `json:"neutral_percentage"`
}

// SourceStatus records the outcome of one source within a single request.
type SourceStatus struct {
	Source   string `json:"source"`
	Status   string `json:"status"`
	Articles int    `json:"articles"`
	Error    string `json:"error,omitempty"`
}

// DateRange restricts a fetch to articles published inside the interval.
// Zero values mean unbounded on that side.
type DateRange struct {
	From time.Time `json:"from,omitempty"`
	To   time.Time `json:"to,omitempty"`
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// IsZero reports whether the range is unbounded on both sides.
func (r DateRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// AggregateResult is the confidence-weighted outcome of one fetch request.
type AggregateResult struct {
	Ticker           string             `json:"ticker"`
	OverallSentiment SentimentScore     `json:"overall_sentiment"`
	Articles         []Article          `json:"articles"`
	TotalArticles    int                `json:"total_articles"`
	Breakdown        SentimentBreakdown `json:"breakdown"`
	LastUpdated      time.Time          `json:"last_updated"`
	Message          string             `json:"message"`
	Sources          []SourceStatus     `json:"sources"`
}
