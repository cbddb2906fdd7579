package publishers

import (
	"context"
	"time"

	"github.com/stockpulse-hq/bazaar-pulse/internal/domain"
	"github.com/stockpulse-hq/bazaar-pulse/internal/logger"
)

// SentimentEvent is the payload delivered to downstream sinks after a fetch
// completes. It carries the aggregate verdict, not the article bodies.
type SentimentEvent struct {
	Ticker        string    `json:"ticker"`
	Label         string    `json:"label"`
	Score         float64   `json:"score"`
	Confidence    float64   `json:"confidence"`
	TotalArticles int       `json:"total_articles"`
	Sources       []string  `json:"sources,omitempty"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// EventFromResult projects an aggregate result onto the wire event.
func EventFromResult(r domain.AggregateResult) SentimentEvent {
	sources := make([]string, 0, len(r.Sources))
	for _, s := range r.Sources {
		if s.Status == domain.StatusSuccess {
			sources = append(sources, s.Source)
		}
	}
	if len(sources) == 0 {
		sources = nil
	}

	return SentimentEvent{
		Ticker:        r.Ticker,
		Label:         r.OverallSentiment.Label,
		Score:         r.OverallSentiment.Score,
		Confidence:    r.OverallSentiment.Confidence,
		TotalArticles: r.TotalArticles,
		Sources:       sources,
		GeneratedAt:   r.LastUpdated,
	}
}

// Publisher delivers sentiment events to one configured sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt SentimentEvent) error
}

func ensureLogger(log logger.Logger) logger.Logger {
	return logger.Ensure(log)
}
