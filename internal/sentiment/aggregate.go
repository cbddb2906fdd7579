package sentiment

import (
	"math"
	"time"

	"github.com/stockpulse-hq/bazaar-pulse/internal/domain"
)

const (
	positiveThreshold = 0.6
	negativeThreshold = 0.4
	recencyHalfLife   = 7.0 // days until the recency weight decays to 1/e
)

// Aggregate folds per-article sentiment into one overall score. Each article
// is weighted by recency (exponential decay over days) and source
// reliability; the weighted sum is divided by the article count, so stale or
// unreliable coverage pulls the average toward zero rather than dropping out.
func Aggregate(now time.Time, articles []domain.Article) domain.SentimentScore {
	scores := make([]float64, 0, len(articles))
	weighted := 0.0

	for _, a := range articles {
		if a.Sentiment == nil {
			continue
		}
		scores = append(scores, a.Sentiment.Score)
		weighted += a.Sentiment.Score * articleWeight(now, a)
	}

	if len(scores) == 0 {
		return domain.SentimentScore{Label: domain.LabelNeutral, Score: 0.5, Confidence: 0.5}
	}

	avg := weighted / float64(len(scores))

	label := domain.LabelNeutral
	switch {
	case avg > positiveThreshold:
		label = domain.LabelPositive
	case avg < negativeThreshold:
		label = domain.LabelNegative
	}

	return domain.SentimentScore{
		Label:      label,
		Score:      avg,
		Confidence: aggregateConfidence(scores, avg),
	}
}

// articleWeight combines recency decay with the source reliability factor.
func articleWeight(now time.Time, a domain.Article) float64 {
	daysOld := 0.0
	if !a.PublishedAt.IsZero() {
		if age := now.Sub(a.PublishedAt); age > 0 {
			daysOld = age.Hours() / 24
		}
	}

	reliability := a.SourceWeight
	if reliability <= 0 {
		reliability = 1.0
	}
	reliability = clamp(reliability, 0.5, 1.0)

	return math.Exp(-daysOld/recencyHalfLife) * reliability
}

// aggregateConfidence blends score consistency with the distance of the
// average from the neutral midpoint. Agreeing, strongly polar articles give
// high confidence; scattered or flat ones give low.
func aggregateConfidence(scores []float64, avg float64) float64 {
	variance := 0.0
	for _, s := range scores {
		d := s - avg
		variance += d * d
	}
	variance /= float64(len(scores))

	consistency := math.Max(0.1, 1-math.Sqrt(variance))
	strength := 2 * math.Abs(avg-0.5)

	return clamp((consistency+strength)/2, 0.1, 1.0)
}

// Breakdown counts articles per label and derives percentages rounded to one
// decimal place. Articles without a score are ignored.
func Breakdown(articles []domain.Article) domain.SentimentBreakdown {
	var b domain.SentimentBreakdown
	for _, a := range articles {
		if a.Sentiment == nil {
			continue
		}
		switch a.Sentiment.Label {
		case domain.LabelPositive:
			b.Positive++
		case domain.LabelNegative:
			b.Negative++
		default:
			b.Neutral++
		}
	}

	total := b.Positive + b.Negative + b.Neutral
	if total == 0 {
		return b
	}

	b.PositivePercentage = percentage(b.Positive, total)
	b.NegativePercentage = percentage(b.Negative, total)
	b.NeutralPercentage = percentage(b.Neutral, total)
	return b
}

func percentage(count, total int) float64 {
	return math.Round(float64(count)/float64(total)*1000) / 10
}
