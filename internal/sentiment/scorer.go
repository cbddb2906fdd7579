package sentiment

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/stockpulse-hq/bazaar-pulse/internal/domain"
	"github.com/stockpulse-hq/bazaar-pulse/internal/logger"
)

// maxModelInput caps the text handed to the classifier. Longer articles are
// truncated; the opening paragraphs carry the sentiment signal.
const maxModelInput = 500

var (
	nonWordRE    = regexp.MustCompile(`[^a-z0-9\s]+`)
	multiSpaceRE = regexp.MustCompile(`\s+`)
)

// Preprocess normalizes article text for scoring: lowercase, punctuation
// stripped, whitespace collapsed, truncated to the model input cap.
func Preprocess(text string) string {
	s := strings.ToLower(text)
	s = nonWordRE.ReplaceAllString(s, " ")
	s = multiSpaceRE.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if len(s) > maxModelInput {
		s = strings.TrimSpace(s[:maxModelInput])
	}
	return s
}

// Scorer turns article text into a sentiment score. With a classifier it
// uses the hosted model and falls back to a neutral default on error; with
// no classifier configured it uses the keyword lexicon.
type Scorer struct {
	classifier Classifier
	log        logger.Logger
}

// NewScorer builds a Scorer. A nil classifier selects the lexicon path.
func NewScorer(classifier Classifier, log logger.Logger) *Scorer {
	return &Scorer{classifier: classifier, log: logger.Ensure(log)}
}

// Score classifies the text. A classifier failure never propagates: the
// article keeps flowing with a neutral score at half confidence.
func (s *Scorer) Score(ctx context.Context, text string) domain.SentimentScore {
	clean := Preprocess(text)

	if s.classifier == nil {
		return lexiconScore(clean)
	}

	cls, err := s.classifier.Classify(ctx, clean)
	if err != nil {
		s.log.WarnObj("classifier failed, defaulting to neutral", "sentiment_degraded", map[string]any{
			"error": err.Error(),
		})
		return domain.SentimentScore{Label: domain.LabelNeutral, Score: 0.5, Confidence: 0.5}
	}

	return domain.SentimentScore{
		Label:      cls.Label,
		Score:      cls.Score,
		Confidence: derivedConfidence(cls.Label, cls.Score),
	}
}

// derivedConfidence reads confidence off the score's distance from the
// neutral midpoint. Neutral verdicts are most confident near 0.5, polar
// verdicts near the extremes.
func derivedConfidence(label string, score float64) float64 {
	distance := 2 * math.Abs(score-0.5)
	conf := distance
	if label == domain.LabelNeutral {
		conf = 1 - distance
	}
	return clamp(conf, 0.1, 1.0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
