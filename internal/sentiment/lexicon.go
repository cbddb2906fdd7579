package sentiment

import (
	"strings"

	"github.com/stockpulse-hq/bazaar-pulse/internal/domain"
)

// Curated financial-term lexicons for the keyword fallback path. Matching is
// whole-word over preprocessed text.
var (
	positiveTerms = wordSet(
		"gain", "gains", "surge", "surged", "rally", "rallied", "profit",
		"profits", "growth", "rose", "rise", "rises", "jump", "jumped",
		"soar", "soared", "beat", "beats", "record", "strong", "upgrade",
		"upgraded", "outperform", "bullish", "dividend", "buyback",
		"expansion", "momentum", "recovery", "rebound",
	)
	negativeTerms = wordSet(
		"loss", "losses", "fall", "falls", "fell", "decline", "declined",
		"drop", "dropped", "plunge", "plunged", "slump", "slumped", "crash",
		"weak", "miss", "missed", "downgrade", "downgraded", "underperform",
		"bearish", "debt", "default", "lawsuit", "probe", "penalty",
		"layoff", "layoffs", "fraud", "selloff",
	)
	neutralTerms = wordSet(
		"hold", "holds", "stable", "unchanged", "steady", "flat", "inline",
		"maintain", "maintains", "neutral", "sideways", "mixed",
	)
)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// lexiconScore classifies preprocessed text by whole-word lexicon counts.
// The winning list sets the label; ties, including all-zero, are neutral.
// Score is a signed magnitude capped at 0.8 that grows with the match count.
func lexiconScore(text string) domain.SentimentScore {
	var pos, neg, neu int
	for _, word := range strings.Fields(text) {
		if _, ok := positiveTerms[word]; ok {
			pos++
			continue
		}
		if _, ok := negativeTerms[word]; ok {
			neg++
			continue
		}
		if _, ok := neutralTerms[word]; ok {
			neu++
		}
	}

	label := domain.LabelNeutral
	count := neu
	sign := 0.0
	switch {
	case pos > neg && pos > neu:
		label, count, sign = domain.LabelPositive, pos, 1
	case neg > pos && neg > neu:
		label, count, sign = domain.LabelNegative, neg, -1
	}

	magnitude := float64(count) * 0.1
	if magnitude > 0.8 {
		magnitude = 0.8
	}

	confidence := 0.5 + 0.05*float64(count)
	if confidence > 0.9 {
		confidence = 0.9
	}

	return domain.SentimentScore{
		Label:      label,
		Score:      sign * magnitude,
		Confidence: confidence,
	}
}
