package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/stockpulse-hq/bazaar-pulse/internal/domain"
	"github.com/stockpulse-hq/bazaar-pulse/internal/logger"
	"github.com/stockpulse-hq/bazaar-pulse/pkg/httpclient"
)

// ErrThrottled signals the upstream classifier returned HTTP 429. The call
// already waited out the cool-down; the caller may retry later.
var ErrThrottled = errors.New("sentiment: classifier rate limited")

const (
	defaultSpacing  = time.Second
	defaultCooldown = 30 * time.Second
	defaultTimeout  = 20 * time.Second
)

// Classification is a normalized classifier verdict. Score is a positivity
// score in [0,1]: near 1 positive, near 0 negative, near 0.5 neutral.
type Classification struct {
	Label string
	Score float64
}

// Classifier scores a preprocessed text. Implementations wrap the external
// financial-sentiment model.
type Classifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
}

// ClassifierConfig configures the HTTP classifier client.
type ClassifierConfig struct {
	Endpoint string
	APIKey   string
	Spacing  time.Duration // minimum gap between upstream calls
	Cooldown time.Duration // wait applied after an HTTP 429
	Timeout  time.Duration
}

// HTTPClassifier calls a hosted financial-sentiment model. Calls are spaced
// by a fixed inter-request delay to respect upstream throttling.
type HTTPClassifier struct {
	client httpclient.Client
	cfg    ClassifierConfig
	log    logger.Logger

	mu       sync.Mutex
	nextCall time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewHTTPClassifier builds the classifier client, filling config defaults.
func NewHTTPClassifier(cfg ClassifierConfig, log logger.Logger) *HTTPClassifier {
	if cfg.Spacing <= 0 {
		cfg.Spacing = defaultSpacing
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaultCooldown
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &HTTPClassifier{
		client: httpclient.NewRestyClient(cfg.Timeout),
		cfg:    cfg,
		log:    logger.Ensure(log),
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// labelScore mirrors the upstream response entries.
type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classify sends the text upstream and normalizes the response. The spacing
// wait is computed under the lock but slept outside it, so no lock is held
// across the network call.
func (c *HTTPClassifier) Classify(ctx context.Context, text string) (Classification, error) {
	if c.cfg.Endpoint == "" {
		return Classification{}, errors.New("sentiment: classifier endpoint not configured")
	}

	if err := c.waitTurn(ctx); err != nil {
		return Classification{}, err
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if c.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.cfg.APIKey
	}

	resp, err := c.client.Post(ctx, c.cfg.Endpoint, headers, map[string]string{"inputs": text})
	if err != nil {
		return Classification{}, fmt.Errorf("classifier request: %w", err)
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		c.log.WarnObj("classifier throttled, cooling down", "classifier_throttled", map[string]any{
			"cooldown": c.cfg.Cooldown.String(),
		})
		if err := c.sleep(ctx, c.cfg.Cooldown); err != nil {
			return Classification{}, err
		}
		return Classification{}, ErrThrottled
	}
	if resp.StatusCode() != http.StatusOK {
		return Classification{}, fmt.Errorf("classifier returned status %d", resp.StatusCode())
	}

	entries, err := decodeLabelScores(resp.Body())
	if err != nil {
		return Classification{}, err
	}
	return normalize(entries)
}

// waitTurn reserves the next call slot and sleeps until it arrives.
func (c *HTTPClassifier) waitTurn(ctx context.Context) error {
	c.mu.Lock()
	now := c.now()
	wait := c.nextCall.Sub(now)
	if wait < 0 {
		wait = 0
	}
	c.nextCall = now.Add(wait + c.cfg.Spacing)
	c.mu.Unlock()

	if wait == 0 {
		return nil
	}
	return c.sleep(ctx, wait)
}

// decodeLabelScores accepts both flat and nested response shapes.
func decodeLabelScores(body []byte) ([]labelScore, error) {
	var nested [][]labelScore
	if err := json.Unmarshal(body, &nested); err == nil && len(nested) > 0 {
		return nested[0], nil
	}

	var flat []labelScore
	if err := json.Unmarshal(body, &flat); err == nil && len(flat) > 0 {
		return flat, nil
	}
	return nil, fmt.Errorf("classifier response not recognized: %s", snippet(body))
}

// normalize picks the most confident entry and maps it onto the positivity
// score scale.
func normalize(entries []labelScore) (Classification, error) {
	best := entries[0]
	for _, e := range entries[1:] {
		if e.Score > best.Score {
			best = e
		}
	}

	label := normalizeLabel(best.Label)
	if label == "" {
		return Classification{}, fmt.Errorf("classifier returned unknown label %q", best.Label)
	}

	score := 0.5
	switch label {
	case domain.LabelPositive:
		score = 0.5 + best.Score/2
	case domain.LabelNegative:
		score = 0.5 - best.Score/2
	}
	return Classification{Label: label, Score: score}, nil
}

// normalizeLabel maps upstream label spellings onto the domain labels.
func normalizeLabel(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positive", "bullish", "label_2":
		return domain.LabelPositive
	case "negative", "bearish", "label_0":
		return domain.LabelNegative
	case "neutral", "label_1":
		return domain.LabelNeutral
	}
	return ""
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 256 {
		return s[:256] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

// sleepCtx pauses for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
