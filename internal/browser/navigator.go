package browser

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/stockpulse-hq/bazaar-pulse/internal/logger"
)

const (
	defaultMaxAttempts       = 3
	defaultBackoffBase       = 2 * time.Second
	defaultBackoffMultiplier = 2.0
	defaultWaitTimeout       = 10 * time.Second
)

// NavigationError reports that a URL could not be loaded after all retry
// attempts were exhausted.
type NavigationError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation failed for %s after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// NavigatorConfig tunes the retry loop.
type NavigatorConfig struct {
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffMultiplier float64
}

// Navigator loads pages through a session with bounded retry and exponential
// backoff. Auxiliary page interactions are best-effort: they report success
// as a bool and never fail the crawl.
type Navigator struct {
	cfg   NavigatorConfig
	log   logger.Logger
	sleep func(ctx context.Context, d time.Duration) error
}

// NewNavigator builds a Navigator, filling unset config fields with defaults.
func NewNavigator(cfg NavigatorConfig, log logger.Logger) *Navigator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	if cfg.BackoffMultiplier <= 1 {
		cfg.BackoffMultiplier = defaultBackoffMultiplier
	}

	return &Navigator{
		cfg:   cfg,
		log:   logger.Ensure(log),
		sleep: sleepCtx,
	}
}

// Navigate loads the URL, retrying up to MaxAttempts times with exponential
// backoff between attempts. The terminal error is a *NavigationError carrying
// the URL and the last underlying error.
func (n *Navigator) Navigate(ctx context.Context, s Session, url string) error {
	var lastErr error

	for attempt := 0; attempt < n.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(n.cfg.BackoffBase) * math.Pow(n.cfg.BackoffMultiplier, float64(attempt-1)))
			if err := n.sleep(ctx, delay); err != nil {
				lastErr = err
				break
			}
		}

		lastErr = s.Navigate(ctx, url)
		if lastErr == nil {
			if attempt > 0 {
				n.log.InfoObj("navigation recovered after retry", "nav_recovered", map[string]any{
					"url":     url,
					"attempt": attempt + 1,
				})
			}
			return nil
		}

		n.log.WarnObj("navigation attempt failed", "nav_attempt_failed", map[string]any{
			"url":     url,
			"attempt": attempt + 1,
			"error":   lastErr.Error(),
		})
	}

	return &NavigationError{URL: url, Attempts: n.cfg.MaxAttempts, Err: lastErr}
}

// WaitForElement waits for the selector to become visible. Best-effort.
func (n *Navigator) WaitForElement(ctx context.Context, s Session, selector string) bool {
	if err := s.WaitForElement(ctx, selector, defaultWaitTimeout); err != nil {
		n.log.DebugObj("element did not appear", "nav_wait_miss", map[string]any{
			"selector": selector,
			"error":    err.Error(),
		})
		return false
	}
	return true
}

// Scroll scrolls the page to the bottom. Best-effort.
func (n *Navigator) Scroll(ctx context.Context, s Session) bool {
	if err := s.Scroll(ctx); err != nil {
		n.log.DebugObj("scroll failed", "nav_scroll_miss", map[string]any{
			"error": err.Error(),
		})
		return false
	}
	return true
}

// Click clicks the first element matching the selector. Best-effort.
func (n *Navigator) Click(ctx context.Context, s Session, selector string) bool {
	if err := s.Click(ctx, selector); err != nil {
		n.log.DebugObj("click failed", "nav_click_miss", map[string]any{
			"selector": selector,
			"error":    err.Error(),
		})
		return false
	}
	return true
}

// FillInput types the value into the element matching the selector.
// Best-effort.
func (n *Navigator) FillInput(ctx context.Context, s Session, selector, value string) bool {
	if err := s.FillInput(ctx, selector, value); err != nil {
		n.log.DebugObj("fill input failed", "nav_fill_miss", map[string]any{
			"selector": selector,
			"error":    err.Error(),
		})
		return false
	}
	return true
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
