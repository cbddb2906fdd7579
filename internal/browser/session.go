package browser

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const (
	defaultOpTimeout = 30 * time.Second

	viewportWidth  = 1366
	viewportHeight = 768
)

// Session is one headless rendering context. A session loads pages
// sequentially and is never shared across concurrent acquirers; the Pool
// owns its lifecycle.
type Session interface {
	ID() string
	Alive() bool
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	WaitForElement(ctx context.Context, selector string, timeout time.Duration) error
	Click(ctx context.Context, selector string) error
	FillInput(ctx context.Context, selector, value string) error
	Scroll(ctx context.Context) error
	Close()
}

// Factory creates a fresh Session.
type Factory func(ctx context.Context) (Session, error)

// chromeSession implements Session on a dedicated chromedp browser context.
type chromeSession struct {
	id          string
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	opTimeout   time.Duration
}

// NewChromeFactory returns a Factory producing headless Chrome sessions with
// a randomized user agent and a fixed viewport and per-operation timeout.
func NewChromeFactory(opTimeout time.Duration) Factory {
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}

	return func(parent context.Context) (Session, error) {
		ua := randomUserAgent()

		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.UserAgent(ua),
			chromedp.WindowSize(viewportWidth, viewportHeight),
		)

		allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
		tabCtx, tabCancel := chromedp.NewContext(allocCtx)

		initCtx, initCancel := context.WithTimeout(tabCtx, opTimeout)
		defer initCancel()

		err := chromedp.Run(initCtx,
			network.Enable(),
			emulation.SetUserAgentOverride(ua),
			chromedp.EmulateViewport(viewportWidth, viewportHeight),
		)
		if err != nil {
			tabCancel()
			allocCancel()
			return nil, fmt.Errorf("start browser session: %w", err)
		}

		return &chromeSession{
			id:          sessionID(),
			ctx:         tabCtx,
			cancel:      tabCancel,
			allocCancel: allocCancel,
			opTimeout:   opTimeout,
		}, nil
	}
}

func (s *chromeSession) ID() string { return s.id }

func (s *chromeSession) Alive() bool { return s.ctx.Err() == nil }

// Navigate loads the URL, waits for the page to settle, and fails on error
// responses. A timeout here aborts only this page load.
func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	resp, err := chromedp.RunResponse(opCtx, chromedp.Navigate(url))
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if resp != nil && resp.Status >= 400 {
		return fmt.Errorf("navigate %s: page responded with status %d", url, resp.Status)
	}

	if err := chromedp.Run(opCtx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("navigate %s: wait for body: %w", url, err)
	}
	return nil
}

func (s *chromeSession) HTML(ctx context.Context) (string, error) {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	var html string
	if err := chromedp.Run(opCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read page html: %w", err)
	}
	return html, nil
}

func (s *chromeSession) WaitForElement(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout <= 0 || timeout > s.opTimeout {
		timeout = s.opTimeout
	}

	opCtx, cancel := s.opContext(ctx)
	defer cancel()
	opCtx, waitCancel := context.WithTimeout(opCtx, timeout)
	defer waitCancel()

	return chromedp.Run(opCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (s *chromeSession) Click(ctx context.Context, selector string) error {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	return chromedp.Run(opCtx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (s *chromeSession) FillInput(ctx context.Context, selector, value string) error {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	return chromedp.Run(opCtx, chromedp.SendKeys(selector, value, chromedp.ByQuery))
}

func (s *chromeSession) Scroll(ctx context.Context) error {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	return chromedp.Run(opCtx, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil))
}

func (s *chromeSession) Close() {
	s.cancel()
	s.allocCancel()
}

// opContext derives a per-operation context from the session's browser
// context while honoring cancellation of the caller's context.
func (s *chromeSession) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithTimeout(s.ctx, s.opTimeout)

	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

// sessionID generates a short random identifier for log correlation.
func sessionID() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "session-unknown"
	}
	return hex.EncodeToString(buf)
}
