package publishers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/stockpulse-hq/bazaar-pulse/internal/logger"
	"github.com/stockpulse-hq/bazaar-pulse/pkg/httpclient"
)

// httpPublisher posts sentiment events to a generic HTTP sink.
type httpPublisher struct {
	id      string
	typ     string
	url     string
	method  string
	headers map[string]string
	client  httpclient.Client
	log     logger.Logger
}

// newHTTPPublisher creates an HTTP publisher from config.
func newHTTPPublisher(_ context.Context, cfg Config, log logger.Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	return &httpPublisher{
		id:      cfg.ID,
		typ:     cfg.Type,
		url:     cfg.HTTP.URL,
		method:  cfg.HTTP.Method,
		headers: cfg.HTTP.Headers,
		client:  httpclient.NewRestyClient(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second),
		log:     ensureLogger(log),
	}, nil
}

func (p *httpPublisher) ID() string   { return p.id }
func (p *httpPublisher) Type() string { return p.typ }

// Publish sends the event as a JSON body to the configured endpoint. Any
// non-2xx status is an error.
func (p *httpPublisher) Publish(ctx context.Context, evt SentimentEvent) error {
	headers := map[string]string{"Content-Type": "application/json"}
	for k, v := range p.headers {
		headers[k] = v
	}

	if p.method != http.MethodPost {
		return fmt.Errorf("http publisher %s: method %q not supported", p.id, p.method)
	}

	resp, err := p.client.Post(ctx, p.url, headers, evt)
	if err != nil {
		return fmt.Errorf("http publisher %s: %w", p.id, err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("http publisher %s: endpoint returned status %d", p.id, resp.StatusCode())
	}

	p.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher": p.id,
		"ticker":    evt.Ticker,
		"status":    resp.StatusCode(),
	})
	return nil
}
