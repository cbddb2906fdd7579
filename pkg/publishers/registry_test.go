package publishers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/stockpulse-hq/bazaar-pulse/internal/domain"
	"github.com/stockpulse-hq/bazaar-pulse/internal/logger"
	"github.com/stockpulse-hq/bazaar-pulse/pkg/httpclient"
)

type fakePublisher struct {
	id  string
	err error
	got []SentimentEvent
}

func (p *fakePublisher) ID() string   { return p.id }
func (p *fakePublisher) Type() string { return "fake" }

func (p *fakePublisher) Publish(_ context.Context, evt SentimentEvent) error {
	p.got = append(p.got, evt)
	return p.err
}

func TestRegistryDispatch(t *testing.T) {
	reg := DefaultRegistry()

	cfg := sanitizeConfig(Config{
		ID:   "webhook",
		Type: TypeHTTP,
		HTTP: &HTTPConfig{URL: "https://hooks.example/sentiment"},
	})

	pub, err := reg.PublisherFor(context.Background(), cfg, nil)
	assert.Equal(t, nil, err)
	assert.Equal(t, "webhook", pub.ID())
	assert.Equal(t, TypeHTTP, pub.Type())
}

func TestRegistryUnknownType(t *testing.T) {
	reg := DefaultRegistry()

	_, err := reg.PublisherFor(context.Background(), Config{ID: "x", Type: "smtp"}, nil)
	assert.NotEqual(t, nil, err)
}

func TestBuildAllStopsOnFirstError(t *testing.T) {
	reg := NewRegistry(map[string]Builder{
		"ok": func(context.Context, Config, logger.Logger) (Publisher, error) {
			return &fakePublisher{id: "ok"}, nil
		},
		"broken": func(context.Context, Config, logger.Logger) (Publisher, error) {
			return nil, errors.New("cannot build")
		},
	})

	cfgs := []Config{{ID: "a", Type: "ok"}, {ID: "b", Type: "broken"}}
	_, err := BuildAll(context.Background(), reg, cfgs, nil)
	assert.NotEqual(t, nil, err)
}

func TestPublishAllContinuesPastFailures(t *testing.T) {
	broken := &fakePublisher{id: "broken", err: errors.New("sink down")}
	healthy := &fakePublisher{id: "healthy"}

	evt := SentimentEvent{Ticker: "RELIANCE", Label: domain.LabelPositive}
	err := PublishAll(context.Background(), []Publisher{broken, healthy}, evt, nil)

	assert.NotEqual(t, nil, err)
	assert.Equal(t, 1, len(healthy.got))
	assert.Equal(t, "RELIANCE", healthy.got[0].Ticker)
}

func TestEventFromResult(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	r := domain.AggregateResult{
		Ticker: "TCS",
		OverallSentiment: domain.SentimentScore{
			Label: domain.LabelPositive, Score: 0.72, Confidence: 0.8,
		},
		TotalArticles: 4,
		LastUpdated:   now,
		Sources: []domain.SourceStatus{
			{Source: "moneycontrol", Status: domain.StatusSuccess, Articles: 3},
			{Source: "livemint", Status: domain.StatusFailed},
			{Source: "economictimes", Status: domain.StatusSuccess, Articles: 1},
		},
	}

	evt := EventFromResult(r)
	assert.Equal(t, "TCS", evt.Ticker)
	assert.Equal(t, domain.LabelPositive, evt.Label)
	assert.Equal(t, 0.72, evt.Score)
	assert.Equal(t, 4, evt.TotalArticles)
	assert.Equal(t, now, evt.GeneratedAt)
	assert.Equal(t, []string{"moneycontrol", "economictimes"}, evt.Sources)
}

type fakeHTTPResponse struct {
	status int
}

func (r fakeHTTPResponse) Body() []byte    { return nil }
func (r fakeHTTPResponse) StatusCode() int { return r.status }

type fakeHTTPClient struct {
	status int
	url    string
	body   any
}

func (c *fakeHTTPClient) Get(context.Context, string, map[string]string) (httpclient.Response, error) {
	return nil, errors.New("unexpected GET")
}

func (c *fakeHTTPClient) Post(_ context.Context, url string, _ map[string]string, body any) (httpclient.Response, error) {
	c.url = url
	c.body = body
	return fakeHTTPResponse{status: c.status}, nil
}

func TestHTTPPublisherPublish(t *testing.T) {
	client := &fakeHTTPClient{status: 202}
	pub := &httpPublisher{
		id:     "webhook",
		typ:    TypeHTTP,
		url:    "https://hooks.example/sentiment",
		method: "POST",
		client: client,
		log:    logger.NopLogger{},
	}

	evt := SentimentEvent{Ticker: "INFY", Label: domain.LabelNegative}
	assert.Equal(t, nil, pub.Publish(context.Background(), evt))
	assert.Equal(t, "https://hooks.example/sentiment", client.url)
	assert.Equal(t, evt, client.body)

	client.status = 500
	assert.NotEqual(t, nil, pub.Publish(context.Background(), evt))
}
