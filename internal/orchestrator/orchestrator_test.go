package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-playground/assert/v2"

	"github.com/stockpulse-hq/bazaar-pulse/internal/browser"
	"github.com/stockpulse-hq/bazaar-pulse/internal/domain"
	"github.com/stockpulse-hq/bazaar-pulse/internal/extract"
	"github.com/stockpulse-hq/bazaar-pulse/internal/ratelimit"
	"github.com/stockpulse-hq/bazaar-pulse/pkg/parsers"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeSession struct {
	id      string
	lastURL string
	navErr  map[string]error
}

func (s *fakeSession) ID() string    { return s.id }
func (s *fakeSession) Alive() bool   { return true }
func (s *fakeSession) Close()        {}
func (s *fakeSession) Scroll(context.Context) error { return nil }

func (s *fakeSession) Navigate(_ context.Context, url string) error {
	if err := s.navErr[url]; err != nil {
		return err
	}
	s.lastURL = url
	return nil
}

func (s *fakeSession) HTML(context.Context) (string, error) {
	return "<html><body><p>page for " + s.lastURL + "</p></body></html>", nil
}

func (s *fakeSession) WaitForElement(context.Context, string, time.Duration) error { return nil }
func (s *fakeSession) Click(context.Context, string) error                         { return nil }
func (s *fakeSession) FillInput(context.Context, string, string) error             { return nil }

type fakePool struct {
	session  browser.Session
	err      error
	acquired int
	released int
}

func (p *fakePool) Acquire() (browser.Session, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.acquired++
	return p.session, nil
}

func (p *fakePool) Release(browser.Session) { p.released++ }

type fakeNav struct{}

func (fakeNav) Navigate(ctx context.Context, s browser.Session, url string) error {
	return s.Navigate(ctx, url)
}

func (fakeNav) Scroll(context.Context, browser.Session) bool { return true }

type fakeScorer struct {
	scores map[string]domain.SentimentScore
}

func (f *fakeScorer) Score(_ context.Context, text string) domain.SentimentScore {
	lower := strings.ToLower(text)
	for key, score := range f.scores {
		if key != "" && strings.Contains(lower, strings.ToLower(key)) {
			return score
		}
	}
	return domain.SentimentScore{Label: domain.LabelNeutral, Score: 0.5, Confidence: 0.5}
}

type fakeParser struct {
	src      parsers.Source
	search   []parsers.SearchResult
	articles map[string]domain.Article
	invalid  map[string]bool
}

func (p *fakeParser) Name() string   { return p.src.Name }
func (p *fakeParser) Config() parsers.Source { return p.src }

func (p *fakeParser) ParseSearchResults(*goquery.Document) ([]parsers.SearchResult, error) {
	return p.search, nil
}

func (p *fakeParser) ParseArticle(_ *goquery.Document, url string) (domain.Article, error) {
	a, ok := p.articles[url]
	if !ok {
		return domain.Article{}, errors.New("article fields missing")
	}
	return a, nil
}

func (p *fakeParser) ExtractStockSymbols(string) []string { return nil }
func (p *fakeParser) IsStockRelevant(string) bool         { return false }

func (p *fakeParser) ValidateData(a domain.Article) extract.Validation {
	if p.invalid[a.URL] {
		return extract.Validation{IsValid: false, Errors: []string{"content too short"}}
	}
	return extract.Validation{IsValid: true}
}

type memCache struct {
	data map[string][]byte
}

func (c *memCache) Get(key string, out any) (bool, error) {
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

func (c *memCache) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if c.data == nil {
		c.data = map[string][]byte{}
	}
	c.data[key] = raw
	return nil
}

type memStore struct {
	saved []domain.AggregateResult
}

func (s *memStore) Save(r domain.AggregateResult) error {
	s.saved = append(s.saved, r)
	return nil
}

func testSource(name string, priority int) parsers.Source {
	return parsers.Source{
		Name:               name,
		BaseURL:            "https://" + name + ".example",
		SearchURL:          "https://" + name + ".example/search/{query}",
		Priority:           priority,
		MaxRequestsPerHour: 30,
		Reliability:        1.0,
		MaxArticles:        5,
	}
}

func newsArticle(url, title string, published time.Time) domain.Article {
	return domain.Article{
		ID:          url,
		Title:       title,
		Content:     "Quarterly numbers for RELIANCE came in ahead of street estimates by a wide margin.",
		URL:         url,
		PublishedAt: published,
	}
}

func buildOrchestrator(t *testing.T, sources []parsers.Source, reg parsers.Registry, pool SessionPool, scorer Scorer, c ResultCache, s ResultStore, cfg Config) *Orchestrator {
	t.Helper()

	o := New(sources, reg, pool, fakeNav{}, ratelimit.New(), scorer, c, s, cfg, nil)
	o.now = func() time.Time { return testNow }
	o.sleep = func(context.Context, time.Duration) error { return nil }
	return o
}

func TestFetchNewsAggregatesAcrossSources(t *testing.T) {
	primary := &fakeParser{
		src: testSource("moneycontrol", 1),
		search: []parsers.SearchResult{
			{URL: "https://moneycontrol.example/a1", Title: "RELIANCE profit surges"},
			{URL: "https://moneycontrol.example/a2", Title: "RELIANCE outlook strong"},
		},
		articles: map[string]domain.Article{
			"https://moneycontrol.example/a1": newsArticle("https://moneycontrol.example/a1", "RELIANCE profit surges", testNow),
			"https://moneycontrol.example/a2": newsArticle("https://moneycontrol.example/a2", "RELIANCE outlook strong", testNow),
		},
	}
	secondary := &fakeParser{
		src: testSource("livemint", 2),
		search: []parsers.SearchResult{
			{URL: "https://livemint.example/b1", Title: "RELIANCE faces margin pressure"},
		},
		articles: map[string]domain.Article{
			"https://livemint.example/b1": newsArticle("https://livemint.example/b1", "RELIANCE faces margin pressure", testNow),
		},
	}

	reg := parsers.NewRegistry(primary, secondary)
	pool := &fakePool{session: &fakeSession{id: "s1"}}
	scorer := &fakeScorer{scores: map[string]domain.SentimentScore{
		"profit surges":   {Label: domain.LabelPositive, Score: 0.85, Confidence: 0.9},
		"outlook strong":  {Label: domain.LabelPositive, Score: 0.70, Confidence: 0.8},
		"margin pressure": {Label: domain.LabelNegative, Score: 0.30, Confidence: 0.7},
	}}
	c := &memCache{}
	st := &memStore{}

	o := buildOrchestrator(t, []parsers.Source{secondary.src, primary.src}, reg, pool, scorer, c, st, Config{})

	result, err := o.FetchNews(context.Background(), "reliance", domain.DateRange{}, 10)
	assert.Equal(t, nil, err)

	assert.Equal(t, "RELIANCE", result.Ticker)
	assert.Equal(t, 3, result.TotalArticles)
	assert.Equal(t, domain.LabelPositive, result.OverallSentiment.Label)
	assert.Equal(t, 2, result.Breakdown.Positive)
	assert.Equal(t, 1, result.Breakdown.Negative)
	assert.Equal(t, "Found 3 articles from 2 sources", result.Message)

	// Priority 1 source comes first despite config order.
	assert.Equal(t, "moneycontrol", result.Sources[0].Source)
	assert.Equal(t, domain.StatusSuccess, result.Sources[0].Status)
	assert.Equal(t, "moneycontrol", result.Articles[0].Source)

	// Sessions returned for every acquire.
	assert.Equal(t, pool.acquired, pool.released)

	// Result persisted to cache and history.
	assert.Equal(t, 1, len(st.saved))
	assert.Equal(t, 1, len(c.data))
}

func TestFetchNewsServesFromCache(t *testing.T) {
	c := &memCache{}
	cached := domain.AggregateResult{Ticker: "TCS", TotalArticles: 7, Message: "Found 7 articles from 2 sources"}
	if err := c.Set("TCS", cached); err != nil {
		t.Fatal(err)
	}

	// Pool errors if touched; a cache hit must not crawl.
	pool := &fakePool{err: errors.New("must not acquire")}
	o := buildOrchestrator(t, nil, parsers.NewRegistry(), pool, &fakeScorer{}, c, nil, Config{})

	result, err := o.FetchNews(context.Background(), "tcs", domain.DateRange{}, 5)
	assert.Equal(t, nil, err)
	assert.Equal(t, 7, result.TotalArticles)
}

func TestFetchNewsRateLimitedSourceSkipped(t *testing.T) {
	limited := testSource("moneycontrol", 1)
	limited.MaxRequestsPerHour = 0 // no budget at all

	p := &fakeParser{src: limited}
	backup := &fakeParser{
		src: testSource("livemint", 2),
		search: []parsers.SearchResult{
			{URL: "https://livemint.example/b1", Title: "RELIANCE steady quarter"},
		},
		articles: map[string]domain.Article{
			"https://livemint.example/b1": newsArticle("https://livemint.example/b1", "RELIANCE steady quarter", testNow),
		},
	}

	reg := parsers.NewRegistry(p, backup)
	pool := &fakePool{session: &fakeSession{id: "s1"}}
	o := buildOrchestrator(t, []parsers.Source{limited, backup.src}, reg, pool, &fakeScorer{}, nil, nil, Config{})

	result, err := o.FetchNews(context.Background(), "RELIANCE", domain.DateRange{}, 10)
	assert.Equal(t, nil, err)

	assert.Equal(t, domain.StatusSkipped, result.Sources[0].Status)
	assert.Equal(t, domain.StatusSuccess, result.Sources[1].Status)
	assert.Equal(t, 1, result.TotalArticles)
}

func TestFetchNewsPoolExhaustedMarksFailed(t *testing.T) {
	p := &fakeParser{src: testSource("moneycontrol", 1)}

	pool := &fakePool{err: browser.ErrPoolExhausted}
	o := buildOrchestrator(t, []parsers.Source{p.src}, parsers.NewRegistry(p), pool, &fakeScorer{}, nil, nil, Config{})

	result, err := o.FetchNews(context.Background(), "RELIANCE", domain.DateRange{}, 10)
	assert.Equal(t, nil, err)

	assert.Equal(t, domain.StatusFailed, result.Sources[0].Status)
	assert.Equal(t, 0, result.TotalArticles)
	assert.Equal(t, "No news articles found from any source", result.Message)
	assert.Equal(t, domain.LabelNeutral, result.OverallSentiment.Label)
	assert.Equal(t, 0.5, result.OverallSentiment.Score)
}

func TestFetchNewsUnregisteredSourceAborts(t *testing.T) {
	registered := &fakeParser{src: testSource("moneycontrol", 1)}
	unregistered := testSource("unknownsite", 2)
	pool := &fakePool{session: &fakeSession{id: "s1"}}

	o := buildOrchestrator(t, []parsers.Source{registered.src, unregistered}, parsers.NewRegistry(registered), pool, &fakeScorer{}, nil, nil, Config{})

	_, err := o.FetchNews(context.Background(), "RELIANCE", domain.DateRange{}, 10)
	if !errors.Is(err, parsers.ErrParserNotFound) {
		t.Fatalf("want ErrParserNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "unknownsite") {
		t.Fatalf("error should name the misconfigured source, got %q", err)
	}
	// A configuration error surfaces before any crawling starts.
	assert.Equal(t, 0, pool.acquired)
}

func TestFetchNewsKeepsArticlesFromInterruptedCrawl(t *testing.T) {
	p := &fakeParser{
		src: testSource("moneycontrol", 1),
		search: []parsers.SearchResult{
			{URL: "https://moneycontrol.example/first", Title: "RELIANCE first take"},
			{URL: "https://moneycontrol.example/second", Title: "RELIANCE second take"},
		},
		articles: map[string]domain.Article{
			"https://moneycontrol.example/first":  newsArticle("https://moneycontrol.example/first", "RELIANCE first take", testNow),
			"https://moneycontrol.example/second": newsArticle("https://moneycontrol.example/second", "RELIANCE second take", testNow),
		},
	}

	pool := &fakePool{session: &fakeSession{id: "s1"}}
	o := buildOrchestrator(t, []parsers.Source{p.src}, parsers.NewRegistry(p), pool, &fakeScorer{}, nil, nil, Config{})
	// The inter-article pause fails, cutting the crawl short after one article.
	o.sleep = func(context.Context, time.Duration) error { return context.Canceled }

	result, err := o.FetchNews(context.Background(), "RELIANCE", domain.DateRange{}, 10)
	assert.Equal(t, nil, err)

	assert.Equal(t, domain.StatusFailed, result.Sources[0].Status)
	assert.Equal(t, 1, result.Sources[0].Articles)
	assert.Equal(t, 1, result.TotalArticles)
	assert.Equal(t, "RELIANCE first take", result.Articles[0].Title)
	assert.Equal(t, pool.acquired, pool.released)
}

func TestFetchNewsDateRangeFilters(t *testing.T) {
	p := &fakeParser{
		src: testSource("moneycontrol", 1),
		search: []parsers.SearchResult{
			{URL: "https://moneycontrol.example/old", Title: "RELIANCE archive piece"},
			{URL: "https://moneycontrol.example/new", Title: "RELIANCE fresh news"},
		},
		articles: map[string]domain.Article{
			"https://moneycontrol.example/old": newsArticle("https://moneycontrol.example/old", "RELIANCE archive piece", testNow.AddDate(0, -2, 0)),
			"https://moneycontrol.example/new": newsArticle("https://moneycontrol.example/new", "RELIANCE fresh news", testNow.AddDate(0, 0, -1)),
		},
	}

	pool := &fakePool{session: &fakeSession{id: "s1"}}
	o := buildOrchestrator(t, []parsers.Source{p.src}, parsers.NewRegistry(p), pool, &fakeScorer{}, nil, nil, Config{})

	r := domain.DateRange{From: testNow.AddDate(0, 0, -7)}
	result, err := o.FetchNews(context.Background(), "RELIANCE", r, 10)
	assert.Equal(t, nil, err)

	assert.Equal(t, 1, result.TotalArticles)
	assert.Equal(t, "RELIANCE fresh news", result.Articles[0].Title)
}

func TestFetchNewsInvalidArticleSkipped(t *testing.T) {
	p := &fakeParser{
		src: testSource("moneycontrol", 1),
		search: []parsers.SearchResult{
			{URL: "https://moneycontrol.example/bad", Title: "RELIANCE stub page"},
			{URL: "https://moneycontrol.example/good", Title: "RELIANCE full story"},
		},
		articles: map[string]domain.Article{
			"https://moneycontrol.example/bad":  newsArticle("https://moneycontrol.example/bad", "RELIANCE stub page", testNow),
			"https://moneycontrol.example/good": newsArticle("https://moneycontrol.example/good", "RELIANCE full story", testNow),
		},
		invalid: map[string]bool{"https://moneycontrol.example/bad": true},
	}

	pool := &fakePool{session: &fakeSession{id: "s1"}}
	o := buildOrchestrator(t, []parsers.Source{p.src}, parsers.NewRegistry(p), pool, &fakeScorer{}, nil, nil, Config{})

	result, err := o.FetchNews(context.Background(), "RELIANCE", domain.DateRange{}, 10)
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, result.TotalArticles)
	assert.Equal(t, "RELIANCE full story", result.Articles[0].Title)
}

func TestFetchNewsNavigationFailureSkipsArticle(t *testing.T) {
	session := &fakeSession{
		id:     "s1",
		navErr: map[string]error{"https://moneycontrol.example/broken": errors.New("timeout")},
	}
	p := &fakeParser{
		src: testSource("moneycontrol", 1),
		search: []parsers.SearchResult{
			{URL: "https://moneycontrol.example/broken", Title: "RELIANCE page that hangs"},
			{URL: "https://moneycontrol.example/ok", Title: "RELIANCE page that loads"},
		},
		articles: map[string]domain.Article{
			"https://moneycontrol.example/ok": newsArticle("https://moneycontrol.example/ok", "RELIANCE page that loads", testNow),
		},
	}

	pool := &fakePool{session: session}
	o := buildOrchestrator(t, []parsers.Source{p.src}, parsers.NewRegistry(p), pool, &fakeScorer{}, nil, nil, Config{})

	result, err := o.FetchNews(context.Background(), "RELIANCE", domain.DateRange{}, 10)
	assert.Equal(t, nil, err)
	assert.Equal(t, domain.StatusSuccess, result.Sources[0].Status)
	assert.Equal(t, 1, result.TotalArticles)
}

func TestFetchNewsLimitTruncates(t *testing.T) {
	articles := map[string]domain.Article{}
	var search []parsers.SearchResult
	for _, u := range []string{"a", "b", "c", "d"} {
		url := "https://moneycontrol.example/" + u
		search = append(search, parsers.SearchResult{URL: url, Title: "RELIANCE update " + u})
		articles[url] = newsArticle(url, "RELIANCE update "+u, testNow)
	}
	p := &fakeParser{src: testSource("moneycontrol", 1), search: search, articles: articles}

	pool := &fakePool{session: &fakeSession{id: "s1"}}
	o := buildOrchestrator(t, []parsers.Source{p.src}, parsers.NewRegistry(p), pool, &fakeScorer{}, nil, nil, Config{})

	result, err := o.FetchNews(context.Background(), "RELIANCE", domain.DateRange{}, 2)
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, result.TotalArticles)
}

func TestFetchNewsDedupeByURL(t *testing.T) {
	dup := "https://moneycontrol.example/same"
	p := &fakeParser{
		src: testSource("moneycontrol", 1),
		search: []parsers.SearchResult{
			{URL: dup, Title: "RELIANCE story"},
			{URL: "https://moneycontrol.example/other", Title: "RELIANCE other story"},
			{URL: dup, Title: "RELIANCE story again"},
		},
		articles: map[string]domain.Article{
			dup:                                 newsArticle(dup, "RELIANCE story", testNow),
			"https://moneycontrol.example/other": newsArticle("https://moneycontrol.example/other", "RELIANCE other story", testNow),
		},
	}

	pool := &fakePool{session: &fakeSession{id: "s1"}}
	o := buildOrchestrator(t, []parsers.Source{p.src}, parsers.NewRegistry(p), pool, &fakeScorer{}, nil, nil, Config{Dedupe: DedupeURL})

	result, err := o.FetchNews(context.Background(), "RELIANCE", domain.DateRange{}, 10)
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, result.TotalArticles)
}

func TestFetchNewsEmptyTicker(t *testing.T) {
	o := buildOrchestrator(t, nil, parsers.NewRegistry(), &fakePool{}, &fakeScorer{}, nil, nil, Config{})

	_, err := o.FetchNews(context.Background(), "  ", domain.DateRange{}, 5)
	assert.NotEqual(t, nil, err)
}
