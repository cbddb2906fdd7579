package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/stockpulse-hq/bazaar-pulse/internal/browser"
	"github.com/stockpulse-hq/bazaar-pulse/internal/cache"
	"github.com/stockpulse-hq/bazaar-pulse/internal/domain"
	"github.com/stockpulse-hq/bazaar-pulse/internal/extract"
	"github.com/stockpulse-hq/bazaar-pulse/internal/logger"
	"github.com/stockpulse-hq/bazaar-pulse/internal/ratelimit"
	"github.com/stockpulse-hq/bazaar-pulse/internal/sentiment"
	"github.com/stockpulse-hq/bazaar-pulse/pkg/parsers"
)

// Dedupe modes for merged article lists.
const (
	DedupeNone  = "none"
	DedupeURL   = "url"
	DedupeTitle = "title"
)

const defaultLimit = 20

// SessionPool hands out browser sessions. Exhaustion is an error, not a wait.
type SessionPool interface {
	Acquire() (browser.Session, error)
	Release(s browser.Session)
}

// Navigator is the subset of page navigation the orchestrator drives.
type Navigator interface {
	Navigate(ctx context.Context, s browser.Session, url string) error
	Scroll(ctx context.Context, s browser.Session) bool
}

// Scorer attaches sentiment to article text.
type Scorer interface {
	Score(ctx context.Context, text string) domain.SentimentScore
}

// Limiter is the per-source admission gate.
type Limiter interface {
	Configure(source string, maxRequests int)
	CanMakeRequest(source string) bool
	RecordRequest(source string)
	RecommendedDelay(source string) time.Duration
}

// ResultCache stores aggregate results keyed by ticker and date range.
type ResultCache interface {
	Get(key string, out any) (bool, error)
	Set(key string, v any) error
}

// ResultStore persists aggregate snapshots.
type ResultStore interface {
	Save(result domain.AggregateResult) error
}

// Config tunes the orchestrator.
type Config struct {
	DefaultLimit int
	Dedupe       string // one of DedupeNone, DedupeURL, DedupeTitle
}

// Orchestrator runs one fetch request across every enabled source in priority
// order, merging whatever each source yields. A source failing never fails
// the request; an empty result with per-source statuses is still a result.
type Orchestrator struct {
	sources   []parsers.Source
	registry  parsers.Registry
	pool      SessionPool
	nav       Navigator
	limiter   Limiter
	extractor *extract.Extractor
	scorer    Scorer
	cache     ResultCache
	store     ResultStore
	log       logger.Logger
	cfg       Config

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New wires the orchestrator and registers every source with the rate
// limiter. Cache and store are optional; a nil limiter defaults to a fresh
// one.
func New(
	sources []parsers.Source,
	registry parsers.Registry,
	pool SessionPool,
	nav Navigator,
	limiter Limiter,
	scorer Scorer,
	resultCache ResultCache,
	resultStore ResultStore,
	cfg Config,
	log logger.Logger,
) *Orchestrator {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = defaultLimit
	}
	switch cfg.Dedupe {
	case DedupeNone, DedupeURL, DedupeTitle:
	default:
		cfg.Dedupe = DedupeNone
	}
	if limiter == nil {
		limiter = ratelimit.New()
	}
	log = logger.Ensure(log)

	for _, src := range sources {
		limiter.Configure(src.Name, src.MaxRequestsPerHour)
	}

	return &Orchestrator{
		sources:   sources,
		registry:  registry,
		pool:      pool,
		nav:       nav,
		limiter:   limiter,
		extractor: extract.NewExtractor(extract.DefaultRules(), log),
		scorer:    scorer,
		cache:     resultCache,
		store:     resultStore,
		log:       log,
		cfg:       cfg,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// FetchNews collects, scores, and aggregates news for the ticker. limit <= 0
// falls back to the configured default.
func (o *Orchestrator) FetchNews(ctx context.Context, ticker string, dateRange domain.DateRange, limit int) (domain.AggregateResult, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return domain.AggregateResult{}, errors.New("orchestrator: ticker is empty")
	}
	if limit <= 0 {
		limit = o.cfg.DefaultLimit
	}

	sources := o.orderedSources()
	parserFor, err := o.resolveParsers(sources)
	if err != nil {
		return domain.AggregateResult{}, err
	}

	key := cache.Key(ticker, dateRange)
	if o.cache != nil {
		var cached domain.AggregateResult
		hit, err := o.cache.Get(key, &cached)
		if err != nil {
			o.log.WarnObj("cache read failed", "cache_read_error", map[string]any{
				"ticker": ticker,
				"error":  err.Error(),
			})
		} else if hit {
			o.log.InfoObj("serving cached sentiment result", "cache_hit", map[string]any{
				"ticker":   ticker,
				"articles": cached.TotalArticles,
			})
			return cached, nil
		}
	}

	var (
		collected []domain.Article
		statuses  []domain.SourceStatus
	)

	for _, src := range sources {
		if len(collected) >= limit {
			break
		}

		status := o.fetchSource(ctx, src, parserFor[src.Name], ticker, dateRange, limit-len(collected), &collected)
		statuses = append(statuses, status)

		if ctx.Err() != nil {
			break
		}
	}

	articles := o.mergeArticles(collected, limit)

	now := o.now()
	result := domain.AggregateResult{
		Ticker:           ticker,
		OverallSentiment: sentiment.Aggregate(now, articles),
		Articles:         articles,
		TotalArticles:    len(articles),
		Breakdown:        sentiment.Breakdown(articles),
		LastUpdated:      now,
		Message:          resultMessage(len(articles), statuses),
		Sources:          statuses,
	}

	o.persist(key, result)
	return result, nil
}

// resolveParsers looks up the parser for every source before any crawling
// starts. A source without a registry entry is a configuration error and
// fails the whole request, unlike runtime per-source failures.
func (o *Orchestrator) resolveParsers(sources []parsers.Source) (map[string]parsers.Parser, error) {
	byName := make(map[string]parsers.Parser, len(sources))
	for _, src := range sources {
		parser, err := o.registry.ParserFor(src.Name)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", src.Name, err)
		}
		byName[src.Name] = parser
	}
	return byName, nil
}

// fetchSource runs the whole pipeline for one source and appends whatever it
// produced to collected. The returned status captures the outcome.
func (o *Orchestrator) fetchSource(ctx context.Context, src parsers.Source, parser parsers.Parser, ticker string, dateRange domain.DateRange, want int, collected *[]domain.Article) domain.SourceStatus {
	status := domain.SourceStatus{Source: src.Name}

	if !o.limiter.CanMakeRequest(src.Name) {
		o.log.WarnObj("source skipped, hourly budget exhausted", "source_rate_limited", map[string]any{
			"source": src.Name,
			"ticker": ticker,
		})
		status.Status = domain.StatusSkipped
		status.Error = "hourly request budget exhausted"
		return status
	}

	session, err := o.pool.Acquire()
	if err != nil {
		o.log.WarnObj("source skipped, no browser session available", "source_no_session", map[string]any{
			"source": src.Name,
			"error":  err.Error(),
		})
		status.Status = domain.StatusFailed
		status.Error = err.Error()
		return status
	}
	defer o.pool.Release(session)

	// Articles fetched before a mid-crawl failure are kept; the status still
	// records the failure.
	articles, err := o.crawlSource(ctx, session, parser, src, ticker, dateRange, want)
	*collected = append(*collected, articles...)
	status.Articles = len(articles)
	if err != nil {
		status.Status = domain.StatusFailed
		status.Error = err.Error()
		return status
	}

	status.Status = domain.StatusSuccess

	o.log.InfoObj("source crawl finished", "source_done", map[string]any{
		"source":   src.Name,
		"ticker":   ticker,
		"articles": len(articles),
	})
	return status
}

// crawlSource loads the search page, then visits result articles one by one
// until the source budget, the article cap, or the want count is hit.
func (o *Orchestrator) crawlSource(ctx context.Context, session browser.Session, parser parsers.Parser, src parsers.Source, ticker string, dateRange domain.DateRange, want int) ([]domain.Article, error) {
	searchURL := src.SearchFor(ticker)
	if err := o.nav.Navigate(ctx, session, searchURL); err != nil {
		return nil, fmt.Errorf("load search page: %w", err)
	}
	o.limiter.RecordRequest(src.Name)
	o.nav.Scroll(ctx, session)

	html, err := session.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("read search page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}

	results, err := parser.ParseSearchResults(doc)
	if err != nil {
		return nil, fmt.Errorf("parse search results: %w", err)
	}

	results = o.relevantResults(parser, results, ticker)
	if len(results) > src.MaxArticles {
		results = results[:src.MaxArticles]
	}
	if len(results) > want {
		results = results[:want]
	}

	var articles []domain.Article
	for i, res := range results {
		if !o.limiter.CanMakeRequest(src.Name) {
			o.log.WarnObj("stopping crawl, hourly budget exhausted", "crawl_budget_stop", map[string]any{
				"source":  src.Name,
				"fetched": len(articles),
			})
			break
		}
		if i > 0 {
			if err := o.sleep(ctx, o.limiter.RecommendedDelay(src.Name)); err != nil {
				return articles, err
			}
		}

		article, ok := o.fetchArticle(ctx, session, parser, src, res)
		o.limiter.RecordRequest(src.Name)
		if !ok {
			continue
		}

		if !dateRange.IsZero() && !article.PublishedAt.IsZero() && !dateRange.Contains(article.PublishedAt) {
			continue
		}

		o.finalizeArticle(ctx, &article, parser, src, ticker)
		articles = append(articles, article)
	}
	return articles, nil
}

// fetchArticle loads one article page and parses it. Failures are logged and
// reported as a skip; the crawl moves on to the next result.
func (o *Orchestrator) fetchArticle(ctx context.Context, session browser.Session, parser parsers.Parser, src parsers.Source, res parsers.SearchResult) (domain.Article, bool) {
	skip := func(reason string, err error) (domain.Article, bool) {
		fields := map[string]any{
			"source": src.Name,
			"url":    res.URL,
			"reason": reason,
		}
		if err != nil {
			fields["error"] = err.Error()
		}
		o.log.WarnObj("article skipped", "article_skipped", fields)
		return domain.Article{}, false
	}

	if err := o.nav.Navigate(ctx, session, res.URL); err != nil {
		return skip("navigation failed", err)
	}

	html, err := session.HTML(ctx)
	if err != nil {
		return skip("page read failed", err)
	}

	content, err := o.extractor.Extract(html, res.URL)
	if err != nil {
		return skip("extraction failed", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return skip("html parse failed", err)
	}

	article, err := parser.ParseArticle(doc, res.URL)
	if err != nil {
		return skip("article parse failed", err)
	}

	mergeExtracted(&article, content, res, o.now())

	if v := parser.ValidateData(article); !v.IsValid {
		return skip("validation failed: "+strings.Join(v.Errors, "; "), nil)
	}
	return article, true
}

// mergeExtracted backfills parser gaps from the generic extractor and the
// search result entry.
func mergeExtracted(a *domain.Article, c extract.Content, res parsers.SearchResult, now time.Time) {
	if a.Title == "" {
		a.Title = c.Title
	}
	if a.Title == "" {
		a.Title = res.Title
	}
	if a.Content == "" {
		a.Content = c.Body
	}
	if a.Summary == "" {
		a.Summary = c.Description
	}
	if a.Summary == "" {
		a.Summary = res.Summary
	}
	if a.Author == "" {
		a.Author = c.AuthorHint
	}
	if a.PublishedAt.IsZero() && c.DateHint != "" {
		if t, ok := parsers.ParseArticleDate(c.DateHint, nil, now); ok {
			a.PublishedAt = t
		}
	}
	if len(a.Tags) == 0 {
		a.Tags = c.Keywords
	}
}

// finalizeArticle stamps source attribution, symbols, relevance, and
// sentiment onto a parsed article.
func (o *Orchestrator) finalizeArticle(ctx context.Context, a *domain.Article, parser parsers.Parser, src parsers.Source, ticker string) {
	a.Source = src.Name
	a.SourcePriority = src.Priority
	a.SourceWeight = src.Reliability

	if len(a.Symbols) == 0 {
		a.Symbols = parser.ExtractStockSymbols(a.Title + " " + a.Content)
	}
	a.RelevanceScore = relevanceScore(*a, ticker)

	score := o.scorer.Score(ctx, a.Title+". "+a.Content)
	a.Sentiment = &score
}

// relevanceScore is a cheap heuristic: direct ticker mentions in the title
// weigh most, then symbol matches, then body mentions.
func relevanceScore(a domain.Article, ticker string) float64 {
	lower := strings.ToLower(ticker)
	score := 0.3

	if strings.Contains(strings.ToLower(a.Title), lower) {
		score += 0.4
	}
	for _, sym := range a.Symbols {
		if strings.EqualFold(sym, ticker) {
			score += 0.2
			break
		}
	}
	if strings.Contains(strings.ToLower(a.Content), lower) {
		score += 0.1
	}

	if score > 1 {
		score = 1
	}
	return score
}

// relevantResults keeps search entries that mention the ticker or pass the
// parser's relevance heuristic.
func (o *Orchestrator) relevantResults(parser parsers.Parser, results []parsers.SearchResult, ticker string) []parsers.SearchResult {
	lower := strings.ToLower(ticker)
	out := results[:0]
	for _, res := range results {
		text := res.Title + " " + res.Summary
		if strings.Contains(strings.ToLower(text), lower) || parser.IsStockRelevant(text) {
			out = append(out, res)
		}
	}
	return out
}

// orderedSources returns the enabled sources in ascending priority order.
func (o *Orchestrator) orderedSources() []parsers.Source {
	out := make([]parsers.Source, 0, len(o.sources))
	for _, src := range o.sources {
		if src.EnabledValue() {
			out = append(out, src)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// mergeArticles orders the combined list, applies the configured dedupe mode,
// and truncates to the limit. Ordering: source priority, then relevance, then
// recency.
func (o *Orchestrator) mergeArticles(articles []domain.Article, limit int) []domain.Article {
	sort.SliceStable(articles, func(i, j int) bool {
		if articles[i].SourcePriority != articles[j].SourcePriority {
			return articles[i].SourcePriority < articles[j].SourcePriority
		}
		if articles[i].RelevanceScore != articles[j].RelevanceScore {
			return articles[i].RelevanceScore > articles[j].RelevanceScore
		}
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})

	articles = o.dedupe(articles)
	if len(articles) > limit {
		articles = articles[:limit]
	}
	return articles
}

func (o *Orchestrator) dedupe(articles []domain.Article) []domain.Article {
	if o.cfg.Dedupe == DedupeNone {
		return articles
	}

	seen := make(map[string]struct{}, len(articles))
	out := articles[:0]
	for _, a := range articles {
		var key string
		switch o.cfg.Dedupe {
		case DedupeURL:
			key = a.URL
		case DedupeTitle:
			key = strings.ToLower(extract.CollapseWhitespace(a.Title))
		}
		if key == "" {
			out = append(out, a)
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}

// persist writes the result to the cache and store. Both are best-effort:
// the result is already in hand and a storage hiccup must not lose it.
func (o *Orchestrator) persist(key string, result domain.AggregateResult) {
	if o.cache != nil {
		if err := o.cache.Set(key, result); err != nil {
			o.log.WarnObj("cache write failed", "cache_write_error", map[string]any{
				"ticker": result.Ticker,
				"error":  err.Error(),
			})
		}
	}
	if o.store != nil {
		if err := o.store.Save(result); err != nil {
			o.log.WarnObj("history write failed", "store_write_error", map[string]any{
				"ticker": result.Ticker,
				"error":  err.Error(),
			})
		}
	}
}

func resultMessage(total int, statuses []domain.SourceStatus) string {
	if total == 0 {
		return "No news articles found from any source"
	}

	succeeded := 0
	for _, s := range statuses {
		if s.Status == domain.StatusSuccess && s.Articles > 0 {
			succeeded++
		}
	}
	return fmt.Sprintf("Found %d articles from %d sources", total, succeeded)
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
