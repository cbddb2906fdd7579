package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/stockpulse-hq/bazaar-pulse/internal/browser"
	"github.com/stockpulse-hq/bazaar-pulse/internal/cache"
	"github.com/stockpulse-hq/bazaar-pulse/internal/config"
	"github.com/stockpulse-hq/bazaar-pulse/internal/domain"
	"github.com/stockpulse-hq/bazaar-pulse/internal/logger"
	"github.com/stockpulse-hq/bazaar-pulse/internal/orchestrator"
	"github.com/stockpulse-hq/bazaar-pulse/internal/ratelimit"
	"github.com/stockpulse-hq/bazaar-pulse/internal/sentiment"
	"github.com/stockpulse-hq/bazaar-pulse/internal/store"
	"github.com/stockpulse-hq/bazaar-pulse/pkg/parsers"
	"github.com/stockpulse-hq/bazaar-pulse/pkg/publishers"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config file (optional)")
		ticker     = flag.String("ticker", "", "stock ticker to fetch news for (required)")
		limit      = flag.Int("limit", 0, "maximum articles to return (0 uses the configured default)")
		fromStr    = flag.String("from", "", "earliest publish date, YYYY-MM-DD (optional)")
		toStr      = flag.String("to", "", "latest publish date, YYYY-MM-DD (optional)")
		historyN   = flag.Int("history", 0, "print the N most recent stored results for the ticker and exit")
	)
	flag.Parse()

	if *ticker == "" {
		fmt.Fprintln(os.Stderr, "usage: engine -ticker SYMBOL [-config path] [-limit n] [-from YYYY-MM-DD] [-to YYYY-MM-DD] [-history n]")
		os.Exit(2)
	}

	if err := run(*configPath, *ticker, *limit, *historyN, *fromStr, *toStr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath, ticker string, limit, historyN int, fromStr, toStr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Debug)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if historyN > 0 {
		return printHistory(cfg, ticker, historyN)
	}

	dateRange, err := parseDateRange(fromStr, toStr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sources, err := parsers.LoadSources(cfg.SourcesFile)
	if err != nil {
		return err
	}
	registry := parsers.DefaultRegistry(sources)

	pool, err := browser.NewPool(ctx, cfg.Browser.PoolSize, browser.NewChromeFactory(cfg.Browser.OpTimeout), log)
	if err != nil {
		return err
	}
	defer pool.Close()

	nav := browser.NewNavigator(browser.NavigatorConfig{
		MaxAttempts:       cfg.Browser.MaxAttempts,
		BackoffBase:       cfg.Browser.BackoffBase,
		BackoffMultiplier: cfg.Browser.BackoffMultiplier,
	}, log)

	var classifier sentiment.Classifier
	if cfg.Classifier.Endpoint != "" {
		classifier = sentiment.NewHTTPClassifier(sentiment.ClassifierConfig{
			Endpoint: cfg.Classifier.Endpoint,
			APIKey:   cfg.Classifier.APIKey,
			Spacing:  cfg.Classifier.Spacing,
			Cooldown: cfg.Classifier.Cooldown,
			Timeout:  cfg.Classifier.Timeout,
		}, log)
	} else {
		log.InfoObj("no classifier endpoint configured, using keyword scoring", "classifier_fallback", nil)
	}
	scorer := sentiment.NewScorer(classifier, log)

	resultCache, err := openCache(cfg)
	if err != nil {
		return err
	}
	if resultCache != nil {
		defer resultCache.Close()
	}

	resultStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	if resultStore != nil {
		defer resultStore.Close()
	}

	pubs, err := buildPublishers(ctx, cfg.PublishersFile, log)
	if err != nil {
		return err
	}

	orch := orchestrator.New(
		sources,
		registry,
		pool,
		nav,
		ratelimit.New(),
		scorer,
		asCache(resultCache),
		asStore(resultStore),
		orchestrator.Config{DefaultLimit: cfg.DefaultLimit, Dedupe: cfg.Dedupe},
		log,
	)

	result, err := orch.FetchNews(ctx, ticker, dateRange, limit)
	if err != nil {
		return err
	}

	if len(pubs) > 0 {
		if err := publishers.PublishAll(ctx, pubs, publishers.EventFromResult(result), log); err != nil {
			log.WarnObj("some publishers failed", "publish_partial_failure", map[string]any{
				"error": err.Error(),
			})
		}
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(out))

	log.InfoObj("fetch complete", "fetch_done", map[string]any{
		"ticker":    result.Ticker,
		"articles":  result.TotalArticles,
		"sentiment": result.OverallSentiment.Label,
	})
	return nil
}

func parseDateRange(fromStr, toStr string) (domain.DateRange, error) {
	var r domain.DateRange

	if fromStr != "" {
		t, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return r, fmt.Errorf("parse -from: %w", err)
		}
		r.From = t
	}
	if toStr != "" {
		t, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return r, fmt.Errorf("parse -to: %w", err)
		}
		// Inclusive through the end of the day.
		r.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return r, fmt.Errorf("-to %s is before -from %s", toStr, fromStr)
	}
	return r, nil
}

// printHistory dumps the stored sentiment snapshots for the ticker instead of
// running a fetch.
func printHistory(cfg config.Config, ticker string, n int) error {
	if cfg.StorePath == "" {
		return errors.New("no store_path configured, history is unavailable")
	}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return err
	}
	defer st.Close()

	results, err := st.History(ticker, n)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func openCache(cfg config.Config) (*cache.Cache, error) {
	if cfg.CachePath == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.CachePath), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return cache.Open(cfg.CachePath, cfg.CacheTTL)
}

func openStore(cfg config.Config) (*store.Store, error) {
	if cfg.StorePath == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.StorePath), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return store.Open(cfg.StorePath)
}

func buildPublishers(ctx context.Context, path string, log logger.Logger) ([]publishers.Publisher, error) {
	if path == "" {
		return nil, nil
	}

	reg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, err
	}
	return publishers.BuildAll(ctx, publishers.DefaultRegistry(), reg.Enabled(), log)
}

// asCache and asStore avoid handing the orchestrator a typed nil when the
// feature is disabled.
func asCache(c *cache.Cache) orchestrator.ResultCache {
	if c == nil {
		return nil
	}
	return c
}

func asStore(s *store.Store) orchestrator.ResultStore {
	if s == nil {
		return nil
	}
	return s
}
