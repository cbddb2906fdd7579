package parsers

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/stockpulse-hq/bazaar-pulse/internal/domain"
	"github.com/stockpulse-hq/bazaar-pulse/internal/extract"
)

// ErrParserNotFound indicates a configured source with no registered parser.
// This is a setup error: the request cannot proceed without the registry entry.
var ErrParserNotFound = errors.New("parsers: no parser registered for source")

// SearchResult is one entry scraped from a source's search page.
type SearchResult struct {
	URL     string
	Title   string
	Summary string
}

// Parser is the per-source capability set. Each implementation owns the DOM
// selectors and date heuristics of one news site; the generic capabilities
// (symbol extraction, relevance, validation) have shared defaults a variant
// may override.
type Parser interface {
	Name() string
	ParseSearchResults(doc *goquery.Document) ([]SearchResult, error)
	ParseArticle(doc *goquery.Document, url string) (domain.Article, error)
	ExtractStockSymbols(text string) []string
	IsStockRelevant(text string) bool
	ValidateData(a domain.Article) extract.Validation
	Config() Source
}

// Registry resolves parsers by source name.
type Registry interface {
	Register(p Parser)
	ParserFor(name string) (Parser, error)
}

type registry struct {
	mu      sync.RWMutex
	parsers map[string]Parser
}

// NewRegistry builds a registry for the provided parser implementations.
func NewRegistry(parsers ...Parser) Registry {
	r := &registry{parsers: make(map[string]Parser, len(parsers))}
	for _, p := range parsers {
		r.Register(p)
	}
	return r
}

// Register adds a parser keyed by its lowercase name.
func (r *registry) Register(p Parser) {
	if p == nil {
		return
	}
	name := strings.ToLower(strings.TrimSpace(p.Name()))
	if name == "" {
		return
	}

	r.mu.Lock()
	r.parsers[name] = p
	r.mu.Unlock()
}

// ParserFor returns the parser registered under the source name.
func (r *registry) ParserFor(name string) (Parser, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("source name is empty: %w", ErrParserNotFound)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.parsers[key]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("source %q: %w", name, ErrParserNotFound)
}

// DefaultRegistry wires up the known source parsers for the given configs.
// Sources without a known parser are left unregistered; dispatching them
// later yields ErrParserNotFound.
func DefaultRegistry(sources []Source) Registry {
	reg := NewRegistry()
	for _, src := range sources {
		switch src.Name {
		case moneycontrolName:
			reg.Register(NewMoneycontrolParser(src))
		case economicTimesName:
			reg.Register(NewEconomicTimesParser(src))
		case livemintName:
			reg.Register(NewLivemintParser(src))
		case businessStandardName:
			reg.Register(NewBusinessStandardParser(src))
		case ndtvProfitName:
			reg.Register(NewNDTVProfitParser(src))
		case financialExpressName:
			reg.Register(NewFinancialExpressParser(src))
		}
	}
	return reg
}
