package parsers

import (
	"regexp"
	"strings"

	"github.com/stockpulse-hq/bazaar-pulse/internal/domain"
	"github.com/stockpulse-hq/bazaar-pulse/internal/extract"
)

// symbolRE matches candidate stock symbols: runs of uppercase letters,
// optionally with an ampersand (M&M, L&T).
var symbolRE = regexp.MustCompile(`\b[A-Z][A-Z&]{1,14}\b`)

// symbolStopwords filters common English words and market shorthand that the
// uppercase-token heuristic would otherwise mistake for symbols.
var symbolStopwords = map[string]struct{}{
	"A": {}, "AN": {}, "AND": {}, "ARE": {}, "AS": {}, "AT": {}, "BE": {},
	"BUT": {}, "BY": {}, "FOR": {}, "FROM": {}, "HAS": {}, "HAD": {},
	"IN": {}, "IS": {}, "IT": {}, "ITS": {}, "NEW": {}, "NOT": {}, "OF": {},
	"ON": {}, "OR": {}, "PER": {}, "RS": {}, "THE": {}, "TO": {}, "UP": {},
	"WAS": {}, "WILL": {}, "WITH": {}, "YOY": {}, "QOQ": {},
	"NSE": {}, "BSE": {}, "IPO": {}, "CEO": {}, "CFO": {}, "GDP": {},
	"RBI": {}, "SEBI": {}, "GST": {}, "PSU": {}, "FII": {}, "DII": {},
	"EPS": {}, "PAT": {}, "EBITDA": {}, "INR": {}, "USD": {}, "PM": {},
	"AM": {}, "IST": {}, "LIVE": {}, "NEWS": {}, "TOP": {}, "Q": {},
}

// financeKeywords drive the generic relevance check: a text mentioning at
// least two distinct entries is considered stock-market relevant.
var financeKeywords = []string{
	"stock", "share", "equity", "market", "trading", "investor",
	"dividend", "earnings", "profit", "revenue", "quarterly", "results",
	"ipo", "listing", "nse", "bse", "sensex", "nifty", "valuation",
	"analyst", "rating", "target price", "buyback", "acquisition", "merger",
	"promoter", "stake", "mutual fund",
}

// base supplies the shared capability set. Site parsers embed it and
// override what their page structure requires.
type base struct {
	src Source
}

func (b base) Name() string   { return b.src.Name }
func (b base) Config() Source { return b.src }

func (b base) ExtractStockSymbols(text string) []string {
	return DefaultStockSymbols(text)
}

func (b base) IsStockRelevant(text string) bool {
	return DefaultStockRelevance(text)
}

// ValidateData applies the source's minimum-length rules to a parsed article.
func (b base) ValidateData(a domain.Article) extract.Validation {
	rules := extract.Rules{
		MinTitleLength:   b.src.MinTitleLength,
		MinContentLength: b.src.MinContentLength,
		MaxTitleLength:   300,
		MaxContentLength: 50000,
		FailureMarkers:   extract.DefaultRules().FailureMarkers,
	}

	c := extract.Content{
		Title:      a.Title,
		Body:       a.Content,
		URL:        a.URL,
		AuthorHint: a.Author,
	}
	if !a.PublishedAt.IsZero() {
		c.DateHint = a.PublishedAt.Format("2006-01-02")
	}
	return rules.Validate(c)
}

// DefaultStockSymbols extracts candidate symbols as uppercase tokens
// filtered against the stop-word list. Order of first appearance, no
// duplicates.
func DefaultStockSymbols(text string) []string {
	matches := symbolRE.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, stop := symbolStopwords[m]; stop {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// DefaultStockRelevance requires at least two distinct finance keywords.
func DefaultStockRelevance(text string) bool {
	lower := strings.ToLower(text)

	distinct := 0
	for _, kw := range financeKeywords {
		if strings.Contains(lower, kw) {
			distinct++
			if distinct >= 2 {
				return true
			}
		}
	}
	return false
}
