package parsers

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/stockpulse-hq/bazaar-pulse/internal/domain"
)

const businessStandardName = "business-standard"

// businessStandardParser scrapes Business Standard search and article pages.
type businessStandardParser struct {
	base
}

// NewBusinessStandardParser builds the Business Standard parser bound to its source config.
func NewBusinessStandardParser(src Source) Parser {
	return &businessStandardParser{base{src: src}}
}

func (p *businessStandardParser) ParseSearchResults(doc *goquery.Document) ([]SearchResult, error) {
	results := parseSearch(doc, searchRules{
		item:    "div.cardlist",
		link:    "a.smallcard-title, h2 a",
		title:   "a.smallcard-title, h2",
		summary: "p",
	}, p.src.BaseURL)

	if len(results) == 0 {
		return nil, fmt.Errorf("business-standard search page yielded no results")
	}
	return results, nil
}

func (p *businessStandardParser) ParseArticle(doc *goquery.Document, url string) (domain.Article, error) {
	return parseArticleWith(doc, url, p.src, articleRules{
		title:   []string{"h1.stryhdtp", "h1"},
		content: []string{"div.storycontent p", "div#full-story p"},
		date:    []string{"div.MainStory_dtlsec span", "span.storycreate"},
		author:  []string{"span.MainStory_authorname a", "span.author"},
		tags:    "div.tags-wrap a",
		dateFormats: []string{
			"Jan 02 2006 | 3:04 PM IST",
			"Jan 2 2006 | 3:04 PM IST",
		},
	}, time.Now())
}

// IsStockRelevant also accepts Business Standard's markets-section URLs and
// headline conventions, then falls back to the keyword heuristic.
func (p *businessStandardParser) IsStockRelevant(text string) bool {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "/markets/") || strings.Contains(lower, "street signs") {
		return true
	}
	return DefaultStockRelevance(text)
}
