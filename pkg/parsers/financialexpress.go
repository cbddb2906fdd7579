package parsers

import (
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/stockpulse-hq/bazaar-pulse/internal/domain"
)

const financialExpressName = "financialexpress"

// financialExpressParser scrapes Financial Express search and article pages.
type financialExpressParser struct {
	base
}

// NewFinancialExpressParser builds the Financial Express parser bound to its source config.
func NewFinancialExpressParser(src Source) Parser {
	return &financialExpressParser{base{src: src}}
}

func (p *financialExpressParser) ParseSearchResults(doc *goquery.Document) ([]SearchResult, error) {
	results := parseSearch(doc, searchRules{
		item:    "div.articles-list article, div.listitems",
		link:    "h2 a, h3 a",
		title:   "h2, h3",
		summary: "div.entry-content p, p",
	}, p.src.BaseURL)

	if len(results) == 0 {
		return nil, fmt.Errorf("financialexpress search page yielded no results")
	}
	return results, nil
}

func (p *financialExpressParser) ParseArticle(doc *goquery.Document, url string) (domain.Article, error) {
	return parseArticleWith(doc, url, p.src, articleRules{
		title:    []string{"h1.wp-block-post-title", "h1"},
		content:  []string{"div.pcl-container p", "div.entry-content p"},
		date:     []string{"div.ie-network-post-meta-date time", "time"},
		dateAttr: "datetime",
		author:   []string{"div.ie-network-post-meta-author a", "span.author-link"},
		tags:     "div.tags a",
		dateFormats: []string{
			"January 2, 2006 15:04 IST",
		},
	}, time.Now())
}
