package parsers

import (
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/stockpulse-hq/bazaar-pulse/internal/domain"
)

const livemintName = "livemint"

// livemintParser scrapes Mint search and article pages.
type livemintParser struct {
	base
}

// NewLivemintParser builds the Mint parser bound to its source config.
func NewLivemintParser(src Source) Parser {
	return &livemintParser{base{src: src}}
}

func (p *livemintParser) ParseSearchResults(doc *goquery.Document) ([]SearchResult, error) {
	results := parseSearch(doc, searchRules{
		item:    "div.listingNew, div.headlineSec",
		link:    "h2 a, a",
		title:   "h2",
		summary: "p.summary",
	}, p.src.BaseURL)

	if len(results) == 0 {
		return nil, fmt.Errorf("livemint search page yielded no results")
	}
	return results, nil
}

func (p *livemintParser) ParseArticle(doc *goquery.Document, url string) (domain.Article, error) {
	return parseArticleWith(doc, url, p.src, articleRules{
		title:    []string{"h1#article-0", "h1.headline"},
		content:  []string{"div.mainArea p", "div.contentSec p"},
		date:     []string{"span.articleInfo time", "time"},
		dateAttr: "datetime",
		author:   []string{"span.articleInfo strong", "a.authorName"},
		tags:     "div.storyTags a",
		dateFormats: []string{
			"02 Jan 2006, 03:04 PM IST",
		},
	}, time.Now())
}
