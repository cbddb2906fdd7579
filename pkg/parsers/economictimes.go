package parsers

import (
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/stockpulse-hq/bazaar-pulse/internal/domain"
)

const economicTimesName = "economictimes"

// economicTimesParser scrapes Economic Times search and article pages.
type economicTimesParser struct {
	base
}

// NewEconomicTimesParser builds the Economic Times parser bound to its source config.
func NewEconomicTimesParser(src Source) Parser {
	return &economicTimesParser{base{src: src}}
}

func (p *economicTimesParser) ParseSearchResults(doc *goquery.Document) ([]SearchResult, error) {
	results := parseSearch(doc, searchRules{
		item:    "div.eachStory",
		link:    "h3 a",
		title:   "h3",
		summary: "p",
	}, p.src.BaseURL)

	if len(results) == 0 {
		return nil, fmt.Errorf("economictimes search page yielded no results")
	}
	return results, nil
}

func (p *economicTimesParser) ParseArticle(doc *goquery.Document, url string) (domain.Article, error) {
	return parseArticleWith(doc, url, p.src, articleRules{
		title:   []string{"h1.artTitle", "h1"},
		content: []string{"div.artText", "article"},
		date:    []string{"time.jsdtTime", "div.publish_on"},
		author:  []string{"span.auth a", "div.auth"},
		tags:    "div.relatedKeywords a",
		dateFormats: []string{
			"Jan 02, 2006, 03:04 PM IST",
			"Jan 2, 2006, 03:04 PM IST",
		},
	}, time.Now())
}
