package parsers

import (
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/stockpulse-hq/bazaar-pulse/internal/domain"
)

const ndtvProfitName = "ndtvprofit"

// ndtvProfitParser scrapes NDTV Profit search and article pages.
type ndtvProfitParser struct {
	base
}

// NewNDTVProfitParser builds the NDTV Profit parser bound to its source config.
func NewNDTVProfitParser(src Source) Parser {
	return &ndtvProfitParser{base{src: src}}
}

func (p *ndtvProfitParser) ParseSearchResults(doc *goquery.Document) ([]SearchResult, error) {
	results := parseSearch(doc, searchRules{
		item:    "div.news_item, li.src_lst-li",
		link:    "a",
		title:   "p.header, h2",
		summary: "p.intro",
	}, p.src.BaseURL)

	if len(results) == 0 {
		return nil, fmt.Errorf("ndtvprofit search page yielded no results")
	}
	return results, nil
}

func (p *ndtvProfitParser) ParseArticle(doc *goquery.Document, url string) (domain.Article, error) {
	return parseArticleWith(doc, url, p.src, articleRules{
		title:    []string{"h1.sp-ttl", "h1"},
		content:  []string{"div.sp-cn p", "div.story__content p"},
		date:     []string{"span.sp-date time", "time"},
		dateAttr: "datetime",
		author:   []string{"span.sp-auth a", "div.author-name"},
		tags:     "div.sp-tag a",
		dateFormats: []string{
			"January 02, 2006 15:04 IST",
		},
	}, time.Now())
}
