package parsers

import (
	"fmt"
	"regexp"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/stockpulse-hq/bazaar-pulse/internal/domain"
)

const moneycontrolName = "moneycontrol"

// tickerTagRE matches Moneycontrol's explicit exchange tags ("NSE: RELIANCE").
var tickerTagRE = regexp.MustCompile(`\b(?:NSE|BSE):\s*([A-Z][A-Z&]{1,14})\b`)

// moneycontrolParser scrapes Moneycontrol search and article pages.
type moneycontrolParser struct {
	base
}

// NewMoneycontrolParser builds the Moneycontrol parser bound to its source config.
func NewMoneycontrolParser(src Source) Parser {
	return &moneycontrolParser{base{src: src}}
}

func (p *moneycontrolParser) ParseSearchResults(doc *goquery.Document) ([]SearchResult, error) {
	results := parseSearch(doc, searchRules{
		item:    "li.clearfix",
		link:    "h2 a, a",
		title:   "h2",
		summary: "p",
	}, p.src.BaseURL)

	if len(results) == 0 {
		return nil, fmt.Errorf("moneycontrol search page yielded no results")
	}
	return results, nil
}

func (p *moneycontrolParser) ParseArticle(doc *goquery.Document, url string) (domain.Article, error) {
	return parseArticleWith(doc, url, p.src, articleRules{
		title:   []string{"h1.article_title", "h1.artTitle"},
		content: []string{"div.content_wrapper p", "div.arti-flow p"},
		date:    []string{"div.article_schedule span", "div.tags_first_line"},
		author:  []string{"div.article_author a", "span.author_name"},
		tags:    "div.tags_wrapper a",
		dateFormats: []string{
			"January 02, 2006 / 15:04 IST",
			"January 2, 2006 / 15:04 IST",
		},
	}, time.Now())
}

// ExtractStockSymbols prefers Moneycontrol's explicit exchange tags and falls
// back to the generic uppercase-token heuristic.
func (p *moneycontrolParser) ExtractStockSymbols(text string) []string {
	matches := tickerTagRE.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return DefaultStockSymbols(text)
	}

	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, dup := seen[m[1]]; dup {
			continue
		}
		seen[m[1]] = struct{}{}
		out = append(out, m[1])
	}
	return out
}
