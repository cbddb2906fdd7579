package parsers

import (
	"crypto/sha1" //nolint:gosec // non-cryptographic id generation
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/stockpulse-hq/bazaar-pulse/internal/domain"
	"github.com/stockpulse-hq/bazaar-pulse/internal/extract"
)

// searchRules describes how to walk one site's search results page.
type searchRules struct {
	item    string // selector for one result entry
	link    string // anchor inside the entry; empty means the entry is the anchor
	title   string // title node inside the entry; empty falls back to anchor text
	summary string // optional summary node inside the entry
}

// articleRules describes how to pull article fields from one site's pages.
type articleRules struct {
	title       []string
	content     []string
	date        []string
	dateAttr    string // attribute holding the date, e.g. "datetime"; empty uses text
	author      []string
	tags        string
	dateFormats []string
}

// hashURL generates a stable article id from its URL.
func hashURL(u string) string {
	sum := sha1.Sum([]byte(u))
	return hex.EncodeToString(sum[:])
}

// parseSearch extracts search result entries using the given rules, resolving
// relative links against the source's base URL.
func parseSearch(doc *goquery.Document, rules searchRules, baseURL string) []SearchResult {
	var results []SearchResult
	seen := make(map[string]struct{})

	doc.Find(rules.item).Each(func(_ int, entry *goquery.Selection) {
		anchor := entry
		if rules.link != "" {
			anchor = entry.Find(rules.link).First()
		}

		href, ok := anchor.Attr("href")
		if !ok {
			return
		}
		link := resolveURL(strings.TrimSpace(href), baseURL)
		if link == "" {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}

		title := ""
		if rules.title != "" {
			title = extract.CollapseWhitespace(entry.Find(rules.title).First().Text())
		}
		if title == "" {
			title = extract.CollapseWhitespace(anchor.Text())
		}
		if title == "" {
			return
		}

		summary := ""
		if rules.summary != "" {
			summary = extract.CollapseWhitespace(entry.Find(rules.summary).First().Text())
		}

		seen[link] = struct{}{}
		results = append(results, SearchResult{URL: link, Title: title, Summary: summary})
	})

	return results
}

// parseArticleWith extracts a normalized article using the given rules,
// falling back to generic selectors where the site-specific ones miss.
func parseArticleWith(doc *goquery.Document, pageURL string, src Source, rules articleRules, now time.Time) (domain.Article, error) {
	doc.Find("script, style, noscript").Remove()

	title := firstText(doc, rules.title)
	if title == "" {
		title = firstText(doc, []string{"h1", "title"})
	}

	content := joinedText(doc, rules.content)
	if content == "" {
		content = firstText(doc, []string{"article", "main", "body"})
	}

	if title == "" || content == "" {
		return domain.Article{}, fmt.Errorf("%s article at %s has no title or body", src.Name, pageURL)
	}

	article := domain.Article{
		ID:      hashURL(pageURL),
		Title:   title,
		Content: content,
		URL:     pageURL,
		Author:  firstText(doc, rules.author),
		Source:  src.Name,
	}

	if raw := dateCandidate(doc, rules); raw != "" {
		if t, ok := ParseArticleDate(raw, rules.dateFormats, now); ok {
			article.PublishedAt = t
		}
	}

	if rules.tags != "" {
		doc.Find(rules.tags).Each(func(_ int, tag *goquery.Selection) {
			if v := extract.CollapseWhitespace(tag.Text()); v != "" {
				article.Tags = append(article.Tags, v)
			}
		})
	}

	return article, nil
}

// dateCandidate returns the first raw date string the rules can locate.
func dateCandidate(doc *goquery.Document, rules articleRules) string {
	for _, sel := range rules.date {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if rules.dateAttr != "" {
			if v, ok := node.Attr(rules.dateAttr); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		if v := extract.CollapseWhitespace(node.Text()); v != "" {
			return v
		}
	}

	// Generic fallbacks shared by most news pages.
	if v, ok := doc.Find(`meta[property="article:published_time"]`).First().Attr("content"); ok {
		return strings.TrimSpace(v)
	}
	if v, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// firstText returns the first non-empty collapsed text among the selectors.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if v := extract.CollapseWhitespace(doc.Find(sel).First().Text()); v != "" {
			return v
		}
	}
	return ""
}

// joinedText concatenates the text of every node matched by the first
// selector that matches anything.
func joinedText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		nodes := doc.Find(sel)
		if nodes.Length() == 0 {
			continue
		}

		var parts []string
		nodes.Each(func(_ int, n *goquery.Selection) {
			if v := extract.CollapseWhitespace(n.Text()); v != "" {
				parts = append(parts, v)
			}
		})
		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}
	}
	return ""
}

// resolveURL resolves a possibly relative URL against a base URL.
func resolveURL(raw, base string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if parsed.IsAbs() {
		return parsed.String()
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return raw
	}
	return baseURL.ResolveReference(parsed).String()
}
