package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/stockpulse-hq/bazaar-pulse/internal/logger"
)

// containerSelectors are tried in order when locating the article body.
// Falls back to the whole document text when none match.
var containerSelectors = []string{
	"article",
	"[itemprop=articleBody]",
	".article-content",
	".story-content",
	".content-body",
	"main",
	"#content",
}

var dateSelectors = []string{
	`meta[property="article:published_time"]`,
	`meta[name="publish-date"]`,
	`meta[itemprop="datePublished"]`,
}

var authorSelectors = []string{
	`meta[name="author"]`,
	`meta[property="article:author"]`,
}

var whitespaceRE = regexp.MustCompile(`[ \t\r\n]+`)

// Content holds the structured fields pulled out of one loaded page, plus
// the validation verdict.
type Content struct {
	Title       string
	Body        string
	Description string
	Keywords    []string
	DateHint    string
	AuthorHint  string
	URL         string
	Validation  Validation
}

// Validation separates hard failures from advisory warnings.
type Validation struct {
	IsValid  bool
	Errors   []string
	Warnings []string
}

// Rules configures the validation pass.
type Rules struct {
	MinTitleLength   int
	MinContentLength int
	MaxTitleLength   int
	MaxContentLength int
	FailureMarkers   []string
}

// DefaultRules returns the validation rule set used when a source does not
// override it.
func DefaultRules() Rules {
	return Rules{
		MinTitleLength:   10,
		MinContentLength: 100,
		MaxTitleLength:   300,
		MaxContentLength: 50000,
		FailureMarkers:   []string{"Access Denied", "Page Not Found", "404 Not Found", "Enable JavaScript"},
	}
}

// Extractor turns raw page HTML into a validated Content record.
type Extractor struct {
	rules Rules
	log   logger.Logger
}

// NewExtractor builds an Extractor with the given rules.
func NewExtractor(rules Rules, log logger.Logger) *Extractor {
	if rules.MinTitleLength <= 0 && rules.MinContentLength <= 0 {
		rules = DefaultRules()
	}
	return &Extractor{rules: rules, log: logger.Ensure(log)}
}

// Extract parses the page and populates every field it can find. Extraction
// itself only fails on unparseable HTML; field problems surface through the
// validation verdict.
func (e *Extractor) Extract(html, pageURL string) (Content, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Content{}, fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, noscript, iframe").Remove()

	c := Content{URL: pageURL}

	c.Title = firstNonEmpty(
		metaContent(doc, `meta[property="og:title"]`),
		CollapseWhitespace(doc.Find("h1").First().Text()),
		CollapseWhitespace(doc.Find("title").First().Text()),
	)
	c.Description = firstNonEmpty(
		metaContent(doc, `meta[property="og:description"]`),
		metaContent(doc, `meta[name="description"]`),
	)
	c.Keywords = splitKeywords(metaContent(doc, `meta[name="keywords"]`))
	c.Body = e.extractBody(doc)

	for _, sel := range dateSelectors {
		if v := metaContent(doc, sel); v != "" {
			c.DateHint = v
			break
		}
	}
	if c.DateHint == "" {
		if v, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
			c.DateHint = strings.TrimSpace(v)
		}
	}

	for _, sel := range authorSelectors {
		if v := metaContent(doc, sel); v != "" {
			c.AuthorHint = v
			break
		}
	}

	c.Validation = e.rules.Validate(c)
	return c, nil
}

// extractBody walks the container selectors in priority order and falls back
// to the whole document text.
func (e *Extractor) extractBody(doc *goquery.Document) string {
	for _, sel := range containerSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if body := CollapseWhitespace(node.Text()); body != "" {
			return body
		}
	}
	return CollapseWhitespace(doc.Find("body").Text())
}

// Validate applies the rule set to the extracted fields.
func (r Rules) Validate(c Content) Validation {
	v := Validation{IsValid: true}

	fail := func(format string, args ...any) {
		v.IsValid = false
		v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
	}
	warn := func(format string, args ...any) {
		v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
	}

	for _, marker := range r.FailureMarkers {
		if strings.Contains(c.Body, marker) || strings.Contains(c.Title, marker) {
			fail("page contains failure marker %q", marker)
			return v
		}
	}

	if c.URL == "" {
		fail("source url is missing")
	}
	if len(c.Title) < r.MinTitleLength {
		fail("title length %d below minimum %d", len(c.Title), r.MinTitleLength)
	}
	if len(c.Body) < r.MinContentLength {
		fail("content length %d below minimum %d", len(c.Body), r.MinContentLength)
	}

	if r.MaxTitleLength > 0 && len(c.Title) > r.MaxTitleLength {
		warn("title length %d exceeds %d", len(c.Title), r.MaxTitleLength)
	}
	if r.MaxContentLength > 0 && len(c.Body) > r.MaxContentLength {
		warn("content length %d exceeds %d", len(c.Body), r.MaxContentLength)
	}
	if c.DateHint == "" {
		warn("published date not found")
	}
	if c.AuthorHint == "" {
		warn("author not found")
	}

	return v
}

// CollapseWhitespace trims the string and squeezes runs of whitespace,
// including newlines and tabs, into single spaces.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(s, " "))
}

func metaContent(doc *goquery.Document, selector string) string {
	if node := doc.Find(selector).First(); node.Length() > 0 {
		if val, ok := node.Attr("content"); ok {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func splitKeywords(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if kw := strings.TrimSpace(p); kw != "" {
			out = append(out, kw)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
