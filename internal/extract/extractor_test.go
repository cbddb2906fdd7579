package extract

import (
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/stockpulse-hq/bazaar-pulse/internal/logger"
)

const samplePage = `<!doctype html>
<html>
<head>
  <title>Fallback Title</title>
  <meta property="og:title" content="Reliance Industries posts record quarterly profit">
  <meta name="description" content="RIL net profit rises 12% on retail strength.">
  <meta name="keywords" content="reliance, ril, earnings">
  <meta property="article:published_time" content="2026-03-01T10:30:00+05:30">
  <meta name="author" content="Priya Sharma">
  <script>var tracker = 1;</script>
</head>
<body>
  <article>
    <h1>Reliance Industries posts record quarterly profit</h1>
    <p>Reliance Industries reported a net profit	 of Rs 21,000 crore for the
    quarter, up twelve percent from a year earlier, driven by strong retail and
    digital services revenue. Analysts said the results beat street estimates.</p>
  </article>
</body>
</html>`

func TestExtractStructuredFields(t *testing.T) {
	e := NewExtractor(DefaultRules(), logger.NopLogger{})

	c, err := e.Extract(samplePage, "https://example.com/ril-results")
	assert.Equal(t, nil, err)

	assert.Equal(t, "Reliance Industries posts record quarterly profit", c.Title)
	assert.Equal(t, "RIL net profit rises 12% on retail strength.", c.Description)
	assert.Equal(t, []string{"reliance", "ril", "earnings"}, c.Keywords)
	assert.Equal(t, "2026-03-01T10:30:00+05:30", c.DateHint)
	assert.Equal(t, "Priya Sharma", c.AuthorHint)

	// Script content stripped, whitespace collapsed.
	if strings.Contains(c.Body, "tracker") {
		t.Fatalf("script content leaked into body: %q", c.Body)
	}
	if strings.Contains(c.Body, "\n") || strings.Contains(c.Body, "\t") {
		t.Fatalf("body not normalized: %q", c.Body)
	}

	assert.Equal(t, true, c.Validation.IsValid)
	assert.Equal(t, 0, len(c.Validation.Errors))
}

func TestValidateRejectsShortContent(t *testing.T) {
	e := NewExtractor(DefaultRules(), logger.NopLogger{})

	html := `<html><head><title>A headline long enough to pass</title></head><body><p>too short</p></body></html>`
	c, err := e.Extract(html, "https://example.com/x")
	assert.Equal(t, nil, err)

	assert.Equal(t, false, c.Validation.IsValid)
	if len(c.Validation.Errors) == 0 {
		t.Fatal("expected validation errors for short content")
	}
}

func TestValidateRejectsFailureMarkers(t *testing.T) {
	e := NewExtractor(DefaultRules(), logger.NopLogger{})

	html := `<html><head><title>Some ordinary headline here</title></head><body><article>` +
		strings.Repeat("Access Denied. ", 20) + `</article></body></html>`
	c, err := e.Extract(html, "https://example.com/denied")
	assert.Equal(t, nil, err)

	assert.Equal(t, false, c.Validation.IsValid)
	assert.Equal(t, 1, len(c.Validation.Errors))
}

func TestValidateWarnsButAcceptsMissingAuthorAndDate(t *testing.T) {
	e := NewExtractor(DefaultRules(), logger.NopLogger{})

	html := `<html><head><title>Tata Motors unveils new electric SUV lineup</title></head><body><article>` +
		strings.Repeat("The company detailed its electric vehicle roadmap at the annual investor day. ", 5) +
		`</article></body></html>`
	c, err := e.Extract(html, "https://example.com/tata-ev")
	assert.Equal(t, nil, err)

	assert.Equal(t, true, c.Validation.IsValid)
	if len(c.Validation.Warnings) < 2 {
		t.Fatalf("expected warnings for missing date and author, got %v", c.Validation.Warnings)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", CollapseWhitespace("  a\n\tb \r\n  c  "))
	assert.Equal(t, "", CollapseWhitespace(" \n\t "))
}
