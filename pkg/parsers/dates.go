package parsers

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// relativeRE matches phrases like "3 hours ago" or "about 2 weeks ago".
var relativeRE = regexp.MustCompile(`(?i)^(?:about\s+)?(\d+)\s+(minute|hour|day|week|month)s?\s+ago$`)

// commonDateFormats are tried after a parser's own site-specific formats.
var commonDateFormats = []string{
	time.RFC3339,
	time.RFC1123,
	time.RFC1123Z,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"January 2, 2006 15:04 MST",
	"January 2, 2006",
	"Jan 2, 2006 03:04 PM MST",
	"Jan 2, 2006",
	"02 Jan 2006, 03:04 PM",
	"02 Jan 2006",
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
}

// ParseArticleDate resolves a raw date string, trying relative phrases
// first, then the site-specific formats, then the common formats. Returns
// false when nothing matches.
func ParseArticleDate(raw string, siteFormats []string, now time.Time) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	switch strings.ToLower(raw) {
	case "just now", "moments ago":
		return now, true
	case "yesterday":
		return now.AddDate(0, 0, -1), true
	case "today":
		return now, true
	}

	if m := relativeRE.FindStringSubmatch(raw); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			switch strings.ToLower(m[2]) {
			case "minute":
				return now.Add(-time.Duration(n) * time.Minute), true
			case "hour":
				return now.Add(-time.Duration(n) * time.Hour), true
			case "day":
				return now.AddDate(0, 0, -n), true
			case "week":
				return now.AddDate(0, 0, -7*n), true
			case "month":
				return now.AddDate(0, -n, 0), true
			}
		}
	}

	// Sites often prefix with "Updated:" or "Published:".
	for _, prefix := range []string{"updated:", "published:", "last updated:", "published on"} {
		if strings.HasPrefix(strings.ToLower(raw), prefix) {
			raw = strings.TrimSpace(raw[len(prefix):])
			break
		}
	}

	for _, layout := range siteFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	for _, layout := range commonDateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
