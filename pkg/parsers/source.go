package parsers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultMaxRequestsPerHour = 30
	defaultMinTitleLength     = 10
	defaultMinContentLength   = 100
	defaultMaxArticles        = 5
	defaultReliability        = 1.0
	minReliability            = 0.5
)

// Source describes one external news site. Immutable after load; it drives
// rate limiting, orchestrator ordering, and per-source validation.
type Source struct {
	Name               string  `json:"name" yaml:"name"`
	BaseURL            string  `json:"base_url" yaml:"base_url"`
	SearchURL          string  `json:"search_url" yaml:"search_url"`
	Priority           int     `json:"priority" yaml:"priority"`
	MaxRequestsPerHour int     `json:"max_requests_per_hour" yaml:"max_requests_per_hour"`
	Enabled            *bool   `json:"enabled" yaml:"enabled"`
	Reliability        float64 `json:"reliability" yaml:"reliability"`
	MinTitleLength     int     `json:"min_title_length" yaml:"min_title_length"`
	MinContentLength   int     `json:"min_content_length" yaml:"min_content_length"`
	MaxArticles        int     `json:"max_articles" yaml:"max_articles"`
}

// sourcesFile is the on-disk structure of the sources configuration.
type sourcesFile struct {
	Sources []Source `json:"sources" yaml:"sources"`
}

// EnabledValue returns the enabled flag defaulting to true.
func (s Source) EnabledValue() bool {
	if s.Enabled == nil {
		return true
	}
	return *s.Enabled
}

// SearchFor expands the search URL template with the query term.
func (s Source) SearchFor(query string) string {
	return strings.ReplaceAll(s.SearchURL, "{query}", url.QueryEscape(query))
}

// LoadSources reads source definitions from a YAML or JSON file. Environment
// variable references in the file are expanded before decoding.
func LoadSources(path string) ([]Source, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sources file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sources file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	expanded := []byte(os.ExpandEnv(string(raw)))

	var decoded sourcesFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(expanded, &decoded)
	default:
		err = yaml.Unmarshal(expanded, &decoded)
	}
	if err != nil {
		return nil, fmt.Errorf("decode sources file: %w", err)
	}
	if len(decoded.Sources) == 0 {
		return nil, errors.New("sources file contains no sources entries")
	}

	seen := make(map[string]struct{}, len(decoded.Sources))
	out := make([]Source, 0, len(decoded.Sources))
	for i, src := range decoded.Sources {
		src = sanitizeSource(src)
		if err := validateSource(src); err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		if _, dup := seen[src.Name]; dup {
			return nil, fmt.Errorf("duplicate source name %q", src.Name)
		}
		seen[src.Name] = struct{}{}
		out = append(out, src)
	}
	return out, nil
}

// sanitizeSource trims fields and fills defaults.
func sanitizeSource(s Source) Source {
	s.Name = strings.ToLower(strings.TrimSpace(s.Name))
	s.BaseURL = strings.TrimSpace(s.BaseURL)
	s.SearchURL = strings.TrimSpace(s.SearchURL)

	if s.MaxRequestsPerHour <= 0 {
		s.MaxRequestsPerHour = defaultMaxRequestsPerHour
	}
	if s.Reliability <= 0 {
		s.Reliability = defaultReliability
	} else if s.Reliability < minReliability {
		s.Reliability = minReliability
	} else if s.Reliability > 1 {
		s.Reliability = 1
	}
	if s.MinTitleLength <= 0 {
		s.MinTitleLength = defaultMinTitleLength
	}
	if s.MinContentLength <= 0 {
		s.MinContentLength = defaultMinContentLength
	}
	if s.MaxArticles <= 0 {
		s.MaxArticles = defaultMaxArticles
	}
	return s
}

// validateSource checks required fields.
func validateSource(s Source) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.BaseURL == "" {
		return fmt.Errorf("base_url is required for source %q", s.Name)
	}
	if s.SearchURL == "" {
		return fmt.Errorf("search_url is required for source %q", s.Name)
	}
	if !strings.Contains(s.SearchURL, "{query}") {
		return fmt.Errorf("search_url for source %q must contain a {query} placeholder", s.Name)
	}
	if s.Priority <= 0 {
		return fmt.Errorf("priority must be positive for source %q", s.Name)
	}
	return nil
}
