package parsers

import (
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"
)

func testSource(name string, priority int) Source {
	return sanitizeSource(Source{
		Name:      name,
		BaseURL:   "https://www." + name + ".example",
		SearchURL: "https://www." + name + ".example/search?q={query}",
		Priority:  priority,
	})
}

func TestParserForUnknownSource(t *testing.T) {
	reg := NewRegistry(NewMoneycontrolParser(testSource(moneycontrolName, 1)))

	_, err := reg.ParserFor("tabloid-times")
	if !errors.Is(err, ErrParserNotFound) {
		t.Fatalf("expected ErrParserNotFound, got %v", err)
	}

	_, err = reg.ParserFor("")
	if !errors.Is(err, ErrParserNotFound) {
		t.Fatalf("expected ErrParserNotFound for empty name, got %v", err)
	}
}

func TestParserForIsCaseInsensitive(t *testing.T) {
	reg := NewRegistry(NewLivemintParser(testSource(livemintName, 2)))

	p, err := reg.ParserFor("LiveMint")
	assert.Equal(t, nil, err)
	assert.Equal(t, livemintName, p.Name())
}

func TestDefaultRegistryWiresKnownSources(t *testing.T) {
	sources := []Source{
		testSource(moneycontrolName, 1),
		testSource(economicTimesName, 2),
		testSource(livemintName, 3),
		testSource(businessStandardName, 4),
		testSource(ndtvProfitName, 5),
		testSource(financialExpressName, 6),
		testSource("unknown-site", 7),
	}

	reg := DefaultRegistry(sources)

	for _, name := range []string{
		moneycontrolName, economicTimesName, livemintName,
		businessStandardName, ndtvProfitName, financialExpressName,
	} {
		p, err := reg.ParserFor(name)
		assert.Equal(t, nil, err)
		assert.Equal(t, name, p.Name())
	}

	_, err := reg.ParserFor("unknown-site")
	if !errors.Is(err, ErrParserNotFound) {
		t.Fatalf("expected ErrParserNotFound for unknown-site, got %v", err)
	}
}

func TestSearchForEscapesQuery(t *testing.T) {
	src := testSource(moneycontrolName, 1)
	assert.Equal(t,
		"https://www.moneycontrol.example/search?q=TATA+MOTORS",
		src.SearchFor("TATA MOTORS"))
}
