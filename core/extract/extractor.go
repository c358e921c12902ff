// Package extract pulls structured entities out of text for exact-match
// scoring: cheap regex patterns that always run, plus an optional statistical
// NER layer chosen once at construction.
package extract

import (
	"regexp"
	"strings"
)

// Mode selects how entities are extracted. The choice is fixed at
// construction; there is no runtime model probing.
type Mode int

const (
	// ModeRegexOnly runs only the regex patterns. This is the default, as
	// NER models cost memory and latency.
	ModeRegexOnly Mode = iota
	// ModeRegexNER layers statistical named entity recognition on top of
	// the regex patterns.
	ModeRegexNER
)

// nerTextLimit bounds the input handed to the NER model. Regex patterns
// still run on the full text.
const nerTextLimit = 50000

// Match is one query entity found verbatim in a candidate text.
type Match struct {
	Entity   string
	Position int
}

var patternOrder = []string{
	"email", "phone", "url", "postal_code", "siret", "siren",
	"reference", "code", "date", "amount", "percentage",
}

// nerCategoryOrder fixes the iteration order for NER-only categories, so
// flattened entity lists are deterministic.
var nerCategoryOrder = []string{"person", "organization", "location", "misc"}

var patterns = map[string]*regexp.Regexp{
	"email":       regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	"phone":       regexp.MustCompile(`(?:\+33|0)[1-9](?:[\s.-]?\d{2}){4}`),
	"url":         regexp.MustCompile(`https?://(?:www\.)?[-a-zA-Z0-9@:%._\+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b(?:[-a-zA-Z0-9()@:%_\+.~#?&/=]*)`),
	"postal_code": regexp.MustCompile(`\b\d{5}\b`),
	"siret":       regexp.MustCompile(`\b\d{14}\b`),
	"siren":       regexp.MustCompile(`\b\d{9}\b`),
	"reference":   regexp.MustCompile(`\b[A-Z]{2,4}[-_]?\d{3,8}\b`),
	"code":        regexp.MustCompile(`\b[A-Z0-9]{6,12}\b`),
	"date":        regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`),
	"amount":      regexp.MustCompile(`(?i)\b\d+(?:[.,]\d{1,2})?\s?(?:€|EUR\b|euros?\b)`),
	"percentage":  regexp.MustCompile(`\b\d+(?:[.,]\d{1,2})?\s?%`),
}

// NERFunc recognizes named entities in text, returning category -> names.
// Categories follow the regex extractor's convention (person, organization,
// location, date, misc).
type NERFunc func(text string) (map[string][]string, error)

// Extractor extracts entity bags from text. Safe for concurrent use; the
// regex patterns are shared immutable state and NER pipelines accept
// concurrent calls.
type Extractor struct {
	mode Mode
	ner  NERFunc
}

// NewExtractor creates a regex-only extractor.
func NewExtractor() *Extractor {
	return &Extractor{mode: ModeRegexOnly}
}

// NewExtractorWithNER creates an extractor that layers the given NER
// function over the regex patterns. A nil ner falls back to regex only.
func NewExtractorWithNER(ner NERFunc) *Extractor {
	if ner == nil {
		return NewExtractor()
	}
	return &Extractor{mode: ModeRegexNER, ner: ner}
}

// Mode returns the extraction mode fixed at construction.
func (e *Extractor) Mode() Mode {
	return e.mode
}

// Extract returns the entity bag of the text: category -> ordered unique
// entity strings. The regex contract never degrades; NER errors are ignored.
func (e *Extractor) Extract(text string) map[string][]string {
	entities := make(map[string][]string)
	if strings.TrimSpace(text) == "" {
		return entities
	}

	if e.mode == ModeRegexNER && e.ner != nil {
		limited := text
		if len(limited) > nerTextLimit {
			// The limit counts runes, so never cut a multi-byte rune in half.
			if runes := []rune(limited); len(runes) > nerTextLimit {
				limited = string(runes[:nerTextLimit])
			}
		}
		if nerEntities, err := e.ner(limited); err == nil {
			for category, names := range nerEntities {
				entities[category] = append(entities[category], names...)
			}
		}
	}

	for _, name := range patternOrder {
		matches := patterns[name].FindAllString(text, -1)
		if len(matches) > 0 {
			entities[name] = append(entities[name], matches...)
		}
	}

	for category, values := range entities {
		entities[category] = dedupe(values)
	}

	return entities
}

// EntityOverlap computes the fraction of the query's entities (flattened
// across categories) that appear as case-insensitive substrings of text.
// Returns 0.0 when the query has no extractable entities.
func (e *Extractor) EntityOverlap(query string, text string) float64 {
	queryEntities := e.flatten(query)
	if len(queryEntities) == 0 {
		return 0.0
	}

	textLower := strings.ToLower(text)
	matches := 0
	for _, entity := range queryEntities {
		if strings.Contains(textLower, strings.ToLower(entity)) {
			matches++
		}
	}

	return float64(matches) / float64(len(queryEntities))
}

// ExactMatches locates each query entity as a literal case-insensitive
// substring of text, recording the first match position.
func (e *Extractor) ExactMatches(query string, text string) []Match {
	textLower := strings.ToLower(text)

	var found []Match
	for _, entity := range e.flatten(query) {
		if pos := strings.Index(textLower, strings.ToLower(entity)); pos != -1 {
			found = append(found, Match{Entity: entity, Position: pos})
		}
	}

	return found
}

// flatten extracts the query's entities in stable category order.
func (e *Extractor) flatten(query string) []string {
	entities := e.Extract(query)

	var flat []string
	for _, category := range patternOrder {
		flat = append(flat, entities[category]...)
	}
	for _, category := range nerCategoryOrder {
		flat = append(flat, entities[category]...)
	}

	return dedupe(flat)
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
