// Package enhance rewrites user queries before retrieval: spell
// correction, abbreviation expansion and synonym variations.
package enhance

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/sajari/fuzzy"
)

// MaxVariations caps the number of query variations produced, the
// corrected query included.
const MaxVariations = 5

// EnhancedQuery is the result of enhancing a raw user query. Variations
// always starts with the corrected query; Suggestion is non-empty only
// when spell correction changed the input.
type EnhancedQuery struct {
	Original   string
	Corrected  string
	Variations []string
	Suggestion string
}

// Enhancer rewrites queries using a trained spell model and static
// dictionaries. Safe for concurrent use after construction.
type Enhancer struct {
	spell     *fuzzy.Model
	protected map[string]struct{}
}

// NewEnhancer creates an enhancer with the spell model trained on the
// built-in vocabulary.
func NewEnhancer() *Enhancer {
	model := fuzzy.NewModel()
	model.SetThreshold(1)
	model.SetDepth(2)
	model.Train(vocabulary)

	protected := make(map[string]struct{}, len(technicalTerms))
	for _, term := range technicalTerms {
		protected[strings.ToLower(term)] = struct{}{}
	}

	return &Enhancer{spell: model, protected: protected}
}

// Enhance produces the corrected query and its variations. A query that
// needs no rewriting comes back unchanged with itself as the only
// variation.
func (e *Enhancer) Enhance(query string) *EnhancedQuery {
	normalized := normalize(query)
	enhanced := &EnhancedQuery{Original: query, Corrected: normalized}
	if normalized == "" {
		return enhanced
	}

	corrected, changed := e.correct(normalized)
	enhanced.Corrected = corrected
	if changed {
		enhanced.Suggestion = fmt.Sprintf("Did you mean: %v", corrected)
	}

	variations := []string{corrected}
	if expanded := e.expandAbbreviations(corrected); expanded != corrected {
		variations = append(variations, expanded)
	}
	variations = append(variations, e.synonymVariations(corrected)...)

	enhanced.Variations = dedupeStrings(variations, MaxVariations)
	return enhanced
}

var repeatedPunct = regexp.MustCompile(`([!?.]){2,}`)

// normalize collapses whitespace and runs of repeated sentence punctuation.
func normalize(query string) string {
	query = repeatedPunct.ReplaceAllString(query, "$1")
	return strings.Join(strings.Fields(query), " ")
}

// correct spell-checks each token, leaving protected terms, stop words,
// short tokens and tokens containing digits untouched.
func (e *Enhancer) correct(query string) (string, bool) {
	tokens := strings.Fields(query)
	changed := false

	for i, token := range tokens {
		word, prefix, suffix := stripPunct(token)
		lower := strings.ToLower(word)

		if len([]rune(word)) <= 2 || hasDigit(word) {
			continue
		}
		if _, ok := e.protected[lower]; ok {
			continue
		}
		if _, ok := stopWords[lower]; ok {
			continue
		}

		correction := e.spell.SpellCheck(lower)
		if correction == "" || correction == lower {
			continue
		}

		tokens[i] = prefix + matchCase(word, correction) + suffix
		changed = true
	}

	return strings.Join(tokens, " "), changed
}

// expandAbbreviations replaces known short forms with their expansions.
func (e *Enhancer) expandAbbreviations(query string) string {
	tokens := strings.Fields(query)
	for i, token := range tokens {
		word, prefix, suffix := stripPunct(token)
		if expansion, ok := abbreviations[strings.ToLower(word)]; ok {
			tokens[i] = prefix + expansion + suffix
		}
	}
	return strings.Join(tokens, " ")
}

// synonymVariations builds one variation per substitutable word, swapping
// a single word at a time so each variation stays close to the original.
func (e *Enhancer) synonymVariations(query string) []string {
	tokens := strings.Fields(query)

	var variations []string
	for i, token := range tokens {
		word, prefix, suffix := stripPunct(token)
		alternatives, ok := synonyms[strings.ToLower(word)]
		if !ok {
			continue
		}
		for _, alt := range alternatives {
			variation := make([]string, len(tokens))
			copy(variation, tokens)
			variation[i] = prefix + matchCase(word, alt) + suffix
			variations = append(variations, strings.Join(variation, " "))
		}
	}

	return variations
}

// stripPunct separates leading and trailing punctuation from a token.
func stripPunct(token string) (word string, prefix string, suffix string) {
	runes := []rune(token)
	start, end := 0, len(runes)
	for start < end && !unicode.IsLetter(runes[start]) && !unicode.IsDigit(runes[start]) {
		start++
	}
	for end > start && !unicode.IsLetter(runes[end-1]) && !unicode.IsDigit(runes[end-1]) {
		end--
	}
	return string(runes[start:end]), string(runes[:start]), string(runes[end:])
}

// matchCase applies the original word's capitalization to a replacement.
// All-caps words stay all-caps, capitalized words stay capitalized.
func matchCase(original string, replacement string) string {
	if original == "" || replacement == "" {
		return replacement
	}
	if original == strings.ToUpper(original) && len([]rune(original)) > 1 {
		return strings.ToUpper(replacement)
	}
	first := []rune(original)[0]
	if unicode.IsUpper(first) {
		runes := []rune(replacement)
		runes[0] = unicode.ToUpper(runes[0])
		return string(runes)
	}
	return replacement
}

func hasDigit(word string) bool {
	for _, r := range word {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// dedupeStrings keeps the first-seen form of each value, comparing
// case-insensitively.
func dedupeStrings(values []string, max int) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, v)
		if len(result) >= max {
			break
		}
	}
	return result
}
