package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// TermMatcher finds dictionary terms appearing anywhere in a text,
// case-insensitively and without word boundaries ("scam" matches "scammer").
type TermMatcher struct {
	matcher *goahocorasick.Machine
	order   map[string]int
	empty   bool
}

// NewTermMatcher initializes the Aho-Corasick automaton with the lowercased dictionary.
// Match results follow the dictionary order.
func NewTermMatcher(terms []string) (*TermMatcher, error) {
	patterns := make([][]rune, 0, len(terms))
	order := make(map[string]int, len(terms))
	for _, term := range terms {
		runes := normalizeRunes([]rune(term))
		if len(runes) == 0 {
			continue
		}
		key := string(runes)
		if _, ok := order[key]; ok {
			continue
		}
		order[key] = len(patterns)
		patterns = append(patterns, runes)
	}
	if len(patterns) == 0 {
		return &TermMatcher{empty: true, order: order}, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &TermMatcher{matcher: m, order: order}, nil
}

// Find returns every distinct term found in text, in dictionary order.
func (m *TermMatcher) Find(text string) []string {
	if m.empty || text == "" {
		return nil
	}
	normalized := normalizeRunes([]rune(text))
	spans := m.matcher.MultiPatternSearch(normalized, false)
	if len(spans) == 0 {
		return nil
	}

	hits := make([]bool, len(m.order))
	for _, span := range spans {
		if idx, ok := m.order[string(span.Word)]; ok {
			hits[idx] = true
		}
	}

	found := make([]string, len(m.order))
	for term, idx := range m.order {
		found[idx] = term
	}
	var res []string
	for idx, hit := range hits {
		if hit {
			res = append(res, found[idx])
		}
	}
	return res
}

// normalizeRunes lowercases a slice of runes; nothing is skipped so positions match the input.
func normalizeRunes(input []rune) []rune {
	out := make([]rune, len(input))
	for i, r := range input {
		out[i] = unicode.ToLower(r)
	}
	return out
}
