// Package phonetic matches transcript token windows against canonical terms
// by pronunciation similarity, using Double Metaphone encoding for candidate
// filtering and Jaro-Winkler string similarity for ranked selection.
//
// Matching proceeds in two stages:
//
//  1. Phonetic candidate filtering: a term whose Double Metaphone codes
//     overlap with the input's codes becomes a candidate and needs only the
//     (lower) phonetic threshold to be accepted.
//  2. Fuzzy fallback: terms without phonetic overlap are still accepted when
//     their Jaro-Winkler score clears the stricter fuzzy threshold.
//
// Multi-word terms ("Tower of Whispers") are supported: codes are computed
// per word and the ranking considers full-string, space-stripped, and best
// pairwise word scores.
//
// Unlike the literal TermMap stage, phonetic matching can rewrite words that
// were never declared as variants, so it is an opt-in stage with conservative
// default thresholds.
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched term to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic code overlap exists. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.fuzzyThreshold = threshold
	}
}

// term holds one canonical term with everything precomputed for matching.
type term struct {
	display string
	lower   string
	tokens  []string
	concat  string
	codes   map[string]struct{}
}

// Matcher matches token windows against a fixed canonical term list.
// All term data is precomputed at construction; the Matcher is read-only
// afterwards and safe for concurrent use.
type Matcher struct {
	terms             []term
	maxWords          int
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New returns a [Matcher] over the given canonical terms. Blank terms are
// skipped. The term list is fixed for the Matcher's lifetime — the transcript
// pipeline loads the TermMap once per run, so precomputing phonetic codes
// here keeps the per-window cost to scoring only.
func New(canonicals []string, opts ...Option) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}

	for _, c := range canonicals {
		lower := strings.ToLower(strings.TrimSpace(c))
		if lower == "" {
			continue
		}
		tokens := strings.Fields(lower)
		m.terms = append(m.terms, term{
			display: strings.TrimSpace(c),
			lower:   lower,
			tokens:  tokens,
			concat:  strings.Join(tokens, ""),
			codes:   codesForTokens(tokens),
		})
		if len(tokens) > m.maxWords {
			m.maxWords = len(tokens)
		}
	}
	return m
}

// MaxWords returns the widest term in whitespace-separated words. Zero when
// the matcher has no terms.
func (m *Matcher) MaxWords() int { return m.maxWords }

// Match finds the term most phonetically similar to phrase.
//
// phrase may be a single word or a space-separated token window. Phonetic
// candidates (code overlap) are ranked by Jaro-Winkler against the phonetic
// threshold; a phonetic candidate always beats a fuzzy-only one regardless of
// score. When matched is false, corrected equals phrase and confidence is 0.
func (m *Matcher) Match(phrase string) (corrected string, confidence float64, matched bool) {
	lower := strings.ToLower(strings.TrimSpace(phrase))
	if lower == "" || len(m.terms) == 0 {
		return phrase, 0, false
	}
	tokens := strings.Fields(lower)
	codes := codesForTokens(tokens)

	type candidate struct {
		display  string
		score    float64
		phonetic bool
	}
	var best candidate

	for _, t := range m.terms {
		score := bestScore(tokens, lower, t)
		if codesOverlap(codes, t.codes) {
			if score >= m.phoneticThreshold && (!best.phonetic || score > best.score) {
				best = candidate{display: t.display, score: score, phonetic: true}
			}
		} else if !best.phonetic && score >= m.fuzzyThreshold && score > best.score {
			best = candidate{display: t.display, score: score, phonetic: false}
		}
	}

	if best.display == "" {
		return phrase, 0, false
	}
	return best.display, best.score, true
}

// codesForTokens returns the union of the Double Metaphone codes of all
// tokens. Empty codes (too short, no consonants) are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap reports whether the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestScore is the highest Jaro-Winkler similarity between the input and the
// term across three comparisons: full strings, space-stripped strings, and
// the best pairwise token score. The pairwise pass covers the common case of
// one spoken word aligning with one word of a multi-word term.
func bestScore(inputTokens []string, inputLower string, t term) float64 {
	score := matchr.JaroWinkler(inputLower, t.lower, false)

	if len(inputTokens) > 1 || len(t.tokens) > 1 {
		concat := strings.Join(inputTokens, "")
		if s := matchr.JaroWinkler(concat, t.concat, false); s > score {
			score = s
		}
	}

	for _, it := range inputTokens {
		for _, tt := range t.tokens {
			if s := matchr.JaroWinkler(it, tt, false); s > score {
				score = s
			}
		}
	}
	return score
}
