// Package correct implements the term-correction stage: misheard forms of
// campaign proper nouns (character names, places, spells) are rewritten to
// their canonical spelling.
//
// Correction is literal-first: a [TermMap] loaded from the replacements file
// drives case-insensitive, whole-token substitution. Matching works over
// n-gram windows so multi-word mishears ("gand off" → "Gandalf") are handled.
// Terms claim windows in declaration order, the way the replacements file is
// applied entry by entry: an earlier term takes its windows before later
// terms get to look, and within one term the widest window at a position
// wins. A claimed window is never revisited, so applying the corrector twice
// yields the same text as applying it once.
//
// An optional second stage matches still-unrewritten windows against the
// canonical terms by pronunciation similarity (see the phonetic subpackage).
// It is off by default — phonetic matching trades precision for recall and is
// only worth it for campaigns with heavily fantasy-flavoured vocabularies.
package correct

import (
	"sort"
	"strings"
	"unicode"

	"github.com/philote/TTRPG-session-notes/internal/segment"
)

// Substitution method names recorded on [Substitution.Method].
const (
	MethodTermMap  = "termmap"
	MethodPhonetic = "phonetic"
)

// PhoneticMatcher resolves a token window to a known canonical term by
// pronunciation similarity. Implementations must be safe for concurrent use.
type PhoneticMatcher interface {
	// Match returns the best-matching canonical term for phrase, its
	// similarity confidence in [0, 1], and whether a sufficiently similar
	// term was found. When matched is false, corrected equals phrase.
	Match(phrase string) (corrected string, confidence float64, matched bool)

	// MaxWords returns the widest canonical term in whitespace-separated
	// words, bounding the n-gram window worth testing.
	MaxWords() int
}

// Substitution records a single window rewrite.
type Substitution struct {
	// Original is the matched text as it appeared in the transcript,
	// edge punctuation excluded.
	Original string

	// Canonical is the replacement term.
	Canonical string

	// Method is [MethodTermMap] or [MethodPhonetic].
	Method string
}

// Result itemises everything a correction pass changed. Counts are reporting
// side effects only; they never influence transcript content.
type Result struct {
	// Substitutions lists every rewrite in transcript order.
	Substitutions []Substitution
}

// Total returns the number of substitutions applied.
func (r *Result) Total() int { return len(r.Substitutions) }

// CountsByCanonical returns substitution counts keyed by canonical term.
func (r *Result) CountsByCanonical() map[string]int {
	counts := make(map[string]int)
	for _, s := range r.Substitutions {
		counts[s.Canonical]++
	}
	return counts
}

// Option is a functional option for configuring a [Corrector].
type Option func(*Corrector)

// WithPhoneticMatcher attaches m as the fallback stage for windows the
// TermMap did not rewrite. When nil (the default), the phonetic stage is
// skipped entirely.
func WithPhoneticMatcher(m PhoneticMatcher) Option {
	return func(c *Corrector) {
		c.phonetic = m
	}
}

// Corrector applies the term-correction stage. It is read-only after
// construction and safe for concurrent use.
type Corrector struct {
	terms    *TermMap
	phonetic PhoneticMatcher
}

// New returns a [Corrector] over the given TermMap.
func New(terms *TermMap, opts ...Option) *Corrector {
	c := &Corrector{terms: terms}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Correct rewrites every segment's text and returns the corrected sequence
// together with an itemised [Result]. The input slice is not mutated.
func (c *Corrector) Correct(segs []segment.Segment) ([]segment.Segment, *Result) {
	out := make([]segment.Segment, len(segs))
	result := &Result{Substitutions: []Substitution{}}

	for i, s := range segs {
		corrected, subs := c.CorrectText(s.Text)
		out[i] = s
		out[i].Text = corrected
		result.Substitutions = append(result.Substitutions, subs...)
	}
	return out, result
}

// span is one claimed token window awaiting rewrite.
type span struct {
	start, n  int
	canonical string
	method    string
}

// CorrectText rewrites a single text and returns it with the substitutions
// applied, in order of appearance. A text in which no window matched is
// returned byte for byte, whitespace included.
func (c *Corrector) CorrectText(text string) (string, []Substitution) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return text, nil
	}

	maxLiteral := c.terms.maxVariantWords
	maxPhonetic := 0
	if c.phonetic != nil {
		maxPhonetic = c.phonetic.MaxWords()
	}
	if maxLiteral == 0 && maxPhonetic == 0 {
		return text, nil
	}

	claimed := make([]bool, len(tokens))
	spans := c.claimLiteral(tokens, claimed, maxLiteral)
	spans = append(spans, c.claimPhonetic(tokens, claimed, maxPhonetic)...)
	if len(spans) == 0 {
		return text, nil
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var (
		output []string
		subs   []Substitution
	)
	next := 0
	for _, sp := range spans {
		output = append(output, tokens[next:sp.start]...)
		output = append(output, rewriteWindow(tokens[sp.start:sp.start+sp.n], sp.canonical)...)

		core := coreOfWindow(tokens[sp.start : sp.start+sp.n])
		// A phonetic hit on a window that already equals the canonical term is
		// only a casing touch-up, not a substitution worth reporting.
		if sp.method != MethodPhonetic || !strings.EqualFold(core, sp.canonical) {
			subs = append(subs, Substitution{
				Original:  core,
				Canonical: sp.canonical,
				Method:    sp.method,
			})
		}
		next = sp.start + sp.n
	}
	output = append(output, tokens[next:]...)

	return strings.Join(output, " "), subs
}

// claimLiteral claims token windows for each canonical term in declaration
// order: an earlier term takes its windows before later terms get to look.
// Within one term the scan runs left to right, widest window first, so
// multi-word variants beat their single-word prefixes. Claimed tokens are
// never part of another window.
func (c *Corrector) claimLiteral(tokens []string, claimed []bool, maxWords int) []span {
	if maxWords == 0 {
		return nil
	}
	var spans []span
	for termIdx, term := range c.terms.terms {
		for i := 0; i < len(tokens); i++ {
			if claimed[i] {
				continue
			}
			for n := clampWindow(maxWords, len(tokens)-i); n >= 1; n-- {
				if anyClaimed(claimed, i, n) {
					continue
				}
				core := coreOfWindow(tokens[i : i+n])
				if core == "" {
					continue
				}
				owner, ok := c.terms.owner(strings.ToLower(core))
				if !ok || owner != termIdx {
					continue
				}
				spans = append(spans, span{start: i, n: n, canonical: term.Canonical, method: MethodTermMap})
				markClaimed(claimed, i, n)
				i += n - 1
				break
			}
		}
	}
	return spans
}

// claimPhonetic claims still-unclaimed windows by pronunciation similarity,
// left to right, widest window first.
func (c *Corrector) claimPhonetic(tokens []string, claimed []bool, maxWords int) []span {
	if c.phonetic == nil || maxWords == 0 {
		return nil
	}
	var spans []span
	for i := 0; i < len(tokens); i++ {
		if claimed[i] {
			continue
		}
		for n := clampWindow(maxWords, len(tokens)-i); n >= 1; n-- {
			if anyClaimed(claimed, i, n) {
				continue
			}
			core := coreOfWindow(tokens[i : i+n])
			if core == "" {
				continue
			}
			match, _, hit := c.phonetic.Match(core)
			if !hit {
				continue
			}
			spans = append(spans, span{start: i, n: n, canonical: match, method: MethodPhonetic})
			markClaimed(claimed, i, n)
			i += n - 1
			break
		}
	}
	return spans
}

// anyClaimed reports whether any token in [i, i+n) is already claimed.
func anyClaimed(claimed []bool, i, n int) bool {
	for j := i; j < i+n; j++ {
		if claimed[j] {
			return true
		}
	}
	return false
}

// markClaimed marks the tokens in [i, i+n) as claimed.
func markClaimed(claimed []bool, i, n int) {
	for j := i; j < i+n; j++ {
		claimed[j] = true
	}
}

// clampWindow bounds the window width by the tokens remaining.
func clampWindow(maxWords, remaining int) int {
	if maxWords > remaining {
		return remaining
	}
	return maxWords
}

// coreOfWindow joins a token window and strips edge punctuation, yielding the
// text compared against variants. Matching on the stripped core is what makes
// substitution whole-token: punctuation-adjacent hits ("wispers.") match, but
// substrings inside larger words never do.
func coreOfWindow(window []string) string {
	joined := strings.Join(window, " ")
	core := strings.TrimFunc(joined, isEdgePunct)
	return core
}

// rewriteWindow replaces the window's core with the canonical term while
// keeping the window's leading and trailing punctuation in place.
func rewriteWindow(window []string, canonical string) []string {
	joined := strings.Join(window, " ")
	core := strings.TrimFunc(joined, isEdgePunct)

	lead := joined[:strings.Index(joined, core)]
	trail := joined[strings.Index(joined, core)+len(core):]

	return strings.Fields(lead + canonical + trail)
}

// isEdgePunct reports whether r is punctuation to strip from window edges.
// Letters and digits are core; everything else at the edge is presentation.
func isEdgePunct(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
