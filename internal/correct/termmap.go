package correct

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ErrNotObject is returned when the replacements file is valid JSON but not
// an object at the top level.
var ErrNotObject = errors.New("correct: replacements file is not a JSON object")

// Term is one canonical spelling together with the misheard forms that should
// be rewritten to it.
type Term struct {
	// Canonical is the correct form. Its casing is authoritative for output.
	Canonical string

	// Variants are the misheard forms, matched case-insensitively as whole
	// tokens. Order within the list is preserved from the file.
	Variants []string
}

// TermMap is the ordered canonical→variants mapping read from the
// replacements JSON file. Declaration order is significant: when two
// canonical terms claim the same variant, the earlier declaration wins.
//
// A TermMap is read-only after loading and safe for concurrent use.
type TermMap struct {
	terms []Term

	// variantIndex maps a lower-cased variant to the index in terms that owns
	// it. Built once at parse time with all conflicts already resolved.
	variantIndex map[string]int

	// maxVariantWords is the widest variant in whitespace-separated words,
	// bounding the n-gram window the corrector scans with.
	maxVariantWords int
}

// LoadTermMap reads and parses the replacements JSON file at path.
func LoadTermMap(path string) (*TermMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("correct: open replacements %q: %w", path, err)
	}
	defer f.Close()

	tm, err := ParseTermMap(f)
	if err != nil {
		return nil, fmt.Errorf("correct: parse replacements %q: %w", path, err)
	}
	return tm, nil
}

// ParseTermMap decodes a replacements object from r, preserving the file's
// key declaration order. The expected shape is
//
//	{"CanonicalName": ["mishear1", "mishear2"], ...}
//
// Keys starting with "_" are ignored; the original tooling uses them for
// inline comments and examples. Conflicts are resolved here, not at match
// time:
//
//   - a variant already claimed by an earlier canonical term is dropped with
//     a warning (first declaration wins);
//   - a variant equal (case-insensitively) to any whole-token window of any
//     canonical term is dropped with a warning, which is what makes the
//     corrector idempotent — text a pass emits can never match again on a
//     second pass.
func ParseTermMap(r io.Reader) (*TermMap, error) {
	// encoding/json's map decoding would lose key order, so walk the object
	// token by token instead.
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("correct: decode replacements: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, ErrNotObject
	}

	var raw []Term
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("correct: decode replacements: %w", err)
		}
		key := keyTok.(string)

		if strings.HasPrefix(key, "_") {
			// Comment entry; consume and discard its value.
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("correct: decode replacements: %w", err)
			}
			continue
		}

		var variants []string
		if err := dec.Decode(&variants); err != nil {
			return nil, fmt.Errorf("correct: replacements entry %q: %w", key, err)
		}
		raw = append(raw, Term{Canonical: key, Variants: variants})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("correct: decode replacements: %w", err)
	}

	return NewTermMap(raw)
}

// NewTermMap builds a [TermMap] from already-ordered terms, applying the
// conflict rules described on [ParseTermMap]. Useful in tests and for callers
// that assemble mappings programmatically.
func NewTermMap(terms []Term) (*TermMap, error) {
	// Every whole-token window of every canonical term, lower-cased. A variant
	// colliding with one of these would turn corrected output back into a
	// match, so such variants are rejected below.
	canonWindows := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		if strings.TrimSpace(t.Canonical) == "" {
			return nil, errors.New("correct: canonical term is empty")
		}
		tokens := strings.Fields(strings.ToLower(t.Canonical))
		for i := range tokens {
			for j := i + 1; j <= len(tokens); j++ {
				canonWindows[strings.Join(tokens[i:j], " ")] = struct{}{}
			}
		}
	}

	tm := &TermMap{
		variantIndex: make(map[string]int),
	}

	for _, t := range terms {
		kept := Term{Canonical: t.Canonical}
		for _, v := range t.Variants {
			lower := normalizeVariant(strings.ToLower(v))
			if lower == "" {
				continue
			}
			if _, isCanon := canonWindows[lower]; isCanon {
				slog.Warn("dropping variant that collides with a canonical term",
					"canonical", t.Canonical,
					"variant", v,
				)
				continue
			}
			if prev, claimed := tm.variantIndex[lower]; claimed {
				slog.Warn("variant claimed by two canonical terms; first declaration wins",
					"variant", v,
					"kept", tm.terms[prev].Canonical,
					"ignored", t.Canonical,
				)
				continue
			}
			tm.variantIndex[lower] = len(tm.terms)
			kept.Variants = append(kept.Variants, v)
			if n := len(strings.Fields(lower)); n > tm.maxVariantWords {
				tm.maxVariantWords = n
			}
		}
		tm.terms = append(tm.terms, kept)
	}

	return tm, nil
}

// Len returns the number of canonical terms.
func (tm *TermMap) Len() int { return len(tm.terms) }

// Canonicals returns the canonical terms in declaration order.
func (tm *TermMap) Canonicals() []string {
	out := make([]string, len(tm.terms))
	for i, t := range tm.terms {
		out[i] = t.Canonical
	}
	return out
}

// normalizeVariant collapses internal whitespace to single spaces so variants
// compare equal to Fields-joined token windows regardless of file formatting.
func normalizeVariant(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// owner resolves a lower-cased candidate token window to the declaration
// index of the canonical term that owns it.
func (tm *TermMap) owner(lower string) (int, bool) {
	i, ok := tm.variantIndex[lower]
	return i, ok
}
