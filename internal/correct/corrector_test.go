package correct_test

import (
	"strings"
	"testing"

	"github.com/philote/TTRPG-session-notes/internal/correct"
	"github.com/philote/TTRPG-session-notes/internal/segment"
)

func mustTermMap(t *testing.T, terms []correct.Term) *correct.TermMap {
	t.Helper()
	tm, err := correct.NewTermMap(terms)
	if err != nil {
		t.Fatalf("NewTermMap returned error: %v", err)
	}
	return tm
}

func campaignTerms(t *testing.T) *correct.TermMap {
	t.Helper()
	return mustTermMap(t, []correct.Term{
		{Canonical: "Gandalf", Variants: []string{"gandolf", "gand off", "grand elf"}},
		{Canonical: "Strahd", Variants: []string{"shtrod", "strod"}},
		{Canonical: "Tower of Whispers", Variants: []string{"tower of wispers"}},
	})
}

// --- Literal substitution ---

func TestCorrectText_Basic(t *testing.T) {
	t.Parallel()

	c := correct.New(campaignTerms(t))

	tests := []struct {
		name, in, want string
		wantSubs       int
	}{
		{"single word", "gandolf waves his staff", "Gandalf waves his staff", 1},
		{"case insensitive", "GANDOLF waves", "Gandalf waves", 1},
		{"multi word variant", "then gand off appears", "then Gandalf appears", 1},
		{"two terms", "strod fears gandolf", "Strahd fears Gandalf", 2},
		{"no match", "the party rests", "the party rests", 0},
		{"empty", "", "", 0},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, subs := c.CorrectText(tc.in)
			if got != tc.want {
				t.Errorf("CorrectText(%q) = %q, want %q", tc.in, got, tc.want)
			}
			if len(subs) != tc.wantSubs {
				t.Errorf("substitutions = %d, want %d", len(subs), tc.wantSubs)
			}
		})
	}
}

func TestCorrectText_WholeTokenOnly(t *testing.T) {
	t.Parallel()

	c := correct.New(campaignTerms(t))

	// "strod" inside a larger word must not match.
	got, subs := c.CorrectText("the strodden path")
	if got != "the strodden path" || len(subs) != 0 {
		t.Errorf("got %q with %d subs, want input unchanged", got, len(subs))
	}
}

func TestCorrectText_EdgePunctuation(t *testing.T) {
	t.Parallel()

	c := correct.New(campaignTerms(t))

	tests := []struct{ in, want string }{
		{"is that gandolf?", "is that Gandalf?"},
		{"run, shtrod!", "run, Strahd!"},
		{`"gandolf," she said`, `"Gandalf," she said`},
		{"the tower of wispers. later", "the Tower of Whispers. later"},
	}
	for _, tc := range tests {
		got, _ := c.CorrectText(tc.in)
		if got != tc.want {
			t.Errorf("CorrectText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCorrectText_WidestWindowWins(t *testing.T) {
	t.Parallel()

	tm := mustTermMap(t, []correct.Term{
		{Canonical: "Gandalf", Variants: []string{"grand", "grand elf"}},
	})
	c := correct.New(tm)

	// "grand elf" must match the two-word variant, not "grand" alone.
	got, subs := c.CorrectText("a grand elf arrives")
	if got != "a Gandalf arrives" {
		t.Errorf("got %q, want %q", got, "a Gandalf arrives")
	}
	if len(subs) != 1 || subs[0].Original != "grand elf" {
		t.Errorf("subs = %+v, want one substitution for %q", subs, "grand elf")
	}
}

func TestCorrectText_DeclarationOrderBeatsPosition(t *testing.T) {
	t.Parallel()

	// The variants of the two terms overlap on the middle token. The earlier
	// term claims its window first, even though the later term's variant
	// starts further left in the text.
	tm := mustTermMap(t, []correct.Term{
		{Canonical: "First", Variants: []string{"b c"}},
		{Canonical: "Second", Variants: []string{"a b"}},
	})
	c := correct.New(tm)

	got, subs := c.CorrectText("a b c")
	if got != "a First" {
		t.Errorf("got %q, want %q", got, "a First")
	}
	if len(subs) != 1 || subs[0].Canonical != "First" {
		t.Errorf("subs = %+v, want one First substitution", subs)
	}
}

func TestCorrectText_NoMatchLeavesTextUntouched(t *testing.T) {
	t.Parallel()

	c := correct.New(campaignTerms(t))

	// Internal whitespace survives when nothing is rewritten.
	in := "the  party\trests   here"
	got, subs := c.CorrectText(in)
	if got != in {
		t.Errorf("got %q, want input unchanged %q", got, in)
	}
	if len(subs) != 0 {
		t.Errorf("got %d substitutions, want 0", len(subs))
	}
}

func TestCorrectText_DeclarationOrderWins(t *testing.T) {
	t.Parallel()

	// Both canonical terms claim "mord"; the first declaration owns it.
	tm := mustTermMap(t, []correct.Term{
		{Canonical: "Mordenkainen", Variants: []string{"mord"}},
		{Canonical: "Mordred", Variants: []string{"mord"}},
	})
	c := correct.New(tm)

	got, _ := c.CorrectText("mord casts a spell")
	if got != "Mordenkainen casts a spell" {
		t.Errorf("got %q, want Mordenkainen substitution", got)
	}
}

func TestCorrectText_Idempotent(t *testing.T) {
	t.Parallel()

	// A variant equal to a word of another canonical term is dropped at
	// TermMap construction, so a second pass never rewrites pass-one output.
	tm := mustTermMap(t, []correct.Term{
		{Canonical: "Tower of Whispers", Variants: []string{"tower of wispers", "whispers"}},
		{Canonical: "Gandalf", Variants: []string{"gandolf"}},
	})
	c := correct.New(tm)

	in := "gandolf entered the tower of wispers at dusk"
	once, _ := c.CorrectText(in)
	twice, subs := c.CorrectText(once)
	if once != twice {
		t.Errorf("second pass changed text: %q != %q", once, twice)
	}
	if len(subs) != 0 {
		t.Errorf("second pass reported %d substitutions, want 0", len(subs))
	}
}

// --- Correct over segments ---

func TestCorrect_Segments(t *testing.T) {
	t.Parallel()

	c := correct.New(campaignTerms(t))
	in := []segment.Segment{
		{StartMS: 0, EndMS: 10, Text: "gandolf nods", Speaker: "DM"},
		{StartMS: 20, EndMS: 30, Text: "nothing here", Speaker: "Izzy"},
		{StartMS: 40, EndMS: 50, Text: "strod strod", Speaker: "DM"},
	}

	out, result := c.Correct(in)
	if out[0].Text != "Gandalf nods" {
		t.Errorf("out[0].Text = %q", out[0].Text)
	}
	if out[1].Text != "nothing here" {
		t.Errorf("out[1].Text = %q", out[1].Text)
	}
	if out[2].Text != "Strahd Strahd" {
		t.Errorf("out[2].Text = %q", out[2].Text)
	}
	if in[0].Text != "gandolf nods" {
		t.Error("input slice was mutated")
	}

	if result.Total() != 3 {
		t.Errorf("Total = %d, want 3", result.Total())
	}
	counts := result.CountsByCanonical()
	if counts["Gandalf"] != 1 || counts["Strahd"] != 2 {
		t.Errorf("counts = %v", counts)
	}
	for _, s := range result.Substitutions {
		if s.Method != correct.MethodTermMap {
			t.Errorf("method = %q, want %q", s.Method, correct.MethodTermMap)
		}
	}
}

// --- Phonetic fallback ---

// stubMatcher rewrites a fixed phrase, recording what it was asked.
type stubMatcher struct {
	from, to string
	asked    []string
}

func (m *stubMatcher) Match(phrase string) (string, float64, bool) {
	m.asked = append(m.asked, phrase)
	if strings.EqualFold(phrase, m.from) {
		return m.to, 0.9, true
	}
	return phrase, 0, false
}

func (m *stubMatcher) MaxWords() int { return len(strings.Fields(m.from)) }

func TestCorrect_PhoneticFallback(t *testing.T) {
	t.Parallel()

	tm := mustTermMap(t, []correct.Term{
		{Canonical: "Eldrinax", Variants: []string{"elder nacks"}},
	})
	matcher := &stubMatcher{from: "eldrinacks", to: "Eldrinax"}
	c := correct.New(tm, correct.WithPhoneticMatcher(matcher))

	got, subs := c.CorrectText("elder nacks and eldrinacks meet")
	if got != "Eldrinax and Eldrinax meet" {
		t.Errorf("got %q", got)
	}
	if len(subs) != 2 {
		t.Fatalf("got %d substitutions, want 2", len(subs))
	}
	if subs[0].Method != correct.MethodTermMap || subs[1].Method != correct.MethodPhonetic {
		t.Errorf("methods = %q, %q", subs[0].Method, subs[1].Method)
	}
}

func TestCorrect_PhoneticCaseTouchupNotReported(t *testing.T) {
	t.Parallel()

	tm := mustTermMap(t, nil)
	matcher := &stubMatcher{from: "eldrinax", to: "Eldrinax"}
	c := correct.New(tm, correct.WithPhoneticMatcher(matcher))

	// The rewrite only fixes casing, so the text changes but no substitution
	// is reported.
	got, subs := c.CorrectText("eldrinax waits")
	if got != "Eldrinax waits" {
		t.Errorf("got %q", got)
	}
	if len(subs) != 0 {
		t.Errorf("got %d substitutions, want 0", len(subs))
	}
}
