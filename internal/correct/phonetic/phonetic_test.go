package phonetic_test

import (
	"testing"

	"github.com/philote/TTRPG-session-notes/internal/correct/phonetic"
)

func TestMatch_SoundAlikes(t *testing.T) {
	t.Parallel()

	m := phonetic.New([]string{"Gandalf", "Strahd", "Eldrinax"})

	tests := []struct {
		in   string
		want string
	}{
		{"gandolf", "Gandalf"},
		{"gandalph", "Gandalf"},
		{"strod", "Strahd"},
		{"eldrinacks", "Eldrinax"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			got, confidence, ok := m.Match(tc.in)
			if !ok {
				t.Fatalf("Match(%q) found nothing, want %q", tc.in, tc.want)
			}
			if got != tc.want {
				t.Errorf("Match(%q) = %q, want %q", tc.in, got, tc.want)
			}
			if confidence <= 0 || confidence > 1 {
				t.Errorf("confidence = %v, want in (0, 1]", confidence)
			}
		})
	}
}

func TestMatch_RejectsUnrelatedWords(t *testing.T) {
	t.Parallel()

	m := phonetic.New([]string{"Gandalf", "Strahd"})

	for _, in := range []string{"potato", "initiative", "breakfast"} {
		if got, _, ok := m.Match(in); ok {
			t.Errorf("Match(%q) = %q, want no match", in, got)
		}
	}
}

func TestMatch_MultiWordTerm(t *testing.T) {
	t.Parallel()

	m := phonetic.New([]string{"Tower of Whispers"})
	if m.MaxWords() != 3 {
		t.Errorf("MaxWords = %d, want 3", m.MaxWords())
	}

	got, _, ok := m.Match("tower of wispers")
	if !ok || got != "Tower of Whispers" {
		t.Errorf("Match = (%q, %v), want the canonical term", got, ok)
	}
}

func TestMatch_ThresholdRaisedBlocksWeakMatches(t *testing.T) {
	t.Parallel()

	strict := phonetic.New([]string{"Gandalf"},
		phonetic.WithPhoneticThreshold(0.99),
		phonetic.WithFuzzyThreshold(0.99),
	)
	if got, _, ok := strict.Match("gandel"); ok {
		t.Errorf("strict matcher accepted %q as %q", "gandel", got)
	}

	lenient := phonetic.New([]string{"Gandalf"})
	if _, _, ok := lenient.Match("gandel"); !ok {
		t.Error("default matcher rejected a close sound-alike")
	}
}

func TestMatch_EmptyInputs(t *testing.T) {
	t.Parallel()

	empty := phonetic.New(nil)
	if empty.MaxWords() != 0 {
		t.Errorf("MaxWords = %d, want 0", empty.MaxWords())
	}
	if _, _, ok := empty.Match("anything"); ok {
		t.Error("matcher with no terms reported a match")
	}

	m := phonetic.New([]string{"Gandalf", "", "  "})
	if m.MaxWords() != 1 {
		t.Errorf("MaxWords = %d, want 1 (blank terms skipped)", m.MaxWords())
	}
	if _, _, ok := m.Match("   "); ok {
		t.Error("blank input reported a match")
	}
}
