// Package cleanup implements the per-speaker transcript cleaning passes.
//
// Raw per-speaker transcripts are noisy: filler words repeat ("yeah", "okay"),
// the transcription engine splits single utterances across artificial segment
// boundaries, and silent stretches hallucinate text. The [Cleaner] applies a
// fixed sequence of passes to one speaker's segment sequence:
//
//  1. Short-duplicate collapse — repeated short texts keep only their first
//     occurrence. Longer repeats are preserved: a dice-roll callout said three
//     times is dialogue, a third "okay" is noise.
//  2. Adjacent merge — segments whose gap is within the merge threshold fuse
//     into one utterance. Transitive within a single scan.
//  3. Short-line removal — runs after the merge so fragments that combined
//     into something substantial survive; what is still short now is filler.
//  4. Secondary duplicate collapse — catches duplicates that only became
//     textually identical through merge concatenation.
//  5. Silence-pattern removal — exact-text hallucinations from silent audio.
//
// Each pass produces a new slice; inputs are never mutated. All passes are
// stable: surviving segments keep their relative order.
package cleanup

import (
	"unicode/utf8"

	"github.com/philote/TTRPG-session-notes/internal/config"
	"github.com/philote/TTRPG-session-notes/internal/segment"
)

// Stats counts what each pass removed or merged in one speaker's sequence.
type Stats struct {
	// In and Out are segment counts before and after all passes.
	In, Out int

	// DuplicatesRemoved counts segments dropped by the short-duplicate collapse.
	DuplicatesRemoved int

	// Merges counts adjacent-merge operations (each removes one segment).
	Merges int

	// ShortRemoved counts segments dropped by short-line removal.
	ShortRemoved int

	// SecondaryDuplicatesRemoved counts segments dropped by the post-merge
	// duplicate collapse.
	SecondaryDuplicatesRemoved int

	// SilenceRemoved counts segments matching a configured silence pattern.
	SilenceRemoved int
}

// Add accumulates other into s. Used to total per-speaker stats for the run
// summary.
func (s *Stats) Add(other Stats) {
	s.In += other.In
	s.Out += other.Out
	s.DuplicatesRemoved += other.DuplicatesRemoved
	s.Merges += other.Merges
	s.ShortRemoved += other.ShortRemoved
	s.SecondaryDuplicatesRemoved += other.SecondaryDuplicatesRemoved
	s.SilenceRemoved += other.SilenceRemoved
}

// Cleaner applies the cleaning passes with a fixed configuration.
// It is read-only after construction and safe for concurrent use, so one
// Cleaner serves all speakers of a run.
type Cleaner struct {
	cfg     config.CleanupConfig
	silence map[string]struct{}
}

// New returns a [Cleaner] for the given configuration. The configuration is
// assumed validated (see config.Validate); negative thresholds are a caller
// contract violation.
func New(cfg config.CleanupConfig) *Cleaner {
	var silence map[string]struct{}
	if len(cfg.SilencePatterns) > 0 {
		silence = make(map[string]struct{}, len(cfg.SilencePatterns))
		for _, p := range cfg.SilencePatterns {
			silence[p] = struct{}{}
		}
	}
	return &Cleaner{cfg: cfg, silence: silence}
}

// Clean runs all enabled passes over seq and returns the cleaned sequence and
// per-pass statistics. The output is still ordered and never longer than the
// input; no output segment has empty text.
func (c *Cleaner) Clean(seq segment.Sequence) (segment.Sequence, Stats) {
	segs := seq.Segments
	stats := Stats{In: len(segs)}

	if c.cfg.DuplicateCollapseEnabled() {
		segs, stats.DuplicatesRemoved = collapseDuplicates(segs, c.cfg.DuplicateTextLength)
	}
	if c.cfg.AdjacentMergeEnabled() {
		segs, stats.Merges = mergeAdjacent(segs, c.cfg.MergeThresholdMS)
	}
	if c.cfg.ShortRemovalEnabled() {
		segs, stats.ShortRemoved = removeShort(segs, c.cfg.ShortTextLength)
	}
	if c.cfg.SecondaryDedupeEnabled() {
		segs, stats.SecondaryDuplicatesRemoved = collapseDuplicates(segs, c.cfg.SecondaryDuplicateTextLength)
	}
	if len(c.silence) > 0 {
		segs, stats.SilenceRemoved = c.removeSilence(segs)
	}

	stats.Out = len(segs)
	return segment.Sequence{Speaker: seq.Speaker, Segments: segs}, stats
}

// collapseDuplicates keeps only the first occurrence of each text whose
// length is at most maxLen characters. maxLen <= 0 removes the length bound,
// collapsing every exact duplicate. Comparison is case-sensitive.
func collapseDuplicates(segs []segment.Segment, maxLen int) ([]segment.Segment, int) {
	out := make([]segment.Segment, 0, len(segs))
	seen := make(map[string]struct{})
	removed := 0

	for _, s := range segs {
		if maxLen > 0 && utf8.RuneCountInString(s.Text) > maxLen {
			out = append(out, s)
			continue
		}
		if _, dup := seen[s.Text]; dup {
			removed++
			continue
		}
		seen[s.Text] = struct{}{}
		out = append(out, s)
	}
	return out, removed
}

// mergeAdjacent fuses consecutive segments whose gap (next start minus
// current end) is at most thresholdMS. The boundary is inclusive: a gap
// exactly equal to the threshold merges, one millisecond more does not.
// Merging is transitive — a freshly merged segment may absorb the next one
// in the same scan. Overlapping segments (negative gap) always merge.
func mergeAdjacent(segs []segment.Segment, thresholdMS int64) ([]segment.Segment, int) {
	if len(segs) == 0 {
		return nil, 0
	}

	out := make([]segment.Segment, 0, len(segs))
	cur := segs[0]
	merges := 0

	for _, next := range segs[1:] {
		if next.StartMS-cur.EndMS <= thresholdMS {
			cur = cur.Merge(next)
			merges++
			continue
		}
		out = append(out, cur)
		cur = next
	}
	out = append(out, cur)
	return out, merges
}

// removeShort drops segments whose text is strictly shorter than minLen
// characters.
func removeShort(segs []segment.Segment, minLen int) ([]segment.Segment, int) {
	out := make([]segment.Segment, 0, len(segs))
	removed := 0
	for _, s := range segs {
		if utf8.RuneCountInString(s.Text) < minLen {
			removed++
			continue
		}
		out = append(out, s)
	}
	return out, removed
}

// removeSilence drops segments whose exact text matches a configured
// silence pattern.
func (c *Cleaner) removeSilence(segs []segment.Segment) ([]segment.Segment, int) {
	out := make([]segment.Segment, 0, len(segs))
	removed := 0
	for _, s := range segs {
		if _, hit := c.silence[s.Text]; hit {
			removed++
			continue
		}
		out = append(out, s)
	}
	return out, removed
}
