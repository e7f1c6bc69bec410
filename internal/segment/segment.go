// Package segment defines the shared transcript record type used across all
// pipeline stages.
//
// A [Segment] is one timestamped utterance attributed to one speaker. Segments
// are created once at the ingestion boundary, validated there, and flow
// through the cleanup pipeline as values — every stage produces a new slice
// rather than mutating its input, because later stages need the pre-transform
// values for merge decisions.
package segment

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors returned by [New]. Callers that skip malformed records
// branch on these with [errors.Is].
var (
	ErrNegativeStart  = errors.New("segment: start is negative")
	ErrEndBeforeStart = errors.New("segment: end precedes start")
	ErrEmptyText      = errors.New("segment: text is empty")
)

// Segment is one timestamped utterance attributed to one speaker.
type Segment struct {
	// StartMS is the inclusive start offset from recording start,
	// in milliseconds. Never negative.
	StartMS int64

	// EndMS is the inclusive end offset in milliseconds. EndMS >= StartMS.
	EndMS int64

	// Text is the transcribed utterance. Never empty for a valid segment.
	Text string

	// Speaker is the opaque identifier of the participant whose recording
	// produced this segment.
	Speaker string
}

// New validates the given fields and returns a [Segment]. Timestamp and text
// invariants are enforced here, at the boundary, so downstream stages never
// see an invalid record.
func New(startMS, endMS int64, text, speaker string) (Segment, error) {
	switch {
	case startMS < 0:
		return Segment{}, fmt.Errorf("%w: %d", ErrNegativeStart, startMS)
	case endMS < startMS:
		return Segment{}, fmt.Errorf("%w: start=%d end=%d", ErrEndBeforeStart, startMS, endMS)
	case strings.TrimSpace(text) == "":
		return Segment{}, ErrEmptyText
	}
	return Segment{StartMS: startMS, EndMS: endMS, Text: text, Speaker: speaker}, nil
}

// Merge combines s with next into a single segment spanning both: minimum
// start, maximum end, texts joined with a single space. Both the per-speaker
// adjacent merge and the cross-speaker compactor use this rule.
func (s Segment) Merge(next Segment) Segment {
	merged := s
	if next.StartMS < merged.StartMS {
		merged.StartMS = next.StartMS
	}
	if next.EndMS > merged.EndMS {
		merged.EndMS = next.EndMS
	}
	merged.Text = s.Text + " " + next.Text
	return merged
}

// Sequence is one speaker's time-ordered segment slice.
type Sequence struct {
	// Speaker is the participant all segments belong to.
	Speaker string

	// Segments is non-decreasing in StartMS as received from ingestion.
	Segments []Segment
}
