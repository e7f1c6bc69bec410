// Package merge interleaves the cleaned per-speaker sequences into one
// chronologically ordered transcript and compacts consecutive same-speaker
// runs into single utterances.
//
// The merge is a stable k-way merge over a priority queue: O(N log K) for N
// total segments across K speakers. Determinism matters more than speed here
// — two segments sharing a start time always come out in the order their
// speakers were presented to [Chronological], never in map-iteration or heap
// insertion order.
package merge

import (
	"container/heap"

	"github.com/philote/TTRPG-session-notes/internal/segment"
)

// Chronological merges the given per-speaker sequences (each already ordered
// by start time) into one globally ordered slice, non-decreasing in StartMS.
// Ties on StartMS preserve the relative order of sequences as passed in.
// Empty sequences are skipped, so a speaker whose input was entirely
// malformed simply does not appear.
func Chronological(sequences []segment.Sequence) []segment.Segment {
	h := make(cursorHeap, 0, len(sequences))
	total := 0
	for i, seq := range sequences {
		if len(seq.Segments) == 0 {
			continue
		}
		h = append(h, cursor{segs: seq.Segments, speakerIdx: i})
		total += len(seq.Segments)
	}
	heap.Init(&h)

	out := make([]segment.Segment, 0, total)
	for h.Len() > 0 {
		c := heap.Pop(&h).(cursor)
		out = append(out, c.head())
		c.pos++
		if c.pos < len(c.segs) {
			heap.Push(&h, c)
		}
	}
	return out
}

// Compact fuses adjacent same-speaker segments in a merged stream into single
// utterances: minimum start, maximum end, texts joined with a space. No time
// threshold applies — adjacency in the merged stream already means nobody
// else spoke in between.
func Compact(segs []segment.Segment) []segment.Segment {
	if len(segs) == 0 {
		return nil
	}

	out := make([]segment.Segment, 0, len(segs))
	cur := segs[0]
	for _, next := range segs[1:] {
		if next.Speaker == cur.Speaker {
			cur = cur.Merge(next)
			continue
		}
		out = append(out, cur)
		cur = next
	}
	return append(out, cur)
}
