package merge

import "github.com/philote/TTRPG-session-notes/internal/segment"

// cursor points at the next unconsumed segment of one speaker's sequence.
// speakerIdx is the position of that speaker in the merger's input order and
// provides the deterministic tie-break for equal start times.
type cursor struct {
	segs       []segment.Segment
	pos        int
	speakerIdx int
}

func (c cursor) head() segment.Segment { return c.segs[c.pos] }

// cursorHeap implements [container/heap.Interface] as a min-heap ordered by
// the head segment's start time, with speaker input order breaking ties.
type cursorHeap []cursor

func (h cursorHeap) Len() int { return len(h) }

// Less reports whether cursor i should be dequeued before cursor j.
// Earlier start wins; equal starts fall back to speaker input order, which
// keeps the merge stable with respect to the order the speakers were
// presented (position within one speaker's sequence never ties — a cursor
// appears at most once in the heap).
func (h cursorHeap) Less(i, j int) bool {
	si, sj := h[i].head(), h[j].head()
	if si.StartMS != sj.StartMS {
		return si.StartMS < sj.StartMS
	}
	return h[i].speakerIdx < h[j].speakerIdx
}

func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

// Push appends x to the heap. Called by [container/heap.Push]; callers must
// not invoke this directly.
func (h *cursorHeap) Push(x any) {
	*h = append(*h, x.(cursor))
}

// Pop removes and returns the last element. Called by [container/heap.Pop];
// callers must not invoke this directly.
func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}
