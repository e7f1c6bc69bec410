package segment_test

import (
	"errors"
	"testing"

	"github.com/philote/TTRPG-session-notes/internal/segment"
)

func TestNew_Valid(t *testing.T) {
	t.Parallel()

	s, err := segment.New(100, 250, "hello there", "Izzy")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if s.StartMS != 100 || s.EndMS != 250 {
		t.Errorf("timestamps = (%d, %d), want (100, 250)", s.StartMS, s.EndMS)
	}
	if s.Text != "hello there" || s.Speaker != "Izzy" {
		t.Errorf("content = (%q, %q), want (\"hello there\", \"Izzy\")", s.Text, s.Speaker)
	}
}

func TestNew_ZeroDuration(t *testing.T) {
	t.Parallel()

	// Start equal to end is a valid instantaneous utterance.
	if _, err := segment.New(500, 500, "hm", "DM"); err != nil {
		t.Fatalf("New returned error for zero-duration segment: %v", err)
	}
}

func TestNew_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		start, end int64
		text       string
		wantErr    error
	}{
		{"negative start", -1, 10, "hi", segment.ErrNegativeStart},
		{"end before start", 100, 99, "hi", segment.ErrEndBeforeStart},
		{"empty text", 0, 10, "", segment.ErrEmptyText},
		{"whitespace text", 0, 10, "   ", segment.ErrEmptyText},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := segment.New(tc.start, tc.end, tc.text, "DM")
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("New error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	t.Parallel()

	a := segment.Segment{StartMS: 100, EndMS: 200, Text: "I open", Speaker: "Izzy"}
	b := segment.Segment{StartMS: 205, EndMS: 320, Text: "the door.", Speaker: "Izzy"}

	m := a.Merge(b)
	if m.StartMS != 100 || m.EndMS != 320 {
		t.Errorf("merged timestamps = (%d, %d), want (100, 320)", m.StartMS, m.EndMS)
	}
	if m.Text != "I open the door." {
		t.Errorf("merged text = %q, want %q", m.Text, "I open the door.")
	}
	if m.Speaker != "Izzy" {
		t.Errorf("merged speaker = %q, want %q", m.Speaker, "Izzy")
	}
}

func TestMerge_OverlappingKeepsWidestSpan(t *testing.T) {
	t.Parallel()

	a := segment.Segment{StartMS: 100, EndMS: 400, Text: "first", Speaker: "DM"}
	b := segment.Segment{StartMS: 150, EndMS: 300, Text: "second", Speaker: "DM"}

	m := a.Merge(b)
	if m.StartMS != 100 || m.EndMS != 400 {
		t.Errorf("merged timestamps = (%d, %d), want (100, 400)", m.StartMS, m.EndMS)
	}
}
