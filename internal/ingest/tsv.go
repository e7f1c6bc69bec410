// Package ingest reads the per-speaker timestamped TSV files produced by the
// transcription engine and normalises them into validated [segment.Segment]
// values.
//
// The transcription engine is an external collaborator: this package is the
// boundary where its loosely-typed tabular rows become typed records.
// Malformed rows (missing columns, unparsable or inverted timestamps, blank
// text) are skipped with a warning and counted — never fatal, so one bad
// recording cannot sink the other speakers.
package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/philote/TTRPG-session-notes/internal/config"
	"github.com/philote/TTRPG-session-notes/internal/segment"
)

// ErrNoHeader is returned when a TSV file does not start with the expected
// start/end/text header row.
var ErrNoHeader = errors.New("ingest: missing start/end/text header")

// Report summarises one file's ingestion for the run summary.
type Report struct {
	// File is the base name of the ingested TSV file.
	File string

	// Speaker is the resolved participant name.
	Speaker string

	// Rows is the number of data rows read (header excluded).
	Rows int

	// Skipped is the number of malformed rows dropped.
	Skipped int
}

// SpeakerForFile resolves the participant name for a recording file.
// mappings maps file-name substrings to display names (recording tools embed
// the uploader's account name in the file name). Keys are tested in sorted
// order so resolution is deterministic when several keys match; the file stem
// is the fallback.
func SpeakerForFile(path string, mappings map[string]string) string {
	base := filepath.Base(path)

	keys := make([]string, 0, len(mappings))
	for k := range mappings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if k != "" && strings.Contains(base, k) {
			return mappings[k]
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ReadFile reads one speaker's TSV file and returns the validated, ingestion-
// ordered sequence. Per-speaker input is assumed time-ordered by the
// transcription engine; ReadFile does not re-sort.
func ReadFile(path string, unit config.TimestampUnit, speaker string) (segment.Sequence, Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return segment.Sequence{}, Report{}, fmt.Errorf("ingest: open %q: %w", path, err)
	}
	defer f.Close()

	seq, rep, err := Read(f, unit, speaker)
	if err != nil {
		return segment.Sequence{}, Report{}, fmt.Errorf("ingest: read %q: %w", path, err)
	}
	rep.File = filepath.Base(path)
	return seq, rep, nil
}

// Read parses TSV rows from r into a [segment.Sequence] for speaker.
// The first row must be the start/end/text header. Timestamps are converted
// from unit to integer milliseconds, rounding halves away from zero.
func Read(r io.Reader, unit config.TimestampUnit, speaker string) (segment.Sequence, Report, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return segment.Sequence{}, Report{}, err
		}
		return segment.Sequence{}, Report{}, ErrNoHeader
	}
	if !isHeader(sc.Text()) {
		return segment.Sequence{}, Report{}, fmt.Errorf("%w: got %q", ErrNoHeader, sc.Text())
	}

	seq := segment.Sequence{Speaker: speaker}
	rep := Report{Speaker: speaker}

	line := 1
	for sc.Scan() {
		line++
		row := sc.Text()
		if strings.TrimSpace(row) == "" {
			continue
		}
		rep.Rows++

		seg, err := parseRow(row, unit, speaker)
		if err != nil {
			rep.Skipped++
			slog.Warn("skipping malformed transcript row",
				"speaker", speaker,
				"line", line,
				"err", err,
			)
			continue
		}
		seq.Segments = append(seq.Segments, seg)
	}
	if err := sc.Err(); err != nil {
		return segment.Sequence{}, Report{}, err
	}
	return seq, rep, nil
}

// isHeader recognises the Whisper TSV header row, tolerating extra columns
// and case differences.
func isHeader(row string) bool {
	cols := strings.Split(strings.ToLower(strings.TrimSpace(row)), "\t")
	return len(cols) >= 3 && cols[0] == "start" && cols[1] == "end" && cols[2] == "text"
}

// parseRow converts one TSV data row into a validated segment. The text
// column is everything after the second tab, so utterances containing tabs
// survive intact.
func parseRow(row string, unit config.TimestampUnit, speaker string) (segment.Segment, error) {
	cols := strings.SplitN(row, "\t", 3)
	if len(cols) < 3 {
		return segment.Segment{}, fmt.Errorf("want 3 columns, got %d", len(cols))
	}

	start, err := parseTimestamp(cols[0], unit)
	if err != nil {
		return segment.Segment{}, fmt.Errorf("start column: %w", err)
	}
	end, err := parseTimestamp(cols[1], unit)
	if err != nil {
		return segment.Segment{}, fmt.Errorf("end column: %w", err)
	}

	return segment.New(start, end, strings.TrimSpace(cols[2]), speaker)
}

// parseTimestamp converts a timestamp cell to integer milliseconds.
func parseTimestamp(s string, unit config.TimestampUnit) (int64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if unit == config.UnitSeconds {
		v *= 1000
	}
	return int64(math.Round(v)), nil
}
