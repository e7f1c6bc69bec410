// Package render turns the pipeline's segment sequences into the output
// artifacts: speaker-labelled transcript text, per-speaker cleaned tables,
// and the combined and merged tables written next to the input recordings.
//
// File names are deterministic and communicate session identity:
//
//	<stem>_processed.tsv                     per-speaker cleaned table
//	<session>_<part>_processed.csv           combined cleaned table
//	<session>_<part>_merged.csv              merged + compacted table
//	<session>_<part>_final.txt               full transcript
//	<session>_<part>_final_part_<i>.txt      split parts, 1-based
//
// An empty part renders as "complete".
package render

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/philote/TTRPG-session-notes/internal/segment"
	"github.com/philote/TTRPG-session-notes/internal/split"
)

// tableHeader is the column layout shared by all table artifacts.
var tableHeader = []string{"start", "end", "text", "name"}

// Line renders one segment as a speaker-labelled transcript line.
func Line(s segment.Segment) string {
	return s.Speaker + ": " + s.Text
}

// TranscriptLines renders segments as speaker-labelled lines, one per
// utterance, in the given order.
func TranscriptLines(segs []segment.Segment) []string {
	lines := make([]string, len(segs))
	for i, s := range segs {
		lines[i] = Line(s)
	}
	return lines
}

// SessionBase returns the "<session>_<part>" prefix used by all session-wide
// artifacts. An empty part means the session was recorded in one piece.
func SessionBase(session, part string) string {
	if part == "" {
		part = "complete"
	}
	return session + "_" + part
}

// Writer writes output artifacts into a single directory with a fixed
// session prefix.
type Writer struct {
	dir  string
	base string
}

// NewWriter returns a [Writer] placing artifacts in dir, named for the given
// session and part.
func NewWriter(dir, session, part string) *Writer {
	return &Writer{dir: dir, base: SessionBase(session, part)}
}

// WriteSpeakerTable writes one speaker's cleaned sequence as
// "<stem>_processed.tsv" and returns the file path. stem is the input
// recording's file name without extension.
func (w *Writer) WriteSpeakerTable(seq segment.Sequence, stem string) (string, error) {
	path := filepath.Join(w.dir, stem+"_processed.tsv")
	if err := writeTable(path, '\t', seq.Segments); err != nil {
		return "", fmt.Errorf("render: speaker table for %q: %w", seq.Speaker, err)
	}
	return path, nil
}

// WriteCombinedTable writes all speakers' cleaned segments, already in
// chronological order, as "<base>_processed.csv".
func (w *Writer) WriteCombinedTable(segs []segment.Segment) (string, error) {
	path := filepath.Join(w.dir, w.base+"_processed.csv")
	if err := writeTable(path, ',', segs); err != nil {
		return "", fmt.Errorf("render: combined table: %w", err)
	}
	return path, nil
}

// WriteMergedTable writes the merged and compacted sequence as
// "<base>_merged.csv".
func (w *Writer) WriteMergedTable(segs []segment.Segment) (string, error) {
	path := filepath.Join(w.dir, w.base+"_merged.csv")
	if err := writeTable(path, ',', segs); err != nil {
		return "", fmt.Errorf("render: merged table: %w", err)
	}
	return path, nil
}

// WriteTranscriptParts writes the final transcript. lines is the complete
// transcript and is written verbatim as "<base>_final.txt" — parts repeat
// overlap lines across their boundaries, so the complete transcript is never
// reconstructed from them (dialogue may genuinely repeat at a boundary).
// When more than one part is given, each part is additionally written under
// its 1-based part name. Returns the paths written, complete transcript
// first.
func (w *Writer) WriteTranscriptParts(lines []string, parts [][]string) ([]string, error) {
	completePath := filepath.Join(w.dir, w.base+"_final.txt")
	if err := writeLines(completePath, lines); err != nil {
		return nil, fmt.Errorf("render: complete transcript: %w", err)
	}
	paths := []string{completePath}

	if len(parts) > 1 {
		for i, p := range parts {
			path := filepath.Join(w.dir, split.PartName(w.base, i+1, len(parts)))
			if err := writeLines(path, p); err != nil {
				return nil, fmt.Errorf("render: transcript part %d: %w", i+1, err)
			}
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// writeTable writes segments as a delimited table with the shared header.
func writeTable(path string, comma rune, segs []segment.Segment) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	cw.Comma = comma

	if err := cw.Write(tableHeader); err != nil {
		return err
	}
	for _, s := range segs {
		row := []string{
			strconv.FormatInt(s.StartMS, 10),
			strconv.FormatInt(s.EndMS, 10),
			s.Text,
			s.Speaker,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return f.Close()
}

// writeLines writes lines joined with newlines plus a trailing newline.
func writeLines(path string, lines []string) error {
	content := strings.Join(lines, "\n")
	if content != "" {
		content += "\n"
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
