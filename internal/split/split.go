// Package split divides the rendered transcript into size-bounded parts for
// downstream consumers with input limits.
//
// Splitting operates on whole transcript lines — one line is one utterance —
// so no part ever ends mid-utterance. An optional overlap repeats the tail of
// each part at the head of the next so cross-part context survives; overlap
// lines are duplicated content, which means parts are not a strict partition
// when overlap is enabled.
package split

import "fmt"

// Lines splits lines into ordered parts of at most threshold lines each.
//
// A threshold of zero or less, or input that already fits, yields a single
// part containing everything. overlap repeats the last overlap lines of part
// i as the first lines of part i+1; it must be smaller than threshold
// (enforced by config validation) so every part advances.
func Lines(lines []string, threshold, overlap int) [][]string {
	if threshold <= 0 || len(lines) <= threshold {
		return [][]string{lines}
	}
	if overlap < 0 {
		overlap = 0
	}

	var parts [][]string
	end := 0
	for end < len(lines) {
		start := end - overlap
		if start < 0 {
			start = 0
		}
		end = start + threshold
		if end > len(lines) {
			end = len(lines)
		}
		part := make([]string, end-start)
		copy(part, lines[start:end])
		parts = append(parts, part)
	}
	return parts
}

// PartName returns the deterministic file name for part index (1-based) out
// of total, following the session naming scheme: the single-part case uses
// the plain final name, multi-part output appends "_part_<i>".
func PartName(base string, index, total int) string {
	if total <= 1 {
		return base + "_final.txt"
	}
	return fmt.Sprintf("%s_final_part_%d.txt", base, index)
}
