package collab

import "strings"

// LineRange is an inclusive, 1-indexed span of document lines.
type LineRange struct {
	StartLine int
	EndLine   int
}

// DetectChanges returns the contiguous line ranges that differ between two
// text snapshots. It is a greedy single-pass alignment, not a minimal edit
// script: on a mismatch it advances the cursor pointing at the shorter line
// (both cursors when the lines are the same length, which lets it resync on
// in-place replacements) and it can over-report range width on interleaved
// insert/delete patterns. Its only consumer is cosmetic highlighting, so the
// approximation is acceptable.
func DetectChanges(oldText, newText string) []LineRange {
	oldLines := strings.Split(oldText, "\n")
	newLines := strings.Split(newText, "\n")

	var changes []LineRange
	i, j := 0, 0
	startDiff := -1

	for i < len(oldLines) || j < len(newLines) {
		if i < len(oldLines) && j < len(newLines) && oldLines[i] == newLines[j] {
			if startDiff != -1 {
				changes = append(changes, LineRange{StartLine: startDiff + 1, EndLine: i})
				startDiff = -1
			}
			i++
			j++
			continue
		}
		if startDiff == -1 {
			startDiff = i
		}
		switch {
		case j >= len(newLines):
			i++
		case i >= len(oldLines):
			j++
		case len(oldLines[i]) < len(newLines[j]):
			i++
		case len(newLines[j]) < len(oldLines[i]):
			j++
		default:
			i++
			j++
		}
	}

	if startDiff != -1 {
		end := max(len(oldLines), len(newLines))
		changes = append(changes, LineRange{StartLine: startDiff + 1, EndLine: end})
	}
	return changes
}

// Lines extracts the inclusive 1-indexed range from a text snapshot,
// clamped to the snapshot's bounds.
func (r LineRange) Lines(text string) string {
	lines := strings.Split(text, "\n")
	start := r.StartLine - 1
	if start < 0 {
		start = 0
	}
	end := r.EndLine
	if end > len(lines) {
		end = len(lines)
	}
	if start >= end {
		return ""
	}
	return strings.Join(lines[start:end], "\n")
}
