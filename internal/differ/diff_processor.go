package differ

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineStats counts added and removed lines between two texts.
type LineStats struct {
	Added   int
	Removed int
}

// DiffProcessor handles the core diffing logic
type DiffProcessor struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewDiffProcessor creates a new diff processor
func NewDiffProcessor() *DiffProcessor {
	return &DiffProcessor{dmp: diffmatchpatch.New()}
}

// LineDiff computes a line-mode diff of old and new.
func (dp *DiffProcessor) LineDiff(oldText, newText string) LineStats {
	a, b, lines := dp.dmp.DiffLinesToChars(oldText, newText)
	diffs := dp.dmp.DiffMain(a, b, false)
	diffs = dp.dmp.DiffCharsToLines(diffs, lines)

	var stats LineStats
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			stats.Added += countLines(d.Text)
		case diffmatchpatch.DiffDelete:
			stats.Removed += countLines(d.Text)
		}
	}
	return stats
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
