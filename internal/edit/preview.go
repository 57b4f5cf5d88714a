package edit

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Preview is a line-oriented summary of what an applied edit changed, for
// transcript display.
type Preview struct {
	Added   int
	Removed int
	Hunks   []string
}

// String renders the preview in a compact unified-diff-like form.
func (p Preview) String() string {
	if p.Added == 0 && p.Removed == 0 {
		return "no changes"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "+%d -%d", p.Added, p.Removed)
	for _, h := range p.Hunks {
		sb.WriteString("\n")
		sb.WriteString(h)
	}
	return sb.String()
}

// Diff computes a Preview between two source versions. A line-level
// reduction avoids newline boundary artifacts when converting to line ops.
func Diff(oldSource, newSource string) Preview {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0 // accuracy over speed for code-sized inputs

	a, b, lineArray := dmp.DiffLinesToChars(oldSource, newSource)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var p Preview
	for _, d := range diffs {
		lines := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			p.Added += len(lines)
			for _, line := range lines {
				p.Hunks = append(p.Hunks, "+ "+line)
			}
		case diffmatchpatch.DiffDelete:
			p.Removed += len(lines)
			for _, line := range lines {
				p.Hunks = append(p.Hunks, "- "+line)
			}
		}
	}
	return p
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
