package edit

import (
	"strings"
	"testing"
)

func TestDiffCountsLines(t *testing.T) {
	oldSrc := "a\nb\nc\n"
	newSrc := "a\nB\nc\nd\n"
	p := Diff(oldSrc, newSrc)
	if p.Added != 2 || p.Removed != 1 {
		t.Errorf("Added=%d Removed=%d, want 2 and 1", p.Added, p.Removed)
	}
	out := p.String()
	if !strings.Contains(out, "+ B") || !strings.Contains(out, "- b") {
		t.Errorf("rendered preview missing hunks:\n%s", out)
	}
}

func TestDiffIdentical(t *testing.T) {
	p := Diff("same\n", "same\n")
	if p.Added != 0 || p.Removed != 0 {
		t.Errorf("identical sources diffed: %+v", p)
	}
}
