// Package edit applies generator-produced edit operations to existing scene
// source. Matching is deliberately strict: a search text that does not pin
// down exactly one span is never guessed at, it is reported as inapplicable
// so the correction loop can re-ask with the real source restated.
package edit

import (
	"fmt"
	"strings"
)

// Kind discriminates edit operations.
type Kind string

const (
	KindSearchReplace Kind = "search-replace"
	KindFullReplace   Kind = "full-replace"
)

// Operation is one edit produced by the source generator.
// Search/Replace are set for search-replace; Source for full-replace.
type Operation struct {
	Kind    Kind   `json:"kind"`
	Search  string `json:"search,omitempty"`
	Replace string `json:"replace,omitempty"`
	Source  string `json:"source,omitempty"`
}

// InapplicableError reports an operation that could not be applied to the
// current source. OpIndex names the offending operation.
type InapplicableError struct {
	OpIndex int
	Matches int
	Reason  string
}

func (e *InapplicableError) Error() string {
	return fmt.Sprintf("edit %d inapplicable: %s", e.OpIndex, e.Reason)
}

// Apply applies operations sequentially against the progressively-updated
// source and returns the new source. The input is never mutated. A zero or
// multiple match yields an InapplicableError; spans that overlap across
// operations resolve to inapplicability the same way, because a later
// operation's search text no longer exists once an earlier one rewrote it.
func Apply(current string, ops []Operation) (string, error) {
	if len(ops) == 0 {
		return "", &InapplicableError{OpIndex: -1, Reason: "no operations in response"}
	}

	// A full replacement stands alone; mixing it with other edits means the
	// generator produced an incoherent response.
	for i, op := range ops {
		if op.Kind == KindFullReplace {
			if len(ops) != 1 {
				return "", &InapplicableError{
					OpIndex: i,
					Reason:  "full-replace mixed with other operations",
				}
			}
			if strings.TrimSpace(op.Source) == "" {
				return "", &InapplicableError{OpIndex: i, Reason: "full-replace with empty source"}
			}
			return op.Source, nil
		}
	}

	result := current
	for i, op := range ops {
		if op.Kind != KindSearchReplace {
			return "", &InapplicableError{
				OpIndex: i,
				Reason:  fmt.Sprintf("unknown operation kind %q", op.Kind),
			}
		}
		next, err := applyOne(result, i, op)
		if err != nil {
			return "", err
		}
		result = next
	}
	return result, nil
}

// countOccurrences counts matches of search in src including overlapping
// ones, which strings.Count misses. A self-overlapping search text in a
// repetitive source pins down two spans, not one, and must be ambiguous.
func countOccurrences(src, search string) int {
	count := 0
	for at := 0; ; at++ {
		i := strings.Index(src[at:], search)
		if i < 0 {
			return count
		}
		count++
		at += i
	}
}

// applyOne replaces the unique occurrence of op.Search in src. If the exact
// text is absent, matching retries with whitespace normalized at the search
// boundaries only; the interior must still match byte for byte.
func applyOne(src string, index int, op Operation) (string, error) {
	if op.Search == "" {
		return "", &InapplicableError{OpIndex: index, Reason: "empty search text"}
	}

	search := op.Search
	count := countOccurrences(src, search)
	if count == 0 {
		trimmed := strings.TrimSpace(op.Search)
		if trimmed != "" && trimmed != op.Search {
			search = trimmed
			count = countOccurrences(src, search)
		}
	}

	switch count {
	case 0:
		return "", &InapplicableError{
			OpIndex: index,
			Matches: 0,
			Reason:  "search text not found in current source",
		}
	case 1:
		pos := strings.Index(src, search)
		return src[:pos] + op.Replace + src[pos+len(search):], nil
	default:
		return "", &InapplicableError{
			OpIndex: index,
			Matches: count,
			Reason:  fmt.Sprintf("search text matches %d spans, need exactly one", count),
		}
	}
}
