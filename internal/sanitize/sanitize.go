// Package sanitize normalizes raw generator output into a directly
// compilable scene component body. The generator does not guarantee
// fence-free, import-free, complete output, so everything here is
// best-effort repair with one hard requirement: a recognizable Scene
// definition must exist.
package sanitize

import (
	"go/parser"
	"go/token"
	"strings"
)

// ComponentMarker is the definition every scene component must contain.
const ComponentMarker = "func Scene("

// NoComponentError reports that no recognizable scene definition exists in
// the generator output.
type NoComponentError struct {
	Hint string
}

func (e *NoComponentError) Error() string {
	if e.Hint == "" {
		return "no scene component found in generated output"
	}
	return "no scene component found: " + e.Hint
}

// Sanitize extracts the component body from raw generator output: code
// fences of any style are unwrapped, surrounding prose dropped, package and
// import declarations stripped (the capability scope supplies those
// bindings directly), and truncated output trimmed to the last complete
// statement.
func Sanitize(raw string) (string, error) {
	code := extractFenced(raw)
	if code == "" {
		code = stripProse(raw)
	}
	code = stripDeclarations(code)

	if !strings.Contains(code, ComponentMarker) {
		return "", &NoComponentError{Hint: "output has no " + ComponentMarker + " definition"}
	}

	code = trimToCompleteStatements(code)
	return strings.TrimSpace(code) + "\n", nil
}

// extractFenced returns the first fenced code block, or "" if none. A fence
// left unclosed by truncation extends to the end of the text.
func extractFenced(text string) string {
	fences := []string{"```go", "```golang", "```", "~~~go", "~~~"}
	for _, fence := range fences {
		idx := strings.Index(text, fence+"\n")
		if idx == -1 {
			idx = strings.Index(text, fence+"\r\n")
			if idx == -1 {
				continue
			}
		}
		start := idx + len(fence)
		start += strings.IndexByte(text[start:], '\n') + 1
		marker := fence[:3]
		if end := strings.Index(text[start:], marker); end != -1 {
			return strings.TrimSpace(text[start : start+end])
		}
		return strings.TrimSpace(text[start:])
	}
	return ""
}

// stripProse drops narrative lines before the first top-level Go
// declaration. Used only when the output carried no fence at all.
func stripProse(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "package ") ||
			strings.HasPrefix(trimmed, "import ") ||
			strings.HasPrefix(trimmed, "import(") ||
			strings.HasPrefix(trimmed, "func ") ||
			strings.HasPrefix(trimmed, "const ") ||
			strings.HasPrefix(trimmed, "var ") ||
			strings.HasPrefix(trimmed, "type ") {
			return strings.Join(lines[i:], "\n")
		}
	}
	return text
}

// stripDeclarations removes package and import statements line by line.
// The capability scope injects every binding a scene may reference, so
// declarative imports in generated output are noise at best and unresolvable
// at worst.
func stripDeclarations(code string) string {
	lines := strings.Split(code, "\n")
	kept := make([]string, 0, len(lines))

	inImportBlock := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if inImportBlock {
			if strings.HasPrefix(trimmed, ")") {
				inImportBlock = false
			}
			continue
		}
		if strings.HasPrefix(trimmed, "import (") {
			inImportBlock = true
			continue
		}
		if strings.HasPrefix(trimmed, "import ") {
			continue
		}
		if strings.HasPrefix(trimmed, "package ") {
			continue
		}
		kept = append(kept, line)
	}

	return strings.Join(kept, "\n")
}

// trimToCompleteStatements repairs truncated output. If the body does not
// parse as-is, trailing lines are dropped until it does; at each cut point
// closing the still-open blocks is also attempted, which recovers bodies
// whose final statements are complete but whose closing braces were lost.
func trimToCompleteStatements(code string) string {
	if parses(code) {
		return code
	}

	lines := strings.Split(code, "\n")
	for end := len(lines); end > 0; end-- {
		candidate := strings.TrimRight(strings.Join(lines[:end], "\n"), " \t")
		if candidate == "" {
			continue
		}
		if parses(candidate) {
			return candidate
		}
		if fixed, ok := closeOpenBlocks(candidate); ok {
			return fixed
		}
	}
	return code
}

func parses(body string) bool {
	fset := token.NewFileSet()
	_, err := parser.ParseFile(fset, "scene.go", "package scene\n\n"+body, 0)
	return err == nil
}

// closeOpenBlocks appends the missing closing braces when the candidate is
// otherwise a complete prefix.
func closeOpenBlocks(code string) (string, bool) {
	open := strings.Count(code, "{") - strings.Count(code, "}")
	if open <= 0 || open > 8 {
		return "", false
	}
	fixed := code + "\n" + strings.Repeat("}\n", open)
	if parses(fixed) {
		return fixed, true
	}
	return "", false
}
