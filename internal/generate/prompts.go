package generate

import (
	"fmt"
	"strings"

	"sceneforge/internal/skills"
)

// dialectBrief teaches the model the scene dialect. The generated body is
// compiled inside a capability scope, so imports and package clauses are
// forbidden outright rather than merely discouraged.
const dialectBrief = `You write scenes in a restricted Go dialect. Rules:

- Define exactly one entry point: func Scene(ctx Context) Node
- NO package clause, NO import statements. Every capability below is already in scope.
- ctx gives Time (seconds), Frame, FPS, Width, Height, and Params.Get(name, default).
- Build the tree with: Group(children...), Rect(x, y, w, h, style),
  Circle(x, y, r, style), Line(x1, y1, x2, y2, style),
  Text(s, x, y, size, style), Image(res, x, y, w, h), Video(res, x, y, w, h),
  Translate(dx, dy, children...), Rotate(deg, cx, cy, children...),
  Opacity(alpha, children...).
- Style values: Style{Fill, Stroke, StrokeWidth, Opacity}. Colors are hex strings.
- Timing helpers: Clamp(v, lo, hi), Progress(t, start, dur),
  Interpolate(t, t0, t1, v0, v1), EaseLinear/EaseIn/EaseOut/EaseInOut(p),
  FadeIn(t, start, dur), FadeOut(t, start, dur), Spring(t, stiffness, damping),
  Sequence(t, segments...) returning (index, localTime).
- 3D: Scene3D, Mesh, RotatedMesh, PointLight, Camera, Vec3.
- Media: Asset("name") resolves a declared asset; referencing an undeclared
  asset is a runtime failure, so only use names you were told exist.
- Helper functions are fine. Everything must be deterministic in ctx.Time.`

const coldStartFormat = `Reply with the complete scene source in a single ` + "```go" + ` code block.
A short sentence before or after the block is fine; anything that is not the scene goes outside the block.`

const followUpFormat = `Reply with ONLY a JSON object of this shape:
{"operations": [...], "summary": "one sentence describing the change"}
Each operation is either
  {"kind": "search-replace", "search": "<exact text from the current source>", "replace": "<replacement>"}
or, only when the change is too large for targeted edits,
  {"kind": "full-replace", "source": "<entire new scene source>"}
A search text must match exactly one span of the current source, byte for byte,
including whitespace. Copy it from the source, never paraphrase it. Prefer
several small search-replace operations over one full-replace.`

const editResponseSchema = `{
  "type": "object",
  "properties": {
    "operations": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "kind": {"type": "string", "enum": ["search-replace", "full-replace"]},
          "search": {"type": "string"},
          "replace": {"type": "string"},
          "source": {"type": "string"}
        },
        "required": ["kind"]
      }
    },
    "summary": {"type": "string"}
  },
  "required": ["operations", "summary"]
}`

func coldStartSystemPrompt(selected []skills.Descriptor) string {
	var sb strings.Builder
	sb.WriteString("You are a motion-graphics programmer generating animated scenes from user descriptions.\n\n")
	sb.WriteString(dialectBrief)
	sb.WriteString("\n\n")
	sb.WriteString(coldStartFormat)
	writeSkills(&sb, selected)
	return sb.String()
}

func followUpSystemPrompt(selected []skills.Descriptor) string {
	var sb strings.Builder
	sb.WriteString("You are a motion-graphics programmer editing an existing animated scene.\n\n")
	sb.WriteString(dialectBrief)
	sb.WriteString("\n\n")
	sb.WriteString(followUpFormat)
	writeSkills(&sb, selected)
	return sb.String()
}

func writeSkills(sb *strings.Builder, selected []skills.Descriptor) {
	if len(selected) == 0 {
		return
	}
	sb.WriteString("\n\nDomain knowledge for this request:\n")
	for _, d := range selected {
		fmt.Fprintf(sb, "\n--- %s (%s) ---\n%s\n", d.ID, d.Category, strings.TrimSpace(d.Body))
	}
}

func coldStartUserPrompt(req Request) string {
	var sb strings.Builder
	writeHistory(&sb, req.History)
	writeAssets(&sb, req.Assets)
	writeCorrection(&sb, req.Correction)
	sb.WriteString("Request:\n")
	sb.WriteString(req.Prompt)
	return sb.String()
}

func followUpUserPrompt(req Request) string {
	var sb strings.Builder
	writeHistory(&sb, req.History)
	writeAssets(&sb, req.Assets)
	sb.WriteString("Current scene source:\n```go\n")
	sb.WriteString(req.CurrentSource)
	sb.WriteString("\n```\n\n")
	writeCorrection(&sb, req.Correction)
	sb.WriteString("Requested change:\n")
	sb.WriteString(req.Prompt)
	return sb.String()
}

func writeHistory(sb *strings.Builder, history []string) {
	if len(history) == 0 {
		return
	}
	sb.WriteString("Earlier requests in this conversation:\n")
	for _, h := range history {
		fmt.Fprintf(sb, "- %s\n", h)
	}
	sb.WriteString("\n")
}

func writeAssets(sb *strings.Builder, assets []string) {
	if len(assets) == 0 {
		sb.WriteString("No media assets are declared; do not call Asset().\n\n")
		return
	}
	sb.WriteString("Declared media assets, usable via Asset(name):\n")
	for _, name := range assets {
		fmt.Fprintf(sb, "- %s\n", name)
	}
	sb.WriteString("\n")
}

func writeCorrection(sb *strings.Builder, c *Correction) {
	if c == nil {
		return
	}
	fmt.Fprintf(sb, "Your previous attempt failed at the %s stage:\n%s\n", c.Stage, c.Message)
	if c.FailingSource != "" {
		sb.WriteString("\nThe failing source was:\n```go\n")
		sb.WriteString(c.FailingSource)
		sb.WriteString("\n```\n")
	}
	sb.WriteString("\nFix the defect described above. Do not repeat it.\n\n")
}
