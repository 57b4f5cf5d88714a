// Package scenekit is the fixed capability surface available to compiled
// scene components: UI node constructors, animation timing primitives, a
// small 3D primitive set, and media resource handles.
//
// Compiled scenes never import scenekit themselves; the dynamic compiler
// injects these symbols into the interpreter scope under bare names. The
// surface is versioned so an artifact records what it was built against.
package scenekit

// Version identifies the capability surface. Recorded on every artifact.
const Version = "scenekit/1"

// Node is a renderable element of a scene tree. Rendering a node is pure:
// the same tree always draws the same frame.
type Node interface {
	Kind() string
}

// Style holds visual attributes shared by 2D primitives.
// Opacity is 0..1; constructors default it to 1.
type Style struct {
	Fill        string
	Stroke      string
	StrokeWidth float64
	Opacity     float64
}

// Element is the generic 2D node. All 2D constructors return one.
type Element struct {
	Name     string
	Attrs    map[string]float64
	Label    string
	Style    Style
	Media    Resource
	Children []Node
}

func (e *Element) Kind() string { return e.Name }

func newElement(name string, attrs map[string]float64, style Style, children ...Node) *Element {
	if style.Opacity == 0 {
		style.Opacity = 1
	}
	return &Element{Name: name, Attrs: attrs, Style: style, Children: children}
}

// Group collects children under a single node.
func Group(children ...Node) Node {
	return newElement("group", nil, Style{}, children...)
}

// Rect draws an axis-aligned rectangle.
func Rect(x, y, w, h float64, style Style) Node {
	return newElement("rect", map[string]float64{"x": x, "y": y, "w": w, "h": h}, style)
}

// Circle draws a circle centered at (x, y).
func Circle(x, y, r float64, style Style) Node {
	return newElement("circle", map[string]float64{"x": x, "y": y, "r": r}, style)
}

// Line draws a segment from (x1, y1) to (x2, y2).
func Line(x1, y1, x2, y2 float64, style Style) Node {
	return newElement("line", map[string]float64{"x1": x1, "y1": y1, "x2": x2, "y2": y2}, style)
}

// Text places a string at (x, y) with the given font size.
func Text(s string, x, y, size float64, style Style) Node {
	n := newElement("text", map[string]float64{"x": x, "y": y, "size": size}, style)
	n.Label = s
	return n
}

// Image places a still media resource.
func Image(res Resource, x, y, w, h float64) Node {
	n := newElement("image", map[string]float64{"x": x, "y": y, "w": w, "h": h}, Style{})
	n.Media = res
	return n
}

// Video places a playable media resource. Playback position follows scene time.
func Video(res Resource, x, y, w, h float64) Node {
	n := newElement("video", map[string]float64{"x": x, "y": y, "w": w, "h": h}, Style{})
	n.Media = res
	return n
}

// Translate wraps children in a coordinate offset.
func Translate(dx, dy float64, children ...Node) Node {
	return newElement("translate", map[string]float64{"dx": dx, "dy": dy}, Style{}, children...)
}

// Rotate wraps children in a rotation (degrees) about (cx, cy).
func Rotate(deg, cx, cy float64, children ...Node) Node {
	return newElement("rotate", map[string]float64{"deg": deg, "cx": cx, "cy": cy}, Style{}, children...)
}

// Opacity wraps children in an opacity multiplier.
func Opacity(alpha float64, children ...Node) Node {
	return newElement("opacity", map[string]float64{"alpha": alpha}, Style{}, children...)
}
