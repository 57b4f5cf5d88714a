// Package compile turns a sanitized scene component body into a live,
// renderable artifact. Instead of shelling out to a toolchain, bodies are
// evaluated in a yaegi interpreter whose scope carries only the versioned
// scenekit capability surface: no filesystem, network, or exec access, and
// a fresh scope per compilation so one failure cannot corrupt another
// artifact's bindings.
package compile

import (
	"fmt"
	"go/parser"
	"go/scanner"
	"go/token"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"go.uber.org/zap"

	"sceneforge/internal/logging"
	"sceneforge/scenekit"
)

// CompileError reports a syntax failure in the component body. Line and
// Column are positions within the body where available.
type CompileError struct {
	Message string
	Line    int
	Column  int
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("compile error at %d:%d: %s", e.Line, e.Column, e.Message)
	}
	return "compile error: " + e.Message
}

// RuntimeError reports an instantiation failure: an undeclared capability
// reference, a missing or mis-typed Scene definition, or a panic during the
// probe render.
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string { return "runtime error: " + e.Message }

// Artifact is a live compiled scene. It is superseded, never mutated, on
// each successful recompilation.
type Artifact struct {
	component    func(scenekit.Context) scenekit.Node
	Source       string
	ScopeVersion string
	CompiledAt   time.Time

	width, height int
	fps           float64
}

// Render draws the frame at time t. Rendering is a pure function of the
// artifact, the time, and the params; panics inside the component surface
// as RuntimeError.
func (a *Artifact) Render(t float64, params scenekit.Params) (node scenekit.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			node = nil
			err = &RuntimeError{Message: fmt.Sprint(r)}
		}
	}()

	ctx := scenekit.Context{
		Time:   t,
		Frame:  int(t * a.fps),
		FPS:    a.fps,
		Width:  a.width,
		Height: a.height,
		Params: params,
	}
	return a.component(ctx), nil
}

// Compiler instantiates sanitized component bodies.
type Compiler struct {
	width  int
	height int
	fps    float64
	log    *zap.Logger
}

// New creates a compiler for the given canvas geometry.
func New(width, height, fps int) *Compiler {
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}
	if fps <= 0 {
		fps = 30
	}
	return &Compiler{
		width:  width,
		height: height,
		fps:    float64(fps),
		log:    logging.Named("compile"),
	}
}

// Compile wraps the component body with the scope prelude, syntax-checks
// it, evaluates it in a fresh interpreter, and probe-renders the first
// frame. Any returned artifact is fully usable.
func (c *Compiler) Compile(componentBody string, scope *Scope) (*Artifact, error) {
	start := time.Now()

	src, bodyOffset := c.wrap(componentBody, scope)

	// Syntax first: the parser reports positions, the interpreter mostly
	// does not.
	if err := checkSyntax(src, bodyOffset); err != nil {
		c.log.Debug("syntax check failed", zap.Error(err))
		return nil, err
	}

	i := interp.New(interp.Options{})
	if err := i.Use(scope.exports()); err != nil {
		return nil, &RuntimeError{Message: "failed to bind capability scope: " + err.Error()}
	}

	if _, err := i.Eval(src); err != nil {
		c.log.Debug("evaluation failed", zap.Error(err))
		return nil, &RuntimeError{Message: err.Error()}
	}

	v, err := i.Eval("scene.Scene")
	if err != nil {
		return nil, &RuntimeError{Message: "Scene definition not found after evaluation: " + err.Error()}
	}
	component, ok := v.Interface().(func(scenekit.Context) scenekit.Node)
	if !ok {
		return nil, &RuntimeError{
			Message: "Scene has wrong signature, want func Scene(ctx Context) Node",
		}
	}

	artifact := &Artifact{
		component:    component,
		Source:       componentBody,
		ScopeVersion: scope.Version(),
		CompiledAt:   time.Now(),
		width:        c.width,
		height:       c.height,
		fps:          c.fps,
	}

	// Probe the first frame so runtime failures are caught before the
	// artifact can supersede a working one.
	if _, err := artifact.Render(0, scenekit.Params{}); err != nil {
		c.log.Debug("probe render failed", zap.Error(err))
		return nil, err
	}

	c.log.Info("scene compiled",
		zap.Int("source_len", len(componentBody)),
		zap.String("scope", artifact.ScopeVersion),
		zap.Duration("elapsed", time.Since(start)))
	return artifact, nil
}

// wrap assembles the interpreter source unit and returns it with the line
// offset of the component body inside it.
func (c *Compiler) wrap(componentBody string, scope *Scope) (string, int) {
	var sb strings.Builder
	sb.WriteString("package scene\n\n")
	sb.WriteString(scope.prelude())
	sb.WriteString("\n")
	offset := strings.Count(sb.String(), "\n")
	sb.WriteString(componentBody)
	return sb.String(), offset
}

// checkSyntax parses the wrapped unit and maps the first error back into
// component-body coordinates.
func checkSyntax(src string, bodyOffset int) error {
	fset := token.NewFileSet()
	_, err := parser.ParseFile(fset, "scene.go", src, 0)
	if err == nil {
		return nil
	}

	if list, ok := err.(scanner.ErrorList); ok && len(list) > 0 {
		first := list[0]
		line := first.Pos.Line - bodyOffset
		if line < 1 {
			line = first.Pos.Line
		}
		return &CompileError{Message: first.Msg, Line: line, Column: first.Pos.Column}
	}
	return &CompileError{Message: err.Error()}
}
