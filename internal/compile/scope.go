package compile

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/traefik/yaegi/interp"

	"sceneforge/scenekit"
)

// scopePath is the import path capability bindings live under inside the
// interpreter. It is interpreter-local and unrelated to host package layout.
const scopePath = "scenekit"

// Scope is the capability surface one compilation runs against: the fixed
// scenekit registry plus a snapshot of the media bindings. A Scope is built
// fresh per compilation so artifacts never share mutable bindings.
type Scope struct {
	assets map[string]scenekit.Resource
}

// NewScope snapshots the given media bindings into a fresh scope. The input
// map is copied; later asset-store changes do not reach an existing scope.
func NewScope(assets map[string]scenekit.Resource) *Scope {
	snapshot := make(map[string]scenekit.Resource, len(assets))
	for name, res := range assets {
		snapshot[name] = res
	}
	return &Scope{assets: snapshot}
}

// Version identifies the capability surface this scope exposes.
func (s *Scope) Version() string { return scenekit.Version }

// Asset resolves a media binding. Unknown names panic so a probe render
// surfaces them as runtime failures the correction loop can act on.
func (s *Scope) Asset(name string) scenekit.Resource {
	res, ok := s.assets[name]
	if !ok {
		panic(fmt.Sprintf("unknown media asset %q", name))
	}
	return res
}

// exports builds the interpreter bindings for this scope.
func (s *Scope) exports() interp.Exports {
	symbols := make(map[string]reflect.Value)
	for name, v := range scenekit.Symbols() {
		symbols[name] = v
	}
	for name, v := range scenekit.TypeSymbols() {
		symbols[name] = v
	}
	symbols["Asset"] = reflect.ValueOf(s.Asset)

	return interp.Exports{
		scopePath + "/" + scopePath: symbols,
	}
}

// prelude generates the alias block that makes every capability available
// under its bare name inside the compiled unit.
func (s *Scope) prelude() string {
	valueNames := make([]string, 0, len(scenekit.Symbols())+1)
	for name := range scenekit.Symbols() {
		valueNames = append(valueNames, name)
	}
	valueNames = append(valueNames, "Asset")
	sort.Strings(valueNames)

	typeNames := make([]string, 0, len(scenekit.TypeSymbols()))
	for name := range scenekit.TypeSymbols() {
		typeNames = append(typeNames, name)
	}
	sort.Strings(typeNames)

	var sb strings.Builder
	fmt.Fprintf(&sb, "import capx %q\n\n", scopePath)
	sb.WriteString("type (\n")
	for _, name := range typeNames {
		fmt.Fprintf(&sb, "\t%s = capx.%s\n", name, name)
	}
	sb.WriteString(")\n\n")
	sb.WriteString("var (\n")
	for _, name := range valueNames {
		fmt.Fprintf(&sb, "\t%s = capx.%s\n", name, name)
	}
	sb.WriteString(")\n")
	return sb.String()
}
