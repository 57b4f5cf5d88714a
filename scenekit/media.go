package scenekit

// Resource is a handle to a media asset resolved by the asset store.
// Handles are owned by the host for the process lifetime; compiled scenes
// only reference them.
type Resource struct {
	Name    string // filename as the scene refers to it
	Locator string // resolved location, opaque to scenes
	MIME    string
}

// Params are the per-render tunables a scene component reads.
type Params map[string]float64

// Get returns a parameter value or the given default.
func (p Params) Get(name string, def float64) float64 {
	if p == nil {
		return def
	}
	if v, ok := p[name]; ok {
		return v
	}
	return def
}

// Context is the sole input of a scene component. A component must be a
// pure function of its Context.
type Context struct {
	Time   float64 // seconds since scene start
	Frame  int
	FPS    float64
	Width  int
	Height int
	Params Params
}
