package scenekit

import "reflect"

// Symbols returns the value-level capability surface (constructors and
// timing functions) keyed by the bare name compiled scenes use. The dynamic
// compiler turns this into interpreter bindings; the map itself is template
// data and must not be mutated.
func Symbols() map[string]reflect.Value {
	return map[string]reflect.Value{
		// 2D nodes
		"Group":     reflect.ValueOf(Group),
		"Rect":      reflect.ValueOf(Rect),
		"Circle":    reflect.ValueOf(Circle),
		"Line":      reflect.ValueOf(Line),
		"Text":      reflect.ValueOf(Text),
		"Image":     reflect.ValueOf(Image),
		"Video":     reflect.ValueOf(Video),
		"Translate": reflect.ValueOf(Translate),
		"Rotate":    reflect.ValueOf(Rotate),
		"Opacity":   reflect.ValueOf(Opacity),

		// timing
		"Clamp":       reflect.ValueOf(Clamp),
		"Progress":    reflect.ValueOf(Progress),
		"Interpolate": reflect.ValueOf(Interpolate),
		"EaseLinear":  reflect.ValueOf(EaseLinear),
		"EaseIn":      reflect.ValueOf(EaseIn),
		"EaseOut":     reflect.ValueOf(EaseOut),
		"EaseInOut":   reflect.ValueOf(EaseInOut),
		"FadeIn":      reflect.ValueOf(FadeIn),
		"FadeOut":     reflect.ValueOf(FadeOut),
		"Spring":      reflect.ValueOf(Spring),
		"Sequence":    reflect.ValueOf(Sequence),

		// 3D
		"Scene3D":     reflect.ValueOf(Scene3D),
		"Mesh":        reflect.ValueOf(Mesh),
		"RotatedMesh": reflect.ValueOf(RotatedMesh),
		"PointLight":  reflect.ValueOf(PointLight),
		"Camera":      reflect.ValueOf(Camera),
	}
}

// TypeSymbols returns the type-level surface, in the (*T)(nil) encoding the
// interpreter expects for binary types.
func TypeSymbols() map[string]reflect.Value {
	return map[string]reflect.Value{
		"Node":     reflect.ValueOf((*Node)(nil)),
		"Style":    reflect.ValueOf((*Style)(nil)),
		"Element":  reflect.ValueOf((*Element)(nil)),
		"Object3D": reflect.ValueOf((*Object3D)(nil)),
		"Vec3":     reflect.ValueOf((*Vec3)(nil)),
		"Segment":  reflect.ValueOf((*Segment)(nil)),
		"Resource": reflect.ValueOf((*Resource)(nil)),
		"Params":   reflect.ValueOf((*Params)(nil)),
		"Context":  reflect.ValueOf((*Context)(nil)),
	}
}
