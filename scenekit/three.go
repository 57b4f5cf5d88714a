package scenekit

// 3D primitive set. Nodes only; projection and shading are the rendering
// host's concern.

// Vec3 is a point or direction in scene space.
type Vec3 struct {
	X, Y, Z float64
}

// Object3D is the generic 3D node.
type Object3D struct {
	Name      string
	Shape     string
	Position  Vec3
	Scale     Vec3
	Rotation  Vec3
	Color     string
	Intensity float64
	FOV       float64
	Target    Vec3
	Children  []Node
}

func (o *Object3D) Kind() string { return o.Name }

// Scene3D roots a 3D subtree inside a 2D scene.
func Scene3D(children ...Node) Node {
	return &Object3D{Name: "scene3d", Children: children}
}

// Mesh places a primitive shape ("box", "sphere", "plane", "cylinder").
func Mesh(shape string, pos, scale Vec3, color string) Node {
	if scale == (Vec3{}) {
		scale = Vec3{X: 1, Y: 1, Z: 1}
	}
	return &Object3D{Name: "mesh", Shape: shape, Position: pos, Scale: scale, Color: color}
}

// RotatedMesh is Mesh with an Euler rotation in degrees.
func RotatedMesh(shape string, pos, scale, rot Vec3, color string) Node {
	m := Mesh(shape, pos, scale, color).(*Object3D)
	m.Rotation = rot
	return m
}

// PointLight places an omnidirectional light.
func PointLight(pos Vec3, intensity float64) Node {
	if intensity <= 0 {
		intensity = 1
	}
	return &Object3D{Name: "light", Position: pos, Intensity: intensity}
}

// Camera sets the viewpoint for the enclosing Scene3D.
func Camera(pos, lookAt Vec3, fov float64) Node {
	if fov <= 0 {
		fov = 50
	}
	return &Object3D{Name: "camera", Position: pos, Target: lookAt, FOV: fov}
}
