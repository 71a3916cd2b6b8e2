package math3d

// Vec4 is a homogeneous point: the direct output of a Proj*View*Model
// transform, before the renderer's own perspective divide. render does
// that divide itself (see projectHomogeneous, which reads W directly
// rather than going through a Vec4 method) — the only two things this
// package needs to supply are the type and a way to build one from a
// Vec3 point or direction.
type Vec4 struct {
	X, Y, Z, W float64
}

// V4 creates a new Vec4.
func V4(x, y, z, w float64) Vec4 {
	return Vec4{x, y, z, w}
}

// V4FromV3 creates a Vec4 from a Vec3 point (w=1) or direction (w=0).
func V4FromV3(v Vec3, w float64) Vec4 {
	return Vec4{v.X, v.Y, v.Z, w}
}
