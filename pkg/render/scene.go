// Package render implements the vertex stage and pipeline driver that
// sits between a mesh.Mesh and the raster package's per-triangle
// rasterizer: matrix composition, back-face culling, frustum
// rejection, Phong lighting and the face-stream walk.
package render

import (
	"github.com/taigrr/tgx/pkg/math3d"
	"github.com/taigrr/tgx/pkg/mesh"
	"github.com/taigrr/tgx/pkg/pixel"
)

// MaterialMode selects which material a Draw call lights a mesh with:
// the mesh's own default, or the Scene's override. A third case —
// "explicit material for this call only" — is supported by
// Renderer.DrawWithMaterial's extra argument instead of a third enum
// value, since that case only makes sense paired with an actual
// material value.
type MaterialMode uint8

const (
	UseMeshMaterial MaterialMode = iota
	UseOverrideMaterial
)

// Scene holds everything a Draw call needs that is not part of the
// mesh itself: the matrix stack, light parameters, and which material
// a draw should light with.
type Scene struct {
	Proj, View, Model math3d.Mat4

	// LightDir is the light direction in world space, stored as the
	// direction light travels toward (not the direction to the light).
	LightDir math3d.Vec3

	AmbientColor  pixel.ColorF
	DiffuseColor  pixel.ColorF
	SpecularColor pixel.ColorF

	MaterialMode     MaterialMode
	OverrideMaterial mesh.Material
}

// activeMaterial resolves which material a given mesh should be lit
// with under the scene's current MaterialMode.
func (s Scene) activeMaterial(m *mesh.Mesh) mesh.Material {
	if s.MaterialMode == UseOverrideMaterial {
		return s.OverrideMaterial
	}
	return m.Material
}
