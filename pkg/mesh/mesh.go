// Package mesh describes a triangle mesh the way the rasterizer and
// renderer consume it: flat vertex/normal/texcoord arrays addressed by
// 16-bit indices, plus the compact face-stream encoding those indices
// are packed into on disk (see facestream.go).
package mesh

import (
	"github.com/taigrr/tgx/pkg/math3d"
	"github.com/taigrr/tgx/pkg/pixel"
)

// MaxVertices, MaxNormals and MaxTexcoords are the index-width limits
// the face-stream format imposes: a vertex index steals one bit of its
// word to the direction bit, halving its range relative to normal and
// texcoord indices.
const (
	MaxVertices  = 32767
	MaxNormals   = 65535
	MaxTexcoords = 65535
)

// Material holds the reflectance coefficients the renderer's Phong
// lighting step (and, when untextured, the rasterizer's flat/Gouraud
// shading) reads for a mesh: a base color, ambient/diffuse/specular
// strengths in [0,1], and a specular exponent used to index the
// table-driven specular lookup. SpecularExponent <= 0 disables the
// specular term entirely.
type Material struct {
	Color            pixel.ColorF
	AmbientK         float32
	DiffuseK         float32
	SpecularK        float32
	SpecularExponent int
}

// AABB is an axis-aligned bounding box in model space. A zero-value
// AABB (Min == Max == origin) is the sentinel for "bounds not
// computed": the renderer never discards a mesh whose bounds it can't
// trust.
type AABB struct {
	Min, Max math3d.Vec3
}

// Mesh is a single drawable object: independently-indexed vertex,
// normal and texcoord arrays, a face stream referencing them, an
// optional texture, a default material, a bounding box, and an
// optional link to the next mesh in a draw chain.
type Mesh struct {
	Vertices  []math3d.Vec3
	Normals   []math3d.Vec3  // nil if the mesh carries no normals (flat shading only)
	Texcoords []math3d.Vec2  // nil if the mesh carries no texture coordinates
	Faces     []byte         // the raw face stream (see facestream.go)
	Texture   *pixel.View[pixel.RGB888]

	Material Material
	Bounds   AABB

	Next *Mesh

	Name string
}

// HasNormals reports whether per-vertex normals are available, and
// therefore whether Gouraud/Phong shading is possible for this mesh.
func (m *Mesh) HasNormals() bool { return len(m.Normals) > 0 }

// HasTexcoords reports whether texture coordinates are available.
func (m *Mesh) HasTexcoords() bool { return len(m.Texcoords) > 0 }

// HasTexture reports whether a texture image is bound and usable.
func (m *Mesh) HasTexture() bool { return m.Texture != nil && m.Texture.Valid() }

// BoundsComputed reports whether Bounds is anything other than the
// zero-box sentinel for "not computed".
func (m *Mesh) BoundsComputed() bool {
	return m.Bounds.Min != (math3d.Vec3{}) || m.Bounds.Max != (math3d.Vec3{})
}

// ComputeBounds recomputes Bounds from Vertices. A mesh with no
// vertices is left at the zero-box sentinel.
func (m *Mesh) ComputeBounds() {
	if len(m.Vertices) == 0 {
		m.Bounds = AABB{}
		return
	}
	min, max := m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		min = min.Min(v)
		max = max.Max(v)
	}
	m.Bounds = AABB{Min: min, Max: max}
}

// Triangle is one decoded face: indices into Vertices, and, where
// present, parallel indices into Normals and Texcoords.
type Triangle struct {
	V [3]int
	N [3]int // zero value if the mesh has no normals
	T [3]int // zero value if the mesh has no texcoords
}
