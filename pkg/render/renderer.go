package render

import (
	"math"

	"github.com/taigrr/tgx/pkg/depth"
	"github.com/taigrr/tgx/pkg/math3d"
	"github.com/taigrr/tgx/pkg/mesh"
	"github.com/taigrr/tgx/pkg/pixel"
	"github.com/taigrr/tgx/pkg/raster"
)

// Draw status codes. Zero is success; negative values name the
// specific precondition that failed. All preconditions, including the
// per-mesh vertex check, are validated over the whole chain before the
// first triangle is emitted: a failing Draw never leaves a partially
// drawn frame behind.
const (
	StatusOK             = 0
	StatusNoImage        = -1
	StatusNoDepthBuffer  = -2
	StatusMeshNoVertices = -3
)

// specTabSize is the specular lookup table's entry count.
const specTabSize = 12

// Renderer drives raster.Rasterizer through the vertex stage: matrix
// composition, frustum rejection, back-face culling, per-vertex clip
// testing and Phong lighting. It owns no pixels itself — SetTarget
// binds the same kind of image view the rasterizer draws into.
type Renderer[C pixel.Color[C]] struct {
	rast *raster.Rasterizer[C]

	depth        *depth.View
	depthTest    bool
	offsetX      int
	offsetY      int
	cullBackface bool

	scene Scene
}

// New creates a Renderer for a viewport of size lx x ly. Back-face
// culling defaults to on, matching the rasterizer's winding
// convention.
func New[C pixel.Color[C]](lx, ly int) *Renderer[C] {
	return &Renderer[C]{
		rast:         raster.New[C](lx, ly),
		cullBackface: true,
	}
}

func (r *Renderer[C]) SetTarget(v pixel.View[C]) { r.rast.SetTarget(v) }
func (r *Renderer[C]) Target() pixel.View[C]     { return r.rast.Target() }

// SetOffset places the bound image view's origin at (x, y) inside the
// fixed viewport; tile rendering draws the same size target at a
// succession of offsets. Offsets are clamped to [0, raster.MaxViewport].
func (r *Renderer[C]) SetOffset(x, y int) {
	r.offsetX = clampInt(x, 0, raster.MaxViewport)
	r.offsetY = clampInt(y, 0, raster.MaxViewport)
}
func (r *Renderer[C]) Offset() (int, int) { return r.offsetX, r.offsetY }

func (r *Renderer[C]) SetDepth(d *depth.View) { r.depth = d }
func (r *Renderer[C]) Depth() *depth.View     { return r.depth }

// SetDepthTest enables or disables depth testing. Enabling it without
// a sufficient depth buffer bound makes Draw fail with
// StatusNoDepthBuffer rather than silently skip the test.
func (r *Renderer[C]) SetDepthTest(enabled bool) { r.depthTest = enabled }
func (r *Renderer[C]) DepthTest() bool           { return r.depthTest }

func (r *Renderer[C]) SetOrtho(ortho bool) { r.rast.SetOrtho(ortho) }
func (r *Renderer[C]) Ortho() bool         { return r.rast.Ortho() }

func (r *Renderer[C]) SetViewport(lx, ly int) { r.rast.SetViewport(lx, ly) }
func (r *Renderer[C]) Viewport() (lx, ly int) { return r.rast.Viewport() }

func (r *Renderer[C]) SetBackfaceCulling(on bool) { r.cullBackface = on }
func (r *Renderer[C]) BackfaceCulling() bool      { return r.cullBackface }

func (r *Renderer[C]) SetScene(s Scene) { r.scene = s }
func (r *Renderer[C]) Scene() Scene     { return r.scene }

// Draw renders chain — a linked mesh and everything reachable through
// its Next pointers — under the renderer's current Scene, with shader
// selecting flat/Gouraud and textured/untextured. A mesh whose shader
// request the mesh can't satisfy (Gouraud without normals, texture
// without a bound texture) silently falls back to what it can do,
// rather than failing the draw.
func (r *Renderer[C]) Draw(shader raster.Shader, chain *mesh.Mesh) int {
	return r.draw(shader, chain, nil)
}

// DrawWithMaterial draws chain exactly like Draw, but lights every mesh
// in the chain with mat instead of the mesh's own material or the
// scene's override — the third, call-scoped case of material
// selection, kept as an explicit argument rather than a third
// MaterialMode value since it only makes sense paired with an actual
// material.
func (r *Renderer[C]) DrawWithMaterial(shader raster.Shader, chain *mesh.Mesh, mat mesh.Material) int {
	return r.draw(shader, chain, &mat)
}

func (r *Renderer[C]) draw(shader raster.Shader, chain *mesh.Mesh, override *mesh.Material) int {
	target := r.rast.Target()
	if !target.Valid() {
		return StatusNoImage
	}
	vlx, vly := r.rast.Viewport()
	if r.depthTest && (r.depth == nil || !r.depth.Sufficient(vlx, vly)) {
		return StatusNoDepthBuffer
	}

	for cur := chain; cur != nil; cur = cur.Next {
		if len(cur.Vertices) == 0 {
			return StatusMeshNoVertices
		}
	}

	for cur := chain; cur != nil; cur = cur.Next {
		r.drawMesh(shader, cur, target, override)
	}
	return StatusOK
}

func (r *Renderer[C]) drawMesh(shader raster.Shader, m *mesh.Mesh, target pixel.View[C], override *mesh.Material) {
	lx, ly := r.rast.Viewport()
	ortho := r.rast.Ortho()

	modelView := r.scene.View.Mul(r.scene.Model)
	projY := math3d.Scale(math3d.V3(1, -1, 1)).Mul(r.scene.Proj)
	pm := projY.Mul(modelView)

	bx, Bx, by, By := footprintBounds(lx, ly, r.offsetX, r.offsetY, target.Lx, target.Ly)
	if discardMesh(pm, m.Bounds, ortho, bx, Bx, by, By) {
		return
	}

	clipboundXY := float64(raster.MaxViewport) / float64(maxInt(lx, ly))
	clipNeeded := clipTestNeeded(pm, m.Bounds, ortho, clipboundXY)

	// The light direction lives in world space, so only the view
	// matrix's rotation applies to it; normals go through the full
	// model-view instead.
	lightEye := r.scene.View.MulVec3Dir(r.scene.LightDir).Negate().Normalize()
	halfVec := lightEye.Add(math3d.V3(0, 0, 1)).Normalize()

	invNorm := 1.0
	if axisLen := modelView.MulVec3Dir(math3d.V3(0, 0, 1)).Len(); axisLen > 0 {
		invNorm = 1.0 / axisLen
	}

	mat := r.scene.activeMaterial(m)
	if override != nil {
		mat = *override
	}
	ambR, ambG, ambB := r.scene.AmbientColor.R*mat.AmbientK, r.scene.AmbientColor.G*mat.AmbientK, r.scene.AmbientColor.B*mat.AmbientK
	difR, difG, difB := r.scene.DiffuseColor.R*mat.DiffuseK, r.scene.DiffuseColor.G*mat.DiffuseK, r.scene.DiffuseColor.B*mat.DiffuseK
	specR, specG, specB := r.scene.SpecularColor.R*mat.SpecularK, r.scene.SpecularColor.G*mat.SpecularK, r.scene.SpecularColor.B*mat.SpecularK
	specTab, powfact, hasSpec := buildSpecTable(mat.SpecularExponent)
	lt := lightTerms{
		ambient:  [3]float32{ambR, ambG, ambB},
		diffuse:  [3]float32{difR, difG, difB},
		specular: [3]float32{specR, specG, specB},
		specTab:  specTab,
		powfact:  powfact,
		hasSpec:  hasSpec,
	}

	effShader := shader
	if effShader.HasGouraud() && !m.HasNormals() {
		effShader &^= raster.Gouraud
	}

	// A mesh's texture is always stored as RGB888 (the decode format
	// tgxpack emits); it can only be sampled directly when the
	// renderer's own output format happens to be the same type. Any
	// other mismatch falls back to untextured, the same way a missing
	// texture or texcoords would.
	var texView *pixel.View[C]
	textured := false
	if effShader.HasTexture() && m.HasTexture() {
		if tv, ok := any(m.Texture).(*pixel.View[C]); ok {
			texView = tv
			textured = true
		}
	}
	if effShader.HasTexture() && !textured {
		effShader &^= raster.Texture
	}

	u := raster.Uniforms[C]{Tex: texView}
	if r.depthTest {
		u.Depth = r.depth
	}

	// A malformed face stream stops the walk where it breaks; triangles
	// decoded before that point stay drawn. The walk itself never reads
	// outside the stream, and drawTriangle skips any triangle whose
	// indices fall outside the mesh's arrays.
	_ = m.EachFace(func(tri mesh.Triangle) bool {
		r.drawTriangle(effShader, m, mat, tri, modelView, projY, ortho, clipNeeded, clipboundXY,
			lightEye, halfVec, invNorm, textured, lt, u)
		return true
	})
}

func (r *Renderer[C]) drawTriangle(
	shader raster.Shader,
	m *mesh.Mesh,
	mat mesh.Material,
	tri mesh.Triangle,
	modelView, projY math3d.Mat4,
	ortho bool,
	clipNeeded bool,
	clipboundXY float64,
	lightEye, halfVec math3d.Vec3,
	invNorm float64,
	textured bool,
	lt lightTerms,
	u raster.Uniforms[C],
) {
	gouraud := shader.HasGouraud()
	if !indicesInRange(tri.V, len(m.Vertices)) ||
		(gouraud && !indicesInRange(tri.N, len(m.Normals))) ||
		(textured && !indicesInRange(tri.T, len(m.Texcoords))) {
		return
	}

	var eye [3]math3d.Vec3
	for i := 0; i < 3; i++ {
		eye[i] = modelView.MulVec3(m.Vertices[tri.V[i]])
	}

	faceN := eye[1].Sub(eye[0]).Cross(eye[2].Sub(eye[0]))
	if r.cullBackface {
		var cullDot float64
		if ortho {
			cullDot = faceN.Dot(math3d.V3(0, 0, -1))
		} else {
			cullDot = faceN.Dot(eye[0])
		}
		if cullDot > 0 {
			return
		}
	}

	var ndc [3][3]float64 // x, y, z per vertex
	var wAttr [3]float64
	for i := 0; i < 3; i++ {
		x, y, z, iw := projectHomogeneous(projY, eye[i], ortho)
		ndc[i] = [3]float64{x, y, z}
		if ortho {
			wAttr[i] = 2 - z
		} else {
			wAttr[i] = iw
		}
	}

	if clipNeeded {
		for i := 0; i < 3; i++ {
			if triangleNeedsClip(eye[i].Z, ndc[i][0], ndc[i][1], ndc[i][2], clipboundXY) {
				return
			}
		}
	}

	objR, objG, objB := mat.Color.R, mat.Color.G, mat.Color.B

	var rv [3]raster.Vertex
	if gouraud {
		for i := 0; i < 3; i++ {
			n := modelView.MulVec3Dir(m.Normals[tri.N[i]])
			diffDot := n.Dot(lightEye) * invNorm
			specDot := n.Dot(halfVec) * invNorm
			cr, cg, cb := lt.shade(diffDot, specDot)
			if !textured {
				cr *= objR
				cg *= objG
				cb *= objB
			}
			rv[i].R, rv[i].G, rv[i].B = clamp01(cr), clamp01(cg), clamp01(cb)
		}
	} else {
		faceNN := faceN.Normalize()
		diffDot := faceNN.Dot(lightEye)
		specDot := faceNN.Dot(halfVec)
		cr, cg, cb := lt.shade(diffDot, specDot)
		if !textured {
			cr *= objR
			cg *= objG
			cb *= objB
		}
		u.FaceColor = pixel.New[C](clamp01(cr), clamp01(cg), clamp01(cb))
	}

	for i := 0; i < 3; i++ {
		rv[i].X, rv[i].Y, rv[i].Z, rv[i].W = ndc[i][0], ndc[i][1], ndc[i][2], wAttr[i]
		if textured && m.HasTexcoords() {
			uv := m.Texcoords[tri.T[i]]
			rv[i].U, rv[i].V = uv.X, uv.Y
		}
	}

	r.rast.Rasterize(shader, rv[0], rv[1], rv[2], r.offsetX, r.offsetY, u)
}

// projectHomogeneous applies m to p (treated as a point) and, unless
// ortho, performs the perspective divide. iw is 1/w of the homogeneous
// result — the "closer is larger" value perspective depth testing and
// perspective-correct interpolation both key off — and 0 in ortho mode,
// where the caller derives its depth value from z instead. A vertex at
// or behind the eye (w <= 0) gets z forced to -2 so the clip test
// downstream always rejects it; the divide happens first, then the
// sign check, to keep x and y finite for the corner-probe callers.
func projectHomogeneous(m math3d.Mat4, p math3d.Vec3, ortho bool) (x, y, z, iw float64) {
	h := m.MulVec4(math3d.V4FromV3(p, 1))
	if ortho {
		return h.X, h.Y, h.Z, 0
	}
	if h.W == 0 {
		return h.X, h.Y, -2, 0
	}
	iw = 1 / h.W
	x, y, z = h.X*iw, h.Y*iw, h.Z*iw
	if h.W <= 0 {
		z = -2
	}
	return x, y, z, iw
}

func indicesInRange(idx [3]int, n int) bool {
	return idx[0] >= 0 && idx[0] < n &&
		idx[1] >= 0 && idx[1] < n &&
		idx[2] >= 0 && idx[2] < n
}

func footprintBounds(lx, ly, offsetX, offsetY, imgW, imgH int) (bx, Bx, by, By float64) {
	ilx := 2.0 / float64(lx)
	bx = float64(offsetX-1)*ilx - 1.0
	Bx = float64(offsetX+imgW+1)*ilx - 1.0
	ily := 2.0 / float64(ly)
	by = float64(offsetY-1)*ily - 1.0
	By = float64(offsetY+imgH+1)*ily - 1.0
	return bx, Bx, by, By
}

func boundsComputed(b mesh.AABB) bool {
	return b.Min != (math3d.Vec3{}) || b.Max != (math3d.Vec3{})
}

func bboxCorners(b mesh.AABB) [8]math3d.Vec3 {
	return [8]math3d.Vec3{
		{X: b.Min.X, Y: b.Min.Y, Z: b.Min.Z},
		{X: b.Max.X, Y: b.Min.Y, Z: b.Min.Z},
		{X: b.Min.X, Y: b.Max.Y, Z: b.Min.Z},
		{X: b.Max.X, Y: b.Max.Y, Z: b.Min.Z},
		{X: b.Min.X, Y: b.Min.Y, Z: b.Max.Z},
		{X: b.Max.X, Y: b.Min.Y, Z: b.Max.Z},
		{X: b.Min.X, Y: b.Max.Y, Z: b.Max.Z},
		{X: b.Max.X, Y: b.Max.Y, Z: b.Max.Z},
	}
}

// discardMesh reports whether every corner of b's bounding box lands
// outside the same half-plane of the image footprint, via a 6-bit
// AND-reduction: bit k survives only if all 8 corners violate
// condition k, in which case the whole mesh must lie outside it. A
// zero-value bbox is the "bounds not computed" sentinel and is never
// discarded.
func discardMesh(pm math3d.Mat4, b mesh.AABB, ortho bool, bx, Bx, by, By float64) bool {
	if !boundsComputed(b) {
		return false
	}
	mask := 63
	for _, c := range bboxCorners(b) {
		mask &= cornerOutsideBits(pm, c, ortho, bx, Bx, by, By)
		if mask == 0 {
			return false
		}
	}
	return mask != 0
}

func cornerOutsideBits(pm math3d.Mat4, p math3d.Vec3, ortho bool, bx, Bx, by, By float64) int {
	x, y, z, _ := projectHomogeneous(pm, p, ortho)
	bits := 0
	if x < bx {
		bits |= 1
	}
	if x > Bx {
		bits |= 2
	}
	if y < by {
		bits |= 4
	}
	if y > By {
		bits |= 8
	}
	if z < -1 {
		bits |= 16
	}
	if z > 1 {
		bits |= 32
	}
	return bits
}

// clipTestNeeded reports whether any corner of b's bounding box comes
// close enough to the safe sub-pixel range (±2048/max(lx,ly)) that
// per-triangle clip testing must run for this mesh. An unknown
// (zero-sentinel) bbox is treated conservatively as always needing
// the per-triangle test.
func clipTestNeeded(pm math3d.Mat4, b mesh.AABB, ortho bool, clipBoundXY float64) bool {
	if !boundsComputed(b) {
		return true
	}
	for _, c := range bboxCorners(b) {
		x, y, z, _ := projectHomogeneous(pm, c, ortho)
		if x <= -clipBoundXY || x >= clipBoundXY || y <= -clipBoundXY || y >= clipBoundXY || z <= -1 || z >= 1 {
			return true
		}
	}
	return false
}

// triangleNeedsClip is the per-vertex test applied when clipTestNeeded
// found the mesh unsafe: eyeZ >= 0 means the vertex is behind or at
// the eye (pre-projection), the rest bound the projected coordinates.
func triangleNeedsClip(eyeZ, x, y, z, clipBoundXY float64) bool {
	return eyeZ >= 0 ||
		x < -clipBoundXY || x > clipBoundXY ||
		y < -clipBoundXY || y > clipBoundXY ||
		z < -1 || z > 1
}

// lightTerms holds the per-mesh-constant parts of the Phong formula:
// the light/material colors already folded together, and the
// specular lookup table if the material has one.
type lightTerms struct {
	ambient, diffuse, specular [3]float32
	specTab                    [specTabSize]float32
	powfact                    float64
	hasSpec                    bool
}

// shade evaluates ambient + diffuse*max(diffDot,0) (+ specular term,
// if present) and returns the unclamped, not-yet-material-modulated
// color. Callers multiply by the material color when the mesh is
// untextured, then clamp each channel to [0,1] with clamp01.
func (lt lightTerms) shade(diffDot, specDot float64) (r, g, b float32) {
	diff := float32(math.Max(diffDot, 0))
	r = lt.ambient[0] + lt.diffuse[0]*diff
	g = lt.ambient[1] + lt.diffuse[1]*diff
	b = lt.ambient[2] + lt.diffuse[2]*diff
	if lt.hasSpec {
		s := specLookup(lt.specTab, lt.powfact, specDot)
		r += lt.specular[0] * s
		g += lt.specular[1] * s
		b += lt.specular[2] * s
	}
	return r, g, b
}

// buildSpecTable builds the 12-entry specular falloff table for a
// material's specular exponent, following the table-driven
// fast-power scheme instead of a per-pixel pow() call. specExp <= 0
// disables specular entirely (ok == false).
func buildSpecTable(specExp int) (tab [specTabSize]float32, powfact float64, ok bool) {
	if specExp <= 0 {
		return tab, 0, false
	}
	bbsp := specExp
	if bbsp > 8 {
		bbsp = 8
	}
	powfact = float64(specExp*specTabSize) / float64(bbsp)
	for k := 0; k < specTabSize; k++ {
		v := 1 - float64(bbsp*k)/float64(specExp*specTabSize)
		tab[k] = float32(math.Pow(v, float64(specExp)))
	}
	return tab, powfact, true
}

// specLookup interpolates buildSpecTable's output at dot (an N·H
// cosine). Values at or beyond the table's last bucket fall off to 0
// rather than extrapolating.
func specLookup(tab [specTabSize]float32, powfact, dot float64) float32 {
	indf := (1 - dot) * powfact
	indi := int(indf)
	if indi >= specTabSize-1 {
		return 0
	}
	if indi < 0 {
		indi = 0
	}
	frac := float32(indf - float64(indi))
	return tab[indi] + frac*(tab[indi+1]-tab[indi])
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float32) float32 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
