// Package raster implements the sub-pixel-accurate fixed-point
// triangle rasterizer: the hard numeric core of tgx. Everything
// upstream of a single triangle (transform, lighting, culling, face
// stream decode) belongs to package render; everything this package
// touches is already in normalized device coordinates.
package raster

import (
	"math"

	"github.com/taigrr/tgx/pkg/depth"
	"github.com/taigrr/tgx/pkg/pixel"
)

// Sub-pixel precision is fixed at 8 bits: enough for pixel-perfect
// seams between adjacent triangles, while keeping every edge-function
// product inside signed 64-bit for viewports up to 2048x2048.
const (
	SubpixelBits  = 8
	SubpixelScale = 1 << SubpixelBits       // 256
	SubpixelHalf  = 1 << (SubpixelBits - 1) // 128
)

// MaxViewport is the largest LX or LY accepted: beyond this, edge
// function products could overflow signed 64-bit at 8 sub-pixel bits.
const MaxViewport = 2048

// Shader selects which of {flat, Gouraud} is active and whether
// texturing is layered on top. The zero value is flat, untextured.
type Shader uint8

const (
	Gouraud Shader = 1 << iota
	Texture
)

// HasGouraud reports whether per-vertex color interpolation is requested.
func (s Shader) HasGouraud() bool { return s&Gouraud != 0 }

// HasTexture reports whether texture sampling is requested.
func (s Shader) HasTexture() bool { return s&Texture != 0 }

// Vertex is a single rasterizer input vertex: its projected
// homogeneous position, a float vertex color, and texture
// coordinates. Fields unused by the active shader are ignored.
type Vertex struct {
	X, Y, Z, W float64
	R, G, B    float32
	U, V       float64
}

// Uniforms carries the per-draw values the rasterizer needs but that
// are not interpolated per vertex: the flat-shading face color, an
// optional depth buffer, and an optional texture.
type Uniforms[C pixel.Color[C]] struct {
	FaceColor C
	Depth     *depth.View
	Tex       *pixel.View[C]
}

// Rasterizer draws triangles into a bound image view, using a viewport
// size and a choice of perspective or orthographic attribute
// interpolation that are held by the rasterizer, not passed per draw:
// New sets the viewport size, and SetViewport and SetOrtho change the
// size and the mode between draws.
type Rasterizer[C pixel.Color[C]] struct {
	target pixel.View[C]
	lx, ly int
	ortho  bool
}

// New creates a Rasterizer for a viewport of size lx x ly. Both
// dimensions must be in [1, MaxViewport].
func New[C pixel.Color[C]](lx, ly int) *Rasterizer[C] {
	return &Rasterizer[C]{lx: lx, ly: ly}
}

// SetTarget binds the image view triangles are drawn into.
func (r *Rasterizer[C]) SetTarget(v pixel.View[C]) { r.target = v }

// Target returns the currently bound image view.
func (r *Rasterizer[C]) Target() pixel.View[C] { return r.target }

// SetViewport changes the fixed viewport size used for sub-pixel
// snapping.
func (r *Rasterizer[C]) SetViewport(lx, ly int) { r.lx, r.ly = lx, ly }

// Viewport returns the current viewport size.
func (r *Rasterizer[C]) Viewport() (lx, ly int) { return r.lx, r.ly }

// SetOrtho selects orthographic (true) or perspective (false)
// attribute interpolation.
func (r *Rasterizer[C]) SetOrtho(ortho bool) { r.ortho = ortho }

// Ortho reports the current projection mode.
func (r *Rasterizer[C]) Ortho() bool { return r.ortho }

func snap(v float64, halfScale int) int64 {
	return int64(math.Floor(v * float64(halfScale)))
}

// edge holds one directed edge's fixed-point coefficients and running
// accumulator. Each edge's value at a pixel is the (unnormalized)
// barycentric weight of the vertex opposite that edge.
type edge struct {
	dx, dy int32
	o      int32
}

func topLeftAdjust(dx, dy int32) bool {
	return dx < 0 || (dx == 0 && dy < 0)
}

func ceilDivPos(n, d int32) int32 {
	return (n + d - 1) / d
}

// Rasterize draws one triangle into the bound image view at viewport
// offset (offsetX, offsetY). v0, v1, v2 must already be projected into
// NDC (the viewport mapped to [-1,+1]^2); w carries 1/z_eye in
// perspective mode or 2-z_ndc in orthographic mode. Depth testing is
// enabled iff uniforms.Depth is non-nil; texturing requires both the
// TEXTURE shader bit and uniforms.Tex non-nil.
//
// Degenerate triangles, triangles entirely outside the bound image, or
// draws against an invalid image view are silently dropped: there is
// no failure return per the rasterizer's contract.
func (r *Rasterizer[C]) Rasterize(shader Shader, v0, v1, v2 Vertex, offsetX, offsetY int, u Uniforms[C]) {
	if !r.target.Valid() {
		return
	}

	mx := r.lx * SubpixelHalf
	my := r.ly * SubpixelHalf

	p0x, p0y := snap(v0.X, mx), snap(v0.Y, my)
	p1x, p1y := snap(v1.X, mx), snap(v1.Y, my)
	p2x, p2y := snap(v2.X, mx), snap(v2.Y, my)

	a := (p2x-p0x)*(p1y-p0y) - (p2y-p0y)*(p1x-p0x)
	if a == 0 {
		return
	}

	// Normalize winding: v1/v2 swap if the signed area is negative, so
	// the triangle proceeds counter-clockwise in screen space.
	va, pax, pay := v1, p1x, p1y
	vb, pbx, pby := v2, p2x, p2y
	if a < 0 {
		va, vb = v2, v1
		pax, pay = p2x, p2y
		pbx, pby = p1x, p1y
	}

	xmin := min3(p0x, pax, pbx)
	xmax := max3(p0x, pax, pbx)
	ymin := min3(p0y, pay, pby)
	ymax := max3(p0y, pay, pby)

	xminPx := int((xmin + int64(mx)) / SubpixelScale)
	xmaxPx := int((xmax + int64(mx)) / SubpixelScale)
	yminPx := int((ymin + int64(my)) / SubpixelScale)
	ymaxPx := int((ymax + int64(my)) / SubpixelScale)

	sx := r.target.Lx
	sy := r.target.Ly
	ox := offsetX
	oy := offsetY
	if ox < xminPx {
		sx -= xminPx - ox
		ox = xminPx
	}
	if ox+sx > xmaxPx {
		sx = xmaxPx - ox + 1
	}
	if sx <= 0 {
		return
	}
	if oy < yminPx {
		sy -= yminPx - oy
		oy = yminPx
	}
	if oy+sy > ymaxPx {
		sy = ymaxPx - oy + 1
	}
	if sy <= 0 {
		return
	}

	// Sub-pixel coordinate of the center of pixel (ox, oy), in the
	// same zero-centered frame as p0/pa/pb.
	us := int64(ox)*SubpixelScale - int64(mx) + SubpixelHalf
	vs := int64(oy)*SubpixelScale - int64(my) + SubpixelHalf

	imgX := ox - offsetX
	imgY := oy - offsetY

	// e0 is the edge P1->P2, opposite v0; e1 is P2->P0, opposite va;
	// e2 is P0->P1, opposite vb. Each edge's initial value is computed
	// in 64 bits and folded down to 32, per the edge-function
	// invariant.
	e0 := newEdge(pax, pay, pbx, pby, us, vs)
	e1 := newEdge(pbx, pby, p0x, p0y, us, vs)
	e2 := newEdge(p0x, p0y, pax, pay, us, vs)

	area := e0.o + e1.o + e2.o
	if area <= 0 {
		return
	}
	areaF := float64(area)

	edges := [3]edge{e0, e1, e2}

	depthOn := u.Depth != nil
	texOn := shader.HasTexture() && u.Tex != nil && u.Tex.Valid()
	gouraud := shader.HasGouraud()

	var texW, texH int
	if texOn {
		texW, texH = u.Tex.Lx, u.Tex.Ly
	}

	faceR, faceG, faceB := u.FaceColor.ToFloatRGB()
	faceR256 := uint16(clamp256(float64(faceR) * 256))
	faceG256 := uint16(clamp256(float64(faceG) * 256))
	faceB256 := uint16(clamp256(float64(faceB) * 256))

	row := 0
	for row < sy {
		bx := 0
		skipRows := -1
		for i := range edges {
			ed := &edges[i]
			if ed.o >= 0 {
				continue
			}
			if ed.dx > 0 {
				start := int(ceilDivPos(-ed.o, ed.dx))
				if start > bx {
					bx = start
				}
				continue
			}
			if ed.dy <= 0 {
				return
			}
			by := ceilDivPos(-ed.o, ed.dy)
			skipRows = int(by)
			break
		}
		if skipRows >= 0 {
			if skipRows == 0 {
				skipRows = 1
			}
			for i := range edges {
				edges[i].o += int32(skipRows) * edges[i].dy
			}
			row += skipRows
			imgY += skipRows
			continue
		}

		c0 := edges[0].o + edges[0].dx*int32(bx)
		c1 := edges[1].o + edges[1].dx*int32(bx)
		c2 := edges[2].o + edges[2].dx*int32(bx)

		for bx < sx && c0 >= 0 && c1 >= 0 && c2 >= 0 {
			x := imgX + bx
			y := imgY

			wt0 := float64(c0) / areaF
			wt1 := float64(c1) / areaF
			wt2 := float64(c2) / areaF

			var cw float64
			if needCW := depthOn || (texOn && !r.ortho); needCW {
				cw = wt0*v0.W + wt1*va.W + wt2*vb.W
			}

			write := !depthOn || cw > float64(u.Depth.At(x, y))
			if write {
				var outColor C
				switch {
				case texOn:
					var tu, tv float64
					if r.ortho {
						tu = wt0*v0.U + wt1*va.U + wt2*vb.U
						tv = wt0*v0.V + wt1*va.V + wt2*vb.V
					} else {
						pw0 := wt0 * v0.W
						pw1 := wt1 * va.W
						pw2 := wt2 * vb.W
						icw := 1 / cw
						tu = (pw0*v0.U + pw1*va.U + pw2*vb.U) * icw
						tv = (pw0*v0.V + pw1*va.V + pw2*vb.V) * icw
					}
					tx := int(tu*float64(texW)) & (texW - 1)
					ty := int(tv*float64(texH)) & (texH - 1)
					texel := u.Tex.At(tx, ty)
					if gouraud {
						cr := wt0*float64(v0.R) + wt1*float64(va.R) + wt2*float64(vb.R)
						cg := wt0*float64(v0.G) + wt1*float64(va.G) + wt2*float64(vb.G)
						cb := wt0*float64(v0.B) + wt1*float64(va.B) + wt2*float64(vb.B)
						outColor = texel.Mult256(clamp256u(cr*256), clamp256u(cg*256), clamp256u(cb*256))
					} else {
						outColor = texel.Mult256(faceR256, faceG256, faceB256)
					}
				case gouraud:
					cr := wt0*float64(v0.R) + wt1*float64(va.R) + wt2*float64(vb.R)
					cg := wt0*float64(v0.G) + wt1*float64(va.G) + wt2*float64(vb.G)
					cb := wt0*float64(v0.B) + wt1*float64(va.B) + wt2*float64(vb.B)
					outColor = pixel.New[C](float32(cr), float32(cg), float32(cb))
				default:
					outColor = u.FaceColor
				}

				if depthOn {
					u.Depth.Set(x, y, float32(cw))
				}
				r.target.Set(x, y, outColor)
			}

			c0 += edges[0].dx
			c1 += edges[1].dx
			c2 += edges[2].dx
			bx++
		}

		edges[0].o += edges[0].dy
		edges[1].o += edges[1].dy
		edges[2].o += edges[2].dy
		row++
		imgY++
	}
}

func newEdge(ax, ay, bx, by int64, us, vs int64) edge {
	dx := int32(by - ay)
	dy := int32(ax - bx)
	o64 := (us-ax)*int64(dx) + (vs-ay)*int64(dy)
	if topLeftAdjust(dx, dy) {
		o64--
	}
	return edge{dx: dx, dy: dy, o: int32(o64 >> SubpixelBits)}
}

func clamp256(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 256 {
		return 256
	}
	return f
}

func clamp256u(f float64) uint16 {
	return uint16(clamp256(f))
}

func min3(a, b, c int64) int64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func max3(a, b, c int64) int64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
