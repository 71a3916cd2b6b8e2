package raster

import (
	"testing"

	"github.com/taigrr/tgx/pkg/depth"
	"github.com/taigrr/tgx/pkg/pixel"
)

func newTargetRGB888(lx, ly int) pixel.View[pixel.RGB888] {
	buf := make([]pixel.RGB888, lx*ly)
	return pixel.NewView(buf, lx, ly, lx)
}

func fillView(v pixel.View[pixel.RGB888], c pixel.RGB888) {
	for y := 0; y < v.Ly; y++ {
		for x := 0; x < v.Lx; x++ {
			v.Set(x, y, c)
		}
	}
}

func touchedSet(v pixel.View[pixel.RGB888], sentinel pixel.RGB888) map[[2]int]bool {
	touched := make(map[[2]int]bool)
	for y := 0; y < v.Ly; y++ {
		for x := 0; x < v.Lx; x++ {
			if v.At(x, y) != sentinel {
				touched[[2]int{x, y}] = true
			}
		}
	}
	return touched
}

// Two triangles sharing the anti-diagonal edge of a square must
// together write every pixel of the square exactly once: no cracks,
// no double writes, per the top-left rule's partition guarantee.
func TestFlatTrianglePartitionsSquare(t *testing.T) {
	sentinel := pixel.RGB888{R: 1, G: 2, B: 3}
	red := pixel.RGB888{R: 255}
	blue := pixel.RGB888{B: 255}

	lowerLeft := [3]Vertex{
		{X: -1, Y: -1, W: 1},
		{X: 1, Y: -1, W: 1},
		{X: -1, Y: 1, W: 1},
	}
	upperRight := [3]Vertex{
		{X: 1, Y: -1, W: 1},
		{X: 1, Y: 1, W: 1},
		{X: -1, Y: 1, W: 1},
	}

	r := New[pixel.RGB888](4, 4)

	targetA := newTargetRGB888(4, 4)
	fillView(targetA, sentinel)
	r.SetTarget(targetA)
	r.Rasterize(0, lowerLeft[0], lowerLeft[1], lowerLeft[2], 0, 0, Uniforms[pixel.RGB888]{FaceColor: red})
	setA := touchedSet(targetA, sentinel)

	targetB := newTargetRGB888(4, 4)
	fillView(targetB, sentinel)
	r.SetTarget(targetB)
	r.Rasterize(0, upperRight[0], upperRight[1], upperRight[2], 0, 0, Uniforms[pixel.RGB888]{FaceColor: blue})
	setB := touchedSet(targetB, sentinel)

	if len(setA)+len(setB) != 16 {
		t.Fatalf("expected 16 total pixels written across both triangles, got %d+%d=%d", len(setA), len(setB), len(setA)+len(setB))
	}
	for k := range setA {
		if setB[k] {
			t.Fatalf("pixel %v written by both triangles", k)
		}
	}
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			k := [2]int{x, y}
			if !setA[k] && !setB[k] {
				t.Fatalf("pixel %v left untouched by either triangle", k)
			}
		}
	}
}

// The half-square triangle {(-1,-1),(1,-1),(-1,1)} splits a 4x4 image
// 6/10 with its complement: the tie-break hands every pixel whose
// center sits on the shared diagonal to the complementary triangle, so
// this one covers exactly the 6 pixels strictly on its side.
func TestFlatTriangleDiagonalOwnership(t *testing.T) {
	sentinel := pixel.RGB888{R: 7}
	red := pixel.RGB888{R: 255}

	target := newTargetRGB888(4, 4)
	fillView(target, sentinel)

	r := New[pixel.RGB888](4, 4)
	r.SetTarget(target)
	r.Rasterize(0,
		Vertex{X: -1, Y: -1, W: 1},
		Vertex{X: 1, Y: -1, W: 1},
		Vertex{X: -1, Y: 1, W: 1},
		0, 0, Uniforms[pixel.RGB888]{FaceColor: red})

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			inside := x+y <= 2
			got := target.At(x, y)
			if inside && got != red {
				t.Errorf("pixel (%d,%d) = %v, want red", x, y, got)
			}
			if !inside && got != sentinel {
				t.Errorf("pixel (%d,%d) = %v, want untouched", x, y, got)
			}
		}
	}
}

// Swapping V1 and V2 must reproduce identical pixel output, since
// winding is normalized internally.
func TestRasterizeWindingSwapInvariant(t *testing.T) {
	v0 := Vertex{X: -0.6, Y: -0.6, W: 1}
	v1 := Vertex{X: 0.7, Y: -0.2, W: 1}
	v2 := Vertex{X: -0.2, Y: 0.8, W: 1}
	col := pixel.RGB888{R: 200, G: 100, B: 50}

	r := New[pixel.RGB888](8, 8)

	t1 := newTargetRGB888(8, 8)
	r.SetTarget(t1)
	r.Rasterize(0, v0, v1, v2, 0, 0, Uniforms[pixel.RGB888]{FaceColor: col})

	t2 := newTargetRGB888(8, 8)
	r.SetTarget(t2)
	r.Rasterize(0, v0, v2, v1, 0, 0, Uniforms[pixel.RGB888]{FaceColor: col})

	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if t1.At(x, y) != t2.At(x, y) {
				t.Fatalf("pixel (%d,%d) differs after winding swap: %v vs %v", x, y, t1.At(x, y), t2.At(x, y))
			}
		}
	}
}

// A full-coverage triangle with smaller w drawn after one with larger
// w must not overwrite the framebuffer or the depth buffer; drawn
// before, it must lose the depth test and be fully overwritten.
func TestDepthTestPolarityOrdering(t *testing.T) {
	colA := pixel.RGB888{R: 255}
	colB := pixel.RGB888{G: 255}

	// Vertices far outside [-1,1]^2 so the triangle envelops the whole
	// 2x2 viewport without any edge crossing its interior.
	big := [3]Vertex{
		{X: -10, Y: -10},
		{X: 10, Y: -10},
		{X: 0, Y: 10},
	}

	run := func(wFirst, wSecond float64, colFirst, colSecond pixel.RGB888) (pixel.View[pixel.RGB888], depth.View) {
		r := New[pixel.RGB888](2, 2)
		target := newTargetRGB888(2, 2)
		r.SetTarget(target)
		r.SetOrtho(true)

		d := depth.NewView(make([]float32, 4), 2)

		a, b, c := big[0], big[1], big[2]
		a.W, b.W, c.W = wFirst, wFirst, wFirst
		r.Rasterize(0, a, b, c, 0, 0, Uniforms[pixel.RGB888]{FaceColor: colFirst, Depth: &d})

		a.W, b.W, c.W = wSecond, wSecond, wSecond
		r.Rasterize(0, a, b, c, 0, 0, Uniforms[pixel.RGB888]{FaceColor: colSecond, Depth: &d})

		return target, d
	}

	t.Run("A then B, B closer", func(t *testing.T) {
		target, d := run(0.3, 0.7, colA, colB)
		for y := 0; y < 2; y++ {
			for x := 0; x < 2; x++ {
				if target.At(x, y) != colB {
					t.Fatalf("pixel (%d,%d) = %v, want colB", x, y, target.At(x, y))
				}
				if d.At(x, y) != 0.7 {
					t.Fatalf("depth(%d,%d) = %v, want 0.7", x, y, d.At(x, y))
				}
			}
		}
	})

	t.Run("B then A, A farther", func(t *testing.T) {
		target, d := run(0.7, 0.3, colB, colA)
		for y := 0; y < 2; y++ {
			for x := 0; x < 2; x++ {
				if target.At(x, y) != colB {
					t.Fatalf("pixel (%d,%d) = %v, want colB (A must lose depth test)", x, y, target.At(x, y))
				}
				if d.At(x, y) != 0.7 {
					t.Fatalf("depth(%d,%d) = %v, want unchanged 0.7", x, y, d.At(x, y))
				}
			}
		}
	})
}

// With FLAT + TEXTURE + ORTHO and a full-coverage triangle whose
// texture coordinates are an affine function of NDC position, the
// interpolated UV reproduces that affine function exactly at every
// pixel (barycentric/affine interpolation is exact for linear
// attributes, independent of how large the enclosing triangle is).
func TestRasterizeTexturedOrthoCheckerboard(t *testing.T) {
	texW, texH := 2, 2
	white := pixel.RGB888{R: 255, G: 255, B: 255}
	black := pixel.RGB888{}
	texBuf := []pixel.RGB888{
		white, black, // row 0: (0,0)=white (1,0)=black
		black, white, // row 1: (0,1)=black (1,1)=white
	}
	tex := pixel.NewView(texBuf, texW, texH, texW)

	face := pixel.RGB888{R: 255, G: 255, B: 255}

	r := New[pixel.RGB888](4, 4)
	target := newTargetRGB888(4, 4)
	r.SetTarget(target)
	r.SetOrtho(true)

	mkVertex := func(x, y float64) Vertex {
		return Vertex{X: x, Y: y, W: 1, U: (x + 1) / 2, V: (y + 1) / 2}
	}
	v0 := mkVertex(-10, -10)
	v1 := mkVertex(10, -10)
	v2 := mkVertex(0, 10)

	r.Rasterize(Texture, v0, v1, v2, 0, 0, Uniforms[pixel.RGB888]{FaceColor: face, Tex: &tex})

	// Pixel columns {0,1} land in texel column 0; columns {2,3} land
	// in texel column 1. Same split for rows. The result is the
	// checkerboard tiled into four 2x2 blocks.
	wantTexel := func(px, py int) pixel.RGB888 {
		tx, ty := px/2, py/2
		return texBuf[ty*texW+tx]
	}

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := wantTexel(x, y)
			if got := target.At(x, y); got != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

// A degenerate (zero-area) triangle must be silently dropped: no
// pixels written, no panic.
func TestRasterizeDegenerateTriangleDropped(t *testing.T) {
	sentinel := pixel.RGB888{R: 9, G: 9, B: 9}
	target := newTargetRGB888(4, 4)
	fillView(target, sentinel)

	r := New[pixel.RGB888](4, 4)
	r.SetTarget(target)

	v0 := Vertex{X: -0.5, Y: -0.5, W: 1}
	v1 := Vertex{X: 0.5, Y: 0.5, W: 1}
	v2 := Vertex{X: -0.5, Y: -0.5, W: 1} // coincides with v0: zero area

	r.Rasterize(0, v0, v1, v2, 0, 0, Uniforms[pixel.RGB888]{FaceColor: pixel.RGB888{R: 255}})

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if target.At(x, y) != sentinel {
				t.Fatalf("degenerate triangle wrote pixel (%d,%d)", x, y)
			}
		}
	}
}
