// Package depth provides the depth buffer view the rasterizer and
// renderer test and update during a depth-tested draw.
package depth

// View is a flat, caller-owned depth buffer: "closer is larger"
// values (either 1/z_eye in perspective mode or 2-z_ndc in
// orthographic mode), one per viewport pixel.
//
// The buffer is addressed at the stride of the image view currently
// bound for drawing, not a separately tracked viewport width: draws
// happen into an image sub-window placed at (offset_x, offset_y)
// inside a larger fixed viewport, and the depth slot for the image
// pixel (x,y) lives at Buf[x + y*Stride] where Stride is that image
// view's row stride. Tile rendering relies on this: the same buffer
// serves every tile offset, each tile's depth slots landing at the same
// image-relative positions. The renderer still requires the buffer to
// hold a full viewport's lx*ly elements (see Sufficient).
type View struct {
	Buf    []float32
	Stride int
}

// NewView wraps buf as a depth view addressed at the given stride.
func NewView(buf []float32, stride int) View {
	return View{Buf: buf, Stride: stride}
}

// Valid reports whether d has backing storage and a usable stride.
func (d View) Valid() bool {
	return d.Buf != nil && d.Stride > 0
}

// Sufficient reports whether d has at least lx*ly elements, the
// misconfiguration check a renderer performs before a depth-tested
// draw (returning its own -2 if this is false).
func (d View) Sufficient(lx, ly int) bool {
	return d.Valid() && len(d.Buf) >= lx*ly
}

func (d View) index(x, y int) int {
	return x + y*d.Stride
}

// At returns the depth slot at image coordinates (x,y). No bounds
// check: the caller has already validated Sufficient and clipped x,y
// to the draw rectangle.
func (d View) At(x, y int) float32 {
	return d.Buf[d.index(x, y)]
}

// Set writes the depth slot at image coordinates (x,y).
func (d View) Set(x, y int, w float32) {
	d.Buf[d.index(x, y)] = w
}
