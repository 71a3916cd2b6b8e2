package pixel

// View is a non-owning rectangular view over a caller-supplied pixel
// buffer: a base pointer plus dimensions and a row stride, all
// measured in pixels. It owns no memory and allocates none; cropping
// a View into sub-views shares the same backing storage.
//
// A View is *valid* when Base is non-nil, Lx and Ly are both positive,
// and Stride is at least Lx. Any other combination is the invalid
// sentinel, and stays invalid through further cropping — there is no
// way to recover a valid view from an invalid one.
type View[C Color[C]] struct {
	Base   []C
	Off    int // index into Base of pixel (0,0)
	Lx, Ly int
	Stride int
}

// NewView wraps buf as an Lx x Ly view with the given row stride
// (in pixels). buf must be long enough to hold Stride*Ly pixels
// starting at Off; this is the caller's obligation, not checked here.
func NewView[C Color[C]](buf []C, lx, ly, stride int) View[C] {
	return View[C]{Base: buf, Lx: lx, Ly: ly, Stride: stride}
}

// Valid reports whether v satisfies the image-view validity
// invariant: non-nil backing storage, positive dimensions, and a
// stride wide enough to hold one row.
func (v View[C]) Valid() bool {
	return v.Base != nil && v.Lx > 0 && v.Ly > 0 && v.Stride >= v.Lx
}

// Box is an axis-aligned integer rectangle in view-local pixel
// coordinates, half-open: [X, X+W) x [Y, Y+H).
type Box struct {
	X, Y, W, H int
}

// Crop returns the sub-view of v restricted to box, sharing v's
// backing storage. Stride is inherited unchanged, not recomputed, per
// the image-view contract: a cropped view's rows are not contiguous
// with its neighbors'.
//
// Cropping an invalid view yields an invalid view. A box that doesn't
// fit within v's bounds is clamped; a box with no positive-area
// intersection with v yields an invalid view.
func (v View[C]) Crop(box Box) View[C] {
	if !v.Valid() {
		return View[C]{}
	}
	x0, y0 := box.X, box.Y
	x1, y1 := box.X+box.W, box.Y+box.H
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > v.Lx {
		x1 = v.Lx
	}
	if y1 > v.Ly {
		y1 = v.Ly
	}
	if x1 <= x0 || y1 <= y0 {
		return View[C]{}
	}
	return View[C]{
		Base:   v.Base,
		Off:    v.Off + x0 + y0*v.Stride,
		Lx:     x1 - x0,
		Ly:     y1 - y0,
		Stride: v.Stride,
	}
}

// ScanlinePtr returns the index into Base of the first pixel of row y
// (i.e. pixel (0,y)). No bounds check is performed: the caller (the
// rasterizer's scan loop) has already clipped x and y to the view's
// rectangle before calling this.
func (v View[C]) ScanlinePtr(y int) int {
	return v.Off + y*v.Stride
}

// Set writes color c at (x,y) with no bounds check — the scan loop
// that calls this has already intersected the triangle with the view
// rectangle.
func (v View[C]) Set(x, y int, c C) {
	v.Base[v.Off+x+y*v.Stride] = c
}

// At returns the color at (x,y) with no bounds check.
func (v View[C]) At(x, y int) C {
	return v.Base[v.Off+x+y*v.Stride]
}
