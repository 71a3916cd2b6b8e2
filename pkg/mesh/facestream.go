package mesh

import "fmt"

// directionBit is the high bit of an element's first word: it selects
// which triangle edge the new vertex extends, not which vertex index
// it carries.
const directionBit = 1 << 15

// faceElem is one decoded vertex reference inside a chain: a vertex
// index plus, when present, parallel texcoord/normal indices and the
// direction bit that was set on its first word.
type faceElem struct {
	dir     bool
	v, t, n int
}

// EachFace walks m's raw face stream and calls yield once per encoded
// triangle, in stream order, stopping early if yield returns false.
// Element width (1, 2 or 3 words) is derived from whether m carries
// texcoords/normals, per the format's rule that width is fixed per
// mesh, not per element.
//
// The walk allocates nothing and never reads outside the stream; a
// stream that ends before its zero-length sentinel returns an error
// after yielding every triangle that decoded cleanly.
func (m *Mesh) EachFace(yield func(Triangle) bool) error {
	return walkFaces(m.Faces, m.HasTexcoords(), m.HasNormals(), yield)
}

// DecodeFaces walks m's raw face stream and returns every triangle it
// encodes as one flat list. Per-draw consumers should prefer EachFace;
// this form exists for tooling that needs the whole list at once.
func (m *Mesh) DecodeFaces() ([]Triangle, error) {
	return decodeFaces(m.Faces, m.HasTexcoords(), m.HasNormals())
}

func decodeFaces(stream []byte, hasTex, hasNrm bool) ([]Triangle, error) {
	var tris []Triangle
	err := walkFaces(stream, hasTex, hasNrm, func(t Triangle) bool {
		tris = append(tris, t)
		return true
	})
	return tris, err
}

// walkFaces is the wire-format state machine itself, split out from
// Mesh so it can be unit tested against the raw byte layout directly.
//
// stream := chain* sentinel; sentinel is a zero chain length. A chain
// of length n carries n+2 elements: the first three bootstrap the
// triangle (direction bits ignored), each further element extends the
// strip by rotating either the first or the second slot out, depending
// on its direction bit.
func walkFaces(stream []byte, hasTex, hasNrm bool, yield func(Triangle) bool) error {
	if len(stream)%2 != 0 {
		return fmt.Errorf("mesh: face stream has odd byte length %d", len(stream))
	}
	nwords := len(stream) / 2

	pos := 0
	readWord := func() (uint16, error) {
		if pos >= nwords {
			return 0, fmt.Errorf("mesh: face stream truncated at word %d", pos)
		}
		w := uint16(stream[2*pos]) | uint16(stream[2*pos+1])<<8
		pos++
		return w, nil
	}
	readElem := func() (faceElem, error) {
		var e faceElem
		w, err := readWord()
		if err != nil {
			return e, err
		}
		e.dir = w&directionBit != 0
		e.v = int(w &^ directionBit)
		if hasTex {
			tw, err := readWord()
			if err != nil {
				return e, err
			}
			e.t = int(tw)
		}
		if hasNrm {
			nw, err := readWord()
			if err != nil {
				return e, err
			}
			e.n = int(nw)
		}
		return e, nil
	}

	for {
		length, err := readWord()
		if err != nil {
			return err
		}
		if length == 0 {
			return nil
		}

		var v0, v1, v2 faceElem
		for i := 0; i < 3; i++ {
			e, err := readElem()
			if err != nil {
				return err
			}
			switch i {
			case 0:
				v0 = e
			case 1:
				v1 = e
			default:
				v2 = e
			}
		}
		if !yield(elemTriangle(v0, v1, v2)) {
			return nil
		}

		for n := int(length) - 1; n > 0; n-- {
			vnew, err := readElem()
			if err != nil {
				return err
			}
			if vnew.dir {
				// next triangle is (V2, V1, Vnew); the V0 slot is reassigned
				v0, v2 = v2, vnew
			} else {
				// next triangle is (V0, V2, Vnew); the V1 slot is reassigned
				v1, v2 = v2, vnew
			}
			if !yield(elemTriangle(v0, v1, v2)) {
				return nil
			}
		}
	}
}

func elemTriangle(a, b, c faceElem) Triangle {
	return Triangle{
		V: [3]int{a.v, b.v, c.v},
		T: [3]int{a.t, b.t, c.t},
		N: [3]int{a.n, b.n, c.n},
	}
}

// EncodeFaces packs tris into a face stream, one single-triangle chain
// per input triangle. This is the simplest correct encoding for an
// arbitrary triangle list (it never assumes the fan/strip adjacency
// the direction-bit chaining is meant to compress); an offline packer
// that wants denser output can build chains itself.
func EncodeFaces(tris []Triangle, hasTex, hasNrm bool) []byte {
	var words []uint16
	for _, tri := range tris {
		words = append(words, 1)
		for i := 0; i < 3; i++ {
			words = append(words, uint16(tri.V[i]))
			if hasTex {
				words = append(words, uint16(tri.T[i]))
			}
			if hasNrm {
				words = append(words, uint16(tri.N[i]))
			}
		}
	}
	words = append(words, 0)
	return wordsToBytes(words)
}

func wordsToBytes(words []uint16) []byte {
	out := make([]byte, len(words)*2)
	for i, w := range words {
		out[2*i] = byte(w)
		out[2*i+1] = byte(w >> 8)
	}
	return out
}
