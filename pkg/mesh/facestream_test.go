package mesh

import "testing"

func wordsLE(words []uint16) []byte {
	out := make([]byte, len(words)*2)
	for i, w := range words {
		out[2*i] = byte(w)
		out[2*i+1] = byte(w >> 8)
	}
	return out
}

// Exercises the exact worked example from the wire-format
// documentation: a 3-triangle chain (one reversed-winding extension,
// one forward extension) followed by a single-triangle chain, with
// normals present and no texcoords.
func TestDecodeFacesWorkedExample(t *testing.T) {
	stream := wordsLE([]uint16{
		3,
		0, 1, 2, 2, 4, 6, 0x8005, 8, 7, 7,
		1,
		8, 7, 9, 4, 5, 5,
		0,
	})

	tris, err := decodeFaces(stream, false, true)
	if err != nil {
		t.Fatalf("decodeFaces: %v", err)
	}

	want := []Triangle{
		{V: [3]int{0, 2, 4}, N: [3]int{1, 2, 6}},
		{V: [3]int{4, 2, 5}, N: [3]int{6, 2, 8}},
		{V: [3]int{4, 5, 7}, N: [3]int{6, 8, 7}},
		{V: [3]int{8, 9, 5}, N: [3]int{7, 4, 5}},
	}

	if len(tris) != len(want) {
		t.Fatalf("got %d triangles, want %d: %+v", len(tris), len(want), tris)
	}
	for i := range want {
		if tris[i].V != want[i].V || tris[i].N != want[i].N {
			t.Errorf("triangle %d = %+v, want %+v", i, tris[i], want[i])
		}
	}
}

func TestDecodeFacesEmptyStream(t *testing.T) {
	stream := wordsLE([]uint16{0})
	tris, err := decodeFaces(stream, false, false)
	if err != nil {
		t.Fatalf("decodeFaces: %v", err)
	}
	if len(tris) != 0 {
		t.Fatalf("expected no triangles, got %d", len(tris))
	}
}

func TestDecodeFacesTruncatedStreamErrors(t *testing.T) {
	stream := wordsLE([]uint16{3, 0, 1, 2})
	if _, err := decodeFaces(stream, false, false); err == nil {
		t.Fatal("expected an error for a truncated chain, got nil")
	}
}

// Encoding then decoding an arbitrary triangle list (not necessarily
// forming any strip/fan) must round-trip exactly: EncodeFaces emits
// one independent chain per triangle.
func TestEncodeDecodeFacesRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name          string
		hasTex, hasNrm bool
		tris          []Triangle
	}{
		{
			name: "plain vertices only",
			tris: []Triangle{
				{V: [3]int{0, 1, 2}},
				{V: [3]int{2, 1, 3}},
				{V: [3]int{10, 0, 5}},
			},
		},
		{
			name:   "with texcoords and normals",
			hasTex: true, hasNrm: true,
			tris: []Triangle{
				{V: [3]int{0, 1, 2}, T: [3]int{0, 1, 2}, N: [3]int{0, 0, 0}},
				{V: [3]int{3, 4, 5}, T: [3]int{3, 4, 5}, N: [3]int{1, 1, 1}},
			},
		},
		{
			name: "empty",
			tris: nil,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			stream := EncodeFaces(tc.tris, tc.hasTex, tc.hasNrm)
			got, err := decodeFaces(stream, tc.hasTex, tc.hasNrm)
			if err != nil {
				t.Fatalf("decodeFaces: %v", err)
			}
			if len(got) != len(tc.tris) {
				t.Fatalf("got %d triangles, want %d", len(got), len(tc.tris))
			}
			for i := range tc.tris {
				if got[i].V != tc.tris[i].V {
					t.Errorf("triangle %d V = %v, want %v", i, got[i].V, tc.tris[i].V)
				}
				if tc.hasTex && got[i].T != tc.tris[i].T {
					t.Errorf("triangle %d T = %v, want %v", i, got[i].T, tc.tris[i].T)
				}
				if tc.hasNrm && got[i].N != tc.tris[i].N {
					t.Errorf("triangle %d N = %v, want %v", i, got[i].N, tc.tris[i].N)
				}
			}
		})
	}
}
