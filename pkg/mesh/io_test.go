package mesh

import (
	"bytes"
	"strings"
	"testing"

	"github.com/taigrr/tgx/pkg/math3d"
	"github.com/taigrr/tgx/pkg/pixel"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	texBuf := []pixel.RGB888{
		{R: 255}, {G: 255},
		{B: 255}, {R: 255, G: 255, B: 255},
	}
	tex := pixel.NewView(texBuf, 2, 2, 2)

	in := &Mesh{
		Name: "quad",
		Vertices: []math3d.Vec3{
			{X: -1, Y: -1}, {X: 1, Y: -1}, {X: 1, Y: 1}, {X: -1, Y: 1},
		},
		Normals:   []math3d.Vec3{{Z: 1}, {Z: 1}, {Z: 1}, {Z: 1}},
		Texcoords: []math3d.Vec2{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}},
		Texture:   &tex,
		Material: Material{
			Color:            pixel.ColorF{R: 0.5, G: 0.25, B: 1},
			AmbientK:         0.25,
			DiffuseK:         0.75,
			SpecularK:        0.5,
			SpecularExponent: 16,
		},
	}
	in.Faces = EncodeFaces([]Triangle{
		{V: [3]int{0, 1, 2}, T: [3]int{0, 1, 2}, N: [3]int{0, 1, 2}},
		{V: [3]int{0, 2, 3}, T: [3]int{0, 2, 3}, N: [3]int{0, 2, 3}},
	}, true, true)
	in.ComputeBounds()

	var buf bytes.Buffer
	if err := Save(&buf, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if out.Name != in.Name {
		t.Errorf("Name = %q, want %q", out.Name, in.Name)
	}
	if len(out.Vertices) != len(in.Vertices) || out.Vertices[2] != in.Vertices[2] {
		t.Errorf("vertices did not round-trip: %+v", out.Vertices)
	}
	if len(out.Normals) != len(in.Normals) || out.Normals[0] != in.Normals[0] {
		t.Errorf("normals did not round-trip: %+v", out.Normals)
	}
	if len(out.Texcoords) != len(in.Texcoords) || out.Texcoords[2] != in.Texcoords[2] {
		t.Errorf("texcoords did not round-trip: %+v", out.Texcoords)
	}
	if !bytes.Equal(out.Faces, in.Faces) {
		t.Error("face stream did not round-trip byte-exactly")
	}
	if out.Material != in.Material {
		t.Errorf("material = %+v, want %+v", out.Material, in.Material)
	}
	if out.Bounds != in.Bounds {
		t.Errorf("bounds = %+v, want %+v", out.Bounds, in.Bounds)
	}
	if !out.HasTexture() || out.Texture.Lx != 2 || out.Texture.Ly != 2 {
		t.Fatalf("texture did not round-trip: %+v", out.Texture)
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if got, want := out.Texture.At(x, y), tex.At(x, y); got != want {
				t.Errorf("texel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
	if out.Next != nil {
		t.Error("loaded mesh must not carry a Next link")
	}

	tris, err := out.DecodeFaces()
	if err != nil {
		t.Fatalf("DecodeFaces after round trip: %v", err)
	}
	if len(tris) != 2 || tris[1].V != [3]int{0, 2, 3} {
		t.Fatalf("decoded triangles = %+v", tris)
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	if _, err := Load(strings.NewReader("NOPE....")); err == nil {
		t.Fatal("expected an error for a bad magic, got nil")
	}
}
