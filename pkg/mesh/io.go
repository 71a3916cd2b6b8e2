package mesh

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/taigrr/tgx/pkg/math3d"
	"github.com/taigrr/tgx/pkg/pixel"
)

// fileMagic tags tgx's on-disk mesh container: a simple little-endian
// wrapper around the vertex/normal/texcoord arrays, material, bounds,
// optional texture, and the embedded face stream.
const fileMagic = "TGX1"

// Save writes m to w in tgx's mesh container format.
func Save(w io.Writer, m *Mesh) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(fileMagic); err != nil {
		return fmt.Errorf("mesh: write magic: %w", err)
	}
	if err := writeString(bw, m.Name); err != nil {
		return err
	}
	if err := writeVec3Slice(bw, m.Vertices); err != nil {
		return fmt.Errorf("mesh: write vertices: %w", err)
	}
	if err := writeVec3Slice(bw, m.Normals); err != nil {
		return fmt.Errorf("mesh: write normals: %w", err)
	}
	if err := writeVec2Slice(bw, m.Texcoords); err != nil {
		return fmt.Errorf("mesh: write texcoords: %w", err)
	}
	if err := writeBytes(bw, m.Faces); err != nil {
		return fmt.Errorf("mesh: write faces: %w", err)
	}
	if err := writeMaterial(bw, m.Material); err != nil {
		return fmt.Errorf("mesh: write material: %w", err)
	}
	if err := writeVec3(bw, m.Bounds.Min); err != nil {
		return err
	}
	if err := writeVec3(bw, m.Bounds.Max); err != nil {
		return err
	}
	if err := writeTexture(bw, m.Texture); err != nil {
		return fmt.Errorf("mesh: write texture: %w", err)
	}
	return bw.Flush()
}

// Load reads a Mesh previously written by Save. The returned mesh's
// Next is always nil; chaining multiple meshes together is the
// caller's concern, not the container's.
func Load(r io.Reader) (*Mesh, error) {
	br := bufio.NewReader(r)
	magic := make([]byte, len(fileMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("mesh: read magic: %w", err)
	}
	if string(magic) != fileMagic {
		return nil, fmt.Errorf("mesh: bad magic %q", magic)
	}

	m := &Mesh{}
	var err error
	if m.Name, err = readString(br); err != nil {
		return nil, err
	}
	if m.Vertices, err = readVec3Slice(br); err != nil {
		return nil, fmt.Errorf("mesh: read vertices: %w", err)
	}
	if m.Normals, err = readVec3Slice(br); err != nil {
		return nil, fmt.Errorf("mesh: read normals: %w", err)
	}
	if m.Texcoords, err = readVec2Slice(br); err != nil {
		return nil, fmt.Errorf("mesh: read texcoords: %w", err)
	}
	if m.Faces, err = readBytes(br); err != nil {
		return nil, fmt.Errorf("mesh: read faces: %w", err)
	}
	if m.Material, err = readMaterial(br); err != nil {
		return nil, fmt.Errorf("mesh: read material: %w", err)
	}
	if m.Bounds.Min, err = readVec3(br); err != nil {
		return nil, err
	}
	if m.Bounds.Max, err = readVec3(br); err != nil {
		return nil, err
	}
	if m.Texture, err = readTexture(br); err != nil {
		return nil, fmt.Errorf("mesh: read texture: %w", err)
	}
	return m, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeVec3(w io.Writer, v math3d.Vec3) error {
	return binary.Write(w, binary.LittleEndian, [3]float32{float32(v.X), float32(v.Y), float32(v.Z)})
}

func readVec3(r io.Reader) (math3d.Vec3, error) {
	var f [3]float32
	if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
		return math3d.Vec3{}, err
	}
	return math3d.V3(float64(f[0]), float64(f[1]), float64(f[2])), nil
}

func writeVec3Slice(w io.Writer, vs []math3d.Vec3) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(vs))); err != nil {
		return err
	}
	for _, v := range vs {
		if err := writeVec3(w, v); err != nil {
			return err
		}
	}
	return nil
}

func readVec3Slice(r io.Reader) ([]math3d.Vec3, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]math3d.Vec3, n)
	for i := range out {
		v, err := readVec3(r)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func writeVec2Slice(w io.Writer, vs []math3d.Vec2) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(vs))); err != nil {
		return err
	}
	for _, v := range vs {
		if err := binary.Write(w, binary.LittleEndian, [2]float32{float32(v.X), float32(v.Y)}); err != nil {
			return err
		}
	}
	return nil
}

func readVec2Slice(r io.Reader) ([]math3d.Vec2, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]math3d.Vec2, n)
	for i := range out {
		var f [2]float32
		if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
			return nil, err
		}
		out[i] = math3d.V2(float64(f[0]), float64(f[1]))
	}
	return out, nil
}

func writeMaterial(w io.Writer, mat Material) error {
	fields := [6]float32{mat.Color.R, mat.Color.G, mat.Color.B, mat.AmbientK, mat.DiffuseK, mat.SpecularK}
	if err := binary.Write(w, binary.LittleEndian, fields); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, int32(mat.SpecularExponent))
}

func readMaterial(r io.Reader) (Material, error) {
	var fields [6]float32
	if err := binary.Read(r, binary.LittleEndian, &fields); err != nil {
		return Material{}, err
	}
	var exp int32
	if err := binary.Read(r, binary.LittleEndian, &exp); err != nil {
		return Material{}, err
	}
	return Material{
		Color:            pixel.ColorF{R: fields[0], G: fields[1], B: fields[2]},
		AmbientK:         fields[3],
		DiffuseK:         fields[4],
		SpecularK:        fields[5],
		SpecularExponent: int(exp),
	}, nil
}

func writeTexture(w io.Writer, tex *pixel.View[pixel.RGB888]) error {
	if tex == nil || !tex.Valid() {
		return binary.Write(w, binary.LittleEndian, uint8(0))
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(1)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(tex.Lx)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(tex.Ly)); err != nil {
		return err
	}
	for y := 0; y < tex.Ly; y++ {
		for x := 0; x < tex.Lx; x++ {
			c := tex.At(x, y)
			if err := binary.Write(w, binary.LittleEndian, [3]uint8{c.R, c.G, c.B}); err != nil {
				return err
			}
		}
	}
	return nil
}

func readTexture(r io.Reader) (*pixel.View[pixel.RGB888], error) {
	var present uint8
	if err := binary.Read(r, binary.LittleEndian, &present); err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}
	var lx, ly uint32
	if err := binary.Read(r, binary.LittleEndian, &lx); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &ly); err != nil {
		return nil, err
	}
	buf := make([]pixel.RGB888, int(lx)*int(ly))
	for i := range buf {
		var c [3]uint8
		if err := binary.Read(r, binary.LittleEndian, &c); err != nil {
			return nil, err
		}
		buf[i] = pixel.RGB888{R: c[0], G: c[1], B: c[2]}
	}
	v := pixel.NewView(buf, int(lx), int(ly), int(lx))
	return &v, nil
}
