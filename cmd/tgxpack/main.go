// tgxpack - Offline mesh packer.
//
// Converts a glTF/GLB model into tgx's own binary mesh container
// (see pkg/mesh/io.go), the only form cmd/tgxview ever loads. Keeping
// this conversion offline means the runtime viewer never links
// against a glTF parser.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/qmuntal/gltf"

	"github.com/taigrr/tgx/pkg/math3d"
	"github.com/taigrr/tgx/pkg/mesh"
	"github.com/taigrr/tgx/pkg/pixel"
)

var (
	outPath = flag.String("o", "", "output .tgxm path (default: input name with .tgxm extension)")
	smooth  = flag.Bool("smooth", true, "average face normals into per-vertex normals when the source has none")
	matK    = flag.String("material", "1,1,1,0.3,0.8,0.3,24", "R,G,B,ambientK,diffuseK,specularK,specularExponent")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "tgxpack - pack a glTF/GLB model into a tgx mesh container\n\n")
		fmt.Fprintf(os.Stderr, "Usage: tgxpack [options] <model.glb|model.gltf>\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(inPath string) error {
	doc, err := gltf.Open(inPath)
	if err != nil {
		return fmt.Errorf("open gltf: %w", err)
	}

	m, err := buildMesh(doc, filepath.Base(inPath))
	if err != nil {
		return fmt.Errorf("build mesh: %w", err)
	}

	if !m.HasNormals() {
		if *smooth {
			smoothNormals(m)
		} else {
			flatNormals(m)
		}
	}

	if tex, err := loadEmbeddedTexture(doc); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not decode embedded texture: %v\n", err)
	} else if tex != nil {
		m.Texture = tex
	}

	m.Material = parseMaterial(*matK)
	m.ComputeBounds()

	out := *outPath
	if out == "" {
		out = strTrimExt(inPath) + ".tgxm"
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	defer f.Close()
	if err := mesh.Save(f, m); err != nil {
		return fmt.Errorf("save %s: %w", out, err)
	}

	fmt.Printf("Packed %s -> %s (%d vertices, %d normals, %d texcoords, texture=%v)\n",
		filepath.Base(inPath), out, len(m.Vertices), len(m.Normals), len(m.Texcoords), m.HasTexture())
	return nil
}

func strTrimExt(p string) string {
	ext := filepath.Ext(p)
	return p[:len(p)-len(ext)]
}

// buildMesh walks every triangle primitive in doc into a single Mesh
// with independently-indexed vertex/normal/texcoord arrays, keeping
// glTF's CCW front-face winding: the renderer's back-face culling keeps
// triangles that are CCW as seen from the camera, and the normal
// rebuild below takes (v1-v0)x(v2-v0) as the outward normal.
func buildMesh(doc *gltf.Document, name string) (*mesh.Mesh, error) {
	m := &mesh.Mesh{Name: name}

	for _, gm := range doc.Meshes {
		for _, prim := range gm.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
				continue
			}

			posIdx, ok := prim.Attributes[gltf.POSITION]
			if !ok {
				continue
			}
			positions, err := readVec3Accessor(doc, posIdx)
			if err != nil {
				return nil, fmt.Errorf("read positions: %w", err)
			}

			var normals []math3d.Vec3
			if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
				normals, err = readVec3Accessor(doc, normIdx)
				if err != nil {
					return nil, fmt.Errorf("read normals: %w", err)
				}
			}

			var uvs []math3d.Vec2
			if uvIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
				uvs, err = readVec2Accessor(doc, uvIdx)
				if err != nil {
					return nil, fmt.Errorf("read uvs: %w", err)
				}
				// glTF's V=0 is the image's top row, which is also
				// texel row 0 in tgx's texture sampling: no flip.
			}

			baseV := len(m.Vertices)
			baseN := len(m.Normals)
			baseT := len(m.Texcoords)
			m.Vertices = append(m.Vertices, positions...)
			m.Normals = append(m.Normals, normals...)
			m.Texcoords = append(m.Texcoords, uvs...)

			var tris []mesh.Triangle
			addTri := func(a, b, c int) {
				tri := mesh.Triangle{V: [3]int{baseV + a, baseV + b, baseV + c}}
				if len(normals) > 0 {
					tri.N = [3]int{baseN + a, baseN + b, baseN + c}
				}
				if len(uvs) > 0 {
					tri.T = [3]int{baseT + a, baseT + b, baseT + c}
				}
				tris = append(tris, tri)
			}

			if prim.Indices != nil {
				indices, err := readIndices(doc, *prim.Indices)
				if err != nil {
					return nil, fmt.Errorf("read indices: %w", err)
				}
				for i := 0; i+2 < len(indices); i += 3 {
					addTri(indices[i], indices[i+1], indices[i+2])
				}
			} else {
				for i := 0; i+2 < len(positions); i += 3 {
					addTri(i, i+1, i+2)
				}
			}

			hasTex := len(m.Texcoords) > 0
			hasNrm := len(m.Normals) > 0
			m.Faces = append(m.Faces, mesh.EncodeFaces(tris, hasTex, hasNrm)...)
		}
	}

	if len(m.Vertices) == 0 {
		return nil, fmt.Errorf("no triangle primitives found")
	}
	if len(m.Vertices) > mesh.MaxVertices {
		return nil, fmt.Errorf("%d vertices exceed the face stream's limit of %d", len(m.Vertices), mesh.MaxVertices)
	}
	if len(m.Normals) > mesh.MaxNormals || len(m.Texcoords) > mesh.MaxTexcoords {
		return nil, fmt.Errorf("normal/texcoord count exceeds the face stream's 16-bit index range")
	}
	return m, nil
}

func flatNormals(m *mesh.Mesh) {
	tris, err := m.DecodeFaces()
	if err != nil {
		return
	}
	m.Normals = make([]math3d.Vec3, len(m.Vertices))
	retris := make([]mesh.Triangle, len(tris))
	for i, tri := range tris {
		v0, v1, v2 := m.Vertices[tri.V[0]], m.Vertices[tri.V[1]], m.Vertices[tri.V[2]]
		n := v1.Sub(v0).Cross(v2.Sub(v0)).Normalize()
		m.Normals[tri.V[0]] = n
		m.Normals[tri.V[1]] = n
		m.Normals[tri.V[2]] = n
		retris[i] = mesh.Triangle{V: tri.V, T: tri.T, N: tri.V}
	}
	m.Faces = mesh.EncodeFaces(retris, m.HasTexcoords(), true)
}

func smoothNormals(m *mesh.Mesh) {
	tris, err := m.DecodeFaces()
	if err != nil {
		return
	}
	accum := make([]math3d.Vec3, len(m.Vertices))
	for _, tri := range tris {
		v0, v1, v2 := m.Vertices[tri.V[0]], m.Vertices[tri.V[1]], m.Vertices[tri.V[2]]
		n := v1.Sub(v0).Cross(v2.Sub(v0))
		accum[tri.V[0]] = accum[tri.V[0]].Add(n)
		accum[tri.V[1]] = accum[tri.V[1]].Add(n)
		accum[tri.V[2]] = accum[tri.V[2]].Add(n)
	}
	m.Normals = make([]math3d.Vec3, len(accum))
	for i, n := range accum {
		m.Normals[i] = n.Normalize()
	}
	retris := make([]mesh.Triangle, len(tris))
	for i, tri := range tris {
		retris[i] = mesh.Triangle{V: tri.V, T: tri.T, N: tri.V}
	}
	m.Faces = mesh.EncodeFaces(retris, m.HasTexcoords(), true)
}

func readVec3Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec3, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec3 {
		return nil, fmt.Errorf("expected VEC3, got %v", accessor.Type)
	}
	data, err := readAccessorData(doc, accessor)
	if err != nil {
		return nil, err
	}
	floats, ok := data.([][3]float32)
	if !ok {
		return nil, fmt.Errorf("unexpected data type for VEC3")
	}
	out := make([]math3d.Vec3, len(floats))
	for i, f := range floats {
		out[i] = math3d.V3(float64(f[0]), float64(f[1]), float64(f[2]))
	}
	return out, nil
}

func readVec2Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec2, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec2 {
		return nil, fmt.Errorf("expected VEC2, got %v", accessor.Type)
	}
	data, err := readAccessorData(doc, accessor)
	if err != nil {
		return nil, err
	}
	floats, ok := data.([][2]float32)
	if !ok {
		return nil, fmt.Errorf("unexpected data type for VEC2")
	}
	out := make([]math3d.Vec2, len(floats))
	for i, f := range floats {
		out[i] = math3d.V2(float64(f[0]), float64(f[1]))
	}
	return out, nil
}

func readIndices(doc *gltf.Document, accessorIdx int) ([]int, error) {
	accessor := doc.Accessors[accessorIdx]
	data, err := readAccessorData(doc, accessor)
	if err != nil {
		return nil, err
	}
	switch v := data.(type) {
	case []uint8:
		out := make([]int, len(v))
		for i, x := range v {
			out[i] = int(x)
		}
		return out, nil
	case []uint16:
		out := make([]int, len(v))
		for i, x := range v {
			out[i] = int(x)
		}
		return out, nil
	case []uint32:
		out := make([]int, len(v))
		for i, x := range v {
			out[i] = int(x)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected index type: %T", data)
	}
}

func readAccessorData(doc *gltf.Document, accessor *gltf.Accessor) (any, error) {
	if accessor.BufferView == nil {
		return nil, fmt.Errorf("accessor has no buffer view")
	}
	bufferView := doc.BufferViews[*accessor.BufferView]
	buffer := doc.Buffers[bufferView.Buffer]

	bufData := buffer.Data
	if bufData == nil {
		return nil, fmt.Errorf("buffer has no data (external buffers not supported)")
	}

	start := bufferView.ByteOffset + accessor.ByteOffset
	stride := bufferView.ByteStride
	count := accessor.Count

	switch accessor.Type {
	case gltf.AccessorVec3:
		if stride == 0 {
			stride = 12
		}
		out := make([][3]float32, count)
		for i := range count {
			offset := start + i*stride
			for j := range 3 {
				out[i][j] = readFloat32(bufData[offset+j*4:])
			}
		}
		return out, nil

	case gltf.AccessorVec2:
		if stride == 0 {
			stride = 8
		}
		out := make([][2]float32, count)
		for i := range count {
			offset := start + i*stride
			for j := range 2 {
				out[i][j] = readFloat32(bufData[offset+j*4:])
			}
		}
		return out, nil

	case gltf.AccessorScalar:
		if stride == 0 {
			switch accessor.ComponentType {
			case gltf.ComponentUbyte:
				stride = 1
			case gltf.ComponentUshort:
				stride = 2
			case gltf.ComponentUint:
				stride = 4
			}
		}
		switch accessor.ComponentType {
		case gltf.ComponentUbyte:
			out := make([]uint8, count)
			for i := range count {
				out[i] = bufData[start+i*stride]
			}
			return out, nil
		case gltf.ComponentUshort:
			out := make([]uint16, count)
			for i := range count {
				offset := start + i*stride
				out[i] = uint16(bufData[offset]) | uint16(bufData[offset+1])<<8
			}
			return out, nil
		case gltf.ComponentUint:
			out := make([]uint32, count)
			for i := range count {
				offset := start + i*stride
				out[i] = uint32(bufData[offset]) |
					uint32(bufData[offset+1])<<8 |
					uint32(bufData[offset+2])<<16 |
					uint32(bufData[offset+3])<<24
			}
			return out, nil
		}
	}

	return nil, fmt.Errorf("unsupported accessor type: %v / %v", accessor.Type, accessor.ComponentType)
}

func readFloat32(b []byte) float32 {
	bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return *(*float32)(unsafe.Pointer(&bits))
}

// loadEmbeddedTexture decodes the document's first embedded image, if
// any, into an RGB888 view. External image URIs are not resolved:
// packing is expected to run against self-contained .glb files.
func loadEmbeddedTexture(doc *gltf.Document) (*pixel.View[pixel.RGB888], error) {
	for _, img := range doc.Images {
		if img.BufferView == nil {
			continue
		}
		bv := doc.BufferViews[*img.BufferView]
		buf := doc.Buffers[bv.Buffer]
		if buf.Data == nil {
			continue
		}
		start := bv.ByteOffset
		end := start + bv.ByteLength
		decoded, _, err := image.Decode(bytes.NewReader(buf.Data[start:end]))
		if err != nil {
			return nil, err
		}
		return imageToView(decoded), nil
	}
	return nil, nil
}

func imageToView(img image.Image) *pixel.View[pixel.RGB888] {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	buf := make([]pixel.RGB888, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			buf[y*w+x] = pixel.RGB888{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(bl >> 8)}
		}
	}
	v := pixel.NewView(buf, w, h, w)
	return &v
}

func parseMaterial(spec string) mesh.Material {
	var r, g, b, ambK, diffK, specK float32
	var specExp int
	n, _ := fmt.Sscanf(spec, "%f,%f,%f,%f,%f,%f,%d", &r, &g, &b, &ambK, &diffK, &specK, &specExp)
	if n != 7 {
		return mesh.Material{Color: pixel.ColorF{R: 1, G: 1, B: 1}, AmbientK: 0.3, DiffuseK: 0.8, SpecularK: 0.3, SpecularExponent: 24}
	}
	return mesh.Material{
		Color:            pixel.ColorF{R: r, G: g, B: b},
		AmbientK:         ambK,
		DiffuseK:         diffK,
		SpecularK:        specK,
		SpecularExponent: specExp,
	}
}
