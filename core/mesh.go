package core

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/go-gl/mathgl/mgl64"
)

// Interleaved position (3), normal (3) and texture coordinate (2).
const vertexStride = 8

// Mesh is a triangulated height surface centred on the origin, y up.
type Mesh struct {
	Vertices []float32
	Indices  []uint32
}

// NewMesh lays one vertex on every height sample. heightScale multiplies the
// stored heights into world units.
func NewMesh(surface *Surface, heightScale float64) *Mesh {
	var rows, cols = surface.Rows(), surface.Cols()
	var m = Mesh{
		Vertices: make([]float32, rows*cols*vertexStride),
		Indices:  make([]uint32, 0, max(rows-1, 0)*max(cols-1, 0)*6),
	}
	var h = func(x, y int) float64 {
		return surface.heights[y][x] * heightScale
	}

	var vertIndex = 0
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			var normal = surfaceNormal(h, x, y, rows, cols)
			var v = m.Vertices[vertIndex : vertIndex+vertexStride]
			v[0] = float32(float64(x) - float64(cols-1)/2)
			v[1] = float32(h(x, y))
			v[2] = float32(float64(y) - float64(rows-1)/2)
			v[3], v[4], v[5] = float32(normal.X()), float32(normal.Y()), float32(normal.Z())
			v[6] = float32(uv(x, cols))
			v[7] = float32(uv(y, rows))
			vertIndex += vertexStride
		}
	}

	for r := 0; r < rows-1; r++ {
		for c := 0; c < cols-1; c++ {
			var index = uint32(r*cols + c)
			var below = index + uint32(cols)
			m.Indices = append(m.Indices,
				below+1, index+1, index,
				below, below+1, index,
			)
		}
	}
	return &m
}

func uv(i, n int) float64 {
	if n == 1 {
		return 0
	}
	return float64(i) / float64(n-1)
}

// surfaceNormal uses central differences, one-sided at the border.
func surfaceNormal(h func(x, y int) float64, x, y, rows, cols int) mgl64.Vec3 {
	var xl, xr = max(x-1, 0), min(x+1, cols-1)
	var yt, yb = max(y-1, 0), min(y+1, rows-1)
	var alongX = mgl64.Vec3{float64(xr - xl), h(xr, y) - h(xl, y), 0}
	var alongZ = mgl64.Vec3{0, h(x, yb) - h(x, yt), float64(yb - yt)}
	if xr == xl {
		alongX = mgl64.Vec3{1, 0, 0}
	}
	if yb == yt {
		alongZ = mgl64.Vec3{0, 0, 1}
	}
	return alongZ.Cross(alongX).Normalize()
}

func (m *Mesh) VertexCount() int { return len(m.Vertices) / vertexStride }

// Vertex returns the position and normal of vertex i.
func (m *Mesh) Vertex(i int) (pos, normal mgl64.Vec3) {
	var v = m.Vertices[i*vertexStride : (i+1)*vertexStride]
	pos = mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
	normal = mgl64.Vec3{float64(v[3]), float64(v[4]), float64(v[5])}
	return pos, normal
}

// WriteOBJ writes the mesh as a Wavefront OBJ object.
func (m *Mesh) WriteOBJ(w io.Writer) error {
	var bw = bufio.NewWriter(w)
	fmt.Fprintf(bw, "o terrain\n")
	for i := 0; i < len(m.Vertices); i += vertexStride {
		fmt.Fprintf(bw, "v %g %g %g\n", m.Vertices[i], m.Vertices[i+1], m.Vertices[i+2])
	}
	for i := 0; i < len(m.Vertices); i += vertexStride {
		fmt.Fprintf(bw, "vn %g %g %g\n", m.Vertices[i+3], m.Vertices[i+4], m.Vertices[i+5])
	}
	for i := 0; i < len(m.Vertices); i += vertexStride {
		fmt.Fprintf(bw, "vt %g %g\n", m.Vertices[i+6], m.Vertices[i+7])
	}
	for i := 0; i+2 < len(m.Indices); i += 3 {
		// OBJ indices are 1-based.
		var a, b, c = m.Indices[i] + 1, m.Indices[i+1] + 1, m.Indices[i+2] + 1
		fmt.Fprintf(bw, "f %d/%d/%d %d/%d/%d %d/%d/%d\n", a, a, a, b, b, b, c, c, c)
	}
	return bw.Flush()
}

// MeshSink writes the surface as an OBJ mesh.
type MeshSink struct {
	Path        string
	HeightScale float64
}

func (s MeshSink) SetHeights(heights [][]float64, resolution int) error {
	resampled, err := resample(heights, resolution)
	if err != nil {
		return err
	}
	surface, err := NewSurface(resampled)
	if err != nil {
		return err
	}
	var scale = s.HeightScale
	if scale == 0 {
		scale = 1
	}
	var mesh = NewMesh(surface, scale)
	return writeFile(s.Path, func(f *os.File) error {
		return mesh.WriteOBJ(f)
	})
}
