package kernel

import "gonum.org/v1/gonum/spatial/r3"

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	PartName string    `json:"partName"` // which model object this came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Points returns the vertex positions as vectors.
func (m *Mesh) Points() []r3.Vec {
	pts := make([]r3.Vec, 0, m.VertexCount())
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		pts = append(pts, r3.Vec{
			X: float64(m.Vertices[i]),
			Y: float64(m.Vertices[i+1]),
			Z: float64(m.Vertices[i+2]),
		})
	}
	return pts
}

// FaceNormal returns the unnormalised normal of triangle i, or the zero
// vector when i is out of range.
func (m *Mesh) FaceNormal(i int) r3.Vec {
	if i < 0 || i >= m.TriangleCount() {
		return r3.Vec{}
	}
	pts := [3]r3.Vec{}
	for j := 0; j < 3; j++ {
		k := int(m.Indices[i*3+j]) * 3
		pts[j] = r3.Vec{
			X: float64(m.Vertices[k]),
			Y: float64(m.Vertices[k+1]),
			Z: float64(m.Vertices[k+2]),
		}
	}
	return r3.Cross(r3.Sub(pts[1], pts[0]), r3.Sub(pts[2], pts[0]))
}
