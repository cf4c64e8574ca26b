package kernel

import (
	"errors"
	"fmt"
	"testing"

	"github.com/chazu/brepfacade/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	t.Run("empty mesh", func(t *testing.T) {
		m := &Mesh{}
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for empty mesh, want true")
		}
	})
	t.Run("non-empty mesh", func(t *testing.T) {
		m := &Mesh{Vertices: []float32{1, 2, 3}}
		if m.IsEmpty() {
			t.Error("IsEmpty() = true for non-empty mesh, want false")
		}
	})
}

func TestMeshPoints(t *testing.T) {
	m := &Mesh{Vertices: []float32{1, 2, 3, 4, 5, 6}}
	got := m.Points()
	want := []r3.Vec{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}}
	if len(got) != len(want) {
		t.Fatalf("Points() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Points()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMeshFaceNormal(t *testing.T) {
	m := &Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Indices:  []uint32{0, 1, 2},
	}
	if got := m.FaceNormal(0); got != (r3.Vec{Z: 1}) {
		t.Errorf("FaceNormal(0) = %v, want {0 0 1}", got)
	}
	if got := m.FaceNormal(1); got != (r3.Vec{}) {
		t.Errorf("FaceNormal(1) = %v, want zero vector", got)
	}
}

// --- Compile-time interface check with a stub kernel ---

// stubShape is a minimal Shape implementation for testing.
type stubShape struct {
	loc          geom.Trsf
	minBB, maxBB r3.Vec
}

func (s *stubShape) Location() geom.Trsf { return s.loc }

// stubKernel is a minimal Kernel implementation that proves the interface
// is satisfiable. Transforms only move the placement.
type stubKernel struct{}

func (k *stubKernel) Name() string { return "stub" }

func (k *stubKernel) Box(x, y, z float64) (Shape, error) {
	return &stubShape{loc: geom.Identity(), maxBB: r3.Vec{X: x, Y: y, Z: z}}, nil
}

func (k *stubKernel) Cylinder(height, radius float64, _ int) (Shape, error) {
	return &stubShape{
		loc:   geom.Identity(),
		minBB: r3.Vec{X: -radius, Y: -radius},
		maxBB: r3.Vec{X: radius, Y: radius, Z: height},
	}, nil
}

func (k *stubKernel) Transform(s Shape, t geom.Trsf, _ bool) (Shape, error) {
	ss := s.(*stubShape)
	return &stubShape{loc: t.Multiply(ss.loc), minBB: ss.minBB, maxBB: ss.maxBB}, nil
}

func (k *stubKernel) GTransform(s Shape, t geom.Trsf, copy bool) (Shape, error) {
	return k.Transform(s, t, copy)
}

func (k *stubKernel) Validate(Shape) error { return nil }

func (k *stubKernel) BoundingBox(s Shape, gap float64) (geom.Box, error) {
	ss := s.(*stubShape)
	b := geom.Box{Min: ss.minBB, Max: ss.maxBB}
	return b.Transformed(ss.loc).Enlarge(gap), nil
}

func (k *stubKernel) FindPlane(Shape, float64) (geom.Plane, bool, error) {
	return geom.Plane{}, false, nil
}

func (k *stubKernel) ToMesh(Shape) (*Mesh, error) {
	return &Mesh{}, nil
}

// Compile-time checks that the stubs implement the interfaces.
var _ Shape = (*stubShape)(nil)
var _ Kernel = (*stubKernel)(nil)

func TestStubKernelBoxBoundingBox(t *testing.T) {
	var k Kernel = &stubKernel{}
	s, err := k.Box(10, 20, 30)
	if err != nil {
		t.Fatalf("Box() error = %v", err)
	}
	moved, err := k.Transform(s, geom.Translation(r3.Vec{X: 1}), false)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	b, err := k.BoundingBox(moved, 0)
	if err != nil {
		t.Fatalf("BoundingBox() error = %v", err)
	}
	if want := [6]float64{1, 0, 0, 11, 20, 30}; b.Array() != want {
		t.Errorf("BoundingBox() = %v, want %v", b.Array(), want)
	}
}

func TestStubKernelToMesh(t *testing.T) {
	var k Kernel = &stubKernel{}
	s, _ := k.Box(1, 1, 1)
	m, err := k.ToMesh(s)
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}
	if m == nil {
		t.Fatal("ToMesh() returned nil mesh")
	}
	if !m.IsEmpty() {
		t.Error("stub ToMesh() should return empty mesh")
	}
}

func TestErrFailureWrapping(t *testing.T) {
	err := fmt.Errorf("%w: degenerate result", ErrFailure)
	if !errors.Is(err, ErrFailure) {
		t.Errorf("errors.Is(%v, ErrFailure) = false", err)
	}
}
