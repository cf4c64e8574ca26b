// Package trimesh implements the kernel.Kernel interface on plain triangle
// soups. Geometry is exact: bounding boxes come straight from the vertices
// and plane fitting runs on the vertex set, which makes this backend the
// reference for measurement results.
package trimesh

import (
	"fmt"
	"math"

	"github.com/chazu/brepfacade/pkg/geom"
	"github.com/chazu/brepfacade/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// Compile-time interface checks.
var _ kernel.Kernel = (*TrimeshKernel)(nil)
var _ kernel.Faces = (*TrimeshKernel)(nil)
var _ kernel.Shape = (*solid)(nil)

// orthoTol decides whether a transform can be kept as a placement instead
// of being baked into the vertices.
const orthoTol = 1e-9

// faceTolerance is how far a face vertex may lie from the face plane.
const faceTolerance = 1e-7

type triangle [3]r3.Vec

// solid is a triangle soup in local coordinates plus its placement.
type solid struct {
	tris []triangle
	loc  geom.Trsf
}

// Location returns the placement of the solid.
func (s *solid) Location() geom.Trsf {
	return s.loc
}

// world returns the triangles with the placement applied.
func (s *solid) world() []triangle {
	out := make([]triangle, len(s.tris))
	for i, tri := range s.tris {
		for j := range tri {
			out[i][j] = s.loc.Apply(tri[j])
		}
	}
	return out
}

// TrimeshKernel implements kernel.Kernel on triangle soups.
type TrimeshKernel struct{}

// New returns a new TrimeshKernel.
func New() *TrimeshKernel {
	return &TrimeshKernel{}
}

// Name returns "trimesh".
func (k *TrimeshKernel) Name() string { return "trimesh" }

func failure(format string, args ...any) error {
	return fmt.Errorf("%w: trimesh: %s", kernel.ErrFailure, fmt.Sprintf(format, args...))
}

// unwrap extracts the solid behind a kernel.Shape.
func unwrap(s kernel.Shape) (*solid, error) {
	ts, ok := s.(*solid)
	if !ok || ts == nil {
		return nil, failure("shape %T was not built by this kernel", s)
	}
	return ts, nil
}

func quad(a, b, c, d r3.Vec) []triangle {
	return []triangle{{a, b, c}, {a, c, d}}
}

// Box creates a box with the given dimensions and its minimum corner at the
// origin. Faces are wound counter-clockwise seen from outside.
func (k *TrimeshKernel) Box(x, y, z float64) (kernel.Shape, error) {
	if x <= 0 || y <= 0 || z <= 0 {
		return nil, failure("box dimensions must be positive, got %g x %g x %g", x, y, z)
	}
	p := func(i, j, l float64) r3.Vec { return r3.Vec{X: i * x, Y: j * y, Z: l * z} }

	var tris []triangle
	tris = append(tris, quad(p(0, 0, 0), p(0, 1, 0), p(1, 1, 0), p(1, 0, 0))...) // bottom
	tris = append(tris, quad(p(0, 0, 1), p(1, 0, 1), p(1, 1, 1), p(0, 1, 1))...) // top
	tris = append(tris, quad(p(0, 0, 0), p(1, 0, 0), p(1, 0, 1), p(0, 0, 1))...) // front
	tris = append(tris, quad(p(0, 1, 0), p(0, 1, 1), p(1, 1, 1), p(1, 1, 0))...) // back
	tris = append(tris, quad(p(0, 0, 0), p(0, 0, 1), p(0, 1, 1), p(0, 1, 0))...) // left
	tris = append(tris, quad(p(1, 0, 0), p(1, 1, 0), p(1, 1, 1), p(1, 0, 1))...) // right
	return &solid{tris: tris, loc: geom.Identity()}, nil
}

// Cylinder creates a cylinder along the Z axis, centered at the origin,
// approximated by a prism with the given number of segments.
func (k *TrimeshKernel) Cylinder(height, radius float64, segments int) (kernel.Shape, error) {
	if height <= 0 || radius <= 0 {
		return nil, failure("cylinder height and radius must be positive, got %g, %g", height, radius)
	}
	if segments < 3 {
		return nil, failure("cylinder needs at least 3 segments, got %d", segments)
	}
	lo, hi := -height/2, height/2
	bottomC := r3.Vec{Z: lo}
	topC := r3.Vec{Z: hi}

	var tris []triangle
	for i := 0; i < segments; i++ {
		a0 := 2 * math.Pi * float64(i) / float64(segments)
		a1 := 2 * math.Pi * float64(i+1) / float64(segments)
		c0, s0 := radius*math.Cos(a0), radius*math.Sin(a0)
		c1, s1 := radius*math.Cos(a1), radius*math.Sin(a1)

		b0 := r3.Vec{X: c0, Y: s0, Z: lo}
		b1 := r3.Vec{X: c1, Y: s1, Z: lo}
		t0 := r3.Vec{X: c0, Y: s0, Z: hi}
		t1 := r3.Vec{X: c1, Y: s1, Z: hi}

		tris = append(tris, triangle{bottomC, b1, b0})
		tris = append(tris, triangle{topC, t0, t1})
		tris = append(tris, quad(b0, b1, t1, t0)...)
	}
	return &solid{tris: tris, loc: geom.Identity()}, nil
}

// Face builds a planar polygonal face, fan-triangulated from the first
// point. The polygon must be planar and have at least three vertices.
func (k *TrimeshKernel) Face(points [][3]float64) (kernel.Shape, error) {
	if len(points) < 3 {
		return nil, failure("face needs at least 3 points, got %d", len(points))
	}
	pts := make([]r3.Vec, len(points))
	for i, p := range points {
		pts[i] = geom.Vec3(p)
	}
	if _, ok := geom.FitPlane(pts, faceTolerance, r3.Vec{}); !ok {
		return nil, failure("face polygon is degenerate or not planar")
	}
	tris := make([]triangle, 0, len(pts)-2)
	for i := 1; i+1 < len(pts); i++ {
		tris = append(tris, triangle{pts[0], pts[i], pts[i+1]})
	}
	return &solid{tris: tris, loc: geom.Identity()}, nil
}

// Transform places s under t. An orthogonal t with copy unset only moves the
// placement; anything else is baked into new local vertices.
func (k *TrimeshKernel) Transform(s kernel.Shape, t geom.Trsf, copy bool) (kernel.Shape, error) {
	src, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	if !copy && t.IsOrthogonal(orthoTol) {
		return &solid{tris: src.tris, loc: t.Multiply(src.loc)}, nil
	}
	return bake(src, t)
}

// GTransform bakes an arbitrary affine t into new vertices.
func (k *TrimeshKernel) GTransform(s kernel.Shape, t geom.Trsf, _ bool) (kernel.Shape, error) {
	src, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	return bake(src, t)
}

// bake applies t to the world-space solid by rewriting the local vertices
// with loc⁻¹ * t * loc; the placement is kept. Orientation-reversing
// transforms flip the winding so faces keep pointing outwards.
func bake(src *solid, t geom.Trsf) (kernel.Shape, error) {
	local, err := geom.Rebase(t, src.loc)
	if err != nil {
		return nil, failure("placement is not invertible: %v", err)
	}
	det := local.Det()
	if math.Abs(det) <= geom.Resolution || math.IsNaN(det) {
		return nil, failure("transform collapses the shape (det=%g)", det)
	}
	tris := make([]triangle, len(src.tris))
	for i, tri := range src.tris {
		for j := range tri {
			tris[i][j] = local.Apply(tri[j])
		}
		if det < 0 {
			tris[i][1], tris[i][2] = tris[i][2], tris[i][1]
		}
	}
	return &solid{tris: tris, loc: src.loc}, nil
}

// Validate rejects empty solids and solids with non-finite coordinates.
func (k *TrimeshKernel) Validate(s kernel.Shape) error {
	src, err := unwrap(s)
	if err != nil {
		return err
	}
	if len(src.tris) == 0 {
		return failure("shape has no faces")
	}
	for _, tri := range src.world() {
		for _, p := range tri {
			if !finite(p) {
				return failure("shape has non-finite vertex %v", p)
			}
		}
	}
	return nil
}

func finite(p r3.Vec) bool {
	for _, v := range [3]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// BoundingBox returns the exact world-space box of s enlarged by gap.
func (k *TrimeshKernel) BoundingBox(s kernel.Shape, gap float64) (geom.Box, error) {
	src, err := unwrap(s)
	if err != nil {
		return geom.Box{}, err
	}
	box := geom.EmptyBox()
	for _, tri := range src.world() {
		for _, p := range tri {
			box.Add(p)
		}
	}
	if box.IsVoid() {
		return geom.Box{}, failure("bounding box is void")
	}
	return box.Enlarge(gap), nil
}

// FindPlane fits a plane through every vertex of s. The normal follows the
// summed face normals, so a single face reports its front side.
func (k *TrimeshKernel) FindPlane(s kernel.Shape, tolerance float64) (geom.Plane, bool, error) {
	src, err := unwrap(s)
	if err != nil {
		return geom.Plane{}, false, err
	}
	var pts []r3.Vec
	var hint r3.Vec
	for _, tri := range src.world() {
		pts = append(pts, tri[0], tri[1], tri[2])
		hint = r3.Add(hint, r3.Cross(r3.Sub(tri[1], tri[0]), r3.Sub(tri[2], tri[0])))
	}
	pl, found := geom.FitPlane(pts, tolerance, hint)
	return pl, found, nil
}

// ToMesh flattens the world-space triangles into a kernel.Mesh with one
// face normal per vertex.
func (k *TrimeshKernel) ToMesh(s kernel.Shape) (*kernel.Mesh, error) {
	src, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	tris := src.world()
	vertices := make([]float32, 0, len(tris)*9)
	normals := make([]float32, 0, len(tris)*9)
	indices := make([]uint32, 0, len(tris)*3)

	for i, tri := range tris {
		n := r3.Cross(r3.Sub(tri[1], tri[0]), r3.Sub(tri[2], tri[0]))
		if r3.Norm(n) > 0 {
			n = r3.Unit(n)
		}
		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, float32(n.X), float32(n.Y), float32(n.Z))
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
