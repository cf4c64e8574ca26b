// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/brepfacade/pkg/geom"
	"github.com/chazu/brepfacade/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Compile-time interface checks.
var _ kernel.Kernel = (*SdfxKernel)(nil)
var _ kernel.Booleans = (*SdfxKernel)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution.
const DefaultMeshCells = 200

// orthoTol decides whether a transform stays a placement.
const orthoTol = 1e-9

// sdfxSolid wraps an sdf.SDF3 and its placement to implement kernel.Shape.
type sdfxSolid struct {
	s   sdf.SDF3
	loc geom.Trsf
}

// Location returns the placement of the solid.
func (s *sdfxSolid) Location() geom.Trsf {
	return s.loc
}

// placed returns the SDF with the placement applied.
func (s *sdfxSolid) placed() (sdf.SDF3, error) {
	if s.loc.IsIdentity() {
		return s.s, nil
	}
	return transformSDF(s.s, s.loc)
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
}

// New returns a new SdfxKernel with the default mesh resolution.
func New() *SdfxKernel {
	return &SdfxKernel{cells: DefaultMeshCells}
}

// NewWithCells returns an SdfxKernel tessellating with the given number of
// marching cubes cells along the longest axis.
func NewWithCells(cells int) *SdfxKernel {
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	return &SdfxKernel{cells: cells}
}

// Name returns "sdfx".
func (k *SdfxKernel) Name() string { return "sdfx" }

func failure(format string, args ...any) error {
	return fmt.Errorf("%w: sdfx: %s", kernel.ErrFailure, fmt.Sprintf(format, args...))
}

// unwrap extracts the sdfxSolid behind a kernel.Shape.
func unwrap(s kernel.Shape) (*sdfxSolid, error) {
	ss, ok := s.(*sdfxSolid)
	if !ok || ss == nil {
		return nil, failure("shape %T was not built by this kernel", s)
	}
	return ss, nil
}

// world returns the placed SDF of a shape.
func world(s kernel.Shape) (sdf.SDF3, error) {
	ss, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	return ss.placed()
}

// wrap creates a kernel.Shape from an sdf.SDF3 with identity placement.
func wrap(s sdf.SDF3) kernel.Shape {
	return &sdfxSolid{s: s, loc: geom.Identity()}
}

// Box creates a box with the given dimensions. The resulting solid has its
// minimum corner at the origin (0,0,0) so that placement translations work
// intuitively. sdf.Box3D centers the box at the origin, so we translate by
// half-dimensions.
func (k *SdfxKernel) Box(x, y, z float64) (kernel.Shape, error) {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		return nil, failure("Box3D: %v", err)
	}
	// Shift from center-origin to min-corner-origin.
	m := sdf.Translate3d(v3.Vec{X: x / 2, Y: y / 2, Z: z / 2})
	return wrap(sdf.Transform3D(s, m)), nil
}

// Cylinder creates a cylinder with the given height and radius.
// The segments parameter is ignored since SDF represents smooth surfaces.
func (k *SdfxKernel) Cylinder(height, radius float64, segments int) (kernel.Shape, error) {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, failure("Cylinder3D: %v", err)
	}
	return wrap(s), nil
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Shape) (kernel.Shape, error) {
	sa, sb, err := pair(a, b)
	if err != nil {
		return nil, err
	}
	return wrap(sdf.Union3D(sa, sb)), nil
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Shape) (kernel.Shape, error) {
	sa, sb, err := pair(a, b)
	if err != nil {
		return nil, err
	}
	return wrap(sdf.Difference3D(sa, sb)), nil
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b kernel.Shape) (kernel.Shape, error) {
	sa, sb, err := pair(a, b)
	if err != nil {
		return nil, err
	}
	return wrap(sdf.Intersect3D(sa, sb)), nil
}

func pair(a, b kernel.Shape) (sdf.SDF3, sdf.SDF3, error) {
	sa, err := world(a)
	if err != nil {
		return nil, nil, err
	}
	sb, err := world(b)
	if err != nil {
		return nil, nil, err
	}
	return sa, sb, nil
}

// Transform places s under t. An orthogonal t with copy unset only moves the
// placement; anything else produces a new SDF with the transform baked in.
func (k *SdfxKernel) Transform(s kernel.Shape, t geom.Trsf, copy bool) (kernel.Shape, error) {
	src, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	if !copy && t.IsOrthogonal(orthoTol) {
		return &sdfxSolid{s: src.s, loc: t.Multiply(src.loc)}, nil
	}
	return bake(src, t)
}

// GTransform bakes an arbitrary affine t into a new SDF.
func (k *SdfxKernel) GTransform(s kernel.Shape, t geom.Trsf, _ bool) (kernel.Shape, error) {
	src, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	return bake(src, t)
}

// bake wraps the local SDF in loc⁻¹ * t * loc and keeps the placement, so
// the placed result is t applied to the placed source.
func bake(src *sdfxSolid, t geom.Trsf) (kernel.Shape, error) {
	local, err := geom.Rebase(t, src.loc)
	if err != nil {
		return nil, failure("placement is not invertible: %v", err)
	}
	out, err := transformSDF(src.s, local)
	if err != nil {
		return nil, err
	}
	return &sdfxSolid{s: out, loc: src.loc}, nil
}

// Validate checks that the placed solid has a finite, non-empty bounding box.
func (k *SdfxKernel) Validate(s kernel.Shape) error {
	w, err := world(s)
	if err != nil {
		return err
	}
	b := toBox(w.BoundingBox())
	if !b.IsFinite() || b.IsVoid() {
		return failure("invalid bounding box %v", b.Array())
	}
	return nil
}

// BoundingBox returns the axis-aligned bounding box enlarged by gap.
func (k *SdfxKernel) BoundingBox(s kernel.Shape, gap float64) (geom.Box, error) {
	w, err := world(s)
	if err != nil {
		return geom.Box{}, err
	}
	b := toBox(w.BoundingBox())
	if b.IsVoid() || !b.IsFinite() {
		return geom.Box{}, failure("bounding box is void")
	}
	return b.Enlarge(gap), nil
}

// FindPlane fits a plane through the tessellated surface. A closed SDF solid
// never lies in one plane, so this mostly reports not found; it is kept for
// parity with the other backends.
func (k *SdfxKernel) FindPlane(s kernel.Shape, tolerance float64) (geom.Plane, bool, error) {
	mesh, err := k.ToMesh(s)
	if err != nil {
		return geom.Plane{}, false, err
	}
	var hint r3.Vec
	for i := 0; i < mesh.TriangleCount(); i++ {
		hint = r3.Add(hint, mesh.FaceNormal(i))
	}
	pl, found := geom.FitPlane(mesh.Points(), tolerance, hint)
	return pl, found, nil
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Shape) (*kernel.Mesh, error) {
	sdf3, err := world(s)
	if err != nil {
		return nil, err
	}

	renderer := render.NewMarchingCubesUniform(k.cells)
	triangles := render.ToTriangles(sdf3, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		// Compute face normal.
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}

// toBox converts an sdf.Box3 to a geom.Box.
func toBox(b sdf.Box3) geom.Box {
	return geom.Box{
		Min: r3.Vec{X: b.Min.X, Y: b.Min.Y, Z: b.Min.Z},
		Max: r3.Vec{X: b.Max.X, Y: b.Max.Y, Z: b.Max.Z},
	}
}

// placedSDF3 evaluates an SDF3 under an arbitrary affine transform. The
// distance is pulled back through the inverse transform and rescaled by the
// smallest stretch factor, which keeps it a lower bound for non-uniform
// scales.
type placedSDF3 struct {
	s     sdf.SDF3
	inv   geom.Trsf
	scale float64
	bb    sdf.Box3
}

// transformSDF returns s under t, failing when t is singular.
func transformSDF(s sdf.SDF3, t geom.Trsf) (sdf.SDF3, error) {
	inv, err := t.Inverse()
	if err != nil {
		return nil, failure("transform collapses the shape: %v", err)
	}
	src := toBox(s.BoundingBox())
	bb := src.Transformed(t)
	return &placedSDF3{
		s:     s,
		inv:   inv,
		scale: minStretch(t),
		bb: sdf.Box3{
			Min: v3.Vec{X: bb.Min.X, Y: bb.Min.Y, Z: bb.Min.Z},
			Max: v3.Vec{X: bb.Max.X, Y: bb.Max.Y, Z: bb.Max.Z},
		},
	}, nil
}

// Evaluate returns the distance to the transformed surface at p.
func (p *placedSDF3) Evaluate(q v3.Vec) float64 {
	l := p.inv.Apply(r3.Vec{X: q.X, Y: q.Y, Z: q.Z})
	return p.s.Evaluate(v3.Vec{X: l.X, Y: l.Y, Z: l.Z}) * p.scale
}

// BoundingBox returns the transformed bounding box.
func (p *placedSDF3) BoundingBox() sdf.Box3 {
	return p.bb
}

// minStretch returns the smallest factor by which t stretches a unit
// vector along the coordinate axes, a cheap bound that is exact for
// similarity transforms.
func minStretch(t geom.Trsf) float64 {
	m := math.Inf(1)
	for _, e := range []r3.Vec{{X: 1}, {Y: 1}, {Z: 1}} {
		m = math.Min(m, r3.Norm(t.ApplyVector(e)))
	}
	return m
}
