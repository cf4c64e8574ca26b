// Package kernel defines the abstract geometry kernel interface.
// Implementations (trimesh, sdfx, manifold) own every piece of geometry work:
// building transformed shapes, validating them, bounding boxes and plane
// fitting. The kernel abstraction allows swapping backends without changing
// the facade that drives them.
package kernel

import (
	"errors"

	"github.com/chazu/brepfacade/pkg/geom"
)

// ErrFailure is the single failure category a kernel reports. Backends wrap
// it with detail; callers test for it with errors.Is.
var ErrFailure = errors.New("kernel failure")

// Shape is an opaque handle to a kernel shape. Implementations wrap their
// internal representation together with a placement transform.
type Shape interface {
	// Location returns the placement attached to the shape.
	Location() geom.Trsf
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Name identifies the backend ("trimesh", "sdfx", "manifold").
	Name() string

	// Primitives
	Box(x, y, z float64) (Shape, error) // min corner at the origin
	Cylinder(height, radius float64, segments int) (Shape, error)

	// Transform builds the image of s under a rigid or uniformly scaling t.
	// With copy false and an orthogonal t the result shares geometry with s
	// and carries the placement t * s.Location(). Otherwise the local
	// geometry is rebuilt under geom.Rebase(t, s.Location()) and the
	// placement is kept. Either way the placed result is t applied to the
	// placed s.
	Transform(s Shape, t geom.Trsf, copy bool) (Shape, error)

	// GTransform builds the image of s under an arbitrary affine t
	// (non-uniform scale, shear). The local geometry is always rebuilt and
	// the placement kept, as for a baked Transform.
	GTransform(s Shape, t geom.Trsf, copy bool) (Shape, error)

	// Validate checks a freshly built shape.
	Validate(s Shape) error

	// BoundingBox returns the world-space box of s enlarged by gap.
	BoundingBox(s Shape, gap float64) (geom.Box, error)

	// FindPlane fits a single plane to s within tolerance.
	FindPlane(s Shape, tolerance float64) (geom.Plane, bool, error)

	// Mesh output
	ToMesh(s Shape) (*Mesh, error)
}

// Booleans is implemented by kernels that support boolean operations.
type Booleans interface {
	Union(a, b Shape) (Shape, error)
	Difference(a, b Shape) (Shape, error)
	Intersection(a, b Shape) (Shape, error)
}

// Faces is implemented by kernels that can build zero-thickness planar
// faces from a closed polygon.
type Faces interface {
	Face(points [][3]float64) (Shape, error)
}
