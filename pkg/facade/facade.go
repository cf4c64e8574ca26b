// Package facade exposes a kernel's transformation and measurement
// primitives on a single owned shape.
//
// Every mutating operation follows the same sequence: read the owner's
// shape, compose the new transform with its placement, let the kernel build
// and validate the result, then hand it back to the owner. Nothing is
// written back unless every step succeeds, so a failed call leaves the
// owner exactly as it was.
//
// A Facade performs no locking. Callers that share an owner between
// goroutines must serialise access themselves.
package facade

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/chazu/brepfacade/pkg/geom"
	"github.com/chazu/brepfacade/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// DefaultPlaneTolerance is the usual tolerance for FindPlane.
	DefaultPlaneTolerance = 1e-6

	// DefaultBoundingBoxGap is the usual gap for BoundingBox.
	DefaultBoundingBoxGap = 1e-12

	// generalPathThreshold selects the general transform path in Transform.
	generalPathThreshold = 1e-6
)

// Owner holds the shape a Facade operates on.
type Owner interface {
	Shape() kernel.Shape
	SetShape(kernel.Shape)
}

// Observer is notified once per facade operation with its outcome.
type Observer interface {
	Observe(op string, err error)
}

// Facade drives a kernel on behalf of an Owner.
type Facade struct {
	owner  Owner
	k      kernel.Kernel
	logger *log.Logger
	obs    Observer
}

// Option configures a Facade.
type Option func(*Facade)

// WithLogger sets the logger failures are reported to.
func WithLogger(l *log.Logger) Option {
	return func(f *Facade) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithObserver registers an observer for operation outcomes.
func WithObserver(o Observer) Option {
	return func(f *Facade) { f.obs = o }
}

// New returns a Facade operating on owner's shape through k.
func New(owner Owner, k kernel.Kernel, opts ...Option) *Facade {
	f := &Facade{
		owner:  owner,
		k:      k,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// UsesGeneralPath reports whether Transform sends m to the kernel's general
// (non-uniform) path. Only the product of the diagonal is inspected and only
// a product above one by more than the threshold counts, so shrinking or
// off-diagonal transforms go down the rigid path.
func UsesGeneralPath(m [12]float64) bool {
	return m[0]*m[5]*m[10]-1.0 > generalPathThreshold
}

// Transform applies the row-major 3x4 matrix m to the shape. Unlike the
// other mutating operations it does not rebase m onto the shape's
// placement.
func (f *Facade) Transform(m [12]float64) error {
	return f.mutate("transform", func(s kernel.Shape) (kernel.Shape, error) {
		t, err := geom.FromValues(m)
		if err != nil {
			return nil, err
		}
		if UsesGeneralPath(m) {
			return f.k.GTransform(s, t, false)
		}
		return f.k.Transform(s, t, false)
	})
}

// Translate moves the shape by delta, expressed in the shape's placed frame.
func (f *Facade) Translate(delta [3]float64) error {
	return f.mutate("translate", func(s kernel.Shape) (kernel.Shape, error) {
		return f.composed(s, geom.Translation(geom.Vec3(delta)), false)
	})
}

// Rotate turns the shape by angle radians about the axis through p1 towards
// p2. Passing p1 == p2 leaves the axis undefined and the call fails; callers
// are expected to avoid it.
func (f *Facade) Rotate(p1, p2 [3]float64, angle float64) error {
	return f.mutate("rotate", func(s kernel.Shape) (kernel.Shape, error) {
		origin := geom.Vec3(p1)
		ax, err := geom.NewAxis(origin, r3.Sub(geom.Vec3(p2), origin))
		if err != nil {
			return nil, err
		}
		return f.composed(s, geom.Rotation(ax, angle), false)
	})
}

// Scale scales the shape uniformly by factor about pnt. The kernel always
// rebuilds the geometry for a scale.
func (f *Facade) Scale(pnt [3]float64, factor float64) error {
	return f.mutate("scale", func(s kernel.Shape) (kernel.Shape, error) {
		t, err := geom.Scaling(geom.Vec3(pnt), factor)
		if err != nil {
			return nil, err
		}
		return f.composed(s, t, true)
	})
}

// Mirror reflects the shape in the plane through pnt with the given normal.
func (f *Facade) Mirror(pnt, normal [3]float64) error {
	return f.mutate("mirror", func(s kernel.Shape) (kernel.Shape, error) {
		n, err := geom.NewDir(geom.Vec3(normal))
		if err != nil {
			return nil, err
		}
		return f.composed(s, geom.Mirror(geom.Vec3(pnt), n), false)
	})
}

// FindPlane fits a plane to the shape within tolerance and writes its
// origin and unit normal to the given buffers. The buffers are written only
// when the call succeeds; a nil buffer is skipped.
func (f *Facade) FindPlane(origin, normal *[3]float64, tolerance float64) error {
	const op = "find-plane"
	s := f.owner.Shape()
	if s == nil {
		return f.done(op, ErrNoShape)
	}
	pl, found, err := f.k.FindPlane(s, tolerance)
	if err != nil {
		return f.done(op, err)
	}
	if !found {
		return f.done(op, ErrPlaneNotFound)
	}
	if origin != nil {
		*origin = geom.Array(pl.Origin)
	}
	if normal != nil {
		*normal = geom.Array(pl.Normal)
	}
	return f.done(op, nil)
}

// BoundingBox returns {xmin, ymin, zmin, xmax, ymax, zmax} of the shape
// enlarged by tolerance. Any failure yields the all-zero array, which is
// indistinguishable from a degenerate box at the origin; use Bounds when
// the difference matters.
func (f *Facade) BoundingBox(tolerance float64) [6]float64 {
	b, err := f.Bounds(tolerance)
	if err != nil {
		return [6]float64{}
	}
	return b.Array()
}

// Bounds is BoundingBox with the failure reported.
func (f *Facade) Bounds(tolerance float64) (geom.Box, error) {
	const op = "bounding-box"
	s := f.owner.Shape()
	if s == nil {
		return geom.Box{}, f.done(op, ErrNoShape)
	}
	b, err := f.k.BoundingBox(s, tolerance)
	if err != nil {
		return geom.Box{}, f.done(op, err)
	}
	return b, f.done(op, nil)
}

// composed asks the kernel for s under t, rebased so that the resulting
// placement is placement * t.
func (f *Facade) composed(s kernel.Shape, t geom.Trsf, copy bool) (kernel.Shape, error) {
	loc := s.Location()
	inv, err := loc.Inverse()
	if err != nil {
		return nil, fmt.Errorf("%w: placement is not invertible: %v", kernel.ErrFailure, err)
	}
	return f.k.Transform(s, loc.Multiply(t).Multiply(inv), copy)
}

// mutate runs build on the current shape, validates the result and stores
// it on the owner.
func (f *Facade) mutate(op string, build func(kernel.Shape) (kernel.Shape, error)) error {
	s := f.owner.Shape()
	if s == nil {
		return f.done(op, ErrNoShape)
	}
	out, err := build(s)
	if err != nil {
		return f.done(op, err)
	}
	if out == nil {
		return f.done(op, fmt.Errorf("%w: kernel returned no shape", kernel.ErrFailure))
	}
	if err := f.k.Validate(out); err != nil {
		return f.done(op, err)
	}
	f.owner.SetShape(out)
	return f.done(op, nil)
}

func (f *Facade) done(op string, err error) error {
	if f.obs != nil {
		f.obs.Observe(op, err)
	}
	if err == nil {
		return nil
	}
	f.logger.Debug("operation failed", "op", op, "kernel", f.k.Name(), "err", err)
	return &OpError{Op: op, Err: err}
}
