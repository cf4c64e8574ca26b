package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Dir is a unit direction. The zero value is invalid; build one with NewDir.
type Dir struct {
	v r3.Vec
}

// NewDir normalises v. A vector shorter than Resolution has no direction
// and is rejected.
func NewDir(v r3.Vec) (Dir, error) {
	n := r3.Norm(v)
	if n <= Resolution || math.IsNaN(n) {
		return Dir{}, fmt.Errorf("%w: zero-length direction %v", ErrConstruction, v)
	}
	return Dir{v: r3.Scale(1/n, v)}, nil
}

// Vec returns the unit vector.
func (d Dir) Vec() r3.Vec { return d.v }

// Axis is a located direction: a point and a unit vector.
type Axis struct {
	Origin r3.Vec
	Dir    Dir
}

// NewAxis builds an axis through p directed along v.
func NewAxis(p, v r3.Vec) (Axis, error) {
	d, err := NewDir(v)
	if err != nil {
		return Axis{}, fmt.Errorf("axis: %w", err)
	}
	return Axis{Origin: p, Dir: d}, nil
}

// Vec3 converts a coordinate triple into an r3.Vec.
func Vec3(a [3]float64) r3.Vec {
	return r3.Vec{X: a[0], Y: a[1], Z: a[2]}
}

// Array converts v back into a coordinate triple.
func Array(v r3.Vec) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}
