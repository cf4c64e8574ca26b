package geom

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Plane is an infinite plane through Origin with unit Normal.
type Plane struct {
	Origin r3.Vec
	Normal r3.Vec
}

// Distance returns the signed distance from p to the plane.
func (pl Plane) Distance(p r3.Vec) float64 {
	return r3.Dot(r3.Sub(p, pl.Origin), pl.Normal)
}

// FitPlane finds the least-squares plane through points and reports whether
// every point lies within tolerance of it. Fewer than three points, or points
// that are all collinear, do not define a plane.
//
// The origin of the result is the centroid of the points. The normal is
// oriented to agree with hint; with a zero hint its largest component is
// made positive.
func FitPlane(points []r3.Vec, tolerance float64, hint r3.Vec) (Plane, bool) {
	if len(points) < 3 {
		return Plane{}, false
	}

	var c r3.Vec
	for _, p := range points {
		c = r3.Add(c, p)
	}
	c = r3.Scale(1/float64(len(points)), c)

	a := mat.NewDense(len(points), 3, nil)
	for i, p := range points {
		d := r3.Sub(p, c)
		a.Set(i, 0, d.X)
		a.Set(i, 1, d.Y)
		a.Set(i, 2, d.Z)
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return Plane{}, false
	}
	vals := svd.Values(nil)
	if len(vals) < 3 || vals[1] <= Resolution*math.Max(1, vals[0]) {
		// Coincident or collinear points.
		return Plane{}, false
	}

	var v mat.Dense
	svd.VTo(&v)
	n := r3.Unit(r3.Vec{X: v.At(0, 2), Y: v.At(1, 2), Z: v.At(2, 2)})

	if r3.Norm(hint) > Resolution {
		if r3.Dot(n, hint) < 0 {
			n = r3.Scale(-1, n)
		}
	} else if dominant(n) < 0 {
		n = r3.Scale(-1, n)
	}

	pl := Plane{Origin: c, Normal: n}
	for _, p := range points {
		if math.Abs(pl.Distance(p)) > tolerance {
			return Plane{}, false
		}
	}
	return pl, true
}

// dominant returns the component of v with the largest magnitude.
func dominant(v r3.Vec) float64 {
	d := v.X
	if math.Abs(v.Y) > math.Abs(d) {
		d = v.Y
	}
	if math.Abs(v.Z) > math.Abs(d) {
		d = v.Z
	}
	return d
}
