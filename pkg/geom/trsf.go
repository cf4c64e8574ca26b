// Package geom holds the value types the geometry kernels exchange with the
// facade: affine transforms, directions, axes, boxes and planes. Points and
// vectors are gonum r3.Vec values.
package geom

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Resolution is the magnitude below which a vector, scale factor or
// determinant is treated as zero.
const Resolution = 1e-12

// ErrConstruction is returned when a geometric value cannot be built from
// its inputs (zero direction, singular matrix, null scale factor).
var ErrConstruction = errors.New("geom: construction error")

// Trsf is an affine transformation of 3D space: a 3x3 linear block followed
// by a translation. The zero value is not the identity; use Identity.
type Trsf struct {
	m [3][3]float64
	t r3.Vec
}

// Identity returns the identity transform.
func Identity() Trsf {
	return Trsf{m: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
}

// FromValues builds a transform from a row-major 3x4 matrix:
//
//	[ v0 v1 v2  v3 ]
//	[ v4 v5 v6  v7 ]
//	[ v8 v9 v10 v11]
//
// The last column is the translation.
func FromValues(v [12]float64) (Trsf, error) {
	t := Trsf{
		m: [3][3]float64{
			{v[0], v[1], v[2]},
			{v[4], v[5], v[6]},
			{v[8], v[9], v[10]},
		},
		t: r3.Vec{X: v[3], Y: v[7], Z: v[11]},
	}
	if d := t.Det(); math.Abs(d) <= Resolution || math.IsNaN(d) {
		return Trsf{}, fmt.Errorf("%w: singular matrix (det=%g)", ErrConstruction, d)
	}
	return t, nil
}

// Translation returns a pure translation by v.
func Translation(v r3.Vec) Trsf {
	t := Identity()
	t.t = v
	return t
}

// Rotation returns a rotation of angle radians about the axis, following
// the right-hand rule.
func Rotation(ax Axis, angle float64) Trsf {
	k := ax.Dir.Vec()
	c, s := math.Cos(angle), math.Sin(angle)
	ic := 1 - c
	r := Trsf{m: [3][3]float64{
		{c + k.X*k.X*ic, k.X*k.Y*ic - k.Z*s, k.X*k.Z*ic + k.Y*s},
		{k.Y*k.X*ic + k.Z*s, c + k.Y*k.Y*ic, k.Y*k.Z*ic - k.X*s},
		{k.Z*k.X*ic - k.Y*s, k.Z*k.Y*ic + k.X*s, c + k.Z*k.Z*ic},
	}}
	r.t = r3.Sub(ax.Origin, r.ApplyVector(ax.Origin))
	return r
}

// Scaling returns a uniform scale by s about the point p.
func Scaling(p r3.Vec, s float64) (Trsf, error) {
	if math.Abs(s) <= Resolution {
		return Trsf{}, fmt.Errorf("%w: null scale factor", ErrConstruction)
	}
	return Trsf{
		m: [3][3]float64{{s, 0, 0}, {0, s, 0}, {0, 0, s}},
		t: r3.Scale(1-s, p),
	}, nil
}

// Mirror returns the reflection in the plane through p with normal n.
func Mirror(p r3.Vec, n Dir) Trsf {
	u := n.Vec()
	r := Trsf{m: [3][3]float64{
		{1 - 2*u.X*u.X, -2 * u.X * u.Y, -2 * u.X * u.Z},
		{-2 * u.Y * u.X, 1 - 2*u.Y*u.Y, -2 * u.Y * u.Z},
		{-2 * u.Z * u.X, -2 * u.Z * u.Y, 1 - 2*u.Z*u.Z},
	}}
	r.t = r3.Scale(2*r3.Dot(p, u), u)
	return r
}

// Multiply returns the composition t * o: o is applied first, then t.
func (t Trsf) Multiply(o Trsf) Trsf {
	var out Trsf
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.m[i][j] = t.m[i][0]*o.m[0][j] + t.m[i][1]*o.m[1][j] + t.m[i][2]*o.m[2][j]
		}
	}
	out.t = r3.Add(t.ApplyVector(o.t), t.t)
	return out
}

// Apply transforms the point p.
func (t Trsf) Apply(p r3.Vec) r3.Vec {
	return r3.Add(t.ApplyVector(p), t.t)
}

// ApplyVector transforms the vector v, ignoring the translation part.
func (t Trsf) ApplyVector(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: t.m[0][0]*v.X + t.m[0][1]*v.Y + t.m[0][2]*v.Z,
		Y: t.m[1][0]*v.X + t.m[1][1]*v.Y + t.m[1][2]*v.Z,
		Z: t.m[2][0]*v.X + t.m[2][1]*v.Y + t.m[2][2]*v.Z,
	}
}

// Rebase expresses t, given in world coordinates, in the frame placed by
// loc: loc⁻¹ * t * loc. Applying the result before loc equals applying loc
// and then t.
func Rebase(t, loc Trsf) (Trsf, error) {
	inv, err := loc.Inverse()
	if err != nil {
		return Trsf{}, err
	}
	return inv.Multiply(t).Multiply(loc), nil
}

// Det returns the determinant of the linear block.
func (t Trsf) Det() float64 {
	m := t.m
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// Inverse returns the inverse transform.
func (t Trsf) Inverse() (Trsf, error) {
	d := t.Det()
	if math.Abs(d) <= Resolution {
		return Trsf{}, fmt.Errorf("%w: transform is not invertible", ErrConstruction)
	}
	m := t.m
	var inv Trsf
	inv.m[0][0] = (m[1][1]*m[2][2] - m[1][2]*m[2][1]) / d
	inv.m[0][1] = (m[0][2]*m[2][1] - m[0][1]*m[2][2]) / d
	inv.m[0][2] = (m[0][1]*m[1][2] - m[0][2]*m[1][1]) / d
	inv.m[1][0] = (m[1][2]*m[2][0] - m[1][0]*m[2][2]) / d
	inv.m[1][1] = (m[0][0]*m[2][2] - m[0][2]*m[2][0]) / d
	inv.m[1][2] = (m[0][2]*m[1][0] - m[0][0]*m[1][2]) / d
	inv.m[2][0] = (m[1][0]*m[2][1] - m[1][1]*m[2][0]) / d
	inv.m[2][1] = (m[0][1]*m[2][0] - m[0][0]*m[2][1]) / d
	inv.m[2][2] = (m[0][0]*m[1][1] - m[0][1]*m[1][0]) / d
	inv.t = r3.Scale(-1, inv.ApplyVector(t.t))
	return inv, nil
}

// Values returns the transform as a row-major 3x4 matrix, the layout
// accepted by FromValues.
func (t Trsf) Values() [12]float64 {
	m := t.m
	return [12]float64{
		m[0][0], m[0][1], m[0][2], t.t.X,
		m[1][0], m[1][1], m[1][2], t.t.Y,
		m[2][0], m[2][1], m[2][2], t.t.Z,
	}
}

// IsIdentity reports whether t is the identity within Resolution.
func (t Trsf) IsIdentity() bool {
	return t.Equal(Identity(), Resolution)
}

// IsOrthogonal reports whether the linear block is a rotation or a
// reflection, i.e. the transform preserves lengths.
func (t Trsf) IsOrthogonal(tol float64) bool {
	m := t.m
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			dot := m[0][i]*m[0][j] + m[1][i]*m[1][j] + m[2][i]*m[2][j]
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(dot-want) > tol {
				return false
			}
		}
	}
	return true
}

// Equal reports whether every coefficient of t and o differs by at most tol.
func (t Trsf) Equal(o Trsf, tol float64) bool {
	a, b := t.Values(), o.Values()
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

func (t Trsf) String() string {
	v := t.Values()
	return fmt.Sprintf("[%g %g %g %g; %g %g %g %g; %g %g %g %g]",
		v[0], v[1], v[2], v[3], v[4], v[5], v[6], v[7], v[8], v[9], v[10], v[11])
}
