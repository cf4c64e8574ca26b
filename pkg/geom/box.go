package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Box is an axis-aligned bounding box. A void box contains no points; its
// Min is +Inf and its Max is -Inf on every axis.
type Box struct {
	Min, Max r3.Vec
}

// EmptyBox returns a void box ready to be grown with Add.
func EmptyBox() Box {
	inf := math.Inf(1)
	return Box{
		Min: r3.Vec{X: inf, Y: inf, Z: inf},
		Max: r3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
}

// Add grows the box to contain p.
func (b *Box) Add(p r3.Vec) {
	b.Min.X = math.Min(b.Min.X, p.X)
	b.Min.Y = math.Min(b.Min.Y, p.Y)
	b.Min.Z = math.Min(b.Min.Z, p.Z)
	b.Max.X = math.Max(b.Max.X, p.X)
	b.Max.Y = math.Max(b.Max.Y, p.Y)
	b.Max.Z = math.Max(b.Max.Z, p.Z)
}

// IsVoid reports whether the box contains no point.
func (b Box) IsVoid() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Enlarge returns the box grown by gap on every side.
func (b Box) Enlarge(gap float64) Box {
	g := r3.Vec{X: gap, Y: gap, Z: gap}
	return Box{Min: r3.Sub(b.Min, g), Max: r3.Add(b.Max, g)}
}

// Size returns the box extents.
func (b Box) Size() r3.Vec {
	return r3.Sub(b.Max, b.Min)
}

// Center returns the box midpoint.
func (b Box) Center() r3.Vec {
	return r3.Scale(0.5, r3.Add(b.Min, b.Max))
}

// Corners returns the eight box vertices.
func (b Box) Corners() [8]r3.Vec {
	return [8]r3.Vec{
		{X: b.Min.X, Y: b.Min.Y, Z: b.Min.Z},
		{X: b.Max.X, Y: b.Min.Y, Z: b.Min.Z},
		{X: b.Min.X, Y: b.Max.Y, Z: b.Min.Z},
		{X: b.Max.X, Y: b.Max.Y, Z: b.Min.Z},
		{X: b.Min.X, Y: b.Min.Y, Z: b.Max.Z},
		{X: b.Max.X, Y: b.Min.Y, Z: b.Max.Z},
		{X: b.Min.X, Y: b.Max.Y, Z: b.Max.Z},
		{X: b.Max.X, Y: b.Max.Y, Z: b.Max.Z},
	}
}

// Transformed returns the box enclosing the image of b under t.
func (b Box) Transformed(t Trsf) Box {
	out := EmptyBox()
	for _, c := range b.Corners() {
		out.Add(t.Apply(c))
	}
	return out
}

// Array returns the box as {xmin, ymin, zmin, xmax, ymax, zmax}.
func (b Box) Array() [6]float64 {
	return [6]float64{b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z}
}

// IsFinite reports whether every bound is a finite number.
func (b Box) IsFinite() bool {
	for _, v := range b.Array() {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}
	return true
}
