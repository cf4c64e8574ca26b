package geom

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestFitPlane(t *testing.T) {
	square := []r3.Vec{
		{X: 0, Y: 0, Z: 2},
		{X: 4, Y: 0, Z: 2},
		{X: 4, Y: 4, Z: 2},
		{X: 0, Y: 4, Z: 2},
	}

	tests := []struct {
		name       string
		points     []r3.Vec
		tolerance  float64
		hint       r3.Vec
		wantFound  bool
		wantNormal r3.Vec
	}{
		{"square at z=2", square, 1e-6, r3.Vec{}, true, r3.Vec{Z: 1}},
		{"square with downward hint", square, 1e-6, r3.Vec{Z: -3}, true, r3.Vec{Z: -1}},
		{"too few points", square[:2], 1e-6, r3.Vec{}, false, r3.Vec{}},
		{"collinear", []r3.Vec{{X: 0}, {X: 1}, {X: 2}, {X: 5}}, 1e-6, r3.Vec{}, false, r3.Vec{}},
		{"coincident", []r3.Vec{{X: 1}, {X: 1}, {X: 1}}, 1e-6, r3.Vec{}, false, r3.Vec{}},
		{
			"bent beyond tolerance",
			append(append([]r3.Vec{}, square...), r3.Vec{X: 2, Y: 2, Z: 2.5}),
			1e-6, r3.Vec{}, false, r3.Vec{},
		},
		{
			"bent within tolerance",
			append(append([]r3.Vec{}, square...), r3.Vec{X: 2, Y: 2, Z: 2.01}),
			0.1, r3.Vec{}, true, r3.Vec{Z: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pl, found := FitPlane(tt.points, tt.tolerance, tt.hint)
			if found != tt.wantFound {
				t.Fatalf("FitPlane() found = %v, want %v", found, tt.wantFound)
			}
			if !found {
				return
			}
			if math.Abs(r3.Dot(pl.Normal, tt.wantNormal)-1) > 1e-6 {
				t.Errorf("normal = %v, want %v", pl.Normal, tt.wantNormal)
			}
		})
	}
}

func TestFitPlaneOriginIsCentroid(t *testing.T) {
	pts := []r3.Vec{{X: 0, Y: 0, Z: 1}, {X: 3, Y: 0, Z: 1}, {X: 0, Y: 3, Z: 1}}
	pl, found := FitPlane(pts, 1e-9, r3.Vec{})
	if !found {
		t.Fatal("FitPlane() found = false, want true")
	}
	if !vecNear(pl.Origin, r3.Vec{X: 1, Y: 1, Z: 1}) {
		t.Errorf("origin = %v, want {1 1 1}", pl.Origin)
	}
	for _, p := range pts {
		if d := pl.Distance(p); math.Abs(d) > 1e-9 {
			t.Errorf("Distance(%v) = %v, want 0", p, d)
		}
	}
}

func TestBox(t *testing.T) {
	b := EmptyBox()
	if !b.IsVoid() {
		t.Fatal("EmptyBox() should be void")
	}
	b.Add(r3.Vec{X: 1, Y: -2, Z: 3})
	b.Add(r3.Vec{X: -1, Y: 2, Z: 0})
	if b.IsVoid() {
		t.Fatal("box with points should not be void")
	}
	want := [6]float64{-1, -2, 0, 1, 2, 3}
	if got := b.Array(); got != want {
		t.Errorf("Array() = %v, want %v", got, want)
	}
	if got := b.Enlarge(0.5).Array(); got != [6]float64{-1.5, -2.5, -0.5, 1.5, 2.5, 3.5} {
		t.Errorf("Enlarge(0.5).Array() = %v", got)
	}
	if !vecNear(b.Center(), r3.Vec{X: 0, Y: 0, Z: 1.5}) {
		t.Errorf("Center() = %v", b.Center())
	}
	if !b.IsFinite() || EmptyBox().IsFinite() {
		t.Error("IsFinite() mismatch")
	}
}

func TestBoxTransformed(t *testing.T) {
	b := Box{Min: r3.Vec{}, Max: r3.Vec{X: 2, Y: 1, Z: 1}}
	ax, err := NewAxis(r3.Vec{}, r3.Vec{Z: 1})
	if err != nil {
		t.Fatal(err)
	}
	got := b.Transformed(Rotation(ax, math.Pi/2))
	want := Box{Min: r3.Vec{X: -1, Y: 0, Z: 0}, Max: r3.Vec{X: 0, Y: 2, Z: 1}}
	if !vecNear(got.Min, want.Min) || !vecNear(got.Max, want.Max) {
		t.Errorf("Transformed() = %v, want %v", got, want)
	}
}
