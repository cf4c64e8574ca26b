package model

import (
	"errors"
	"testing"

	"github.com/chazu/brepfacade/pkg/geom"
	"github.com/chazu/brepfacade/pkg/kernel"
	"github.com/chazu/brepfacade/pkg/kernel/trimesh"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestNewModel(t *testing.T) {
	m := New()
	if m.Len() != 0 {
		t.Errorf("empty model should have 0 objects, got %d", m.Len())
	}
	if m.Lookup("anything") != nil {
		t.Error("Lookup on empty model should return nil")
	}
}

func TestAddAndLookup(t *testing.T) {
	k := trimesh.New()
	s, err := k.Box(1, 2, 3)
	if err != nil {
		t.Fatal(err)
	}

	m := New()
	o, err := m.Add("base", KindSolid, s)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if got := m.Lookup("base"); got != o {
		t.Errorf("Lookup(base) = %v, want %v", got, o)
	}
	if o.Shape() != s {
		t.Error("object should own the shape it was created with")
	}
	if o.Version() != 0 {
		t.Errorf("new object version = %d, want 0", o.Version())
	}
}

func TestAddRejectsDuplicatesAndEmptyNames(t *testing.T) {
	m := New()
	if _, err := m.Add("a", KindSolid, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Add("a", KindFace, nil); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("Add(duplicate) error = %v, want ErrDuplicateName", err)
	}
	if _, err := m.Add("", KindSolid, nil); err == nil {
		t.Error("Add(\"\") should fail")
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestObjectsKeepsOrder(t *testing.T) {
	m := New()
	names := []string{"c", "a", "b"}
	for _, n := range names {
		if _, err := m.Add(n, KindSolid, nil); err != nil {
			t.Fatal(err)
		}
	}
	objs := m.Objects()
	for i, o := range objs {
		if o.Name != names[i] {
			t.Errorf("Objects()[%d] = %q, want %q", i, o.Name, names[i])
		}
	}
	// The returned slice is a copy.
	objs[0] = nil
	if m.Objects()[0] == nil {
		t.Error("mutating Objects() result should not affect the model")
	}
}

func TestSetShapeBumpsVersion(t *testing.T) {
	m := New()
	o, _ := m.Add("x", KindSolid, nil)
	k := trimesh.New()
	s, _ := k.Box(1, 1, 1)
	o.SetShape(s)
	o.SetShape(s)
	if o.Version() != 2 {
		t.Errorf("Version() = %d, want 2", o.Version())
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		k    Kind
		want string
	}{
		{KindSolid, "solid"},
		{KindFace, "face"},
		{Kind(9), "Kind(9)"},
	}
	for _, tt := range tests {
		if got := tt.k.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(tt.k), got, tt.want)
		}
	}
}

// flatKernel reports every shape as a flat box in Z.
type flatKernel struct {
	kernel.Kernel
}

func (flatKernel) Validate(kernel.Shape) error { return nil }

func (flatKernel) BoundingBox(kernel.Shape, float64) (geom.Box, error) {
	return geom.Box{Max: r3.Vec{X: 1, Y: 1}}, nil
}

func TestValidate(t *testing.T) {
	k := trimesh.New()
	box, _ := k.Box(1, 1, 1)
	face, err := k.Face([][3]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}})
	if err != nil {
		t.Fatal(err)
	}

	m := New()
	m.Add("box", KindSolid, box)
	m.Add("face", KindFace, face)
	if errs := Validate(m, k); len(errs) != 0 {
		t.Fatalf("Validate() = %v, want no findings", errs)
	}

	m.Add("empty", KindSolid, nil)
	errs := Validate(m, k)
	if len(errs) != 1 || errs[0].Object != "empty" || errs[0].Severity != SeverityError {
		t.Fatalf("Validate() = %v, want one error for \"empty\"", errs)
	}
	if !HasErrors(errs) {
		t.Error("HasErrors() = false, want true")
	}
}

func TestValidateFlatSolidWarns(t *testing.T) {
	m := New()
	m.Add("sheet", KindSolid, &struct{ kernel.Shape }{})
	errs := Validate(m, flatKernel{})
	if len(errs) != 1 || errs[0].Severity != SeverityWarning {
		t.Fatalf("Validate() = %v, want one warning", errs)
	}
	if HasErrors(errs) {
		t.Error("warnings alone should not count as errors")
	}
}
