// Package model holds the named objects a script builds. Each Object owns
// exactly one kernel shape and is the owner a facade operates on.
package model

import (
	"errors"
	"fmt"

	"github.com/chazu/brepfacade/pkg/kernel"
)

// ErrDuplicateName is returned when an object name is already taken.
var ErrDuplicateName = errors.New("duplicate object name")

// Kind records how an object's shape was first built.
type Kind int

const (
	KindSolid Kind = iota // primitive or boolean result
	KindFace              // planar face
)

func (k Kind) String() string {
	switch k {
	case KindSolid:
		return "solid"
	case KindFace:
		return "face"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Object is a named modeling object owning one shape.
type Object struct {
	Name string
	Kind Kind

	shape   kernel.Shape
	version uint64
}

// Shape returns the owned shape.
func (o *Object) Shape() kernel.Shape { return o.shape }

// SetShape replaces the owned shape and bumps the version.
func (o *Object) SetShape(s kernel.Shape) {
	o.shape = s
	o.version++
}

// Version counts the shape replacements since the object was created.
func (o *Object) Version() uint64 { return o.version }

// Model is an ordered, name-indexed set of objects. It is produced by a
// single evaluation and is not safe for concurrent mutation.
type Model struct {
	objects []*Object
	index   map[string]*Object
}

// New creates an empty Model.
func New() *Model {
	return &Model{index: make(map[string]*Object)}
}

// Add registers a new object. Names must be non-empty and unique.
func (m *Model) Add(name string, kind Kind, s kernel.Shape) (*Object, error) {
	if name == "" {
		return nil, errors.New("object name must not be empty")
	}
	if _, ok := m.index[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	o := &Object{Name: name, Kind: kind, shape: s}
	m.objects = append(m.objects, o)
	m.index[name] = o
	return o, nil
}

// Lookup returns the object with the given name, or nil.
func (m *Model) Lookup(name string) *Object {
	return m.index[name]
}

// Objects returns the objects in creation order.
func (m *Model) Objects() []*Object {
	out := make([]*Object, len(m.objects))
	copy(out, m.objects)
	return out
}

// Len returns the number of objects.
func (m *Model) Len() int {
	return len(m.objects)
}
