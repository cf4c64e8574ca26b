package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/brepfacade/pkg/facade"
	"github.com/chazu/brepfacade/pkg/kernel"
	"github.com/chazu/brepfacade/pkg/model"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Custom Sexp types
// ---------------------------------------------------------------------------

// sexpObject refers to a model object by name.
type sexpObject struct {
	name string
}

func (o *sexpObject) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(object %q)", o.name)
}
func (o *sexpObject) Type() *zygo.RegisteredType { return nil }

type sexpVec3 struct {
	vec [3]float64
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword arguments
// ---------------------------------------------------------------------------

// kwPrefix marks keyword names rewritten by preprocessSource.
const kwPrefix = "__kw_"

func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates keyword and positional arguments. A trailing keyword
// without a value maps to nil.
func parseArgs(args []zygo.Sexp) kwArgs {
	res := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			res.positional = append(res.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			res.kw[name] = args[i+1]
			i++
		} else {
			res.kw[name] = zygo.SexpNull
		}
	}
	return res
}

// ---------------------------------------------------------------------------
// Value conversion
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

func toVec3(s zygo.Sexp) ([3]float64, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return [3]float64{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a list or array to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

func floatList(vals []float64) zygo.Sexp {
	items := make([]zygo.Sexp, len(vals))
	for i, v := range vals {
		items[i] = &zygo.SexpFloat{Val: v}
	}
	return zygo.MakeList(items)
}

func status(err error) zygo.Sexp {
	return &zygo.SexpInt{Val: int64(facade.Status(err))}
}

// ---------------------------------------------------------------------------
// Session
// ---------------------------------------------------------------------------

// session is the state one evaluation's builtins share.
type session struct {
	e *Engine
	m *model.Model
}

type builtin = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)

// object resolves an object reference or name.
func (s *session) object(arg zygo.Sexp) (*model.Object, error) {
	var name string
	switch v := arg.(type) {
	case *sexpObject:
		name = v.name
	case *zygo.SexpStr:
		name = v.S
	default:
		return nil, fmt.Errorf("expected object, got %T (%s)", arg, arg.SexpString(nil))
	}
	o := s.m.Lookup(name)
	if o == nil {
		return nil, fmt.Errorf("no object named %q", name)
	}
	return o, nil
}

func (s *session) add(name string, kind model.Kind, shape kernel.Shape) (zygo.Sexp, error) {
	if _, err := s.m.Add(name, kind, shape); err != nil {
		return zygo.SexpNull, err
	}
	return &sexpObject{name: name}, nil
}

// positional checks the positional argument count and names the builtin in
// the error.
func positional(fn string, pa kwArgs, want int, usage string) error {
	if len(pa.positional) != want {
		return fmt.Errorf("%s: expected %s, got %d arguments", fn, usage, len(pa.positional))
	}
	return nil
}

func floats(fn string, args []zygo.Sexp, names ...string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, n := range names {
		f, err := toFloat64(args[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", fn, n, err)
		}
		out[i] = f
	}
	return out, nil
}

func vecs(fn string, args []zygo.Sexp, names ...string) ([][3]float64, error) {
	out := make([][3]float64, len(names))
	for i, n := range names {
		v, err := toVec3(args[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", fn, n, err)
		}
		out[i] = v
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// (vec3 1 2 3)
func (s *session) vec3(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 3 {
		return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
	}
	f, err := floats("vec3", args, "x", "y", "z")
	if err != nil {
		return zygo.SexpNull, err
	}
	return &sexpVec3{vec: [3]float64{f[0], f[1], f[2]}}, nil
}

// (object "name")
func (s *session) lookup(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 1 {
		return zygo.SexpNull, fmt.Errorf("object requires a name argument")
	}
	o, err := s.object(args[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("object: %w", err)
	}
	return &sexpObject{name: o.Name}, nil
}

// (box "name" x y z)
func (s *session) box(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if err := positional("box", pa, 4, "a name and 3 dimensions"); err != nil {
		return zygo.SexpNull, err
	}
	objName, err := toString(pa.positional[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("box: name: %w", err)
	}
	d, err := floats("box", pa.positional[1:], "x", "y", "z")
	if err != nil {
		return zygo.SexpNull, err
	}
	shape, err := s.e.k.Box(d[0], d[1], d[2])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("box: %w", err)
	}
	return s.add(objName, model.KindSolid, shape)
}

// (cylinder "name" height radius :segments 48)
func (s *session) cylinder(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if err := positional("cylinder", pa, 3, "a name, height and radius"); err != nil {
		return zygo.SexpNull, err
	}
	objName, err := toString(pa.positional[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("cylinder: name: %w", err)
	}
	d, err := floats("cylinder", pa.positional[1:], "height", "radius")
	if err != nil {
		return zygo.SexpNull, err
	}
	segments := s.e.segments
	if v, ok := pa.kw["segments"]; ok {
		f, err := toFloat64(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: segments: %w", err)
		}
		segments = int(f)
	}
	shape, err := s.e.k.Cylinder(d[0], d[1], segments)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
	}
	return s.add(objName, model.KindSolid, shape)
}

// (face "name" (vec3 ...) (vec3 ...) (vec3 ...) ...)
func (s *session) face(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	fk, ok := s.e.k.(kernel.Faces)
	if !ok {
		return zygo.SexpNull, fmt.Errorf("face: kernel %s cannot build faces", s.e.k.Name())
	}
	if len(args) < 4 {
		return zygo.SexpNull, fmt.Errorf("face requires a name and at least 3 points")
	}
	objName, err := toString(args[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("face: name: %w", err)
	}
	pts := make([][3]float64, 0, len(args)-1)
	for i, a := range args[1:] {
		v, err := toVec3(a)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("face: point %d: %w", i, err)
		}
		pts = append(pts, v)
	}
	shape, err := fk.Face(pts)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("face: %w", err)
	}
	return s.add(objName, model.KindFace, shape)
}

// boolean returns the builtin for (union "name" a b) and friends.
func (s *session) boolean(fn string, op func(kernel.Booleans, kernel.Shape, kernel.Shape) (kernel.Shape, error)) builtin {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		bk, ok := s.e.k.(kernel.Booleans)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("%s: kernel %s does not support booleans", fn, s.e.k.Name())
		}
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("%s requires a name and two objects", fn)
		}
		objName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: name: %w", fn, err)
		}
		a, err := s.object(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
		}
		b, err := s.object(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
		}
		shape, err := op(bk, a.Shape(), b.Shape())
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
		}
		return s.add(objName, model.KindSolid, shape)
	}
}

// ---------------------------------------------------------------------------
// Facade operations
//
// Mutating builtins return the integer status (0 success, 1 failure) so
// scripts can branch on it. Argument errors abort evaluation.
// ---------------------------------------------------------------------------

// (translate obj (vec3 dx dy dz))
func (s *session) translate(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 2 {
		return zygo.SexpNull, fmt.Errorf("translate requires an object and a vec3")
	}
	o, err := s.object(args[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("translate: %w", err)
	}
	v, err := vecs("translate", args[1:], "delta")
	if err != nil {
		return zygo.SexpNull, err
	}
	return status(s.e.Facade(o).Translate(v[0])), nil
}

// (rotate obj p1 p2 angle)
func (s *session) rotate(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 4 {
		return zygo.SexpNull, fmt.Errorf("rotate requires an object, two points and an angle")
	}
	o, err := s.object(args[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("rotate: %w", err)
	}
	v, err := vecs("rotate", args[1:3], "p1", "p2")
	if err != nil {
		return zygo.SexpNull, err
	}
	angle, err := toFloat64(args[3])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("rotate: angle: %w", err)
	}
	return status(s.e.Facade(o).Rotate(v[0], v[1], angle)), nil
}

// (scale obj pnt factor)
func (s *session) scale(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 3 {
		return zygo.SexpNull, fmt.Errorf("scale requires an object, a point and a factor")
	}
	o, err := s.object(args[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("scale: %w", err)
	}
	v, err := vecs("scale", args[1:2], "point")
	if err != nil {
		return zygo.SexpNull, err
	}
	factor, err := toFloat64(args[2])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("scale: factor: %w", err)
	}
	return status(s.e.Facade(o).Scale(v[0], factor)), nil
}

// (mirror obj pnt normal)
func (s *session) mirror(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 3 {
		return zygo.SexpNull, fmt.Errorf("mirror requires an object, a point and a normal")
	}
	o, err := s.object(args[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("mirror: %w", err)
	}
	v, err := vecs("mirror", args[1:], "point", "normal")
	if err != nil {
		return zygo.SexpNull, err
	}
	return status(s.e.Facade(o).Mirror(v[0], v[1])), nil
}

// (transform obj (list m0 ... m11))
func (s *session) transform(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 2 {
		return zygo.SexpNull, fmt.Errorf("transform requires an object and 12 matrix values")
	}
	o, err := s.object(args[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("transform: %w", err)
	}
	items, err := sexpListToSlice(args[1])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("transform: matrix: %w", err)
	}
	if len(items) != 12 {
		return zygo.SexpNull, fmt.Errorf("transform: matrix needs 12 values, got %d", len(items))
	}
	var m [12]float64
	for i, it := range items {
		f, err := toFloat64(it)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("transform: matrix[%d]: %w", i, err)
		}
		m[i] = f
	}
	return status(s.e.Facade(o).Transform(m)), nil
}

// (bounding-box obj :gap 0.1) returns (xmin ymin zmin xmax ymax zmax),
// all zeros when the box cannot be computed.
func (s *session) boundingBox(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if err := positional("bounding-box", pa, 1, "an object"); err != nil {
		return zygo.SexpNull, err
	}
	o, err := s.object(pa.positional[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("bounding-box: %w", err)
	}
	gap := s.e.gap
	if v, ok := pa.kw["gap"]; ok {
		if gap, err = toFloat64(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("bounding-box: gap: %w", err)
		}
	}
	b := s.e.Facade(o).BoundingBox(gap)
	return floatList(b[:]), nil
}

// (find-plane obj :tolerance 1e-6) returns (ox oy oz nx ny nz), or nil
// when the object is not planar.
func (s *session) findPlane(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if err := positional("find-plane", pa, 1, "an object"); err != nil {
		return zygo.SexpNull, err
	}
	o, err := s.object(pa.positional[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("find-plane: %w", err)
	}
	tol := s.e.planeTol
	if v, ok := pa.kw["tolerance"]; ok {
		if tol, err = toFloat64(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("find-plane: tolerance: %w", err)
		}
	}
	var origin, normal [3]float64
	if err := s.e.Facade(o).FindPlane(&origin, &normal, tol); err != nil {
		return zygo.SexpNull, nil
	}
	return floatList(append(origin[:], normal[:]...)), nil
}

// ---------------------------------------------------------------------------
// Registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the modeling builtins into env. Kebab-case
// builtins are registered under their snake_case name, which is what
// preprocessSource turns script identifiers into.
func registerBuiltins(env *zygo.Zlisp, s *session) {
	builtins := map[string]builtin{
		"vec3":         s.vec3,
		"object":       s.lookup,
		"box":          s.box,
		"cylinder":     s.cylinder,
		"face":         s.face,
		"translate":    s.translate,
		"rotate":       s.rotate,
		"scale":        s.scale,
		"mirror":       s.mirror,
		"transform":    s.transform,
		"bounding_box": s.boundingBox,
		"find_plane":   s.findPlane,
		"union": s.boolean("union", func(k kernel.Booleans, a, b kernel.Shape) (kernel.Shape, error) {
			return k.Union(a, b)
		}),
		"difference": s.boolean("difference", func(k kernel.Booleans, a, b kernel.Shape) (kernel.Shape, error) {
			return k.Difference(a, b)
		}),
		"intersection": s.boolean("intersection", func(k kernel.Booleans, a, b kernel.Shape) (kernel.Shape, error) {
			return k.Intersection(a, b)
		}),
	}
	for name, fn := range builtins {
		env.AddFunction(name, fn)
	}
}
