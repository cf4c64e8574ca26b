//go:build manifold

// Package manifold provides a CGo-based geometry kernel binding to the
// Manifold library (https://github.com/elalish/manifold). Manifold provides
// guaranteed-manifold mesh boolean operations with face identity tracking.
//
// This package requires the Manifold C library (manifoldc) to be installed.
// Build with: go build -tags=manifold
package manifold

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmanifoldc

#include <stdlib.h>
#include <manifold/manifoldc.h>
*/
import "C"

import (
	"fmt"
	"math"
	"runtime"
	"unsafe"

	"github.com/chazu/brepfacade/pkg/geom"
	"github.com/chazu/brepfacade/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// Compile-time interface checks.
var _ kernel.Kernel = (*ManifoldKernel)(nil)
var _ kernel.Booleans = (*ManifoldKernel)(nil)
var _ kernel.Shape = (*manifoldSolid)(nil)

// orthoTol decides whether a transform stays a placement.
const orthoTol = 1e-9

// manifoldSolid wraps a C ManifoldManifold pointer and its placement, and
// implements kernel.Shape. Several solids may share one pointer; the
// finalizer lives on the owning handle.
type manifoldSolid struct {
	h   *handle
	loc geom.Trsf
}

// handle owns a C ManifoldManifold pointer.
type handle struct {
	ptr *C.ManifoldManifold
}

// Location returns the placement of the solid.
func (s *manifoldSolid) Location() geom.Trsf {
	return s.loc
}

// newHandle wraps a C ManifoldManifold pointer with Go-side finalizer
// for automatic memory management.
func newHandle(ptr *C.ManifoldManifold) *handle {
	h := &handle{ptr: ptr}
	runtime.SetFinalizer(h, func(h *handle) {
		if h.ptr != nil {
			C.manifold_delete_manifold(h.ptr)
			h.ptr = nil
		}
	})
	return h
}

// newSolid wraps a freshly allocated pointer with identity placement.
func newSolid(ptr *C.ManifoldManifold) (kernel.Shape, error) {
	h := newHandle(ptr)
	if st := C.manifold_status(ptr); st != C.MANIFOLD_NO_ERROR {
		return nil, failure("manifold status %d", int(st))
	}
	return &manifoldSolid{h: h, loc: geom.Identity()}, nil
}

func failure(format string, args ...any) error {
	return fmt.Errorf("%w: manifold: %s", kernel.ErrFailure, fmt.Sprintf(format, args...))
}

func unwrap(s kernel.Shape) (*manifoldSolid, error) {
	ms, ok := s.(*manifoldSolid)
	if !ok || ms == nil {
		return nil, failure("shape %T was not built by this kernel", s)
	}
	return ms, nil
}

// transformPtr applies t to ptr, returning a new C manifold.
func transformPtr(ptr *C.ManifoldManifold, t geom.Trsf) *C.ManifoldManifold {
	v := t.Values()
	alloc := C.manifold_alloc_manifold()
	// manifold_transform takes the 3x4 matrix column by column.
	return C.manifold_transform(alloc, ptr,
		C.double(v[0]), C.double(v[4]), C.double(v[8]),
		C.double(v[1]), C.double(v[5]), C.double(v[9]),
		C.double(v[2]), C.double(v[6]), C.double(v[10]),
		C.double(v[3]), C.double(v[7]), C.double(v[11]),
	)
}

// placed returns a pointer to the solid with its placement applied. The
// second result must be kept alive while the pointer is in use.
func (s *manifoldSolid) placed() (*C.ManifoldManifold, *handle) {
	if s.loc.IsIdentity() {
		return s.h.ptr, s.h
	}
	h := newHandle(transformPtr(s.h.ptr, s.loc))
	return h.ptr, h
}

// ManifoldKernel implements kernel.Kernel using the Manifold C library.
type ManifoldKernel struct{}

// New creates a new ManifoldKernel. Returns an error if the Manifold
// C library cannot be initialized.
func New() (kernel.Kernel, error) {
	return &ManifoldKernel{}, nil
}

// Name returns "manifold".
func (k *ManifoldKernel) Name() string { return "manifold" }

// Box creates an axis-aligned box with the given dimensions and its
// minimum corner at the origin.
func (k *ManifoldKernel) Box(x, y, z float64) (kernel.Shape, error) {
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_cube(alloc,
		C.double(x), C.double(y), C.double(z),
		C.int(0), // center=false
	)
	return newSolid(ptr)
}

// Cylinder creates a cylinder along the Z axis with the given height,
// radius, and number of circular segments. The cylinder is centered
// at the origin.
func (k *ManifoldKernel) Cylinder(height, radius float64, segments int) (kernel.Shape, error) {
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_cylinder(alloc,
		C.double(height),
		C.double(radius), // radius_low
		C.double(radius), // radius_high (same = not tapered)
		C.int(segments),
		C.int(1), // center=true
	)
	return newSolid(ptr)
}

type booleanOp func(mem, a, b *C.ManifoldManifold) *C.ManifoldManifold

func (k *ManifoldKernel) boolean(a, b kernel.Shape, op booleanOp) (kernel.Shape, error) {
	sa, err := unwrap(a)
	if err != nil {
		return nil, err
	}
	sb, err := unwrap(b)
	if err != nil {
		return nil, err
	}
	pa, ha := sa.placed()
	pb, hb := sb.placed()
	ptr := op(C.manifold_alloc_manifold(), pa, pb)
	runtime.KeepAlive(ha)
	runtime.KeepAlive(hb)
	return newSolid(ptr)
}

// Union returns the boolean union of two solids.
func (k *ManifoldKernel) Union(a, b kernel.Shape) (kernel.Shape, error) {
	return k.boolean(a, b, func(mem, a, b *C.ManifoldManifold) *C.ManifoldManifold {
		return C.manifold_union(mem, a, b)
	})
}

// Difference returns the boolean difference (a minus b).
func (k *ManifoldKernel) Difference(a, b kernel.Shape) (kernel.Shape, error) {
	return k.boolean(a, b, func(mem, a, b *C.ManifoldManifold) *C.ManifoldManifold {
		return C.manifold_difference(mem, a, b)
	})
}

// Intersection returns the boolean intersection of two solids.
func (k *ManifoldKernel) Intersection(a, b kernel.Shape) (kernel.Shape, error) {
	return k.boolean(a, b, func(mem, a, b *C.ManifoldManifold) *C.ManifoldManifold {
		return C.manifold_intersection(mem, a, b)
	})
}

// Transform places s under t. An orthogonal t with copy unset only moves the
// placement; anything else is applied by Manifold.
func (k *ManifoldKernel) Transform(s kernel.Shape, t geom.Trsf, copy bool) (kernel.Shape, error) {
	ms, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	if !copy && t.IsOrthogonal(orthoTol) {
		return &manifoldSolid{h: ms.h, loc: t.Multiply(ms.loc)}, nil
	}
	return bake(ms, t)
}

// GTransform applies an arbitrary affine t through Manifold.
func (k *ManifoldKernel) GTransform(s kernel.Shape, t geom.Trsf, _ bool) (kernel.Shape, error) {
	ms, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	return bake(ms, t)
}

// bake transforms the local manifold by loc⁻¹ * t * loc and keeps the
// placement.
func bake(ms *manifoldSolid, t geom.Trsf) (kernel.Shape, error) {
	local, err := geom.Rebase(t, ms.loc)
	if err != nil {
		return nil, failure("placement is not invertible: %v", err)
	}
	if d := local.Det(); math.Abs(d) <= geom.Resolution || math.IsNaN(d) {
		return nil, failure("transform collapses the shape (det=%g)", d)
	}
	ptr := transformPtr(ms.h.ptr, local)
	runtime.KeepAlive(ms.h)
	out, err := newSolid(ptr)
	if err != nil {
		return nil, err
	}
	out.(*manifoldSolid).loc = ms.loc
	return out, nil
}

// Validate reports empty or invalid manifolds.
func (k *ManifoldKernel) Validate(s kernel.Shape) error {
	ms, err := unwrap(s)
	if err != nil {
		return err
	}
	defer runtime.KeepAlive(ms.h)
	if C.manifold_is_empty(ms.h.ptr) != 0 {
		return failure("shape is empty")
	}
	if st := C.manifold_status(ms.h.ptr); st != C.MANIFOLD_NO_ERROR {
		return failure("manifold status %d", int(st))
	}
	return nil
}

// BoundingBox returns the axis-aligned bounding box of the placed solid
// enlarged by gap.
func (k *ManifoldKernel) BoundingBox(s kernel.Shape, gap float64) (geom.Box, error) {
	ms, err := unwrap(s)
	if err != nil {
		return geom.Box{}, err
	}
	ptr, h := ms.placed()
	defer runtime.KeepAlive(h)
	if C.manifold_is_empty(ptr) != 0 {
		return geom.Box{}, failure("bounding box is void")
	}

	alloc := C.manifold_alloc_box()
	bbox := C.manifold_bounding_box(alloc, ptr)
	defer C.manifold_delete_box(bbox)

	b := geom.EmptyBox()
	b.Min.X = float64(C.manifold_box_min_x(bbox))
	b.Min.Y = float64(C.manifold_box_min_y(bbox))
	b.Min.Z = float64(C.manifold_box_min_z(bbox))
	b.Max.X = float64(C.manifold_box_max_x(bbox))
	b.Max.Y = float64(C.manifold_box_max_y(bbox))
	b.Max.Z = float64(C.manifold_box_max_z(bbox))
	return b.Enlarge(gap), nil
}

// FindPlane fits a plane through the mesh vertices of the solid.
func (k *ManifoldKernel) FindPlane(s kernel.Shape, tolerance float64) (geom.Plane, bool, error) {
	mesh, err := k.ToMesh(s)
	if err != nil {
		return geom.Plane{}, false, err
	}
	var hint r3.Vec
	for i := 0; i < mesh.TriangleCount(); i++ {
		hint = r3.Add(hint, mesh.FaceNormal(i))
	}
	pl, found := geom.FitPlane(mesh.Points(), tolerance, hint)
	return pl, found, nil
}

// ToMesh extracts a triangle mesh from the solid using Manifold's MeshGL
// format. Vertex positions and normals are interleaved in MeshGL; this
// method separates them into the kernel.Mesh flat-array layout.
func (k *ManifoldKernel) ToMesh(s kernel.Shape) (*kernel.Mesh, error) {
	ms, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	ptr, h := ms.placed()
	defer runtime.KeepAlive(h)

	// Get MeshGL from the manifold.
	meshAlloc := C.manifold_alloc_meshgl()
	meshGL := C.manifold_get_meshgl(meshAlloc, ptr)
	defer C.manifold_delete_meshgl(meshGL)

	numVert := int(C.manifold_meshgl_num_vert(meshGL))
	numTri := int(C.manifold_meshgl_num_tri(meshGL))

	if numVert == 0 || numTri == 0 {
		return &kernel.Mesh{}, nil
	}

	// MeshGL stores vertex properties in a flat float array.
	// The default layout has numProp properties per vertex.
	// The first 3 are always position (x, y, z).
	// If normals are present, they follow at indices 3, 4, 5.
	numProp := int(C.manifold_meshgl_num_prop(meshGL))

	// Extract the vertex property data.
	propLen := numVert * numProp
	propData := make([]float32, propLen)
	C.manifold_meshgl_vert_properties(
		(*C.float)(unsafe.Pointer(&propData[0])),
		meshGL,
	)

	// Extract triangle indices.
	triLen := numTri * 3
	indices := make([]uint32, triLen)
	C.manifold_meshgl_tri_verts(
		(*C.uint32_t)(unsafe.Pointer(&indices[0])),
		meshGL,
	)

	// Separate positions and normals from the interleaved property array.
	vertices := make([]float32, numVert*3)
	var normals []float32
	hasNormals := numProp >= 6
	if hasNormals {
		normals = make([]float32, numVert*3)
	}

	for i := 0; i < numVert; i++ {
		base := i * numProp
		// Positions are always at indices 0, 1, 2.
		vertices[i*3+0] = propData[base+0]
		vertices[i*3+1] = propData[base+1]
		vertices[i*3+2] = propData[base+2]
		// Normals at indices 3, 4, 5 if present.
		if hasNormals {
			normals[i*3+0] = propData[base+3]
			normals[i*3+1] = propData[base+4]
			normals[i*3+2] = propData[base+5]
		}
	}

	if !hasNormals {
		// Compute flat normals from triangle faces as a fallback.
		normals = computeFlatNormals(vertices, indices)
	}

	mesh := &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}

	if mesh.VertexCount() != numVert {
		return nil, failure("vertex count mismatch: got %d, expected %d",
			mesh.VertexCount(), numVert)
	}

	return mesh, nil
}

// computeFlatNormals generates per-vertex normals by averaging the face normals
// of all triangles incident on each vertex. This is a fallback when MeshGL
// does not include normals in the vertex properties.
func computeFlatNormals(vertices []float32, indices []uint32) []float32 {
	numVerts := len(vertices) / 3
	normals := make([]float32, numVerts*3)

	numTris := len(indices) / 3
	for t := 0; t < numTris; t++ {
		i0 := indices[t*3+0]
		i1 := indices[t*3+1]
		i2 := indices[t*3+2]

		// Triangle vertex positions.
		ax, ay, az := float64(vertices[i0*3]), float64(vertices[i0*3+1]), float64(vertices[i0*3+2])
		bx, by, bz := float64(vertices[i1*3]), float64(vertices[i1*3+1]), float64(vertices[i1*3+2])
		cx, cy, cz := float64(vertices[i2*3]), float64(vertices[i2*3+1]), float64(vertices[i2*3+2])

		// Edge vectors.
		e1x, e1y, e1z := bx-ax, by-ay, bz-az
		e2x, e2y, e2z := cx-ax, cy-ay, cz-az

		// Cross product (unnormalized face normal).
		nx := float32(e1y*e2z - e1z*e2y)
		ny := float32(e1z*e2x - e1x*e2z)
		nz := float32(e1x*e2y - e1y*e2x)

		// Accumulate into each vertex of this triangle.
		for _, idx := range []uint32{i0, i1, i2} {
			normals[idx*3+0] += nx
			normals[idx*3+1] += ny
			normals[idx*3+2] += nz
		}
	}

	// Normalize.
	for i := 0; i < numVerts; i++ {
		nx := float64(normals[i*3+0])
		ny := float64(normals[i*3+1])
		nz := float64(normals[i*3+2])
		length := math.Sqrt(nx*nx + ny*ny + nz*nz)
		if length > 1e-12 {
			normals[i*3+0] = float32(nx / length)
			normals[i*3+1] = float32(ny / length)
			normals[i*3+2] = float32(nz / length)
		}
	}

	return normals
}
