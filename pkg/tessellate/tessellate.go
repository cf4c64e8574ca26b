// Package tessellate produces triangle meshes for the objects of a model
// using a geometry kernel. One mesh is produced per object.
package tessellate

import (
	"fmt"

	"github.com/chazu/brepfacade/pkg/kernel"
	"github.com/chazu/brepfacade/pkg/model"
)

// Tessellate meshes every object of m in creation order. Each mesh carries
// the object's name. Objects without a shape are skipped. The model is
// never mutated.
func Tessellate(m *model.Model, k kernel.Kernel) ([]*kernel.Mesh, error) {
	if m == nil {
		return nil, nil
	}

	var meshes []*kernel.Mesh
	for _, o := range m.Objects() {
		if o.Shape() == nil {
			continue
		}
		mesh, err := Object(o, k)
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

// Object meshes a single object.
func Object(o *model.Object, k kernel.Kernel) (*kernel.Mesh, error) {
	mesh, err := k.ToMesh(o.Shape())
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for object %q: %w", o.Name, err)
	}
	mesh.PartName = o.Name
	return mesh, nil
}

// TriangleCount sums the triangles of meshes.
func TriangleCount(meshes []*kernel.Mesh) int {
	n := 0
	for _, m := range meshes {
		n += m.TriangleCount()
	}
	return n
}
