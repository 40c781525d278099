package kdtree

import "github.com/katalvlaran/kdforge/geom"

// MeshTree is the convenience two-phase API spec 3 describes directly:
// AddMesh registers triangle geometry, then Build freezes it into a
// queryable tree. It is a thin wrapper over Tree backed by a
// geom.TriangleSoup; callers with a non-mesh geometry source should use
// New directly against their own geom.Primitive implementation instead.
type MeshTree struct {
	*Tree
	soup *geom.TriangleSoup
}

// NewMeshTree returns an empty, buildable MeshTree.
func NewMeshTree() *MeshTree {
	soup := geom.NewTriangleSoup()
	return &MeshTree{Tree: New(soup), soup: soup}
}

// AddMesh registers mesh's triangles and returns the primitive-index
// offset they were assigned, for translating a later hit's Prim field back
// to a (mesh, local triangle) pair. Valid only before Build.
func (m *MeshTree) AddMesh(mesh *geom.Mesh) (uint32, error) {
	if m.Tree.IsBuilt() {
		return 0, &ConfigurationError{Err: ErrAlreadyBuilt}
	}
	return m.soup.AddMesh(mesh), nil
}
