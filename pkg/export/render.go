package export

import (
	"fmt"

	"github.com/chazu/lattice/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	"github.com/hpinc/go3mf"
)

// triangles converts m into the renderer's triangle soup.
func triangles(m *kernel.TriMesh) []*sdf.Triangle3 {
	out := make([]*sdf.Triangle3, len(m.Faces))
	for i, f := range m.Faces {
		out[i] = &sdf.Triangle3{m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]}
	}
	return out
}

// SaveSTL writes m as a binary STL file.
func SaveSTL(path string, m *kernel.TriMesh) error {
	if len(m.Faces) == 0 {
		return ErrEmptyMesh
	}
	if err := render.SaveSTL(path, triangles(m)); err != nil {
		return fmt.Errorf("export: stl: %w", err)
	}
	return nil
}

// Save3MF writes m as a 3MF package holding one object in millimetres. The
// mesh is already indexed, so vertices are written as they are.
func Save3MF(path string, m *kernel.TriMesh) error {
	if len(m.Faces) == 0 {
		return ErrEmptyMesh
	}
	var mesh go3mf.Mesh
	mesh.Vertices.Vertex = make([]go3mf.Point3D, len(m.Vertices))
	for i, v := range m.Vertices {
		mesh.Vertices.Vertex[i] = go3mf.Point3D{float32(v.X), float32(v.Y), float32(v.Z)}
	}
	mesh.Triangles.Triangle = make([]go3mf.Triangle, len(m.Faces))
	for i, f := range m.Faces {
		mesh.Triangles.Triangle[i] = go3mf.Triangle{V1: uint32(f[0]), V2: uint32(f[1]), V3: uint32(f[2])}
	}

	var model go3mf.Model
	obj := &go3mf.Object{Mesh: &mesh}
	obj.ID = model.Resources.UnusedID()
	model.Resources.Objects = append(model.Resources.Objects, obj)
	model.Build.Items = append(model.Build.Items, &go3mf.Item{ObjectID: obj.ID})

	w, err := go3mf.CreateWriter(path)
	if err != nil {
		return fmt.Errorf("export: 3mf: %w", err)
	}
	if err := w.Encode(&model); err != nil {
		w.Close()
		return fmt.Errorf("export: 3mf: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("export: 3mf: %w", err)
	}
	return nil
}
