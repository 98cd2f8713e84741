package kernel

import (
	"errors"
	"fmt"
	"sort"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrAttributeExists is returned when adding an attribute name twice.
var ErrAttributeExists = errors.New("kernel: attribute already exists")

// ErrNoAttribute is returned when reading an attribute that was never added.
var ErrNoAttribute = errors.New("kernel: no such attribute")

// Mesh is the passive mesh container handed across package boundaries.
// All arrays are flat: Vertices has Dim floats per vertex, Faces has 3 ints
// per triangle and Voxels 4 ints per tetrahedron. Named attributes are flat
// float arrays whose length determines their meaning (per vertex or per
// face, scalar or vector).
type Mesh struct {
	Dim      int       `json:"dim"`
	Vertices []float64 `json:"vertices"`
	Faces    []int     `json:"faces"`
	Voxels   []int     `json:"voxels,omitempty"`

	attributes map[string][]float64
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	if m.Dim == 0 {
		return 0
	}
	return len(m.Vertices) / m.Dim
}

// FaceCount returns the number of triangles.
func (m *Mesh) FaceCount() int {
	return len(m.Faces) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Vertex returns vertex i as a 3D vector (Z is 0 for 2D meshes).
func (m *Mesh) Vertex(i int) v3.Vec {
	p := m.Vertices[i*m.Dim : (i+1)*m.Dim]
	v := v3.Vec{X: p[0], Y: p[1]}
	if m.Dim == 3 {
		v.Z = p[2]
	}
	return v
}

// Face returns triangle i.
func (m *Mesh) Face(i int) [3]int {
	return [3]int{m.Faces[3*i], m.Faces[3*i+1], m.Faces[3*i+2]}
}

// HasAttribute reports whether an attribute is stored under name.
func (m *Mesh) HasAttribute(name string) bool {
	_, ok := m.attributes[name]
	return ok
}

// AddAttribute stores a new attribute. The values are copied.
func (m *Mesh) AddAttribute(name string, values []float64) error {
	if m.HasAttribute(name) {
		return fmt.Errorf("%w: %q", ErrAttributeExists, name)
	}
	if m.attributes == nil {
		m.attributes = make(map[string][]float64)
	}
	m.attributes[name] = append([]float64(nil), values...)
	return nil
}

// SetAttribute replaces the values of an existing attribute.
func (m *Mesh) SetAttribute(name string, values []float64) error {
	if !m.HasAttribute(name) {
		return fmt.Errorf("%w: %q", ErrNoAttribute, name)
	}
	m.attributes[name] = append([]float64(nil), values...)
	return nil
}

// Attribute returns the values stored under name.
func (m *Mesh) Attribute(name string) ([]float64, error) {
	v, ok := m.attributes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoAttribute, name)
	}
	return v, nil
}

// AttributeNames lists attribute names in sorted order.
func (m *Mesh) AttributeNames() []string {
	names := make([]string, 0, len(m.attributes))
	for n := range m.attributes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// TriMesh converts the container into a working mesh. Face sources are
// taken from the "face_source" attribute when present.
func (m *Mesh) TriMesh() *TriMesh {
	t := &TriMesh{
		Vertices: make([]v3.Vec, m.VertexCount()),
		Faces:    make([][3]int, m.FaceCount()),
	}
	for i := range t.Vertices {
		t.Vertices[i] = m.Vertex(i)
	}
	for i := range t.Faces {
		t.Faces[i] = m.Face(i)
	}
	if src, err := m.Attribute(FaceSourceAttribute); err == nil && len(src) == len(t.Faces) {
		t.Sources = make([]int, len(src))
		for i, s := range src {
			t.Sources[i] = int(s)
		}
	}
	return t
}

// FaceSourceAttribute is the attribute name under which per-face
// provenance is exported.
const FaceSourceAttribute = "face_source"

// NewMesh flattens a working mesh into a container of the given dimension.
// Face sources, when tracked, are stored as the "face_source" attribute.
func NewMesh(dim int, t *TriMesh) *Mesh {
	m := &Mesh{
		Dim:      dim,
		Vertices: make([]float64, 0, dim*len(t.Vertices)),
		Faces:    make([]int, 0, 3*len(t.Faces)),
	}
	for _, v := range t.Vertices {
		m.Vertices = append(m.Vertices, v.X, v.Y)
		if dim == 3 {
			m.Vertices = append(m.Vertices, v.Z)
		}
	}
	for _, f := range t.Faces {
		m.Faces = append(m.Faces, f[0], f[1], f[2])
	}
	if t.Sources != nil {
		src := make([]float64, len(t.Sources))
		for i, s := range t.Sources {
			src[i] = float64(s)
		}
		m.AddAttribute(FaceSourceAttribute, src)
	}
	return m
}

// ---------------------------------------------------------------------------
// Axis helpers
// ---------------------------------------------------------------------------

// Coord returns component axis (0=X, 1=Y, 2=Z) of v.
func Coord(v v3.Vec, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// WithCoord returns v with component axis replaced by x.
func WithCoord(v v3.Vec, axis int, x float64) v3.Vec {
	switch axis {
	case 0:
		v.X = x
	case 1:
		v.Y = x
	default:
		v.Z = x
	}
	return v
}

// Unit returns the unit vector along axis.
func Unit(axis int) v3.Vec {
	return WithCoord(v3.Vec{}, axis, 1)
}
