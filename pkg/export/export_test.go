package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/lattice/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/hpinc/go3mf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func cube() *kernel.Mesh {
	m := kernel.BoxMesh(sdf.Box3{Max: v3.Vec{X: 1, Y: 1, Z: 1}})
	m.Sources = make([]int, len(m.Faces))
	for i := range m.Sources {
		m.Sources[i] = i%3 - 1
	}
	return kernel.NewMesh(3, m)
}

// frame is a unit square with a square hole, wound counter-clockwise.
func frame() *kernel.TriMesh {
	m := &kernel.TriMesh{Vertices: []v3.Vec{
		{X: 0, Y: 0}, {X: 3, Y: 0}, {X: 3, Y: 3}, {X: 0, Y: 3},
		{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 2, Y: 2}, {X: 1, Y: 2},
	}}
	for k := 0; k < 4; k++ {
		a, b := k, (k+1)%4
		m.Faces = append(m.Faces, [3]int{a, b, b + 4}, [3]int{a, b + 4, a + 4})
	}
	return m
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"out.stl", FormatSTL},
		{"OUT.STL", FormatSTL},
		{"a/b/cell.3mf", Format3MF},
		{"cell.dxf", FormatDXF},
		{"cell.json", FormatJSON},
	}
	for _, tt := range tests {
		got, err := FormatOf(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
	_, err := FormatOf("cell.obj")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestSaveSTL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cube.stl")
	require.NoError(t, Save(path, Result{Mesh: cube()}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	// Binary STL: 80 byte header, triangle count, 50 bytes per triangle.
	assert.Equal(t, int64(84+50*12), info.Size())
}

func TestSave3MF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cube.3mf")
	require.NoError(t, Save(path, Result{Mesh: cube()}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "PK"), "3mf is a zip package")

	r, err := go3mf.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()
	var model go3mf.Model
	require.NoError(t, r.Decode(&model))
	require.Len(t, model.Resources.Objects, 1)
	mesh := model.Resources.Objects[0].Mesh
	require.NotNil(t, mesh)
	assert.Len(t, mesh.Vertices.Vertex, 8)
	assert.Len(t, mesh.Triangles.Triangle, 12)
	assert.Equal(t, go3mf.Point3D{1, 1, 1}, mesh.Vertices.Vertex[7])
}

func TestSaveDXF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.dxf")
	require.NoError(t, Save(path, Result{Mesh: kernel.NewMesh(2, frame())}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "LWPOLYLINE")
	assert.Contains(t, text, LayerBoundary)
	assert.Contains(t, text, LayerMesh)
	// Two boundary loops plus eight triangles.
	assert.GreaterOrEqual(t, strings.Count(text, "LWPOLYLINE"), 10)
}

func TestSaveDXFRejects3D(t *testing.T) {
	err := Save(filepath.Join(t.TempDir(), "cube.dxf"), Result{Mesh: cube()})
	assert.ErrorIs(t, err, ErrUnsupportedDimension)
}

func TestSaveRejectsEmptyAndUnknown(t *testing.T) {
	dir := t.TempDir()
	assert.ErrorIs(t, Save(filepath.Join(dir, "a.stl"), Result{}), ErrEmptyMesh)
	assert.ErrorIs(t, Save(filepath.Join(dir, "a.stl"), Result{Mesh: &kernel.Mesh{Dim: 3}}), ErrEmptyMesh)
	assert.ErrorIs(t, Save(filepath.Join(dir, "a.ply"), Result{Mesh: cube()}), ErrUnknownFormat)
}

func TestBoundaryLoops(t *testing.T) {
	loops := boundaryLoops(frame())
	require.Len(t, loops, 2)
	assert.Equal(t, []int{0, 1, 2, 3}, loops[0])
	assert.Equal(t, []int{5, 4, 7, 6}, loops[1])
}

func TestSaveJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cube.json")
	m := cube()
	rows := m.VertexCount()
	vel := mat.NewDense(rows, 3, nil)
	for i := 0; i < rows; i++ {
		vel.Set(i, 0, 1)
	}
	require.NoError(t, Save(path, Result{
		Mesh:       m,
		Parameters: []string{"offset[0].x"},
		Velocities: []*mat.Dense{vel},
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, 3, doc.Dim)
	assert.Len(t, doc.Vertices, 8)
	assert.Len(t, doc.Faces, 12)
	assert.Equal(t, []float64{1, 1, 1}, doc.Vertices[7])
	require.Len(t, doc.FaceSource, 12)
	assert.Equal(t, -1, doc.FaceSource[0])
	require.Len(t, doc.Velocities, 1)
	assert.Equal(t, "offset[0].x", doc.Velocities[0].Parameter)
	assert.Len(t, doc.Velocities[0].Rows, 8)
	assert.Equal(t, []float64{1, 0, 0}, doc.Velocities[0].Rows[3])
}

func TestNewDocumentNamesUnlabelledVelocities(t *testing.T) {
	doc := NewDocument(Result{
		Mesh:       kernel.NewMesh(2, frame()),
		Velocities: []*mat.Dense{mat.NewDense(8, 2, nil)},
	})
	assert.Equal(t, 2, doc.Dim)
	assert.Equal(t, []float64{3, 0}, doc.Vertices[1])
	require.Len(t, doc.Velocities, 1)
	assert.Equal(t, "p0", doc.Velocities[0].Parameter)
}
