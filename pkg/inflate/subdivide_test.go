package inflate

import (
	"testing"

	"github.com/chazu/lattice/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func tetrahedron() *kernel.TriMesh {
	return &kernel.TriMesh{
		Vertices: []v3.Vec{{}, {X: 1}, {Y: 1}, {Z: 1}},
		Faces:    [][3]int{{0, 2, 1}, {0, 1, 3}, {0, 3, 2}, {1, 2, 3}},
		Sources:  []int{1, 2, 3, 4},
	}
}

func TestSubdivideMidpoints(t *testing.T) {
	m := &kernel.TriMesh{
		Vertices: []v3.Vec{{}, {X: 2}, {Y: 2}},
		Faces:    [][3]int{{0, 1, 2}},
		Sources:  []int{-3},
	}
	out, op := subdivide(m, false)

	assert.Len(t, out.Vertices, 6)
	assert.Len(t, out.Faces, 4)
	assert.Equal(t, []int{-3, -3, -3, -3}, out.Sources)
	assert.Len(t, op, 6)
	assert.Contains(t, out.Vertices, v3.Vec{X: 1})
	assert.Contains(t, out.Vertices, v3.Vec{X: 1, Y: 1})
	assert.Contains(t, out.Vertices, v3.Vec{Y: 1})
	assert.InDelta(t, 2.0, out.SignedArea(), 1e-12)
}

func TestLoopSubdivisionClosedMesh(t *testing.T) {
	m := tetrahedron()
	require.True(t, m.IsClosed())

	out, op := subdivide(m, true)
	assert.Len(t, out.Vertices, 4+6)
	assert.Len(t, out.Faces, 16)
	assert.True(t, out.IsClosed())
	assert.True(t, out.IsConsistentlyOriented())
	assert.Greater(t, out.Volume(), 0.0)
	assert.Less(t, out.Volume(), m.Volume())

	for i, row := range op {
		var sum float64
		for _, term := range row {
			sum += term.weight
		}
		assert.InDelta(t, 1.0, sum, 1e-12, "row %d", i)
	}
}

func TestLoopSubdivisionKeepsBoundaryCurve(t *testing.T) {
	// An open strip: boundary vertices only mix with boundary neighbours
	// and the strip stays in its plane.
	m := &kernel.TriMesh{
		Vertices: []v3.Vec{{}, {X: 1}, {X: 2}, {Y: 1}, {X: 1, Y: 1}, {X: 2, Y: 1}},
		Faces:    [][3]int{{0, 1, 4}, {0, 4, 3}, {1, 2, 5}, {1, 5, 4}},
	}
	out, _ := subdivide(m, true)
	for _, v := range out.Vertices {
		assert.Equal(t, 0.0, v.Z)
	}
	assert.InDelta(t, 0.125, out.Vertices[0].X, 1e-12)
	assert.InDelta(t, 0.125, out.Vertices[0].Y, 1e-12)
	assert.Nil(t, out.Sources)
}

func TestRefineMapsVelocities(t *testing.T) {
	m := tetrahedron()
	vel := mat.NewDense(4, 3, nil)
	for i := 0; i < 4; i++ {
		vel.SetRow(i, []float64{1, 2, 3})
	}
	out, vs := refine(m, []*mat.Dense{vel}, Subdivision{Algorithm: SubdivisionLoop, Order: 2})

	require.Len(t, vs, 1)
	rows, _ := vs[0].Dims()
	assert.Equal(t, len(out.Vertices), rows)
	assert.Len(t, out.Faces, 4*16)
	for i := 0; i < rows; i++ {
		assert.InDeltaSlice(t, []float64{1, 2, 3}, vs[0].RawRowView(i), 1e-12)
	}
}

func TestRefineOrderZeroIsIdentity(t *testing.T) {
	m := tetrahedron()
	out, vs := refine(m, nil, Subdivision{Algorithm: SubdivisionSimple})
	assert.Same(t, m, out)
	assert.Nil(t, vs)
}
