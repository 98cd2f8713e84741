package hull

import (
	"math"
	"testing"

	"github.com/chazu/lattice/pkg/kernel"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cubeCorners() []v3.Vec {
	var pts []v3.Vec
	for i := 0; i < 8; i++ {
		pts = append(pts, v3.Vec{X: float64(i & 1), Y: float64(i >> 1 & 1), Z: float64(i >> 2 & 1)})
	}
	return pts
}

func TestHull3Cube(t *testing.T) {
	pts := append(cubeCorners(), v3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, v3.Vec{X: 0.2, Y: 0.7, Z: 0.4})

	h, err := New().Hull3(pts)
	require.NoError(t, err)

	assert.Len(t, h.Vertices, 8)
	assert.Len(t, h.Faces, 12)
	for k, i := range h.Index {
		assert.Equal(t, pts[i], h.Vertices[k])
		assert.Less(t, i, 8, "interior point must not be a hull vertex")
	}

	m := &kernel.TriMesh{Vertices: h.Vertices, Faces: h.Faces}
	assert.True(t, m.IsClosed())
	assert.True(t, m.IsConsistentlyOriented())
	assert.InDelta(t, 1.0, m.Volume(), 1e-12)
}

func TestHull3Pyramid(t *testing.T) {
	// Apex plus a planar square base: the base is split into two triangles.
	pts := []v3.Vec{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: -1, Z: 2}, {X: 1, Y: 1, Z: 2}, {X: -1, Y: 1, Z: 2}, {X: -1, Y: -1, Z: 2},
	}
	h, err := New().Hull3(pts)
	require.NoError(t, err)
	assert.Len(t, h.Vertices, 5)
	assert.Len(t, h.Faces, 6)

	m := &kernel.TriMesh{Vertices: h.Vertices, Faces: h.Faces}
	assert.True(t, m.IsClosed())
	assert.InDelta(t, 4.0*2/3, m.Volume(), 1e-12)
}

func TestHull3Degenerate(t *testing.T) {
	tests := []struct {
		name string
		pts  []v3.Vec
	}{
		{"too few", []v3.Vec{{}, {X: 1}, {Y: 1}}},
		{"coplanar", []v3.Vec{{}, {X: 1}, {Y: 1}, {X: 1, Y: 1}, {X: 0.5, Y: 0.2}}},
		{"collinear", []v3.Vec{{}, {X: 1}, {X: 2}, {X: 3}}},
		{"coincident", []v3.Vec{{}, {}, {}, {}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Hull3(tt.pts)
			assert.ErrorIs(t, err, ErrDegenerate)
		})
	}
}

func TestHull2(t *testing.T) {
	pts := []v2.Vec{
		{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 1, Y: 0}, // collinear middle point
		{X: 2, Y: 2}, {X: 0, Y: 2}, {X: 1, Y: 1},
	}
	idx, err := New().Hull2(pts)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 3, 4}, idx)

	var area float64
	for k := range idx {
		a, b := pts[idx[k]], pts[idx[(k+1)%len(idx)]]
		area += a.X*b.Y - b.X*a.Y
	}
	assert.InDelta(t, 4.0, math.Abs(area/2), 1e-12)
	assert.Greater(t, area, 0.0, "hull must be counter-clockwise")

	_, err = New().Hull2([]v2.Vec{{}, {X: 1}, {X: 2}})
	assert.ErrorIs(t, err, ErrDegenerate)
}
