package boxclip

import (
	"math"
	"testing"

	"github.com/chazu/lattice/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// octagon has vertices on the axes through c, so centred on a side or a
// corner of the unit square it has vertices exactly on the boundary.
func octagon(c v2.Vec, r float64) []v2.Vec {
	s := r / math.Sqrt2
	return []v2.Vec{
		{X: c.X + r, Y: c.Y}, {X: c.X + s, Y: c.Y + s},
		{X: c.X, Y: c.Y + r}, {X: c.X - s, Y: c.Y + s},
		{X: c.X - r, Y: c.Y}, {X: c.X - s, Y: c.Y - s},
		{X: c.X, Y: c.Y - r}, {X: c.X + s, Y: c.Y - s},
	}
}

func square(lo, hi v2.Vec) []v2.Vec {
	return []v2.Vec{lo, {X: hi.X, Y: lo.Y}, hi, {X: lo.X, Y: hi.Y}}
}

// regionArea is the even-odd area of rings.
func regionArea(rings [][]v2.Vec) float64 {
	var a float64
	for _, r := range orientRings(rings) {
		a += ringArea(r)
	}
	return a
}

func assertInUnitSquare(t *testing.T, rings [][]v2.Vec) {
	t.Helper()
	for _, r := range rings {
		for _, p := range r {
			assert.True(t, p.X >= 0 && p.X <= 1 && p.Y >= 0 && p.Y <= 1, "point %v outside", p)
		}
	}
}

func TestClipRingsOnBoundary(t *testing.T) {
	const r = 0.2
	octArea := 2 * math.Sqrt2 * r * r
	lo, hi := v2.Vec{}, v2.Vec{X: 1, Y: 1}

	tests := []struct {
		name   string
		rings  [][]v2.Vec
		pieces int
		area   float64
	}{
		{"corner lo", [][]v2.Vec{octagon(v2.Vec{}, r)}, 1, octArea / 4},
		{"corner hi", [][]v2.Vec{octagon(v2.Vec{X: 1, Y: 1}, r)}, 1, octArea / 4},
		{"corner mixed", [][]v2.Vec{octagon(v2.Vec{X: 1}, r)}, 1, octArea / 4},
		{"side midpoint", [][]v2.Vec{octagon(v2.Vec{X: 0.5}, r)}, 1, octArea / 2},
		{"left side", [][]v2.Vec{octagon(v2.Vec{Y: 0.5}, r)}, 1, octArea / 2},
		{"all four corners", [][]v2.Vec{
			octagon(v2.Vec{}, r), octagon(v2.Vec{X: 1}, r),
			octagon(v2.Vec{X: 1, Y: 1}, r), octagon(v2.Vec{Y: 1}, r),
		}, 4, octArea},
		{"edge on side", [][]v2.Vec{{{}, {X: 1}, {X: 0.5, Y: 0.5}}}, 1, 0.25},
		{"clockwise", [][]v2.Vec{{{X: 0.5, Y: 0.5}, {X: 1}, {}}}, 1, 0.25},
		{"touching outside", [][]v2.Vec{square(v2.Vec{X: 1, Y: 0.2}, v2.Vec{X: 1.5, Y: 0.6})}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := clipRings(tt.rings, lo, hi)
			assert.Len(t, out, tt.pieces)
			assert.InDelta(t, tt.area, regionArea(out), 1e-12)
			assertInUnitSquare(t, out)
		})
	}
}

func TestClipRingsHoles(t *testing.T) {
	lo, hi := v2.Vec{}, v2.Vec{X: 1, Y: 1}

	t.Run("frame around the square", func(t *testing.T) {
		rings := [][]v2.Vec{
			square(v2.Vec{X: -0.1, Y: -0.1}, v2.Vec{X: 1.1, Y: 1.1}),
			square(v2.Vec{X: 0.1, Y: 0.1}, v2.Vec{X: 0.9, Y: 0.9}),
		}
		out := clipRings(rings, lo, hi)
		require.Len(t, out, 2)
		assert.InDelta(t, 1-0.64, regionArea(out), 1e-12)
	})

	t.Run("hole across a side", func(t *testing.T) {
		rings := [][]v2.Vec{
			square(v2.Vec{X: -1, Y: -1}, v2.Vec{X: 2, Y: 2}),
			square(v2.Vec{X: 0.3, Y: -0.2}, v2.Vec{X: 0.7, Y: 0.2}),
		}
		out := clipRings(rings, lo, hi)
		require.Len(t, out, 1)
		assert.InDelta(t, 1-0.4*0.2, regionArea(out), 1e-12)
		assertInUnitSquare(t, out)
	})

	t.Run("hole on a corner", func(t *testing.T) {
		rings := [][]v2.Vec{
			square(v2.Vec{X: -1, Y: -1}, v2.Vec{X: 2, Y: 2}),
			octagon(v2.Vec{X: 1, Y: 1}, 0.2),
		}
		out := clipRings(rings, lo, hi)
		require.Len(t, out, 1)
		assert.InDelta(t, 1-math.Sqrt2*0.2*0.2/2, regionArea(out), 1e-12)
	})

	t.Run("strictly inside", func(t *testing.T) {
		in := [][]v2.Vec{octagon(v2.Vec{X: 0.5, Y: 0.5}, 0.2)}
		assert.Equal(t, in, clipRings(in, lo, hi))
	})
}

func TestClipOctahedronOnBoxEdge(t *testing.T) {
	// The octahedron sits on an edge of the box; two caps cut their
	// cross-sections in half.
	oct := octahedron()
	cell := sdf.Box3{Min: v3.Vec{X: -2, Y: 0, Z: 0}, Max: v3.Vec{X: 2, Y: 2, Z: 2}}

	out, err := New().Clip(oct, cell)
	require.NoError(t, err)
	assert.True(t, out.IsClosed())
	assert.True(t, out.IsConsistentlyOriented())
	assert.InDelta(t, 1.0/3, out.Volume(), 1e-9)
}

func TestClipPolygonKeepsBoundaryTriangle(t *testing.T) {
	cell := sdf.Box3{Max: v3.Vec{X: 1, Y: 1, Z: 1}}
	tri := []v3.Vec{{X: -0.05, Y: 0.1}, {X: 0.05}, {X: 0.05, Y: 0.1}}

	out := ClipPolygon(tri, cell, 2)
	require.GreaterOrEqual(t, len(out), 3)
	m := &kernel.TriMesh{Vertices: out}
	for k := 1; k+1 < len(out); k++ {
		m.Faces = append(m.Faces, [3]int{0, k, k + 1})
	}
	var area float64
	for i := range m.Faces {
		area += m.FaceCross(i).Z / 2
	}
	assert.InDelta(t, 0.00375, math.Abs(area), 1e-12)
	for _, p := range out {
		assert.GreaterOrEqual(t, p.X, 0.0)
	}
}
