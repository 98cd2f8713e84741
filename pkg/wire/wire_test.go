package wire

import (
	"math"
	"strings"
	"testing"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cubeFrame is the 12 edges of the unit cube.
func cubeFrame() *Network {
	var verts []v3.Vec
	for i := 0; i < 8; i++ {
		verts = append(verts, v3.Vec{X: float64(i & 1), Y: float64(i >> 1 & 1), Z: float64(i >> 2 & 1)})
	}
	var edges [][2]int
	for i := 0; i < 8; i++ {
		for _, bit := range []int{1, 2, 4} {
			if i&bit == 0 {
				edges = append(edges, [2]int{i, i | bit})
			}
		}
	}
	return MustNew(3, verts, edges)
}

func squareFrame() *Network {
	return MustNew(2,
		[]v3.Vec{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}},
		[][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}})
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(4, nil, nil)
	assert.ErrorIs(t, err, ErrUnsupportedDimension)

	_, err = New(3, []v3.Vec{{}}, [][2]int{{0, 1}})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestNew2DFlattensZ(t *testing.T) {
	n := MustNew(2, []v3.Vec{{X: 1, Y: 2, Z: 3}}, nil)
	assert.Equal(t, 0.0, n.Vertices[0].Z)
}

func TestAdjacency(t *testing.T) {
	n := cubeFrame()
	for v := 0; v < 8; v++ {
		assert.Equal(t, 3, n.Degree(v))
	}
	assert.Equal(t, []int{1, 2, 4}, n.Neighbors(0))
	assert.InDelta(t, math.Pi/2, n.MinIncidentAngle(0), 1e-12)
	assert.Equal(t, 1.0, n.EdgeLength(0))

	single := MustNew(3, []v3.Vec{{}, {X: 1}}, [][2]int{{0, 1}})
	assert.Equal(t, math.Pi, single.MinIncidentAngle(0))
}

func TestCenterAtOrigin(t *testing.T) {
	n := cubeFrame()
	d := n.CenterAtOrigin()
	assert.Equal(t, v3.Vec{X: -0.5, Y: -0.5, Z: -0.5}, d)
	b := n.Bounds()
	assert.Equal(t, v3.Vec{X: -0.5, Y: -0.5, Z: -0.5}, b.Min)
	assert.Equal(t, v3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, b.Max)
}

func TestExplicitCellMovesWithNetwork(t *testing.T) {
	n := MustNew(3, []v3.Vec{{X: 0.5, Y: 0.5, Z: 0.5}}, nil)
	n.SetCell(sdf.Box3{Max: v3.Vec{X: 1, Y: 1, Z: 1}})
	n.CenterAtOrigin()
	assert.Equal(t, v3.Vec{}, n.Vertices[0])
	assert.Equal(t, v3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, n.Bounds().Max)
}

func TestCloneCopiesAttributes(t *testing.T) {
	n := squareFrame()
	n.SetVertexAttribute("w", []float64{1, 2, 3, 4})
	c := n.Clone()
	c.Vertices[0].X = 9
	w, ok := c.VertexAttribute("w")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2, 3, 4}, w)
	assert.Equal(t, 0.0, n.Vertices[0].X)
	assert.Equal(t, []string{"w"}, c.VertexAttributeNames())
}

func TestPeriodicOrbits(t *testing.T) {
	tests := []struct {
		name         string
		net          *Network
		vertexOrbits int
		edgeOrbits   int
	}{
		{"cube frame", cubeFrame(), 1, 3},
		{"square frame", squareFrame(), 1, 2},
		{
			"diagonal",
			MustNew(3, []v3.Vec{{}, {X: 1, Y: 1, Z: 1}}, [][2]int{{0, 1}}),
			1, 1,
		},
		{
			"centered star",
			MustNew(2, []v3.Vec{{X: 0.5, Y: 0.5}, {X: 0, Y: 0.5}, {X: 1, Y: 0.5}},
				[][2]int{{0, 1}, {0, 2}}),
			2, 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vo, eo := tt.net.PeriodicOrbits(0)
			assert.Equal(t, tt.vertexOrbits, OrbitCount(vo))
			assert.Equal(t, tt.edgeOrbits, OrbitCount(eo))

			vo2, eo2 := tt.net.Orbits()
			assert.Equal(t, vo, vo2)
			assert.Equal(t, eo, eo2)
		})
	}
}

func TestCubeEdgeOrbitsFollowAxis(t *testing.T) {
	n := cubeFrame()
	_, eo := n.PeriodicOrbits(0)
	for i := range n.Edges {
		for j := range n.Edges {
			same := n.EdgeVector(i) == n.EdgeVector(j)
			assert.Equal(t, same, eo[i] == eo[j], "edges %d and %d", i, j)
		}
	}
}

func TestTile3D(t *testing.T) {
	n := cubeFrame()
	n.PeriodicOrbits(0)
	tiled, err := n.Tile([3]int{3, 3, 3})
	require.NoError(t, err)

	assert.Len(t, tiled.Vertices, 64)
	assert.Len(t, tiled.Edges, 144)
	assert.Equal(t, v3.Vec{X: 3, Y: 3, Z: 3}, tiled.Bounds().Max)

	vo, ok := tiled.VertexAttribute(VertexOrbitAttribute)
	require.True(t, ok)
	assert.Len(t, vo, 64)
	for _, o := range vo {
		assert.Equal(t, 0.0, o)
	}
	eo, ok := tiled.EdgeAttribute(EdgeOrbitAttribute)
	require.True(t, ok)
	assert.Len(t, eo, 144)
}

func TestTile2DIgnoresZ(t *testing.T) {
	tiled, err := squareFrame().Tile([3]int{2, 2, 5})
	require.NoError(t, err)
	assert.Len(t, tiled.Vertices, 9)
	assert.Len(t, tiled.Edges, 12)
	for _, v := range tiled.Vertices {
		assert.Equal(t, 0.0, v.Z)
	}
}

func TestTileWithGuideScales(t *testing.T) {
	guide := sdf.Box3{Min: v3.Vec{X: -1, Y: -1}, Max: v3.Vec{X: 1, Y: 1}}
	tiled, err := squareFrame().TileWithGuide(guide, [3]int{1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, v3.Vec{X: -1, Y: -1}, tiled.Vertices[0])
	assert.Equal(t, v3.Vec{X: 1, Y: 1}, tiled.Vertices[2])
}

func TestTileErrors(t *testing.T) {
	_, err := cubeFrame().Tile([3]int{0, 1, 1})
	assert.Error(t, err)

	flat := MustNew(3, []v3.Vec{{}, {X: 1}}, [][2]int{{0, 1}})
	_, err = flat.Tile([3]int{2, 2, 2})
	assert.ErrorIs(t, err, ErrDegenerateCell)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		net      *Network
		errors   int
		warnings int
	}{
		{"clean cube", cubeFrame(), 0, 0},
		{
			"self loop",
			&Network{Dim: 2, Vertices: []v3.Vec{{}, {X: 1, Y: 1}}, Edges: [][2]int{{0, 1}, {1, 1}}},
			1, 0,
		},
		{
			"duplicate edge",
			&Network{Dim: 2, Vertices: []v3.Vec{{}, {X: 1, Y: 1}}, Edges: [][2]int{{0, 1}, {1, 0}}},
			1, 0,
		},
		{
			"out of range",
			&Network{Dim: 2, Vertices: []v3.Vec{{}, {X: 1, Y: 1}}, Edges: [][2]int{{0, 1}, {0, 7}}},
			1, 0,
		},
		{
			"zero length",
			&Network{Dim: 2, Vertices: []v3.Vec{{}, {X: 1, Y: 1}, {X: 1, Y: 1}}, Edges: [][2]int{{0, 1}, {1, 2}}},
			1, 0,
		},
		{
			"isolated vertex",
			&Network{Dim: 2, Vertices: []v3.Vec{{}, {X: 1, Y: 1}, {X: 0.5, Y: 0.5}}, Edges: [][2]int{{0, 1}}},
			0, 1,
		},
		{
			"flat cell",
			&Network{Dim: 3, Vertices: []v3.Vec{{}, {X: 1, Y: 1}}, Edges: [][2]int{{0, 1}}},
			0, 1,
		},
		{"empty", &Network{Dim: 3}, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Validate(tt.net)
			assert.Len(t, r.Errors, tt.errors, "errors: %v", r.Errors)
			assert.Len(t, r.Warnings, tt.warnings, "warnings: %v", r.Warnings)
			assert.Equal(t, tt.errors == 0, r.OK())
			if tt.errors > 0 {
				assert.Error(t, r.Err())
			} else {
				assert.NoError(t, r.Err())
			}
		})
	}
}

func TestValidateVertexOutsideCell(t *testing.T) {
	n := squareFrame()
	n.SetCell(sdf.Box3{Max: v3.Vec{X: 0.5, Y: 1}})
	r := Validate(n)
	assert.True(t, r.OK())
	assert.Len(t, r.Warnings, 2)
	assert.Equal(t, "[warning] vertex 1: lies outside the cell", r.Warnings[0].Error())
}

func TestReadWrite(t *testing.T) {
	src := `# square
v 0 0
v 1 0
v 1 1
v 0 1

l 1 2
l 2 3
l 3 4
l 4 1
`
	n, err := Read(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, 2, n.Dim)
	assert.Len(t, n.Vertices, 4)
	assert.Equal(t, [2]int{3, 0}, n.Edges[3])

	var sb strings.Builder
	require.NoError(t, Write(&sb, n))
	assert.Equal(t, "v 0 0\nv 1 0\nv 1 1\nv 0 1\nl 1 2\nl 2 3\nl 3 4\nl 4 1\n", sb.String())

	n3, err := Read(strings.NewReader("v 0 0 0\nv 1 1 1\nl 1 2\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, n3.Dim)
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  string
	}{
		{"bad record", "v 0 0\nf 1 2 3\n", "line 2"},
		{"bad coordinate", "v 0 x\n", "line 1"},
		{"short vertex", "v 0\n", "line 1"},
		{"bad index", "v 0 0\nv 1 1\nl 1 b\n", "line 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input))
			require.ErrorIs(t, err, ErrSyntax)
			assert.Contains(t, err.Error(), tt.line)
		})
	}

	_, err := Read(strings.NewReader("v 0 0\nl 1 3\n"))
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestSaveLoad(t *testing.T) {
	path := t.TempDir() + "/cube.wire"
	require.NoError(t, Save(path, cubeFrame()))
	n, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cubeFrame().Vertices, n.Vertices)
	assert.Equal(t, cubeFrame().Edges, n.Edges)
}
