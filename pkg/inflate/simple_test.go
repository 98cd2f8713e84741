package inflate

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/lattice/pkg/kernel"
	"github.com/chazu/lattice/pkg/wire"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietOptions() Options {
	opts := DefaultOptions()
	logger, _ := test.NewNullLogger()
	opts.Logger = logger
	return opts
}

func singleEdge() *wire.Network {
	return wire.MustNew(3, []v3.Vec{{}, {X: 1}}, [][2]int{{0, 1}})
}

func triangleNet() *wire.Network {
	return wire.MustNew(3, []v3.Vec{{}, {X: 1}, {X: 0.5, Y: math.Sqrt(3) / 2}}, [][2]int{{0, 1}, {1, 2}, {2, 0}})
}

func inflateSimple(t *testing.T, net *wire.Network, params *Parameters, opts Options) *SimpleInflator {
	t.Helper()
	s, err := NewSimple(net, params, opts)
	require.NoError(t, err)
	require.NoError(t, s.Inflate())
	return s
}

func TestSimpleSingleEdge(t *testing.T) {
	s := inflateSimple(t, singleEdge(), NewParameters(0.1), quietOptions())
	m := s.TriMesh()

	// Ten tube segments of a square bar capped at both ends.
	assert.Len(t, m.Vertices, 11*4)
	assert.Len(t, m.Faces, 10*8+2*2)
	assert.True(t, m.IsClosed())
	assert.True(t, m.IsConsistentlyOriented())
	// The square of circumradius t/2 has area 2(t/2)^2.
	assert.InDelta(t, 0.005, m.Volume(), 1e-9)

	b := m.Bounds()
	assert.InDelta(t, 0.0, b.Min.X, 1e-12)
	assert.InDelta(t, 1.0, b.Max.X, 1e-12)
}

func TestSimpleFaceSources(t *testing.T) {
	s := inflateSimple(t, singleEdge(), NewParameters(0.1), quietOptions())
	counts := make(map[int]int)
	for _, src := range s.TriMesh().Sources {
		counts[src]++
	}
	assert.Equal(t, map[int]int{-1: 80, 1: 2, 2: 2}, counts)

	mesh := s.Mesh()
	require.NotNil(t, mesh)
	assert.True(t, mesh.HasAttribute(kernel.FaceSourceAttribute))
}

func TestSimpleShortEdgeFatal(t *testing.T) {
	_, err := func() (*SimpleInflator, error) {
		s, err := NewSimple(triangleNet(), NewParameters(0.7), quietOptions())
		if err != nil {
			return nil, err
		}
		return s, s.Inflate()
	}()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEdgeTooShort)

	var short *ShortEdgeError
	require.True(t, errors.As(err, &short))
	assert.Equal(t, 0, short.Edge)
	assert.InDelta(t, 1.0, short.Length, 1e-12)
	assert.Greater(t, short.Required, short.Length)
}

func TestSimpleShortEdgeBestEffort(t *testing.T) {
	opts := quietOptions()
	opts.FailOnShortEdge = false
	logger, hook := test.NewNullLogger()
	opts.Logger = logger

	s := inflateSimple(t, triangleNet(), NewParameters(0.7), opts)
	assert.NotNil(t, s.Mesh())

	var warnings int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	assert.Equal(t, 3, warnings)
}

func TestSimpleFailureDiscardsResult(t *testing.T) {
	params := NewParameters(0.3)
	s := inflateSimple(t, triangleNet(), params, quietOptions())
	require.NotNil(t, s.Mesh())

	params.DefaultThickness = 0.7
	require.ErrorIs(t, s.Inflate(), ErrEdgeTooShort)
	assert.Nil(t, s.Mesh())
	assert.Nil(t, s.TriMesh())
	assert.Nil(t, s.ShapeVelocities())
}

func TestSimpleTriangleJoints(t *testing.T) {
	s := inflateSimple(t, triangleNet(), NewParameters(0.2), quietOptions())
	m := s.TriMesh()
	assert.True(t, m.IsClosed())
	assert.True(t, m.IsConsistentlyOriented())
	assert.Greater(t, m.Volume(), 0.0)
}

func TestSimpleTubeSegmentsFollowLoops(t *testing.T) {
	// Joints at the 60 degree corners sit 0.1/tan(30°)+0.002 along each
	// edge, leaving 0.65 between the loops: three segments of thickness 0.2
	// rather than five over the full edge.
	s := inflateSimple(t, triangleNet(), NewParameters(0.2), quietOptions())
	counts := make(map[int]int)
	for _, src := range s.TriMesh().Sources {
		counts[src]++
	}
	for _, src := range []int{-1, -2, -3} {
		assert.Equal(t, 3*4*2, counts[src], "edge %d", -src-1)
	}
}

func TestSimpleIsolatedVertexBall(t *testing.T) {
	net := wire.MustNew(3, []v3.Vec{{X: 1, Y: 2, Z: 3}}, nil)
	s := inflateSimple(t, net, NewParameters(0.4), quietOptions())
	m := s.TriMesh()

	assert.True(t, m.IsClosed())
	assert.True(t, m.IsConsistentlyOriented())
	for _, v := range m.Vertices {
		assert.InDelta(t, 0.2, v.Sub(v3.Vec{X: 1, Y: 2, Z: 3}).Length(), 1e-9)
	}
	for _, src := range m.Sources {
		assert.Equal(t, 1, src)
	}
}

func TestSimple2DIsCounterClockwise(t *testing.T) {
	net := wire.MustNew(2, []v3.Vec{{}, {X: 1}, {X: 1, Y: 1}}, [][2]int{{0, 1}, {1, 2}})
	s := inflateSimple(t, net, NewParameters(0.1), quietOptions())
	m := s.TriMesh()

	require.NotEmpty(t, m.Faces)
	for i := range m.Faces {
		assert.Greater(t, m.FaceCross(i).Z, 0.0, "face %d", i)
	}
	// Two bars of width 0.1 meeting at a right angle.
	assert.InDelta(t, 0.2, m.SignedArea(), 0.01)
	assert.Equal(t, 2, s.Mesh().Dim)
}

func TestSimpleShapeVelocities(t *testing.T) {
	opts := quietOptions()
	opts.ComputeShapeVelocity = true
	s := inflateSimple(t, singleEdge(), NewParameters(0.1), opts)

	design := s.DesignParameters()
	require.Len(t, design, 2+2*3)
	vel := s.ShapeVelocities()
	require.Len(t, vel, len(design))

	m := s.TriMesh()
	for j, d := range design {
		rows, cols := vel[j].Dims()
		assert.Equal(t, len(m.Vertices), rows)
		assert.Equal(t, 3, cols)

		switch d.String() {
		case "offset[0].y":
			// The end loops turn about Z and move with their centers;
			// interior rings follow linearly.
			for i, v := range m.Vertices {
				assert.InDelta(t, 1-v.X, vel[j].At(i, 1), 1e-6, "vertex %d", i)
				assert.InDelta(t, 0, vel[j].At(i, 2), 1e-6)
			}
		case "thickness[0]":
			for i, v := range m.Vertices {
				if math.Abs(v.X) > 1e-9 {
					continue
				}
				radial := v3.Vec{Y: v.Y, Z: v.Z}.Normalize()
				got := v3.Vec{X: vel[j].At(i, 0), Y: vel[j].At(i, 1), Z: vel[j].At(i, 2)}
				assert.InDelta(t, 0.5, got.Dot(radial), 1e-6, "vertex %d", i)
			}
		}
	}
}

func TestNewSimpleRejectsBadInput(t *testing.T) {
	_, err := NewSimple(singleEdge(), NewParameters(0), quietOptions())
	assert.ErrorIs(t, err, ErrInvalidParameters)

	opts := quietOptions()
	opts.Subdivision.Algorithm = "butterfly"
	_, err = NewSimple(singleEdge(), NewParameters(0.1), opts)
	assert.ErrorIs(t, err, ErrInvalidParameters)
}
