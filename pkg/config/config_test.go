package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/lattice/pkg/inflate"
	"github.com/chazu/lattice/pkg/kernel/boxclip"
	"github.com/chazu/lattice/pkg/profile"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jobYAML = `
mode: periodic
profile:
  shape: hexagon
thickness:
  type: edge
  default: 0.2
  orbits:
    - orbit: 1
      value: 0.3
offsets:
  - orbit: 0
    offset: [0.01, 0, -0.02]
subdivision:
  algorithm: loop
  order: 2
correction:
  table: table.csv
  max: 0.05
fail_on_short_edge: false
compute_shape_velocity: true
`

const jobTOML = `
mode = "isotropic"
max_boundary_edge_length = 0.25

[thickness]
default = 0.15

[[offsets]]
orbit = 2
offset = [0.1, 0.2]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "table.csv", "design_w,design_h,measured_w,measured_h\n1,1,0.9,0.9\n")
	cfg, err := Load(writeFile(t, dir, "job.yaml", jobYAML))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "periodic", cfg.Mode)
	assert.Equal(t, boxclip.Name, cfg.BooleanEngine)
	require.NotNil(t, cfg.FailOnShortEdge)
	assert.False(t, *cfg.FailOnShortEdge)

	mode, err := cfg.InflateMode()
	require.NoError(t, err)
	assert.Equal(t, inflate.ModePeriodic, mode)

	p, err := cfg.Parameters()
	require.NoError(t, err)
	assert.Equal(t, inflate.ThicknessPerEdge, p.ThicknessType)
	assert.Equal(t, 0.2, p.ThicknessOf(0))
	assert.Equal(t, 0.3, p.ThicknessOf(1))
	assert.Equal(t, v3.Vec{X: 0.01, Z: -0.02}, p.OffsetOf(0))

	opts, err := cfg.Options(3, nil)
	require.NoError(t, err)
	assert.Equal(t, profile.ShapePolygon, opts.Profile.Shape())
	assert.Equal(t, 6, opts.Profile.Size())
	assert.Equal(t, inflate.Subdivision{Algorithm: inflate.SubdivisionLoop, Order: 2}, opts.Subdivision)
	assert.False(t, opts.FailOnShortEdge)
	assert.True(t, opts.ComputeShapeVelocity)
	require.NotNil(t, opts.Correction)
	assert.Equal(t, 0.05, opts.Correction.Max)
	assert.Len(t, opts.Correction.Table.Samples, 1)
	assert.NotNil(t, opts.Logger)
}

func TestLoadTOML(t *testing.T) {
	cfg, err := Load(writeFile(t, t.TempDir(), "job.toml", jobTOML))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "isotropic", cfg.Mode)
	assert.Equal(t, "square", cfg.Profile.Shape)
	assert.Equal(t, 0.25, cfg.MaxBoundaryEdgeLength)

	p, err := cfg.Parameters()
	require.NoError(t, err)
	assert.Equal(t, inflate.ThicknessPerVertex, p.ThicknessType)
	assert.Equal(t, v3.Vec{X: 0.1, Y: 0.2}, p.OffsetOf(2))

	opts, err := cfg.Options(3, nil)
	require.NoError(t, err)
	assert.True(t, opts.FailOnShortEdge)
	assert.Nil(t, opts.Correction)
	assert.Equal(t, 0.25, opts.MaxBoundaryEdgeLength)
}

func TestLoadUnknownFormat(t *testing.T) {
	_, err := Load(writeFile(t, t.TempDir(), "job.ini", "mode=simple"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestLoadMissingTable(t *testing.T) {
	cfg, err := Load(writeFile(t, t.TempDir(), "job.yaml", "correction:\n  table: missing.csv\n"))
	require.NoError(t, err)
	_, err = cfg.Options(3, nil)
	assert.ErrorContains(t, err, "correction table")
}

func TestEmptyFileGetsDefaults(t *testing.T) {
	cfg, err := Read(strings.NewReader(""), FormatYAML)
	require.NoError(t, err)
	def := DefaultConfig()
	assert.Equal(t, def.Mode, cfg.Mode)
	assert.Equal(t, def.Thickness, cfg.Thickness)
	assert.Equal(t, *def.FailOnShortEdge, *cfg.FailOnShortEdge)
	assert.NoError(t, cfg.Validate())
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = "voxel"
	cfg.Dimension = 4
	cfg.Thickness.Default = -1
	cfg.Subdivision.Algorithm = "catmull"
	cfg.BooleanEngine = "cork"

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, inflate.ErrUnsupportedMode)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	for _, want := range []string{"voxel", "dimension 4", "default thickness", "catmull", "cork"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestOptionsUseSegmentIn2D(t *testing.T) {
	opts, err := DefaultConfig().Options(2, nil)
	require.NoError(t, err)
	assert.Equal(t, profile.ShapeSegment, opts.Profile.Shape())

	cfg := DefaultConfig()
	cfg.Dimension = 2
	opts, err = cfg.Options(3, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, opts.Profile.Dim())
}

func TestWriteThenRead(t *testing.T) {
	for _, format := range []Format{FormatYAML, FormatTOML} {
		t.Run(string(format), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Mode = "periodic"
			cfg.Offsets = []OffsetConfig{{Orbit: 1, Offset: []float64{0.5, 0.25, 0}}}

			var buf bytes.Buffer
			require.NoError(t, cfg.Write(&buf, format))
			got, err := Read(&buf, format)
			require.NoError(t, err)
			assert.Equal(t, cfg, got)
		})
	}
}
