package profile

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
)

func triangleTable() *CorrectionTable {
	return NewCorrectionTable([]Sample{
		{Design: [2]float64{1.0, 1.0}, Measured: [2]float64{0.9, 0.8}},
		{Design: [2]float64{2.0, 1.0}, Measured: [2]float64{1.8, 0.9}},
		{Design: [2]float64{1.0, 2.0}, Measured: [2]float64{0.8, 1.9}},
	})
}

func TestLookupReturnsDesignAtSamples(t *testing.T) {
	table := triangleTable()
	for _, s := range table.Samples {
		w, h := table.Lookup(s.Measured[0], s.Measured[1])
		assert.InDelta(t, s.Design[0], w, 1e-12)
		assert.InDelta(t, s.Design[1], h, 1e-12)
	}
}

func TestLookupInterpolatesLinearly(t *testing.T) {
	table := triangleTable()
	s := table.Samples
	l := [3]float64{0.2, 0.3, 0.5}
	mw := l[0]*s[0].Measured[0] + l[1]*s[1].Measured[0] + l[2]*s[2].Measured[0]
	mh := l[0]*s[0].Measured[1] + l[1]*s[1].Measured[1] + l[2]*s[2].Measured[1]
	w, h := table.Lookup(mw, mh)
	assert.InDelta(t, l[0]*s[0].Design[0]+l[1]*s[1].Design[0]+l[2]*s[2].Design[0], w, 1e-12)
	assert.InDelta(t, l[0]*s[0].Design[1]+l[1]*s[1].Design[1]+l[2]*s[2].Design[1], h, 1e-12)
}

func TestLookupExtrapolatesWithNearestOffset(t *testing.T) {
	table := triangleTable()
	// Far below sample 0: outside the triangle.
	w, h := table.Lookup(0.5, 0.4)
	assert.InDelta(t, 0.5-0.9+1.0, w, 1e-12)
	assert.InDelta(t, 0.4-0.8+1.0, h, 1e-12)
}

func TestLookupDegenerateCases(t *testing.T) {
	var empty *CorrectionTable
	w, h := empty.Lookup(0.3, 0.4)
	assert.Equal(t, 0.3, w)
	assert.Equal(t, 0.4, h)

	two := NewCorrectionTable([]Sample{
		{Design: [2]float64{1, 1}, Measured: [2]float64{0.5, 0.5}},
		{Design: [2]float64{3, 3}, Measured: [2]float64{2.5, 2.5}},
	})
	w, h = two.Lookup(0.6, 0.7)
	assert.InDelta(t, 1.1, w, 1e-12)
	assert.InDelta(t, 1.2, h, 1e-12)

	collinear := NewCorrectionTable([]Sample{
		{Design: [2]float64{1, 1}, Measured: [2]float64{1, 1}},
		{Design: [2]float64{2, 2}, Measured: [2]float64{2, 2}},
		{Design: [2]float64{3, 3}, Measured: [2]float64{3, 3}},
	})
	w, h = collinear.Lookup(1.1, 1.1)
	assert.InDelta(t, 1.1, w, 1e-12)
	assert.InDelta(t, 1.1, h, 1e-12)
}

func TestCorrectIsSymmetric(t *testing.T) {
	table := triangleTable()
	w1, h1 := table.Correct(1.0, 1.2)
	h2, w2 := table.Correct(1.2, 1.0)
	assert.InDelta(t, w1, w2, 1e-12)
	assert.InDelta(t, h1, h2, 1e-12)
}

func TestCorrectionCapScalesWholeDisplacement(t *testing.T) {
	// Designing twice the size yields the target.
	table := NewCorrectionTable([]Sample{
		{Design: [2]float64{0.2, 0.2}, Measured: [2]float64{0.1, 0.1}},
		{Design: [2]float64{1.0, 0.2}, Measured: [2]float64{0.5, 0.1}},
		{Design: [2]float64{0.2, 1.0}, Measured: [2]float64{0.1, 0.5}},
		{Design: [2]float64{1.0, 1.0}, Measured: [2]float64{0.5, 0.5}},
	})
	rect := func() []v3.Vec {
		return []v3.Vec{{Y: 0.1, Z: 0.2}, {Y: -0.1, Z: 0.2}, {Y: -0.1, Z: -0.2}, {Y: 0.1, Z: -0.2}}
	}

	full := rect()
	(&Correction{Table: table, Max: 1}).Apply(full, v3.Vec{}, v3.Vec{X: 1})
	for i, p := range rect() {
		assert.InDelta(t, 2*p.Y, full[i].Y, 1e-12)
		assert.InDelta(t, 2*p.Z, full[i].Z, 1e-12)
	}

	// Uncapped, each corner moves by (0, ±0.1, ±0.2). The Z part hits the
	// cap and the Y part shrinks in proportion instead of staying at 0.05.
	capped := rect()
	(&Correction{Table: table, Max: 0.05}).Apply(capped, v3.Vec{}, v3.Vec{X: 1})
	for i, p := range rect() {
		d := capped[i].Sub(p)
		assert.InDelta(t, 0, d.X, 1e-12)
		assert.InDelta(t, 0.025, math.Abs(d.Y), 1e-12)
		assert.InDelta(t, 0.05, math.Abs(d.Z), 1e-12)
		assert.Equal(t, math.Signbit(p.Y), math.Signbit(d.Y))
	}
}

func TestReadCorrectionText(t *testing.T) {
	src := "design_w,design_h,measured_w,measured_h\n" +
		"1.0, 1.0, 0.9, 0.8\n" +
		"# comment\n\n" +
		"2.0 1.0 1.8 0.9\n"
	table, err := ReadCorrectionText(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, table.Samples, 2)
	assert.Equal(t, [2]float64{1.8, 0.9}, table.Samples[1].Measured)

	_, err = ReadCorrectionText(strings.NewReader("1 1 1 1\n1 1 x 1\n"))
	assert.ErrorIs(t, err, ErrBadTable)
}

func TestReadCorrectionYAML(t *testing.T) {
	src := `samples:
  - design: [1.0, 1.0]
    measured: [0.9, 0.8]
  - design: [2.0, 1.0]
    measured: [1.8, 0.9]
`
	table, err := ReadCorrectionYAML(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, table.Samples, 2)
	assert.Equal(t, [2]float64{2.0, 1.0}, table.Samples[1].Design)

	_, err = ReadCorrectionYAML(strings.NewReader("samples: 3\n"))
	assert.ErrorIs(t, err, ErrBadTable)
}

func TestLoadCorrectionXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.xlsx")
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("calibration")
	require.NoError(t, err)
	header := sheet.AddRow()
	for _, name := range []string{"dw", "dh", "mw", "mh"} {
		header.AddCell().SetString(name)
	}
	for _, s := range triangleTable().Samples {
		row := sheet.AddRow()
		for _, v := range []float64{s.Design[0], s.Design[1], s.Measured[0], s.Measured[1]} {
			row.AddCell().SetFloat(v)
		}
	}
	require.NoError(t, f.Save(path))

	table, err := LoadCorrectionTable(path)
	require.NoError(t, err)
	assert.Equal(t, triangleTable().Samples, table.Samples)
}
