package profile

import (
	"math"
	"sort"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/mat"
)

// Sample is one calibration measurement: a beam designed with half sizes
// Design came out with half sizes Measured.
type Sample struct {
	Design   [2]float64 `yaml:"design"`
	Measured [2]float64 `yaml:"measured"`
}

// CorrectionTable maps target (measured) half sizes back to the design
// sizes that produce them.
type CorrectionTable struct {
	Samples []Sample `yaml:"samples"`
}

// NewCorrectionTable copies samples into a table.
func NewCorrectionTable(samples []Sample) *CorrectionTable {
	return &CorrectionTable{Samples: append([]Sample(nil), samples...)}
}

// Lookup returns the design half sizes expected to produce the target
// half sizes (w, h). Inside the triangle of the three nearest measured
// samples the design sizes are interpolated barycentrically; outside it,
// or when those samples are collinear, the nearest sample's offset is
// applied. Tables with fewer than three samples always use the nearest
// offset; an empty table returns the target unchanged.
func (t *CorrectionTable) Lookup(w, h float64) (float64, float64) {
	if t == nil || len(t.Samples) == 0 {
		return w, h
	}
	near := t.nearest(w, h, 3)
	s0 := t.Samples[near[0]]
	fallback := func() (float64, float64) {
		return w - s0.Measured[0] + s0.Design[0], h - s0.Measured[1] + s0.Design[1]
	}
	if len(near) < 3 {
		return fallback()
	}
	s1, s2 := t.Samples[near[1]], t.Samples[near[2]]

	a := mat.NewDense(2, 2, []float64{
		s1.Measured[0] - s0.Measured[0], s2.Measured[0] - s0.Measured[0],
		s1.Measured[1] - s0.Measured[1], s2.Measured[1] - s0.Measured[1],
	})
	scale := math.Max(a.Norm(math.Inf(1)), 1e-300)
	if math.Abs(mat.Det(a)) <= 1e-12*scale*scale {
		return fallback()
	}
	b := mat.NewVecDense(2, []float64{w - s0.Measured[0], h - s0.Measured[1]})
	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return fallback()
	}
	l1, l2 := x.AtVec(0), x.AtVec(1)
	l0 := 1 - l1 - l2
	const eps = -1e-12
	if l0 < eps || l1 < eps || l2 < eps {
		return fallback()
	}
	return l0*s0.Design[0] + l1*s1.Design[0] + l2*s2.Design[0],
		l0*s0.Design[1] + l1*s1.Design[1] + l2*s2.Design[1]
}

// Correct evaluates the table for (w, h) and for the swapped pair (h, w)
// and averages the two, so that width and height are corrected the same
// way regardless of which side of the beam is called which.
func (t *CorrectionTable) Correct(w, h float64) (float64, float64) {
	w1, h1 := t.Lookup(w, h)
	h2, w2 := t.Lookup(h, w)
	return (w1 + w2) / 2, (h1 + h2) / 2
}

// nearest returns up to k sample indices ordered by squared distance of the
// measured size to (w, h), ties broken by index.
func (t *CorrectionTable) nearest(w, h float64, k int) []int {
	idx := make([]int, len(t.Samples))
	d := make([]float64, len(t.Samples))
	for i, s := range t.Samples {
		idx[i] = i
		dw, dh := s.Measured[0]-w, s.Measured[1]-h
		d[i] = dw*dw + dh*dh
	}
	sort.SliceStable(idx, func(a, b int) bool { return d[idx[a]] < d[idx[b]] })
	if len(idx) > k {
		idx = idx[:k]
	}
	return idx
}

// Correction applies a table to placed 3D loops. A point whose displacement
// has a component larger than Max has the whole displacement scaled down
// until that component equals Max, so its direction is kept and the point
// stays in the section plane. Smaller components shrink with it rather than
// being clamped on their own.
type Correction struct {
	Table *CorrectionTable
	Max   float64
}

// Apply corrects loop in place. center is the loop center and dir the edge
// direction. The loop is measured in the cross-section basis (u horizontal,
// w = dir x u), its half extents corrected and each point rescaled.
func (c *Correction) Apply(loop []v3.Vec, center, dir v3.Vec) {
	if c == nil || c.Table == nil || c.Max <= 0 || len(loop) == 0 {
		return
	}
	dir = dir.Normalize()
	u := v3.Vec{Z: 1}.Cross(dir)
	if u.Length() < 1e-12 {
		u = v3.Vec{X: 1}
	}
	u = u.Normalize()
	w := dir.Cross(u)

	var ha, hb float64
	for _, p := range loop {
		q := p.Sub(center)
		ha = math.Max(ha, math.Abs(q.Dot(u)))
		hb = math.Max(hb, math.Abs(q.Dot(w)))
	}
	if ha == 0 || hb == 0 {
		return
	}
	ca, cb := c.Table.Correct(ha, hb)
	for i, p := range loop {
		q := p.Sub(center)
		a, b := q.Dot(u), q.Dot(w)
		target := center.Add(q.Sub(u.MulScalar(a)).Sub(w.MulScalar(b))).
			Add(u.MulScalar(a * ca / ha)).Add(w.MulScalar(b * cb / hb))
		delta := target.Sub(p)
		if big := math.Max(math.Abs(delta.X), math.Max(math.Abs(delta.Y), math.Abs(delta.Z))); big > c.Max {
			delta = delta.MulScalar(c.Max / big)
		}
		loop[i] = p.Add(delta)
	}
}
