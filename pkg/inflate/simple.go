package inflate

import (
	"fmt"
	"math"

	"github.com/chazu/lattice/pkg/kernel"
	"github.com/chazu/lattice/pkg/kernel/hull"
	"github.com/chazu/lattice/pkg/kernel/triangle"
	"github.com/chazu/lattice/pkg/profile"
	"github.com/chazu/lattice/pkg/wire"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// Inflator turns a wire network into a mesh. Accessors return nothing
// until Inflate has succeeded.
type Inflator interface {
	Inflate() error
	Mesh() *kernel.Mesh
	ShapeVelocities() []*mat.Dense
}

// Compile-time interface check.
var _ Inflator = (*SimpleInflator)(nil)

// SimpleInflator inflates a network without periodic clipping.
type SimpleInflator struct {
	net    *wire.Network
	params *Parameters
	opts   Options
	hull   kernel.HullEngine
	tri    kernel.Triangulator

	result *simpleResult
}

// NewSimple returns a SimpleInflator for net.
func NewSimple(net *wire.Network, params *Parameters, opts Options) (*SimpleInflator, error) {
	opts = opts.withDefaults(net.Dim)
	if err := opts.validate(net.Dim); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &SimpleInflator{
		net:    net,
		params: params,
		opts:   opts,
		hull:   hull.New(),
		tri:    triangle.New(),
	}, nil
}

// Inflate builds the mesh, refines it and, when enabled, computes shape
// velocities.
func (s *SimpleInflator) Inflate() error {
	s.result = nil
	res, err := runSimple(s.net, s.params, s.opts, s.hull, s.tri)
	if err != nil {
		return err
	}
	res.mesh, res.velocities = refine(res.mesh, res.velocities, s.opts.Subdivision)
	s.opts.Logger.WithFields(logrus.Fields{
		"stage":    "simple",
		"vertices": len(res.mesh.Vertices),
		"faces":    len(res.mesh.Faces),
	}).Debug("inflated")
	s.result = res
	return nil
}

// Mesh returns the inflated mesh with its face sources, or nil.
func (s *SimpleInflator) Mesh() *kernel.Mesh {
	if s.result == nil {
		return nil
	}
	return kernel.NewMesh(s.net.Dim, s.result.mesh)
}

// TriMesh returns the working mesh, or nil.
func (s *SimpleInflator) TriMesh() *kernel.TriMesh {
	if s.result == nil {
		return nil
	}
	return s.result.mesh
}

// ShapeVelocities returns one velocity matrix per design parameter, or nil
// when they were not requested.
func (s *SimpleInflator) ShapeVelocities() []*mat.Dense {
	if s.result == nil {
		return nil
	}
	return s.result.velocities
}

// DesignParameters lists the parameters the velocities refer to.
func (s *SimpleInflator) DesignParameters() []DesignParameter {
	if s.result == nil {
		return nil
	}
	return s.result.design
}

type simpleResult struct {
	mesh       *kernel.TriMesh
	velocities []*mat.Dense
	design     []DesignParameter
}

// runSimple inflates net without refinement. Face sources are +(v+1) for
// joints and -(e+1) for tubes.
func runSimple(net *wire.Network, params *Parameters, opts Options, he kernel.HullEngine, tri kernel.Triangulator) (*simpleResult, error) {
	if len(net.Vertices) == 0 {
		return nil, fmt.Errorf("%w: empty network", ErrInvalidParameters)
	}
	sk := newSkeleton(net, opts)
	cp := sk.place(params)
	if err := sk.checkEdges(params, opts); err != nil {
		return nil, err
	}
	lay, err := sk.build(params, cp, he, tri)
	if err != nil {
		return nil, err
	}
	res := &simpleResult{mesh: &kernel.TriMesh{
		Vertices: evalStencil(lay.stencil, cp),
		Faces:    lay.faces,
		Sources:  lay.sources,
	}}
	if opts.ComputeShapeVelocity {
		nt := wire.OrbitCount(sk.vorb)
		if params.ThicknessType == ThicknessPerEdge {
			nt = wire.OrbitCount(sk.eorb)
		}
		res.design = DesignParameters(nt, wire.OrbitCount(sk.vorb), net.Dim)
		res.velocities = sk.velocities(params, lay.stencil, res.design)
	}
	return res, nil
}

// term is one weighted control point of a vertex stencil.
type term struct {
	index  int
	weight float64
}

// skeleton fixes the control-point layout of a network: two loops per
// edge, then the wire vertices, then one block of loops per isolated
// vertex. Control points move with the design parameters; the layout does
// not.
type skeleton struct {
	net        *wire.Network
	dim        int
	prof       *profile.Profile
	corr       *profile.Correction
	maxCorr    float64
	vorb, eorb []int
	loopSize   int
	loopBase   [][2]int // per edge: first control point of the loop at each end
	vertexBase int
	isoBase    map[int]int
	isoDirs    []v3.Vec
	count      int
}

func newSkeleton(net *wire.Network, opts Options) *skeleton {
	s := &skeleton{
		net:      net,
		dim:      net.Dim,
		prof:     opts.Profile,
		corr:     opts.Correction,
		maxCorr:  opts.maxCorrection(),
		loopSize: opts.Profile.Size(),
		loopBase: make([][2]int, len(net.Edges)),
		isoBase:  make(map[int]int),
	}
	s.vorb, s.eorb = elementOrbits(net)
	idx := 0
	for e := range net.Edges {
		s.loopBase[e] = [2]int{idx, idx + s.loopSize}
		idx += 2 * s.loopSize
	}
	s.vertexBase = idx
	idx += len(net.Vertices)

	for a := 0; a < s.dim; a++ {
		s.isoDirs = append(s.isoDirs, kernel.Unit(a), kernel.Unit(a).Neg())
	}
	for v := range net.Vertices {
		if net.Degree(v) == 0 {
			s.isoBase[v] = idx
			idx += len(s.isoDirs) * s.loopSize
		}
	}
	s.count = idx
	return s
}

// loopOf returns the loop a control point belongs to, or -1.
func (s *skeleton) loopOf(id int) int {
	if id < s.vertexBase {
		return id / s.loopSize
	}
	return -1
}

// endOf returns which end of edge e is vertex v.
func (s *skeleton) endOf(e, v int) int {
	if s.net.Edges[e][0] == v {
		return 0
	}
	return 1
}

func (s *skeleton) edgeThickness(p *Parameters, e, end int) float64 {
	if p.ThicknessType == ThicknessPerEdge {
		return p.ThicknessOf(s.eorb[e])
	}
	return p.ThicknessOf(s.vorb[s.net.Edges[e][end]])
}

// vertexThickness is the thickest beam meeting at v.
func (s *skeleton) vertexThickness(p *Parameters, v int) float64 {
	es := s.net.IncidentEdges(v)
	if len(es) == 0 {
		if p.ThicknessType == ThicknessPerEdge {
			return p.DefaultThickness
		}
		return p.ThicknessOf(s.vorb[v])
	}
	return lo.Max(lo.Map(es, func(e int, _ int) float64 {
		return s.edgeThickness(p, e, s.endOf(e, v))
	}))
}

func (s *skeleton) positions(p *Parameters) []v3.Vec {
	pos := make([]v3.Vec, len(s.net.Vertices))
	for i, v := range s.net.Vertices {
		pos[i] = v.Add(p.OffsetOf(s.vorb[i]))
		if s.dim == 2 {
			pos[i].Z = 0
		}
	}
	return pos
}

func (s *skeleton) minAngle(pos []v3.Vec, v int) float64 {
	es := s.net.IncidentEdges(v)
	best := math.Pi
	for i := 0; i < len(es); i++ {
		di := pos[s.net.Other(es[i], v)].Sub(pos[v]).Normalize()
		for j := i + 1; j < len(es); j++ {
			dj := pos[s.net.Other(es[j], v)].Sub(pos[v]).Normalize()
			if a := math.Acos(math.Max(-1, math.Min(1, di.Dot(dj)))); a < best {
				best = a
			}
		}
	}
	return best
}

// offsets returns, per vertex, how far along each incident edge its end
// loops sit: far enough that the loops of neighbouring beams, even after
// maximal correction, cannot touch. Vertices of degree below two get 0.
func (s *skeleton) offsets(p *Parameters, pos []v3.Vec) []float64 {
	off := make([]float64, len(pos))
	for v := range pos {
		if s.net.Degree(v) < 2 {
			continue
		}
		t := s.vertexThickness(p, v)
		half := s.minAngle(pos, v) / 2
		off[v] = 0.5*(t+math.Sqrt2*s.maxCorr)/math.Tan(half) + 1e-2*t
	}
	return off
}

// place computes every control point for parameters p.
func (s *skeleton) place(p *Parameters) []v3.Vec {
	pos := s.positions(p)
	off := s.offsets(p, pos)
	cp := make([]v3.Vec, s.count)
	for e, ed := range s.net.Edges {
		a, b := pos[ed[0]], pos[ed[1]]
		l := b.Sub(a).Length()
		copy(cp[s.loopBase[e][0]:], s.prof.Place(a, b, off[ed[0]], s.edgeThickness(p, e, 0), s.corr))
		copy(cp[s.loopBase[e][1]:], s.prof.Place(a, b, l-off[ed[1]], s.edgeThickness(p, e, 1), s.corr))
	}
	copy(cp[s.vertexBase:], pos)
	for v, base := range s.isoBase {
		t := s.vertexThickness(p, v)
		for k, d := range s.isoDirs {
			copy(cp[base+k*s.loopSize:], s.prof.Place(pos[v], pos[v].Add(d), 0, t, nil))
		}
	}
	return cp
}

// checkEdges rejects edges shorter than the sum of their end offsets, or
// only warns about them in best-effort mode.
func (s *skeleton) checkEdges(p *Parameters, opts Options) error {
	pos := s.positions(p)
	off := s.offsets(p, pos)
	for e, ed := range s.net.Edges {
		l := pos[ed[1]].Sub(pos[ed[0]]).Length()
		need := off[ed[0]] + off[ed[1]]
		if l > need {
			continue
		}
		err := &ShortEdgeError{Edge: e, Length: l, Required: need}
		if opts.FailOnShortEdge {
			return err
		}
		opts.Logger.WithFields(logrus.Fields{
			"edge":     e,
			"length":   l,
			"required": need,
		}).Warn("edge too short; joints will overlap")
	}
	return nil
}

// layout is the fixed topology of a simple inflation: faces over output
// vertices, and the stencil expressing every output vertex in control
// points.
type layout struct {
	faces   [][3]int
	sources []int
	stencil [][]term
}

func (l *layout) add(a, b, c, source int) {
	l.faces = append(l.faces, [3]int{a, b, c})
	l.sources = append(l.sources, source)
}

// build derives the topology from the control points cp.
func (s *skeleton) build(p *Parameters, cp []v3.Vec, he kernel.HullEngine, tri kernel.Triangulator) (*layout, error) {
	lay := &layout{stencil: make([][]term, s.count)}
	for i := range lay.stencil {
		lay.stencil[i] = []term{{index: i, weight: 1}}
	}

	for v := range s.net.Vertices {
		var err error
		switch deg := s.net.Degree(v); {
		case deg == 0:
			ids := lo.Range(len(s.isoDirs) * s.loopSize)
			for i := range ids {
				ids[i] += s.isoBase[v]
			}
			err = s.joint(lay, cp, uniquePoints(cp, ids), v, he, tri)
		case deg == 1:
			if s.dim == 3 {
				e := s.net.IncidentEdges(v)[0]
				s.cap(lay, e, s.endOf(e, v), v)
			}
		default:
			ids := []int{s.vertexBase + v}
			for _, e := range s.net.IncidentEdges(v) {
				base := s.loopBase[e][s.endOf(e, v)]
				for k := 0; k < s.loopSize; k++ {
					ids = append(ids, base+k)
				}
			}
			err = s.joint(lay, cp, ids, v, he, tri)
		}
		if err != nil {
			return nil, fmt.Errorf("inflate: joint at vertex %d: %w", v, err)
		}
	}

	for e := range s.net.Edges {
		avg := 0.5 * (s.edgeThickness(p, e, 0) + s.edgeThickness(p, e, 1))
		s.tube(lay, e, max(1, int(math.Round(s.tubeLength(cp, e)/avg))))
	}
	lay.compact()
	return lay, nil
}

// tubeLength is the distance between the centroids of the end loops of
// edge e, which is shorter than the edge by the joint offsets.
func (s *skeleton) tubeLength(cp []v3.Vec, e int) float64 {
	centroid := func(base int) v3.Vec {
		var c v3.Vec
		for k := 0; k < s.loopSize; k++ {
			c = c.Add(cp[base+k])
		}
		return c.DivScalar(float64(s.loopSize))
	}
	return centroid(s.loopBase[e][1]).Sub(centroid(s.loopBase[e][0])).Length()
}

// uniquePoints drops ids whose point repeats an earlier one exactly.
func uniquePoints(cp []v3.Vec, ids []int) []int {
	seen := make(map[v3.Vec]bool, len(ids))
	return lo.Filter(ids, func(id int, _ int) bool {
		if seen[cp[id]] {
			return false
		}
		seen[cp[id]] = true
		return true
	})
}

// joint closes vertex v with the convex hull of the control points ids.
// Hull faces spanning a single loop are dropped: the tube continues there.
func (s *skeleton) joint(lay *layout, cp []v3.Vec, ids []int, v int, he kernel.HullEngine, tri kernel.Triangulator) error {
	if s.dim == 2 {
		pts := lo.Map(ids, func(id int, _ int) v2.Vec { return v2.Vec{X: cp[id].X, Y: cp[id].Y} })
		poly, err := he.Hull2(pts)
		if err != nil {
			return err
		}
		ring := make([]v2.Vec, len(poly))
		edges := make([][2]int, len(poly))
		for i, k := range poly {
			ring[i] = pts[k]
			edges[i] = [2]int{i, (i + 1) % len(poly)}
		}
		out, tris, err := tri.Triangulate(ring, edges, kernel.TriangulateOptions{NoSteinerOnBoundary: true})
		if err != nil {
			return err
		}
		if len(out) != len(ring) {
			return fmt.Errorf("triangulator inserted %d points", len(out)-len(ring))
		}
		for _, t := range tris {
			lay.add(ids[poly[t[0]]], ids[poly[t[1]]], ids[poly[t[2]]], v+1)
		}
		return nil
	}

	pts := lo.Map(ids, func(id int, _ int) v3.Vec { return cp[id] })
	h, err := he.Hull3(pts)
	if err != nil {
		return err
	}
	for _, f := range h.Faces {
		a, b, c := ids[h.Index[f[0]]], ids[h.Index[f[1]]], ids[h.Index[f[2]]]
		if la := s.loopOf(a); la >= 0 && la == s.loopOf(b) && la == s.loopOf(c) {
			continue
		}
		lay.add(a, b, c, v+1)
	}
	return nil
}

// cap closes the loop at a degree-one vertex with a flat fan.
func (s *skeleton) cap(lay *layout, e, end, v int) {
	base := s.loopBase[e][end]
	for k := 1; k+1 < s.loopSize; k++ {
		if end == 0 {
			lay.add(base, base+k+1, base+k, v+1)
		} else {
			lay.add(base, base+k, base+k+1, v+1)
		}
	}
}

// tube connects the two loops of edge e with n segments. Intermediate rings
// interpolate the end loops linearly.
func (s *skeleton) tube(lay *layout, e, n int) {
	b0, b1 := s.loopBase[e][0], s.loopBase[e][1]
	rings := make([][]int, n+1)
	rings[0] = lo.Map(lo.Range(s.loopSize), func(k int, _ int) int { return b0 + k })
	rings[n] = lo.Map(lo.Range(s.loopSize), func(k int, _ int) int { return b1 + k })
	for r := 1; r < n; r++ {
		lambda := float64(r) / float64(n)
		rings[r] = make([]int, s.loopSize)
		for k := range rings[r] {
			rings[r][k] = len(lay.stencil)
			lay.stencil = append(lay.stencil, []term{
				{index: b0 + k, weight: 1 - lambda},
				{index: b1 + k, weight: lambda},
			})
		}
	}

	src := -(e + 1)
	for r := 0; r < n; r++ {
		cur, next := rings[r], rings[r+1]
		if s.dim == 2 {
			lay.add(cur[0], next[0], next[1], src)
			lay.add(cur[0], next[1], cur[1], src)
			continue
		}
		for k := range cur {
			k1 := (k + 1) % len(cur)
			lay.add(cur[k], cur[k1], next[k1], src)
			lay.add(cur[k], next[k1], next[k], src)
		}
	}
}

// compact drops output vertices no face uses.
func (l *layout) compact() {
	used := make([]bool, len(l.stencil))
	for _, f := range l.faces {
		used[f[0]], used[f[1]], used[f[2]] = true, true, true
	}
	remap := make([]int, len(l.stencil))
	var stencil [][]term
	for i, row := range l.stencil {
		if !used[i] {
			remap[i] = -1
			continue
		}
		remap[i] = len(stencil)
		stencil = append(stencil, row)
	}
	for i, f := range l.faces {
		l.faces[i] = [3]int{remap[f[0]], remap[f[1]], remap[f[2]]}
	}
	l.stencil = stencil
}

func evalStencil(stencil [][]term, cp []v3.Vec) []v3.Vec {
	out := make([]v3.Vec, len(stencil))
	for i, row := range stencil {
		for _, t := range row {
			out[i] = out[i].Add(cp[t.index].MulScalar(t.weight))
		}
	}
	return out
}

// velocities differentiates the stencil positions with respect to every
// design parameter by central differences.
func (s *skeleton) velocities(p *Parameters, stencil [][]term, design []DesignParameter) []*mat.Dense {
	h := 1e-6 * p.MaxThickness()
	out := make([]*mat.Dense, len(design))
	for j, d := range design {
		plus := evalStencil(stencil, s.place(p.perturbed(d, h)))
		minus := evalStencil(stencil, s.place(p.perturbed(d, -h)))
		out[j] = velocityMatrix(plus, minus, 2*h, s.dim)
	}
	return out
}

func velocityMatrix(plus, minus []v3.Vec, step float64, dim int) *mat.Dense {
	m := mat.NewDense(max(1, len(plus)), dim, nil)
	for i := range plus {
		d := plus[i].Sub(minus[i]).DivScalar(step)
		m.Set(i, 0, d.X)
		m.Set(i, 1, d.Y)
		if dim == 3 {
			m.Set(i, 2, d.Z)
		}
	}
	return m
}
