// Package triangle implements kernel.Triangulator: constrained
// triangulation of regions bounded by closed 2D loops, with optional
// Delaunay edge flipping and maximum-area refinement.
//
// Boundary edges are never split; refinement inserts Steiner points only in
// triangle interiors.
package triangle

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/chazu/lattice/pkg/kernel"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

var (
	// ErrInvalidBoundary is returned when the boundary edges do not form
	// closed simple loops.
	ErrInvalidBoundary = errors.New("triangle: boundary edges do not form closed loops")
	// ErrNoEar is returned when ear clipping cannot make progress, which
	// happens for self-intersecting boundaries.
	ErrNoEar = errors.New("triangle: no ear found")
)

// Compile-time interface check.
var _ kernel.Triangulator = (*Triangulator)(nil)

// Triangulator is the default constrained triangulator.
type Triangulator struct {
	// MaxSteiner bounds the number of refinement points. Zero selects
	// 100000.
	MaxSteiner int
}

// New returns a triangulator with default limits.
func New() *Triangulator {
	return &Triangulator{}
}

// Triangulate fills the region bounded by edges. Loops nested at an odd
// depth are holes.
func (t *Triangulator) Triangulate(points []v2.Vec, edges [][2]int, opts kernel.TriangulateOptions) ([]v2.Vec, [][3]int, error) {
	loops, err := buildLoops(edges)
	if err != nil {
		return nil, nil, err
	}
	if len(loops) == 0 {
		return append([]v2.Vec(nil), points...), nil, nil
	}

	lo, hi := points[loops[0][0]], points[loops[0][0]]
	for _, l := range loops {
		for _, i := range l {
			lo, hi = lo.Min(points[i]), hi.Max(points[i])
		}
	}
	ext := hi.Sub(lo)
	scale := math.Max(ext.X, ext.Y)
	if scale == 0 {
		return nil, nil, fmt.Errorf("%w: zero extent", ErrInvalidBoundary)
	}
	eps := 1e-12 * scale * scale

	var tris [][3]int
	for _, poly := range assemble(points, loops) {
		ts, err := earClip(points, poly, eps)
		if err != nil {
			return nil, nil, err
		}
		tris = append(tris, ts...)
	}

	m := newTMesh(points, tris, edges, eps)
	if opts.ConformingDelaunay || opts.MaxArea > 0 {
		m.legalizeAll()
	}
	if opts.MaxArea > 0 {
		limit := t.MaxSteiner
		if limit <= 0 {
			limit = 100000
		}
		m.refine(opts.MaxArea, limit)
	}
	return m.pts, m.tris, nil
}

// buildLoops walks the undirected edge set into closed vertex cycles.
func buildLoops(edges [][2]int) ([][]int, error) {
	adj := make(map[int][]int)
	seen := make(map[kernel.Edge]bool, len(edges))
	for _, e := range edges {
		if e[0] == e[1] {
			continue
		}
		k := kernel.MakeEdge(e[0], e[1])
		if seen[k] {
			continue
		}
		seen[k] = true
		adj[e[0]] = append(adj[e[0]], e[1])
		adj[e[1]] = append(adj[e[1]], e[0])
	}
	starts := make([]int, 0, len(adj))
	for v, ns := range adj {
		if len(ns) != 2 {
			return nil, fmt.Errorf("%w: vertex %d has degree %d", ErrInvalidBoundary, v, len(ns))
		}
		starts = append(starts, v)
	}
	sort.Ints(starts)

	visited := make(map[int]bool, len(adj))
	var loops [][]int
	for _, s := range starts {
		if visited[s] {
			continue
		}
		loop := []int{s}
		visited[s] = true
		prev, cur := s, adj[s][0]
		for cur != s {
			if visited[cur] {
				return nil, fmt.Errorf("%w: loop through %d does not close", ErrInvalidBoundary, cur)
			}
			visited[cur] = true
			loop = append(loop, cur)
			next := adj[cur][0]
			if next == prev {
				next = adj[cur][1]
			}
			prev, cur = cur, next
		}
		if len(loop) < 3 {
			return nil, fmt.Errorf("%w: loop of %d vertices", ErrInvalidBoundary, len(loop))
		}
		loops = append(loops, loop)
	}
	return loops, nil
}

func orient(a, b, c v2.Vec) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

func loopArea(pts []v2.Vec, loop []int) float64 {
	var a float64
	for k := range loop {
		p, q := pts[loop[k]], pts[loop[(k+1)%len(loop)]]
		a += p.X*q.Y - q.X*p.Y
	}
	return a / 2
}

func insideLoop(pts []v2.Vec, loop []int, p v2.Vec) bool {
	in := false
	for k := range loop {
		a, b := pts[loop[k]], pts[loop[(k+1)%len(loop)]]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := a.X + (p.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if p.X < x {
				in = !in
			}
		}
	}
	return in
}

func reversed(l []int) []int {
	r := make([]int, len(l))
	for i, v := range l {
		r[len(l)-1-i] = v
	}
	return r
}

// assemble orients loops by nesting depth and bridges every hole into its
// enclosing outer loop, returning one simple index polygon per region.
func assemble(pts []v2.Vec, loops [][]int) [][]int {
	depth := make([]int, len(loops))
	parent := make([]int, len(loops))
	for i, l := range loops {
		parent[i] = -1
		best := math.Inf(1)
		for j, o := range loops {
			if i == j || !insideLoop(pts, o, pts[l[0]]) {
				continue
			}
			depth[i]++
			if a := math.Abs(loopArea(pts, o)); a < best {
				best, parent[i] = a, j
			}
		}
	}

	holes := make(map[int][][]int)
	var outers []int
	oriented := make([][]int, len(loops))
	for i, l := range loops {
		ccw := loopArea(pts, l) > 0
		if depth[i]%2 == 0 {
			if !ccw {
				l = reversed(l)
			}
			outers = append(outers, i)
		} else {
			if ccw {
				l = reversed(l)
			}
			holes[parent[i]] = append(holes[parent[i]], l)
		}
		oriented[i] = l
	}

	polys := make([][]int, 0, len(outers))
	for _, o := range outers {
		poly := oriented[o]
		hs := holes[o]
		sort.SliceStable(hs, func(a, b int) bool {
			return pts[rightmost(pts, hs[a])].X > pts[rightmost(pts, hs[b])].X
		})
		for _, h := range hs {
			poly = bridge(pts, poly, h)
		}
		polys = append(polys, poly)
	}
	return polys
}

func rightmost(pts []v2.Vec, loop []int) int {
	best := loop[0]
	for _, i := range loop[1:] {
		if pts[i].X > pts[best].X || (pts[i].X == pts[best].X && pts[i].Y < pts[best].Y) {
			best = i
		}
	}
	return best
}

// bridge splices a CW hole into a CCW outer polygon through a mutually
// visible vertex pair.
func bridge(pts []v2.Vec, outer, hole []int) []int {
	m := rightmost(pts, hole)
	mp := pts[m]

	// Cast a ray from m along +X and find the closest outer edge it hits.
	hitX := math.Inf(1)
	pk := -1
	n := len(outer)
	for k := 0; k < n; k++ {
		a, b := pts[outer[k]], pts[outer[(k+1)%n]]
		if a.Y == b.Y || mp.Y < math.Min(a.Y, b.Y) || mp.Y > math.Max(a.Y, b.Y) {
			continue
		}
		x := a.X + (mp.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
		if x < mp.X || x >= hitX {
			continue
		}
		hitX = x
		switch {
		case a.Y == mp.Y:
			pk = k
		case b.Y == mp.Y:
			pk = (k + 1) % n
		case a.X > b.X:
			pk = k
		default:
			pk = (k + 1) % n
		}
	}
	if pk < 0 {
		// Not enclosed; fall back to the nearest outer vertex.
		best := math.Inf(1)
		for k, i := range outer {
			if d := pts[i].Sub(mp).Length2(); d < best {
				best, pk = d, k
			}
		}
	} else {
		// A reflex vertex inside the triangle (m, hit, p) would occlude p;
		// pick the one with the smallest angle to the ray instead.
		hit := v2.Vec{X: hitX, Y: mp.Y}
		p := pts[outer[pk]]
		bestCos := -2.0
		for k := 0; k < n; k++ {
			q := pts[outer[k]]
			prev, next := pts[outer[(k+n-1)%n]], pts[outer[(k+1)%n]]
			if k == pk || orient(prev, q, next) >= 0 || q.X < mp.X {
				continue
			}
			if !inTriangle(mp, hit, p, q) && !inTriangle(mp, p, hit, q) {
				continue
			}
			d := q.Sub(mp)
			c := d.X / d.Length()
			if c > bestCos {
				bestCos, pk = c, k
			}
		}
	}

	hm := 0
	for k, i := range hole {
		if i == m {
			hm = k
		}
	}
	out := make([]int, 0, len(outer)+len(hole)+2)
	out = append(out, outer[:pk+1]...)
	for k := 0; k <= len(hole); k++ {
		out = append(out, hole[(hm+k)%len(hole)])
	}
	out = append(out, outer[pk])
	out = append(out, outer[pk+1:]...)
	return out
}

// inTriangle reports whether p lies inside or on CCW triangle abc.
func inTriangle(a, b, c, p v2.Vec) bool {
	return orient(a, b, p) >= 0 && orient(b, c, p) >= 0 && orient(c, a, p) >= 0
}

func earClip(pts []v2.Vec, poly []int, eps float64) ([][3]int, error) {
	poly = append([]int(nil), poly...)
	var tris [][3]int
	for len(poly) > 3 {
		n := len(poly)
		ear := -1
		for i := 0; i < n; i++ {
			a, b, c := poly[(i+n-1)%n], poly[i], poly[(i+1)%n]
			if orient(pts[a], pts[b], pts[c]) <= eps {
				continue
			}
			if blocked(pts, poly, a, b, c) {
				continue
			}
			ear = i
			break
		}
		if ear < 0 {
			// Drop a zero-area spike or collinear vertex and retry.
			for i := 0; i < n; i++ {
				a, b, c := poly[(i+n-1)%n], poly[i], poly[(i+1)%n]
				if a == c || math.Abs(orient(pts[a], pts[b], pts[c])) <= eps {
					ear = i
					break
				}
			}
			if ear < 0 {
				return nil, fmt.Errorf("%w: %d vertices left", ErrNoEar, n)
			}
			poly = append(poly[:ear], poly[ear+1:]...)
			continue
		}
		a, b, c := poly[(ear+n-1)%n], poly[ear], poly[(ear+1)%n]
		tris = append(tris, [3]int{a, b, c})
		poly = append(poly[:ear], poly[ear+1:]...)
	}
	if len(poly) == 3 && orient(pts[poly[0]], pts[poly[1]], pts[poly[2]]) > eps {
		tris = append(tris, [3]int{poly[0], poly[1], poly[2]})
	}
	return tris, nil
}

func blocked(pts []v2.Vec, poly []int, a, b, c int) bool {
	pa, pb, pc := pts[a], pts[b], pts[c]
	for _, q := range poly {
		if q == a || q == b || q == c {
			continue
		}
		pq := pts[q]
		if pq == pa || pq == pb || pq == pc {
			continue
		}
		if inTriangle(pa, pb, pc, pq) {
			return true
		}
	}
	return false
}
