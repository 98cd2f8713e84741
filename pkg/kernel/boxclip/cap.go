package boxclip

import (
	"fmt"
	"math"
	"sort"

	"github.com/chazu/lattice/pkg/kernel"
	"github.com/chazu/lattice/pkg/kernel/triangle"
	"github.com/ctessum/geom"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// PlaneAxes returns the in-plane axes (u, v) for a plane normal to axis,
// ordered so that (u, v, axis) is right-handed.
func PlaneAxes(axis int) (int, int) {
	return (axis + 1) % 3, (axis + 2) % 3
}

// Section returns the closed loops where the plane x[axis] = c cuts the
// closed mesh m. Loops are oriented with the solid on their left when seen
// from the outward side (+axis when max, -axis otherwise). Points on the
// plane count as inside.
func Section(m *kernel.TriMesh, axis int, c float64, max bool) ([][]v3.Vec, error) {
	out := func(p v3.Vec) bool {
		if max {
			return kernel.Coord(p, axis) > c
		}
		return kernel.Coord(p, axis) < c
	}

	next := make(map[kernel.Edge]kernel.Edge)
	point := make(map[kernel.Edge]v3.Vec)
	for _, f := range m.Faces {
		var o [3]bool
		n := 0
		for k := 0; k < 3; k++ {
			if o[k] = out(m.Vertices[f[k]]); o[k] {
				n++
			}
		}
		if n == 0 || n == 3 {
			continue
		}
		var enter, leave kernel.Edge
		for k := 0; k < 3; k++ {
			a, b := f[k], f[(k+1)%3]
			if o[k] == o[(k+1)%3] {
				continue
			}
			e := kernel.MakeEdge(a, b)
			if _, ok := point[e]; !ok {
				point[e] = planeCross(m.Vertices[a], m.Vertices[b], axis, c)
			}
			if o[k] {
				leave = e
			} else {
				enter = e
			}
		}
		next[leave] = enter
	}

	starts := make([]kernel.Edge, 0, len(next))
	for e := range next {
		starts = append(starts, e)
	}
	sort.Slice(starts, func(i, j int) bool {
		if starts[i][0] != starts[j][0] {
			return starts[i][0] < starts[j][0]
		}
		return starts[i][1] < starts[j][1]
	})

	visited := make(map[kernel.Edge]bool, len(next))
	var loops [][]v3.Vec
	for _, s := range starts {
		if visited[s] {
			continue
		}
		var loop []v3.Vec
		for e := s; !visited[e]; {
			visited[e] = true
			p := point[e]
			if len(loop) == 0 || loop[len(loop)-1] != p {
				loop = append(loop, p)
			}
			nx, ok := next[e]
			if !ok {
				return nil, fmt.Errorf("%w: edge %v has no successor", ErrOpenSection, e)
			}
			if visited[nx] && nx != s {
				return nil, fmt.Errorf("%w: edge %v revisited", ErrOpenSection, nx)
			}
			e = nx
		}
		if len(loop) > 1 && loop[0] == loop[len(loop)-1] {
			loop = loop[:len(loop)-1]
		}
		if len(loop) >= 3 {
			loops = append(loops, loop)
		}
	}
	return loops, nil
}

// cap triangulates the part of the box face on plane (axis, max) that lies
// inside the solid m.
func (e *Engine) cap(m *kernel.TriMesh, box sdf.Box3, axis int, max bool) (*kernel.TriMesh, error) {
	c := planeValue(box, axis, max)
	loops, err := Section(m, axis, c, max)
	if err != nil || len(loops) == 0 {
		return nil, err
	}
	u, v := PlaneAxes(axis)
	lo := v2.Vec{X: kernel.Coord(box.Min, u), Y: kernel.Coord(box.Min, v)}
	hi := v2.Vec{X: kernel.Coord(box.Max, u), Y: kernel.Coord(box.Max, v)}

	rings := clipRings(project(loops, u, v), lo, hi)
	return e.fill(rings, axis, c, max)
}

func project(loops [][]v3.Vec, u, v int) [][]v2.Vec {
	out := make([][]v2.Vec, len(loops))
	for i, l := range loops {
		out[i] = make([]v2.Vec, len(l))
		for k, p := range l {
			out[i][k] = v2.Vec{X: kernel.Coord(p, u), Y: kernel.Coord(p, v)}
		}
	}
	return out
}

// clipRings intersects the region bounded by rings (even-odd) with the
// rectangle [lo, hi]. Each ring is wound so the region lies on its left and
// clipped on its own. Pieces running along the rectangle are dropped and
// rebuilt by walking its perimeter counter-clockwise from every exit to the
// next entry, so rings touching an edge or a corner survive.
func clipRings(rings [][]v2.Vec, lo, hi v2.Vec) [][]v2.Vec {
	strict := true
	for _, r := range rings {
		for _, p := range r {
			if p.X <= lo.X || p.X >= hi.X || p.Y <= lo.Y || p.Y >= hi.Y {
				strict = false
			}
		}
	}
	if strict {
		return rings
	}

	rc := rect{lo: lo, hi: hi}
	box := sdf.Box3{Min: v3.Vec{X: lo.X, Y: lo.Y}, Max: v3.Vec{X: hi.X, Y: hi.Y}}
	var out, chains [][]v2.Vec
	enclosing := 0
	for _, r := range orientRings(rings) {
		lifted := make([]v3.Vec, len(r))
		for k, p := range r {
			lifted[k] = v3.Vec{X: p.X, Y: p.Y}
		}
		var ring []v2.Vec
		for _, p := range ClipPolygon(lifted, box, 2) {
			ring = appendPoint(ring, v2.Vec{X: p.X, Y: p.Y})
		}
		ring = trimClosing(ring)
		if len(ring) < 3 {
			continue
		}
		cs, touches := rc.chains(ring)
		switch {
		case !touches:
			out = append(out, ring)
		case len(cs) == 0:
			// Every edge lies on the rectangle: the ring encloses it.
			if ringArea(ring) != 0 {
				enclosing++
			}
		default:
			chains = append(chains, cs...)
		}
	}
	switch {
	case len(chains) > 0:
		out = append(out, rc.close(chains)...)
	case enclosing%2 == 1:
		out = append(out, []v2.Vec{rc.corner(0), rc.corner(1), rc.corner(2), rc.corner(3)})
	}
	return out
}

// orientRings winds rings at even nesting depth counter-clockwise and the
// others clockwise.
func orientRings(rings [][]v2.Vec) [][]v2.Vec {
	polys := make([]geom.Polygon, len(rings))
	for i, r := range rings {
		path := make(geom.Path, len(r))
		for k, p := range r {
			path[k] = geom.Point{X: p.X, Y: p.Y}
		}
		polys[i] = geom.Polygon{path}
	}
	out := make([][]v2.Vec, len(rings))
	for i, r := range rings {
		depth := 0
		for j := range rings {
			if i != j && nestedIn(r, polys[j]) {
				depth++
			}
		}
		if (ringArea(r) > 0) != (depth%2 == 0) {
			rev := make([]v2.Vec, len(r))
			for k, p := range r {
				rev[len(r)-1-k] = p
			}
			r = rev
		}
		out[i] = r
	}
	return out
}

// nestedIn decides from the first vertex of r that is not on outer.
func nestedIn(r []v2.Vec, outer geom.Polygon) bool {
	for _, p := range r {
		switch (geom.Point{X: p.X, Y: p.Y}).Within(outer) {
		case geom.Inside:
			return true
		case geom.Outside:
			return false
		}
	}
	return false
}

func ringArea(r []v2.Vec) float64 {
	var a float64
	for k := range r {
		p, q := r[k], r[(k+1)%len(r)]
		a += p.X*q.Y - q.X*p.Y
	}
	return a / 2
}

func appendPoint(r []v2.Vec, p v2.Vec) []v2.Vec {
	if len(r) > 0 && r[len(r)-1] == p {
		return r
	}
	return append(r, p)
}

func trimClosing(r []v2.Vec) []v2.Vec {
	for len(r) > 1 && r[0] == r[len(r)-1] {
		r = r[:len(r)-1]
	}
	return r
}

// rect is the clip rectangle of a cap.
type rect struct {
	lo, hi v2.Vec
}

// along reports whether segment pq lies on a side of r.
func (r rect) along(p, q v2.Vec) bool {
	if p.X == q.X && (p.X == r.lo.X || p.X == r.hi.X) {
		return true
	}
	return p.Y == q.Y && (p.Y == r.lo.Y || p.Y == r.hi.Y)
}

// perimeter maps a point on the boundary of r to [0, 4), counter-clockwise
// from lo, one unit per side.
func (r rect) perimeter(p v2.Vec) float64 {
	w, h := r.hi.X-r.lo.X, r.hi.Y-r.lo.Y
	switch {
	case p.Y == r.lo.Y && p.X < r.hi.X:
		return (p.X - r.lo.X) / w
	case p.X == r.hi.X && p.Y < r.hi.Y:
		return 1 + (p.Y-r.lo.Y)/h
	case p.Y == r.hi.Y && p.X > r.lo.X:
		return 2 + (r.hi.X-p.X)/w
	default:
		return 3 + (r.hi.Y-p.Y)/h
	}
}

// corner returns corner k of r, counted like perimeter.
func (r rect) corner(k int) v2.Vec {
	switch k % 4 {
	case 0:
		return r.lo
	case 1:
		return v2.Vec{X: r.hi.X, Y: r.lo.Y}
	case 2:
		return r.hi
	default:
		return v2.Vec{X: r.lo.X, Y: r.hi.Y}
	}
}

// chains splits a clipped ring into its runs of edges off the sides of r.
// Each run starts and ends on the boundary. touches is false when no edge
// of the ring lies on a side.
func (r rect) chains(ring []v2.Vec) (chains [][]v2.Vec, touches bool) {
	n := len(ring)
	start := -1
	for k := 0; k < n; k++ {
		if r.along(ring[(k+n-1)%n], ring[k]) && !r.along(ring[k], ring[(k+1)%n]) {
			start = k
			break
		}
	}
	if start < 0 {
		return nil, r.along(ring[0], ring[1])
	}
	var cur []v2.Vec
	for i := 0; i < n; i++ {
		k := (start + i) % n
		p, q := ring[k], ring[(k+1)%n]
		if r.along(p, q) {
			if cur != nil {
				chains = append(chains, cur)
				cur = nil
			}
			continue
		}
		if cur == nil {
			cur = []v2.Vec{p}
		}
		cur = append(cur, q)
	}
	if cur != nil {
		chains = append(chains, cur)
	}
	return chains, true
}

// close joins chains into rings. The region lies left of every chain, so
// from each chain's end it continues counter-clockwise along the boundary
// up to the nearest chain start.
func (r rect) close(chains [][]v2.Vec) [][]v2.Vec {
	n := len(chains)
	next := make([]int, n)
	taken := make([]bool, n)
	gap := func(i, j int) float64 {
		te := r.perimeter(chains[i][len(chains[i])-1])
		return math.Mod(r.perimeter(chains[j][0])-te+4, 4)
	}
	for i := range chains {
		best := -1
		for j := range chains {
			if !taken[j] && (best < 0 || gap(i, j) < gap(i, best)) {
				best = j
			}
		}
		taken[best] = true
		next[i] = best
	}

	var out [][]v2.Vec
	done := make([]bool, n)
	for i := range chains {
		if done[i] {
			continue
		}
		var ring []v2.Vec
		for j := i; !done[j]; j = next[j] {
			done[j] = true
			for _, p := range chains[j] {
				ring = appendPoint(ring, p)
			}
			te := r.perimeter(chains[j][len(chains[j])-1])
			end := te + gap(j, next[j])
			for k := math.Floor(te) + 1; k < end; k++ {
				ring = appendPoint(ring, r.corner(int(k)))
			}
		}
		ring = trimClosing(ring)
		if len(ring) >= 3 && ringArea(ring) != 0 {
			out = append(out, ring)
		}
	}
	return out
}

// fill triangulates rings lying on plane (axis, c) and lifts them back to
// 3D, wound to face out of the box.
func (e *Engine) fill(rings [][]v2.Vec, axis int, c float64, max bool) (*kernel.TriMesh, error) {
	if len(rings) == 0 {
		return nil, nil
	}
	var pts []v2.Vec
	var edges [][2]int
	for _, r := range rings {
		base := len(pts)
		pts = append(pts, r...)
		for k := range r {
			edges = append(edges, [2]int{base + k, base + (k+1)%len(r)})
		}
	}
	tri := e.Triangulator
	if tri == nil {
		tri = triangle.New()
	}
	out, faces, err := tri.Triangulate(pts, edges, kernel.TriangulateOptions{})
	if err != nil {
		return nil, err
	}

	u, v := PlaneAxes(axis)
	m := &kernel.TriMesh{Faces: faces, Sources: make([]int, len(faces))}
	for _, p := range out {
		var q v3.Vec
		q = kernel.WithCoord(q, u, p.X)
		q = kernel.WithCoord(q, v, p.Y)
		q = kernel.WithCoord(q, axis, c)
		m.Vertices = append(m.Vertices, q)
	}
	if !max {
		m.FlipFaces()
	}
	return m, nil
}
