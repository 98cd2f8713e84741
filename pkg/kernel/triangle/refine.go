package triangle

import (
	"sort"

	"github.com/chazu/lattice/pkg/kernel"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

// tmesh is a triangulation with edge adjacency, used for Lawson flips and
// interior point insertion.
type tmesh struct {
	pts   []v2.Vec
	tris  [][3]int
	adj   map[kernel.Edge][]int
	fixed map[kernel.Edge]bool
	eps   float64
}

func newTMesh(points []v2.Vec, tris [][3]int, constrained [][2]int, eps float64) *tmesh {
	m := &tmesh{
		pts:   append([]v2.Vec(nil), points...),
		adj:   make(map[kernel.Edge][]int, 3*len(tris)/2),
		fixed: make(map[kernel.Edge]bool, len(constrained)),
		eps:   eps,
	}
	for _, e := range constrained {
		m.fixed[kernel.MakeEdge(e[0], e[1])] = true
	}
	for _, t := range tris {
		m.tris = append(m.tris, t)
		m.link(len(m.tris) - 1)
	}
	return m
}

func (m *tmesh) link(i int) {
	t := m.tris[i]
	for k := 0; k < 3; k++ {
		e := kernel.MakeEdge(t[k], t[(k+1)%3])
		m.adj[e] = append(m.adj[e], i)
	}
}

func (m *tmesh) unlink(i int) {
	t := m.tris[i]
	for k := 0; k < 3; k++ {
		e := kernel.MakeEdge(t[k], t[(k+1)%3])
		list := m.adj[e]
		for j, ti := range list {
			if ti == i {
				list = append(list[:j], list[j+1:]...)
				break
			}
		}
		if len(list) == 0 {
			delete(m.adj, e)
		} else {
			m.adj[e] = list
		}
	}
}

func (m *tmesh) set(i int, t [3]int) {
	m.unlink(i)
	m.tris[i] = t
	m.link(i)
}

// apex returns the vertex of triangle i opposite edge (u, v) and whether
// the triangle traverses the edge as u->v.
func (m *tmesh) apex(i, u, v int) (int, bool) {
	t := m.tris[i]
	for k := 0; k < 3; k++ {
		a, b, c := t[k], t[(k+1)%3], t[(k+2)%3]
		if a == u && b == v {
			return c, true
		}
		if a == v && b == u {
			return c, false
		}
	}
	return -1, false
}

// inCircle is positive when d lies inside the circumcircle of CCW abc.
func inCircle(a, b, c, d v2.Vec) float64 {
	adx, ady := a.X-d.X, a.Y-d.Y
	bdx, bdy := b.X-d.X, b.Y-d.Y
	cdx, cdy := c.X-d.X, c.Y-d.Y
	ad := adx*adx + ady*ady
	bd := bdx*bdx + bdy*bdy
	cd := cdx*cdx + cdy*cdy
	return adx*(bdy*cd-bd*cdy) - ady*(bdx*cd-bd*cdx) + ad*(bdx*cdy-bdy*cdx)
}

// legalize flips non-constrained edges until the Delaunay condition holds
// for every edge reachable from the stack.
func (m *tmesh) legalize(stack []kernel.Edge) {
	budget := 64 * (len(m.tris) + len(stack) + 16)
	for len(stack) > 0 && budget > 0 {
		budget--
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if m.fixed[e] {
			continue
		}
		ts := m.adj[e]
		if len(ts) != 2 {
			continue
		}
		t1, t2 := ts[0], ts[1]
		u, v := e[0], e[1]
		p, fwd := m.apex(t1, u, v)
		if !fwd {
			u, v = v, u
		}
		q, _ := m.apex(t2, u, v)
		if p < 0 || q < 0 {
			continue
		}
		pu, pv, pp, pq := m.pts[u], m.pts[v], m.pts[p], m.pts[q]
		if inCircle(pu, pv, pp, pq) <= m.eps*m.eps {
			continue
		}
		if orient(pu, pq, pp) <= m.eps || orient(pq, pv, pp) <= m.eps {
			continue
		}
		m.set(t1, [3]int{u, q, p})
		m.set(t2, [3]int{q, v, p})
		stack = append(stack,
			kernel.MakeEdge(u, q), kernel.MakeEdge(q, v),
			kernel.MakeEdge(v, p), kernel.MakeEdge(p, u))
	}
}

func (m *tmesh) legalizeAll() {
	stack := make([]kernel.Edge, 0, len(m.adj))
	for e := range m.adj {
		stack = append(stack, e)
	}
	sortEdges(stack)
	m.legalize(stack)
}

func (m *tmesh) area(i int) float64 {
	t := m.tris[i]
	return 0.5 * orient(m.pts[t[0]], m.pts[t[1]], m.pts[t[2]])
}

// refine inserts centroids of triangles larger than maxArea, largest first,
// re-legalizing after each insertion.
func (m *tmesh) refine(maxArea float64, limit int) {
	for n := 0; n < limit; n++ {
		worst, worstArea := -1, maxArea
		for i := range m.tris {
			if a := m.area(i); a > worstArea {
				worst, worstArea = i, a
			}
		}
		if worst < 0 {
			return
		}
		t := m.tris[worst]
		a, b, c := m.pts[t[0]], m.pts[t[1]], m.pts[t[2]]
		p := len(m.pts)
		m.pts = append(m.pts, a.Add(b).Add(c).MulScalar(1.0/3))

		m.set(worst, [3]int{t[0], t[1], p})
		m.tris = append(m.tris, [3]int{t[1], t[2], p})
		m.link(len(m.tris) - 1)
		m.tris = append(m.tris, [3]int{t[2], t[0], p})
		m.link(len(m.tris) - 1)

		m.legalize([]kernel.Edge{
			kernel.MakeEdge(t[0], t[1]),
			kernel.MakeEdge(t[1], t[2]),
			kernel.MakeEdge(t[2], t[0]),
		})
	}
}

func sortEdges(es []kernel.Edge) {
	sort.Slice(es, func(i, j int) bool {
		if es[i][0] != es[j][0] {
			return es[i][0] < es[j][0]
		}
		return es[i][1] < es[j][1]
	})
}
