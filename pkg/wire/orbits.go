package wire

import (
	"math"

	"github.com/chazu/lattice/pkg/kernel"
	"github.com/chazu/lattice/pkg/spatial"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Attribute names under which periodic orbit indices are stored.
const (
	VertexOrbitAttribute = "vertex_orbit"
	EdgeOrbitAttribute   = "edge_orbit"
)

// DefaultTolerance returns the matching tolerance used when callers pass a
// non-positive one: 1e-6 of the cell diagonal.
func (n *Network) DefaultTolerance() float64 {
	d := n.Bounds().Size().Length()
	if d == 0 {
		d = 1
	}
	return 1e-6 * d
}

// wrapShift returns the lattice translation that moves p into the half-open
// cell [min, max) along every periodic axis. Points within tol of the max
// face wrap to the min face.
func wrapShift(cell sdf.Box3, dim int, p v3.Vec, tol float64) v3.Vec {
	var shift v3.Vec
	size := cell.Size()
	for a := 0; a < dim; a++ {
		s := kernel.Coord(size, a)
		if s <= 0 {
			continue
		}
		rel := kernel.Coord(p, a) - kernel.Coord(cell.Min, a)
		k := math.Floor(rel / s)
		if r := rel - k*s; s-r <= tol {
			k++
		}
		shift = kernel.WithCoord(shift, a, -k*s)
	}
	return shift
}

// PeriodicOrbits groups vertices and edges into classes that are equal up
// to a translation by whole cells. Orbit ids are dense and numbered in order
// of first appearance. The results are also stored as the vertex_orbit and
// edge_orbit attributes.
func (n *Network) PeriodicOrbits(tol float64) (vertexOrbits, edgeOrbits []int) {
	if tol <= 0 {
		tol = n.DefaultTolerance()
	}
	cell := n.Bounds()

	vertexOrbits = make([]int, len(n.Vertices))
	vgrid := spatial.NewHashGrid(4 * tol)
	var reps []int
	for i, v := range n.Vertices {
		c := v.Add(wrapShift(cell, n.Dim, v, tol))
		if r, ok := vgrid.Nearest(c, tol); ok {
			vertexOrbits[i] = vertexOrbits[r]
			continue
		}
		vgrid.Insert(i, c)
		vertexOrbits[i] = len(reps)
		reps = append(reps, i)
	}

	type canon struct{ dir v3.Vec }
	edgeOrbits = make([]int, len(n.Edges))
	egrid := spatial.NewHashGrid(4 * tol)
	canons := make([]canon, len(n.Edges))
	next := 0
	for i := range n.Edges {
		a, b := n.Vertices[n.Edges[i][0]], n.Vertices[n.Edges[i][1]]
		mid := a.Add(b).MulScalar(0.5)
		mid = mid.Add(wrapShift(cell, n.Dim, mid, tol))
		canons[i] = canon{dir: canonicalDirection(b.Sub(a), tol)}

		edgeOrbits[i] = -1
		for _, j := range egrid.QueryRadius(mid, tol) {
			if canons[j].dir.Sub(canons[i].dir).Length() <= tol {
				edgeOrbits[i] = edgeOrbits[j]
				break
			}
		}
		if edgeOrbits[i] < 0 {
			egrid.Insert(i, mid)
			edgeOrbits[i] = next
			next++
		}
	}

	n.SetVertexAttribute(VertexOrbitAttribute, toFloats(vertexOrbits))
	n.SetEdgeAttribute(EdgeOrbitAttribute, toFloats(edgeOrbits))
	return vertexOrbits, edgeOrbits
}

// Orbits returns the stored orbit attributes, computing them first when
// absent.
func (n *Network) Orbits() (vertexOrbits, edgeOrbits []int) {
	vo, vok := n.VertexAttribute(VertexOrbitAttribute)
	eo, eok := n.EdgeAttribute(EdgeOrbitAttribute)
	if !vok || !eok || len(vo) != len(n.Vertices) || len(eo) != len(n.Edges) {
		return n.PeriodicOrbits(0)
	}
	return toInts(vo), toInts(eo)
}

// OrbitCount returns one past the largest orbit id.
func OrbitCount(orbits []int) int {
	c := 0
	for _, o := range orbits {
		if o+1 > c {
			c = o + 1
		}
	}
	return c
}

// canonicalDirection flips d so that its first significant component is
// positive, making the direction independent of edge orientation.
func canonicalDirection(d v3.Vec, tol float64) v3.Vec {
	for a := 0; a < 3; a++ {
		c := kernel.Coord(d, a)
		if math.Abs(c) <= tol {
			continue
		}
		if c < 0 {
			return d.Neg()
		}
		return d
	}
	return d
}

func toFloats(xs []int) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}

func toInts(xs []float64) []int {
	out := make([]int, len(xs))
	for i, x := range xs {
		out[i] = int(math.Round(x))
	}
	return out
}
