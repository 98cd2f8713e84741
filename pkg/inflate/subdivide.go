package inflate

import (
	"sort"

	"github.com/chazu/lattice/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/mat"
)

// operator is a sparse linear map from old to new vertices, one row per
// new vertex.
type operator [][]term

// refine runs order subdivision passes over m and maps every velocity
// matrix through the same linear operators.
func refine(m *kernel.TriMesh, velocities []*mat.Dense, sub Subdivision) (*kernel.TriMesh, []*mat.Dense) {
	for i := 0; i < sub.Order; i++ {
		var op operator
		m, op = subdivide(m, sub.Algorithm == SubdivisionLoop)
		for j, v := range velocities {
			velocities[j] = op.applyDense(v)
		}
	}
	return m, velocities
}

// subdivide splits every triangle into four. With loop set, vertices are
// repositioned with Loop's weights (boundary curves use the 1/8-3/4-1/8
// rule); otherwise new vertices are edge midpoints. Children keep the
// parent's source.
func subdivide(m *kernel.TriMesh, loop bool) (*kernel.TriMesh, operator) {
	nv := len(m.Vertices)
	opposite := make(map[kernel.Edge][]int)
	var edges []kernel.Edge
	for _, f := range m.Faces {
		for k := 0; k < 3; k++ {
			e := kernel.MakeEdge(f[k], f[(k+1)%3])
			if _, ok := opposite[e]; !ok {
				edges = append(edges, e)
			}
			opposite[e] = append(opposite[e], f[(k+2)%3])
		}
	}

	op := make(operator, nv, nv+len(edges))
	for v := range op {
		op[v] = []term{{index: v, weight: 1}}
	}
	if loop {
		neighbors := make([][]int, nv)
		boundary := make([][]int, nv)
		for _, e := range edges {
			neighbors[e[0]] = append(neighbors[e[0]], e[1])
			neighbors[e[1]] = append(neighbors[e[1]], e[0])
			if len(opposite[e]) == 1 {
				boundary[e[0]] = append(boundary[e[0]], e[1])
				boundary[e[1]] = append(boundary[e[1]], e[0])
			}
		}
		for v := range op {
			op[v] = loopEven(v, neighbors[v], boundary[v])
		}
	}

	mid := make(map[kernel.Edge]int, len(edges))
	for _, e := range edges {
		mid[e] = len(op)
		opp := opposite[e]
		if loop && len(opp) == 2 {
			op = append(op, []term{
				{index: e[0], weight: 3.0 / 8}, {index: e[1], weight: 3.0 / 8},
				{index: opp[0], weight: 1.0 / 8}, {index: opp[1], weight: 1.0 / 8},
			})
			continue
		}
		op = append(op, []term{{index: e[0], weight: 0.5}, {index: e[1], weight: 0.5}})
	}

	out := &kernel.TriMesh{Vertices: op.apply(m.Vertices)}
	if m.Sources != nil {
		out.Sources = make([]int, 0, 4*len(m.Faces))
	}
	for i, f := range m.Faces {
		a, b, c := f[0], f[1], f[2]
		ab, bc, ca := mid[kernel.MakeEdge(a, b)], mid[kernel.MakeEdge(b, c)], mid[kernel.MakeEdge(c, a)]
		out.Faces = append(out.Faces, [3]int{a, ab, ca}, [3]int{ab, b, bc}, [3]int{ca, bc, c}, [3]int{ab, bc, ca})
		if m.Sources != nil {
			s := m.Sources[i]
			out.Sources = append(out.Sources, s, s, s, s)
		}
	}
	return out, op
}

func loopEven(v int, neighbors, boundary []int) []term {
	sort.Ints(neighbors)
	switch {
	case len(boundary) == 2:
		return []term{{index: v, weight: 0.75}, {index: boundary[0], weight: 0.125}, {index: boundary[1], weight: 0.125}}
	case len(boundary) > 0 || len(neighbors) < 3:
		// Non-manifold or corner vertex: keep it in place.
		return []term{{index: v, weight: 1}}
	}
	n := float64(len(neighbors))
	beta := 3.0 / (8 * n)
	if len(neighbors) == 3 {
		beta = 3.0 / 16
	}
	row := []term{{index: v, weight: 1 - n*beta}}
	for _, u := range neighbors {
		row = append(row, term{index: u, weight: beta})
	}
	return row
}

func (op operator) apply(pts []v3.Vec) []v3.Vec {
	return evalStencil(op, pts)
}

func (op operator) applyDense(in *mat.Dense) *mat.Dense {
	_, cols := in.Dims()
	out := mat.NewDense(max(1, len(op)), cols, nil)
	for i, row := range op {
		for _, t := range row {
			for c := 0; c < cols; c++ {
				out.Set(i, c, out.At(i, c)+t.weight*in.At(t.index, c))
			}
		}
	}
	return out
}
