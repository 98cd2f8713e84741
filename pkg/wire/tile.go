package wire

import (
	"errors"
	"fmt"

	"github.com/chazu/lattice/pkg/kernel"
	"github.com/chazu/lattice/pkg/spatial"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrDegenerateCell is returned when the unit cell has no extent along a
// periodic axis.
var ErrDegenerateCell = errors.New("wire: degenerate cell")

// Tile repeats the network reps times along each axis starting at its cell.
// The Z count is ignored for 2D networks.
func (n *Network) Tile(reps [3]int) (*Network, error) {
	b := n.Bounds()
	size := b.Size()
	guide := sdf.Box3{Min: b.Min, Max: b.Min}
	for a := 0; a < n.Dim; a++ {
		guide.Max = kernel.WithCoord(guide.Max, a, kernel.Coord(b.Min, a)+kernel.Coord(size, a)*float64(reps[a]))
	}
	if n.Dim == 2 {
		guide.Max.Z = b.Max.Z
	}
	return n.TileWithGuide(guide, reps)
}

// TileWithGuide fills the guide box with reps copies of the unit cell per
// axis, scaling each copy to its sub-box. Vertices that coincide across
// copies are merged and duplicate edges dropped. Vertex and edge attributes
// are carried from the source element of each copy.
func (n *Network) TileWithGuide(guide sdf.Box3, reps [3]int) (*Network, error) {
	if n.Dim == 2 {
		reps[2] = 1
	}
	for a := 0; a < 3; a++ {
		if reps[a] < 1 {
			return nil, fmt.Errorf("wire: tile: repeat count %d along axis %d", reps[a], a)
		}
	}
	b := n.Bounds()
	size := b.Size()
	for a := 0; a < n.Dim; a++ {
		if kernel.Coord(size, a) <= 0 {
			return nil, fmt.Errorf("%w: axis %d has size %g", ErrDegenerateCell, a, kernel.Coord(size, a))
		}
	}

	gsize := guide.Size()
	var scale, step v3.Vec
	for a := 0; a < n.Dim; a++ {
		st := kernel.Coord(gsize, a) / float64(reps[a])
		step = kernel.WithCoord(step, a, st)
		scale = kernel.WithCoord(scale, a, st/kernel.Coord(size, a))
	}

	out := &Network{Dim: n.Dim, Cell: &guide}
	tol := 1e-9 * gsize.Length()
	if tol == 0 {
		tol = 1e-12
	}
	grid := spatial.NewHashGrid(4 * tol)
	var vsrc, esrc []int
	seen := make(map[kernel.Edge]bool)
	remap := make([]int, len(n.Vertices))

	for i := 0; i < reps[0]; i++ {
		for j := 0; j < reps[1]; j++ {
			for k := 0; k < reps[2]; k++ {
				idx := [3]int{i, j, k}
				for vi, v := range n.Vertices {
					p := v
					for a := 0; a < n.Dim; a++ {
						x := kernel.Coord(guide.Min, a) + kernel.Coord(step, a)*float64(idx[a]) +
							(kernel.Coord(v, a)-kernel.Coord(b.Min, a))*kernel.Coord(scale, a)
						p = kernel.WithCoord(p, a, x)
					}
					if id, ok := grid.Nearest(p, tol); ok {
						remap[vi] = id
						continue
					}
					remap[vi] = len(out.Vertices)
					grid.Insert(remap[vi], p)
					out.Vertices = append(out.Vertices, p)
					vsrc = append(vsrc, vi)
				}
				for ei, e := range n.Edges {
					a, c := remap[e[0]], remap[e[1]]
					key := kernel.MakeEdge(a, c)
					if a == c || seen[key] {
						continue
					}
					seen[key] = true
					out.Edges = append(out.Edges, [2]int{a, c})
					esrc = append(esrc, ei)
				}
			}
		}
	}

	for _, name := range n.VertexAttributeNames() {
		src, _ := n.VertexAttribute(name)
		vals := make([]float64, len(vsrc))
		for i, s := range vsrc {
			vals[i] = src[s]
		}
		out.SetVertexAttribute(name, vals)
	}
	for _, name := range n.EdgeAttributeNames() {
		src, _ := n.EdgeAttribute(name)
		vals := make([]float64, len(esrc))
		for i, s := range esrc {
			vals[i] = src[s]
		}
		out.SetEdgeAttribute(name, vals)
	}
	return out, nil
}
