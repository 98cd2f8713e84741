package remesh

import (
	"math"
	"sort"

	"github.com/chazu/lattice/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Working is the state threaded through the remeshing stages.
type Working struct {
	Vertices []v3.Vec
	Faces    [][3]int
	Box      sdf.Box3
	Tol      float64

	Pins   []uint8 // per vertex: bit p set when the vertex lies on plane p
	Labels []Plane // per face: the plane it lies on, or NoPlane
	Loops  [6][]kernel.Edge
}

// NewWorking copies m into a working mesh for box with snapping tolerance
// tol.
func NewWorking(m *kernel.TriMesh, box sdf.Box3, tol float64) *Working {
	return &Working{
		Vertices: append([]v3.Vec(nil), m.Vertices...),
		Faces:    append([][3]int(nil), m.Faces...),
		Box:      box,
		Tol:      tol,
	}
}

func (w *Working) clone() *Working {
	c := &Working{
		Vertices: append([]v3.Vec(nil), w.Vertices...),
		Faces:    append([][3]int(nil), w.Faces...),
		Box:      w.Box,
		Tol:      w.Tol,
		Pins:     append([]uint8(nil), w.Pins...),
		Labels:   append([]Plane(nil), w.Labels...),
	}
	for p := range w.Loops {
		c.Loops[p] = append([]kernel.Edge(nil), w.Loops[p]...)
	}
	return c
}

// Mesh returns the current geometry as a TriMesh.
func (w *Working) Mesh() *kernel.TriMesh {
	return &kernel.TriMesh{
		Vertices: append([]v3.Vec(nil), w.Vertices...),
		Faces:    append([][3]int(nil), w.Faces...),
	}
}

func (w *Working) bound(p Plane) float64 {
	if p.IsMax() {
		return kernel.Coord(w.Box.Max, p.Axis())
	}
	return kernel.Coord(w.Box.Min, p.Axis())
}

// relabel snaps vertices within tolerance of a box plane onto it, records
// the pins and labels every face whose three vertices share a plane.
func (w *Working) relabel() {
	w.Pins = make([]uint8, len(w.Vertices))
	for i, v := range w.Vertices {
		for _, p := range Planes {
			a, c := p.Axis(), w.bound(p)
			if math.Abs(kernel.Coord(v, a)-c) <= w.Tol {
				v = kernel.WithCoord(v, a, c)
				w.Pins[i] |= p.bit()
			}
		}
		w.Vertices[i] = v
	}
	w.Labels = make([]Plane, len(w.Faces))
	for i, f := range w.Faces {
		w.Labels[i] = NoPlane
		common := w.Pins[f[0]] & w.Pins[f[1]] & w.Pins[f[2]]
		for _, p := range Planes {
			if common&p.bit() != 0 {
				w.Labels[i] = p
				break
			}
		}
	}
}

// extract rebuilds the boundary loop of the faces on every plane.
func (w *Working) extract() {
	for _, p := range Planes {
		counts := make(map[kernel.Edge]int)
		for i, f := range w.Faces {
			if w.Labels[i] != p {
				continue
			}
			for k := 0; k < 3; k++ {
				counts[kernel.MakeEdge(f[k], f[(k+1)%3])]++
			}
		}
		var loop []kernel.Edge
		for e, n := range counts {
			if n == 1 {
				loop = append(loop, e)
			}
		}
		sortEdges(loop)
		w.Loops[p] = loop
	}
}

// remap redirects vertex i to remap[i], drops collapsed faces and unused
// vertices, then relabels and re-extracts the loops.
func (w *Working) remap(remap []int) {
	for i, f := range w.Faces {
		w.Faces[i] = [3]int{remap[f[0]], remap[f[1]], remap[f[2]]}
	}
	w.compact()
	w.relabel()
	w.extract()
}

// compact drops faces with repeated corners and unreferenced vertices.
func (w *Working) compact() {
	m := &kernel.TriMesh{Vertices: w.Vertices, Faces: w.Faces}
	m.RemoveDegenerateFaces(math.Inf(-1))
	m.RemoveIsolatedVertices()
	w.Vertices, w.Faces = m.Vertices, m.Faces
}

// loopVertices returns the sorted distinct vertices of a loop.
func loopVertices(loop []kernel.Edge) []int {
	seen := make(map[int]bool, len(loop))
	var out []int
	for _, e := range loop {
		for _, v := range e {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	sort.Ints(out)
	return out
}

// loopAdjacency maps every loop vertex to its sorted loop neighbours.
func loopAdjacency(loop []kernel.Edge) map[int][]int {
	adj := make(map[int][]int)
	for _, e := range loop {
		adj[e[0]] = append(adj[e[0]], e[1])
		adj[e[1]] = append(adj[e[1]], e[0])
	}
	for v := range adj {
		sort.Ints(adj[v])
	}
	return adj
}

func sortEdges(es []kernel.Edge) {
	sort.Slice(es, func(i, j int) bool {
		if es[i][0] != es[j][0] {
			return es[i][0] < es[j][0]
		}
		return es[i][1] < es[j][1]
	})
}
