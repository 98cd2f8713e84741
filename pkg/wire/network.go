package wire

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"
)

// ErrUnsupportedDimension is returned for networks that are neither 2D nor 3D.
var ErrUnsupportedDimension = errors.New("wire: unsupported dimension")

// ErrIndexOutOfRange is returned when an edge references a missing vertex.
var ErrIndexOutOfRange = errors.New("wire: vertex index out of range")

// Network is a wire network. 2D networks keep Z at 0. Edges are unordered
// vertex pairs. The network is read-only to the inflators apart from the
// attributes they attach.
type Network struct {
	Dim      int       `json:"dim"`
	Vertices []v3.Vec  `json:"vertices"`
	Edges    [][2]int  `json:"edges"`
	Cell     *sdf.Box3 `json:"cell,omitempty"` // explicit unit cell; nil means the vertex bounds

	vertexAttrs map[string][]float64
	edgeAttrs   map[string][]float64
	adjacency   [][]int // per vertex: incident edge indices
}

// New creates a network and checks that edges reference valid vertices.
func New(dim int, vertices []v3.Vec, edges [][2]int) (*Network, error) {
	if dim != 2 && dim != 3 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDimension, dim)
	}
	for i, e := range edges {
		for _, v := range e {
			if v < 0 || v >= len(vertices) {
				return nil, fmt.Errorf("%w: edge %d references vertex %d (have %d)", ErrIndexOutOfRange, i, v, len(vertices))
			}
		}
	}
	n := &Network{
		Dim:      dim,
		Vertices: append([]v3.Vec(nil), vertices...),
		Edges:    append([][2]int(nil), edges...),
	}
	if dim == 2 {
		for i := range n.Vertices {
			n.Vertices[i].Z = 0
		}
	}
	return n, nil
}

// MustNew is New that panics on error. Intended for tests and literals.
func MustNew(dim int, vertices []v3.Vec, edges [][2]int) *Network {
	n, err := New(dim, vertices, edges)
	if err != nil {
		panic(err)
	}
	return n
}

// VertexCount returns the number of vertices.
func (n *Network) VertexCount() int {
	return len(n.Vertices)
}

// EdgeCount returns the number of edges.
func (n *Network) EdgeCount() int {
	return len(n.Edges)
}

// Clone returns a deep copy including attributes.
func (n *Network) Clone() *Network {
	c := &Network{
		Dim:      n.Dim,
		Vertices: append([]v3.Vec(nil), n.Vertices...),
		Edges:    append([][2]int(nil), n.Edges...),
	}
	if n.Cell != nil {
		b := *n.Cell
		c.Cell = &b
	}
	for name, v := range n.vertexAttrs {
		c.SetVertexAttribute(name, v)
	}
	for name, v := range n.edgeAttrs {
		c.SetEdgeAttribute(name, v)
	}
	return c
}

// VertexBounds returns the bounding box of the vertices.
func (n *Network) VertexBounds() sdf.Box3 {
	if len(n.Vertices) == 0 {
		return sdf.Box3{}
	}
	b := sdf.Box3{Min: n.Vertices[0], Max: n.Vertices[0]}
	for _, v := range n.Vertices[1:] {
		b.Min = b.Min.Min(v)
		b.Max = b.Max.Max(v)
	}
	return b
}

// Bounds returns the unit cell: the explicit cell when set, otherwise the
// vertex bounds.
func (n *Network) Bounds() sdf.Box3 {
	if n.Cell != nil {
		return *n.Cell
	}
	return n.VertexBounds()
}

// SetCell sets an explicit unit cell.
func (n *Network) SetCell(b sdf.Box3) {
	n.Cell = &b
}

// Translate moves every vertex, and the explicit cell, by d.
func (n *Network) Translate(d v3.Vec) {
	if n.Dim == 2 {
		d.Z = 0
	}
	for i := range n.Vertices {
		n.Vertices[i] = n.Vertices[i].Add(d)
	}
	if n.Cell != nil {
		n.Cell.Min = n.Cell.Min.Add(d)
		n.Cell.Max = n.Cell.Max.Add(d)
	}
}

// CenterAtOrigin translates the network so that its cell is centered at
// the origin and returns the applied translation.
func (n *Network) CenterAtOrigin() v3.Vec {
	d := n.Bounds().Center().Neg()
	n.Translate(d)
	return d
}

// EdgeVector returns Vertices[e[1]] - Vertices[e[0]].
func (n *Network) EdgeVector(e int) v3.Vec {
	return n.Vertices[n.Edges[e][1]].Sub(n.Vertices[n.Edges[e][0]])
}

// EdgeLength returns the length of edge e.
func (n *Network) EdgeLength(e int) float64 {
	return n.EdgeVector(e).Length()
}

// IncidentEdges returns the edges touching vertex v, ascending.
func (n *Network) IncidentEdges(v int) []int {
	if n.adjacency == nil || len(n.adjacency) != len(n.Vertices) {
		n.computeAdjacency()
	}
	return n.adjacency[v]
}

// Degree returns the number of edges incident to v.
func (n *Network) Degree(v int) int {
	return len(n.IncidentEdges(v))
}

// Neighbors returns the vertices adjacent to v, ascending and unique.
func (n *Network) Neighbors(v int) []int {
	out := lo.Uniq(lo.Map(n.IncidentEdges(v), func(e int, _ int) int {
		return n.Other(e, v)
	}))
	sort.Ints(out)
	return out
}

// Other returns the endpoint of edge e that is not v.
func (n *Network) Other(e, v int) int {
	if n.Edges[e][0] == v {
		return n.Edges[e][1]
	}
	return n.Edges[e][0]
}

func (n *Network) computeAdjacency() {
	n.adjacency = make([][]int, len(n.Vertices))
	for i, e := range n.Edges {
		n.adjacency[e[0]] = append(n.adjacency[e[0]], i)
		if e[1] != e[0] {
			n.adjacency[e[1]] = append(n.adjacency[e[1]], i)
		}
	}
}

// MinIncidentAngle returns the smallest angle between two edges leaving v,
// or Pi when v has fewer than two edges.
func (n *Network) MinIncidentAngle(v int) float64 {
	es := n.IncidentEdges(v)
	best := math.Pi
	for i := 0; i < len(es); i++ {
		di := n.Vertices[n.Other(es[i], v)].Sub(n.Vertices[v]).Normalize()
		for j := i + 1; j < len(es); j++ {
			dj := n.Vertices[n.Other(es[j], v)].Sub(n.Vertices[v]).Normalize()
			c := math.Max(-1, math.Min(1, di.Dot(dj)))
			if a := math.Acos(c); a < best {
				best = a
			}
		}
	}
	return best
}

// ---------------------------------------------------------------------------
// Attributes
// ---------------------------------------------------------------------------

// SetVertexAttribute stores a per-vertex scalar attribute. Values are copied.
func (n *Network) SetVertexAttribute(name string, values []float64) {
	if n.vertexAttrs == nil {
		n.vertexAttrs = make(map[string][]float64)
	}
	n.vertexAttrs[name] = append([]float64(nil), values...)
}

// VertexAttribute returns a per-vertex attribute.
func (n *Network) VertexAttribute(name string) ([]float64, bool) {
	v, ok := n.vertexAttrs[name]
	return v, ok
}

// SetEdgeAttribute stores a per-edge scalar attribute. Values are copied.
func (n *Network) SetEdgeAttribute(name string, values []float64) {
	if n.edgeAttrs == nil {
		n.edgeAttrs = make(map[string][]float64)
	}
	n.edgeAttrs[name] = append([]float64(nil), values...)
}

// EdgeAttribute returns a per-edge attribute.
func (n *Network) EdgeAttribute(name string) ([]float64, bool) {
	v, ok := n.edgeAttrs[name]
	return v, ok
}

// VertexAttributeNames lists the vertex attribute names, sorted.
func (n *Network) VertexAttributeNames() []string {
	return sortedKeys(n.vertexAttrs)
}

// EdgeAttributeNames lists the edge attribute names, sorted.
func (n *Network) EdgeAttributeNames() []string {
	return sortedKeys(n.edgeAttrs)
}

func sortedKeys(m map[string][]float64) []string {
	names := lo.Keys(m)
	sort.Strings(names)
	return names
}
