package kernel

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/chazu/lattice/pkg/spatial"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// TriMesh is the working mesh threaded through the inflation stages: an
// indexed triangle soup with optional per-face provenance. 2D meshes keep
// Z at 0.
type TriMesh struct {
	Vertices []v3.Vec
	Faces    [][3]int
	Sources  []int // per face; nil when provenance is not tracked
}

// Edge is an undirected edge with sorted endpoints.
type Edge [2]int

// MakeEdge returns the undirected edge between a and b.
func MakeEdge(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{a, b}
}

// Clone returns a deep copy.
func (m *TriMesh) Clone() *TriMesh {
	c := &TriMesh{
		Vertices: append([]v3.Vec(nil), m.Vertices...),
		Faces:    append([][3]int(nil), m.Faces...),
	}
	if m.Sources != nil {
		c.Sources = append([]int(nil), m.Sources...)
	}
	return c
}

// Append adds o's geometry to m, offsetting its indices. When either mesh
// tracks sources the result does too, with 0 for untracked faces.
func (m *TriMesh) Append(o *TriMesh) {
	if o == nil {
		return
	}
	if o.Sources != nil && m.Sources == nil {
		m.Sources = make([]int, len(m.Faces))
	}
	base := len(m.Vertices)
	m.Vertices = append(m.Vertices, o.Vertices...)
	for i, f := range o.Faces {
		m.Faces = append(m.Faces, [3]int{f[0] + base, f[1] + base, f[2] + base})
		if m.Sources != nil {
			s := 0
			if o.Sources != nil {
				s = o.Sources[i]
			}
			m.Sources = append(m.Sources, s)
		}
	}
}

// Bounds returns the axis-aligned bounding box of the vertices.
func (m *TriMesh) Bounds() sdf.Box3 {
	if len(m.Vertices) == 0 {
		return sdf.Box3{}
	}
	b := sdf.Box3{Min: m.Vertices[0], Max: m.Vertices[0]}
	for _, v := range m.Vertices[1:] {
		b.Min = b.Min.Min(v)
		b.Max = b.Max.Max(v)
	}
	return b
}

// Transform maps every vertex through fn.
func (m *TriMesh) Transform(fn func(v3.Vec) v3.Vec) {
	for i, v := range m.Vertices {
		m.Vertices[i] = fn(v)
	}
}

// FlipFaces reverses the winding of every triangle.
func (m *TriMesh) FlipFaces() {
	for i, f := range m.Faces {
		m.Faces[i] = [3]int{f[0], f[2], f[1]}
	}
}

// FaceCross returns (b-a)x(c-a) for face i: twice the area times the normal.
func (m *TriMesh) FaceCross(i int) v3.Vec {
	f := m.Faces[i]
	a := m.Vertices[f[0]]
	return m.Vertices[f[1]].Sub(a).Cross(m.Vertices[f[2]].Sub(a))
}

// FaceNormal returns the unit normal of face i, or the zero vector for a
// degenerate face.
func (m *TriMesh) FaceNormal(i int) v3.Vec {
	n := m.FaceCross(i)
	l := n.Length()
	if l == 0 {
		return v3.Vec{}
	}
	return n.DivScalar(l)
}

// FaceArea returns the area of face i.
func (m *TriMesh) FaceArea(i int) float64 {
	return 0.5 * m.FaceCross(i).Length()
}

// FaceCentroid returns the centroid of face i.
func (m *TriMesh) FaceCentroid(i int) v3.Vec {
	f := m.Faces[i]
	return m.Vertices[f[0]].Add(m.Vertices[f[1]]).Add(m.Vertices[f[2]]).DivScalar(3)
}

// Volume returns the signed volume enclosed by a closed mesh; positive for
// outward winding.
func (m *TriMesh) Volume() float64 {
	var vol float64
	for _, f := range m.Faces {
		a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		vol += a.Dot(b.Cross(c))
	}
	return vol / 6
}

// ErrDegenerateTriangle is returned when a face with zero area takes part
// in a volume computation.
var ErrDegenerateTriangle = errors.New("kernel: zero-area triangle")

// CheckedVolume is Volume for meshes that must not contain zero-area faces.
func (m *TriMesh) CheckedVolume() (float64, error) {
	for i := range m.Faces {
		if m.FaceCross(i).Length2() == 0 {
			return 0, fmt.Errorf("%w: face %d %v", ErrDegenerateTriangle, i, m.Faces[i])
		}
	}
	return m.Volume(), nil
}

// SignedArea returns the summed signed area of a planar mesh in the XY
// plane; positive when the triangles are CCW.
func (m *TriMesh) SignedArea() float64 {
	var area float64
	for i := range m.Faces {
		area += m.FaceCross(i).Z
	}
	return area / 2
}

// EdgeCounts returns how many faces use each undirected edge.
func (m *TriMesh) EdgeCounts() map[Edge]int {
	counts := make(map[Edge]int, len(m.Faces)*3/2)
	for _, f := range m.Faces {
		for k := 0; k < 3; k++ {
			counts[MakeEdge(f[k], f[(k+1)%3])]++
		}
	}
	return counts
}

// BoundaryEdges returns the edges used by exactly one face, sorted.
func (m *TriMesh) BoundaryEdges() []Edge {
	var out []Edge
	for e, n := range m.EdgeCounts() {
		if n == 1 {
			out = append(out, e)
		}
	}
	sortEdges(out)
	return out
}

// IsClosed reports whether every edge is shared by exactly two faces.
func (m *TriMesh) IsClosed() bool {
	if len(m.Faces) == 0 {
		return false
	}
	for _, n := range m.EdgeCounts() {
		if n != 2 {
			return false
		}
	}
	return true
}

// IsConsistentlyOriented reports whether every directed edge occurs once
// and every interior edge is traversed in both directions.
func (m *TriMesh) IsConsistentlyOriented() bool {
	directed := make(map[[2]int]int, len(m.Faces)*3)
	for _, f := range m.Faces {
		for k := 0; k < 3; k++ {
			directed[[2]int{f[k], f[(k+1)%3]}]++
		}
	}
	counts := m.EdgeCounts()
	for e, n := range directed {
		if n != 1 {
			return false
		}
		if counts[MakeEdge(e[0], e[1])] == 2 && directed[[2]int{e[1], e[0]}] != 1 {
			return false
		}
	}
	return true
}

// RemoveIsolatedVertices drops vertices no face references and returns the
// old-to-new index map (-1 for removed vertices).
func (m *TriMesh) RemoveIsolatedVertices() []int {
	used := make([]bool, len(m.Vertices))
	for _, f := range m.Faces {
		used[f[0]], used[f[1]], used[f[2]] = true, true, true
	}
	remap := make([]int, len(m.Vertices))
	verts := m.Vertices[:0:0]
	for i, v := range m.Vertices {
		if !used[i] {
			remap[i] = -1
			continue
		}
		remap[i] = len(verts)
		verts = append(verts, v)
	}
	m.Vertices = verts
	m.remapFaces(remap)
	return remap
}

// RemoveDegenerateFaces drops faces with repeated indices or with an area
// not above areaTol and returns how many were removed.
func (m *TriMesh) RemoveDegenerateFaces(areaTol float64) int {
	keep := 0
	for i, f := range m.Faces {
		if f[0] == f[1] || f[1] == f[2] || f[0] == f[2] || m.FaceArea(i) <= areaTol {
			continue
		}
		m.Faces[keep] = f
		if m.Sources != nil {
			m.Sources[keep] = m.Sources[i]
		}
		keep++
	}
	removed := len(m.Faces) - keep
	m.Faces = m.Faces[:keep]
	if m.Sources != nil {
		m.Sources = m.Sources[:keep]
	}
	return removed
}

// RemoveDuplicateFaces drops faces that reference the same vertex set as an
// earlier face, regardless of winding.
func (m *TriMesh) RemoveDuplicateFaces() int {
	seen := make(map[[3]int]bool, len(m.Faces))
	keep := 0
	for i, f := range m.Faces {
		k := f
		sort.Ints(k[:])
		if seen[k] {
			continue
		}
		seen[k] = true
		m.Faces[keep] = f
		if m.Sources != nil {
			m.Sources[keep] = m.Sources[i]
		}
		keep++
	}
	removed := len(m.Faces) - keep
	m.Faces = m.Faces[:keep]
	if m.Sources != nil {
		m.Sources = m.Sources[:keep]
	}
	return removed
}

// Weld merges vertices closer than tol, collapses faces that lose a corner
// and drops vertices left unreferenced. It returns the old-to-new index map.
func (m *TriMesh) Weld(tol float64) []int {
	return m.WeldWithPriority(tol, nil)
}

// WeldWithPriority is Weld where, inside each merged cluster, the vertex
// with the highest priority is kept as representative. A nil priority keeps
// the lowest index.
func (m *TriMesh) WeldWithPriority(tol float64, priority []int) []int {
	order := make([]int, len(m.Vertices))
	for i := range order {
		order[i] = i
	}
	if priority != nil {
		sort.SliceStable(order, func(a, b int) bool {
			return priority[order[a]] > priority[order[b]]
		})
	}

	rep := make([]int, len(m.Vertices))
	if tol <= 0 {
		exact := make(map[v3.Vec]int, len(m.Vertices))
		for _, i := range order {
			if r, ok := exact[m.Vertices[i]]; ok {
				rep[i] = r
				continue
			}
			exact[m.Vertices[i]] = i
			rep[i] = i
		}
	} else {
		grid := spatial.NewHashGrid(2 * tol)
		for _, i := range order {
			if r, ok := grid.Nearest(m.Vertices[i], tol); ok {
				rep[i] = r
				continue
			}
			grid.Insert(i, m.Vertices[i])
			rep[i] = i
		}
	}

	for i, f := range m.Faces {
		m.Faces[i] = [3]int{rep[f[0]], rep[f[1]], rep[f[2]]}
	}
	m.RemoveDegenerateFaces(math.Inf(-1))
	remap := m.RemoveIsolatedVertices()

	out := make([]int, len(rep))
	for i, r := range rep {
		out[i] = remap[r]
	}
	return out
}

func (m *TriMesh) remapFaces(remap []int) {
	for i, f := range m.Faces {
		m.Faces[i] = [3]int{remap[f[0]], remap[f[1]], remap[f[2]]}
	}
}

// BoxMesh returns the closed 8-vertex, 12-triangle mesh of b with outward
// winding. Vertex i has coordinate bits x=i&1, y=i>>1&1, z=i>>2&1.
func BoxMesh(b sdf.Box3) *TriMesh {
	m := &TriMesh{Vertices: make([]v3.Vec, 8)}
	for i := range m.Vertices {
		v := b.Min
		if i&1 != 0 {
			v.X = b.Max.X
		}
		if i&2 != 0 {
			v.Y = b.Max.Y
		}
		if i&4 != 0 {
			v.Z = b.Max.Z
		}
		m.Vertices[i] = v
	}
	m.Faces = [][3]int{
		{0, 4, 6}, {0, 6, 2}, // -X
		{1, 3, 7}, {1, 7, 5}, // +X
		{0, 1, 5}, {0, 5, 4}, // -Y
		{2, 6, 7}, {2, 7, 3}, // +Y
		{0, 2, 3}, {0, 3, 1}, // -Z
		{4, 5, 7}, {4, 7, 6}, // +Z
	}
	return m
}

func sortEdges(es []Edge) {
	sort.Slice(es, func(i, j int) bool {
		if es[i][0] != es[j][0] {
			return es[i][0] < es[j][0]
		}
		return es[i][1] < es[j][1]
	})
}
