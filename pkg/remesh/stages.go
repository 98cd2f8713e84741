package remesh

import (
	"math"

	"github.com/chazu/lattice/pkg/kernel"
)

// Clean welds vertices closer than the working tolerance and drops
// collapsed, duplicate and unreferenced elements.
func Clean(w *Working) *Working {
	out := w.clone()
	m := &kernel.TriMesh{Vertices: out.Vertices, Faces: out.Faces}
	m.Weld(out.Tol)
	m.RemoveDuplicateFaces()
	out.Vertices, out.Faces = m.Vertices, m.Faces
	out.Pins, out.Labels = nil, nil
	out.Loops = [6][]kernel.Edge{}
	return out
}

// Label snaps vertices near a box plane onto it and labels every face
// lying on a plane.
func Label(w *Working) *Working {
	out := w.clone()
	out.relabel()
	return out
}

// ExtractLoops collects, for every plane, the boundary edges of the faces
// labelled with it.
func ExtractLoops(w *Working) *Working {
	out := w.clone()
	if out.Labels == nil {
		out.relabel()
	}
	out.extract()
	return out
}

// CollapseShortBoundaryEdges merges the endpoints of loop edges shorter
// than minLen. The endpoint pinned to more planes survives (corner over box
// edge over face), ties keep the lower index. An edge whose endpoints are
// pinned to incompatible planes is left alone.
func CollapseShortBoundaryEdges(w *Working, minLen float64) *Working {
	out := w.clone()
	if minLen <= 0 {
		return out
	}
	for pass := 0; pass <= len(out.Vertices); pass++ {
		remap := identity(len(out.Vertices))
		merged := make([]bool, len(out.Vertices))
		changed := false
		for _, p := range Planes {
			for _, e := range out.Loops[p] {
				a, b := e[0], e[1]
				if merged[a] || merged[b] {
					continue
				}
				if out.Vertices[a].Sub(out.Vertices[b]).Length() >= minLen {
					continue
				}
				keep, drop, ok := out.collapseOrder(a, b)
				if !ok {
					continue
				}
				remap[drop] = keep
				merged[a], merged[b] = true, true
				changed = true
			}
		}
		if !changed {
			break
		}
		out.remap(remap)
	}
	return out
}

// collapseOrder decides which of a and b survives a merge. The dropped
// vertex's planes must be a subset of the kept vertex's.
func (w *Working) collapseOrder(a, b int) (keep, drop int, ok bool) {
	pa, pb := w.Pins[a], w.Pins[b]
	aCovers, bCovers := pb&^pa == 0, pa&^pb == 0
	switch {
	case aCovers && bCovers:
		if a < b {
			return a, b, true
		}
		return b, a, true
	case aCovers:
		return a, b, true
	case bCovers:
		return b, a, true
	}
	return 0, 0, false
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// segmentCount is the number of pieces a segment of length l splits into
// so that none exceeds target.
func segmentCount(l, target float64) int {
	if target <= 0 || l <= target {
		return 1
	}
	return int(math.Ceil(l/target - 1e-9))
}

// SplitLongBoundaryEdges splits every loop edge longer than maxLen into
// equal pieces. All faces using a split edge are fanned from their
// opposite corner, so the mesh stays closed.
func SplitLongBoundaryEdges(w *Working, maxLen float64) *Working {
	out := w.clone()
	if maxLen <= 0 {
		return out
	}
	chains := make(map[kernel.Edge][]int)
	for _, p := range Planes {
		for _, e := range out.Loops[p] {
			if _, done := chains[e]; done {
				continue
			}
			a, b := out.Vertices[e[0]], out.Vertices[e[1]]
			n := segmentCount(b.Sub(a).Length(), maxLen)
			if n < 2 {
				continue
			}
			chain := []int{e[0]}
			for k := 1; k < n; k++ {
				out.Vertices = append(out.Vertices, a.Add(b.Sub(a).MulScalar(float64(k)/float64(n))))
				chain = append(chain, len(out.Vertices)-1)
			}
			chains[e] = append(chain, e[1])
		}
	}
	if len(chains) == 0 {
		return out
	}

	// A face may carry several split edges; its pieces are queued again
	// until none does.
	var faces [][3]int
	queue := append([][3]int(nil), out.Faces...)
	for len(queue) > 0 {
		f := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		split := false
		for k := 0; k < 3 && !split; k++ {
			x, y, z := f[k], f[(k+1)%3], f[(k+2)%3]
			chain, ok := chains[kernel.MakeEdge(x, y)]
			if !ok {
				continue
			}
			if chain[0] != x {
				chain = reversed(chain)
			}
			for i := 0; i+1 < len(chain); i++ {
				queue = append(queue, [3]int{chain[i], chain[i+1], z})
			}
			split = true
		}
		if !split {
			faces = append(faces, f)
		}
	}
	out.Faces = faces
	out.relabel()
	out.extract()
	return out
}

func reversed(xs []int) []int {
	out := make([]int, len(xs))
	for i, x := range xs {
		out[len(xs)-1-i] = x
	}
	return out
}
