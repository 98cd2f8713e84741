package remesh

import (
	"fmt"
	"math"

	"github.com/chazu/lattice/pkg/kernel"
	"github.com/chazu/lattice/pkg/kernel/boxclip"
	"github.com/chazu/lattice/pkg/spatial"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Refine splits loop edges that run along a box edge so that no piece is
// longer than target. The inserted points are shared by the loops of both
// planes meeting at the box edge. Edges also used by a face off the planes
// are kept whole.
func Refine(w *Working, target float64) *Working {
	out := w.clone()
	if target <= 0 {
		return out
	}
	side := make(map[kernel.Edge]bool)
	for i, f := range out.Faces {
		if out.Labels[i] != NoPlane {
			continue
		}
		for k := 0; k < 3; k++ {
			side[kernel.MakeEdge(f[k], f[(k+1)%3])] = true
		}
	}

	chains := make(map[kernel.Edge][]int)
	for _, p := range Planes {
		for _, e := range out.Loops[p] {
			if _, done := chains[e]; done || side[e] {
				continue
			}
			common := out.Pins[e[0]] & out.Pins[e[1]]
			if pinnedAxes(common) < 2 {
				continue
			}
			a, b := out.Vertices[e[0]], out.Vertices[e[1]]
			n := segmentCount(b.Sub(a).Length(), target)
			if n < 2 {
				continue
			}
			chain := []int{e[0]}
			for k := 1; k < n; k++ {
				out.Vertices = append(out.Vertices, a.Add(b.Sub(a).MulScalar(float64(k)/float64(n))))
				out.Pins = append(out.Pins, common)
				chain = append(chain, len(out.Vertices)-1)
			}
			chains[e] = append(chain, e[1])
		}
	}
	if len(chains) == 0 {
		return out
	}
	for _, p := range Planes {
		var loop []kernel.Edge
		for _, e := range out.Loops[p] {
			chain, ok := chains[e]
			if !ok {
				loop = append(loop, e)
				continue
			}
			for k := 0; k+1 < len(chain); k++ {
				loop = append(loop, kernel.MakeEdge(chain[k], chain[k+1]))
			}
		}
		sortEdges(loop)
		out.Loops[p] = loop
	}
	return out
}

// Retriangulate replaces the faces on every box plane. Each min plane is
// triangulated from its loop with triangles of area at most that of an
// equilateral triangle of side target; the opposite max plane gets the
// translated copy, reusing the matched loop vertices.
func Retriangulate(w *Working, target float64, tri kernel.Triangulator) (*Working, error) {
	out := w.clone()
	faces := out.sideFaces(nil)
	radius := out.lookupRadius()
	for axis := 0; axis < 3; axis++ {
		pm, pM := PlaneOf(axis, false), PlaneOf(axis, true)
		if len(out.Loops[pm]) == 0 {
			if len(out.Loops[pM]) != 0 {
				return nil, fmt.Errorf("%w: %v has a boundary but %v has none", ErrUnmatchedBoundary, pM, pm)
			}
			continue
		}
		capFaces, ids, err := out.triangulateCap(pm, target, tri)
		if err != nil {
			return nil, fmt.Errorf("remesh: cap %v: %w", pm, err)
		}
		for _, f := range capFaces {
			faces = append(faces, [3]int{f[0], f[2], f[1]})
		}

		grid := spatial.NewHashGrid(2 * radius)
		for _, v := range loopVertices(out.Loops[pM]) {
			grid.Insert(v, out.Vertices[v])
		}
		shift := kernel.Unit(axis).MulScalar(kernel.Coord(out.Box.Size(), axis))
		partner := make(map[int]int, len(ids))
		for _, id := range ids {
			q := kernel.WithCoord(out.Vertices[id].Add(shift), axis, kernel.Coord(out.Box.Max, axis))
			if hit, ok := grid.Nearest(q, radius); ok {
				partner[id] = hit
				continue
			}
			out.Vertices = append(out.Vertices, q)
			out.Pins = append(out.Pins, out.Pins[id]&^pm.bit()|pM.bit())
			partner[id] = len(out.Vertices) - 1
		}
		for _, f := range capFaces {
			faces = append(faces, [3]int{partner[f[0]], partner[f[1]], partner[f[2]]})
		}
	}
	out.Faces = faces
	out.relabel()
	out.extract()
	return out, nil
}

// TriangulateCaps replaces the faces on each of the given planes with an
// independent triangulation of its loop, wound to face out of the box.
func TriangulateCaps(w *Working, planes []Plane, target float64, tri kernel.Triangulator) (*Working, error) {
	out := w.clone()
	drop := make(map[Plane]bool, len(planes))
	for _, p := range planes {
		drop[p] = true
	}
	faces := out.keepFaces(drop)
	for _, p := range planes {
		capFaces, _, err := out.triangulateCap(p, target, tri)
		if err != nil {
			return nil, fmt.Errorf("remesh: cap %v: %w", p, err)
		}
		for _, f := range capFaces {
			if !p.IsMax() {
				f = [3]int{f[0], f[2], f[1]}
			}
			faces = append(faces, f)
		}
	}
	out.Faces = faces
	out.relabel()
	out.extract()
	return out, nil
}

// DropPlanes removes every face lying on one of the given planes.
func DropPlanes(w *Working, planes []Plane) *Working {
	out := w.clone()
	drop := make(map[Plane]bool, len(planes))
	for _, p := range planes {
		drop[p] = true
	}
	out.Faces = out.keepFaces(drop)
	out.compact()
	out.relabel()
	out.extract()
	return out
}

// Assemble returns the final mesh with unreferenced vertices removed.
func Assemble(w *Working) *kernel.TriMesh {
	out := w.clone()
	out.compact()
	return out.Mesh()
}

func (w *Working) sideFaces(faces [][3]int) [][3]int {
	for i, f := range w.Faces {
		if w.Labels[i] == NoPlane {
			faces = append(faces, f)
		}
	}
	return faces
}

func (w *Working) keepFaces(drop map[Plane]bool) [][3]int {
	var faces [][3]int
	for i, f := range w.Faces {
		if !drop[w.Labels[i]] {
			faces = append(faces, f)
		}
	}
	return faces
}

func (w *Working) lookupRadius() float64 {
	r := 10 * w.Tol
	if d := 1e-9 * w.Box.Size().Length(); r < d {
		r = d
	}
	return r
}

// triangulateCap fills the loop of plane p. Faces are counter-clockwise in
// the plane's (u, v) axes, so their normals point along +axis. Steiner
// points are appended to the working vertices. ids lists every vertex the
// cap uses.
func (w *Working) triangulateCap(p Plane, target float64, tri kernel.Triangulator) (faces [][3]int, ids []int, err error) {
	loop := w.Loops[p]
	if len(loop) == 0 {
		return nil, nil, nil
	}
	axis := p.Axis()
	u, v := boxclip.PlaneAxes(axis)

	ids = loopVertices(loop)
	local := make(map[int]int, len(ids))
	pts := make([]v2.Vec, len(ids))
	for i, id := range ids {
		local[id] = i
		pts[i] = v2.Vec{X: kernel.Coord(w.Vertices[id], u), Y: kernel.Coord(w.Vertices[id], v)}
	}
	edges := make([][2]int, len(loop))
	for i, e := range loop {
		edges[i] = [2]int{local[e[0]], local[e[1]]}
	}

	opts := kernel.TriangulateOptions{ConformingDelaunay: true, NoSteinerOnBoundary: true}
	if target > 0 {
		opts.MaxArea = math.Sqrt(3) / 4 * target * target
	}
	outPts, tris, err := tri.Triangulate(pts, edges, opts)
	if err != nil {
		return nil, nil, err
	}
	for _, q := range outPts[len(pts):] {
		var x v3.Vec
		x = kernel.WithCoord(x, u, q.X)
		x = kernel.WithCoord(x, v, q.Y)
		x = kernel.WithCoord(x, axis, w.bound(p))
		w.Vertices = append(w.Vertices, x)
		w.Pins = append(w.Pins, p.bit())
		ids = append(ids, len(w.Vertices)-1)
	}
	faces = make([][3]int, len(tris))
	for i, t := range tris {
		faces[i] = [3]int{ids[t[0]], ids[t[1]], ids[t[2]]}
	}
	return faces, ids, nil
}
