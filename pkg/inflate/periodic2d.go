package inflate

import (
	"math"

	"github.com/chazu/lattice/pkg/kernel"
	"github.com/chazu/lattice/pkg/kernel/boxclip"
	"github.com/chazu/lattice/pkg/spatial"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

type overlap int

const (
	overlapNone overlap = iota
	overlapInside
	overlapPartial
)

// classify2D places triangle abc relative to the cell rectangle.
func classify2D(a, b, c v3.Vec, cell sdf.Box3, tol float64) overlap {
	lo, hi := a.Min(b).Min(c), a.Max(b).Max(c)
	if lo.X > cell.Max.X+tol || lo.Y > cell.Max.Y+tol || hi.X < cell.Min.X-tol || hi.Y < cell.Min.Y-tol {
		return overlapNone
	}
	if lo.X >= cell.Min.X-tol && lo.Y >= cell.Min.Y-tol && hi.X <= cell.Max.X+tol && hi.Y <= cell.Max.Y+tol {
		return overlapInside
	}
	return overlapPartial
}

// clip2D keeps phantom triangles inside the cell, drops those outside and
// intersects the rest with the cell rectangle. Pieces keep the source of
// their parent triangle.
func clip2D(_ *PeriodicInflator, ph *phantom, _ *spatial.FaceLocator) (*kernel.TriMesh, error) {
	cell, tol := ph.cell, ph.tol

	out := &kernel.TriMesh{Sources: []int{}}
	add := func(pts []v3.Vec, source int) {
		base := len(out.Vertices)
		out.Vertices = append(out.Vertices, pts...)
		for k := 1; k+1 < len(pts); k++ {
			out.Faces = append(out.Faces, [3]int{base, base + k, base + k + 1})
			out.Sources = append(out.Sources, source)
		}
	}

	m := ph.mesh
	for i, f := range m.Faces {
		a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		switch classify2D(a, b, c, cell, tol) {
		case overlapInside:
			add([]v3.Vec{a, b, c}, m.Sources[i])
		case overlapPartial:
			for _, piece := range clipTriangle2D(a, b, c, cell) {
				add(piece, m.Sources[i])
			}
		}
	}

	out.Transform(func(v v3.Vec) v3.Vec { return snapToBox(v, cell, 2, tol) })
	out.Weld(tol)
	out.RemoveDegenerateFaces(0)
	out.RemoveIsolatedVertices()
	return out, nil
}

// clipTriangle2D intersects triangle abc with the XY rectangle of cell and
// returns the convex pieces, counter-clockwise. Vertices on the rectangle
// count as inside.
func clipTriangle2D(a, b, c v3.Vec, cell sdf.Box3) [][]v3.Vec {
	var ring []v3.Vec
	for _, p := range boxclip.ClipPolygon([]v3.Vec{a, b, c}, cell, 2) {
		if len(ring) == 0 || ring[len(ring)-1] != p {
			ring = append(ring, p)
		}
	}
	for len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		ring = ring[:len(ring)-1]
	}
	if len(ring) < 3 {
		return nil
	}
	var area float64
	for k := range ring {
		p, q := ring[k], ring[(k+1)%len(ring)]
		area += p.X*q.Y - q.X*p.Y
	}
	if area == 0 {
		return nil
	}
	if area < 0 {
		for l, r := 0, len(ring)-1; l < r; l, r = l+1, r-1 {
			ring[l], ring[r] = ring[r], ring[l]
		}
	}
	return [][]v3.Vec{ring}
}

// snapToBox moves coordinates within tol of a bound of box onto it, for
// the first dim axes.
func snapToBox(v v3.Vec, box sdf.Box3, dim int, tol float64) v3.Vec {
	for a := 0; a < dim; a++ {
		x := kernel.Coord(v, a)
		switch lo, hi := kernel.Coord(box.Min, a), kernel.Coord(box.Max, a); {
		case math.Abs(x-lo) <= tol:
			v = kernel.WithCoord(v, a, lo)
		case math.Abs(x-hi) <= tol:
			v = kernel.WithCoord(v, a, hi)
		}
	}
	return v
}
