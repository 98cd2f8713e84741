package inflate

import (
	"fmt"
	"math"
	"sort"

	"github.com/chazu/lattice/pkg/kernel"
	"github.com/chazu/lattice/pkg/remesh"
	"github.com/chazu/lattice/pkg/spatial"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

var (
	octantMaxPlanes = []remesh.Plane{remesh.MaxX, remesh.MaxY, remesh.MaxZ}
	octantMinPlanes = []remesh.Plane{remesh.MinX, remesh.MinY, remesh.MinZ}
)

// clipIsotropic builds the octant of the cell between its center and its
// max corner, then mirrors it through the center along each axis.
func clipIsotropic(p *PeriodicInflator, ph *phantom, loc *spatial.FaceLocator) (*kernel.TriMesh, error) {
	oct, err := p.isotropicOctant(ph)
	if err != nil {
		return nil, err
	}
	out := mirrorOctant(oct, ph.cell, ph.tol)
	out.Sources = faceSources(out, ph, loc)
	return out, nil
}

// octaCell is the box from the center of cell to its max corner.
func octaCell(cell sdf.Box3) sdf.Box3 {
	return sdf.Box3{Min: cell.Center(), Max: cell.Max}
}

// isotropicOctant returns the closed clipped octant with remeshed outer
// faces.
func (p *PeriodicInflator) isotropicOctant(ph *phantom) (*remesh.Working, error) {
	box := octaCell(ph.cell)
	clipped, err := p.intersect(ph, box)
	if err != nil {
		return nil, err
	}
	w := remesh.ExtractLoops(remesh.Label(remesh.Clean(remesh.NewWorking(clipped, box, ph.tol))))
	w = remesh.SplitLongBoundaryEdges(w, p.maxBoundaryEdge(ph.cell))
	w, err = remesh.TriangulateCaps(w, octantMaxPlanes, p.targetEdgeLength(), p.tri)
	if err != nil {
		return nil, fmt.Errorf("inflate: octant caps: %w", err)
	}
	return w, nil
}

// maxBoundaryEdge converts the relative MaxBoundaryEdgeLength option to a
// length using the smallest cell extent.
func (p *PeriodicInflator) maxBoundaryEdge(cell sdf.Box3) float64 {
	size := cell.Size()
	return p.opts.MaxBoundaryEdgeLength * math.Min(size.X, math.Min(size.Y, size.Z))
}

// mirrorOctant drops the octant faces on the inner planes, reflects the
// rest three times, welds the copies and snaps the result onto the cell.
func mirrorOctant(oct *remesh.Working, cell sdf.Box3, tol float64) *kernel.TriMesh {
	m := remesh.Assemble(remesh.DropPlanes(oct, octantMinPlanes))
	center := cell.Center()
	for a := 0; a < 3; a++ {
		c := kernel.Coord(center, a)
		mirror := m.Clone()
		mirror.Transform(func(v v3.Vec) v3.Vec {
			return kernel.WithCoord(v, a, 2*c-kernel.Coord(v, a))
		})
		mirror.FlipFaces()
		m.Append(mirror)
	}
	m.WeldWithPriority(tol, seamPriority(m, cell, tol))

	m.Transform(func(v v3.Vec) v3.Vec { return snapToBox(v, cell, 3, tol) })
	m.Weld(tol)
	removeFins(m, tol*tol)
	m.RemoveIsolatedVertices()
	return m
}

// seamPriority ranks vertices inside a single cell face above vertices on
// cell edges and corners, so that merged clusters keep a face vertex.
func seamPriority(m *kernel.TriMesh, cell sdf.Box3, tol float64) []int {
	prio := make([]int, len(m.Vertices))
	for i, v := range m.Vertices {
		n := 0
		for a := 0; a < 3; a++ {
			x := kernel.Coord(v, a)
			if math.Abs(x-kernel.Coord(cell.Min, a)) <= tol || math.Abs(x-kernel.Coord(cell.Max, a)) <= tol {
				n++
			}
		}
		if n == 1 {
			prio[i] = 1
		}
	}
	return prio
}

// removeFins drops faces with area at most areaTol and both faces of any
// pair spanning the same three vertices.
func removeFins(m *kernel.TriMesh, areaTol float64) {
	m.RemoveDegenerateFaces(areaTol)
	count := make(map[[3]int]int, len(m.Faces))
	key := func(f [3]int) [3]int {
		sort.Ints(f[:])
		return f
	}
	for _, f := range m.Faces {
		count[key(f)]++
	}
	keep := 0
	for i, f := range m.Faces {
		if count[key(f)] > 1 {
			continue
		}
		m.Faces[keep] = f
		if m.Sources != nil {
			m.Sources[keep] = m.Sources[i]
		}
		keep++
	}
	m.Faces = m.Faces[:keep]
	if m.Sources != nil {
		m.Sources = m.Sources[:keep]
	}
}
