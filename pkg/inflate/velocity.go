package inflate

import (
	"math"

	"github.com/chazu/lattice/pkg/kernel"
	"github.com/chazu/lattice/pkg/spatial"
	"github.com/deadsy/sdfx/sdf"
	"gonum.org/v1/gonum/mat"
)

// transferVelocities carries the phantom shape velocities onto m. A vertex
// within tol of the phantom surface takes the barycentric blend of the
// velocities of the closest phantom triangle; other vertices (cap
// interiors) get zero.
func transferVelocities(m *kernel.TriMesh, ph *phantom, loc *spatial.FaceLocator, tol float64) []*mat.Dense {
	out := make([]*mat.Dense, len(ph.velocities))
	for k, pv := range ph.velocities {
		_, cols := pv.Dims()
		out[k] = mat.NewDense(max(1, len(m.Vertices)), cols, nil)
	}
	if len(out) == 0 {
		return out
	}
	for i, v := range m.Vertices {
		hit, ok := loc.Closest(v)
		if !ok || hit.Dist2 > tol*tol {
			continue
		}
		f := ph.mesh.Faces[hit.Face]
		for k, pv := range ph.velocities {
			_, cols := pv.Dims()
			for c := 0; c < cols; c++ {
				x := hit.Bary[0]*pv.At(f[0], c) + hit.Bary[1]*pv.At(f[1], c) + hit.Bary[2]*pv.At(f[2], c)
				out[k].Set(i, c, x)
			}
		}
	}
	return out
}

// onCellPlane reports whether all corners of face i lie on one plane of
// cell.
func onCellPlane(m *kernel.TriMesh, i int, cell sdf.Box3, tol float64) bool {
	f := m.Faces[i]
	for a := 0; a < 3; a++ {
		if kernel.Coord(cell.Size(), a) <= 0 {
			continue
		}
		for _, c := range []float64{kernel.Coord(cell.Min, a), kernel.Coord(cell.Max, a)} {
			on := true
			for _, vi := range f {
				if math.Abs(kernel.Coord(m.Vertices[vi], a)-c) > tol {
					on = false
					break
				}
			}
			if on {
				return true
			}
		}
	}
	return false
}
