// Package hull implements kernel.HullEngine with an incremental 3D convex
// hull and a monotone-chain 2D hull.
package hull

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/chazu/lattice/pkg/kernel"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrDegenerate is returned when the points do not span the required
// dimension (collinear in 2D, coplanar in 3D).
var ErrDegenerate = errors.New("hull: degenerate point set")

// Compile-time interface check.
var _ kernel.HullEngine = (*Engine)(nil)

// Engine computes convex hulls. The zero value is ready to use.
type Engine struct {
	// RelTol is the coplanarity tolerance relative to the point cloud
	// extent. Zero selects 1e-10.
	RelTol float64
}

// New returns a hull engine with default tolerances.
func New() *Engine {
	return &Engine{}
}

func (e *Engine) relTol() float64 {
	if e.RelTol > 0 {
		return e.RelTol
	}
	return 1e-10
}

type face struct {
	v     [3]int
	n     v3.Vec
	d     float64
	alive bool
}

func (f *face) dist(p v3.Vec) float64 {
	return f.n.Dot(p) - f.d
}

func newFace(pts []v3.Vec, a, b, c int) *face {
	n := pts[b].Sub(pts[a]).Cross(pts[c].Sub(pts[a]))
	if l := n.Length(); l > 0 {
		n = n.DivScalar(l)
	}
	return &face{v: [3]int{a, b, c}, n: n, d: n.Dot(pts[a]), alive: true}
}

// Hull3 returns the convex hull of points with outward-facing triangles.
// Points within tolerance of the hull surface are not hull vertices unless
// they extend it.
func (e *Engine) Hull3(points []v3.Vec) (*kernel.Hull, error) {
	if len(points) < 4 {
		return nil, fmt.Errorf("%w: %d points", ErrDegenerate, len(points))
	}
	lo, hi := points[0], points[0]
	for _, p := range points[1:] {
		lo, hi = lo.Min(p), hi.Max(p)
	}
	extent := hi.Sub(lo).Length()
	if extent == 0 {
		return nil, fmt.Errorf("%w: all points coincide", ErrDegenerate)
	}
	eps := e.relTol() * extent

	i0, i1, i2, i3, err := initialSimplex(points, eps)
	if err != nil {
		return nil, err
	}

	faces := []*face{
		newFace(points, i0, i1, i2),
		newFace(points, i0, i2, i3),
		newFace(points, i0, i3, i1),
		newFace(points, i1, i3, i2),
	}
	if faces[0].dist(points[i3]) > 0 {
		for _, f := range faces {
			f.v[1], f.v[2] = f.v[2], f.v[1]
			f.n = f.n.Neg()
			f.d = -f.d
		}
	}

	seed := map[int]bool{i0: true, i1: true, i2: true, i3: true}
	for pi, p := range points {
		if seed[pi] {
			continue
		}
		visible := make(map[[2]int]bool)
		seen := false
		for _, f := range faces {
			if !f.alive || f.dist(p) <= eps {
				continue
			}
			seen = true
			f.alive = false
			for k := 0; k < 3; k++ {
				visible[[2]int{f.v[k], f.v[(k+1)%3]}] = true
			}
		}
		if !seen {
			continue
		}
		horizon := make([][2]int, 0, len(visible))
		for edge := range visible {
			if !visible[[2]int{edge[1], edge[0]}] {
				horizon = append(horizon, edge)
			}
		}
		sort.Slice(horizon, func(a, b int) bool {
			if horizon[a][0] != horizon[b][0] {
				return horizon[a][0] < horizon[b][0]
			}
			return horizon[a][1] < horizon[b][1]
		})
		for _, edge := range horizon {
			faces = append(faces, newFace(points, edge[0], edge[1], pi))
		}
	}

	return collect(points, faces), nil
}

func initialSimplex(pts []v3.Vec, eps float64) (int, int, int, int, error) {
	i0 := 0
	for i, p := range pts {
		if p.X < pts[i0].X || (p.X == pts[i0].X && p.Y < pts[i0].Y) ||
			(p.X == pts[i0].X && p.Y == pts[i0].Y && p.Z < pts[i0].Z) {
			i0 = i
		}
	}
	i1, best := -1, 0.0
	for i, p := range pts {
		if d := p.Sub(pts[i0]).Length2(); d > best {
			i1, best = i, d
		}
	}
	if i1 < 0 || math.Sqrt(best) <= eps {
		return 0, 0, 0, 0, fmt.Errorf("%w: coincident points", ErrDegenerate)
	}
	dir := pts[i1].Sub(pts[i0]).Normalize()
	i2, best := -1, 0.0
	for i, p := range pts {
		if d := p.Sub(pts[i0]).Cross(dir).Length(); d > best {
			i2, best = i, d
		}
	}
	if i2 < 0 || best <= eps {
		return 0, 0, 0, 0, fmt.Errorf("%w: collinear points", ErrDegenerate)
	}
	n := pts[i1].Sub(pts[i0]).Cross(pts[i2].Sub(pts[i0])).Normalize()
	i3, best := -1, 0.0
	for i, p := range pts {
		if d := math.Abs(p.Sub(pts[i0]).Dot(n)); d > best {
			i3, best = i, d
		}
	}
	if i3 < 0 || best <= eps {
		return 0, 0, 0, 0, fmt.Errorf("%w: coplanar points", ErrDegenerate)
	}
	return i0, i1, i2, i3, nil
}

func collect(points []v3.Vec, faces []*face) *kernel.Hull {
	used := make(map[int]bool)
	for _, f := range faces {
		if f.alive {
			used[f.v[0]], used[f.v[1]], used[f.v[2]] = true, true, true
		}
	}
	index := make([]int, 0, len(used))
	for i := range used {
		index = append(index, i)
	}
	sort.Ints(index)
	local := make(map[int]int, len(index))
	h := &kernel.Hull{Index: index, Vertices: make([]v3.Vec, len(index))}
	for k, i := range index {
		local[i] = k
		h.Vertices[k] = points[i]
	}
	for _, f := range faces {
		if f.alive {
			h.Faces = append(h.Faces, [3]int{local[f.v[0]], local[f.v[1]], local[f.v[2]]})
		}
	}
	return h
}

// Hull2 returns the indices of the 2D convex hull in CCW order, starting
// from the lowest-leftmost point. Collinear boundary points are dropped.
func (e *Engine) Hull2(points []v2.Vec) ([]int, error) {
	if len(points) < 3 {
		return nil, fmt.Errorf("%w: %d points", ErrDegenerate, len(points))
	}
	idx := make([]int, len(points))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		pa, pb := points[idx[a]], points[idx[b]]
		if pa.X != pb.X {
			return pa.X < pb.X
		}
		return pa.Y < pb.Y
	})

	cross := func(o, a, b int) float64 {
		po, pa, pb := points[o], points[a], points[b]
		return (pa.X-po.X)*(pb.Y-po.Y) - (pa.Y-po.Y)*(pb.X-po.X)
	}

	hull := make([]int, 0, 2*len(idx))
	for _, i := range idx {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], i) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, i)
	}
	lower := len(hull) + 1
	for k := len(idx) - 2; k >= 0; k-- {
		i := idx[k]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], i) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, i)
	}
	hull = hull[:len(hull)-1]
	if len(hull) < 3 {
		return nil, fmt.Errorf("%w: collinear points", ErrDegenerate)
	}
	return hull, nil
}
