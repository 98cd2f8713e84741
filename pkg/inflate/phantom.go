package inflate

import (
	"fmt"

	"github.com/chazu/lattice/pkg/kernel"
	"github.com/chazu/lattice/pkg/wire"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// phantom is the inflated 3x3x3 neighbourhood of a unit cell, in the
// network's original coordinates. Face sources name orbits: +(o+1) for
// vertex orbit o, -(o+1) for edge orbit o.
type phantom struct {
	mesh       *kernel.TriMesh
	velocities []*mat.Dense
	design     []DesignParameter
	cell       sdf.Box3
	tol        float64
}

// generatePhantom tiles the centered cell 3 times along every periodic
// axis, keeps the part of the tiling that can reach the central cell once
// inflated, and inflates it.
func generatePhantom(net *wire.Network, params *Parameters, opts Options, he kernel.HullEngine, tri kernel.Triangulator) (*phantom, error) {
	c := net.Clone()
	shift := c.CenterAtOrigin()
	tol := opts.Tolerance
	if tol <= 0 {
		tol = c.DefaultTolerance()
	}
	c.PeriodicOrbits(tol)

	cell := c.Bounds()
	size := cell.Size()
	guide := sdf.Box3{Min: cell.Min.Sub(size), Max: cell.Max.Add(size)}
	reps := [3]int{3, 3, 3}
	if c.Dim == 2 {
		guide.Min.Z, guide.Max.Z = 0, 0
		reps[2] = 1
	}
	tiled, err := c.TileWithGuide(guide, reps)
	if err != nil {
		return nil, fmt.Errorf("inflate: phantom tiling: %w", err)
	}

	sub := neighbourhood(tiled, cell, tol)
	opts.Logger.WithFields(logrus.Fields{
		"stage":    "phantom",
		"vertices": len(sub.Vertices),
		"edges":    len(sub.Edges),
	}).Debug("phantom network")
	if len(sub.Vertices) == 0 {
		return nil, ErrEmptyPhantom
	}

	res, err := runSimple(sub, params, opts, he, tri)
	if err != nil {
		return nil, fmt.Errorf("inflate: phantom: %w", err)
	}
	vo, eo := elementOrbits(sub)
	for i, s := range res.mesh.Sources {
		switch {
		case s > 0:
			res.mesh.Sources[i] = vo[s-1] + 1
		case s < 0:
			res.mesh.Sources[i] = -(eo[-s-1] + 1)
		}
	}
	back := shift.Neg()
	res.mesh.Transform(func(p v3.Vec) v3.Vec { return p.Add(back) })
	return &phantom{
		mesh:       res.mesh,
		velocities: res.velocities,
		design:     res.design,
		cell:       net.Bounds(),
		tol:        tol,
	}, nil
}

// neighbourhood keeps the vertices inside the (tolerance-expanded) cell
// plus two rings of neighbours, the edges among them and every isolated
// vertex, whose ball may reach into the cell from a neighbouring copy.
// Attributes are carried over.
func neighbourhood(n *wire.Network, cell sdf.Box3, tol float64) *wire.Network {
	inside := make([]bool, len(n.Vertices))
	for i, v := range n.Vertices {
		inside[i] = true
		for a := 0; a < n.Dim; a++ {
			x := kernel.Coord(v, a)
			if x < kernel.Coord(cell.Min, a)-tol || x > kernel.Coord(cell.Max, a)+tol {
				inside[i] = false
				break
			}
		}
	}
	keep := append([]bool(nil), inside...)
	for ring := 0; ring < 2; ring++ {
		grown := append([]bool(nil), keep...)
		for _, e := range n.Edges {
			if keep[e[0]] || keep[e[1]] {
				grown[e[0]], grown[e[1]] = true, true
			}
		}
		keep = grown
	}

	var edges []int
	used := make([]bool, len(n.Vertices))
	for i, e := range n.Edges {
		if keep[e[0]] && keep[e[1]] {
			edges = append(edges, i)
			used[e[0]], used[e[1]] = true, true
		}
	}
	remap := make([]int, len(n.Vertices))
	var verts []int
	for i := range n.Vertices {
		remap[i] = -1
		if used[i] || n.Degree(i) == 0 {
			remap[i] = len(verts)
			verts = append(verts, i)
		}
	}

	out := &wire.Network{Dim: n.Dim}
	for _, i := range verts {
		out.Vertices = append(out.Vertices, n.Vertices[i])
	}
	for _, i := range edges {
		e := n.Edges[i]
		out.Edges = append(out.Edges, [2]int{remap[e[0]], remap[e[1]]})
	}
	out.SetCell(n.Bounds())
	for _, name := range n.VertexAttributeNames() {
		src, _ := n.VertexAttribute(name)
		vals := make([]float64, len(verts))
		for k, i := range verts {
			vals[k] = src[i]
		}
		out.SetVertexAttribute(name, vals)
	}
	for _, name := range n.EdgeAttributeNames() {
		src, _ := n.EdgeAttribute(name)
		vals := make([]float64, len(edges))
		for k, i := range edges {
			vals[k] = src[i]
		}
		out.SetEdgeAttribute(name, vals)
	}
	return out
}
