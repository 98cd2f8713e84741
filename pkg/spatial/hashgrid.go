// Package spatial provides the point and face lookup structures used to
// match vertices across periodic cell faces and to trace clipped geometry
// back to the phantom surface it came from.
package spatial

import (
	"math"
	"sort"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

type cellKey [3]int64

type entry struct {
	id int
	p  v3.Vec
}

// HashGrid buckets points into a uniform grid keyed by integer cell
// coordinates floor(p / cellSize). Each occupied cell holds a set of ids.
type HashGrid struct {
	cellSize float64
	cells    map[cellKey][]entry
	n        int
}

// NewHashGrid returns an empty grid. cellSize must be positive; callers pick
// it larger than their matching tolerance.
func NewHashGrid(cellSize float64) *HashGrid {
	if !(cellSize > 0) {
		cellSize = 1
	}
	return &HashGrid{
		cellSize: cellSize,
		cells:    make(map[cellKey][]entry),
	}
}

// CellSize returns the grid spacing.
func (g *HashGrid) CellSize() float64 {
	return g.cellSize
}

// Len returns the number of stored (id, point) entries.
func (g *HashGrid) Len() int {
	return g.n
}

func (g *HashGrid) key(p v3.Vec) cellKey {
	return cellKey{
		int64(math.Floor(p.X / g.cellSize)),
		int64(math.Floor(p.Y / g.cellSize)),
		int64(math.Floor(p.Z / g.cellSize)),
	}
}

// Insert adds id at point p. Inserting the same id twice into one cell is a
// no-op.
func (g *HashGrid) Insert(id int, p v3.Vec) {
	k := g.key(p)
	for _, e := range g.cells[k] {
		if e.id == id {
			return
		}
	}
	g.cells[k] = append(g.cells[k], entry{id: id, p: p})
	g.n++
}

// Query returns the ids stored in the cell containing p, ascending. Callers
// post-filter by exact distance.
func (g *HashGrid) Query(p v3.Vec) []int {
	es := g.cells[g.key(p)]
	ids := make([]int, 0, len(es))
	for _, e := range es {
		ids = append(ids, e.id)
	}
	sort.Ints(ids)
	return ids
}

// QueryRadius returns the ids whose point lies within r of p, scanning every
// cell the ball overlaps. Results are ordered by distance, then id.
func (g *HashGrid) QueryRadius(p v3.Vec, r float64) []int {
	lo := g.key(v3.Vec{X: p.X - r, Y: p.Y - r, Z: p.Z - r})
	hi := g.key(v3.Vec{X: p.X + r, Y: p.Y + r, Z: p.Z + r})
	type hit struct {
		id int
		d2 float64
	}
	var hits []hit
	r2 := r * r
	for i := lo[0]; i <= hi[0]; i++ {
		for j := lo[1]; j <= hi[1]; j++ {
			for k := lo[2]; k <= hi[2]; k++ {
				for _, e := range g.cells[cellKey{i, j, k}] {
					if d2 := e.p.Sub(p).Length2(); d2 <= r2 {
						hits = append(hits, hit{e.id, d2})
					}
				}
			}
		}
	}
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].d2 != hits[b].d2 {
			return hits[a].d2 < hits[b].d2
		}
		return hits[a].id < hits[b].id
	})
	ids := make([]int, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}
	return ids
}

// Nearest returns the closest id within r of p.
func (g *HashGrid) Nearest(p v3.Vec, r float64) (int, bool) {
	ids := g.QueryRadius(p, r)
	if len(ids) == 0 {
		return -1, false
	}
	return ids[0], true
}
