package remesh

import (
	"errors"
	"fmt"

	"github.com/chazu/lattice/pkg/kernel"
	"github.com/chazu/lattice/pkg/spatial"
)

// ErrUnmatchedBoundary is returned when the boundary loops on two opposite
// planes cannot be paired vertex for vertex.
var ErrUnmatchedBoundary = errors.New("remesh: unmatched boundary vertices on opposite planes")

// pair links a vertex on a min plane to its translated partner on the max
// plane.
type pair struct{ min, max int }

// MatchOpposite pairs the loop vertices of every min plane with those of
// the opposite max plane, translated by the box size, within radius. A
// vertex without a partner is merged into a matched loop neighbour and the
// pairing is retried. Once every vertex is paired, the coordinates along
// the other two axes are copied across so that the pair differs only by
// the box translation: the max vertex follows unless it is pinned on that
// axis and the min vertex is not.
func MatchOpposite(w *Working, radius float64) (*Working, error) {
	out := w.clone()
	if out.Labels == nil {
		out.relabel()
		out.extract()
	}
	for axis := 0; axis < 3; axis++ {
		if err := out.matchAxis(axis, radius); err != nil {
			return nil, err
		}
		out.relabel()
		out.extract()
	}
	return out, nil
}

func (w *Working) matchAxis(axis int, radius float64) error {
	pm, pM := PlaneOf(axis, false), PlaneOf(axis, true)
	for pass := 0; ; pass++ {
		pairs, loneMin, loneMax := w.pairUp(axis, radius)
		if len(loneMin)+len(loneMax) == 0 {
			w.snapPairs(axis, pairs)
			return nil
		}
		limit := len(w.Loops[pm]) + len(w.Loops[pM])
		if pass > limit {
			return fmt.Errorf("%w: %d on %v, %d on %v", ErrUnmatchedBoundary, len(loneMin), pm, len(loneMax), pM)
		}
		matched := make(map[int]bool, 2*len(pairs))
		for _, p := range pairs {
			matched[p.min], matched[p.max] = true, true
		}
		remap := identity(len(w.Vertices))
		n := w.mergeLone(pm, loneMin, matched, remap)
		n += w.mergeLone(pM, loneMax, matched, remap)
		if n == 0 {
			return fmt.Errorf("%w: %d on %v, %d on %v", ErrUnmatchedBoundary, len(loneMin), pm, len(loneMax), pM)
		}
		w.remap(remap)
	}
}

// pairUp matches the loop vertices of the two planes normal to axis. Each
// min vertex is used at most once; max vertices claim partners in index
// order.
func (w *Working) pairUp(axis int, radius float64) (pairs []pair, loneMin, loneMax []int) {
	mins := loopVertices(w.Loops[PlaneOf(axis, false)])
	maxs := loopVertices(w.Loops[PlaneOf(axis, true)])
	shift := kernel.Unit(axis).MulScalar(kernel.Coord(w.Box.Size(), axis))

	grid := spatial.NewHashGrid(2 * radius)
	for _, v := range mins {
		grid.Insert(v, w.Vertices[v])
	}
	taken := make(map[int]bool, len(mins))
	for _, v := range maxs {
		found := -1
		for _, c := range grid.QueryRadius(w.Vertices[v].Sub(shift), radius) {
			if !taken[c] {
				found = c
				break
			}
		}
		if found < 0 {
			loneMax = append(loneMax, v)
			continue
		}
		taken[found] = true
		pairs = append(pairs, pair{min: found, max: v})
	}
	for _, v := range mins {
		if !taken[v] {
			loneMin = append(loneMin, v)
		}
	}
	return pairs, loneMin, loneMax
}

// mergeLone redirects every unmatched vertex into a matched loop neighbour
// whose planes cover its own. It returns the number of merges.
func (w *Working) mergeLone(p Plane, lone []int, matched map[int]bool, remap []int) int {
	adj := loopAdjacency(w.Loops[p])
	n := 0
	for _, u := range lone {
		if remap[u] != u {
			continue
		}
		for _, nb := range adj[u] {
			if !matched[nb] || remap[nb] != nb {
				continue
			}
			if w.Pins[u]&^w.Pins[nb] != 0 {
				continue
			}
			remap[u] = nb
			n++
			break
		}
	}
	return n
}

func (w *Working) snapPairs(axis int, pairs []pair) {
	for _, p := range pairs {
		lo, hi := w.Vertices[p.min], w.Vertices[p.max]
		for b := 0; b < 3; b++ {
			if b == axis {
				continue
			}
			switch {
			case !pinnedOn(w.Pins[p.max], b):
				hi = kernel.WithCoord(hi, b, kernel.Coord(lo, b))
			case !pinnedOn(w.Pins[p.min], b):
				lo = kernel.WithCoord(lo, b, kernel.Coord(hi, b))
			}
		}
		w.Vertices[p.min] = kernel.WithCoord(lo, axis, kernel.Coord(w.Box.Min, axis))
		w.Vertices[p.max] = kernel.WithCoord(hi, axis, kernel.Coord(w.Box.Max, axis))
	}
}
