// Package boxclip intersects a closed triangle mesh with an axis-aligned
// box. It is the default kernel.BooleanEngine: the periodic inflators only
// ever intersect against cell boxes, which this package handles without a
// general-purpose CSG library.
//
// The side surface is clipped triangle by triangle against the six box
// planes. Each box face is closed by a cap: the cross-section of the mesh
// with that face's plane, clipped to the face rectangle and triangulated.
package boxclip

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/lattice/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrNotBox is returned when neither operand of Intersect is an
// axis-aligned box mesh.
var ErrNotBox = errors.New("boxclip: operand is not an axis-aligned box")

// ErrOpenSection is returned when the cross-section of the mesh with a box
// plane does not close, which means the input mesh is not closed.
var ErrOpenSection = errors.New("boxclip: open cross-section")

// Name is the registry name of this engine.
const Name = "boxclip"

func init() {
	kernel.RegisterBoolean(Name, func() (kernel.BooleanEngine, error) {
		return New(), nil
	})
}

// Compile-time interface check.
var _ kernel.BooleanEngine = (*Engine)(nil)

// Engine clips meshes against boxes.
type Engine struct {
	// RelTol is the weld tolerance relative to the box diagonal. Zero
	// selects 1e-9.
	RelTol float64
	// Triangulator fills the caps. Nil selects triangle.New().
	Triangulator kernel.Triangulator
}

// New returns an engine with default settings.
func New() *Engine {
	return &Engine{}
}

// Intersect returns the part of the solid a inside the box b (or of b
// inside a, when a is the box).
func (e *Engine) Intersect(a, b *kernel.TriMesh) (*kernel.TriMesh, error) {
	if box, ok := AsBox(b); ok {
		return e.Clip(a, box)
	}
	if box, ok := AsBox(a); ok {
		return e.Clip(b, box)
	}
	return nil, ErrNotBox
}

// AsBox reports whether m is a closed axis-aligned box and returns it.
func AsBox(m *kernel.TriMesh) (sdf.Box3, bool) {
	if m == nil || len(m.Vertices) < 8 || !m.IsClosed() {
		return sdf.Box3{}, false
	}
	b := m.Bounds()
	size := b.Size()
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return sdf.Box3{}, false
	}
	for _, v := range m.Vertices {
		for a := 0; a < 3; a++ {
			x := kernel.Coord(v, a)
			if x != kernel.Coord(b.Min, a) && x != kernel.Coord(b.Max, a) {
				return sdf.Box3{}, false
			}
		}
	}
	vol := size.X * size.Y * size.Z
	if math.Abs(math.Abs(m.Volume())-vol) > 1e-9*vol {
		return sdf.Box3{}, false
	}
	return b, true
}

// Clip returns the closed mesh bounding the intersection of the solid m
// with box. Side faces keep their source; cap faces get source 0.
func (e *Engine) Clip(m *kernel.TriMesh, box sdf.Box3) (*kernel.TriMesh, error) {
	tol := e.RelTol
	if tol <= 0 {
		tol = 1e-9
	}
	tol *= box.Size().Length()

	out := clipSides(m, box)
	for p := 0; p < 6; p++ {
		lid, err := e.cap(m, box, p/2, p%2 == 1)
		if err != nil {
			return nil, fmt.Errorf("boxclip: cap %d: %w", p, err)
		}
		out.Append(lid)
	}
	out.Weld(tol)
	out.RemoveDuplicateFaces()
	return out, nil
}

// ---------------------------------------------------------------------------
// Side surface
// ---------------------------------------------------------------------------

// lessVec orders points lexicographically so that a shared edge is always
// intersected from the same endpoint.
func lessVec(p, q v3.Vec) bool {
	if p.X != q.X {
		return p.X < q.X
	}
	if p.Y != q.Y {
		return p.Y < q.Y
	}
	return p.Z < q.Z
}

// planeCross returns where segment pq meets the plane x[axis] = c, with
// that coordinate set exactly.
func planeCross(p, q v3.Vec, axis int, c float64) v3.Vec {
	if kernel.Coord(p, axis) == c {
		return p
	}
	if kernel.Coord(q, axis) == c {
		return q
	}
	if lessVec(q, p) {
		p, q = q, p
	}
	pa, qa := kernel.Coord(p, axis), kernel.Coord(q, axis)
	t := (c - pa) / (qa - pa)
	var r v3.Vec
	switch {
	case t <= 0:
		r = p
	case t >= 1:
		r = q
	default:
		r = p.Add(q.Sub(p).MulScalar(t))
	}
	return kernel.WithCoord(r, axis, c)
}

func inside(p v3.Vec, axis int, c float64, max bool) bool {
	if max {
		return kernel.Coord(p, axis) <= c
	}
	return kernel.Coord(p, axis) >= c
}

// clipPolygon is one Sutherland-Hodgman pass.
func clipPolygon(poly []v3.Vec, axis int, c float64, max bool) []v3.Vec {
	out := make([]v3.Vec, 0, len(poly)+2)
	for i := range poly {
		p, q := poly[i], poly[(i+1)%len(poly)]
		pin, qin := inside(p, axis, c, max), inside(q, axis, c, max)
		if pin {
			out = append(out, p)
		}
		if pin != qin {
			x := planeCross(p, q, axis, c)
			if len(out) == 0 || out[len(out)-1] != x {
				out = append(out, x)
			}
		}
	}
	if len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}

// ClipPolygon clips poly to box along the first dim axes. Points on the box
// boundary count as inside and crossings land exactly on it, so a polygon
// touching a face or corner of the box is kept. The result may repeat a
// point or run back and forth along a face when poly is not convex.
func ClipPolygon(poly []v3.Vec, box sdf.Box3, dim int) []v3.Vec {
	for axis := 0; axis < dim && len(poly) > 0; axis++ {
		poly = clipPolygon(poly, axis, kernel.Coord(box.Min, axis), false)
		if len(poly) > 0 {
			poly = clipPolygon(poly, axis, kernel.Coord(box.Max, axis), true)
		}
	}
	return poly
}

func planeValue(box sdf.Box3, axis int, max bool) float64 {
	if max {
		return kernel.Coord(box.Max, axis)
	}
	return kernel.Coord(box.Min, axis)
}

func inBox(p v3.Vec, box sdf.Box3) bool {
	return p.X >= box.Min.X && p.X <= box.Max.X &&
		p.Y >= box.Min.Y && p.Y <= box.Max.Y &&
		p.Z >= box.Min.Z && p.Z <= box.Max.Z
}

func clipSides(m *kernel.TriMesh, box sdf.Box3) *kernel.TriMesh {
	out := &kernel.TriMesh{Sources: []int{}}
	index := make(map[v3.Vec]int)
	vertex := func(p v3.Vec) int {
		if i, ok := index[p]; ok {
			return i
		}
		index[p] = len(out.Vertices)
		out.Vertices = append(out.Vertices, p)
		return index[p]
	}
	source := func(f int) int {
		if m.Sources == nil {
			return 0
		}
		return m.Sources[f]
	}

	for fi, f := range m.Faces {
		a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		if inBox(a, box) && inBox(b, box) && inBox(c, box) {
			out.Faces = append(out.Faces, [3]int{vertex(a), vertex(b), vertex(c)})
			out.Sources = append(out.Sources, source(fi))
			continue
		}
		lo, hi := a.Min(b).Min(c), a.Max(b).Max(c)
		if lo.X > box.Max.X || lo.Y > box.Max.Y || lo.Z > box.Max.Z ||
			hi.X < box.Min.X || hi.Y < box.Min.Y || hi.Z < box.Min.Z {
			continue
		}
		poly := []v3.Vec{a, b, c}
		for p := 0; p < 6 && len(poly) >= 3; p++ {
			axis, max := p/2, p%2 == 1
			poly = clipPolygon(poly, axis, planeValue(box, axis, max), max)
		}
		if len(poly) < 3 {
			continue
		}
		ids := make([]int, len(poly))
		for i, p := range poly {
			ids[i] = vertex(p)
		}
		for i := 1; i+1 < len(ids); i++ {
			t := [3]int{ids[0], ids[i], ids[i+1]}
			if poly[i].Sub(poly[0]).Cross(poly[i+1].Sub(poly[0])).Length2() == 0 {
				continue
			}
			out.Faces = append(out.Faces, t)
			out.Sources = append(out.Sources, source(fi))
		}
	}
	return out
}
