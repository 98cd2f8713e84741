package spatial

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/dhconnelly/rtreego"
)

// Hit is the answer to a closest-point query.
type Hit struct {
	Face  int        // index of the closest triangle
	Point v3.Vec     // closest point on that triangle
	Dist2 float64    // squared distance from the query point
	Bary  [3]float64 // barycentric coordinates of Point in Face
}

type faceBox struct {
	face int
	rect rtreego.Rect
}

func (f *faceBox) Bounds() rtreego.Rect {
	return f.rect
}

// FaceLocator answers nearest-triangle queries over a fixed triangle mesh
// using an R-tree of face bounding boxes.
type FaceLocator struct {
	verts []v3.Vec
	faces [][3]int
	tree  *rtreego.Rtree
	pad   float64
}

// NewFaceLocator indexes the given triangles. The slices are retained and
// must not be mutated while the locator is in use.
func NewFaceLocator(verts []v3.Vec, faces [][3]int) *FaceLocator {
	l := &FaceLocator{verts: verts, faces: faces}

	var lo, hi v3.Vec
	for i, v := range verts {
		if i == 0 {
			lo, hi = v, v
			continue
		}
		lo, hi = lo.Min(v), hi.Max(v)
	}
	l.pad = 1e-9*math.Max(1, hi.Sub(lo).Length()) + 1e-12

	objs := make([]rtreego.Spatial, 0, len(faces))
	for i, f := range faces {
		a, b, c := verts[f[0]], verts[f[1]], verts[f[2]]
		objs = append(objs, &faceBox{face: i, rect: l.rect(a.Min(b).Min(c), a.Max(b).Max(c))})
	}
	l.tree = rtreego.NewTree(3, 25, 50, objs...)
	return l
}

func (l *FaceLocator) rect(lo, hi v3.Vec) rtreego.Rect {
	lo = lo.Sub(v3.Vec{X: l.pad, Y: l.pad, Z: l.pad})
	size := hi.Sub(lo).Add(v3.Vec{X: l.pad, Y: l.pad, Z: l.pad})
	r, _ := rtreego.NewRect(rtreego.Point{lo.X, lo.Y, lo.Z}, []float64{size.X, size.Y, size.Z})
	return r
}

// Len returns the number of indexed faces.
func (l *FaceLocator) Len() int {
	return len(l.faces)
}

// Closest returns the point on the mesh nearest to p. Ties are broken by the
// lower face index. ok is false for an empty mesh.
func (l *FaceLocator) Closest(p v3.Vec) (Hit, bool) {
	if len(l.faces) == 0 {
		return Hit{}, false
	}
	// The R-tree nearest neighbour is measured to bounding boxes, so it only
	// seeds the search radius; the exact answer is found among every box
	// intersecting that ball.
	nn, _ := l.tree.NearestNeighbor(rtreego.Point{p.X, p.Y, p.Z}).(*faceBox)
	if nn == nil {
		return Hit{}, false
	}
	best := l.hit(nn.face, p)
	r := math.Sqrt(best.Dist2) + l.pad
	cands := l.tree.SearchIntersect(l.rect(p.Sub(v3.Vec{X: r, Y: r, Z: r}), p.Add(v3.Vec{X: r, Y: r, Z: r})))
	for _, s := range cands {
		fb := s.(*faceBox)
		h := l.hit(fb.face, p)
		if h.Dist2 < best.Dist2 || (h.Dist2 == best.Dist2 && h.Face < best.Face) {
			best = h
		}
	}
	return best, true
}

func (l *FaceLocator) hit(face int, p v3.Vec) Hit {
	f := l.faces[face]
	q, bary := ClosestPointOnTriangle(p, l.verts[f[0]], l.verts[f[1]], l.verts[f[2]])
	return Hit{Face: face, Point: q, Dist2: q.Sub(p).Length2(), Bary: bary}
}

// ClosestPointOnTriangle returns the point of triangle abc closest to p and
// its barycentric coordinates.
func ClosestPointOnTriangle(p, a, b, c v3.Vec) (v3.Vec, [3]float64) {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)
	d1, d2 := ab.Dot(ap), ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a, [3]float64{1, 0, 0}
	}

	bp := p.Sub(b)
	d3, d4 := ab.Dot(bp), ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b, [3]float64{0, 1, 0}
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return a.Add(ab.MulScalar(v)), [3]float64{1 - v, v, 0}
	}

	cp := p.Sub(c)
	d5, d6 := ab.Dot(cp), ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c, [3]float64{0, 0, 1}
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return a.Add(ac.MulScalar(w)), [3]float64{1 - w, 0, w}
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).MulScalar(w)), [3]float64{0, 1 - w, w}
	}

	denom := va + vb + vc
	if denom == 0 {
		// Degenerate triangle: every edge case above failed only through
		// rounding. Fall back to the nearest corner.
		best, bary := a, [3]float64{1, 0, 0}
		if p.Sub(b).Length2() < p.Sub(best).Length2() {
			best, bary = b, [3]float64{0, 1, 0}
		}
		if p.Sub(c).Length2() < p.Sub(best).Length2() {
			best, bary = c, [3]float64{0, 0, 1}
		}
		return best, bary
	}
	v := vb / denom
	w := vc / denom
	return a.Add(ab.MulScalar(v)).Add(ac.MulScalar(w)), [3]float64{1 - v - w, v, w}
}
