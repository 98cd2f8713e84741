// Package profile places beam cross-sections along wire edges and corrects
// them toward measured fabrication sizes.
package profile

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrInvalidProfile is returned for unknown shapes or bad side counts.
var ErrInvalidProfile = errors.New("profile: invalid profile")

// Shape selects the canonical cross-section.
type Shape int

const (
	ShapeSquare  Shape = iota // 4 points, axis-aligned sides
	ShapePolygon              // regular N-gon
	ShapeSegment              // 2 points; the 2D profile
)

func (s Shape) String() string {
	switch s {
	case ShapeSquare:
		return "square"
	case ShapePolygon:
		return "polygon"
	case ShapeSegment:
		return "segment"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// ParseShape maps a configuration name to a shape and side count.
// Accepted names: square, triangle, pentagon, hexagon, octagon,
// polygon (sides taken from the argument) and segment / 2d.
func ParseShape(name string, sides int) (Shape, int, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "square":
		return ShapeSquare, 4, nil
	case "triangle":
		return ShapePolygon, 3, nil
	case "pentagon":
		return ShapePolygon, 5, nil
	case "hexagon":
		return ShapePolygon, 6, nil
	case "octagon":
		return ShapePolygon, 8, nil
	case "polygon":
		if sides < 3 {
			return 0, 0, fmt.Errorf("%w: polygon needs at least 3 sides, got %d", ErrInvalidProfile, sides)
		}
		return ShapePolygon, sides, nil
	case "segment", "2d":
		return ShapeSegment, 2, nil
	default:
		return 0, 0, fmt.Errorf("%w: unknown shape %q", ErrInvalidProfile, name)
	}
}

// Profile is a canonical closed loop inscribed in the unit circle. 3D
// profiles lie CCW in the local XY plane and are offset along local Z; the
// 2D profile is the pair (1,0), (-1,0) offset along local Y.
type Profile struct {
	shape Shape
	loop  []v3.Vec
}

// New builds a profile. sides is only read for ShapePolygon.
func New(shape Shape, sides int) (*Profile, error) {
	switch shape {
	case ShapeSquare:
		return &Profile{shape: shape, loop: regular(4, math.Pi/4)}, nil
	case ShapePolygon:
		if sides < 3 {
			return nil, fmt.Errorf("%w: polygon needs at least 3 sides, got %d", ErrInvalidProfile, sides)
		}
		return &Profile{shape: shape, loop: regular(sides, math.Pi/float64(sides))}, nil
	case ShapeSegment:
		return &Profile{shape: shape, loop: []v3.Vec{{X: 1}, {X: -1}}}, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, shape)
	}
}

// ForDimension returns the default profile for a dimension: the square in
// 3D, the segment in 2D.
func ForDimension(dim int) *Profile {
	if dim == 2 {
		p, _ := New(ShapeSegment, 2)
		return p
	}
	p, _ := New(ShapeSquare, 4)
	return p
}

func regular(n int, phase float64) []v3.Vec {
	out := make([]v3.Vec, n)
	for k := range out {
		a := 2*math.Pi*float64(k)/float64(n) + phase
		out[k] = v3.Vec{X: math.Cos(a), Y: math.Sin(a)}
	}
	return out
}

// Shape returns the profile shape.
func (p *Profile) Shape() Shape { return p.shape }

// Dim returns 2 for the segment profile and 3 otherwise.
func (p *Profile) Dim() int {
	if p.shape == ShapeSegment {
		return 2
	}
	return 3
}

// Size returns the number of points per loop.
func (p *Profile) Size() int { return len(p.loop) }

// Radius returns the radius of the circle the canonical loop is inscribed in.
func (p *Profile) Radius() float64 { return 1 }

// Loop returns a copy of the canonical loop.
func (p *Profile) Loop() []v3.Vec {
	return append([]v3.Vec(nil), p.loop...)
}

// OffsetAxis returns the local axis the loop is offset along.
func (p *Profile) OffsetAxis() v3.Vec {
	if p.shape == ShapeSegment {
		return v3.Vec{Y: 1}
	}
	return v3.Vec{Z: 1}
}

// Frame returns the rotation taking the offset axis to the direction of
// end2 - end1. In 3D the loop is first turned about Z so that its local X
// follows the horizontal projection of the edge, which keeps neighbouring
// beams consistently oriented.
func (p *Profile) Frame(end1, end2 v3.Vec) sdf.M44 {
	d := end2.Sub(end1)
	if p.shape == ShapeSegment {
		return sdf.RotateZ(math.Atan2(d.Y, d.X) - math.Pi/2)
	}
	l := d.Length()
	if l == 0 {
		return sdf.Identity3d()
	}
	dir := d.DivScalar(l)
	const eps = 1e-12
	if dir.Z < -1+eps {
		return sdf.RotateX(math.Pi)
	}
	pre := sdf.Identity3d()
	if math.Hypot(dir.X, dir.Y) > eps {
		pre = sdf.RotateZ(math.Atan2(dir.Y, dir.X))
	}
	axis := v3.Vec{Z: 1}.Cross(dir)
	if axis.Length() <= eps {
		return pre
	}
	angle := math.Acos(math.Max(-1, math.Min(1, dir.Z)))
	return sdf.Rotate3d(axis.Normalize(), angle).Mul(pre)
}

// Place returns the loop for an edge from end1 to end2: scaled to the given
// thickness, offset along the edge and moved to end1. A non-nil correction
// is applied to 3D loops.
func (p *Profile) Place(end1, end2 v3.Vec, offset, thickness float64, corr *Correction) []v3.Vec {
	s := thickness / (2 * p.Radius())
	m := p.Frame(end1, end2)
	shift := p.OffsetAxis().MulScalar(offset)
	out := make([]v3.Vec, len(p.loop))
	for i, q := range p.loop {
		out[i] = end1.Add(m.MulPosition(q.MulScalar(s).Add(shift)))
	}
	if corr != nil && p.Dim() == 3 {
		corr.Apply(out, end1.Add(m.MulPosition(shift)), end2.Sub(end1))
	}
	return out
}
