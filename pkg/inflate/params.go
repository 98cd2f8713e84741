package inflate

import (
	"fmt"
	"math"

	"github.com/chazu/lattice/pkg/wire"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"
)

// ThicknessType selects whether thickness is assigned to vertices or edges.
type ThicknessType int

const (
	ThicknessPerVertex ThicknessType = iota
	ThicknessPerEdge
)

func (t ThicknessType) String() string {
	if t == ThicknessPerEdge {
		return "edge"
	}
	return "vertex"
}

// ParseThicknessType maps "vertex" / "edge" to a ThicknessType.
func ParseThicknessType(s string) (ThicknessType, error) {
	switch s {
	case "", "vertex":
		return ThicknessPerVertex, nil
	case "edge":
		return ThicknessPerEdge, nil
	default:
		return 0, fmt.Errorf("%w: thickness type %q", ErrInvalidParameters, s)
	}
}

// Parameters are the design parameters of an inflation. Thickness and
// offsets are keyed by orbit: for a periodic network every vertex (or
// edge) equivalent under cell translation shares one value. Networks
// without orbit attributes use element indices.
type Parameters struct {
	ThicknessType    ThicknessType
	DefaultThickness float64
	Thickness        map[int]float64 // orbit -> thickness
	Offsets          map[int]v3.Vec  // vertex orbit -> displacement
}

// NewParameters returns uniform per-vertex thickness t.
func NewParameters(t float64) *Parameters {
	return &Parameters{DefaultThickness: t}
}

// Validate checks that every thickness is positive.
func (p *Parameters) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil parameters", ErrInvalidParameters)
	}
	if !(p.DefaultThickness > 0) {
		return fmt.Errorf("%w: default thickness %g", ErrInvalidParameters, p.DefaultThickness)
	}
	for o, t := range p.Thickness {
		if !(t > 0) {
			return fmt.Errorf("%w: thickness %g for orbit %d", ErrInvalidParameters, t, o)
		}
	}
	return nil
}

// ThicknessOf returns the thickness of an orbit.
func (p *Parameters) ThicknessOf(orbit int) float64 {
	if t, ok := p.Thickness[orbit]; ok {
		return t
	}
	return p.DefaultThickness
}

// OffsetOf returns the displacement of a vertex orbit.
func (p *Parameters) OffsetOf(orbit int) v3.Vec {
	return p.Offsets[orbit]
}

// Clone returns a deep copy.
func (p *Parameters) Clone() *Parameters {
	c := &Parameters{ThicknessType: p.ThicknessType, DefaultThickness: p.DefaultThickness}
	if p.Thickness != nil {
		c.Thickness = make(map[int]float64, len(p.Thickness))
		for k, v := range p.Thickness {
			c.Thickness[k] = v
		}
	}
	if p.Offsets != nil {
		c.Offsets = make(map[int]v3.Vec, len(p.Offsets))
		for k, v := range p.Offsets {
			c.Offsets[k] = v
		}
	}
	return c
}

// MaxThickness returns the largest thickness in use.
func (p *Parameters) MaxThickness() float64 {
	return lo.Max(append(lo.Values(p.Thickness), p.DefaultThickness))
}

// ParameterKind distinguishes design parameter families.
type ParameterKind int

const (
	ParamThickness ParameterKind = iota
	ParamOffset
)

// DesignParameter names one scalar design variable.
type DesignParameter struct {
	Kind  ParameterKind
	Orbit int
	Axis  int // offset axis; unused for thickness
}

func (d DesignParameter) String() string {
	if d.Kind == ParamThickness {
		return fmt.Sprintf("thickness[%d]", d.Orbit)
	}
	return fmt.Sprintf("offset[%d].%c", d.Orbit, "xyz"[d.Axis])
}

// DesignParameters enumerates thickness parameters for every thickness
// orbit followed by one offset parameter per vertex orbit and axis.
func DesignParameters(thicknessOrbits, vertexOrbits, dim int) []DesignParameter {
	var out []DesignParameter
	for o := 0; o < thicknessOrbits; o++ {
		out = append(out, DesignParameter{Kind: ParamThickness, Orbit: o})
	}
	for o := 0; o < vertexOrbits; o++ {
		for a := 0; a < dim; a++ {
			out = append(out, DesignParameter{Kind: ParamOffset, Orbit: o, Axis: a})
		}
	}
	return out
}

// perturbed returns a copy with parameter d moved by h.
func (p *Parameters) perturbed(d DesignParameter, h float64) *Parameters {
	c := p.Clone()
	switch d.Kind {
	case ParamThickness:
		if c.Thickness == nil {
			c.Thickness = make(map[int]float64)
		}
		c.Thickness[d.Orbit] = p.ThicknessOf(d.Orbit) + h
	case ParamOffset:
		if c.Offsets == nil {
			c.Offsets = make(map[int]v3.Vec)
		}
		o := c.Offsets[d.Orbit]
		switch d.Axis {
		case 0:
			o.X += h
		case 1:
			o.Y += h
		default:
			o.Z += h
		}
		c.Offsets[d.Orbit] = o
	}
	return c
}

// elementOrbits returns the orbit attributes of n, or element indices when
// the network carries none.
func elementOrbits(n *wire.Network) (vertexOrbits, edgeOrbits []int) {
	vertexOrbits = lo.Range(len(n.Vertices))
	edgeOrbits = lo.Range(len(n.Edges))
	if vo, ok := n.VertexAttribute(wire.VertexOrbitAttribute); ok && len(vo) == len(n.Vertices) {
		vertexOrbits = roundAll(vo)
	}
	if eo, ok := n.EdgeAttribute(wire.EdgeOrbitAttribute); ok && len(eo) == len(n.Edges) {
		edgeOrbits = roundAll(eo)
	}
	return vertexOrbits, edgeOrbits
}

func roundAll(xs []float64) []int {
	return lo.Map(xs, func(x float64, _ int) int { return int(math.Round(x)) })
}
