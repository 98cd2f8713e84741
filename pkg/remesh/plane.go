// Package remesh makes the boundary of a mesh clipped to a box periodic:
// the faces on opposite box planes are rebuilt so that their triangulations
// are translated copies of each other.
//
// The work is split into stages over a Working mesh (Clean, Label,
// ExtractLoops, CollapseShortBoundaryEdges, MatchOpposite, Refine,
// Retriangulate, Assemble). Each stage returns a new Working value and can
// be tested on its own; Remesh runs them in order.
package remesh

import "fmt"

// Plane identifies one of the six faces of the cell box.
type Plane int

const (
	MinX Plane = iota
	MaxX
	MinY
	MaxY
	MinZ
	MaxZ
)

// NoPlane labels faces that do not lie on a box plane.
const NoPlane Plane = -1

// Planes lists the six box planes in order.
var Planes = [6]Plane{MinX, MaxX, MinY, MaxY, MinZ, MaxZ}

// PlaneOf returns the plane normal to axis on the min or max side.
func PlaneOf(axis int, max bool) Plane {
	p := Plane(2 * axis)
	if max {
		p++
	}
	return p
}

// Axis returns the axis the plane is normal to.
func (p Plane) Axis() int { return int(p) / 2 }

// IsMax reports whether p is on the max side of its axis.
func (p Plane) IsMax() bool { return p%2 == 1 }

// Opposite returns the plane across the box.
func (p Plane) Opposite() Plane { return p ^ 1 }

func (p Plane) bit() uint8 { return 1 << uint(p) }

func (p Plane) String() string {
	switch p {
	case MinX:
		return "-X"
	case MaxX:
		return "+X"
	case MinY:
		return "-Y"
	case MaxY:
		return "+Y"
	case MinZ:
		return "-Z"
	case MaxZ:
		return "+Z"
	case NoPlane:
		return "interior"
	default:
		return fmt.Sprintf("Plane(%d)", int(p))
	}
}

// pinnedAxes counts the axes a pin mask constrains: 1 on a box face, 2 on
// a box edge, 3 at a corner.
func pinnedAxes(pins uint8) int {
	n := 0
	for a := 0; a < 3; a++ {
		if pins&(3<<uint(2*a)) != 0 {
			n++
		}
	}
	return n
}

func pinnedOn(pins uint8, axis int) bool {
	return pins&(3<<uint(2*axis)) != 0
}
