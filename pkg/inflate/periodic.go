package inflate

import (
	"fmt"

	"github.com/chazu/lattice/pkg/kernel"
	"github.com/chazu/lattice/pkg/kernel/hull"
	"github.com/chazu/lattice/pkg/kernel/triangle"
	"github.com/chazu/lattice/pkg/spatial"
	"github.com/chazu/lattice/pkg/wire"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// Compile-time interface check.
var _ Inflator = (*PeriodicInflator)(nil)

// clipFunc cuts the refined phantom down to the unit cell. loc indexes the
// phantom faces.
type clipFunc func(p *PeriodicInflator, ph *phantom, loc *spatial.FaceLocator) (*kernel.TriMesh, error)

// PeriodicInflator inflates one unit cell of a periodic lattice: it
// inflates a phantom neighbourhood, refines it and clips it to the cell
// with a dimension-specific strategy.
type PeriodicInflator struct {
	name   string
	net    *wire.Network
	params *Parameters
	opts   Options
	hull   kernel.HullEngine
	tri    kernel.Triangulator
	clip   clipFunc

	result *periodicResult
}

type periodicResult struct {
	mesh       *kernel.TriMesh
	velocities []*mat.Dense
	design     []DesignParameter
}

// NewPeriodic2D returns an inflator for 2D periodic networks.
func NewPeriodic2D(net *wire.Network, params *Parameters, opts Options) (*PeriodicInflator, error) {
	return newPeriodic("periodic2d", 2, clip2D, net, params, opts)
}

// NewPeriodic3D returns an inflator for 3D periodic networks.
func NewPeriodic3D(net *wire.Network, params *Parameters, opts Options) (*PeriodicInflator, error) {
	return newPeriodic("periodic3d", 3, clip3D, net, params, opts)
}

// NewIsotropic returns a 3D periodic inflator that builds one octant of the
// cell and mirrors it, for networks symmetric under the three reflections
// through the cell center.
func NewIsotropic(net *wire.Network, params *Parameters, opts Options) (*PeriodicInflator, error) {
	return newPeriodic("isotropic", 3, clipIsotropic, net, params, opts)
}

func newPeriodic(name string, dim int, clip clipFunc, net *wire.Network, params *Parameters, opts Options) (*PeriodicInflator, error) {
	if net.Dim != dim {
		return nil, fmt.Errorf("%w: %s inflator needs a %dD network, got %dD", ErrUnsupportedDimension, name, dim, net.Dim)
	}
	opts = opts.withDefaults(net.Dim)
	if err := opts.validate(net.Dim); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if dim == 3 {
		if _, err := kernel.NewBoolean(opts.BooleanEngine); err != nil {
			return nil, err
		}
	}
	return &PeriodicInflator{
		name:   name,
		net:    net,
		params: params,
		opts:   opts,
		hull:   hull.New(),
		tri:    triangle.New(),
		clip:   clip,
	}, nil
}

// Inflate runs phantom generation, refinement, clipping and, when enabled,
// velocity transfer. On error the previous result is discarded.
func (p *PeriodicInflator) Inflate() error {
	p.result = nil
	log := p.opts.Logger.WithField("inflator", p.name)

	ph, err := generatePhantom(p.net, p.params, p.opts, p.hull, p.tri)
	if err != nil {
		return err
	}
	ph.mesh, ph.velocities = refine(ph.mesh, ph.velocities, p.opts.Subdivision)
	log.WithFields(logrus.Fields{
		"stage":    "refine",
		"vertices": len(ph.mesh.Vertices),
		"faces":    len(ph.mesh.Faces),
	}).Debug("phantom refined")

	loc := spatial.NewFaceLocator(ph.mesh.Vertices, ph.mesh.Faces)
	clipped, err := p.clip(p, ph, loc)
	if err != nil {
		return err
	}
	if len(clipped.Faces) == 0 {
		return ErrEmptyClipping
	}
	log.WithFields(logrus.Fields{
		"stage":    "clip",
		"vertices": len(clipped.Vertices),
		"faces":    len(clipped.Faces),
	}).Debug("clipped to cell")

	res := &periodicResult{mesh: clipped, design: ph.design}
	if p.opts.ComputeShapeVelocity {
		res.velocities = transferVelocities(clipped, ph, loc, ph.tol)
	}
	p.result = res
	return nil
}

// Mesh returns the clipped cell mesh with its face sources, or nil.
func (p *PeriodicInflator) Mesh() *kernel.Mesh {
	if p.result == nil {
		return nil
	}
	return kernel.NewMesh(p.net.Dim, p.result.mesh)
}

// TriMesh returns the working mesh, or nil.
func (p *PeriodicInflator) TriMesh() *kernel.TriMesh {
	if p.result == nil {
		return nil
	}
	return p.result.mesh
}

// ShapeVelocities returns one velocity matrix per design parameter, or nil.
func (p *PeriodicInflator) ShapeVelocities() []*mat.Dense {
	if p.result == nil {
		return nil
	}
	return p.result.velocities
}

// DesignParameters lists the parameters the velocities refer to.
func (p *PeriodicInflator) DesignParameters() []DesignParameter {
	if p.result == nil {
		return nil
	}
	return p.result.design
}

// faceSources tags faces lying on a cell plane with 0 and every other face
// with the source of the phantom face nearest to its centroid.
func faceSources(m *kernel.TriMesh, ph *phantom, loc *spatial.FaceLocator) []int {
	out := make([]int, len(m.Faces))
	for i := range m.Faces {
		if onCellPlane(m, i, ph.cell, ph.tol) {
			continue
		}
		if hit, ok := loc.Closest(m.FaceCentroid(i)); ok {
			out[i] = ph.mesh.Sources[hit.Face]
		}
	}
	return out
}
