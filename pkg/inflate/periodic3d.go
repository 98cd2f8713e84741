package inflate

import (
	"fmt"
	"math"

	"github.com/chazu/lattice/pkg/kernel"
	"github.com/chazu/lattice/pkg/remesh"
	"github.com/chazu/lattice/pkg/spatial"
	"github.com/deadsy/sdfx/sdf"
)

// clip3D intersects the phantom with the cell box, remeshes the cell faces
// so that opposite faces match and re-derives face sources.
func clip3D(p *PeriodicInflator, ph *phantom, loc *spatial.FaceLocator) (*kernel.TriMesh, error) {
	clipped, err := p.intersect(ph, ph.cell)
	if err != nil {
		return nil, err
	}
	out, err := remesh.Remesh(clipped, ph.cell, remesh.Options{
		Target:       p.targetEdgeLength(),
		Tolerance:    ph.tol,
		Triangulator: p.tri,
		Logger:       p.opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("inflate: remesh: %w", err)
	}
	out.Sources = faceSources(out, ph, loc)
	return out, nil
}

// intersect clips the phantom against box with the configured engine.
func (p *PeriodicInflator) intersect(ph *phantom, box sdf.Box3) (*kernel.TriMesh, error) {
	engine, err := kernel.NewBoolean(p.opts.BooleanEngine)
	if err != nil {
		return nil, err
	}
	out, err := engine.Intersect(ph.mesh, kernel.BoxMesh(box))
	if err != nil {
		return nil, fmt.Errorf("inflate: %s intersection: %w", p.opts.BooleanEngine, err)
	}
	if out == nil || len(out.Faces) == 0 {
		return nil, ErrEmptyClipping
	}
	return out, nil
}

// targetEdgeLength is the cap edge length: the default thickness halved
// once per subdivision pass.
func (p *PeriodicInflator) targetEdgeLength() float64 {
	return p.params.DefaultThickness * math.Pow(0.5, float64(p.opts.Subdivision.Order))
}
