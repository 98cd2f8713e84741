package inflate

import (
	"fmt"

	"github.com/chazu/lattice/pkg/kernel/boxclip"
	"github.com/chazu/lattice/pkg/profile"
	"github.com/sirupsen/logrus"
)

// Subdivision algorithms.
const (
	SubdivisionSimple = "simple"
	SubdivisionLoop   = "loop"
)

// Subdivision configures refinement of inflated meshes.
type Subdivision struct {
	Algorithm string // SubdivisionSimple or SubdivisionLoop
	Order     int    // number of passes; 0 disables refinement
}

// Options configures every inflator.
type Options struct {
	// Profile is the beam cross-section. Nil selects the square in 3D and
	// the segment in 2D.
	Profile *profile.Profile
	// Correction, when set, moves 3D loops toward measured sizes. Its Max
	// also widens the joints so that corrected loops cannot collide.
	Correction *profile.Correction
	// FailOnShortEdge makes an edge shorter than its two end-loop offsets
	// fatal. When false the inflator logs a warning and keeps going; the
	// resulting tube overlaps its joints.
	FailOnShortEdge bool
	Subdivision     Subdivision
	// BooleanEngine names the kernel.BooleanEngine used for cell clipping.
	BooleanEngine string
	// Tolerance is the absolute geometric tolerance. Zero selects 1e-6 of
	// the cell diagonal.
	Tolerance float64
	// MaxBoundaryEdgeLength bounds edges on the octant boundary in the
	// isotropic inflator, relative to the cell size.
	MaxBoundaryEdgeLength float64
	// ComputeShapeVelocity enables per-parameter vertex velocities.
	ComputeShapeVelocity bool
	Logger               logrus.FieldLogger
}

// DefaultOptions returns options with fatal short edges, no refinement and
// the box clipping engine.
func DefaultOptions() Options {
	return Options{
		FailOnShortEdge:       true,
		Subdivision:           Subdivision{Algorithm: SubdivisionSimple},
		BooleanEngine:         boxclip.Name,
		MaxBoundaryEdgeLength: 0.5,
		Logger:                logrus.StandardLogger(),
	}
}

func (o Options) withDefaults(dim int) Options {
	if o.Profile == nil {
		o.Profile = profile.ForDimension(dim)
	}
	if o.Subdivision.Algorithm == "" {
		o.Subdivision.Algorithm = SubdivisionSimple
	}
	if o.BooleanEngine == "" {
		o.BooleanEngine = boxclip.Name
	}
	if o.MaxBoundaryEdgeLength <= 0 {
		o.MaxBoundaryEdgeLength = 0.5
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}

func (o Options) validate(dim int) error {
	if o.Profile.Dim() != dim {
		return fmt.Errorf("%w: %s profile for a %dD network", profile.ErrInvalidProfile, o.Profile.Shape(), dim)
	}
	switch o.Subdivision.Algorithm {
	case SubdivisionSimple, SubdivisionLoop:
	default:
		return fmt.Errorf("%w: subdivision %q", ErrInvalidParameters, o.Subdivision.Algorithm)
	}
	if o.Subdivision.Order < 0 {
		return fmt.Errorf("%w: subdivision order %d", ErrInvalidParameters, o.Subdivision.Order)
	}
	return nil
}

func (o Options) maxCorrection() float64 {
	if o.Correction == nil || o.Correction.Table == nil {
		return 0
	}
	return o.Correction.Max
}
