package remesh

import (
	"math"

	"github.com/chazu/lattice/pkg/kernel"
	"github.com/chazu/lattice/pkg/kernel/triangle"
	"github.com/deadsy/sdfx/sdf"
	"github.com/sirupsen/logrus"
)

// Options control Remesh. Zero values select defaults.
type Options struct {
	// Target is the desired cap edge length.
	Target float64
	// Tolerance snaps vertices onto box planes. Default: 1e-9 of the box
	// diagonal.
	Tolerance float64
	// MinEdge is the shortest loop edge kept. Default: 1% of Target.
	MinEdge float64
	// MatchRadius bounds the distance between translated partners.
	// Default: the larger of 10*Tolerance and 1% of Target.
	MatchRadius float64
	// Triangulator fills the caps. Default: triangle.New().
	Triangulator kernel.Triangulator
	Logger       logrus.FieldLogger
}

func (o Options) withDefaults(box sdf.Box3) Options {
	diag := box.Size().Length()
	if o.Tolerance <= 0 {
		o.Tolerance = 1e-9 * diag
	}
	if o.MinEdge <= 0 {
		o.MinEdge = 1e-2 * o.Target
	}
	if o.MatchRadius <= 0 {
		o.MatchRadius = math.Max(10*o.Tolerance, 1e-2*o.Target)
		if o.MatchRadius <= 10*o.Tolerance {
			o.MatchRadius = math.Max(o.MatchRadius, 1e-6*diag)
		}
	}
	if o.Triangulator == nil {
		o.Triangulator = triangle.New()
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}

// Remesh rebuilds the faces of m lying on the planes of box so that the
// triangulations of opposite planes match under translation. m is expected
// to be the closed result of clipping a periodic surface to box.
func Remesh(m *kernel.TriMesh, box sdf.Box3, opts Options) (*kernel.TriMesh, error) {
	opts = opts.withDefaults(box)
	log := opts.Logger.WithField("component", "remesh")
	trace := func(stage string, w *Working) {
		log.WithFields(logrus.Fields{
			"stage":    stage,
			"vertices": len(w.Vertices),
			"faces":    len(w.Faces),
		}).Debug("remesh stage")
	}

	w := Clean(NewWorking(m, box, opts.Tolerance))
	trace("clean", w)
	w = ExtractLoops(Label(w))
	trace("label", w)
	w = CollapseShortBoundaryEdges(w, opts.MinEdge)
	trace("collapse", w)
	w, err := MatchOpposite(w, opts.MatchRadius)
	if err != nil {
		return nil, err
	}
	trace("match", w)
	w = Refine(w, opts.Target)
	trace("refine", w)
	if w, err = Retriangulate(w, opts.Target, opts.Triangulator); err != nil {
		return nil, err
	}
	trace("retriangulate", w)
	return Assemble(w), nil
}
