package inflate

import (
	"fmt"
	"strings"

	"github.com/chazu/lattice/pkg/wire"
)

// Mode selects the inflation strategy.
type Mode string

const (
	ModeSimple    Mode = "simple"
	ModePeriodic  Mode = "periodic"
	ModeIsotropic Mode = "isotropic"
)

// ParseMode accepts a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeSimple, ModePeriodic, ModeIsotropic:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
}

// New returns the inflator for mode and the network's dimension.
func New(mode Mode, net *wire.Network, params *Parameters, opts Options) (Inflator, error) {
	switch mode {
	case ModeSimple:
		s, err := NewSimple(net, params, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	case ModePeriodic:
		var p *PeriodicInflator
		var err error
		switch net.Dim {
		case 2:
			p, err = NewPeriodic2D(net, params, opts)
		case 3:
			p, err = NewPeriodic3D(net, params, opts)
		default:
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedDimension, net.Dim)
		}
		if err != nil {
			return nil, err
		}
		return p, nil
	case ModeIsotropic:
		if net.Dim != 3 {
			return nil, fmt.Errorf("%w: isotropic inflation needs 3D, got %dD", ErrUnsupportedDimension, net.Dim)
		}
		p, err := NewIsotropic(net, params, opts)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedMode, mode)
}
