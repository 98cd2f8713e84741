package inflate

import (
	"errors"
	"fmt"
)

// Configuration errors.
var (
	ErrUnsupportedMode      = errors.New("inflate: unsupported mode")
	ErrUnsupportedDimension = errors.New("inflate: unsupported dimension")
	ErrInvalidParameters    = errors.New("inflate: invalid parameters")
)

// Degenerate-geometry errors.
var (
	ErrEdgeTooShort  = errors.New("inflate: edge too short for its joints")
	ErrEmptyPhantom  = errors.New("inflate: phantom mesh is empty")
	ErrNotInflated   = errors.New("inflate: no successful inflation")
	ErrEmptyClipping = errors.New("inflate: nothing left inside the cell")
)

// ShortEdgeError reports an edge whose joints would overlap.
type ShortEdgeError struct {
	Edge     int
	Length   float64
	Required float64 // sum of both end-loop offsets
}

func (e *ShortEdgeError) Error() string {
	return fmt.Sprintf("inflate: edge %d has length %g but its joints need %g", e.Edge, e.Length, e.Required)
}

func (e *ShortEdgeError) Unwrap() error {
	return ErrEdgeTooShort
}
