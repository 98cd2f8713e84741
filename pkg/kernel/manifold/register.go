package manifold

import "github.com/chazu/lattice/pkg/kernel"

// Name is the registry name of this engine.
const Name = "manifold"

func init() {
	kernel.RegisterBoolean(Name, New)
}
