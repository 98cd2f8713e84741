// Package wire defines the wire network: the skeletal graph of beam
// centerlines describing one lattice unit cell, with per-element attributes,
// periodic orbits and tiling.
package wire
