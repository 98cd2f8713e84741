// Package inflate turns wire networks into closed triangle meshes.
//
// SimpleInflator places cross-section loops along every edge, closes each
// vertex with a convex-hull joint and connects the loops with tubes. The
// periodic inflators run it on a 3x3x3 tiling of the unit cell (the phantom
// mesh) and clip the result back to the cell so that the output tiles
// without seams. New builds the right inflator for a mode and dimension.
package inflate
