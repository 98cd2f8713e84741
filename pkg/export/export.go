// Package export writes inflated meshes to disk. The format follows the
// file extension: .stl and .3mf through the sdfx renderer, .dxf (2D only)
// through yofu/dxf and .json as a plain document that also carries face
// sources and shape velocities.
package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chazu/lattice/pkg/kernel"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrUnknownFormat is returned for unsupported file extensions.
	ErrUnknownFormat = errors.New("export: unknown format")
	// ErrEmptyMesh is returned when there is nothing to write.
	ErrEmptyMesh = errors.New("export: empty mesh")
	// ErrUnsupportedDimension is returned when a format cannot hold the
	// mesh dimension.
	ErrUnsupportedDimension = errors.New("export: unsupported dimension")
)

// Format is an output file format.
type Format string

const (
	FormatSTL  Format = "stl"
	Format3MF  Format = "3mf"
	FormatDXF  Format = "dxf"
	FormatJSON Format = "json"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")); f {
	case FormatSTL, Format3MF, FormatDXF, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// Result is what an inflation produced.
type Result struct {
	Mesh *kernel.Mesh
	// Parameters names the design parameters; Velocities holds one matrix
	// per parameter. Both are optional and only written to JSON.
	Parameters []string
	Velocities []*mat.Dense
}

// Save writes r to path in the format chosen by its extension.
func Save(path string, r Result) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	if r.Mesh == nil || r.Mesh.IsEmpty() {
		return ErrEmptyMesh
	}
	switch format {
	case FormatSTL:
		return SaveSTL(path, r.Mesh.TriMesh())
	case Format3MF:
		return Save3MF(path, r.Mesh.TriMesh())
	case FormatDXF:
		if r.Mesh.Dim != 2 {
			return fmt.Errorf("%w: dxf needs a 2D mesh, got %dD", ErrUnsupportedDimension, r.Mesh.Dim)
		}
		return SaveDXF(path, r.Mesh.TriMesh())
	default:
		return SaveJSON(path, NewDocument(r))
	}
}
