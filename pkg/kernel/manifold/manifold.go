//go:build manifold

// Package manifold provides a CGo-based boolean engine binding to the
// Manifold library (https://github.com/elalish/manifold). Manifold
// guarantees manifold output for arbitrary closed inputs, so it can stand
// in for the box clipper when the phantom mesh is intersected with
// something other than a plain cell box.
//
// This package requires the Manifold C library (manifoldc) to be installed.
// Build with: go build -tags=manifold
package manifold

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmanifoldc

#include <stdlib.h>
#include <manifold/manifoldc.h>
*/
import "C"

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"github.com/chazu/lattice/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrInvalidMesh is returned when Manifold rejects an input mesh.
var ErrInvalidMesh = errors.New("manifold: invalid input mesh")

// Compile-time interface check.
var _ kernel.BooleanEngine = (*Engine)(nil)

// solid wraps a C ManifoldManifold pointer.
type solid struct {
	ptr *C.ManifoldManifold
}

// newSolid wraps a C ManifoldManifold pointer with a Go-side finalizer for
// automatic memory management.
func newSolid(ptr *C.ManifoldManifold) *solid {
	s := &solid{ptr: ptr}
	runtime.SetFinalizer(s, func(s *solid) {
		if s.ptr != nil {
			C.manifold_delete_manifold(s.ptr)
			s.ptr = nil
		}
	})
	return s
}

// Engine implements kernel.BooleanEngine using the Manifold C library.
// Coordinates pass through MeshGL as float32.
type Engine struct{}

// New creates a Manifold boolean engine.
func New() (kernel.BooleanEngine, error) {
	return &Engine{}, nil
}

// Intersect returns the boolean intersection of two closed meshes.
func (e *Engine) Intersect(a, b *kernel.TriMesh) (*kernel.TriMesh, error) {
	sa, err := toSolid(a)
	if err != nil {
		return nil, fmt.Errorf("manifold: first operand: %w", err)
	}
	sb, err := toSolid(b)
	if err != nil {
		return nil, fmt.Errorf("manifold: second operand: %w", err)
	}
	ptr := C.manifold_intersection(C.manifold_alloc_manifold(), sa.ptr, sb.ptr)
	out := newSolid(ptr)
	runtime.KeepAlive(sa)
	runtime.KeepAlive(sb)
	return toTriMesh(out)
}

func toSolid(m *kernel.TriMesh) (*solid, error) {
	if len(m.Vertices) == 0 || len(m.Faces) == 0 {
		return nil, fmt.Errorf("%w: empty mesh", ErrInvalidMesh)
	}
	props := make([]float32, 0, 3*len(m.Vertices))
	for _, v := range m.Vertices {
		props = append(props, float32(v.X), float32(v.Y), float32(v.Z))
	}
	tris := make([]uint32, 0, 3*len(m.Faces))
	for _, f := range m.Faces {
		tris = append(tris, uint32(f[0]), uint32(f[1]), uint32(f[2]))
	}

	mesh := C.manifold_meshgl(C.manifold_alloc_meshgl(),
		(*C.float)(unsafe.Pointer(&props[0])), C.size_t(len(m.Vertices)), C.size_t(3),
		(*C.uint32_t)(unsafe.Pointer(&tris[0])), C.size_t(len(m.Faces)),
	)
	defer C.manifold_delete_meshgl(mesh)

	s := newSolid(C.manifold_of_meshgl(C.manifold_alloc_manifold(), mesh))
	if st := C.manifold_status(s.ptr); st != C.MANIFOLD_NO_ERROR {
		return nil, fmt.Errorf("%w: status %d", ErrInvalidMesh, int(st))
	}
	return s, nil
}

// toTriMesh extracts a triangle mesh using Manifold's MeshGL format. The
// first three vertex properties are always the position.
func toTriMesh(s *solid) (*kernel.TriMesh, error) {
	meshGL := C.manifold_get_meshgl(C.manifold_alloc_meshgl(), s.ptr)
	defer C.manifold_delete_meshgl(meshGL)

	numVert := int(C.manifold_meshgl_num_vert(meshGL))
	numTri := int(C.manifold_meshgl_num_tri(meshGL))
	if numVert == 0 || numTri == 0 {
		return &kernel.TriMesh{}, nil
	}
	numProp := int(C.manifold_meshgl_num_prop(meshGL))

	propData := make([]float32, numVert*numProp)
	C.manifold_meshgl_vert_properties((*C.float)(unsafe.Pointer(&propData[0])), meshGL)
	indices := make([]uint32, numTri*3)
	C.manifold_meshgl_tri_verts((*C.uint32_t)(unsafe.Pointer(&indices[0])), meshGL)

	m := &kernel.TriMesh{
		Vertices: make([]v3.Vec, numVert),
		Faces:    make([][3]int, numTri),
	}
	for i := range m.Vertices {
		base := i * numProp
		m.Vertices[i] = v3.Vec{
			X: float64(propData[base]),
			Y: float64(propData[base+1]),
			Z: float64(propData[base+2]),
		}
	}
	for i := range m.Faces {
		m.Faces[i] = [3]int{int(indices[3*i]), int(indices[3*i+1]), int(indices[3*i+2])}
	}
	runtime.KeepAlive(s)
	return m, nil
}
