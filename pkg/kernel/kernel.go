// Package kernel defines the mesh containers and the narrow capability
// interfaces the inflation pipeline consumes: exact boolean intersection,
// constrained 2D triangulation and convex hulls. Implementations (boxclip,
// triangle, hull, manifold) live in subpackages and register themselves by
// name so call sites can swap backends without changing the pipeline.
package kernel

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrUnknownEngine is returned when no engine is registered under a name.
var ErrUnknownEngine = errors.New("kernel: unknown engine")

// BooleanEngine computes exact set operations on closed triangle meshes.
type BooleanEngine interface {
	// Intersect returns a 2-manifold surface bounding the intersection of
	// the solids enclosed by a and b.
	Intersect(a, b *TriMesh) (*TriMesh, error)
}

// TriangulateOptions controls a constrained triangulation run.
type TriangulateOptions struct {
	MaxArea             float64 // 0 disables area refinement
	ConformingDelaunay  bool    // flip non-constrained edges towards Delaunay
	NoSteinerOnBoundary bool    // never split input boundary edges
}

// Triangulator fills the region bounded by a set of closed 2D loops.
type Triangulator interface {
	// Triangulate returns the output points (input points first, in order,
	// followed by any Steiner points) and CCW triangles indexing them.
	Triangulate(points []v2.Vec, edges [][2]int, opts TriangulateOptions) ([]v2.Vec, [][3]int, error)
}

// Hull is the result of a 3D convex hull run.
type Hull struct {
	Vertices []v3.Vec
	Faces    [][3]int // outward-facing, indexing Vertices
	Index    []int    // hull vertex -> input point index
}

// HullEngine computes convex hulls.
type HullEngine interface {
	// Hull3 returns the convex hull of a 3D point cloud.
	Hull3(points []v3.Vec) (*Hull, error)
	// Hull2 returns the indices of the 2D hull polygon in CCW order.
	Hull2(points []v2.Vec) ([]int, error)
}

// ---------------------------------------------------------------------------
// Engine registry
// ---------------------------------------------------------------------------

var (
	registryMu     sync.RWMutex
	booleanEngines = map[string]func() (BooleanEngine, error){}
)

// RegisterBoolean makes a boolean engine constructor available by name.
// It panics if the name is registered twice.
func RegisterBoolean(name string, fn func() (BooleanEngine, error)) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := booleanEngines[name]; dup {
		panic(fmt.Sprintf("kernel: boolean engine %q registered twice", name))
	}
	booleanEngines[name] = fn
}

// NewBoolean constructs the boolean engine registered under name.
func NewBoolean(name string) (BooleanEngine, error) {
	registryMu.RLock()
	fn, ok := booleanEngines[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: boolean %q (have %v)", ErrUnknownEngine, name, BooleanEngines())
	}
	return fn()
}

// BooleanEngines lists the registered boolean engine names, sorted.
func BooleanEngines() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(booleanEngines))
	for n := range booleanEngines {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
