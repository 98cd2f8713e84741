//go:build manifold

package manifold

import (
	"math"
	"testing"

	"github.com/chazu/lattice/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func mustNew(t *testing.T) kernel.BooleanEngine {
	t.Helper()
	e, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func cube(lo, hi float64) *kernel.TriMesh {
	return kernel.BoxMesh(sdf.Box3{Min: v3.Vec{X: lo, Y: lo, Z: lo}, Max: v3.Vec{X: hi, Y: hi, Z: hi}})
}

func TestIntersectOverlappingCubes(t *testing.T) {
	e := mustNew(t)
	out, err := e.Intersect(cube(-1, 1), cube(0, 2))
	if err != nil {
		t.Fatalf("Intersect() error = %v", err)
	}
	if !out.IsClosed() {
		t.Error("intersection is not closed")
	}
	if v := out.Volume(); math.Abs(v-1) > 1e-5 {
		t.Errorf("volume = %f, want 1", v)
	}
	b := out.Bounds()
	if math.Abs(b.Min.X) > 1e-6 || math.Abs(b.Max.X-1) > 1e-6 {
		t.Errorf("bounds X = [%f, %f], want [0, 1]", b.Min.X, b.Max.X)
	}
}

func TestIntersectDisjoint(t *testing.T) {
	e := mustNew(t)
	out, err := e.Intersect(cube(0, 1), cube(2, 3))
	if err != nil {
		t.Fatalf("Intersect() error = %v", err)
	}
	if len(out.Faces) != 0 {
		t.Errorf("disjoint intersection has %d faces, want 0", len(out.Faces))
	}
}

func TestIntersectRejectsEmpty(t *testing.T) {
	e := mustNew(t)
	if _, err := e.Intersect(&kernel.TriMesh{}, cube(0, 1)); err == nil {
		t.Fatal("Intersect() with empty mesh error = nil, want error")
	}
}
