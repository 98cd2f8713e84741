package export

import (
	"fmt"

	"github.com/chazu/lattice/pkg/kernel"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/entity"
)

// DXF layer names.
const (
	LayerBoundary = "boundary"
	LayerMesh     = "mesh"
)

// SaveDXF writes a planar mesh: its boundary loops as closed polylines on
// the boundary layer and every triangle on the mesh layer.
func SaveDXF(path string, m *kernel.TriMesh) error {
	if len(m.Faces) == 0 {
		return ErrEmptyMesh
	}
	d := dxf.NewDrawing()
	d.Header().LtScale = 1.0

	d.AddLayer(LayerBoundary, color.Red, dxf.DefaultLineType, true)
	d.AddLayer(LayerMesh, color.Blue, dxf.DefaultLineType, true)

	if err := d.ChangeLayer(LayerBoundary); err != nil {
		return fmt.Errorf("export: dxf: %w", err)
	}
	for _, loop := range boundaryLoops(m) {
		d.AddEntity(polyline(m, loop))
	}
	if err := d.ChangeLayer(LayerMesh); err != nil {
		return fmt.Errorf("export: dxf: %w", err)
	}
	for _, f := range m.Faces {
		d.AddEntity(polyline(m, f[:]))
	}

	if err := d.SaveAs(path); err != nil {
		return fmt.Errorf("export: dxf: %w", err)
	}
	return nil
}

// polyline closes the loop by repeating its first vertex.
func polyline(m *kernel.TriMesh, loop []int) *entity.LwPolyline {
	lwp := entity.NewLwPolyline(len(loop) + 1)
	for j := 0; j <= len(loop); j++ {
		v := m.Vertices[loop[j%len(loop)]]
		lwp.Vertices[j] = []float64{v.X, v.Y}
	}
	return lwp
}

// boundaryLoops chains the directed boundary edges of m into loops, in
// the order of their first vertex. Outer loops of a counter-clockwise
// mesh come out counter-clockwise and holes clockwise.
func boundaryLoops(m *kernel.TriMesh) [][]int {
	counts := m.EdgeCounts()
	next := make(map[int]int)
	var starts []int
	for _, f := range m.Faces {
		for k := 0; k < 3; k++ {
			a, b := f[k], f[(k+1)%3]
			if counts[kernel.MakeEdge(a, b)] == 1 {
				next[a] = b
				starts = append(starts, a)
			}
		}
	}

	seen := make(map[int]bool, len(next))
	var loops [][]int
	for _, s := range starts {
		if seen[s] {
			continue
		}
		var loop []int
		for v := s; !seen[v]; {
			seen[v] = true
			loop = append(loop, v)
			n, ok := next[v]
			if !ok {
				break
			}
			v = n
		}
		if len(loop) >= 3 {
			loops = append(loops, loop)
		}
	}
	return loops
}
