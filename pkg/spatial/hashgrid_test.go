package spatial

import (
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
)

func TestHashGridQueryExactCell(t *testing.T) {
	g := NewHashGrid(1)
	g.Insert(3, v3.Vec{X: 0.2, Y: 0.2, Z: 0.2})
	g.Insert(1, v3.Vec{X: 0.9, Y: 0.1, Z: 0.5})
	g.Insert(2, v3.Vec{X: 1.1, Y: 0.1, Z: 0.5})
	g.Insert(3, v3.Vec{X: 0.3, Y: 0.3, Z: 0.3}) // same id, same cell

	assert.Equal(t, 3, g.Len())
	assert.Equal(t, []int{1, 3}, g.Query(v3.Vec{X: 0.5, Y: 0.5, Z: 0.5}))
	assert.Equal(t, []int{2}, g.Query(v3.Vec{X: 1.5, Y: 0.5, Z: 0.5}))
	assert.Empty(t, g.Query(v3.Vec{X: -0.5}))
}

func TestHashGridNegativeCoordinates(t *testing.T) {
	g := NewHashGrid(0.5)
	g.Insert(7, v3.Vec{X: -0.1, Y: -0.1, Z: -0.1})
	assert.Equal(t, []int{7}, g.Query(v3.Vec{X: -0.4, Y: -0.4, Z: -0.4}))
	assert.Empty(t, g.Query(v3.Vec{X: 0.1, Y: -0.1, Z: -0.1}))
}

func TestHashGridQueryRadiusCrossesCells(t *testing.T) {
	g := NewHashGrid(1)
	g.Insert(0, v3.Vec{X: 0.999})
	g.Insert(1, v3.Vec{X: 1.0005})
	g.Insert(2, v3.Vec{X: 1.5})

	p := v3.Vec{X: 1.0}
	assert.Equal(t, []int{1, 0}, g.QueryRadius(p, 0.01))

	id, ok := g.Nearest(p, 0.01)
	assert.True(t, ok)
	assert.Equal(t, 1, id)

	_, ok = g.Nearest(v3.Vec{X: 5}, 0.01)
	assert.False(t, ok)
}

func TestHashGridInvalidCellSize(t *testing.T) {
	g := NewHashGrid(0)
	assert.Equal(t, 1.0, g.CellSize())
}
