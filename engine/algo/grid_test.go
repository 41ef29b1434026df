package algo_test

import (
	"math/rand"
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/sim/transitgame/engine/algo"
	"github.com/stretchr/testify/assert"
)

func TestGridEmpty(t *testing.T) {
	g := algo.NewGrid(50)
	_, ok := g.Nearest(geometry.Point{X: 1, Y: 2})
	assert.False(t, ok)
	assert.Equal(t, 0, g.Len())
}

func TestGridSingle(t *testing.T) {
	g := algo.NewGrid(50)
	index := g.Add(geometry.Point{X: 10, Y: -20})
	assert.Equal(t, 0, index)

	// 即使查询点离得很远（3x3窗口为空）也要通过兜底扫描命中
	got, ok := g.Nearest(geometry.Point{X: 5000, Y: 5000})
	assert.True(t, ok)
	assert.Equal(t, index, got)
}

func TestGridNearestNeighborCell(t *testing.T) {
	g := algo.NewGrid(100)
	a := g.Add(geometry.Point{X: 10, Y: 10})
	b := g.Add(geometry.Point{X: 95, Y: 10})

	// 查询点与b同格
	got, ok := g.Nearest(geometry.Point{X: 99, Y: 10})
	assert.True(t, ok)
	assert.Equal(t, b, got)

	// 查询点在a、b之间但更靠近a，b在相邻格
	got, ok = g.Nearest(geometry.Point{X: 30, Y: 10})
	assert.True(t, ok)
	assert.Equal(t, a, got)
}

// 窗口扫描与全量扫描结果必须一致
// cellSize取节点间距量级（间距远小于格子边长），最近点必然落在3x3窗口内
func TestGridNearestMatchesBruteForce(t *testing.T) {
	e := rand.New(rand.NewSource(42))
	g := algo.NewGrid(60)
	for i := 0; i < 500; i++ {
		g.Add(geometry.Point{
			X: e.Float64()*400 - 200,
			Y: e.Float64()*400 - 200,
		})
	}
	for i := 0; i < 1000; i++ {
		p := geometry.Point{
			X: e.Float64()*400 - 200,
			Y: e.Float64()*400 - 200,
		}
		fast, okFast := g.Nearest(p)
		slow, okSlow := g.NearestBruteForce(p)
		assert.Equal(t, okSlow, okFast)
		assert.Equal(t, slow, fast)
	}
}

func TestPointToCell(t *testing.T) {
	cell := algo.PointToCell(geometry.Point{X: 130, Y: -10}, 60)
	assert.Equal(t, algo.CellPair{X: 2, Y: -1}, cell)
}
