package algo_test

import (
	"math"
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/sim/transitgame/engine/algo"
	"github.com/stretchr/testify/assert"
)

type testHeuristics struct {
}

func (h testHeuristics) HeuristicEuclidean(p1 geometry.Point, p2 geometry.Point) float64 {
	return geometry.Distance(p1, p2)
}

func TestSearchGraph(t *testing.T) {
	g := algo.NewSearchGraph[int64, algo.RoadEdgeAttr](testHeuristics{})

	// 初始化点
	n1 := g.InitNode(geometry.Point{X: 0, Y: 0}, 1)
	n2 := g.InitNode(geometry.Point{X: 0, Y: 100}, 2)
	n3 := g.InitNode(geometry.Point{X: 100, Y: 100}, 3)

	// 初始化边
	g.InitEdge(n1, n2, 100, algo.RoadEdgeAttr{Index: 0})
	g.InitEdge(n2, n3, 100, algo.RoadEdgeAttr{Index: 1})

	length := g.GetEdgeLength(n1, n2)
	assert.Equal(t, 100.0, length)

	// 计算最短路
	path, cost := g.ShortestPath(n1, n3)
	assert.Len(t, path, 3)
	assert.Equal(t, int64(1), path[0].NodeAttr)
	assert.Equal(t, 0, path[0].EdgeAttr.Index)
	assert.Equal(t, int64(2), path[1].NodeAttr)
	assert.Equal(t, 1, path[1].EdgeAttr.Index)
	assert.Equal(t, int64(3), path[2].NodeAttr)
	assert.Equal(t, 200.0, cost)

	// 起终点相同时返回只含起点的路径
	path, cost = g.ShortestPath(n2, n2)
	assert.Len(t, path, 1)
	assert.Equal(t, int64(2), path[0].NodeAttr)
	assert.Equal(t, 0.0, cost)

	// 加入不可达的点
	n4 := g.InitNode(geometry.Point{X: 200, Y: 200}, 4)
	path, cost = g.ShortestPath(n1, n4)
	assert.Nil(t, path)
	assert.True(t, math.IsInf(cost, 1))
}

func TestSearchGraphPrefersCheaperDetour(t *testing.T) {
	g := algo.NewSearchGraph[int64, algo.RoadEdgeAttr](testHeuristics{})

	n1 := g.InitNode(geometry.Point{X: 0, Y: 0}, 1)
	n2 := g.InitNode(geometry.Point{X: 0, Y: 1}, 2)
	n3 := g.InitNode(geometry.Point{X: 1, Y: 0}, 3)

	// 直连边比绕行贵
	g.InitEdge(n1, n2, 10, algo.RoadEdgeAttr{Index: 0})
	g.InitEdge(n1, n3, 2, algo.RoadEdgeAttr{Index: 1})
	g.InitEdge(n3, n2, 1, algo.RoadEdgeAttr{Index: 2})

	path, cost := g.ShortestPath(n1, n2)
	assert.Len(t, path, 3)
	assert.Equal(t, int64(1), path[0].NodeAttr)
	assert.Equal(t, 1, path[0].EdgeAttr.Index)
	assert.Equal(t, int64(3), path[1].NodeAttr)
	assert.Equal(t, 2, path[1].EdgeAttr.Index)
	assert.Equal(t, int64(2), path[2].NodeAttr)
	assert.Equal(t, 3.0, cost)
}

func TestSearchGraphOneWay(t *testing.T) {
	g := algo.NewSearchGraph[int64, algo.RoadEdgeAttr](testHeuristics{})

	n1 := g.InitNode(geometry.Point{X: 0, Y: 0}, 1)
	n2 := g.InitNode(geometry.Point{X: 100, Y: 0}, 2)

	// 只有n1->n2的单向边
	g.InitEdge(n1, n2, 100, algo.RoadEdgeAttr{Index: 0})

	path, cost := g.ShortestPath(n1, n2)
	assert.Len(t, path, 2)
	assert.Equal(t, 100.0, cost)

	// 反方向不可达
	path, _ = g.ShortestPath(n2, n1)
	assert.Nil(t, path)
}

// 路径代价不小于起终点直线距离（启发式可采纳性）
func TestSearchGraphCostAtLeastEuclidean(t *testing.T) {
	g := algo.NewSearchGraph[int64, algo.RoadEdgeAttr](testHeuristics{})

	// 折线形路网
	points := []geometry.Point{
		{X: 0, Y: 0}, {X: 50, Y: 80}, {X: 120, Y: 60}, {X: 200, Y: 150}, {X: 260, Y: 90},
	}
	ids := make([]int, len(points))
	for i, p := range points {
		ids[i] = g.InitNode(p, int64(i))
	}
	for i := 0; i+1 < len(points); i++ {
		length := geometry.Distance(points[i], points[i+1])
		g.InitEdge(ids[i], ids[i+1], length, algo.RoadEdgeAttr{Index: i})
		g.InitEdge(ids[i+1], ids[i], length, algo.RoadEdgeAttr{Index: i, Reversed: true})
	}

	for i := range ids {
		for j := range ids {
			path, cost := g.ShortestPath(ids[i], ids[j])
			assert.NotNil(t, path)
			assert.GreaterOrEqual(t, cost+1e-9, geometry.Distance(points[i], points[j]))
		}
	}
}
