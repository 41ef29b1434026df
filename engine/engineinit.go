package engine

import (
	"fmt"
	"sort"
	"strconv"

	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/sim/transitgame/engine/algo"
	"github.com/samber/lo"
)

type RoadHeuristics struct {
}

// 路网边长不小于端点直线距离，欧氏距离是可采纳的启发式
func (h RoadHeuristics) HeuristicEuclidean(p1 geometry.Point, p2 geometry.Point) float64 {
	return geometry.Distance(p1, p2)
}

// 将数据集记录转换为内部结构
// y轴取反对齐渲染坐标系，仅在加载时做一次
// 边引用不存在的节点属于数据完整性错误，中止整个加载
func initMap(mapData *MapData) (nodes map[int64]*Node, edges []*Edge, err error) {
	nodes = make(map[int64]*Node, len(mapData.Nodes))
	for key, record := range mapData.Nodes {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid node id %q: %w", key, err)
		}
		nodes[id] = &Node{
			ID:   id,
			Pos:  geometry.Point{X: record.X, Y: -record.Y},
			Pop:  record.Pop,
			Jobs: record.Jobs,
		}
	}
	edges = make([]*Edge, 0, len(mapData.Edges))
	for index, record := range mapData.Edges {
		u, ok := nodes[record.U]
		if !ok {
			return nil, nil, fmt.Errorf("edge %d: %w (id=%d)", index, ErrUnknownNode, record.U)
		}
		v, ok := nodes[record.V]
		if !ok {
			return nil, nil, fmt.Errorf("edge %d: %w (id=%d)", index, ErrUnknownNode, record.V)
		}
		points := lo.Map(record.Points, func(p [2]float64, _ int) geometry.Point {
			return geometry.Point{X: p[0], Y: -p[1]}
		})
		if len(points) < 2 {
			points = []geometry.Point{u.Pos, v.Pos}
		}
		var length float64
		if record.Length != nil {
			length = *record.Length
		} else {
			// 数据缺失时以折线端点直线距离兜底，保证代价有定义
			length = geometry.Distance(points[0], points[len(points)-1])
		}
		if length < 0 {
			return nil, nil, fmt.Errorf("edge %d (%d->%d): negative length %v", index, record.U, record.V, length)
		}
		edges = append(edges, &Edge{
			Index:  index,
			U:      record.U,
			V:      record.V,
			Length: length,
			Oneway: record.Oneway,
			Points: points,
		})
	}
	return
}

// 构建搜索图与空间索引
// 节点按id升序加入，同一份数据重复加载得到的邻接结构完全一致
func (e *Engine) buildRoadGraph() {
	graph := algo.NewSearchGraph[algo.RoadNodeAttr, algo.RoadEdgeAttr](RoadHeuristics{})
	grid := algo.NewGrid(CELL_SIZE)
	ids := lo.Keys(e.nodes)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	e.nodeIndex = make(map[int64]int, len(ids))
	e.censusNodes = make([]*Node, 0)
	for _, id := range ids {
		node := e.nodes[id]
		index := graph.InitNode(node.Pos, algo.RoadNodeAttr{ID: id})
		// grid条目下标与图节点下标一致
		grid.Add(node.Pos)
		e.nodeIndex[id] = index
		if node.Pop+node.Jobs > 0 {
			e.censusNodes = append(e.censusNodes, node)
		}
	}
	for _, edge := range e.edges {
		from, to := e.nodeIndex[edge.U], e.nodeIndex[edge.V]
		graph.InitEdge(from, to, edge.Length, algo.RoadEdgeAttr{Index: edge.Index})
		if !edge.Oneway {
			// 双向边的反方向共享同一条边记录
			graph.InitEdge(to, from, edge.Length, algo.RoadEdgeAttr{Index: edge.Index, Reversed: true})
		}
	}
	e.searchGraph = graph
	e.grid = grid
}
