package engine

import (
	"fmt"
	"math"

	"git.fiblab.net/general/common/v2/geometry"
)

// 一次compose的产物
type composedRoute struct {
	Polyline  []geometry.Point // 偏移后的渲染折线
	Length    float64          // 真实通行代价之和，不含偏移带来的形变
	Traversed []int64          // 实际经过的节点id序列，相邻去重
}

// 将途经点序列串成连续路径
// 少于2个途经点时返回(nil, nil)，表示"尚无线路"而非错误
// 相邻途经点间不可达时静默跳过该段，线路被缩短但不报错
func (e *Engine) composeRoute(waypoints []int64) (*composedRoute, error) {
	for _, id := range waypoints {
		if _, ok := e.nodeIndex[id]; !ok {
			return nil, fmt.Errorf("%w (id=%d)", ErrUnknownWaypoint, id)
		}
	}
	if len(waypoints) < 2 {
		return nil, nil
	}
	result := &composedRoute{
		Polyline:  make([]geometry.Point, 0),
		Traversed: make([]int64, 0),
	}
	raw := make([]geometry.Point, 0)
	for i := 0; i+1 < len(waypoints); i++ {
		start := e.nodeIndex[waypoints[i]]
		end := e.nodeIndex[waypoints[i+1]]
		path, cost := e.searchGraph.ShortestPath(start, end)
		if path == nil {
			// 不可达的段跳过，不中止整条线路
			log.Debugf("no path between %d and %d, segment skipped", waypoints[i], waypoints[i+1])
			continue
		}
		result.Length += cost
		for j, item := range path {
			if j == 0 {
				// 段首节点与上一段段尾重合时去重
				if n := len(result.Traversed); n == 0 || result.Traversed[n-1] != item.NodeAttr.ID {
					result.Traversed = append(result.Traversed, item.NodeAttr.ID)
				}
				continue
			}
			result.Traversed = append(result.Traversed, item.NodeAttr.ID)
			// 边属性挂在出发节点上，到达path[j]的边取自path[j-1]
			arriving := path[j-1].EdgeAttr
			raw = appendEdgePoints(raw, e.edges[arriving.Index], arriving.Reversed)
		}
	}
	result.Polyline = offsetPolyline(raw, LATERAL_OFFSET)
	return result, nil
}

// 追加一条边的折线，反向通行时先倒序；与已有折线的接点去重
func appendEdgePoints(raw []geometry.Point, edge *Edge, reversed bool) []geometry.Point {
	points := edge.Points
	if reversed {
		points = reversePoints(points)
	}
	for _, p := range points {
		if n := len(raw); n > 0 && raw[n-1] == p {
			continue
		}
		raw = append(raw, p)
	}
	return raw
}

func reversePoints(points []geometry.Point) []geometry.Point {
	out := make([]geometry.Point, len(points))
	for i, p := range points {
		out[len(points)-1-i] = p
	}
	return out
}

// 沿行进方向向右偏移固定距离（靠右行驶的视觉约定），
// 避免双向线路的折线完全重叠
// 每个顶点使用其后继段的方向，末顶点使用前驱段
func offsetPolyline(points []geometry.Point, offset float64) []geometry.Point {
	if len(points) < 2 {
		return points
	}
	out := make([]geometry.Point, len(points))
	for i := range points {
		j, k := i, i+1
		if i == len(points)-1 {
			j, k = i-1, i
		}
		dx, dy := points[k].X-points[j].X, points[k].Y-points[j].Y
		norm := math.Hypot(dx, dy)
		if norm == 0 {
			out[i] = points[i]
			continue
		}
		out[i] = geometry.Point{
			X: points[i].X + dy/norm*offset,
			Y: points[i].Y - dx/norm*offset,
		}
	}
	return out
}
