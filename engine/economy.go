package engine

import (
	"github.com/samber/lo"
)

// 线路客流：min(沿线人口, 沿线岗位) × 平衡系数
// 同时连接居住与就业集聚区的线路得到奖励，
// 只经过单一类型节点的线路客流为0
func routeRidership(traversed []int64, nodes map[int64]*Node) int64 {
	ids := lo.Uniq(traversed)
	pop := lo.SumBy(ids, func(id int64) int64 { return nodes[id].Pop })
	jobs := lo.SumBy(ids, func(id int64) int64 { return nodes[id].Jobs })
	return int64(float64(min(pop, jobs)) * RIDERSHIP_BALANCE)
}

func routeCost(length float64) float64 {
	return length * ROUTE_COST_PER_METER
}

// 由compose结果计算线路指标；compose为nil（不足2个途经点）时为全零
func routeStatsOf(c *composedRoute, nodes map[int64]*Node) RouteStats {
	if c == nil {
		return RouteStats{}
	}
	return RouteStats{
		Length:    c.Length,
		Cost:      routeCost(c.Length),
		Ridership: routeRidership(c.Traversed, nodes),
	}
}
