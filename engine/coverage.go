package engine

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
)

// 全部已提交线路覆盖的节点集合
// 每次提交/删除/编辑后全量重建：线路编辑可能缩小集合，
// 在当前数据规模下全量重建远比增量修补简单可靠
type CoverageModel struct {
	served map[int64]struct{}
	coords []geometry.Point // 与served对应的世界坐标，加速距离查询
}

func newCoverageModel() *CoverageModel {
	return &CoverageModel{
		served: make(map[int64]struct{}),
		coords: make([]geometry.Point, 0),
	}
}

// 从所有已提交线路的经过节点重建服务集合
func (c *CoverageModel) Rebuild(routes []*Route, nodes map[int64]*Node) {
	c.served = make(map[int64]struct{})
	c.coords = c.coords[:0]
	for _, route := range routes {
		for _, id := range route.Traversed {
			if _, ok := c.served[id]; ok {
				continue
			}
			c.served[id] = struct{}{}
			c.coords = append(c.coords, nodes[id].Pos)
		}
	}
}

func (c *CoverageModel) ServedCount() int {
	return len(c.served)
}

func (c *CoverageModel) Contains(id int64) bool {
	_, ok := c.served[id]
	return ok
}

// 到最近服务节点的距离；没有任何已提交线路时返回+Inf
// 服务集合远小于全部节点，线性扫描即可
func (c *CoverageModel) DistanceToNearestService(p geometry.Point) float64 {
	best := math.Inf(0)
	for _, q := range c.coords {
		if d := geometry.Distance(p, q); d < best {
			best = d
		}
	}
	return best
}

// 0~100的民意评分
// 每个有人口或岗位的节点按步行距离计算满意度并以(pop+jobs)加权，
// 总权重为0时返回0
func (c *CoverageModel) ApprovalScore(censusNodes []*Node) int {
	totalWeight, weighted := .0, .0
	for _, node := range censusNodes {
		weight := float64(node.Pop + node.Jobs)
		if weight <= 0 {
			continue
		}
		totalWeight += weight
		weighted += weight * walkSatisfaction(c.DistanceToNearestService(node.Pos))
	}
	if totalWeight == 0 {
		return 0
	}
	// 向下取整
	return int(weighted / totalWeight * 100)
}

func walkSatisfaction(distance float64) float64 {
	switch {
	case distance <= IDEAL_SERVICE_DISTANCE:
		return 1
	case distance >= MAX_SERVICE_DISTANCE:
		return 0
	default:
		return (MAX_SERVICE_DISTANCE - distance) / (MAX_SERVICE_DISTANCE - IDEAL_SERVICE_DISTANCE)
	}
}
