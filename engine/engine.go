package engine

import (
	"fmt"

	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/sim/transitgame/engine/algo"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/samber/lo"
)

// 游戏核心状态机
// 路网与空间索引加载后只读；草稿、已提交线路、预算、覆盖模型是
// 仅有的可变状态，写操作经mu串行化，查询可并发
type Engine struct {
	// 路网，加载后只读
	nodes       map[int64]*Node
	edges       []*Edge
	censusNodes []*Node // pop+jobs>0的节点，按id升序
	searchGraph *algo.SearchGraph[algo.RoadNodeAttr, algo.RoadEdgeAttr]
	grid        *algo.Grid
	nodeIndex   map[int64]int // 数据集节点id -> 图节点下标

	// 可变游戏状态
	coverage   *CoverageModel
	routes     []*Route // 按提交顺序
	routesByID map[string]*Route
	draft      []int64
	budget     float64
	day        int

	mu *xsync.RBMutex
}

func New(mapData *MapData) (*Engine, error) {
	nodes, edges, err := initMap(mapData)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		nodes:      nodes,
		edges:      edges,
		coverage:   newCoverageModel(),
		routes:     make([]*Route, 0),
		routesByID: make(map[string]*Route),
		budget:     STARTING_BUDGET,
		day:        1,
		mu:         xsync.NewRBMutex(),
	}
	e.buildRoadGraph()
	log.Infof("road graph loaded: %d nodes, %d edges, %d census nodes",
		len(e.nodes), len(e.edges), len(e.censusNodes))
	return e, nil
}

// 查询距世界坐标(x,z)最近的路网节点
func (e *Engine) NearestNode(x, z float64) (int64, bool) {
	t := e.mu.RLock()
	defer e.mu.RUnlock(t)
	index, ok := e.grid.Nearest(geometry.Point{X: x, Y: z})
	if !ok {
		return 0, false
	}
	return e.searchGraph.NodeAttr(index).ID, true
}

// 只读compose，不改变草稿状态，用于指针移动时的实时预览
func (e *Engine) PreviewRoute(waypoints []int64) (stats RouteStats, err error) {
	t := e.mu.RLock()
	defer e.mu.RUnlock(t)
	// panic recover
	defer func() {
		if p := recover(); p != nil {
			stats = RouteStats{}
			err = fmt.Errorf("panic: PreviewRoute %v with input waypoints=%v", p, waypoints)
			log.Errorln(err)
		}
	}()
	composed, err := e.composeRoute(waypoints)
	if err != nil {
		return RouteStats{}, err
	}
	return routeStatsOf(composed, e.nodes), nil
}

// 以完整途经点列表重算草稿，返回草稿指标
// 相邻重复的途经点静默合并
func (e *Engine) RecomputeDraft(waypoints []int64) (stats RouteStats, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	// panic recover
	defer func() {
		if p := recover(); p != nil {
			stats = RouteStats{}
			err = fmt.Errorf("panic: RecomputeDraft %v with input waypoints=%v", p, waypoints)
			log.Errorln(err)
		}
	}()
	waypoints = collapseConsecutive(waypoints)
	composed, err := e.composeRoute(waypoints)
	if err != nil {
		return RouteStats{}, err
	}
	e.draft = waypoints
	return routeStatsOf(composed, e.nodes), nil
}

func (e *Engine) DraftWaypoints() []int64 {
	t := e.mu.RLock()
	defer e.mu.RUnlock(t)
	return append([]int64(nil), e.draft...)
}

// 提交草稿为正式线路
// 余额不足时拒绝且所有状态保持不变
func (e *Engine) CommitDraft(color string) (route *Route, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	// panic recover
	defer func() {
		if p := recover(); p != nil {
			route = nil
			err = fmt.Errorf("panic: CommitDraft %v with draft=%v", p, e.draft)
			log.Errorln(err)
		}
	}()
	route, err = e.commitLocked(e.draft, color, true)
	if err != nil {
		return nil, err
	}
	e.draft = nil
	return route, nil
}

func (e *Engine) commitLocked(waypoints []int64, color string, charge bool) (*Route, error) {
	if len(waypoints) < 2 {
		return nil, ErrDraftNotReady
	}
	composed, err := e.composeRoute(waypoints)
	if err != nil {
		return nil, err
	}
	stats := routeStatsOf(composed, e.nodes)
	if charge {
		if stats.Cost > e.budget {
			return nil, fmt.Errorf("%w: cost %.0f > budget %.0f", ErrInsufficientFunds, stats.Cost, e.budget)
		}
		e.budget -= stats.Cost
	}
	route := &Route{
		ID:        uuid.NewString(),
		Color:     color,
		Waypoints: append([]int64(nil), waypoints...),
		Traversed: composed.Traversed,
		Polyline:  composed.Polyline,
		Stats:     stats,
	}
	e.routes = append(e.routes, route)
	e.routesByID[route.ID] = route
	e.coverage.Rebuild(e.routes, e.nodes)
	log.Debugf("route %s committed: %.0fm, ridership %d", route.ID, stats.Length, stats.Ridership)
	return route, nil
}

func (e *Engine) DiscardDraft() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft = nil
}

func (e *Engine) Routes() []*Route {
	t := e.mu.RLock()
	defer e.mu.RUnlock(t)
	return append([]*Route(nil), e.routes...)
}

func (e *Engine) DeleteRoute(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.removeLocked(id); err != nil {
		return err
	}
	e.coverage.Rebuild(e.routes, e.nodes)
	return nil
}

// 编辑已提交线路：从正式集合移除、退还建设费用、途经点成为新草稿
// 不产生并行副本，重新提交时按新的长度重新计费
func (e *Engine) EditRoute(id string) ([]int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	route, err := e.removeLocked(id)
	if err != nil {
		return nil, err
	}
	e.budget += route.Stats.Cost
	e.draft = append([]int64(nil), route.Waypoints...)
	e.coverage.Rebuild(e.routes, e.nodes)
	return append([]int64(nil), e.draft...), nil
}

func (e *Engine) removeLocked(id string) (*Route, error) {
	route, ok := e.routesByID[id]
	if !ok {
		return nil, fmt.Errorf("%w (id=%s)", ErrRouteNotFound, id)
	}
	delete(e.routesByID, id)
	e.routes = lo.Filter(e.routes, func(r *Route, _ int) bool { return r.ID != id })
	return route, nil
}

// 到最近服务节点的距离；没有已提交线路时返回+Inf
func (e *Engine) DistanceToNearestService(x, z float64) float64 {
	t := e.mu.RLock()
	defer e.mu.RUnlock(t)
	return e.coverage.DistanceToNearestService(geometry.Point{X: x, Y: z})
}

func (e *Engine) Approval() int {
	t := e.mu.RLock()
	defer e.mu.RUnlock(t)
	return e.coverage.ApprovalScore(e.censusNodes)
}

func (e *Engine) Status() GameStatus {
	t := e.mu.RLock()
	defer e.mu.RUnlock(t)
	return GameStatus{
		Day:        e.day,
		Budget:     e.budget,
		Approval:   e.coverage.ApprovalScore(e.censusNodes),
		RouteCount: len(e.routes),
	}
}

// 日终结算：票款收入减去运营支出，天数推进
// 日循环定时器由外部驱动，本方法是它唯一的入口
func (e *Engine) AdvanceDay() DayReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	income := lo.SumBy(e.routes, func(r *Route) float64 { return float64(r.Stats.Ridership) * FARE })
	upkeep := lo.SumBy(e.routes, func(r *Route) float64 { return r.Stats.Length * DAILY_UPKEEP_PER_METER })
	e.budget += income - upkeep
	e.day++
	return DayReport{
		Day:      e.day,
		Income:   income,
		Upkeep:   upkeep,
		Budget:   e.budget,
		Approval: e.coverage.ApprovalScore(e.censusNodes),
	}
}

// 导出存档：只保存途经点与颜色，几何与覆盖状态不落盘
func (e *Engine) Snapshot() SaveGame {
	t := e.mu.RLock()
	defer e.mu.RUnlock(t)
	return SaveGame{
		Day:    e.day,
		Budget: e.budget,
		Routes: lo.Map(e.routes, func(r *Route, _ int) SavedRoute {
			return SavedRoute{Nodes: append([]int64(nil), r.Waypoints...), Color: r.Color}
		}),
	}
}

// 载入存档：清空当前线路，对每条存档线路重新compose并重建覆盖
// 存档线路引用当前路网不存在的节点时载入失败，状态回到空线路集合
func (e *Engine) Restore(save SaveGame) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	// panic recover
	defer func() {
		if p := recover(); p != nil {
			e.routes = make([]*Route, 0)
			e.routesByID = make(map[string]*Route)
			e.coverage.Rebuild(e.routes, e.nodes)
			err = fmt.Errorf("panic: Restore %v", p)
			log.Errorln(err)
		}
	}()
	e.routes = make([]*Route, 0)
	e.routesByID = make(map[string]*Route)
	e.draft = nil
	e.day = save.Day
	e.budget = save.Budget
	for i, saved := range save.Routes {
		if _, err := e.commitLocked(saved.Nodes, saved.Color, false); err != nil {
			e.routes = make([]*Route, 0)
			e.routesByID = make(map[string]*Route)
			e.coverage.Rebuild(e.routes, e.nodes)
			return fmt.Errorf("saved route %d: %w", i, err)
		}
	}
	e.coverage.Rebuild(e.routes, e.nodes)
	return nil
}

// 全部路网节点id，升序，供benchmark与调试使用
func (e *Engine) NodeIDs() []int64 {
	ids := make([]int64, e.searchGraph.NodeCount())
	for i := range ids {
		ids[i] = e.searchGraph.NodeAttr(i).ID
	}
	return ids
}

func (e *Engine) NodeCount() int {
	return len(e.nodes)
}

func collapseConsecutive(waypoints []int64) []int64 {
	out := make([]int64, 0, len(waypoints))
	for _, id := range waypoints {
		if n := len(out); n > 0 && out[n-1] == id {
			continue
		}
		out = append(out, id)
	}
	return out
}
