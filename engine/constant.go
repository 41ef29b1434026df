package engine

import "errors"

const (
	// 空间索引格子边长/m，与路网节点平均间距同量级
	CELL_SIZE = 60.0

	// 双向线路渲染时向行进方向右侧的横向偏移量/m
	LATERAL_OFFSET = 3.0

	// 步行满意度距离阈值/m
	// 距离不超过IDEAL_SERVICE_DISTANCE记满分，线性衰减到MAX_SERVICE_DISTANCE为0
	IDEAL_SERVICE_DISTANCE = 200.0
	MAX_SERVICE_DISTANCE   = 800.0

	// 经济参数
	STARTING_BUDGET        = 100_000.0
	ROUTE_COST_PER_METER   = 2.0
	DAILY_UPKEEP_PER_METER = 0.05
	FARE                   = 2.0

	// 客流平衡系数，作用在min(沿线人口, 沿线岗位)上
	RIDERSHIP_BALANCE = 0.6
)

var (
	// 错误：边引用了数据集中不存在的节点，路网加载必须中止
	ErrUnknownNode = errors.New("edge references unknown node")
	// 错误：途经点引用了路网中不存在的节点
	ErrUnknownWaypoint = errors.New("waypoint references unknown node")
	// 错误：草稿不足2个途经点，无法提交
	ErrDraftNotReady = errors.New("draft needs at least 2 waypoints")
	// 错误：余额不足以支付线路建设费用
	ErrInsufficientFunds = errors.New("insufficient funds")
	// 错误：线路不存在
	ErrRouteNotFound = errors.New("route not found")
)
