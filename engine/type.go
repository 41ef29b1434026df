package engine

import (
	"git.fiblab.net/general/common/v2/geometry"
)

// 路网数据集，外部以JSON文档（文件或mongo）提供
// 坐标系为平面米制，y轴在加载时取反对齐渲染引擎的z轴
type MapData struct {
	Nodes map[string]*NodeRecord `json:"nodes" bson:"nodes"`
	Edges []*EdgeRecord          `json:"edges" bson:"edges"`
}

type NodeRecord struct {
	X    float64 `json:"x" bson:"x"`
	Y    float64 `json:"y" bson:"y"`
	Pop  int64   `json:"pop,omitempty" bson:"pop,omitempty"`
	Jobs int64   `json:"jobs,omitempty" bson:"jobs,omitempty"`
}

type EdgeRecord struct {
	U      int64        `json:"u" bson:"u"`
	V      int64        `json:"v" bson:"v"`
	Length *float64     `json:"length,omitempty" bson:"length,omitempty"`
	Oneway bool         `json:"oneway,omitempty" bson:"oneway,omitempty"`
	Points [][2]float64 `json:"points" bson:"points"`
}

// 路网节点，加载后不再修改
type Node struct {
	ID   int64
	Pos  geometry.Point // 世界坐标
	Pop  int64
	Jobs int64
}

// 路网边，加载后不再修改
// Oneway为false时可双向通行，两个方向共享同一条边记录
type Edge struct {
	Index  int
	U      int64
	V      int64
	Length float64 // 通行代价/m，非负
	Oneway bool
	Points []geometry.Point // 渲染折线，世界坐标，首尾为U、V的位置
}

type RouteStats struct {
	Length    float64 `json:"length"`
	Cost      float64 `json:"cost"`
	Ridership int64   `json:"ridership"`
}

// 已提交的线路
type Route struct {
	ID        string
	Color     string
	Waypoints []int64          // 用户选择的途经点
	Traversed []int64          // 实际经过的节点id序列
	Polyline  []geometry.Point // 偏移后的渲染折线
	Stats     RouteStats
}

// 线路的持久化形态：只保存途经点与颜色
// 几何与覆盖状态在载入时由compose和coverage rebuild重新生成
type SavedRoute struct {
	Nodes []int64 `json:"nodes"`
	Color string  `json:"color"`
}

type SaveGame struct {
	Day    int          `json:"day"`
	Budget float64      `json:"budget"`
	Routes []SavedRoute `json:"routes"`
}

type DayReport struct {
	Day      int     `json:"day"`
	Income   float64 `json:"income"`
	Upkeep   float64 `json:"upkeep"`
	Budget   float64 `json:"budget"`
	Approval int     `json:"approval"`
}

type GameStatus struct {
	Day        int     `json:"day"`
	Budget     float64 `json:"budget"`
	Approval   int     `json:"approval"`
	RouteCount int     `json:"routeCount"`
}
