package algo

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
)

// 均匀网格索引的格子坐标
type CellPair struct {
	X int32
	Y int32
}

func PointToCell(p geometry.Point, cellSize float64) CellPair {
	return CellPair{
		X: int32(math.Floor(p.X / cellSize)),
		Y: int32(math.Floor(p.Y / cellSize)),
	}
}

// 均匀网格最近点索引
// 路网加载完成后整体重建一次，之后只读，不支持删除
type Grid struct {
	cellSize float64
	cells    map[CellPair][]int
	points   []geometry.Point
}

func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = DEFAULT_CELL_SIZE
	}
	return &Grid{
		cellSize: cellSize,
		cells:    make(map[CellPair][]int),
		points:   make([]geometry.Point, 0),
	}
}

// 加入一个点，返回其条目下标（加入顺序即下标）
func (g *Grid) Add(p geometry.Point) int {
	index := len(g.points)
	g.points = append(g.points, p)
	cell := PointToCell(p, g.cellSize)
	g.cells[cell] = append(g.cells[cell], index)
	return index
}

func (g *Grid) Len() int {
	return len(g.points)
}

// 查找距离p最近的条目下标
// 先扫描home cell及其8邻域（3x3窗口）；cellSize取节点间距的量级时
// 最近点几乎总在窗口内。窗口全空时退化为全量线性扫描保证正确性
func (g *Grid) Nearest(p geometry.Point) (int, bool) {
	if len(g.points) == 0 {
		return -1, false
	}
	home := PointToCell(p, g.cellSize)
	best := -1
	bestD2 := math.Inf(0)
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			cell := CellPair{X: home.X + dx, Y: home.Y + dy}
			for _, index := range g.cells[cell] {
				if d2 := squaredDistance(p, g.points[index]); d2 < bestD2 {
					best = index
					bestD2 = d2
				}
			}
		}
	}
	if best < 0 {
		// 3x3窗口全空（数据极稀疏），退化为线性扫描
		return g.NearestBruteForce(p)
	}
	return best, true
}

// 全量线性扫描，作为窗口扫描的正确性兜底与测试基准
func (g *Grid) NearestBruteForce(p geometry.Point) (int, bool) {
	best := -1
	bestD2 := math.Inf(0)
	for index, q := range g.points {
		if d2 := squaredDistance(p, q); d2 < bestD2 {
			best = index
			bestD2 = d2
		}
	}
	return best, best >= 0
}

func squaredDistance(p, q geometry.Point) float64 {
	a, b := p.X-q.X, p.Y-q.Y
	return a*a + b*b
}
