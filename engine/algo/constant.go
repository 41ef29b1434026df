package algo

const (
	// 均匀网格默认格子边长/m，取城市路网节点平均间距的量级
	DEFAULT_CELL_SIZE = 60.0
)
