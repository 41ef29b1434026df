package algo

type RoadNodeAttr struct {
	ID int64 // 数据集中的节点id
}

type RoadEdgeAttr struct {
	Index    int  // 在数据集边列表中的下标
	Reversed bool // 是否沿双向边的反方向通行
}
