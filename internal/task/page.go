package task

// Page 是一次分页查询的结果。NextCursor 为 nil 表示已经到达集合末尾。
type Page struct {
	Items      []*Task `json:"items"`
	NextCursor *string `json:"nextCursor"`
}

// paginate 截断多取的一条探测记录并生成下一页游标。
// fetched 最多包含 limit+1 条记录，第 limit+1 条只用于判断是否还有下一页。
func paginate(fetched []*Task, limit int) Page {
	if len(fetched) <= limit {
		items := fetched
		if items == nil {
			items = []*Task{}
		}
		return Page{Items: items}
	}
	items := fetched[:limit]
	next := CursorOf(items[limit-1]).Encode()
	return Page{Items: items, NextCursor: &next}
}
