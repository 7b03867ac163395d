package table

// Table 表示一份矩形数据集：有序列名 + 行记录，单元格统一以字符串承载，
// 上层（Resolver/Validator）不解释具体内容，仅做结构检查。
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// RowCount 返回行数。
func (t Table) RowCount() int {
	return len(t.Rows)
}

// ColCount 返回列数。
func (t Table) ColCount() int {
	return len(t.Columns)
}

// Empty 判断表是否没有任何数据行。
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// ColumnIndex 返回列名对应的下标，找不到时返回 -1。
func (t Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// Clone 复制一份独立的表，避免调用方修改底层切片影响缓存内容。
func (t Table) Clone() Table {
	out := Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}
