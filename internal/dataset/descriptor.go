package dataset

// Descriptor 记录一个数据集的静态信息：标识、展示名、表键集合与能力标记。
// 注册完成后不可变，所有权归 Registry。
type Descriptor struct {
	// ID 是数据集的唯一键，注册时统一转为小写。
	ID string
	// DisplayName 是面向用户的展示名称。
	DisplayName string
	// Tables 是有序表键集合；为空表示数据集只有一张隐式表。
	Tables []string
	// Hidden 的数据集不出现在发现列表中，任何层的解析请求一律返回 not found。
	Hidden bool
	// CacheOnly 表示数据集没有在线抓取来源，只能由 local/remote 层提供。
	CacheOnly bool
	// LiveFetchable 表示存在注册的在线抓取实现。
	LiveFetchable bool
	// Aliases 列出历史遗留 ID，解析时透明映射到当前 ID。
	Aliases []string
}

// HasTable 报告表键是否属于该数据集。
func (d Descriptor) HasTable(key string) bool {
	for _, t := range d.Tables {
		if t == key {
			return true
		}
	}
	return false
}

// MultiTable 报告数据集是否声明了显式表键。
func (d Descriptor) MultiTable() bool {
	return len(d.Tables) > 0
}

// Summary 是发现接口返回的精简描述。
type Summary struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Tables      []string `json:"tables,omitempty"`
	Hidden      bool     `json:"hidden"`
}

// Summarize 将描述符折叠为发现接口使用的摘要。
func (d Descriptor) Summarize() Summary {
	return Summary{
		ID:          d.ID,
		DisplayName: d.DisplayName,
		Tables:      append([]string(nil), d.Tables...),
		Hidden:      d.Hidden,
	}
}
