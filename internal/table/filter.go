package table

import (
	"fmt"
	"sort"
)

// Filter 将多表结果裁剪到请求的表键。规则：
//   - key 为空：单表原样返回；多表仅含一张表时收敛为 Single，否则透传；
//   - key 非空：精确提取该表并一定返回 Single。
//
// 表键合法性由 Registry 在解析请求时校验，这里的 unknown key 属于编程错误。
func Filter(r Result, key string) (Result, error) {
	if key == "" {
		if r.IsSingle() {
			return r, nil
		}
		tables, _ := r.Tables()
		if len(tables) == 1 {
			for _, t := range tables {
				return Single(t), nil
			}
		}
		return r, nil
	}

	if t, ok := r.Table(); ok {
		// 单表数据集带表键请求不应走到这里；容错返回原表。
		_ = t
		return r, nil
	}

	tables, _ := r.Tables()
	t, ok := tables[key]
	if !ok {
		return Result{}, fmt.Errorf("table %q not present in payload (have %v)", key, sortedKeys(tables))
	}
	return Single(t), nil
}

func sortedKeys(tables map[string]Table) []string {
	keys := make([]string, 0, len(tables))
	for key := range tables {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
