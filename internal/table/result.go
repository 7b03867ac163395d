package table

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Result 是任意层（local/remote/live）允许返回的唯一两种形态：
// 单表（Single）或按表键组织的多表映射（Multiple）。调用方通过
// IsSingle/Table/Tables 访问，消除原始实现里返回形态漂移的问题。
type Result struct {
	single *Table
	tables map[string]Table
}

// Single 将一张表包装为单表结果。
func Single(t Table) Result {
	return Result{single: &t}
}

// Multiple 将表键映射包装为多表结果。
func Multiple(tables map[string]Table) Result {
	return Result{tables: tables}
}

// IsSingle 报告结果是否为单表形态。
func (r Result) IsSingle() bool {
	return r.single != nil
}

// Table 返回单表形态下的表；多表形态下 ok 为 false。
func (r Result) Table() (Table, bool) {
	if r.single == nil {
		return Table{}, false
	}
	return *r.single, true
}

// Tables 返回多表形态下的映射；单表形态下 ok 为 false。
func (r Result) Tables() (map[string]Table, bool) {
	if r.tables == nil {
		return nil, false
	}
	return r.tables, true
}

// Keys 返回多表形态下按字典序排序的表键，单表时为空。
func (r Result) Keys() []string {
	if r.tables == nil {
		return nil
	}
	keys := make([]string, 0, len(r.tables))
	for key := range r.tables {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Empty 判断结果是否不含任何数据行：空结果不会在层链路中被视为命中。
func (r Result) Empty() bool {
	if r.single != nil {
		return r.single.Empty()
	}
	if len(r.tables) == 0 {
		return true
	}
	for _, t := range r.tables {
		if !t.Empty() {
			return false
		}
	}
	return true
}

// RowCount 汇总所有表的行数，供缓存 sidecar 元数据记录。
func (r Result) RowCount() int {
	if r.single != nil {
		return r.single.RowCount()
	}
	total := 0
	for _, t := range r.tables {
		total += t.RowCount()
	}
	return total
}

// ColCount 返回单表列数；多表取最大列数。
func (r Result) ColCount() int {
	if r.single != nil {
		return r.single.ColCount()
	}
	most := 0
	for _, t := range r.tables {
		if c := t.ColCount(); c > most {
			most = c
		}
	}
	return most
}

// resultEnvelope 是磁盘序列化格式，kind 字段区分两种形态。
type resultEnvelope struct {
	Kind   string           `json:"kind"`
	Table  *Table           `json:"table,omitempty"`
	Tables map[string]Table `json:"tables,omitempty"`
}

const (
	kindSingle   = "single"
	kindMultiple = "multiple"
)

// ErrUnknownKind 表示序列化载荷中的 kind 字段不是 single/multiple。
var ErrUnknownKind = errors.New("unknown result kind")

// MarshalJSON 将结果编码为带 kind 标记的信封结构。
func (r Result) MarshalJSON() ([]byte, error) {
	if r.single != nil {
		return json.Marshal(resultEnvelope{Kind: kindSingle, Table: r.single})
	}
	return json.Marshal(resultEnvelope{Kind: kindMultiple, Tables: r.tables})
}

// UnmarshalJSON 解析信封结构并恢复对应形态。
func (r *Result) UnmarshalJSON(data []byte) error {
	var env resultEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	switch env.Kind {
	case kindSingle:
		if env.Table == nil {
			env.Table = &Table{}
		}
		r.single = env.Table
		r.tables = nil
	case kindMultiple:
		if env.Tables == nil {
			env.Tables = map[string]Table{}
		}
		r.tables = env.Tables
		r.single = nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, env.Kind)
	}
	return nil
}
