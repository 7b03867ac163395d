package dataset

import "strings"

// Request 是通过校验后的规范化解析请求。
type Request struct {
	Descriptor Descriptor
	TableKey   string
	Params     Params
}

// Validate 校验数据集 ID、可见性与表键归属，并返回规范化请求。
// 本函数不做任何 I/O：校验失败时解析流程必须零副作用地短路。
func (r *Registry) Validate(id, tableKey string, params Params) (Request, error) {
	desc, ok := r.Lookup(id)
	if !ok || desc.Hidden {
		return Request{}, ErrNotFound
	}

	key := strings.TrimSpace(tableKey)
	if key != "" {
		if !desc.MultiTable() {
			return Request{}, newValidationError("table", "dataset has a single implicit table")
		}
		if !desc.HasTable(key) {
			return Request{}, newValidationError("table", "unknown table key "+key)
		}
	}

	return Request{Descriptor: desc, TableKey: key, Params: params}, nil
}
