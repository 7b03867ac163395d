package validate

import (
	"fmt"
	"strings"
	"time"

	"github.com/dataset-hub/dataset-hub/internal/table"
)

// DefaultMaxFutureDate 是日期前瞻阈值：超过当前时间 90 天的观测只告警不失败。
const DefaultMaxFutureDate = 90 * 24 * time.Hour

// StructuralError 表示硬性校验失败：结构不合法的载荷永远不会返回给调用方，
// 即便底层某一层“成功”取到了数据。
type StructuralError struct {
	Reason string
}

func (e *StructuralError) Error() string {
	return "structural validation failed: " + e.Reason
}

// Warning 是软性校验告警，只上报不终止解析。
type Warning struct {
	Code    string
	Message string
}

func (w Warning) String() string {
	return w.Code + ": " + w.Message
}

// Rules 描述一张表需要满足的结构与内容要求。
type Rules struct {
	// RequiredColumns 缺失任何一列都是硬性失败。
	RequiredColumns []string
	// MinRows 最低行数；0 按 1 处理（空表是硬性失败）。
	MinRows int
	// DateColumn 指定做前瞻检查的日期列；为空则跳过日期检查。
	DateColumn string
	// MaxFutureDate 允许的最大前瞻区间；0 使用 DefaultMaxFutureDate。
	MaxFutureDate time.Duration
	// Now 可注入，便于日期检查的确定性测试。
	Now func() time.Time
}

// 数据源常见的两种日期写法：ISO 与巴西习惯的 dd/mm/yyyy。
var dateLayouts = []string{"2006-01-02", "02/01/2006"}

// Check 对单张表执行校验：返回软告警列表；硬性失败返回 *StructuralError。
func Check(t table.Table, rules Rules) ([]Warning, error) {
	minRows := rules.MinRows
	if minRows <= 0 {
		minRows = 1
	}

	var missing []string
	for _, col := range rules.RequiredColumns {
		if t.ColumnIndex(col) < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &StructuralError{Reason: "missing required columns: " + strings.Join(missing, ", ")}
	}

	if t.RowCount() < minRows {
		return nil, &StructuralError{Reason: fmt.Sprintf("expected at least %d rows, got %d", minRows, t.RowCount())}
	}

	var warnings []Warning
	if rules.DateColumn != "" {
		warnings = append(warnings, checkFutureDates(t, rules)...)
	}
	return warnings, nil
}

// CheckResult 对结果的每张表应用同一套规则，告警信息带表键前缀。
func CheckResult(r table.Result, rules Rules) ([]Warning, error) {
	if t, ok := r.Table(); ok {
		return Check(t, rules)
	}

	tables, _ := r.Tables()
	if len(tables) == 0 {
		return nil, &StructuralError{Reason: "payload contains no tables"}
	}

	var warnings []Warning
	for _, key := range r.Keys() {
		tableWarnings, err := Check(tables[key], rules)
		if err != nil {
			return nil, &StructuralError{Reason: fmt.Sprintf("table %s: %v", key, err)}
		}
		for _, w := range tableWarnings {
			w.Message = key + ": " + w.Message
			warnings = append(warnings, w)
		}
	}
	return warnings, nil
}

func checkFutureDates(t table.Table, rules Rules) []Warning {
	idx := t.ColumnIndex(rules.DateColumn)
	if idx < 0 {
		return nil
	}
	horizon := rules.MaxFutureDate
	if horizon <= 0 {
		horizon = DefaultMaxFutureDate
	}
	now := time.Now
	if rules.Now != nil {
		now = rules.Now
	}
	limit := now().Add(horizon)

	count := 0
	for _, row := range t.Rows {
		if idx >= len(row) {
			continue
		}
		parsed, ok := parseDate(row[idx])
		if !ok {
			continue
		}
		if parsed.After(limit) {
			count++
		}
	}
	if count == 0 {
		return nil
	}
	return []Warning{{
		Code:    "future_dates",
		Message: fmt.Sprintf("%d observations dated beyond %s", count, limit.Format("2006-01-02")),
	}}
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
