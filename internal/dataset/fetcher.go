package dataset

import (
	"context"
	"fmt"

	"github.com/dataset-hub/dataset-hub/internal/table"
)

// Params 约束在线抓取的取数范围；零值表示由数据源决定默认区间。
type Params struct {
	Start string
	End   string
}

// Fetcher 是在线抓取协作方的唯一契约：根据数据集 ID 与参数返回统一的
// table.Result。失败时返回 *FetchError，由 Retryable 决定是否重试。
type Fetcher interface {
	Fetch(ctx context.Context, id string, params Params) (table.Result, error)
}

// FetcherFunc 将函数适配为 Fetcher。
type FetcherFunc func(ctx context.Context, id string, params Params) (table.Result, error)

// Fetch 使 FetcherFunc 满足 Fetcher。
func (f FetcherFunc) Fetch(ctx context.Context, id string, params Params) (table.Result, error) {
	return f(ctx, id, params)
}

// FetchError 描述在线抓取失败。传输级失败（超时、连接中断、5xx）标记
// retryable；数据源返回的畸形响应属于 fatal，不重试。
type FetchError struct {
	ID        string
	Reason    string
	Retryable bool
	Err       error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("live fetch %s: %s: %v", e.ID, e.Reason, e.Err)
	}
	return fmt.Sprintf("live fetch %s: %s", e.ID, e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsRetryable 供 Retry/Backoff 分类器识别。
func (e *FetchError) IsRetryable() bool { return e.Retryable }

// NewFetchError 构造在线抓取错误。
func NewFetchError(id, reason string, retryable bool, err error) *FetchError {
	return &FetchError{ID: id, Reason: reason, Retryable: retryable, Err: err}
}
