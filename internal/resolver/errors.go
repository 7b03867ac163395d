package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dataset-hub/dataset-hub/internal/table"
)

// ErrEmptyPayload 表示某一层“成功”返回了空载荷；空结果不算命中。
var ErrEmptyPayload = errors.New("tier returned empty payload")

// ErrRemoteDisabled 表示远程层未配置。
var ErrRemoteDisabled = errors.New("remote tier not configured")

// ErrNoFetcher 表示数据集没有注册在线抓取实现。
var ErrNoFetcher = errors.New("no live fetcher registered")

// TierFailure 记录单层的失败原因。
type TierFailure struct {
	Tier table.Source
	Err  error
}

// ChainError 在 auto 模式下所有层都失败时返回，按尝试顺序列出每层的失败原因。
// Unwrap 指向最后一层的错误，调用方可用 errors.Is/As 继续归类。
type ChainError struct {
	Failures []TierFailure
}

func (e *ChainError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %v", f.Tier, f.Err)
	}
	return "all tiers failed: " + strings.Join(parts, "; ")
}

func (e *ChainError) Unwrap() error {
	if len(e.Failures) == 0 {
		return nil
	}
	return e.Failures[len(e.Failures)-1].Err
}
