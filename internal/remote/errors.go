package remote

import "fmt"

// NetworkError 描述远程资产仓库交互失败。5xx/429 与传输级错误可重试，
// 其余 4xx（包括 404）视为 fatal。
type NetworkError struct {
	Op        string
	URL       string
	Status    int
	Retryable bool
	Err       error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remote %s %s: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("remote %s %s: status %d", e.Op, e.URL, e.Status)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsRetryable 供 Retry/Backoff 分类器识别。
func (e *NetworkError) IsRetryable() bool { return e.Retryable }

func retryableStatus(status int) bool {
	return status >= 500 || status == 429
}
