package dataset

import (
	"errors"
	"fmt"
)

// ErrNotFound 表示数据集不可用。隐藏数据集与未注册数据集返回同一个错误，
// 不向调用方泄露隐藏项是否存在。
var ErrNotFound = errors.New("dataset not available")

// ValidationError 表示请求参数不合法，在任何 I/O 之前抛出。
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func newValidationError(field, reason string) error {
	return ValidationError{Field: field, Reason: reason}
}
