package domain

import "fmt"

// RepositoryError 通用仓储错误
//
// 同一 Code 的错误视为同类，errors.Is 按 Code 匹配，
// 因此携带 EntityID 的实例仍能与哨兵错误比较。
type RepositoryError struct {
	Code     string
	Message  string
	EntityID any
	Cause    error
}

func (e *RepositoryError) Error() string {
	msg := e.Message
	if e.EntityID != nil {
		msg = fmt.Sprintf("%s (id=%v)", msg, e.EntityID)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *RepositoryError) Unwrap() error {
	return e.Cause
}

// Is 按错误码匹配
func (e *RepositoryError) Is(target error) bool {
	t, ok := target.(*RepositoryError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// 常见仓储错误
var (
	ErrEntityNotFound   = &RepositoryError{Code: "ENTITY_NOT_FOUND", Message: "entity not found"}
	ErrRepositoryFailed = &RepositoryError{Code: "REPOSITORY_FAILED", Message: "repository operation failed"}
)

// NewNotFoundError 创建携带实体 ID 的未找到错误
func NewNotFoundError(message string, id any) *RepositoryError {
	return &RepositoryError{
		Code:     ErrEntityNotFound.Code,
		Message:  message,
		EntityID: id,
	}
}
