// Package validation 提供请求边界的字段校验工具。
package validation

import (
	"fmt"
	"strings"

	"studentdb/errors"
)

// IValidator 定义通用验证器接口
type IValidator interface {
	Validate(value any) error
}

// NoopValidator 默认验证器，实现为空操作
type NoopValidator struct{}

// Validate 实现 IValidator 接口
func (NoopValidator) Validate(value any) error {
	return nil
}

// FieldError 单个字段的校验失败信息
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors 按出现顺序收集字段错误
type Errors []FieldError

// Add 追加一条字段错误
func (v *Errors) Add(field, message string) {
	*v = append(*v, FieldError{Field: field, Message: message})
}

// Addf 以格式化消息追加字段错误
func (v *Errors) Addf(field, format string, args ...any) {
	v.Add(field, fmt.Sprintf(format, args...))
}

// Empty 是否没有任何错误
func (v Errors) Empty() bool { return len(v) == 0 }

// Err 无错误时返回 nil，否则返回带 fields 详情的验证错误
func (v Errors) Err() error {
	if v.Empty() {
		return nil
	}
	names := make([]string, 0, len(v))
	for _, fe := range v {
		names = append(names, fe.Field)
	}
	fields := make([]FieldError, len(v))
	copy(fields, v)
	return errors.NewError(errors.ErrCodeValidation,
		fmt.Sprintf("invalid fields: %s", strings.Join(names, ", "))).
		WithDetails(map[string]any{"fields": fields})
}

// RequirePresent 字段缺失时记录 "field required"
func RequirePresent(errs *Errors, field string, present bool) {
	if !present {
		errs.Add(field, "field required")
	}
}

// NewValidationError 创建验证错误
func NewValidationError(message string) error {
	return errors.NewValidationError(message)
}
