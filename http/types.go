package http

import "time"

// ErrorPayload 通用错误响应
//
// code 取自 errors.ErrorCode；fields 仅在字段校验失败时出现。
type ErrorPayload struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
	Fields any    `json:"fields,omitempty"`
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code, detail string, fields any) *ErrorPayload {
	return &ErrorPayload{
		Detail: detail,
		Code:   code,
		Fields: fields,
	}
}

// WebConfig HTTP 服务基础配置
type WebConfig struct {
	Host         string        `json:"host" yaml:"host"`
	Port         int           `json:"port" yaml:"port"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout" yaml:"idle_timeout"`

	// MaxBodyBytes 请求体大小上限，<=0 表示不限制
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes"`

	// ShutdownTimeout 优雅退出超时
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// DefaultWebConfig 默认配置
func DefaultWebConfig() WebConfig {
	return WebConfig{
		Host:            "0.0.0.0",
		Port:            8000,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		MaxBodyBytes:    1 << 20,
		ShutdownTimeout: 10 * time.Second,
	}
}
