// Package http 提供简化的 HTTP 接口，遵循接口隔离原则
package http

import (
	"net/http"
)

// IRequestReader 请求读取接口 - 只负责读取请求数据
type IRequestReader interface {
	GetMethod() string
	GetPath() string
	GetHeader(key string) string
	GetQuery(key string) string
	GetParam(key string) string

	GetBody() ([]byte, error)
	GetRequest() *http.Request

	ClientIP() string
	UserAgent() string
}

// IRequestBinder 请求绑定接口 - 只负责数据绑定
type IRequestBinder interface {
	BindJSON(obj any) error
}

// 请求头与上下文存储键
const (
	HeaderRequestID = "X-Request-ID"

	RequestIDKey       = "request_id"
	ResponseWrittenKey = "response_written"
)

// ExtractRequestID 从请求头提取请求 ID，不存在时返回空字符串
func ExtractRequestID(r *http.Request) string {
	if r == nil {
		return ""
	}
	return r.Header.Get(HeaderRequestID)
}
