// Package api 提供学生记录的 RESTful 路由
package api

import (
	httpx "studentdb/http"
	"studentdb/validation"
)

// 固定响应文案
const (
	RootMessage   = "Student Management API with Dictionary Storage"
	DeleteMessage = "Student deleted successfully"
)

// RouteConfig 路由配置
type RouteConfig struct {
	// 资源路径，末尾带 /
	BasePath string

	// 存储视图路径
	StoragePath string

	// 解码后的额外校验（默认不做任何约束）
	Validator validation.IValidator

	// 只作用于学生路由的中间件
	Middlewares []httpx.Middleware
}

// DefaultRouteConfig 默认路由配置
func DefaultRouteConfig() *RouteConfig {
	return &RouteConfig{
		BasePath:    "/students/",
		StoragePath: "/storage",
		Validator:   validation.NoopValidator{},
	}
}
