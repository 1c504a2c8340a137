package basic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	httpx "studentdb/http"
)

// HttpServer 基于标准库 net/http 的 IHttpServer 实现
type HttpServer struct {
	mux         *http.ServeMux
	config      httpx.WebConfig
	server      *http.Server
	routes      map[string]*route
	middlewares []httpx.Middleware
	mu          sync.RWMutex
	registerMu  sync.Once
	stopped     bool
}

type route struct {
	method  string
	pattern string
	handler httpx.HttpHandler
}

// NewHTTPServer 创建基于 net/http 的服务器
func NewHTTPServer(config httpx.WebConfig) *HttpServer {
	return &HttpServer{
		mux:         http.NewServeMux(),
		config:      config,
		routes:      make(map[string]*route),
		middlewares: make([]httpx.Middleware, 0),
	}
}

// 路由注册实现
func (s *HttpServer) GET(path string, handler httpx.HttpHandler) httpx.IHttpServer {
	return s.addRoute(http.MethodGet, path, handler)
}
func (s *HttpServer) POST(path string, handler httpx.HttpHandler) httpx.IHttpServer {
	return s.addRoute(http.MethodPost, path, handler)
}
func (s *HttpServer) PUT(path string, handler httpx.HttpHandler) httpx.IHttpServer {
	return s.addRoute(http.MethodPut, path, handler)
}
func (s *HttpServer) DELETE(path string, handler httpx.HttpHandler) httpx.IHttpServer {
	return s.addRoute(http.MethodDelete, path, handler)
}

func (s *HttpServer) addRoute(method, path string, handler httpx.HttpHandler) httpx.IHttpServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[method+" "+path] = &route{method: method, pattern: path, handler: handler}
	return s
}

// 路由分组
func (s *HttpServer) Group(prefix string) httpx.IRouteGroup {
	return &RouteGroup{prefix: prefix, server: s, middlewares: make([]httpx.Middleware, 0)}
}

// 全局中间件
func (s *HttpServer) Use(middleware ...httpx.Middleware) httpx.IHttpServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.middlewares = append(s.middlewares, middleware...)
	return s
}

// Handler 首次调用时注册全部路由；之后新增的路由不再生效
func (s *HttpServer) Handler() http.Handler {
	s.registerMu.Do(s.registerRoutes)
	return s.mux
}

// 启停
func (s *HttpServer) Start(addr string) error {
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	}
	handler := s.Handler()
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	srv := s.server
	s.mu.Unlock()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HttpServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// 内部：注册全部路由（按 key 排序，注册顺序稳定）
func (s *HttpServer) registerRoutes() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.routes))
	for k := range s.routes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		r := s.routes[k]
		s.mux.HandleFunc(r.method+" "+convertPathPattern(r.pattern), s.createHandler(r))
	}
}

// 将 :id 转为 {id}（Go 1.22+ PathValue 支持），以 / 结尾的路径只做精确匹配
func convertPathPattern(pattern string) string {
	parts := strings.Split(pattern, "/")
	for i, p := range parts {
		if strings.HasPrefix(p, ":") {
			parts[i] = "{" + p[1:] + "}"
		}
	}
	out := strings.Join(parts, "/")
	if strings.HasSuffix(out, "/") {
		out += "{$}"
	}
	return out
}

func (s *HttpServer) createHandler(r *route) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if s.config.MaxBodyBytes > 0 && req.Body != nil {
			req.Body = http.MaxBytesReader(w, req.Body, s.config.MaxBodyBytes)
		}
		ctx := NewBaseHttpContext(w, req)
		parsePathParams(ctx, r.pattern, req)

		s.mu.RLock()
		middlewares := append([]httpx.Middleware{}, s.middlewares...)
		s.mu.RUnlock()

		if err := executeMiddlewareChain(ctx, middlewares, r.handler); err != nil {
			_ = (&HttpUtils{}).WriteErrorResponse(ctx, err)
		}
	}
}

func parsePathParams(ctx *HttpContext, pattern string, req *http.Request) {
	for _, part := range strings.Split(strings.Trim(pattern, "/"), "/") {
		if strings.HasPrefix(part, ":") {
			name := part[1:]
			ctx.SetParam(name, req.PathValue(name))
		}
	}
}

func executeMiddlewareChain(ctx httpx.IHttpContext, middlewares []httpx.Middleware, handler httpx.HttpHandler) error {
	if ctx.IsAborted() {
		return nil
	}
	if len(middlewares) == 0 {
		return handler(ctx)
	}
	return middlewares[0](ctx, func() error { return executeMiddlewareChain(ctx, middlewares[1:], handler) })
}

// RouteGroup 实现 IRouteGroup
type RouteGroup struct {
	prefix      string
	server      *HttpServer
	middlewares []httpx.Middleware
}

func (g *RouteGroup) GET(path string, h httpx.HttpHandler) httpx.IRouteGroup {
	return g.add(http.MethodGet, path, h)
}
func (g *RouteGroup) POST(path string, h httpx.HttpHandler) httpx.IRouteGroup {
	return g.add(http.MethodPost, path, h)
}
func (g *RouteGroup) PUT(path string, h httpx.HttpHandler) httpx.IRouteGroup {
	return g.add(http.MethodPut, path, h)
}
func (g *RouteGroup) DELETE(path string, h httpx.HttpHandler) httpx.IRouteGroup {
	return g.add(http.MethodDelete, path, h)
}

// Group 子分组继承父分组的中间件
func (g *RouteGroup) Group(prefix string) httpx.IRouteGroup {
	mws := append([]httpx.Middleware{}, g.middlewares...)
	return &RouteGroup{prefix: g.prefix + prefix, server: g.server, middlewares: mws}
}

func (g *RouteGroup) Use(mw ...httpx.Middleware) httpx.IRouteGroup {
	g.middlewares = append(g.middlewares, mw...)
	return g
}

func (g *RouteGroup) add(method, path string, h httpx.HttpHandler) httpx.IRouteGroup {
	g.server.addRoute(method, g.prefix+path, g.wrap(h))
	return g
}

func (g *RouteGroup) wrap(h httpx.HttpHandler) httpx.HttpHandler {
	return func(ctx httpx.IHttpContext) error { return executeMiddlewareChain(ctx, g.middlewares, h) }
}
