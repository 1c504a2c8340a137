package basic

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	httpx "studentdb/http"
	"studentdb/logging"
	"studentdb/messaging"
)

func TestRequestID(t *testing.T) {
	srv := NewHTTPServer(httpx.WebConfig{})
	srv.Use(RequestID())

	var correlation string
	srv.GET("/ping", func(ctx httpx.IHttpContext) error {
		correlation = messaging.GetCorrelationID(ctx.GetContext())
		return ctx.String(http.StatusOK, "pong")
	})
	h := srv.Handler()

	// 沿用客户端传入的 ID
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(httpx.HeaderRequestID, "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-1", rec.Header().Get(httpx.HeaderRequestID))
	assert.Equal(t, "req-1", correlation)

	// 未传入时生成
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	generated := rec.Header().Get(httpx.HeaderRequestID)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, correlation)
}

func TestRecoverAndAccessLog(t *testing.T) {
	logger := logging.NewNoopLogger()
	srv := NewHTTPServer(httpx.WebConfig{})
	srv.Use(AccessLog(logger), Recover(logger))
	srv.GET("/panic", func(ctx httpx.IHttpContext) error { panic("bad") })

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"INTERNAL_ERROR"`)
}
