package basic

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"studentdb/errors"
	httpx "studentdb/http"
	"studentdb/logging"
	"studentdb/messaging"
)

// RequestID 为每个请求分配请求 ID（沿用客户端传入的 X-Request-ID），
// 写入响应头并作为 correlation_id 注入请求 context
func RequestID() httpx.Middleware {
	return func(ctx httpx.IHttpContext, next func() error) error {
		id := httpx.ExtractRequestID(ctx.GetRequest())
		if id == "" {
			id = uuid.NewString()
		}
		ctx.Set(httpx.RequestIDKey, id)
		ctx.SetHeader(httpx.HeaderRequestID, id)
		ctx.SetContext(messaging.WithCorrelationID(ctx.GetContext(), id))
		return next()
	}
}

// Recover 将 handler 中的 panic 转为 500 响应
func Recover(logger logging.Logger) httpx.Middleware {
	return func(ctx httpx.IHttpContext, next func() error) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(ctx.GetContext(), "panic recovered",
					logging.String("path", ctx.GetPath()),
					logging.Any("panic", r))
				err = errors.NewError(errors.ErrCodeInternal, fmt.Sprintf("panic: %v", r))
			}
		}()
		return next()
	}
}

// AccessLog 记录请求方法、路径、状态码与耗时
//
// handler 返回的错误在此处写出响应，状态码因此能被记录。
func AccessLog(logger logging.Logger) httpx.Middleware {
	utils := &HttpUtils{}
	return func(ctx httpx.IHttpContext, next func() error) error {
		start := time.Now()
		err := next()
		if err != nil {
			_ = utils.WriteErrorResponse(ctx, err)
		}

		fields := []logging.Field{
			logging.String("method", ctx.GetMethod()),
			logging.String("path", ctx.GetPath()),
			logging.Int("status", ctx.Status()),
			logging.Duration("latency", time.Since(start)),
			logging.String("client_ip", ctx.ClientIP()),
		}
		switch {
		case ctx.Status() >= http.StatusInternalServerError:
			logger.Error(ctx.GetContext(), "request failed", append(fields, logging.Error(err))...)
		case err != nil:
			logger.Info(ctx.GetContext(), "request rejected", append(fields, logging.Error(err))...)
		default:
			logger.Info(ctx.GetContext(), "request handled", fields...)
		}
		return nil
	}
}
