package basic

import (
	"fmt"
	"net/http"
	"strconv"

	"studentdb/errors"
	httpx "studentdb/http"
)

type HttpUtils struct{}

// ParseID 解析整数路径参数；非整数返回 InvalidInput（422）
//
// 0 与负数可以解析，由存储层按不存在处理。
func (u *HttpUtils) ParseID(ctx httpx.IHttpContext, paramName string) (int64, error) {
	idStr := ctx.GetParam(paramName)
	if idStr == "" {
		return 0, errors.NewError(errors.ErrCodeInvalidInput, fmt.Sprintf("parameter %s cannot be empty", paramName))
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, errors.WrapError(err, errors.ErrCodeInvalidInput, fmt.Sprintf("parameter %s must be a valid integer", paramName))
	}
	return id, nil
}

// StatusFor 错误码到 HTTP 状态码的映射
func StatusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidInput, errors.ErrCodeValidation:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (u *HttpUtils) WriteErrorResponse(ctx httpx.IHttpContext, err error) error {
	if v, ok := ctx.Get(httpx.ResponseWrittenKey); ok {
		if written, _ := v.(bool); written {
			return nil
		}
	}

	// 优先规范化错误，确保尽可能使用统一的 ErrorCode 体系
	err = errors.Normalize(err)

	var (
		status    int
		message   string
		errorCode string
		fields    any
	)
	if appErr, ok := err.(errors.IError); ok {
		status = StatusFor(appErr.Code())
		message = appErr.Message()
		errorCode = string(appErr.Code())
		if f, ok := appErr.Details()["fields"]; ok {
			fields = f
		}
		// 存储类错误不向客户端暴露底层细节
		if status == http.StatusInternalServerError {
			message = "internal server error"
		}
	} else {
		status = http.StatusInternalServerError
		message = "internal server error"
		errorCode = string(errors.ErrCodeInternal)
	}
	if jerr := ctx.JSON(status, httpx.NewErrorResponse(errorCode, message, fields)); jerr != nil {
		_ = ctx.String(http.StatusInternalServerError, fmt.Sprintf("%s: %s", errorCode, message))
	}
	// 标记已写出错误响应，避免在同一请求链路中重复写入
	ctx.Set(httpx.ResponseWrittenKey, true)
	return nil
}
