package basic

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"io"
	"net"
	"net/http"

	"studentdb/errors"
	httpx "studentdb/http"
)

type HttpContext struct {
	request *http.Request
	writer  http.ResponseWriter
	params  map[string]string
	ctx     context.Context
	status  int
	aborted bool
	values  map[string]any
}

func NewBaseHttpContext(w http.ResponseWriter, r *http.Request) *HttpContext {
	return &HttpContext{
		request: r,
		writer:  w,
		params:  make(map[string]string),
		ctx:     r.Context(),
		status:  http.StatusOK,
		values:  make(map[string]any),
	}
}

// implement httpx.IHttpContext
func (c *HttpContext) GetMethod() string           { return c.request.Method }
func (c *HttpContext) GetPath() string             { return c.request.URL.Path }
func (c *HttpContext) GetQuery(key string) string  { return c.request.URL.Query().Get(key) }
func (c *HttpContext) GetParam(key string) string  { return c.params[key] }
func (c *HttpContext) GetHeader(key string) string { return c.request.Header.Get(key) }

// GetBody 读取完整请求体；超过 MaxBodyBytes 时返回 InvalidInput
func (c *HttpContext) GetBody() ([]byte, error) {
	if c.request.Body == nil {
		return nil, nil
	}
	defer c.request.Body.Close()
	buf, err := io.ReadAll(c.request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stdErrors.As(err, &tooLarge) {
			return nil, errors.WrapError(err, errors.ErrCodeInvalidInput, "request body too large")
		}
		return nil, errors.WrapError(err, errors.ErrCodeInternal, "failed to read request body")
	}
	return buf, nil
}

func (c *HttpContext) BindJSON(obj any) error {
	body, err := c.GetBody()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, obj); err != nil {
		return errors.WrapError(err, errors.ErrCodeInvalidInput, "failed to parse JSON")
	}
	return nil
}

func (c *HttpContext) SetStatus(code int)          { c.status = code }
func (c *HttpContext) SetHeader(key, value string) { c.writer.Header().Set(key, value) }
func (c *HttpContext) Status() int                 { return c.status }

func (c *HttpContext) JSON(code int, obj any) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return errors.WrapError(err, errors.ErrCodeInternal, "failed to serialize JSON")
	}
	c.SetHeader("Content-Type", "application/json")
	return c.write(code, data)
}

func (c *HttpContext) String(code int, text string) error {
	c.SetHeader("Content-Type", "text/plain; charset=utf-8")
	return c.write(code, []byte(text))
}

func (c *HttpContext) write(code int, data []byte) error {
	c.SetStatus(code)
	c.writer.WriteHeader(c.status)
	c.values[httpx.ResponseWrittenKey] = true
	_, err := c.writer.Write(data)
	return err
}

func (c *HttpContext) GetContext() context.Context { return c.ctx }
func (c *HttpContext) SetContext(ctx context.Context) {
	if ctx != nil {
		c.ctx = ctx
	}
}
func (c *HttpContext) Set(key string, value any)  { c.values[key] = value }
func (c *HttpContext) Get(key string) (any, bool) { v, ok := c.values[key]; return v, ok }
func (c *HttpContext) Abort()                     { c.aborted = true }
func (c *HttpContext) IsAborted() bool            { return c.aborted }
func (c *HttpContext) UserAgent() string          { return c.request.UserAgent() }
func (c *HttpContext) GetRequest() *http.Request  { return c.request }
func (c *HttpContext) SetParam(key, value string) { c.params[key] = value }

func (c *HttpContext) ClientIP() string {
	host, _, err := net.SplitHostPort(c.request.RemoteAddr)
	if err != nil {
		return c.request.RemoteAddr
	}
	return host
}
