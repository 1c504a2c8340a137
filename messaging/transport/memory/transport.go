// Package memory 提供同步的进程内消息传输实现
// Publish 在调用方 goroutine 中依次调用所有匹配的处理器，适用于单机部署与测试。
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"studentdb/messaging"
)

// Transport 同步内存传输
type Transport struct {
	handlers  map[string][]messaging.IMessageHandler
	mutex     sync.RWMutex
	running   bool
	published atomic.Int64
}

// NewTransport 创建传输实例（已处于运行状态）
func NewTransport() *Transport {
	return &Transport{
		handlers: make(map[string][]messaging.IMessageHandler),
		running:  true,
	}
}

// Publish 立即、同步地发布消息；无人订阅不是错误
func (t *Transport) Publish(ctx context.Context, message messaging.IMessage) error {
	t.mutex.RLock()
	if !t.running {
		t.mutex.RUnlock()
		return fmt.Errorf("memory transport is not running")
	}
	handlers := append([]messaging.IMessageHandler(nil), t.handlers[message.GetType()]...)
	handlers = append(handlers, t.handlers[WildcardType]...)
	t.mutex.RUnlock()

	t.published.Add(1)

	var errs []error
	for _, handler := range handlers {
		if err := handler.Handle(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("message handling completed with %d errors: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

// WildcardType 订阅所有类型
const WildcardType = "*"

// Subscribe 订阅消息处理器
func (t *Transport) Subscribe(messageType string, handler messaging.IMessageHandler) error {
	if handler == nil {
		return errors.New("memory transport: nil handler")
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.handlers[messageType] = append(t.handlers[messageType], handler)
	return nil
}

// Start 重新进入运行状态
func (t *Transport) Start(ctx context.Context) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.running = true
	return nil
}

// Close 停止传输，之后的 Publish 返回错误
func (t *Transport) Close() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.running = false
	return nil
}

// Stats 返回统计信息
func (t *Transport) Stats() messaging.TransportStats {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	count := 0
	types := make([]string, 0, len(t.handlers))
	for mt, hs := range t.handlers {
		count += len(hs)
		types = append(types, mt)
	}
	sort.Strings(types)
	return messaging.TransportStats{
		Running:      t.running,
		HandlerCount: count,
		MessageTypes: types,
		Published:    t.published.Load(),
	}
}

var _ messaging.Transport = (*Transport)(nil)
