package messaging

import "context"

// IMessageHandler 消息处理器接口
type IMessageHandler interface {
	// Handle 处理消息
	Handle(ctx context.Context, message IMessage) error

	// Type 返回处理器类型（用于日志和调试）
	Type() string
}

// HandlerFunc 函数适配为 IMessageHandler
type HandlerFunc func(ctx context.Context, message IMessage) error

func (f HandlerFunc) Handle(ctx context.Context, message IMessage) error { return f(ctx, message) }
func (f HandlerFunc) Type() string                                      { return "func" }
