package messaging

import (
	"context"
)

// IPublisher 发布端接口（存储只依赖此接口）
type IPublisher interface {
	Publish(ctx context.Context, message IMessage) error
	Close() error
}

// Transport 可订阅的消息传输接口
type Transport interface {
	IPublisher
	Subscribe(messageType string, handler IMessageHandler) error
	Start(ctx context.Context) error
	Stats() TransportStats
}

// TransportStats 传输层统计信息
type TransportStats struct {
	Running      bool     `json:"running"`
	HandlerCount int      `json:"handler_count"`
	MessageTypes []string `json:"message_types"`
	Published    int64    `json:"published"`
}

// NoopPublisher 丢弃所有消息
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, message IMessage) error { return nil }
func (NoopPublisher) Close() error                                        { return nil }
