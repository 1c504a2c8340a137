package messaging

import "context"

type contextKey string

const contextKeyCorrelationID contextKey = "correlation_id"

// MetadataCorrelationID 消息元数据中的关联 ID 键
const MetadataCorrelationID = "correlation_id"

// WithCorrelationID 在 context 中设置 correlation_id
//
// Correlation ID 标识一次请求，从 HTTP 入口贯穿到变更通知。
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKeyCorrelationID, id)
}

// GetCorrelationID 从 context 中获取 correlation_id，不存在时返回空字符串
func GetCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(contextKeyCorrelationID).(string); ok {
		return id
	}
	return ""
}

// InjectTraceContext 将追踪上下文注入到 metadata
func InjectTraceContext(ctx context.Context, metadata map[string]any) {
	if ctx == nil || metadata == nil {
		return
	}
	if id := GetCorrelationID(ctx); id != "" {
		metadata[MetadataCorrelationID] = id
	}
}
