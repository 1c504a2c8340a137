package redisstreams

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"studentdb/logging"
	"studentdb/messaging"
)

// client captures the subset of go-redis commands we rely on (for easier testing).
type client interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// Config describes how the change feed connects to Redis and trims its streams.
type Config struct {
	Client       redis.UniversalClient
	Addr         string
	Username     string
	Password     string
	DB           int
	StreamPrefix string
	// MaxLen 每个 stream 保留的近似条数，0 表示不裁剪
	MaxLen int64
	Logger logging.Logger
}

// Publisher 将变更通知以 XADD 追加到 <prefix><type> stream
type Publisher struct {
	cfg       Config
	client    client
	ownClient bool
	logger    logging.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPublisher constructs a Redis Streams publisher.
func NewPublisher(cfg Config) (*Publisher, error) {
	var cl client
	var own bool
	if cfg.Client != nil {
		cl = cfg.Client
	} else {
		if cfg.Addr == "" {
			return nil, errors.New("redisstreams: redis addr not configured")
		}
		cl = redis.NewClient(&redis.Options{Addr: cfg.Addr, Username: cfg.Username, Password: cfg.Password, DB: cfg.DB})
		own = true
	}
	return newPublisher(cfg, cl, own), nil
}

func newPublisher(cfg Config, cl client, own bool) *Publisher {
	if cfg.StreamPrefix == "" {
		cfg.StreamPrefix = "studentdb:"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetLogger().WithFields(logging.String("component", "transport.redisstreams"))
	}
	return &Publisher{cfg: cfg, client: cl, ownClient: own, logger: cfg.Logger}
}

// Publish writes a single message into the appropriate Stream.
func (p *Publisher) Publish(ctx context.Context, message messaging.IMessage) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errors.New("redis streams publisher closed")
	}
	values, err := encodeMessage(message)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{Stream: p.streamName(message.GetType()), Values: values}
	if p.cfg.MaxLen > 0 {
		args.MaxLen = p.cfg.MaxLen
		args.Approx = true
	}
	entryID, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("redisstreams: xadd %s: %w", args.Stream, err)
	}
	p.logger.Debug(ctx, "message appended", logging.String("stream", args.Stream), logging.String("entry", entryID))
	return nil
}

// Close closes the redis client when it was created by NewPublisher.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.ownClient {
		return p.client.Close()
	}
	return nil
}

var _ messaging.IPublisher = (*Publisher)(nil)

func (p *Publisher) streamName(messageType string) string {
	return p.cfg.StreamPrefix + messageType
}

func encodeMessage(msg messaging.IMessage) (map[string]any, error) {
	payload, err := json.Marshal(msg.GetPayload())
	if err != nil {
		return nil, err
	}
	metadata, err := json.Marshal(msg.GetMetadata())
	if err != nil {
		return nil, err
	}
	ts := msg.GetTimestamp()
	if ts.IsZero() {
		ts = time.Now()
	}
	return map[string]any{
		"id":        msg.GetID(),
		"type":      msg.GetType(),
		"timestamp": ts.UnixNano(),
		"payload":   string(payload),
		"metadata":  string(metadata),
	}, nil
}

// decodeMessage 解码 stream 条目，供消费端与测试使用
func decodeMessage(entry redis.XMessage) (messaging.IMessage, error) {
	id, _ := entry.Values["id"].(string)
	msgType, _ := entry.Values["type"].(string)

	payloadRaw, _ := entry.Values["payload"].(string)
	metadataRaw, _ := entry.Values["metadata"].(string)

	var payload any
	if payloadRaw != "" {
		if err := json.Unmarshal([]byte(payloadRaw), &payload); err != nil {
			return nil, err
		}
	}
	metadata := make(map[string]any)
	if metadataRaw != "" {
		if err := json.Unmarshal([]byte(metadataRaw), &metadata); err != nil {
			return nil, err
		}
	}

	ts := time.Now()
	switch v := entry.Values["timestamp"].(type) {
	case int64:
		ts = time.Unix(0, v)
	case string:
		if ns, err := strconv.ParseInt(v, 10, 64); err == nil {
			ts = time.Unix(0, ns)
		}
	}

	if id == "" {
		id = entry.ID
	}

	return &messaging.Message{
		ID:        id,
		Type:      msgType,
		Timestamp: ts,
		Payload:   payload,
		Metadata:  metadata,
	}, nil
}
