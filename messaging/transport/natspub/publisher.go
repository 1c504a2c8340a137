// Package natspub 通过 core NATS 发布变更通知
package natspub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"studentdb/logging"
	"studentdb/messaging"
)

// conn nats.Conn 的发布子集（便于测试替换）
type conn interface {
	Publish(subj string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Drain() error
	Close()
}

// Config NATS 发布配置
type Config struct {
	URL           string
	Name          string
	SubjectPrefix string
	FlushTimeout  time.Duration
	Conn          *nats.Conn
	Logger        logging.Logger
}

// Publisher 将消息以 JSON 发布到 <prefix><type>
type Publisher struct {
	cfg      Config
	logger   logging.Logger
	conn     conn
	ownsConn bool

	mu     sync.RWMutex
	closed bool
}

// NewPublisher 连接 NATS（或复用外部连接）
func NewPublisher(cfg Config) (*Publisher, error) {
	cfg = withDefaults(cfg)
	if cfg.Conn != nil {
		return newPublisher(cfg, cfg.Conn, false), nil
	}
	nc, err := nats.Connect(cfg.URL, nats.Name(cfg.Name))
	if err != nil {
		return nil, fmt.Errorf("natspub: connect %s: %w", cfg.URL, err)
	}
	return newPublisher(cfg, nc, true), nil
}

func withDefaults(cfg Config) Config {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Name == "" {
		cfg.Name = "studentdb"
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "studentdb."
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetLogger().WithFields(logging.String("component", "transport.nats"))
	}
	return cfg
}

func newPublisher(cfg Config, c conn, owns bool) *Publisher {
	return &Publisher{cfg: cfg, logger: cfg.Logger, conn: c, ownsConn: owns}
}

// Publish 发布单条消息
func (p *Publisher) Publish(ctx context.Context, message messaging.IMessage) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errors.New("nats publisher closed")
	}
	data, err := marshalMessage(message)
	if err != nil {
		return err
	}
	subject := p.subjectName(message.GetType())
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("natspub: publish %s: %w", subject, err)
	}
	p.logger.Debug(ctx, "message published", logging.String("subject", subject), logging.String("id", message.GetID()))
	return nil
}

// Close 刷新缓冲；自有连接会被 Drain
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.conn.FlushTimeout(p.cfg.FlushTimeout); err != nil {
		p.logger.Warn(context.Background(), "nats flush failed", logging.Error(err))
	}
	if p.ownsConn {
		return p.conn.Drain()
	}
	return nil
}

func (p *Publisher) subjectName(messageType string) string {
	return p.cfg.SubjectPrefix + messageType
}

var _ messaging.IPublisher = (*Publisher)(nil)

type envelope struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Timestamp int64          `json:"timestamp"`
	Payload   any            `json:"payload"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func marshalMessage(message messaging.IMessage) ([]byte, error) {
	data, err := json.Marshal(envelope{
		ID:        message.GetID(),
		Type:      message.GetType(),
		Timestamp: message.GetTimestamp().UnixNano(),
		Payload:   message.GetPayload(),
		Metadata:  message.GetMetadata(),
	})
	if err != nil {
		return nil, fmt.Errorf("natspub: marshal %s: %w", message.GetID(), err)
	}
	return data, nil
}

// unmarshalMessage 解码订阅端收到的消息，payload 保持通用 JSON 形态
func unmarshalMessage(data []byte) (*messaging.Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("natspub: unmarshal: %w", err)
	}
	return &messaging.Message{
		ID:        env.ID,
		Type:      env.Type,
		Timestamp: time.Unix(0, env.Timestamp).UTC(),
		Payload:   env.Payload,
		Metadata:  env.Metadata,
	}, nil
}
