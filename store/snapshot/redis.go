package snapshot

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisClient go-redis 命令子集（便于测试替换）
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// RedisConfig Redis 快照后端配置
type RedisConfig struct {
	Client   redis.UniversalClient
	Addr     string
	Username string
	Password string
	DB       int
	Key      string
}

// RedisStore 将快照文档保存在单个 Redis 键中
type RedisStore struct {
	client    redisClient
	key       string
	ownClient bool
}

// NewRedisStore 使用外部客户端或按地址创建客户端
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Key == "" {
		cfg.Key = "studentdb:snapshot"
	}
	if cfg.Client != nil {
		return &RedisStore{client: cfg.Client, key: cfg.Key}, nil
	}
	if cfg.Addr == "" {
		return nil, stdErrors.New("snapshot: redis addr not configured")
	}
	cl := redis.NewClient(&redis.Options{Addr: cfg.Addr, Username: cfg.Username, Password: cfg.Password, DB: cfg.DB})
	return &RedisStore{client: cl, key: cfg.Key, ownClient: true}, nil
}

func newRedisStoreWithClient(cl redisClient, key string) *RedisStore {
	return &RedisStore{client: cl, key: key}
}

func (s *RedisStore) Name() string { return "redis" }

func (s *RedisStore) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if stdErrors.Is(err, redis.Nil) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: redis get %s: %w", s.key, err)
	}
	return data, nil
}

func (s *RedisStore) Save(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("snapshot: redis set %s: %w", s.key, err)
	}
	return nil
}

// Close 仅关闭自行创建的客户端
func (s *RedisStore) Close() error {
	if !s.ownClient {
		return nil
	}
	return s.client.Close()
}

var _ IStore = (*RedisStore)(nil)
