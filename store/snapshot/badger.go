package snapshot

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"studentdb/logging"
)

// BadgerConfig 嵌入式 badger 快照后端配置
type BadgerConfig struct {
	// Dir 数据目录；InMemory 为 true 时忽略
	Dir      string
	InMemory bool
	Key      string
	Logger   logging.Logger
}

// BadgerStore 将快照文档保存在 badger 的单个键中
type BadgerStore struct {
	db  *badger.DB
	key []byte
}

// NewBadgerStore 打开 badger 数据库
func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	if cfg.Key == "" {
		cfg.Key = "studentdb/snapshot"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetLogger().WithFields(logging.String("component", "snapshot.badger"))
	}

	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else if cfg.Dir == "" {
		return nil, stdErrors.New("snapshot: badger dir not configured")
	}
	opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open badger: %w", err)
	}
	return &BadgerStore{db: db, key: []byte(cfg.Key)}, nil
}

func (s *BadgerStore) Name() string { return "badger" }

func (s *BadgerStore) Load(ctx context.Context) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key)
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if stdErrors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: badger get: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) Save(ctx context.Context, data []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key, data)
	})
	if err != nil {
		return fmt.Errorf("snapshot: badger set: %w", err)
	}
	return nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

var _ IStore = (*BadgerStore)(nil)

// badgerLogger 将 badger 内部日志转接到 logging.Logger
type badgerLogger struct {
	logger logging.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(context.Background(), fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(context.Background(), fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(context.Background(), fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(context.Background(), fmt.Sprintf(format, args...))
}
