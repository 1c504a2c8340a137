package snapshot

import (
	"context"
	"fmt"

	"studentdb/logging"
)

// 后端驱动名
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverBadger = "badger"
	DriverMemory = "memory"
)

// Drivers 支持的驱动列表
var Drivers = []string{DriverFile, DriverSQLite, DriverRedis, DriverBadger, DriverMemory}

// Config 选择并配置快照后端
type Config struct {
	Driver string
	// Path 文件后端路径
	Path   string
	SQLite SQLiteConfig
	Redis  RedisConfig
	Badger BadgerConfig
}

// Open 按驱动名创建后端，驱动为空时使用文件后端
func Open(ctx context.Context, cfg Config, logger logging.Logger) (IStore, error) {
	if logger == nil {
		logger = logging.GetLogger()
	}
	switch cfg.Driver {
	case "", DriverFile:
		return NewFileStore(cfg.Path, logger.WithFields(logging.String("component", "snapshot.file"))), nil
	case DriverSQLite:
		return NewSQLiteStore(ctx, cfg.SQLite)
	case DriverRedis:
		return NewRedisStore(cfg.Redis)
	case DriverBadger:
		bc := cfg.Badger
		if bc.Logger == nil {
			bc.Logger = logger.WithFields(logging.String("component", "snapshot.badger"))
		}
		return NewBadgerStore(bc)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("snapshot: unknown driver %q", cfg.Driver)
	}
}
