// Package config 汇总服务运行所需的配置，并支持从环境变量覆盖默认值。
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"studentdb/errors"
	httpx "studentdb/http"
	"studentdb/logging"
	"studentdb/messaging/transport/natspub"
	"studentdb/messaging/transport/redisstreams"
	"studentdb/store/snapshot"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "STUDENTDB_"

// 消息驱动
const (
	MessagingMemory = "memory"
	MessagingNATS   = "nats"
	MessagingRedis  = "redis"
	MessagingNone   = "none"
)

// MessagingConfig 变更通知配置
type MessagingConfig struct {
	Driver string
	NATS   natspub.Config
	Redis  redisstreams.Config
}

// LogConfig 日志配置
type LogConfig struct {
	Level string
}

// Config 服务配置
type Config struct {
	Web       httpx.WebConfig
	Storage   snapshot.Config
	Messaging MessagingConfig
	Log       LogConfig
}

// Default 默认配置：文件快照 students.json、进程内消息、INFO 日志
func Default() Config {
	return Config{
		Web: httpx.DefaultWebConfig(),
		Storage: snapshot.Config{
			Driver: snapshot.DriverFile,
			Path:   snapshot.DefaultFilePath,
		},
		Messaging: MessagingConfig{Driver: MessagingMemory},
		Log:       LogConfig{Level: logging.InfoLevel.String()},
	}
}

// LookupFunc 与 os.LookupEnv 签名一致
type LookupFunc func(key string) (string, bool)

// FromEnv 在默认配置上应用 STUDENTDB_* 环境变量
func FromEnv(lookup LookupFunc) (Config, error) {
	cfg := Default()
	if err := cfg.ApplyEnv(lookup); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv 用环境变量覆盖当前配置；未设置的变量保持原值
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	e := envReader{lookup: lookup}

	e.str("HOST", &c.Web.Host)
	e.integer("PORT", &c.Web.Port)
	e.duration("READ_TIMEOUT", &c.Web.ReadTimeout)
	e.duration("WRITE_TIMEOUT", &c.Web.WriteTimeout)
	e.duration("SHUTDOWN_TIMEOUT", &c.Web.ShutdownTimeout)
	e.integer64("MAX_BODY_BYTES", &c.Web.MaxBodyBytes)

	e.str("STORAGE_DRIVER", &c.Storage.Driver)
	e.str("SNAPSHOT_PATH", &c.Storage.Path)
	e.str("SQLITE_DSN", &c.Storage.SQLite.DSN)
	e.str("REDIS_ADDR", &c.Storage.Redis.Addr)
	e.str("REDIS_PASSWORD", &c.Storage.Redis.Password)
	e.integer("REDIS_DB", &c.Storage.Redis.DB)
	e.str("REDIS_KEY", &c.Storage.Redis.Key)
	e.str("BADGER_DIR", &c.Storage.Badger.Dir)

	e.str("MESSAGING_DRIVER", &c.Messaging.Driver)
	e.str("NATS_URL", &c.Messaging.NATS.URL)
	e.str("NATS_SUBJECT_PREFIX", &c.Messaging.NATS.SubjectPrefix)
	e.str("STREAMS_REDIS_ADDR", &c.Messaging.Redis.Addr)
	e.str("STREAMS_PREFIX", &c.Messaging.Redis.StreamPrefix)
	e.integer64("STREAMS_MAXLEN", &c.Messaging.Redis.MaxLen)

	e.str("LOG_LEVEL", &c.Log.Level)

	if len(e.errs) > 0 {
		return errors.NewError(errors.ErrCodeConfig, strings.Join(e.errs, "; "))
	}
	return nil
}

// Validate 检查驱动名与必填项
func (c Config) Validate() error {
	var problems []string

	if c.Web.Port < 0 || c.Web.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d out of range", c.Web.Port))
	}

	switch c.Storage.Driver {
	case "", snapshot.DriverFile:
		if c.Storage.Path == "" {
			problems = append(problems, "snapshot path is required for file driver")
		}
	case snapshot.DriverSQLite:
		if c.Storage.SQLite.DSN == "" {
			problems = append(problems, "sqlite dsn is required")
		}
	case snapshot.DriverRedis:
		if c.Storage.Redis.Addr == "" && c.Storage.Redis.Client == nil {
			problems = append(problems, "redis addr is required")
		}
	case snapshot.DriverBadger:
		if c.Storage.Badger.Dir == "" && !c.Storage.Badger.InMemory {
			problems = append(problems, "badger dir is required")
		}
	case snapshot.DriverMemory:
	default:
		problems = append(problems, fmt.Sprintf("unknown storage driver %q (supported: %s)",
			c.Storage.Driver, strings.Join(snapshot.Drivers, ", ")))
	}

	switch c.Messaging.Driver {
	case "", MessagingMemory, MessagingNone:
	case MessagingNATS:
		if c.Messaging.NATS.URL == "" && c.Messaging.NATS.Conn == nil {
			problems = append(problems, "nats url is required")
		}
	case MessagingRedis:
		if c.Messaging.Redis.Addr == "" && c.Messaging.Redis.Client == nil {
			problems = append(problems, "redis streams addr is required")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown messaging driver %q", c.Messaging.Driver))
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return errors.NewError(errors.ErrCodeConfig, "invalid config: "+strings.Join(problems, "; "))
	}
	return nil
}

type envReader struct {
	lookup LookupFunc
	errs   []string
}

func (e *envReader) get(name string) (string, bool) {
	if e.lookup == nil {
		return "", false
	}
	v, ok := e.lookup(EnvPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envReader) str(name string, dst *string) {
	if v, ok := e.get(name); ok {
		*dst = v
	}
}

func (e *envReader) integer(name string, dst *int) {
	if v, ok := e.get(name); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Sprintf("%s%s: expected integer, got %q", EnvPrefix, name, v))
			return
		}
		*dst = n
	}
}

func (e *envReader) integer64(name string, dst *int64) {
	if v, ok := e.get(name); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			e.errs = append(e.errs, fmt.Sprintf("%s%s: expected integer, got %q", EnvPrefix, name, v))
			return
		}
		*dst = n
	}
}

func (e *envReader) duration(name string, dst *time.Duration) {
	if v, ok := e.get(name); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Sprintf("%s%s: expected duration, got %q", EnvPrefix, name, v))
			return
		}
		*dst = d
	}
}
