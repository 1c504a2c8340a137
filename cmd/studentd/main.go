package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"studentdb/app/api"
	"studentdb/config"
	hbasic "studentdb/http/basic"
	"studentdb/logging"
	"studentdb/messaging"
	"studentdb/messaging/transport/memory"
	"studentdb/messaging/transport/natspub"
	"studentdb/messaging/transport/redisstreams"
	"studentdb/store"
	"studentdb/store/snapshot"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.LookupEnv, os.Stderr); err != nil {
		log.SetPrefix("[studentd] ")
		log.Fatal(err)
	}
}

// run 解析配置、恢复快照并阻塞提供 HTTP 服务，直到收到退出信号
func run(ctx context.Context, args []string, lookup config.LookupFunc, stderr io.Writer) error {
	cfg, err := loadConfig(args, lookup, stderr)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}
	logging.SetLogger(logger)

	svc, err := setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svc.store.Close(); cerr != nil {
			logger.Warn(context.Background(), "close store failed", logging.Error(cerr))
		}
	}()

	web := hbasic.NewWebServer("http", "", svc.server, cfg.Web.ShutdownTimeout)
	logger.Info(ctx, "listening",
		logging.String("addr", fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)),
		logging.String("storage", cfg.Storage.Driver),
		logging.String("messaging", cfg.Messaging.Driver))

	return hbasic.NewManager().
		WithLogger(logger).
		WithShutdownTimeout(cfg.Web.ShutdownTimeout).
		Register(web).
		Run(ctx)
}

// loadConfig 默认值 < 环境变量 < 命令行参数
func loadConfig(args []string, lookup config.LookupFunc, stderr io.Writer) (config.Config, error) {
	cfg, err := config.FromEnv(lookup)
	if err != nil {
		return config.Config{}, err
	}

	fs := flag.NewFlagSet("studentd", flag.ContinueOnError)
	fs.SetOutput(stderr)
	host := fs.String("host", cfg.Web.Host, "listen host")
	port := fs.Int("port", cfg.Web.Port, "listen port")
	driver := fs.String("storage", cfg.Storage.Driver, "snapshot backend: file, sqlite, redis, badger, memory")
	path := fs.String("snapshot", cfg.Storage.Path, "snapshot file path (file backend)")
	level := fs.String("log-level", cfg.Log.Level, "log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg.Web.Host = *host
	cfg.Web.Port = *port
	cfg.Storage.Driver = *driver
	cfg.Storage.Path = *path
	cfg.Log.Level = *level

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig, out io.Writer) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewStdLogger("[studentd]").
		WithLevel(level).
		WithOutput(log.New(out, "", log.LstdFlags|log.Lmicroseconds)).
		WithContextFields(func(ctx context.Context) []logging.Field {
			if id := messaging.GetCorrelationID(ctx); id != "" {
				return []logging.Field{logging.String("request_id", id)}
			}
			return nil
		}), nil
}

type service struct {
	store  *store.Store
	server *hbasic.HttpServer
}

// setup 打开快照后端与通知通道，恢复存储并注册路由
//
// 快照损坏时返回错误，进程以非零状态退出。
func setup(ctx context.Context, cfg config.Config, logger logging.Logger) (*service, error) {
	mirror, err := snapshot.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	publisher, err := newPublisher(cfg.Messaging, logger)
	if err != nil {
		_ = mirror.Close()
		return nil, err
	}

	st, err := store.Open(ctx, mirror, store.Options{
		Logger:    logger.WithFields(logging.String("component", "store")),
		Publisher: publisher,
	})
	if err != nil {
		_ = publisher.Close()
		_ = mirror.Close()
		return nil, err
	}

	server := hbasic.NewHTTPServer(cfg.Web)
	server.Use(
		hbasic.RequestID(),
		hbasic.AccessLog(logger.WithFields(logging.String("component", "http"))),
		hbasic.Recover(logger),
	)
	if err := api.NewStudentRouter(st).Register(server); err != nil {
		_ = st.Close()
		return nil, err
	}
	return &service{store: st, server: server}, nil
}

func newPublisher(cfg config.MessagingConfig, logger logging.Logger) (messaging.IPublisher, error) {
	switch cfg.Driver {
	case config.MessagingNATS:
		nc := cfg.NATS
		if nc.Logger == nil {
			nc.Logger = logger.WithFields(logging.String("component", "transport.nats"))
		}
		return natspub.NewPublisher(nc)
	case config.MessagingRedis:
		rc := cfg.Redis
		if rc.Logger == nil {
			rc.Logger = logger.WithFields(logging.String("component", "transport.redisstreams"))
		}
		return redisstreams.NewPublisher(rc)
	case config.MessagingNone:
		return messaging.NoopPublisher{}, nil
	default:
		tr := memory.NewTransport()
		// 进程内订阅者：以 DEBUG 级别记录变更
		err := tr.Subscribe(memory.WildcardType, messaging.HandlerFunc(func(ctx context.Context, msg messaging.IMessage) error {
			logger.Debug(ctx, "student changed",
				logging.String("type", msg.GetType()),
				logging.String("message_id", msg.GetID()))
			return nil
		}))
		if err != nil {
			return nil, err
		}
		return tr, nil
	}
}
