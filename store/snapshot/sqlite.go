package snapshot

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteConfig SQLite 快照后端配置
type SQLiteConfig struct {
	// DSN 数据库文件路径或 modernc DSN，例如 "file:students.db?_pragma=busy_timeout(5000)"
	DSN string
	// Table 表名，默认 student_snapshots
	Table string
	// Key 快照行名，默认 students
	Key string
}

// SQLiteStore 以单行 UPSERT 保存快照文档
type SQLiteStore struct {
	db    *sql.DB
	table string
	key   string
}

// NewSQLiteStore 打开数据库并确保表存在
func NewSQLiteStore(ctx context.Context, cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.DSN == "" {
		cfg.DSN = "students.db"
	}
	if cfg.Table == "" {
		cfg.Table = "student_snapshots"
	}
	if cfg.Key == "" {
		cfg.Key = "students"
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open sqlite: %w", err)
	}
	// 单写者，避免 SQLITE_BUSY
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("snapshot: ping sqlite: %w", err)
	}

	s := &SQLiteStore{db: db, table: cfg.Table, key: cfg.Key}
	if err := s.EnsureTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Name() string { return "sqlite" }

// EnsureTable 建表（幂等）
func (s *SQLiteStore) EnsureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	name TEXT PRIMARY KEY,
	body TEXT NOT NULL,
	updated_at DATETIME NOT NULL
)`, s.table)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("snapshot: ensure table %s: %w", s.table, err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) ([]byte, error) {
	q := fmt.Sprintf(`SELECT body FROM %s WHERE name = ?`, s.table)
	var body string
	if err := s.db.QueryRowContext(ctx, q, s.key).Scan(&body); err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("snapshot: load sqlite: %w", err)
	}
	return []byte(body), nil
}

func (s *SQLiteStore) Save(ctx context.Context, data []byte) error {
	q := fmt.Sprintf(`
INSERT INTO %s (name, body, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	body=excluded.body,
	updated_at=excluded.updated_at`, s.table)
	if _, err := s.db.ExecContext(ctx, q, s.key, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("snapshot: save sqlite: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

var _ IStore = (*SQLiteStore)(nil)
