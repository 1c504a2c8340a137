package snapshot

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"studentdb/logging"
)

// DefaultFilePath 默认快照文件
const DefaultFilePath = "students.json"

// FileStore 以单个 JSON 文件保存快照
//
// 写入先落到同目录临时文件并 fsync，再 rename 覆盖目标，
// 进程在写入中途崩溃时旧快照保持完整。
type FileStore struct {
	path   string
	perm   fs.FileMode
	logger logging.Logger
}

// NewFileStore 创建文件后端，path 为空时使用 DefaultFilePath
func NewFileStore(path string, logger logging.Logger) *FileStore {
	if path == "" {
		path = DefaultFilePath
	}
	if logger == nil {
		logger = logging.GetLogger().WithFields(logging.String("component", "snapshot.file"))
	}
	return &FileStore{path: path, perm: 0o644, logger: logger}
}

func (s *FileStore) Name() string { return "file" }

// Path 快照文件路径
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if stdErrors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", s.path, err)
	}
	return data, nil
}

func (s *FileStore) Save(ctx context.Context, data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("snapshot: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("snapshot: create temp: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("snapshot: write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("snapshot: sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("snapshot: close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, s.perm); err != nil {
		return fmt.Errorf("snapshot: chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("snapshot: rename %s: %w", s.path, err)
	}
	committed = true

	s.logger.Debug(ctx, "snapshot written", logging.String("path", s.path), logging.Int("bytes", len(data)))
	return nil
}

func (s *FileStore) Close() error { return nil }
