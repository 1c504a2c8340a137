// Package store 持有权威的内存学生表与 ID 计数器。
//
// 每次成功的 Create/Update/Delete 都会在返回前把整张表连同计数器
// 同步写入快照后端；读操作只访问内存。一把互斥锁覆盖表、计数器与写快照，
// 并发请求因此按顺序生效，快照总是对应某个完整的逻辑状态。
package store

import (
	"context"
	"sync"

	"studentdb/domain/student"
	"studentdb/errors"
	"studentdb/logging"
	"studentdb/messaging"
	"studentdb/store/snapshot"
)

// 变更通知类型
const (
	EventStudentCreated = "student.created"
	EventStudentUpdated = "student.updated"
	EventStudentDeleted = "student.deleted"
)

// Options 可选依赖
type Options struct {
	Logger    logging.Logger
	Publisher messaging.IPublisher
}

// Store 学生记录存储
type Store struct {
	mu     sync.Mutex
	table  map[int64]student.Student
	nextID int64

	mirror    snapshot.IStore
	publisher messaging.IPublisher
	logger    logging.Logger
}

// Storage 存储内部状态的只读视图
type Storage struct {
	Students map[int64]student.Student `json:"students_db"`
	Total    int                       `json:"total_students"`
	NextID   int64                     `json:"next_id"`
}

// New 创建空存储（表为空，计数器为 1），不读取快照
func New(mirror snapshot.IStore, opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = logging.GetLogger().WithFields(logging.String("component", "store"))
	}
	if opts.Publisher == nil {
		opts.Publisher = messaging.NoopPublisher{}
	}
	st := snapshot.Empty()
	return &Store{
		table:     st.Table,
		nextID:    st.NextID,
		mirror:    mirror,
		publisher: opts.Publisher,
		logger:    opts.Logger,
	}
}

// Open 创建存储并从快照恢复
//
// 快照不存在时以空表启动；快照损坏时返回错误，调用方应拒绝启动。
func Open(ctx context.Context, mirror snapshot.IStore, opts Options) (*Store, error) {
	s := New(mirror, opts)
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Load 用快照内容整体替换内存表与计数器
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, found, err := snapshot.Restore(ctx, s.mirror)
	if err != nil {
		return errors.WrapStorageError(ctx, err, "load snapshot from "+s.mirror.Name())
	}
	s.table = st.Table
	s.nextID = st.NextID

	s.logger.Info(ctx, "snapshot loaded",
		logging.String("backend", s.mirror.Name()),
		logging.Bool("found", found),
		logging.Int("students", len(s.table)),
		logging.Int64("next_id", s.nextID))
	return nil
}

// Create 分配 next_id 并插入记录
func (s *Store) Create(ctx context.Context, rec student.Student) (student.Entry, error) {
	s.mu.Lock()
	id := s.nextID
	s.table[id] = rec
	s.nextID++
	err := s.saveLocked(ctx, "create")
	s.mu.Unlock()

	if err != nil {
		return student.Entry{}, err
	}
	entry := student.NewEntry(id, rec)
	s.publish(ctx, EventStudentCreated, entry)
	return entry, nil
}

// ListAll 返回整张表的副本
func (s *Store) ListAll(ctx context.Context) map[int64]student.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyTableLocked()
}

// Get 按 ID 读取
func (s *Store) Get(ctx context.Context, id int64) (student.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.table[id]
	if !ok {
		return student.Entry{}, student.NotFound(id)
	}
	return student.NewEntry(id, rec), nil
}

// Update 整体替换已存在的记录（不做字段合并）
func (s *Store) Update(ctx context.Context, id int64, rec student.Student) (student.Entry, error) {
	s.mu.Lock()
	if _, ok := s.table[id]; !ok {
		s.mu.Unlock()
		return student.Entry{}, student.NotFound(id)
	}
	s.table[id] = rec
	err := s.saveLocked(ctx, "update")
	s.mu.Unlock()

	if err != nil {
		return student.Entry{}, err
	}
	entry := student.NewEntry(id, rec)
	s.publish(ctx, EventStudentUpdated, entry)
	return entry, nil
}

// Delete 删除并返回被删除的记录；ID 不会被再次分配
func (s *Store) Delete(ctx context.Context, id int64) (student.Student, error) {
	s.mu.Lock()
	rec, ok := s.table[id]
	if !ok {
		s.mu.Unlock()
		return student.Student{}, student.NotFound(id)
	}
	delete(s.table, id)
	err := s.saveLocked(ctx, "delete")
	s.mu.Unlock()

	if err != nil {
		return student.Student{}, err
	}
	s.publish(ctx, EventStudentDeleted, student.NewEntry(id, rec))
	return rec, nil
}

// Stats 返回表副本、记录数与下一个 ID
func (s *Store) Stats(ctx context.Context) Storage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Storage{
		Students: s.copyTableLocked(),
		Total:    len(s.table),
		NextID:   s.nextID,
	}
}

// Close 关闭快照后端与发布端
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pubErr := s.publisher.Close()
	if err := s.mirror.Close(); err != nil {
		return err
	}
	return pubErr
}

// saveLocked 写入完整快照；失败时内存中的变更保留，错误原样上抛且不重试
func (s *Store) saveLocked(ctx context.Context, op string) error {
	data, err := snapshot.Encode(snapshot.State{Table: s.table, NextID: s.nextID})
	if err == nil {
		err = s.mirror.Save(ctx, data)
	}
	if err != nil {
		return errors.WrapWithLog(ctx, err, errors.ErrCodeStorage, "persist snapshot failed",
			logging.String("operation", op),
			logging.String("backend", s.mirror.Name()))
	}
	return nil
}

func (s *Store) copyTableLocked() map[int64]student.Student {
	out := make(map[int64]student.Student, len(s.table))
	for id, rec := range s.table {
		out[id] = rec
	}
	return out
}

func (s *Store) publish(ctx context.Context, eventType string, entry student.Entry) {
	msg := messaging.NewMessageFromContext(ctx, eventType, entry)
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.Warn(ctx, "publish change notification failed",
			logging.String("type", eventType),
			logging.Int64("id", entry.ID),
			logging.Error(err))
	}
}
