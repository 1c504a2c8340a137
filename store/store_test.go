package store

import (
	"context"
	stdErrors "errors"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentdb/domain/student"
	"studentdb/errors"
	"studentdb/logging"
	"studentdb/messaging"
	"studentdb/messaging/transport/memory"
	"studentdb/store/snapshot"
)

var (
	alice = student.Student{Name: "Alice", Email: "a@x.com", Age: 20, RollNumber: 1, Course: "CS"}
	bob   = student.Student{Name: "Bob", Email: "b@x.com", Age: 21, RollNumber: 2, Course: "Math"}
	carol = student.Student{Name: "Carol", Email: "c@x.com", Age: 22, RollNumber: 3, Course: "Physics"}
)

func newTestStore(t *testing.T, mirror snapshot.IStore) *Store {
	t.Helper()
	s, err := Open(context.Background(), mirror, Options{Logger: logging.NewNoopLogger()})
	require.NoError(t, err)
	return s
}

// TestScenario_EmptyStart 无快照启动：空表，第一个 ID 为 1
func TestScenario_EmptyStart(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, snapshot.NewMemoryStore())

	assert.Empty(t, s.ListAll(ctx))

	e, err := s.Create(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.ID)
	assert.Equal(t, alice, e.Student)
}

// TestScenario_CreateDeleteGet Create→1, Create→2, Delete 1 后 Get(1) NotFound、Get(2) 成功
func TestScenario_CreateDeleteGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, snapshot.NewMemoryStore())

	e1, err := s.Create(ctx, alice)
	require.NoError(t, err)
	e2, err := s.Create(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(1), e1.ID)
	assert.Equal(t, int64(2), e2.ID)

	deleted, err := s.Delete(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, alice, deleted)

	_, err = s.Get(ctx, 1)
	assert.True(t, student.IsNotFound(err))

	got, err := s.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, student.NewEntry(2, bob), got)
}

// TestIDsStrictlyIncreasingNeverReused 删除后的 ID 不会被再次分配
func TestIDsStrictlyIncreasingNeverReused(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, snapshot.NewMemoryStore())

	var last int64
	for i := 0; i < 5; i++ {
		e, err := s.Create(ctx, alice)
		require.NoError(t, err)
		assert.Greater(t, e.ID, last)
		last = e.ID
		if i%2 == 0 {
			_, err := s.Delete(ctx, e.ID)
			require.NoError(t, err)
		}
	}

	e, err := s.Create(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(6), e.ID)
	assert.Equal(t, int64(7), s.Stats(ctx).NextID)
}

// TestAbsentIDNeverMutates Get/Update/Delete 不存在的 ID 返回 NotFound，且不改变表、计数器、快照
func TestAbsentIDNeverMutates(t *testing.T) {
	ctx := context.Background()
	mem := snapshot.NewMemoryStore()
	s := newTestStore(t, mem)

	_, err := s.Create(ctx, alice)
	require.NoError(t, err)
	before := s.Stats(ctx)
	savesBefore := mem.Saves()

	for _, id := range []int64{0, -1, 2, 99} {
		_, err := s.Get(ctx, id)
		assert.True(t, errors.IsNotFound(errors.Normalize(err)), "get %d", id)

		_, err = s.Update(ctx, id, bob)
		assert.True(t, student.IsNotFound(err), "update %d", id)

		_, err = s.Delete(ctx, id)
		assert.True(t, student.IsNotFound(err), "delete %d", id)
	}

	assert.Equal(t, before, s.Stats(ctx))
	assert.Equal(t, savesBefore, mem.Saves())
}

// TestUpdateReplacesWholesale 更新后 Get 返回的正是新记录
func TestUpdateReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, snapshot.NewMemoryStore())

	e, err := s.Create(ctx, alice)
	require.NoError(t, err)

	sparse := student.Student{Name: "Zed"}
	updated, err := s.Update(ctx, e.ID, sparse)
	require.NoError(t, err)
	assert.Equal(t, student.NewEntry(e.ID, sparse), updated)

	got, err := s.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, sparse, got.Student)
	assert.Equal(t, int64(2), s.Stats(ctx).NextID, "update must not advance the counter")
}

// TestDuplicatesAllowed email 与 Roll_number 不做唯一性约束
func TestDuplicatesAllowed(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, snapshot.NewMemoryStore())

	_, err := s.Create(ctx, alice)
	require.NoError(t, err)
	_, err = s.Create(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, s.ListAll(ctx), 2)
}

// TestListAllIsCopy 返回值的修改不影响存储
func TestListAllIsCopy(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, snapshot.NewMemoryStore())
	_, err := s.Create(ctx, alice)
	require.NoError(t, err)

	all := s.ListAll(ctx)
	delete(all, 1)
	all[5] = bob

	assert.Equal(t, map[int64]student.Student{1: alice}, s.ListAll(ctx))
}

// TestEveryMutationSaves 每次成功变更都写入快照，读操作不写
func TestEveryMutationSaves(t *testing.T) {
	ctx := context.Background()
	mem := snapshot.NewMemoryStore()
	s := newTestStore(t, mem)

	_, _ = s.Create(ctx, alice)
	_, _ = s.Create(ctx, bob)
	_, _ = s.Update(ctx, 2, carol)
	_, _ = s.Delete(ctx, 1)
	_ = s.ListAll(ctx)
	_, _ = s.Get(ctx, 2)
	_ = s.Stats(ctx)
	assert.Equal(t, 4, mem.Saves())

	st, err := snapshot.Decode(mem.Bytes())
	require.NoError(t, err)
	assert.Equal(t, snapshot.State{Table: map[int64]student.Student{2: carol}, NextID: 3}, st)
}

// TestScenario_Restart 两次创建一次删除后重启：表一致，计数器从持久化值继续
func TestScenario_Restart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "students.json")

	first := newTestStore(t, snapshot.NewFileStore(path, logging.NewNoopLogger()))
	_, err := first.Create(ctx, alice)
	require.NoError(t, err)
	_, err = first.Create(ctx, bob)
	require.NoError(t, err)
	_, err = first.Delete(ctx, 1)
	require.NoError(t, err)
	before := first.Stats(ctx)
	require.NoError(t, first.Close())

	second := newTestStore(t, snapshot.NewFileStore(path, logging.NewNoopLogger()))
	assert.Equal(t, before, second.Stats(ctx))

	e, err := second.Create(ctx, carol)
	require.NoError(t, err)
	assert.Equal(t, int64(3), e.ID)
}

// TestOpen_CorruptSnapshotRefused 快照损坏时拒绝启动
func TestOpen_CorruptSnapshotRefused(t *testing.T) {
	mem := snapshot.NewMemoryStore()
	mem.Put([]byte(`{"students": {"1": `))

	_, err := Open(context.Background(), mem, Options{Logger: logging.NewNoopLogger()})
	require.Error(t, err)
	assert.True(t, errors.IsStorage(err))
	assert.True(t, stdErrors.Is(err, snapshot.ErrCorrupt))
}

// TestSaveFailurePropagates 写快照失败时错误上抛，不重试
func TestSaveFailurePropagates(t *testing.T) {
	ctx := context.Background()
	mem := snapshot.NewMemoryStore()
	s := newTestStore(t, mem)

	_, err := s.Create(ctx, alice)
	require.NoError(t, err)

	diskFull := stdErrors.New("no space left on device")
	mem.FailSaves(diskFull)

	_, err = s.Create(ctx, bob)
	require.Error(t, err)
	assert.True(t, errors.IsStorage(err))
	assert.ErrorIs(t, err, diskFull)

	_, err = s.Update(ctx, 1, bob)
	assert.ErrorIs(t, err, diskFull)

	_, err = s.Delete(ctx, 1)
	assert.ErrorIs(t, err, diskFull)

	// 只有第一次成功写入
	assert.Equal(t, 1, mem.Saves())
}

// TestConcurrentCreates 并发创建不会丢失更新或重复分配 ID
func TestConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	mem := snapshot.NewMemoryStore()
	s := newTestStore(t, mem)

	const n = 64
	ids := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := s.Create(ctx, alice)
			assert.NoError(t, err)
			ids[i] = e.ID
		}(i)
	}
	wg.Wait()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		assert.Equal(t, int64(i+1), id)
	}

	st, err := snapshot.Decode(mem.Bytes())
	require.NoError(t, err)
	assert.Len(t, st.Table, n)
	assert.Equal(t, int64(n+1), st.NextID)
}

// TestChangeNotifications 变更通知在保存成功后发布，携带 correlation_id
func TestChangeNotifications(t *testing.T) {
	tr := memory.NewTransport()
	var got []messaging.IMessage
	require.NoError(t, tr.Subscribe(memory.WildcardType, messaging.HandlerFunc(func(ctx context.Context, m messaging.IMessage) error {
		got = append(got, m)
		return nil
	})))

	mem := snapshot.NewMemoryStore()
	s, err := Open(context.Background(), mem, Options{Logger: logging.NewNoopLogger(), Publisher: tr})
	require.NoError(t, err)

	ctx := messaging.WithCorrelationID(context.Background(), "req-42")
	_, err = s.Create(ctx, alice)
	require.NoError(t, err)
	_, err = s.Update(ctx, 1, bob)
	require.NoError(t, err)
	_, err = s.Delete(ctx, 1)
	require.NoError(t, err)

	// 失败的变更不发布
	_, _ = s.Delete(ctx, 1)
	mem.FailSaves(stdErrors.New("io"))
	_, _ = s.Create(ctx, carol)

	require.Len(t, got, 3)
	assert.Equal(t, EventStudentCreated, got[0].GetType())
	assert.Equal(t, EventStudentUpdated, got[1].GetType())
	assert.Equal(t, EventStudentDeleted, got[2].GetType())
	assert.Equal(t, student.NewEntry(1, bob), got[1].GetPayload())
	assert.Equal(t, "req-42", got[0].GetMetadata()[messaging.MetadataCorrelationID])
}

// TestPublishFailureDoesNotFailMutation 通知失败只记录日志
func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	tr := memory.NewTransport()
	require.NoError(t, tr.Close())

	s, err := Open(context.Background(), snapshot.NewMemoryStore(), Options{Logger: logging.NewNoopLogger(), Publisher: tr})
	require.NoError(t, err)

	e, err := s.Create(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.ID)
}
