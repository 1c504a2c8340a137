// Package snapshot 负责学生表与计数器的整体快照编解码，以及快照文档的持久化后端。
//
// 快照文档格式：
//
//	{
//	  "students": { "<id>": { "name": ..., "email": ..., "age": ..., "Roll_number": ..., "course": ... } },
//	  "next_id": 3
//	}
//
// 每次变更后整体重写，不做增量日志。
package snapshot

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"strconv"

	"studentdb/domain/student"
)

var (
	// ErrNotExist 后端中尚无快照
	ErrNotExist = stdErrors.New("snapshot: not exist")

	// ErrCorrupt 快照存在但无法解析或违反不变量
	ErrCorrupt = stdErrors.New("snapshot: corrupt")
)

// InitialNextID 空表时的计数器初值
const InitialNextID int64 = 1

// IStore 快照文档的持久化后端
//
// Save 必须整体替换旧文档；Load 在从未保存过时返回 ErrNotExist。
type IStore interface {
	Name() string
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Close() error
}

// State 表与计数器的内存形态
type State struct {
	Table  map[int64]student.Student
	NextID int64
}

// Empty 返回进程启动时的初始状态
func Empty() State {
	return State{Table: make(map[int64]student.Student), NextID: InitialNextID}
}

type document struct {
	Students map[string]student.Student `json:"students"`
	NextID   *int64                     `json:"next_id"`
}

// Encode 将状态编码为快照文档（两空格缩进，ID 以十进制字符串为键）
func Encode(st State) ([]byte, error) {
	students := make(map[string]student.Student, len(st.Table))
	for id, s := range st.Table {
		students[strconv.FormatInt(id, 10)] = s
	}
	next := st.NextID
	data, err := json.MarshalIndent(document{Students: students, NextID: &next}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode: %w", err)
	}
	return data, nil
}

// Decode 解析快照文档
//
// students 缺失视为空表，next_id 缺失视为 1；键必须是正的十进制整数且小于 next_id，
// 否则返回包装 ErrCorrupt 的错误。
func Decode(data []byte) (State, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	st := Empty()
	if doc.NextID != nil {
		st.NextID = *doc.NextID
	}
	if st.NextID < InitialNextID {
		return State{}, fmt.Errorf("%w: next_id %d must be >= %d", ErrCorrupt, st.NextID, InitialNextID)
	}

	for key, s := range doc.Students {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return State{}, fmt.Errorf("%w: student key %q is not an integer", ErrCorrupt, key)
		}
		if id <= 0 || id >= st.NextID {
			return State{}, fmt.Errorf("%w: student id %d outside [1, %d)", ErrCorrupt, id, st.NextID)
		}
		st.Table[id] = s
	}
	return st, nil
}

// Restore 从后端读取并解码；后端为空时返回初始状态与 false
func Restore(ctx context.Context, s IStore) (State, bool, error) {
	data, err := s.Load(ctx)
	if stdErrors.Is(err, ErrNotExist) {
		return Empty(), false, nil
	}
	if err != nil {
		return State{}, false, err
	}
	st, err := Decode(data)
	if err != nil {
		return State{}, false, err
	}
	return st, true, nil
}
